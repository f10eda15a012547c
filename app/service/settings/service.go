package settings

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"vankeyword/app/config"
	"vankeyword/app/service/session"
	"vankeyword/app/service/store"

	"github.com/samber/do"
)

const (
	KeyCooling         = "冷却中回复"
	KeyConditionFailed = "判断不对时回复"

	selectionKey = "select.txt"
	switchKey    = "switch.txt"
	blockMarker  = "***"
)

// CommandKeys are the chat command words a scope config may rename.
var CommandKeys = []string{
	"添加主人", "删除主人", "词库备份", "词库清空",
	"开启本群", "关闭本群", "切换词库", "精准问答",
	"模糊问答", "加选项", "删选项", "删词", "查词", "查id",
}

// Service reads the plain text resources that steer the lexicon: per-scope
// config blocks, scope selection maps and expansion maps.
type Service struct {
	cfg   *config.Config
	store store.Store
}

func New(di *do.Injector) (*Service, error) {
	return NewService(do.MustInvoke[*config.Config](di), do.MustInvoke[store.Store](di)), nil
}

func NewService(cfg *config.Config, st store.Store) *Service {
	return &Service{
		cfg:   cfg,
		store: st,
	}
}

// Get returns the value of key inside the *** block of config/<scope>.txt, or
// "" when the document, the block or the key is missing.
func (s *Service) Get(ctx context.Context, bucket, scope, key string) (string, error) {
	text, err := store.ReadOrDefault(ctx, s.store, bucket, "config/"+scope+".txt")
	if err != nil {
		return "", err
	}

	return parseBlock(text)[key], nil
}

// Reply resolves a reply template from the scope config, falling back to the
// configured default when the scope does not define one or cannot be read.
func (s *Service) Reply(ctx context.Context, bucket, scope, key string) string {
	value, err := s.Get(ctx, bucket, scope, key)
	if err != nil {
		slog.Warn("Failed to read scope config", "bucket", bucket, "scope", scope, "key", key, "error", err)
	}
	if value != "" {
		return value
	}

	switch key {
	case KeyCooling:
		return s.cfg.Replies.Cooling
	case KeyConditionFailed:
		return s.cfg.Replies.ConditionFailed
	default:
		return ""
	}
}

// Commands returns the command words the scope config overrides.
func (s *Service) Commands(ctx context.Context, bucket, scope string) (map[string]string, error) {
	text, err := store.ReadOrDefault(ctx, s.store, bucket, "config/"+scope+".txt")
	if err != nil {
		return nil, err
	}

	block := parseBlock(text)
	result := make(map[string]string)

	for _, key := range CommandKeys {
		if value := block[key]; value != "" {
			result[key] = value
		}
	}

	return result, nil
}

// Chain resolves the lookup order for the session: the caller's selected
// lexicon (personal scope by default), the chat's override and the common scope.
func (s *Service) Chain(ctx context.Context, sess session.Session) (session.Chain, error) {
	selections, err := s.readPairs(ctx, sess.BotID, selectionKey)
	if err != nil {
		return session.Chain{}, err
	}

	active := selections[sess.CallerID]
	if active == "" {
		active = s.cfg.Lexicon.PersonalPrefix + sess.CallerID
	}

	var override string
	if sess.ChatID != "" {
		switches, err := s.readPairs(ctx, sess.BotID, switchKey)
		if err != nil {
			return session.Chain{}, err
		}

		override = switches[sess.ChatID]
		if override == "" {
			override = sess.ChatID
		}
	}

	return session.Chain{
		Active:   active,
		Override: override,
		Common:   s.cfg.Lexicon.CommonScope,
	}, nil
}

// Expansion returns the literal substitution pairs for scopes carrying the
// expansion prefix. Missing or malformed maps yield no pairs.
func (s *Service) Expansion(ctx context.Context, bucket, scope string) [][2]string {
	if scope == "" || !strings.HasPrefix(scope, s.cfg.Lexicon.ExpansionPrefix) {
		return nil
	}

	text, err := s.store.Read(ctx, bucket, "expand/"+scope+".json")
	if err != nil {
		return nil
	}

	var mapping struct {
		Variable [][]string `json:"variable"`
	}
	if err = json.Unmarshal([]byte(text), &mapping); err != nil {
		slog.Warn("Malformed expansion map", "bucket", bucket, "scope", scope, "error", err)
		return nil
	}

	var pairs [][2]string
	for _, pair := range mapping.Variable {
		if len(pair) == 2 && pair[0] != "" {
			pairs = append(pairs, [2]string{pair[0], pair[1]})
		}
	}

	return pairs
}

func (s *Service) readPairs(ctx context.Context, bucket, key string) (map[string]string, error) {
	text, err := store.ReadOrDefault(ctx, s.store, bucket, key)
	if err != nil {
		return nil, err
	}

	return parsePairs(text), nil
}

func parsePairs(text string) map[string]string {
	result := make(map[string]string)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		result[key] = value
	}

	return result
}

func parseBlock(text string) map[string]string {
	start := strings.Index(text, blockMarker)
	if start < 0 {
		return map[string]string{}
	}

	body := text[start+len(blockMarker):]
	if end := strings.Index(body, blockMarker); end >= 0 {
		body = body[:end]
	}

	return parsePairs(body)
}
