// Package decoder expands response templates into outgoing messages.
package decoder

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"
	"vankeyword/app/service/cooldown"
	"vankeyword/app/service/session"
	"vankeyword/app/service/settings"

	"github.com/samber/do"
)

const coolingPlaceholder = "[冷却]"

var (
	slotSafeRe     = regexp.MustCompile(`[\p{L}\p{N}_/.:?=&-]+`)
	clauseRe       = regexp.MustCompile(`\(-\d+-\)`)
	cooldownSetRe  = regexp.MustCompile(`\((\d+)~\)`)
	randomRangeRe  = regexp.MustCompile(`\((\d+)-(\d+)\)`)
	arithmeticRe   = regexp.MustCompile(`\(\+((?:[^()]+|\((?:[^()]+|\([^()]*\))*\))*)\)`)
	conditionRe    = regexp.MustCompile(`\{(.*?)([><=])(.*?)\}`)
	numericLiteral = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
)

var escapes = [][2]string{
	{`\n`, "\n"},
	{`\/`, "/"},
	{`\t`, "\t"},
	{`\r`, "\r"},
}

// Replies resolves the configured reply texts of a scope.
type Replies interface {
	Reply(ctx context.Context, bucket, scope, key string) string
}

// Gate is the cooldown ledger consulted and updated during decoding.
type Gate interface {
	Check(ctx context.Context, bucket, scope, caller string, entry int) (int, bool)
	Set(ctx context.Context, bucket, scope, caller string, entry, seconds int)
}

// Request describes one template expansion.
type Request struct {
	Template string
	// Slot form: Slots[0] replaces Template and Slots[1..5] fill [n.1]..[n.5]
	Slots   []string
	Session session.Session
	// Active lexicon of the caller
	Scope         string
	CooldownScope string
	// 1-based id of the matched entry, 0 when unknown
	EntryID    int
	EntryCount int
	Cooldown   bool
}

type Service struct {
	replies Replies
	gate    Gate
	now     func() time.Time
	int64N  func(n int64) int64
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*settings.Service](di),
		do.MustInvoke[*cooldown.Service](di),
	), nil
}

func NewService(replies Replies, gate Gate) *Service {
	return &Service{
		replies: replies,
		gate:    gate,
		now:     time.Now,
		int64N:  rand.Int64N,
	}
}

// WithClock replaces the time source, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithRand replaces the random source, used by tests.
func (s *Service) WithRand(int64N func(n int64) int64) *Service {
	s.int64N = int64N
	return s
}

// Decode runs the expansion pipeline. It never fails: malformed directives are
// left in place and storage problems are logged.
func (s *Service) Decode(ctx context.Context, req Request) Result {
	sess := req.Session
	bucket := sess.BotID
	now := s.now()

	if req.Cooldown && req.EntryID > 0 {
		if remaining, ok := s.gate.Check(ctx, bucket, req.CooldownScope, sess.CallerID, req.EntryID); ok {
			reply := s.replies.Reply(ctx, bucket, req.Scope, settings.KeyCooling)

			slog.Info("Entry is cooling down",
				"bucket", bucket,
				"caller", sess.CallerID,
				"entry", req.EntryID,
				"remaining", remaining)

			return Result{
				Type:    ResultText,
				Content: strings.ReplaceAll(reply, coolingPlaceholder, strconv.Itoa(remaining)),
			}
		}
	}

	text := req.Template
	if len(req.Slots) > 0 {
		text = expandSlots(req.Slots)
	}

	for _, e := range escapes {
		text = strings.ReplaceAll(text, e[0], e[1])
	}

	if clauseRe.MatchString(text) {
		return Result{Type: ResultClause, Content: text}
	}

	text = expandContext(text, sess.Event)
	text = expandMeta(text, req)
	text = s.applyCooldown(ctx, text, req)
	text = s.expandRandom(text)
	text = expandTime(text, now)
	text = expandArithmetic(text)

	text, ok := evaluateCondition(text)
	if !ok {
		return Result{
			Type:    ResultText,
			Content: s.replies.Reply(ctx, bucket, req.Scope, settings.KeyConditionFailed),
		}
	}

	return shape(segment(text))
}

func expandSlots(slots []string) string {
	text := slots[0]
	limit := min(len(slots), 6)

	for i := 1; i < limit; i++ {
		text = strings.ReplaceAll(text, fmt.Sprintf("[n.%d]", i), slots[i])
	}

	for i := 1; i < limit; i++ {
		safe := safeVariant(slots[i])
		if i == 5 {
			safe = quote(safe)
		}
		text = strings.ReplaceAll(text, fmt.Sprintf("[n.%d.t]", i), safe)
	}

	return text
}

// safeVariant keeps the first run of URL-safe characters after the first dot,
// or the whole value when there is none.
func safeVariant(value string) string {
	_, rest, ok := strings.Cut(value, ".")
	if !ok || rest == "" {
		return value
	}

	if found := slotSafeRe.FindString(rest); found != "" {
		return found
	}

	return value
}

// quote percent-encodes everything except unreserved characters and '/'.
func quote(value string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	for i := 0; i < len(value); i++ {
		c := value[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&15])
	}

	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	default:
		return strings.IndexByte("_.-~/", c) >= 0
	}
}

func expandContext(text string, ev session.Event) string {
	card := ev.Card
	if card == "" {
		card = ev.Nickname
	}

	markers := []struct {
		value   string
		aliases []string
	}{
		{ev.GroupID, []string{"[group]", "[群号]"}},
		{ev.UserID, []string{"[qq]", "[QQ号]"}},
		{ev.TargetID, []string{"[qq2]", "[目标QQ]"}},
		{ev.SelfID, []string{"[ai]", "[AI号]"}},
		{ev.Nickname, []string{"[name]", "[QQ名]"}},
		{card, []string{"[card]", "[群昵称]"}},
		{ev.MessageID, []string{"[id]", "[消息id]"}},
	}

	for _, m := range markers {
		if m.value == "" {
			continue
		}
		for _, alias := range m.aliases {
			text = strings.ReplaceAll(text, alias, m.value)
		}
	}

	return text
}

func expandMeta(text string, req Request) string {
	return strings.NewReplacer(
		"[词条id]", strconv.Itoa(req.EntryID),
		"[entry_id]", strconv.Itoa(req.EntryID),
		"[词汇量]", strconv.Itoa(req.EntryCount+1),
		"[entry_count]", strconv.Itoa(req.EntryCount+1),
		"[当前词库]", req.Scope,
		"[lexicon]", req.Scope,
	).Replace(text)
}

// applyCooldown records the first (N~) directive and strips all of them.
func (s *Service) applyCooldown(ctx context.Context, text string, req Request) string {
	m := cooldownSetRe.FindStringSubmatch(text)
	if m == nil {
		return text
	}

	seconds, err := strconv.Atoi(m[1])
	switch {
	case err != nil:
		slog.Warn("Cooldown directive out of range", "directive", m[0])
	case req.EntryID <= 0 || req.Session.CallerID == "":
		slog.Debug("Cooldown directive without entry or caller", "directive", m[0])
	default:
		s.gate.Set(ctx, req.Session.BotID, req.CooldownScope, req.Session.CallerID, req.EntryID, seconds)
	}

	return cooldownSetRe.ReplaceAllString(text, "")
}

// expandRandom draws an independent value for every (A-B) occurrence.
func (s *Service) expandRandom(text string) string {
	return randomRangeRe.ReplaceAllStringFunc(text, func(match string) string {
		m := randomRangeRe.FindStringSubmatch(match)

		low, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return match
		}
		high, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil || low > high || high-low == 1<<63-1 {
			return match
		}

		return strconv.FormatInt(low+s.int64N(high-low+1), 10)
	})
}

func expandTime(text string, now time.Time) string {
	return strings.NewReplacer(
		"(Y)", strconv.Itoa(now.Year()),
		"(M)", strconv.Itoa(int(now.Month())),
		"(D)", strconv.Itoa(now.Day()),
		"(h)", strconv.Itoa(now.Hour()),
		"(m)", strconv.Itoa(now.Minute()),
		"(s)", strconv.Itoa(now.Second()),
	).Replace(text)
}

func expandArithmetic(text string) string {
	return arithmeticRe.ReplaceAllStringFunc(text, func(match string) string {
		expr := arithmeticRe.FindStringSubmatch(match)[1]

		value, err := evaluate(expr)
		if err != nil {
			slog.Debug("Arithmetic directive left unexpanded", "expr", expr, "error", err)
			return match
		}

		return formatNumber(value)
	})
}

// evaluateCondition processes the first {A?B} directive. It reports false
// when the condition does not hold.
func evaluateCondition(text string) (string, bool) {
	loc := conditionRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return text, true
	}

	a := strings.TrimSpace(text[loc[2]:loc[3]])
	op := text[loc[4]:loc[5]]
	b := strings.TrimSpace(text[loc[6]:loc[7]])

	if !compare(a, op, b) {
		return "", false
	}

	return text[:loc[0]] + text[loc[1]:], true
}

func compare(a, op, b string) bool {
	if numericLiteral.MatchString(a) && numericLiteral.MatchString(b) {
		x, errA := strconv.ParseFloat(a, 64)
		y, errB := strconv.ParseFloat(b, 64)
		if errA == nil && errB == nil {
			switch op {
			case ">":
				return x > y
			case "<":
				return x < y
			default:
				return x == y
			}
		}
	}

	return op == "=" && a == b
}
