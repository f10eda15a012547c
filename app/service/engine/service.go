package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"vankeyword/app/config"
	"vankeyword/app/service/admin"
	"vankeyword/app/service/cooldown"
	"vankeyword/app/service/cqcode"
	"vankeyword/app/service/decoder"
	"vankeyword/app/service/lexicon"
	"vankeyword/app/service/queue"
	"vankeyword/app/service/session"
	"vankeyword/app/service/settings"

	"github.com/samber/do"
	"github.com/samber/oops"
)

// ListLimit caps the number of items returned by List.
const ListLimit = 100

var ErrValidation = errors.New("validation failed")

var fullwidth = strings.NewReplacer(
	"【", "[", "】", "]",
	"（", "(", "）", ")",
	"｛", "{", "｝", "}",
	"：", ":",
)

type Service struct {
	cfg         *config.Config
	settingsSvc *settings.Service
	lexiconSvc  *lexicon.Service
	selector    *lexicon.Selector
	decoderSvc  *decoder.Service
	cooldownSvc *cooldown.Service
	adminSvc    *admin.Service
	queueSvc    *queue.Service
}

func New(di *do.Injector) (*Service, error) {
	settingsSvc := do.MustInvoke[*settings.Service](di)

	return &Service{
		cfg:         do.MustInvoke[*config.Config](di),
		settingsSvc: settingsSvc,
		lexiconSvc:  do.MustInvoke[*lexicon.Service](di),
		selector:    lexicon.NewSelector(settingsSvc),
		decoderSvc:  do.MustInvoke[*decoder.Service](di),
		cooldownSvc: do.MustInvoke[*cooldown.Service](di),
		adminSvc:    do.MustInvoke[*admin.Service](di),
		queueSvc:    do.MustInvoke[*queue.Service](di),
	}, nil
}

// Run persists cooldown ledgers queued by Set until ctx is done, then flushes
// whatever is still pending.
func (s *Service) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.flushAll()
			return
		case job, ok := <-s.queueSvc.Channel():
			if !ok {
				s.flushAll()
				return
			}

			start := time.Now()
			if err := s.cooldownSvc.Flush(ctx, job.Bucket, job.Scope); err != nil {
				slog.Error("Failed to flush cooldown ledger", "error", err)
				continue
			}

			slog.Debug("Flushed cooldown ledger",
				"bucket", job.Bucket,
				"scope", job.Scope,
				"duration", time.Since(start))
		}
	}
}

func (s *Service) flushAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.cooldownSvc.FlushAll(ctx); err != nil {
		slog.Error("Failed to flush cooldown ledgers on shutdown", "error", err)
	}
}

// prepare validates the identity of the request and resolves its scope chain.
func (s *Service) prepare(ctx context.Context, sess session.Session) (session.Session, session.Chain, error) {
	if sess.BotID == "" || sess.CallerID == "" {
		return sess, session.Chain{}, oops.In("engine").Wrapf(ErrValidation, "bot id and caller id are required")
	}

	sess.Admin = sess.Admin || s.adminSvc.IsAdmin(sess.CallerID)

	ev := &sess.Event
	if ev.UserID == "" {
		ev.UserID = sess.CallerID
	}
	if ev.GroupID == "" {
		ev.GroupID = sess.ChatID
	}
	if ev.SelfID == "" {
		ev.SelfID = sess.BotID
	}

	chain, err := s.settingsSvc.Chain(ctx, sess)
	if err != nil {
		return sess, session.Chain{}, oops.In("engine").With("bot", sess.BotID).Wrapf(err, "failed to resolve scopes")
	}

	return sess, chain, nil
}

func (s *Service) normalize(text string) string {
	if !s.cfg.Lexicon.NormalizeFullwidth {
		return text
	}

	return fullwidth.Replace(text)
}

func required(fields ...string) error {
	for i := 0; i < len(fields); i += 2 {
		if fields[i+1] == "" {
			return oops.In("engine").Wrapf(ErrValidation, "%s is required", fields[i])
		}
	}

	return nil
}

// Transcode rewrites CQ codes of an inbound message into bracket tokens.
func (s *Service) Transcode(text string) string {
	return cqcode.Transcode(text)
}
