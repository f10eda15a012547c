// Package cooldown keeps per (caller, entry) expiry timestamps so an entry
// can be rate limited per caller.
package cooldown

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"
	"vankeyword/app/service/queue"
	"vankeyword/app/service/store"

	"github.com/samber/do"
	"github.com/samber/oops"
)

type ledgerKey struct {
	bucket string
	scope  string
}

func (k ledgerKey) documentKey() string {
	return "cooling/" + k.scope + ".txt"
}

// ledger is the structured in-memory form of one scope's cooling document.
// Records set before the document could be loaded are merged over it once it
// loads, so a write never drops records of other callers.
type ledger struct {
	mu      sync.Mutex
	loaded  bool
	dirty   bool
	records map[record]int64
}

type Service struct {
	store store.Store
	queue *queue.Service
	now   func() time.Time

	mu      sync.Mutex
	ledgers map[ledgerKey]*ledger
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[store.Store](di),
		do.MustInvoke[*queue.Service](di),
	), nil
}

// NewService creates the gate. With a nil queue every Set is persisted
// synchronously.
func NewService(st store.Store, q *queue.Service) *Service {
	return &Service{
		store:   st,
		queue:   q,
		now:     time.Now,
		ledgers: make(map[ledgerKey]*ledger),
	}
}

// WithClock replaces the time source, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) ledger(key ledgerKey) *ledger {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.ledgers[key]
	if !ok {
		l = &ledger{records: make(map[record]int64)}
		s.ledgers[key] = l
	}

	return l
}

// ensureLoaded must be called with l.mu held.
func (s *Service) ensureLoaded(ctx context.Context, key ledgerKey, l *ledger) error {
	if l.loaded {
		return nil
	}

	text, err := store.ReadOrDefault(ctx, s.store, key.bucket, key.documentKey())
	if err != nil {
		return oops.In("cooldown").With("bucket", key.bucket, "scope", key.scope).Wrapf(err, "failed to load ledger")
	}

	stored := parseLedger(text)
	maps.Copy(stored, l.records)

	l.records = stored
	l.loaded = true

	return nil
}

// Check returns the seconds left before caller may trigger entry again.
// ok is false when there is no record or it already expired. Load failures
// are logged and read as no record.
func (s *Service) Check(ctx context.Context, bucket, scope, caller string, entry int) (remaining int, ok bool) {
	key := ledgerKey{bucket: bucket, scope: scope}
	l := s.ledger(key)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := s.ensureLoaded(ctx, key, l); err != nil {
		slog.Error("Failed to read cooldown ledger", "error", err)
		return 0, false
	}

	expiry, found := l.records[record{caller: caller, entry: entry}]
	if !found {
		return 0, false
	}

	left := expiry - s.now().Unix()
	if left <= 0 {
		return 0, false
	}

	return int(left), true
}

// Set upserts the record of (caller, entry). Zero seconds means until the
// next local midnight. Expired records of the scope are pruned on the way.
func (s *Service) Set(ctx context.Context, bucket, scope, caller string, entry, seconds int) {
	key := ledgerKey{bucket: bucket, scope: scope}
	l := s.ledger(key)
	now := s.now()

	l.mu.Lock()

	if err := s.ensureLoaded(ctx, key, l); err != nil {
		slog.Warn("Cooldown ledger not loaded, keeping record in memory", "error", err)
	}

	l.records[record{caller: caller, entry: entry}] = Expiry(now, seconds).Unix()
	maps.DeleteFunc(l.records, func(_ record, expiry int64) bool {
		return expiry <= now.Unix()
	})
	l.dirty = true

	l.mu.Unlock()

	slog.Debug("Cooldown set",
		"bucket", bucket,
		"scope", scope,
		"caller", caller,
		"entry", entry,
		"seconds", seconds)

	if s.queue != nil && s.queue.Add(queue.Job{Bucket: bucket, Scope: scope}) {
		return
	}

	if err := s.Flush(ctx, bucket, scope); err != nil {
		slog.Error("Failed to persist cooldown ledger", "error", err)
	}
}

// Flush writes the ledger of scope back to the store if it changed.
func (s *Service) Flush(ctx context.Context, bucket, scope string) error {
	key := ledgerKey{bucket: bucket, scope: scope}
	l := s.ledger(key)

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.dirty {
		return nil
	}

	if err := s.ensureLoaded(ctx, key, l); err != nil {
		return err
	}

	if err := s.store.Write(ctx, bucket, key.documentKey(), formatLedger(l.records)); err != nil {
		return oops.In("cooldown").With("bucket", bucket, "scope", scope).Wrapf(err, "failed to save ledger")
	}

	l.dirty = false

	return nil
}

// FlushAll persists every changed ledger, used on shutdown.
func (s *Service) FlushAll(ctx context.Context) error {
	s.mu.Lock()
	keys := make([]ledgerKey, 0, len(s.ledgers))
	for key := range s.ledgers {
		keys = append(keys, key)
	}
	s.mu.Unlock()

	var firstErr error
	for _, key := range keys {
		if err := s.Flush(ctx, key.bucket, key.scope); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// Expiry computes when a cooldown of seconds set at now ends.
func Expiry(now time.Time, seconds int) time.Time {
	if seconds == 0 {
		y, m, d := now.Date()
		return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	}

	return now.Add(time.Duration(seconds) * time.Second)
}
