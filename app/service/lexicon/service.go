package lexicon

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"vankeyword/app/service/store"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
	"github.com/samber/oops"
	"golang.org/x/sync/singleflight"
)

var (
	ErrDuplicate = errors.New("keyword already exists")
	ErrNotFound  = errors.New("keyword not found")
)

type scopeKey struct {
	bucket string
	scope  string
}

func (k scopeKey) documentKey() string {
	return "lexicon/" + k.scope + ".json"
}

// scopeState holds one scope's entries. Readers take the current slice under
// mu and iterate it without locks since published slices are never modified.
// Writers serialize on writeMu across the whole load-modify-persist cycle.
type scopeState struct {
	writeMu sync.Mutex

	mu      sync.RWMutex
	entries []*Entry
}

func (st *scopeState) snapshot() []*Entry {
	st.mu.RLock()
	defer st.mu.RUnlock()

	return st.entries
}

func (st *scopeState) publish(entries []*Entry) {
	st.mu.Lock()
	st.entries = entries
	st.mu.Unlock()
}

// Service is the in-memory lexicon backed by one JSON document per scope.
type Service struct {
	store store.Store

	mu     sync.Mutex
	scopes map[scopeKey]*scopeState
	loads  singleflight.Group
}

func New(di *do.Injector) (*Service, error) {
	return NewService(do.MustInvoke[store.Store](di)), nil
}

func NewService(st store.Store) *Service {
	return &Service{
		store:  st,
		scopes: make(map[scopeKey]*scopeState),
	}
}

func (s *Service) state(ctx context.Context, key scopeKey) (*scopeState, error) {
	s.mu.Lock()
	st, ok := s.scopes[key]
	s.mu.Unlock()

	if ok {
		return st, nil
	}

	v, err, _ := s.loads.Do(key.bucket+"\x00"+key.scope, func() (any, error) {
		s.mu.Lock()
		st, ok := s.scopes[key]
		s.mu.Unlock()
		if ok {
			return st, nil
		}

		entries, err := s.load(ctx, key)
		if err != nil {
			return nil, err
		}

		st = &scopeState{entries: entries}

		s.mu.Lock()
		s.scopes[key] = st
		s.mu.Unlock()

		return st, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*scopeState), nil
}

func (s *Service) load(ctx context.Context, key scopeKey) ([]*Entry, error) {
	text, err := store.ReadOrDefault(ctx, s.store, key.bucket, key.documentKey())
	if err != nil {
		return nil, oops.In("lexicon").With("bucket", key.bucket, "scope", key.scope).Wrapf(err, "failed to load scope")
	}

	entries, err := decodeDocument(text)
	if err != nil {
		slog.Error("Malformed lexicon document, treating as empty",
			"bucket", key.bucket,
			"scope", key.scope,
			"error", err)
		return nil, nil
	}

	slog.Debug("Lexicon loaded", "bucket", key.bucket, "scope", key.scope, "entries", len(entries))

	return entries, nil
}

// mutate runs fn on the current entries and persists its result before
// publishing it, so a failed write leaves memory untouched.
func (s *Service) mutate(ctx context.Context, bucket, scope string, fn func([]*Entry) ([]*Entry, error)) error {
	key := scopeKey{bucket: bucket, scope: scope}

	st, err := s.state(ctx, key)
	if err != nil {
		return err
	}

	st.writeMu.Lock()
	defer st.writeMu.Unlock()

	updated, err := fn(st.snapshot())
	if err != nil {
		return err
	}

	text, err := encodeDocument(updated)
	if err != nil {
		return oops.In("lexicon").With("bucket", bucket, "scope", scope).Wrap(err)
	}

	if err = s.store.Write(ctx, bucket, key.documentKey(), text); err != nil {
		return oops.In("lexicon").With("bucket", bucket, "scope", scope).Wrapf(err, "failed to save scope")
	}

	st.publish(updated)

	return nil
}

func indexOf(entries []*Entry, keyword string) int {
	return pie.FindFirstUsing(entries, func(e *Entry) bool {
		return e.Keyword == keyword
	})
}

func (s *Service) Entries(ctx context.Context, bucket, scope string) ([]*Entry, error) {
	st, err := s.state(ctx, scopeKey{bucket: bucket, scope: scope})
	if err != nil {
		return nil, err
	}

	return st.snapshot(), nil
}

// Add appends a new entry with a single response. Existing keywords are
// rejected with ErrDuplicate and the scope is left as is.
func (s *Service) Add(ctx context.Context, bucket, scope, keyword, response string, mode Mode) error {
	err := s.mutate(ctx, bucket, scope, func(entries []*Entry) ([]*Entry, error) {
		if indexOf(entries, keyword) >= 0 {
			return nil, oops.In("lexicon").With("scope", scope, "keyword", keyword).Wrap(ErrDuplicate)
		}

		return append(slices.Clone(entries), newEntry(keyword, mode, []string{response})), nil
	})
	if err != nil {
		return err
	}

	slog.Info("Keyword added", "bucket", bucket, "scope", scope, "keyword", keyword, "mode", mode.String())

	return nil
}

func (s *Service) Remove(ctx context.Context, bucket, scope, keyword string) error {
	err := s.mutate(ctx, bucket, scope, func(entries []*Entry) ([]*Entry, error) {
		remaining := pie.Filter(entries, func(e *Entry) bool {
			return e.Keyword != keyword
		})
		if len(remaining) == len(entries) {
			return nil, oops.In("lexicon").With("scope", scope, "keyword", keyword).Wrap(ErrNotFound)
		}

		return remaining, nil
	})
	if err != nil {
		return err
	}

	slog.Info("Keyword removed", "bucket", bucket, "scope", scope, "keyword", keyword)

	return nil
}

// AddResponse appends a response variant to an existing keyword.
func (s *Service) AddResponse(ctx context.Context, bucket, scope, keyword, response string) error {
	err := s.mutate(ctx, bucket, scope, func(entries []*Entry) ([]*Entry, error) {
		index := indexOf(entries, keyword)
		if index < 0 {
			return nil, oops.In("lexicon").With("scope", scope, "keyword", keyword).Wrap(ErrNotFound)
		}

		entry := entries[index]
		responses := append(slices.Clone(entry.Responses), response)

		return cloneWith(entries, index, entry.withResponses(responses)), nil
	})
	if err != nil {
		return err
	}

	slog.Info("Response added", "bucket", bucket, "scope", scope, "keyword", keyword)

	return nil
}

// RemoveResponse drops the first variant equal to response. The entry stays
// even when no variants remain.
func (s *Service) RemoveResponse(ctx context.Context, bucket, scope, keyword, response string) error {
	err := s.mutate(ctx, bucket, scope, func(entries []*Entry) ([]*Entry, error) {
		index := indexOf(entries, keyword)
		if index < 0 {
			return nil, oops.In("lexicon").With("scope", scope, "keyword", keyword).Wrap(ErrNotFound)
		}

		entry := entries[index]

		at := slices.Index(entry.Responses, response)
		if at < 0 {
			return nil, oops.In("lexicon").With("scope", scope, "keyword", keyword).Wrap(ErrNotFound)
		}

		responses := slices.Delete(slices.Clone(entry.Responses), at, at+1)

		return cloneWith(entries, index, entry.withResponses(responses)), nil
	})
	if err != nil {
		return err
	}

	slog.Info("Response removed", "bucket", bucket, "scope", scope, "keyword", keyword)

	return nil
}

// List returns every entry with its 1-based id.
func (s *Service) List(ctx context.Context, bucket, scope string) ([]Listing, error) {
	entries, err := s.Entries(ctx, bucket, scope)
	if err != nil {
		return nil, err
	}

	result := make([]Listing, 0, len(entries))
	for i, e := range entries {
		result = append(result, Listing{
			ID:         i + 1,
			Keyword:    e.Keyword,
			Mode:       e.Mode,
			Replies:    e.Responses,
			ReplyCount: len(e.Responses),
		})
	}

	return result, nil
}

// Search returns entries whose keyword contains fragment, without replies.
func (s *Service) Search(ctx context.Context, bucket, scope, fragment string) ([]Listing, error) {
	all, err := s.List(ctx, bucket, scope)
	if err != nil {
		return nil, err
	}

	result := pie.Filter(all, func(l Listing) bool {
		return strings.Contains(l.Keyword, fragment)
	})

	return pie.Map(result, func(l Listing) Listing {
		l.Replies = nil
		return l
	}), nil
}

func (s *Service) Count(ctx context.Context, bucket, scope string) (keywords int, replies int, err error) {
	entries, err := s.Entries(ctx, bucket, scope)
	if err != nil {
		return 0, 0, err
	}

	for _, e := range entries {
		replies += len(e.Responses)
	}

	return len(entries), replies, nil
}
