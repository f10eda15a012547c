package lexicon

import (
	"context"
	"log/slog"
	"strings"
)

// restoreCommand is a control word of chat clients and never matches.
const restoreCommand = "HUANYUAN"

type Match struct {
	Scope string
	// 1-based position of the entry in its scope
	EntryID    int
	EntryCount int
	Entry      *Entry
	// Captured variables, nil unless the keyword pattern matched
	Slots []string
}

// Match walks the scopes in order and returns the first usable entry, or nil.
// Within a scope every entry is tried in insertion order against, in turn,
// its variable pattern, exact equality and substring containment. Entries
// without responses are passed over. Admin-only entries are skipped for other
// callers and, having neither exact nor fuzzy mode, only match through their
// variable pattern.
func (s *Service) Match(ctx context.Context, bucket string, scopes []string, input string, admin bool) (*Match, error) {
	if input == "" || input == restoreCommand {
		return nil, nil
	}

	for _, scope := range scopes {
		entries, err := s.Entries(ctx, bucket, scope)
		if err != nil {
			return nil, err
		}

		for i, e := range entries {
			m := matchEntry(e, input, admin)
			if m == nil {
				continue
			}

			m.Scope = scope
			m.EntryID = i + 1
			m.EntryCount = len(entries)

			slog.Debug("Keyword matched",
				"bucket", bucket,
				"scope", scope,
				"keyword", e.Keyword,
				"variables", m.Slots != nil)

			return m, nil
		}
	}

	return nil, nil
}

func matchEntry(e *Entry, input string, admin bool) *Match {
	if e.Mode == ModeAdminOnly && !admin {
		return nil
	}

	if slots := e.pattern.match(input); slots != nil {
		if len(e.Responses) == 0 {
			return nil
		}
		return &Match{Entry: e, Slots: slots}
	}

	if e.Mode == ModeExact && e.Keyword == input {
		if len(e.Responses) == 0 {
			return nil
		}
		return &Match{Entry: e}
	}

	if e.Mode == ModeFuzzy && strings.Contains(input, e.Keyword) {
		if len(e.Responses) == 0 {
			return nil
		}
		return &Match{Entry: e}
	}

	return nil
}
