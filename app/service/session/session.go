// Package session carries the per-request identity and message context that
// flows through matching and template expansion.
package session

import "github.com/elliotchance/pie/v2"

type Session struct {
	// Bucket of every document touched by the request
	BotID    string
	CallerID string
	// Empty for private conversations
	ChatID string
	Admin  bool

	Event Event
}

// Event holds the optional inbound message fields available to templates.
// An empty field counts as absent.
type Event struct {
	UserID    string
	GroupID   string
	SelfID    string
	TargetID  string
	Nickname  string
	Card      string
	MessageID string
}

// Chain is the fixed lookup order of lexicon scopes for one request.
type Chain struct {
	Active   string
	Override string
	Common   string
}

// Scopes lists the chain in priority order without empty or repeated names.
func (c Chain) Scopes() []string {
	var result []string

	for _, scope := range []string{c.Active, c.Override, c.Common} {
		if scope != "" && !pie.Contains(result, scope) {
			result = append(result, scope)
		}
	}

	return result
}

// CooldownScope partitions cooldown ledgers per chat, or per active scope in
// private conversations.
func (s Session) CooldownScope(chain Chain) string {
	if s.ChatID != "" {
		return s.ChatID
	}

	return chain.Active
}
