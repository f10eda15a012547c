package lexicon

import (
	"context"
	"math/rand/v2"
	"strings"
)

// Expander supplies literal substitution pairs for a scope.
type Expander interface {
	Expansion(ctx context.Context, bucket, scope string) [][2]string
}

// Selector picks one response variant of a matched entry.
type Selector struct {
	expander Expander
	intN     func(n int) int
}

func NewSelector(expander Expander) *Selector {
	return &Selector{
		expander: expander,
		intN:     rand.IntN,
	}
}

// WithRand replaces the random source, used by tests.
func (s *Selector) WithRand(intN func(n int) int) *Selector {
	s.intN = intN
	return s
}

// Pick chooses a response uniformly and applies the expansion map of
// expansionScope when it has one. Entries without responses yield "".
func (s *Selector) Pick(ctx context.Context, bucket, expansionScope string, e *Entry) string {
	if len(e.Responses) == 0 {
		return ""
	}

	response := e.Responses[s.intN(len(e.Responses))]

	if s.expander == nil {
		return response
	}

	for _, pair := range s.expander.Expansion(ctx, bucket, expansionScope) {
		response = strings.ReplaceAll(response, pair[0], pair[1])
	}

	return response
}
