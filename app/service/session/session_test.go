package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChainScopes(t *testing.T) {
	assert.Equal(t, []string{"M_1", "E_fun", "common"}, Chain{Active: "M_1", Override: "E_fun", Common: "common"}.Scopes())
	assert.Equal(t, []string{"M_1", "common"}, Chain{Active: "M_1", Common: "common"}.Scopes())
	assert.Equal(t, []string{"common"}, Chain{Active: "common", Override: "common", Common: "common"}.Scopes())
	assert.Empty(t, Chain{}.Scopes())
}

func TestCooldownScope(t *testing.T) {
	chain := Chain{Active: "M_1", Common: "common"}

	assert.Equal(t, "555", Session{ChatID: "555"}.CooldownScope(chain))
	assert.Equal(t, "M_1", Session{}.CooldownScope(chain))
}
