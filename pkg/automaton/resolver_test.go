package automaton_test

import (
	"testing"
	"time"

	"github.com/aretw0/ussdgw/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const routing = `
initialStateId: MENU
states:
  - { stateId: MENU, stateType: INITIAL, displayMessage: menu }
  - { stateId: LOW, displayMessage: low }
  - { stateId: HIGH, displayMessage: high }
  - { stateId: VIP, displayMessage: vip }
  - { stateId: ANY, displayMessage: any }
  - { stateId: RETRY, displayMessage: retry }
  - { stateId: AUTO, displayMessage: auto }
  - { stateId: NEXT, displayMessage: next }
  - { stateId: OOPS, displayMessage: oops }
transitions:
  - { fromStateId: MENU, toStateId: LOW, trigger: "1", priority: 1 }
  - { fromStateId: MENU, toStateId: HIGH, trigger: "1", priority: 10 }
  - { fromStateId: MENU, toStateId: VIP, trigger: "2", priority: 20, guardConditions: ["has:vip"] }
  - { fromStateId: MENU, toStateId: ANY, trigger: "2", priority: 0 }
  - { fromStateId: MENU, toStateId: RETRY, trigger: "*", isFallbackTransition: true }
  - { fromStateId: MENU, toStateId: OOPS, isErrorTransition: true }
  - { fromStateId: MENU, toStateId: AUTO, trigger: "auto" }
  - { fromStateId: AUTO, toStateId: NEXT, trigger: "" }
`

func TestResolve(t *testing.T) {
	g := mustLoad(t, routing)
	sess := domain.NewSession("s", "+237600000000", time.Now())

	tests := []struct {
		name  string
		state string
		input string
		vip   bool
		want  string
	}{
		{"higher priority wins", "MENU", "1", false, "HIGH"},
		{"guard skips candidate", "MENU", "2", false, "ANY"},
		{"guard admits candidate", "MENU", "2", true, "VIP"},
		{"case-insensitive trimmed", "MENU", "  AUTO ", false, "AUTO"},
		{"fallback when nothing matches", "MENU", "9", false, "RETRY"},
		{"fallback on empty input", "MENU", "", false, "RETRY"},
		{"epsilon on empty input", "AUTO", "", false, "NEXT"},
		{"epsilon on any input", "AUTO", "whatever", false, "NEXT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sess.Clone()
			if tt.vip {
				s.Answers["vip"] = "yes"
			}
			tr, err := g.Resolve(tt.state, tt.input, s)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tr.To)
			assert.False(t, tr.Error, "error transitions are never resolved")
		})
	}
}

func TestResolve_NoMatch(t *testing.T) {
	g := mustLoad(t, minimal)
	_, err := g.Resolve("A", "7", nil)
	assert.ErrorIs(t, err, domain.ErrNoMatchingTransition)

	_, err = g.Resolve("NOPE", "1", nil)
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
}

func TestResolve_Deterministic(t *testing.T) {
	g := mustLoad(t, routing)
	sess := domain.NewSession("s", "", time.Now())
	first, err := g.Resolve("MENU", "1", sess)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		tr, err := g.Resolve("MENU", "1", sess)
		require.NoError(t, err)
		assert.Same(t, first, tr)
	}
}
