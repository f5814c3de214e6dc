package ussdgw_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/ussdgw"
	"github.com/aretw0/ussdgw/pkg/automaton"
	"github.com/aretw0/ussdgw/pkg/domain"
	"github.com/aretw0/ussdgw/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const typoDoc = `
automatonId: typo
initialStateId: ASK
states:
  - { stateId: ASK, displayMessage: "Name?", validationType: NMAE }
  - { stateId: DONE, stateType: FINAL, displayMessage: "Done" }
transitions:
  - { fromStateId: ASK, toStateId: DONE, trigger: "*", requiresValidation: true }
`

func TestNew_StrictRejectsUnknownTags(t *testing.T) {
	_, err := ussdgw.New(ussdgw.WithAutomaton([]byte(typoDoc)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown validationType "NMAE"`)

	gw, err := ussdgw.New(ussdgw.WithAutomaton([]byte(typoDoc)), ussdgw.WithStrictValidation(false))
	require.NoError(t, err)

	ctx := context.Background()
	gw.Handle(ctx, domain.Request{SessionID: "s1", Phone: "+237600000000"})
	d := gw.Handle(ctx, domain.Request{SessionID: "s1", Phone: "+237600000000", Input: "1234"})
	assert.Equal(t, domain.EndWith("Done"), d, "unknown tags accept any input")
}

const hookDoc = `
automatonId: hooks
initialStateId: ASK
states:
  - { stateId: ASK, displayMessage: "Go?", menuOptions: [{ optionKey: "1", optionText: Yes }] }
  - { stateId: DONE, stateType: FINAL, displayMessage: "{{.greeting}}", businessServiceMethod: greet }
transitions:
  - { fromStateId: ASK, toStateId: DONE, trigger: "1" }
`

func TestNew_CustomHooks(t *testing.T) {
	_, err := ussdgw.New(ussdgw.WithAutomaton([]byte(hookDoc)))
	require.Error(t, err, "greet is not registered")

	reg := registry.NewRegistry()
	reg.Register("greet", func(ctx context.Context, answers map[string]string) (map[string]string, error) {
		return map[string]string{"greeting": "Hello " + answers[domain.KeyPhone]}, nil
	})
	gw, err := ussdgw.New(ussdgw.WithAutomaton([]byte(hookDoc)), ussdgw.WithHooks(reg))
	require.NoError(t, err)
	assert.True(t, gw.Hooks().Has("createShipment"))

	ctx := context.Background()
	gw.Handle(ctx, domain.Request{SessionID: "s1", Phone: "+237600000000"})
	d := gw.Handle(ctx, domain.Request{SessionID: "s1", Phone: "+237600000000", Input: "1"})
	assert.Equal(t, domain.EndWith("Hello +237600000000"), d)
}

func TestGateway_ReloadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "automaton.yaml")
	require.NoError(t, os.WriteFile(path, []byte(hookDoc), 0o644))

	reg := registry.NewRegistry()
	reg.Register("greet", func(ctx context.Context, answers map[string]string) (map[string]string, error) {
		return map[string]string{"greeting": "Hi"}, nil
	})
	gw, err := ussdgw.New(ussdgw.WithAutomatonFile(path), ussdgw.WithHooks(reg))
	require.NoError(t, err)
	assert.Equal(t, "hooks", gw.Graph().ID)

	require.NoError(t, os.WriteFile(path, []byte(typoDoc), 0o644))
	_, err = gw.Reload()
	require.Error(t, err)
	assert.Equal(t, "hooks", gw.Graph().ID, "an invalid file keeps the current graph")

	fixed := []byte(`
automatonId: fixed
initialStateId: ASK
states:
  - { stateId: ASK, displayMessage: "Name?", validationType: NAME }
  - { stateId: DONE, stateType: FINAL, displayMessage: "Done" }
transitions:
  - { fromStateId: ASK, toStateId: DONE, trigger: "*", requiresValidation: true }
`)
	require.NoError(t, os.WriteFile(path, fixed, 0o644))
	g, err := gw.Reload()
	require.NoError(t, err)
	assert.Equal(t, "fixed", g.ID)
	assert.Equal(t, "fixed", gw.Graph().ID)
}

func TestGateway_EmbeddedCannotReload(t *testing.T) {
	gw, err := ussdgw.New()
	require.NoError(t, err)
	_, err = gw.Reload()
	assert.Error(t, err)
}

func TestGateway_WatchReportsReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "automaton.yaml")
	require.NoError(t, os.WriteFile(path, []byte(hookDoc), 0o644))

	reg := registry.NewRegistry()
	reg.Register("greet", func(ctx context.Context, answers map[string]string) (map[string]string, error) {
		return map[string]string{"greeting": "Hi"}, nil
	})
	gw, err := ussdgw.New(ussdgw.WithAutomatonFile(path), ussdgw.WithHooks(reg))
	require.NoError(t, err)

	var mu sync.Mutex
	var outcomes []error
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- gw.Watch(ctx,
			automaton.WithDebounce(10*time.Millisecond),
			automaton.OnReload(func(_ *automaton.Graph, err error) {
				mu.Lock()
				outcomes = append(outcomes, err)
				mu.Unlock()
			}),
		)
	}()

	fixed := []byte(`
automatonId: watched
initialStateId: ASK
states:
  - { stateId: ASK, displayMessage: "Name?", validationType: NAME }
  - { stateId: DONE, stateType: FINAL, displayMessage: "Done" }
transitions:
  - { fromStateId: ASK, toStateId: DONE, trigger: "*", requiresValidation: true }
`)
	// Rewrite until the watcher, which starts asynchronously, has seen it.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, fixed, 0o644)
		return gw.Graph().ID == "watched"
	}, 5*time.Second, 100*time.Millisecond)

	mu.Lock()
	require.NotEmpty(t, outcomes)
	assert.NoError(t, outcomes[len(outcomes)-1])
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
