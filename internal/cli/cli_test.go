package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/ussdgw/pkg/adapters/memory"
	"github.com/aretw0/ussdgw/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateHelpFlow(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("4\n\n:state\n:quit\n")

	err := Simulate(context.Background(), SimulateOptions{Quiet: true}, in, &out)
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "CON Welcome to PackND\n1. Send a package")
	assert.Contains(t, got, "END PackND sends and tracks packages")
	assert.Contains(t, got, "Session closed")
	// Enter after END dials a fresh session, so :state sees the main menu.
	assert.Contains(t, got, `at "MAIN_MENU"`)
}

func TestSimulateGraphAndEOF(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("1\n:graph\n")

	err := Simulate(context.Background(), SimulateOptions{Quiet: true}, in, &out)
	require.NoError(t, err, "EOF ends the simulator cleanly")
	assert.Contains(t, out.String(), "class ENTER_RECIPIENT_NAME current;")
}

func TestSimulateBadAutomaton(t *testing.T) {
	err := Simulate(context.Background(), SimulateOptions{AutomatonPath: "does-not-exist.yaml", Quiet: true}, strings.NewReader(""), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestSessionCommands(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	fresh := domain.NewSession("ATUid_1", "+237600000001", now.Add(-time.Minute))
	fresh.CurrentStateID = "MAIN_MENU"
	stale := domain.NewSession("ATUid_2", "+237600000002", now.Add(-time.Hour))
	stale.CurrentStateID = "ENTER_RECIPIENT_NAME"
	require.NoError(t, store.Save(ctx, fresh))
	require.NoError(t, store.Save(ctx, stale))

	var out bytes.Buffer
	require.NoError(t, ListSessions(ctx, store, &out, now, 10*time.Minute))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "ATUid_1")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(lines[1]), "false"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(lines[2]), "true"))

	out.Reset()
	require.NoError(t, InspectSession(ctx, store, "ATUid_2", &out))
	var s domain.Session
	require.NoError(t, json.Unmarshal(out.Bytes(), &s))
	assert.Equal(t, "ENTER_RECIPIENT_NAME", s.CurrentStateID)

	require.NoError(t, RemoveSession(ctx, store, "ATUid_2"))
	assert.ErrorIs(t, RemoveSession(ctx, store, "ATUid_2"), domain.ErrSessionNotFound)
}
