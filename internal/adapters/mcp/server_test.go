package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/ussdgw"
	"github.com/aretw0/ussdgw/internal/logging"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *Server {
	t.Helper()
	gw, err := ussdgw.New()
	require.NoError(t, err)
	return New(gw, "test", logging.NewNop())
}

func toolRequest(name string, args map[string]any) mcplib.CallToolRequest {
	return mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Name: name, Arguments: args},
	}
}

func toolText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no TextContent found in tool result")
	return ""
}

func TestSendUSSD(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	res, err := s.handleSend(ctx, toolRequest("send_ussd", map[string]any{
		"session_id":   "agent-1",
		"phone_number": "+237600000000",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, toolText(t, res), "CON Welcome to PackND")

	out, ok := res.StructuredContent.(SendResult)
	require.True(t, ok)
	assert.Equal(t, "CON", out.Kind)
	assert.False(t, out.Terminal)

	res, err = s.handleSend(ctx, toolRequest("send_ussd", map[string]any{
		"session_id":   "agent-1",
		"phone_number": "+237600000000",
		"input":        "4",
	}))
	require.NoError(t, err)
	out = res.StructuredContent.(SendResult)
	assert.Equal(t, "END", out.Kind)
	assert.True(t, out.Terminal)
}

func TestSendUSSDMissingArguments(t *testing.T) {
	s := newServer(t)
	res, err := s.handleSend(context.Background(), toolRequest("send_ussd", map[string]any{"input": "1"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGetAutomaton(t *testing.T) {
	s := newServer(t)

	res, err := s.handleGetAutomaton(context.Background(), toolRequest("get_automaton", nil))
	require.NoError(t, err)

	var view automatonView
	require.NoError(t, json.Unmarshal([]byte(toolText(t, res)), &view))
	assert.Equal(t, len(view.States), view.Stats.TotalStates)
	assert.NotEmpty(t, view.Stats.InitialState)
}

func TestAutomatonResource(t *testing.T) {
	s := newServer(t)

	contents, err := s.handleAutomatonResource(context.Background(), mcplib.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcplib.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, automatonURI, text.URI)
	assert.Contains(t, text.Text, "totalStates")
}
