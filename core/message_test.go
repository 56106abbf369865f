package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storychat/core"
)

func TestToWirePreservesOrderRoleContent(t *testing.T) {
	t.Parallel()

	history := []core.ChatMessage{
		{ID: "1", Role: core.MessageRoleSystem, Content: "opening beat", CreatedAt: time.Now()},
		{ID: "2", Role: core.MessageRoleUser, Content: "hello", CreatedAt: time.Now()},
		{ID: "3", Role: core.MessageRoleAssistant, Content: "reply", CreatedAt: time.Now()},
	}

	wire := core.ToWire(history)
	require.Len(t, wire, 3)
	require.Equal(t, "system", wire[0].Role)
	require.Equal(t, "user", wire[1].Role)
	require.Equal(t, "assistant", wire[2].Role)
	for i := range history {
		require.Equal(t, history[i].Content, wire[i].Content)
	}
}

func TestWireRoundTrip(t *testing.T) {
	t.Parallel()

	history := []core.ChatMessage{
		{Role: core.MessageRoleUser, Content: "Als Tanjiro sage ich: \"Hallo\""},
		{Role: core.MessageRoleAssistant, Content: "Er nickt."},
	}

	back := core.FromWire(core.ToWire(history))
	require.Len(t, back, len(history))
	for i := range history {
		require.Equal(t, history[i].Role, back[i].Role)
		require.Equal(t, history[i].Content, back[i].Content)
	}
}

func TestToWireEmptyHistory(t *testing.T) {
	t.Parallel()

	require.Empty(t, core.ToWire(nil))
	require.Empty(t, core.FromWire(nil))
}
