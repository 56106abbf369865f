package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"storychat/protocol"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	t.Parallel()

	data, err := protocol.Marshal(protocol.MsgSendMessage, protocol.SendMessagePayload{
		SessionID: "s-1",
		Text:      "Ich greife an",
		IsAction:  true,
	})
	require.NoError(t, err)

	msgType, raw, err := protocol.Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, protocol.MsgSendMessage, msgType)

	payload, err := protocol.UnmarshalPayload[protocol.SendMessagePayload](raw)
	require.NoError(t, err)
	require.Equal(t, "s-1", payload.SessionID)
	require.Equal(t, "Ich greife an", payload.Text)
	require.True(t, payload.IsAction)
}

func TestMarshalNilPayload(t *testing.T) {
	t.Parallel()

	data, err := protocol.Marshal(protocol.MsgStopSpeech, nil)
	require.NoError(t, err)

	msgType, raw, err := protocol.Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, protocol.MsgStopSpeech, msgType)
	require.Empty(t, raw)
}

func TestUnmarshalMissingType(t *testing.T) {
	t.Parallel()

	_, _, err := protocol.Unmarshal([]byte(`{"payload":{}}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing type")
}

func TestUnmarshalMalformedEnvelope(t *testing.T) {
	t.Parallel()

	_, _, err := protocol.Unmarshal([]byte(`{not json`))
	require.Error(t, err)
}
