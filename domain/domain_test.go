package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRoundTrip(t *testing.T) {
	t.Run("count update", func(t *testing.T) {
		in := NewCountUpdate("/lobby", 3).WithClientID("abc").(CountUpdate)

		data, err := json.Marshal(in)
		require.NoError(t, err)

		var out CountUpdate
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, in, out)
	})

	t.Run("rooms update", func(t *testing.T) {
		in := NewRoomsUpdate(map[string]int{"/lobby": 3, "/": 1}, 4)

		data, err := json.Marshal(in)
		require.NoError(t, err)

		var out RoomsUpdate
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, in, out)
	})

	t.Run("chat message", func(t *testing.T) {
		in := NewChatMessage(json.RawMessage(`{"text":"hi"}`)).WithClientID("abc").(ChatMessage)

		data, err := json.Marshal(in)
		require.NoError(t, err)

		var out ChatMessage
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, in, out)
	})
}

func TestWithClientIDCopies(t *testing.T) {
	base := NewCountUpdate("/lobby", 1)

	a := base.WithClientID("a").(CountUpdate)
	b := base.WithClientID("b").(CountUpdate)

	assert.Empty(t, base.ClientID)
	assert.Equal(t, "a", a.ClientID)
	assert.Equal(t, "b", b.ClientID)
}

func TestControlPayloadIsOpaque(t *testing.T) {
	var msg Control
	require.NoError(t, json.Unmarshal([]byte(`{"type":"message","payload":{"nested":[1,2,3]}}`), &msg))

	assert.Equal(t, ActionMessage, msg.Type)
	assert.JSONEq(t, `{"nested":[1,2,3]}`, string(msg.Payload))
}
