package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationKey(t *testing.T) {
	msg := InboundMessage{ChannelID: "telegram", ChatID: "424242", From: "alice"}
	key := KeyFor(msg)

	assert.Equal(t, ConversationKey{ChannelID: "telegram", ChatID: "424242"}, key)
	assert.Equal(t, "telegram:424242", key.String())
	assert.NotEqual(t, key, KeyFor(InboundMessage{ChannelID: "irc", ChatID: "424242"}))
}

func TestUserDisplayName(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{"full name", User{Username: "alice", FirstName: "Alice", LastName: "Karimova"}, "Alice Karimova"},
		{"first only", User{Username: "bob", FirstName: "Bob"}, "Bob"},
		{"no names", User{Username: "carol"}, "carol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.DisplayName())
		})
	}
}

func TestOutboundMessageJSON_OmitsMarkdown(t *testing.T) {
	data, err := json.Marshal(OutboundMessage{ChannelID: "telegram", To: "1", Body: "hi"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "markdown")
}
