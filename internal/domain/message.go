package domain

import "time"

// InboundMessage is a text message received from a channel.
type InboundMessage struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channelId"`
	From      string    `json:"from"`
	FromName  string    `json:"fromName,omitempty"`
	ChatID    string    `json:"chatId"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
	// Hangup marks the end of the conversation: the peer disconnected or
	// can no longer be identified by ChatID. Body is empty.
	Hangup    bool      `json:"hangup,omitempty"`
}

// OutboundMessage is a reply to be sent via a channel.
type OutboundMessage struct {
	ChannelID string `json:"channelId"`
	To        string `json:"to"`
	Body      string `json:"body"`
	Markdown  bool   `json:"markdown,omitempty"`
}

// ConversationKey identifies one chat thread with one end user.
type ConversationKey struct {
	ChannelID string
	ChatID    string
}

// String returns the canonical "channel:chat" form.
func (k ConversationKey) String() string {
	return k.ChannelID + ":" + k.ChatID
}

// KeyFor returns the conversation key of an inbound message.
func KeyFor(msg InboundMessage) ConversationKey {
	return ConversationKey{ChannelID: msg.ChannelID, ChatID: msg.ChatID}
}
