package domain

import "context"

// Channel is the interface every chat transport implements.
type Channel interface {
	// ID returns the channel identifier (e.g. "telegram", "irc").
	ID() string

	// Start connects and receives messages until ctx is done or Stop is called.
	Start(ctx context.Context) error

	// Stop stops receiving and disconnects.
	Stop(ctx context.Context) error

	// Send delivers an outbound message.
	Send(ctx context.Context, msg OutboundMessage) error

	// OnMessage registers the handler for inbound messages.
	OnMessage(handler func(msg InboundMessage))
}

// Identity is what a transport reports about the bot's own account.
type Identity struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
}

// Prober is implemented by channels that can answer a "who am I" probe.
type Prober interface {
	Probe(ctx context.Context) (Identity, error)
}
