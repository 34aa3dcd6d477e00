// Package irc implements an IRC transport using the girc library.
// Only private messages to the bot's nick are served. The sender's full
// nick!user@host mask is the chat ID, so a session never passes to whoever
// picks up a nick later.
package irc

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lrstanley/girc"
	"github.com/soyeahso/salesbot/internal/config"
	"github.com/soyeahso/salesbot/internal/domain"
	"github.com/soyeahso/salesbot/internal/logging"
)

// ChannelID is the channel identifier used in conversation keys.
const ChannelID = "irc"

// maxLineLen keeps PRIVMSG lines well inside the 512-byte protocol limit.
const maxLineLen = 400

var errNotConnected = errors.New("irc: not connected")

// Channel implements domain.Channel for IRC.
type Channel struct {
	cfg config.IRCConfig
	log *logging.Logger

	mu      sync.RWMutex
	client  *girc.Client
	handler func(msg domain.InboundMessage)
}

// New creates an IRC channel from configuration.
func New(cfg config.IRCConfig, log *logging.Logger) *Channel {
	return &Channel{
		cfg: cfg,
		log: log.Sub("irc").With("server", cfg.Server),
	}
}

func (c *Channel) ID() string { return ChannelID }

func (c *Channel) OnMessage(handler func(msg domain.InboundMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

func (c *Channel) port() int {
	if c.cfg.Port != 0 {
		return c.cfg.Port
	}
	if c.cfg.UseTLS {
		return 6697
	}
	return 6667
}

func (c *Channel) gircConfig() girc.Config {
	gc := girc.Config{
		Server:  c.cfg.Server,
		Port:    c.port(),
		Nick:    c.cfg.Nick,
		User:    c.cfg.Nick,
		Name:    "Sales Bot",
		SSL:     c.cfg.UseTLS,
		Version: "salesbot",
	}
	if c.cfg.UseTLS {
		gc.TLSConfig = &tls.Config{ServerName: c.cfg.Server}
	}
	if c.cfg.SASL && c.cfg.Password != "" {
		gc.SASL = &girc.SASLPlain{User: c.cfg.Nick, Pass: c.cfg.Password}
	} else if c.cfg.Password != "" {
		gc.ServerPass = c.cfg.Password
	}
	return gc
}

// Start connects to the IRC server and processes messages until the
// connection drops or ctx is cancelled.
func (c *Channel) Start(ctx context.Context) error {
	client := girc.New(c.gircConfig())
	client.Handlers.Add(girc.CONNECTED, c.onConnected)
	client.Handlers.Add(girc.PRIVMSG, c.onPrivmsg)
	client.Handlers.Add(girc.NICK, c.onGone)
	client.Handlers.Add(girc.QUIT, c.onGone)
	client.Handlers.Add(girc.DISCONNECTED, c.onDisconnected)

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()

	c.log.Info().
		Str("server", c.cfg.Server).
		Int("port", c.port()).
		Str("nick", c.cfg.Nick).
		Bool("tls", c.cfg.UseTLS).
		Msg("connecting to IRC")

	errCh := make(chan error, 1)
	go func() {
		errCh <- client.Connect()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("irc connect: %w", err)
		}
		return nil
	case <-ctx.Done():
		client.Close()
		return ctx.Err()
	}
}

// Stop gracefully disconnects from the IRC server.
func (c *Channel) Stop(_ context.Context) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client != nil && client.IsConnected() {
		c.log.Info().Msg("disconnecting from IRC")
		client.Quit("shutting down")
	}
	return nil
}

// Probe reports the bot's current nick when connected.
func (c *Channel) Probe(_ context.Context) (domain.Identity, error) {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil || !client.IsConnected() {
		return domain.Identity{}, errNotConnected
	}
	return domain.Identity{Username: client.GetNick()}, nil
}

// Send delivers a message to a user, one PRIVMSG per line. msg.To may be a
// bare nick or a nick!user@host mask.
func (c *Channel) Send(_ context.Context, msg domain.OutboundMessage) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil || !client.IsConnected() {
		return errNotConnected
	}
	if msg.To == "" {
		return fmt.Errorf("irc: no target specified")
	}

	body := msg.Body
	if msg.Markdown {
		body = stripMarkdown(body)
	}

	nick := nickOf(msg.To)
	lines := splitMessage(body, maxLineLen)
	for _, line := range lines {
		client.Cmd.Message(nick, line)
	}

	c.log.Debug().
		Str("to", nick).
		Int("lines", len(lines)).
		Msg("sent IRC message")
	return nil
}

func (c *Channel) onConnected(client *girc.Client, _ girc.Event) {
	c.log.Info().Str("nick", client.GetNick()).Msg("connected to IRC")
}

func (c *Channel) onDisconnected(_ *girc.Client, _ girc.Event) {
	c.log.Warn().Msg("disconnected from IRC")
}

func (c *Channel) onPrivmsg(client *girc.Client, e girc.Event) {
	c.handlePrivmsg(client.GetNick(), e)
}

func (c *Channel) handlePrivmsg(self string, e girc.Event) {
	if e.Source == nil || e.IsFromChannel() {
		return
	}
	if strings.EqualFold(e.Source.Name, self) {
		return
	}
	body := e.Last()
	if e.IsAction() {
		body = e.StripAction()
	}
	c.deliver(domain.InboundMessage{
		From:     e.Source.String(),
		FromName: e.Source.Name,
		ChatID:   e.Source.String(),
		Body:     body,
	})
}

// onGone ends the conversation of a peer that quit or changed nick. Servers
// only report this for peers sharing a channel with the bot.
func (c *Channel) onGone(_ *girc.Client, e girc.Event) {
	c.handleGone(e)
}

func (c *Channel) handleGone(e girc.Event) {
	if e.Source == nil {
		return
	}
	c.log.Debug().
		Str("mask", e.Source.String()).
		Str("command", e.Command).
		Msg("peer gone")
	c.deliver(domain.InboundMessage{
		From:     e.Source.String(),
		FromName: e.Source.Name,
		ChatID:   e.Source.String(),
		Hangup:   true,
	})
}

func (c *Channel) deliver(msg domain.InboundMessage) {
	msg.ID = uuid.New().String()
	msg.ChannelID = ChannelID
	msg.Timestamp = time.Now()

	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()

	if handler != nil {
		handler(msg)
	}
}

// splitMessage breaks text into IRC-sized lines. Each newline starts a new
// chunk, blank lines are dropped, and lines longer than maxLen are cut at
// rune boundaries.
func splitMessage(text string, maxLen int) []string {
	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		for len(line) > maxLen {
			cut := maxLen
			for cut > 0 && !utf8RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				cut = maxLen
			}
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if strings.TrimSpace(line) != "" {
			chunks = append(chunks, line)
		}
	}
	return chunks
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }

// nickOf returns the nick part of a nick!user@host mask.
func nickOf(mask string) string {
	nick, _, _ := strings.Cut(mask, "!")
	return nick
}

// stripMarkdown removes legacy Markdown emphasis and escapes for plain-text transports.
func stripMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '*' || r == '_' || r == '`':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
