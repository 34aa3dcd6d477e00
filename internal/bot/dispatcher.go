// Package bot dispatches inbound chat messages to command handlers and the
// login dialogue, and sends the replies back through the originating channel.
package bot

import (
	"context"
	"errors"
	"time"

	"github.com/soyeahso/salesbot/internal/auth"
	"github.com/soyeahso/salesbot/internal/domain"
	"github.com/soyeahso/salesbot/internal/hooks"
	"github.com/soyeahso/salesbot/internal/logging"
	"github.com/soyeahso/salesbot/internal/session"
)

// DefaultQueueSize bounds the inbound queue.
const DefaultQueueSize = 256

// Authenticator verifies login credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (domain.User, error)
}

// OrderLister returns a user's most recent orders.
type OrderLister interface {
	ListRecentOrders(ctx context.Context, userID int64) ([]domain.Order, error)
}

// OrderFormatter renders a non-empty order listing.
type OrderFormatter interface {
	Format(orders []domain.Order) string
}

// Sender delivers replies to a channel.
type Sender interface {
	Send(ctx context.Context, msg domain.OutboundMessage) error
}

// Options tunes a Dispatcher.
type Options struct {
	QueueSize     int
	MaxAttempts   int
	AttemptWindow time.Duration
	Hooks         *hooks.Manager
}

// Dispatcher owns all per-conversation state. HandleInbound is not safe for
// concurrent use; transports call Enqueue and a single Run loop consumes.
type Dispatcher struct {
	sender Sender
	authn  Authenticator
	orders OrderLister
	format OrderFormatter
	hooks  *hooks.Manager
	log    *logging.Logger

	sessions  *session.Store
	dialogues *session.Dialogues
	limiter   *session.AttemptLimiter

	queue chan domain.InboundMessage
	done  chan struct{}
}

// New creates a Dispatcher.
func New(sender Sender, authn Authenticator, orders OrderLister, format OrderFormatter, opts Options, log *logging.Logger) *Dispatcher {
	size := opts.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Dispatcher{
		sender:    sender,
		authn:     authn,
		orders:    orders,
		format:    format,
		hooks:     opts.Hooks,
		log:       log.Sub("bot"),
		sessions:  session.NewStore(),
		dialogues: session.NewDialogues(),
		limiter:   session.NewAttemptLimiter(opts.MaxAttempts, opts.AttemptWindow),
		queue:     make(chan domain.InboundMessage, size),
		done:      make(chan struct{}),
	}
}

// Enqueue hands msg to the worker. It never blocks; when the queue is full
// the message is dropped and false is returned.
func (d *Dispatcher) Enqueue(msg domain.InboundMessage) bool {
	select {
	case d.queue <- msg:
		return true
	default:
		d.log.Warn().
			Str("channel", msg.ChannelID).
			Str("chatId", msg.ChatID).
			Msg("inbound queue full, dropping message")
		return false
	}
}

// Run processes queued messages one at a time until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	d.log.Info().Int("queueSize", cap(d.queue)).Msg("dispatcher running")
	for {
		select {
		case <-ctx.Done():
			d.log.Info().
				Int("pending", len(d.queue)).
				Int("sessions", d.sessions.Len()).
				Int("dialogues", d.dialogues.Len()).
				Msg("dispatcher stopped")
			return
		case msg := <-d.queue:
			d.HandleInbound(ctx, msg)
		}
	}
}

// Done is closed once Run has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// HandleInbound processes one message synchronously.
func (d *Dispatcher) HandleInbound(ctx context.Context, msg domain.InboundMessage) {
	key := domain.KeyFor(msg)

	if msg.Hangup {
		d.hangup(key)
		return
	}

	if cmd, ok := parseCommand(msg.Body); ok {
		d.log.Debug().
			Str("conversation", key.String()).
			Str("command", cmd).
			Msg("command received")
		switch cmd {
		case CmdStart:
			d.handleStart(ctx, key)
		case CmdOrders:
			d.handleOrders(ctx, key)
		case CmdLogout:
			d.handleLogout(ctx, key)
		case CmdHelp:
			d.reply(ctx, key, replyHelp, true)
		default:
			d.reply(ctx, key, replyUnknownCommand, false)
		}
		return
	}

	d.handleText(ctx, key, msg.Body)
}

func (d *Dispatcher) handleStart(ctx context.Context, key domain.ConversationKey) {
	d.sessions.Delete(key)
	d.dialogues.Begin(key)
	d.reply(ctx, key, replyWelcome, true)
}

func (d *Dispatcher) handleOrders(ctx context.Context, key domain.ConversationKey) {
	user, ok := d.sessions.Get(key)
	if !ok {
		d.reply(ctx, key, replyLoginRequired, false)
		return
	}

	list, err := d.orders.ListRecentOrders(ctx, user.ID)
	if err != nil {
		d.log.Error().Err(err).
			Str("conversation", key.String()).
			Int64("userId", user.ID).
			Msg("loading orders failed")
		d.reply(ctx, key, replyOrdersError, false)
		return
	}
	if len(list) == 0 {
		d.reply(ctx, key, replyNoOrders, false)
		return
	}

	d.log.Info().
		Str("conversation", key.String()).
		Int64("userId", user.ID).
		Int("orders", len(list)).
		Msg("orders listed")
	d.reply(ctx, key, d.format.Format(list), true)
}

func (d *Dispatcher) handleLogout(ctx context.Context, key domain.ConversationKey) {
	user, had := d.sessions.Get(key)
	d.sessions.Delete(key)
	d.dialogues.Clear(key)
	d.reply(ctx, key, replyLogout, false)

	if had {
		d.log.Info().Str("conversation", key.String()).Str("username", user.Username).Msg("logged out")
		d.emit(ctx, hooks.EventLogout, key, user.Username, nil)
	}
}

func (d *Dispatcher) handleText(ctx context.Context, key domain.ConversationKey, text string) {
	if user, ok := d.sessions.Get(key); ok {
		d.dialogues.Clear(key)
		d.reply(ctx, key, replyAlreadyLoggedIn(user), true)
		return
	}

	switch step := d.dialogues.Advance(key, text).(type) {
	case session.StepAskUsername:
		d.reply(ctx, key, replyAskUsername, false)
	case session.StepAskPassword:
		d.reply(ctx, key, replyAskPassword, true)
	case session.StepAuthenticate:
		d.login(ctx, key, step.Username, step.Password)
	default:
		d.reply(ctx, key, replyStartFirst, false)
	}
}

func (d *Dispatcher) login(ctx context.Context, key domain.ConversationKey, username, password string) {
	if !d.limiter.Allow(key) {
		d.log.Warn().
			Str("conversation", key.String()).
			Str("username", username).
			Msg("login rate limited")
		d.reply(ctx, key, replyTooManyAttempts, false)
		d.emit(ctx, hooks.EventLoginFailed, key, username, map[string]any{"reason": "rate_limited"})
		return
	}

	user, err := d.authn.Authenticate(ctx, username, password)
	switch {
	case err == nil:
		d.sessions.Set(key, user)
		d.limiter.Reset(key)
		d.log.Info().
			Str("conversation", key.String()).
			Str("username", user.Username).
			Int64("userId", user.ID).
			Msg("login succeeded")
		d.reply(ctx, key, replyLoginSuccess(user), true)
		d.emit(ctx, hooks.EventLoginSucceeded, key, user.Username, map[string]any{"role": user.Role})

	case errors.Is(err, auth.ErrUnavailable):
		d.log.Error().Err(err).
			Str("conversation", key.String()).
			Str("username", username).
			Msg("login unavailable")
		d.reply(ctx, key, replyAuthUnavailable, false)

	default:
		d.limiter.Fail(key)
		reason := "invalid_credentials"
		if errors.Is(err, auth.ErrInvalidPassword) {
			reason = "invalid_password"
		}
		d.log.Warn().
			Str("conversation", key.String()).
			Str("username", username).
			Str("reason", reason).
			Msg("login failed")
		d.reply(ctx, key, replyInvalidCredentials, false)
		d.emit(ctx, hooks.EventLoginFailed, key, username, map[string]any{"reason": reason})
	}
}

func (d *Dispatcher) reply(ctx context.Context, key domain.ConversationKey, body string, markdown bool) {
	out := domain.OutboundMessage{
		ChannelID: key.ChannelID,
		To:        key.ChatID,
		Body:      body,
		Markdown:  markdown,
	}
	if err := d.sender.Send(ctx, out); err != nil {
		d.log.Error().Err(err).
			Str("conversation", key.String()).
			Msg("failed to send reply")
	}
}

func (d *Dispatcher) emit(ctx context.Context, event string, key domain.ConversationKey, username string, extra map[string]any) {
	data := map[string]any{
		"channel":  key.ChannelID,
		"chatId":   key.ChatID,
		"username": username,
	}
	for k, v := range extra {
		data[k] = v
	}
	d.hooks.EmitAsync(context.WithoutCancel(ctx), event, data)
}

// hangup drops the session and dialogue of a conversation whose peer is
// gone. No reply is sent. Recorded login failures are kept.
func (d *Dispatcher) hangup(key domain.ConversationKey) {
	user, had := d.sessions.Get(key)
	d.sessions.Delete(key)
	d.dialogues.Clear(key)
	if had {
		d.log.Info().
			Str("conversation", key.String()).
			Str("username", user.Username).
			Msg("session ended by disconnect")
	}
}
