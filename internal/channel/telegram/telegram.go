// Package telegram implements the Telegram Bot API transport using long polling.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/soyeahso/salesbot/internal/config"
	"github.com/soyeahso/salesbot/internal/domain"
	"github.com/soyeahso/salesbot/internal/logging"
)

// ChannelID is the channel identifier used in conversation keys.
const ChannelID = "telegram"

// DefaultPollTimeout is the long-poll timeout in seconds.
const DefaultPollTimeout = 60

// botAPI is the subset of *tgbotapi.BotAPI the channel uses.
type botAPI interface {
	GetMe() (tgbotapi.User, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Channel implements domain.Channel for Telegram private chats.
type Channel struct {
	cfg   config.TelegramConfig
	token string
	log   *logging.Logger

	mu      sync.RWMutex
	api     botAPI
	handler func(msg domain.InboundMessage)
	stop    sync.Once
}

// New creates a Telegram channel. The token is resolved by the caller.
func New(cfg config.TelegramConfig, token string, log *logging.Logger) *Channel {
	return &Channel{cfg: cfg, token: token, log: log.Sub("telegram")}
}

func newWithAPI(cfg config.TelegramConfig, api botAPI, log *logging.Logger) *Channel {
	c := New(cfg, "", log)
	c.api = api
	return c
}

func (c *Channel) ID() string { return ChannelID }

func (c *Channel) OnMessage(handler func(msg domain.InboundMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

func (c *Channel) pollTimeout() int {
	if c.cfg.PollTimeout > 0 {
		return c.cfg.PollTimeout
	}
	return DefaultPollTimeout
}

// Connect creates the Bot API client and verifies the token with getMe.
// It is a no-op once connected.
func (c *Channel) Connect() (domain.Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.api == nil {
		if c.token == "" {
			return domain.Identity{}, errors.New("telegram: no bot token")
		}
		endpoint := c.cfg.APIEndpoint
		if endpoint == "" {
			endpoint = tgbotapi.APIEndpoint
		}
		_ = tgbotapi.SetLogger(botLogger{log: c.log})

		client := &http.Client{Timeout: time.Duration(c.pollTimeout()+15) * time.Second}
		bot, err := tgbotapi.NewBotAPIWithClient(c.token, endpoint, client)
		if err != nil {
			return domain.Identity{}, fmt.Errorf("telegram connect: %w", err)
		}
		bot.Debug = c.cfg.Debug
		c.api = bot
		self := identityOf(bot.Self)
		c.log.Info().Str("bot", self.Username).Msg("authorized on Telegram")
		return self, nil
	}

	me, err := c.api.GetMe()
	if err != nil {
		return domain.Identity{}, fmt.Errorf("telegram getMe: %w", err)
	}
	return identityOf(me), nil
}

func (c *Channel) botAPI() botAPI {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.api
}

// Start long-polls for updates until ctx is cancelled or Stop is called.
func (c *Channel) Start(ctx context.Context) error {
	if _, err := c.Connect(); err != nil {
		return err
	}
	api := c.botAPI()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.pollTimeout()
	u.AllowedUpdates = []string{"message"}
	updates := api.GetUpdatesChan(u)

	c.log.Info().Int("pollTimeout", u.Timeout).Msg("polling for updates")

	for {
		select {
		case <-ctx.Done():
			c.stopPolling(api)
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			c.handleUpdate(update)
		}
	}
}

// Stop stops polling. Safe to call more than once.
func (c *Channel) Stop(_ context.Context) error {
	if api := c.botAPI(); api != nil {
		c.log.Info().Msg("stopping Telegram polling")
		c.stopPolling(api)
	}
	return nil
}

func (c *Channel) stopPolling(api botAPI) {
	c.stop.Do(api.StopReceivingUpdates)
}

// Probe calls getMe.
func (c *Channel) Probe(_ context.Context) (domain.Identity, error) {
	api := c.botAPI()
	if api == nil {
		return domain.Identity{}, errors.New("telegram: not connected")
	}
	me, err := api.GetMe()
	if err != nil {
		return domain.Identity{}, err
	}
	return identityOf(me), nil
}

// Send delivers a text message to a chat.
func (c *Channel) Send(_ context.Context, msg domain.OutboundMessage) error {
	api := c.botAPI()
	if api == nil {
		return errors.New("telegram: not connected")
	}
	chatID, err := strconv.ParseInt(msg.To, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat id %q: %w", msg.To, err)
	}

	out := tgbotapi.NewMessage(chatID, msg.Body)
	if msg.Markdown {
		out.ParseMode = tgbotapi.ModeMarkdown
	}
	if _, err := api.Send(out); err != nil {
		return fmt.Errorf("telegram send to %d: %w", chatID, err)
	}
	c.log.Debug().Int64("chatId", chatID).Int("len", len(msg.Body)).Msg("sent Telegram message")
	return nil
}

func (c *Channel) handleUpdate(update tgbotapi.Update) {
	msg, ok := toInbound(update)
	if !ok {
		return
	}

	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()

	if handler != nil {
		handler(msg)
	}
}

// toInbound converts a private text message update. Everything else is skipped.
func toInbound(update tgbotapi.Update) (domain.InboundMessage, bool) {
	m := update.Message
	if m == nil || m.Text == "" || m.Chat == nil || m.From == nil {
		return domain.InboundMessage{}, false
	}
	if !m.Chat.IsPrivate() {
		return domain.InboundMessage{}, false
	}
	name := m.From.FirstName
	if m.From.LastName != "" {
		name += " " + m.From.LastName
	}
	return domain.InboundMessage{
		ID:        strconv.Itoa(m.MessageID),
		ChannelID: ChannelID,
		From:      strconv.FormatInt(m.From.ID, 10),
		FromName:  name,
		ChatID:    strconv.FormatInt(m.Chat.ID, 10),
		Body:      m.Text,
		Timestamp: m.Time(),
	}, true
}

func identityOf(u tgbotapi.User) domain.Identity {
	return domain.Identity{ID: strconv.FormatInt(u.ID, 10), Username: u.UserName}
}

// botLogger routes the library's internal logging into zerolog. The library
// only uses Println for polling failures and Printf for debug request dumps.
type botLogger struct {
	log *logging.Logger
}

func (l botLogger) Println(v ...interface{}) {
	l.log.Warn().Msg(fmt.Sprint(v...))
}

func (l botLogger) Printf(format string, v ...interface{}) {
	l.log.Debug().Msgf(format, v...)
}
