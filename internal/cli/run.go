package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/soyeahso/salesbot/internal/auth"
	"github.com/soyeahso/salesbot/internal/bot"
	"github.com/soyeahso/salesbot/internal/channel"
	"github.com/soyeahso/salesbot/internal/channel/console"
	"github.com/soyeahso/salesbot/internal/channel/irc"
	"github.com/soyeahso/salesbot/internal/channel/telegram"
	"github.com/soyeahso/salesbot/internal/config"
	"github.com/soyeahso/salesbot/internal/domain"
	"github.com/soyeahso/salesbot/internal/hooks"
	"github.com/soyeahso/salesbot/internal/liveness"
	"github.com/soyeahso/salesbot/internal/orders"
	"github.com/soyeahso/salesbot/internal/store"
	"github.com/soyeahso/salesbot/internal/version"
	"github.com/spf13/cobra"
	"github.com/tillberg/autorestart"
)

const shutdownTimeout = 10 * time.Second

var errNoToken = errors.New("no Telegram bot token: set bot_settings.telegram_bot_token or TELEGRAM_BOT_TOKEN")

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot()
		},
	}
}

func runBot() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if issues := config.Validate(&cfg); len(issues) > 0 {
		for _, issue := range issues {
			log.Error().Str("path", issue.Path).Msg(issue.Message)
		}
		return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
	}

	if cfg.Dev.AutoRestart {
		go autorestart.RestartOnChange()
		log.Warn().Msg("autorestart enabled: the process re-executes when its binary changes")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, cfg.Database.QueryTimeout)
	db, err := store.Open(openCtx, cfg.Database, log)
	cancel()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	log.Info().Str("driver", cfg.Database.Driver).Msg("database ready")

	hookMgr := hooks.NewManager(log)
	if n := hookMgr.RegisterCommands(cfg.Hooks); n > 0 {
		log.Info().Int("hooks", n).Msg("hook commands registered")
	}

	formatter, err := orders.NewFormatter(cfg.Orders)
	if err != nil {
		return err
	}

	channels, err := buildChannels(ctx, cfg, db)
	if err != nil {
		return err
	}

	dispatcher := bot.New(
		channels,
		auth.New(db, log),
		orders.NewService(db, cfg.Orders.Limit, log),
		formatter,
		bot.Options{
			MaxAttempts:   cfg.Login.MaxAttempts,
			AttemptWindow: cfg.Login.Window,
			Hooks:         hookMgr,
		},
		log,
	)
	channels.OnMessage(func(msg domain.InboundMessage) {
		dispatcher.Enqueue(msg)
	})

	go dispatcher.Run(ctx)
	if err := channels.StartAll(ctx); err != nil {
		return fmt.Errorf("starting channels: %w", err)
	}
	go liveness.New(channels, cfg.Liveness.Interval, hookMgr, log).Run(ctx)

	hookMgr.Emit(ctx, hooks.EventBotStart, map[string]any{
		"version":  version.Version,
		"channels": channels.List(),
	})
	log.Info().
		Str("version", version.Version).
		Strs("channels", channels.List()).
		Msg("salesbot running")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	channels.StopAll(shutdownCtx)
	select {
	case <-dispatcher.Done():
	case <-shutdownCtx.Done():
		log.Warn().Msg("dispatcher did not stop in time")
	}
	hookMgr.Emit(shutdownCtx, hooks.EventBotStop, nil)

	log.Info().Msg("salesbot stopped")
	return nil
}

// buildChannels registers every enabled transport. The Telegram token is
// verified here so a bad token fails startup.
func buildChannels(ctx context.Context, cfg config.Config, settings tokenSource) (*channel.Registry, error) {
	channels := channel.NewRegistry(log)

	if cfg.Telegram.Enabled {
		token, err := resolveToken(ctx, settings, cfg.Telegram.Token)
		if err != nil {
			return nil, err
		}
		tg := telegram.New(cfg.Telegram, token, log)
		if _, err := tg.Connect(); err != nil {
			return nil, err
		}
		channels.Register(tg)
	}
	if cfg.IRC.Enabled {
		channels.Register(irc.New(cfg.IRC, log))
	}
	if cfg.Console.Enabled {
		channels.Register(console.New(cfg.Console, log))
	}
	return channels, nil
}

type tokenSource interface {
	Setting(ctx context.Context, key string) (string, error)
}

// resolveToken prefers the bot_settings row and falls back to the
// configured token.
func resolveToken(ctx context.Context, settings tokenSource, fallback string) (string, error) {
	token, err := settings.Setting(ctx, store.SettingTelegramToken)
	switch {
	case err == nil && token != "":
		return token, nil
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return "", fmt.Errorf("reading bot token: %w", err)
	}
	if fallback != "" {
		log.Info().Msg("bot token not in bot_settings, using configured token")
		return fallback, nil
	}
	return "", errNoToken
}
