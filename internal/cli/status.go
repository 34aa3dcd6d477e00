package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/soyeahso/salesbot/internal/config"
	"github.com/soyeahso/salesbot/internal/hooks"
	"github.com/soyeahso/salesbot/internal/store"
	"github.com/soyeahso/salesbot/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration summary and check the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "salesbot %s (commit %s)\n\n", version.Version, version.Commit)
			fmt.Fprintf(out, "Config:   %s\n", paths.Config)
			fmt.Fprintf(out, "Data:     %s\n\n", paths.Data)

			cfg, err := loadConfig()
			if err != nil {
				fmt.Fprintf(out, "Config:   error loading: %v\n", err)
				return nil
			}
			printSummary(out, cfg)

			if issues := config.Validate(&cfg); len(issues) > 0 {
				fmt.Fprintln(out)
				for _, issue := range issues {
					fmt.Fprintf(out, "Issue:    %s\n", issue)
				}
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Database.QueryTimeout)
			defer cancel()
			start := time.Now()
			db, err := store.Open(ctx, cfg.Database, log)
			if err != nil {
				fmt.Fprintf(out, "Database: unreachable: %v\n", err)
				return nil
			}
			defer db.Close()
			fmt.Fprintf(out, "Database: ok (%s)\n", time.Since(start).Round(time.Millisecond))

			if _, err := db.Setting(ctx, store.SettingTelegramToken); err == nil {
				fmt.Fprintln(out, "Token:    stored in bot_settings")
			} else if cfg.Telegram.Token != "" {
				fmt.Fprintln(out, "Token:    from config/environment")
			} else {
				fmt.Fprintln(out, "Token:    missing")
			}
			return nil
		},
	}
}

func printSummary(out io.Writer, cfg config.Config) {
	var channels []string
	if cfg.Telegram.Enabled {
		channels = append(channels, "telegram")
	}
	if cfg.IRC.Enabled {
		channels = append(channels, fmt.Sprintf("irc(%s as %s)", cfg.IRC.Server, cfg.IRC.Nick))
	}
	if cfg.Console.Enabled {
		channels = append(channels, "console("+cfg.Console.Listen+")")
	}
	if len(channels) == 0 {
		channels = append(channels, "(none)")
	}

	fmt.Fprintf(out, "Database: driver=%s maxConns=%d timeout=%s\n",
		cfg.Database.Driver, cfg.Database.MaxConns, cfg.Database.QueryTimeout)
	fmt.Fprintf(out, "Channels: %s\n", strings.Join(channels, ", "))
	fmt.Fprintf(out, "Orders:   limit=%d currency=%s locale=%s tz=%s\n",
		cfg.Orders.Limit, cfg.Orders.Currency, cfg.Orders.Locale, cfg.Orders.Timezone)
	fmt.Fprintf(out, "Login:    maxAttempts=%d window=%s\n", cfg.Login.MaxAttempts, cfg.Login.Window)
	fmt.Fprintf(out, "Liveness: every %s\n", cfg.Liveness.Interval)
	fmt.Fprintf(out, "Hooks:    %s\n", hookSummary(cfg.Hooks))
}

// hookSummary lists configured hook events with their command counts,
// e.g. "bot_start(1), logout(2)".
func hookSummary(cfg config.HooksConfig) string {
	hm := hooks.NewManager(log)
	if hm.RegisterCommands(cfg) == 0 {
		return "(none)"
	}
	events := hm.Events()
	sort.Strings(events)
	parts := make([]string, len(events))
	for i, event := range events {
		parts[i] = fmt.Sprintf("%s(%d)", event, hm.Count(event))
	}
	return strings.Join(parts, ", ")
}
