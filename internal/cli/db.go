package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/salesbot/internal/auth"
	"github.com/soyeahso/salesbot/internal/config"
	"github.com/soyeahso/salesbot/internal/domain"
	"github.com/soyeahso/salesbot/internal/store"
	"github.com/spf13/cobra"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the local SQLite development database",
	}

	cmd.AddCommand(newDBMigrateCmd())
	cmd.AddCommand(newDBSeedCmd())
	cmd.AddCommand(newDBSetTokenCmd())

	return cmd
}

// openDevDB opens the configured SQLite database. The production Postgres
// schema is owned by the sales system and never migrated from here.
func openDevDB() (*store.SQLite, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver != config.DriverSQLite {
		return nil, fmt.Errorf("db commands need database.driver=%s, got %q", config.DriverSQLite, cfg.Database.Driver)
	}
	if err := paths.EnsureDirs(); err != nil {
		return nil, err
	}
	return store.OpenSQLite(cfg.Database.URL, log, store.WithQueryTimeout(cfg.Database.QueryTimeout))
}

func newDBMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the SQLite schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDevDB()
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

type seedOptions struct {
	username  string
	password  string
	firstName string
	lastName  string
	role      string
	orders    int
}

func newDBSeedCmd() *cobra.Command {
	var opts seedOptions

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Add an approved user and sample orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.username == "" || opts.password == "" {
				return errors.New("--username and --password are required")
			}
			db, err := openDevDB()
			if err != nil {
				return err
			}
			defer db.Close()

			id, err := seed(cmd.Context(), db, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %q (id %d) with %d orders\n", opts.username, id, opts.orders)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.username, "username", "", "login name")
	cmd.Flags().StringVar(&opts.password, "password", "", "plain-text password, stored as a bcrypt hash")
	cmd.Flags().StringVar(&opts.firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&opts.lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&opts.role, "role", "sales_officer", "role shown after login")
	cmd.Flags().IntVar(&opts.orders, "orders", 3, "number of sample orders to create")

	return cmd
}

var sampleStatuses = []string{domain.OrderStatusApproved, domain.OrderStatusPending, "rejected"}

func seed(ctx context.Context, db *store.SQLite, opts seedOptions) (int64, error) {
	hash, err := auth.HashPassword(opts.password)
	if err != nil {
		return 0, err
	}
	id, err := db.CreateUser(ctx, domain.UserRecord{
		User: domain.User{
			Username:  opts.username,
			FirstName: opts.firstName,
			LastName:  opts.lastName,
			Role:      opts.role,
		},
		PasswordHash: hash,
		Status:       domain.UserStatusApproved,
	})
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	for i := 0; i < opts.orders; i++ {
		qty := float64(10 * (i + 1))
		price := 50000.0
		_, err := db.InsertOrder(ctx, domain.Order{
			OrderNumber:    fmt.Sprintf("%s-%04d", opts.username, i+1),
			CustomerName:   fmt.Sprintf("Customer %d", i+1),
			TotalAmount:    qty * price,
			Status:         sampleStatuses[i%len(sampleStatuses)],
			CreatedAt:      now.Add(-time.Duration(i) * 24 * time.Hour),
			ProductType:    "cement",
			Unit:           "bag",
			Quantity:       qty,
			Price:          price,
			SalesOfficerID: id,
		})
		if err != nil {
			return 0, err
		}
	}
	return id, nil
}

func newDBSetTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-token <token>",
		Short: "Store the Telegram bot token in bot_settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDevDB()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.PutSetting(cmd.Context(), store.SettingTelegramToken, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "token stored")
			return nil
		},
	}
}
