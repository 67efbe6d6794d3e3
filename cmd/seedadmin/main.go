// cmd/seedadmin: opens a shop with its first admin account.
// Usage: go run ./cmd/seedadmin --username owner --email owner@example.com --password ...
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"spazatrack/internal/config"
	"spazatrack/internal/dto"
	"spazatrack/internal/infra"
	"spazatrack/internal/repository"
	"spazatrack/internal/security"
	"spazatrack/internal/service"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var req dto.RegisterRequest
	root := &cobra.Command{
		Use:   "seedadmin",
		Short: "Create a shop and its first admin",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional; real environment variables win.
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("load .env: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return seed(cmd.Context(), req)
		},
		SilenceUsage: true,
	}
	root.Flags().StringVar(&req.Username, "username", "", "admin username (required)")
	root.Flags().StringVar(&req.Email, "email", "", "admin email (required)")
	root.Flags().StringVar(&req.Password, "password", "", "admin password (required)")
	root.Flags().StringVar(&req.FullName, "full-name", "", "admin display name")
	root.Flags().StringVar(&req.ShopName, "shop-name", "", "shop name (default \"<username>'s shop\")")
	for _, f := range []string{"username", "email", "password"} {
		_ = root.MarkFlagRequired(f)
	}

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func seed(ctx context.Context, req dto.RegisterRequest) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	db, err := infra.NewDatabase(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	users := repository.NewUserRepository(db)
	tokens := security.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.JWTExpirationHours)*time.Hour)
	opts := service.Options{Location: loc, OpTimeout: cfg.DBOperationTimeout}
	auth := service.NewAuthService(db, users, repository.NewShopRepository(db),
		service.NewJournal(repository.NewActivityRepository(db), nil),
		security.NewBcryptHasher(cfg.BcryptCost), tokens, nil, nil, opts)

	req.Role = "admin"
	resp, err := auth.Register(ctx, nil, req, "")
	if err != nil {
		return err
	}
	log.Info().
		Str("user_id", resp.User.ID).
		Str("shop_id", resp.User.ShopID).
		Str("username", resp.User.Username).
		Msg("admin created")
	return nil
}
