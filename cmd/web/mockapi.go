package main

import (
	"fmt"
	"log/slog"

	"sociomile-gateway/internal/config"
	"sociomile-gateway/internal/mockapi"
	"sociomile-gateway/pkg/logger"

	"github.com/spf13/cobra"
)

func mockAPICmd() *cobra.Command {
	var noSeed bool

	cmd := &cobra.Command{
		Use:   "mockapi",
		Short: "Run a development identity API with seeded users",
		Long: `mockapi serves /api/v1/auth/{login,register,refresh,profile} from memory.
Seeded accounts (password "password123"): admin@sociomile.com, owner@techcorp.com,
alice@techcorp.com, bob@techcorp.com, customer1@example.com and friends.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateMockAPI(); err != nil {
				return err
			}

			log := logger.New(logger.Options{Env: cfg.App.Env, Service: "mockapi"})
			slog.SetDefault(log)

			tokens, err := mockapi.NewManager(cfg.MockAPI)
			if err != nil {
				return err
			}
			users := mockapi.NewDirectory(0)
			if !noSeed {
				if err := users.Seed(); err != nil {
					return fmt.Errorf("seed users: %w", err)
				}
			}

			h := mockapi.NewRouter(mockapi.Options{Tokens: tokens, Users: users, Logger: log})
			return runServer(cmd.Context(), log, "mock api", cfg.MockAPIAddr(), h)
		},
	}

	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "Start with an empty user directory")

	return cmd
}
