package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/ivankudzin/portfolio/internal/config"
	pgrepo "github.com/ivankudzin/portfolio/internal/repo/postgres"
)

const commandTimeout = 30 * time.Second

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "portfolioctl",
		Short:         "Operator tasks for the portfolio service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath(), "path to config.yaml")

	root.AddCommand(
		newHashPasswordCmd(),
		newCreateAdminCmd(opts),
		newMigrateCmd(opts),
		newClassifyCmd(),
	)
	return root
}

func defaultConfigPath() string {
	if path := os.Getenv("APP_CONFIG"); path != "" {
		return path
	}
	return "configs/config.yaml"
}

// openPool loads config and connects to Postgres for commands that need it.
func (o *rootOptions) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	if err := pgrepo.Ping(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}
