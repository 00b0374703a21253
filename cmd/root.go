// Package cmd defines the CLI for the leadgen scraper service.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, the worker
//     endpoints (/api/scraper/run and /api/scraper/progress/{id}), and the
//     taxonomy seeding endpoints.
//   - Task engine: internal/scraper.Engine is stateless. Each request reads the
//     pending progress record or materialises the next niche x query x
//     sub-query combination in enumeration order.
//   - Persistence: taxonomy and progress live in memory, Postgres (pgx), or
//     MongoDB depending on storage.backend. Legacy start_param records are
//     normalised on read and migrated lazily.
//   - Events: task lifecycle events are batched by internal/events.Hub and fan
//     out to zap logs, Prometheus counters, and an optional Pub/Sub topic.
//
// Quick checklist:
//   - Configure env vars: LEADGEN_SERVER_PORT, LEADGEN_STORAGE_BACKEND,
//     LEADGEN_POSTGRES_DSN or LEADGEN_MONGO_URI, LEADGEN_AUTH_API_KEY, and
//     LEADGEN_PUBSUB_PROJECT_ID / LEADGEN_PUBSUB_TOPIC_NAME for event fan-out.
//   - Prepare the database: leadgen migrate --config config.yaml
//   - Run locally: leadgen serve --config config.yaml
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/leadgen-scraper/internal/config"
)

// configKeyType is the key for storing the loaded Config in the context.
type configKeyType string

const configKey configKeyType = "config"

// newRootCmd creates the root command. Config is loaded once in
// PersistentPreRunE and handed to subcommands through the context.
func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "leadgen",
		Short: "Task assignment and progress tracking for lead-generation scrapers.",
		Long: `leadgen hands crawler workers one search task at a time, derived from
the niche x query x sub-query taxonomy, and records how far each task has
paginated so work resumes where it stopped.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), configKey, &cfg))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default searches ./config.yaml, /etc/leadgen, $HOME/.leadgen)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

func resolveConfig(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "command execution failed: %v\n", err)
		os.Exit(1)
	}
}
