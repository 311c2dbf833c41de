// Package cmd is the restaurant-tracker command line: the API server plus
// operator tooling that works directly against the configured store.
package cmd

import (
	"context"
	"fmt"

	"restaurant-tracker-api/auth"
	"restaurant-tracker-api/catalog"
	"restaurant-tracker-api/config"
	"restaurant-tracker-api/places"
	"restaurant-tracker-api/policy"
	"restaurant-tracker-api/store"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logger = logrus.WithField("context", "cmd")

// Version is overridden at build time with -ldflags "-X restaurant-tracker-api/cmd.Version=..."
var Version = "dev"

var (
	// flagEnvFile is set by the --env-file flag.
	flagEnvFile string

	// cfg is loaded once by PersistentPreRunE.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "restaurant-tracker",
	Short: "Restaurant Tracker API server and tools",
	Long: `Restaurant Tracker keeps a personal list of restaurants with visits,
a public curated list and a place-search proxy. Without a subcommand it
starts the HTTP API.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		loaded, err := config.Load(flagEnvFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		loaded.ConfigureLogging()
		cfg = loaded
		return nil
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "dotenv file merged into the environment (ignored if missing)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the command line
func Execute() error {
	return rootCmd.Execute()
}

// app holds the services shared by every command
type app struct {
	store   store.Store
	auth    *auth.Service
	catalog *catalog.Service
	places  *places.Client
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	if cfg.CuratorEmail == "" {
		logger.Warn("CURATOR_EMAIL not set, the public list will be empty")
	}
	if cfg.PlacesAPIKey == "" {
		logger.Warn("PLACES_API_KEY not set, place search requests will be rejected upstream")
	}
	return &app{
		store:   st,
		auth:    auth.NewService(st, cfg.JWTSecret, cfg.TokenTTL),
		catalog: catalog.NewService(st, policy.New(cfg.CuratorEmail, cfg.CoCuratorEmail)),
		places:  places.NewClient(cfg.PlacesBaseURL, cfg.PlacesAPIKey, cfg.PlacesTimeout),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.WithError(err).Warn("Closing store")
	}
}
