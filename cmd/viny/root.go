package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomymaritano/viny-sub001/internal/config"
	"github.com/tomymaritano/viny-sub001/pkg/resilience"
	"github.com/tomymaritano/viny-sub001/pkg/sync"
	"github.com/tomymaritano/viny-sub001/pkg/viny"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "viny",
	Short: "An offline-first note store with pluggable backends",
	Long: `Viny stores notes and notebooks in a local-first backend (files,
SQLite, CouchDB or memory), survives storage failures with retries and a
circuit breaker, and reconciles replicas with conflict-aware sync.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./viny.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

// openStore loads the configuration and wires a store from it.
func openStore(ctx context.Context) (*viny.Store, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return viny.New(ctx, viny.Config{
		Backend:       viny.BackendKind(cfg.Backend.Kind),
		Path:          cfg.Backend.Path,
		CouchURL:      cfg.Backend.CouchURL,
		CouchDatabase: cfg.Backend.CouchDatabase,
		MaxEntries:    cfg.Backend.MaxEntries,
	},
		viny.WithLogger(slog.Default()),
		viny.WithRetryConfig(resilience.RetryConfig{
			MaxAttempts:        cfg.Retry.MaxAttempts,
			BaseDelay:          cfg.Retry.BaseDelay,
			MaxDelay:           cfg.Retry.MaxDelay,
			ExponentialBackoff: true,
			Jitter:             true,
		}),
		viny.WithBreakerConfig(resilience.BreakerConfig{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			ResetTimeout:     cfg.Breaker.ResetTimeout,
		}),
		viny.WithAttemptTimeout(cfg.Retry.AttemptTimeout),
		viny.WithDefaultStrategy(sync.Strategy(cfg.Sync.DefaultStrategy)),
	)
}
