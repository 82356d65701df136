package main

import (
	"context"
	"fmt"
	"os"

	"nodegraph/infrastructure/config"
	"nodegraph/infrastructure/di"

	"github.com/spf13/cobra"
)

var (
	storeURL string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:          "nodegraph",
	Short:        "Import and inspect node trees",
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeURL, "store", "", "Store connection string (overrides STORE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at the configured LOG_LEVEL instead of warn")

	rootCmd.AddCommand(importCmd, validateCmd, treeCmd)
}

// loadConfig reads the environment and applies the persistent flags. The
// server-only startup import is always switched off here.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	cfg.ImportOnStart = false
	cfg.EnableMetrics = false

	if storeURL != "" {
		store, err := config.ParseStoreURL(storeURL)
		if err != nil {
			return nil, err
		}
		if store.Region == "" {
			store.Region = cfg.Store.Region
		}
		cfg.StoreURL = storeURL
		cfg.Store = store
	}
	if !verbose {
		cfg.LogLevel = "warn"
	}
	return cfg, nil
}

func openContainer(ctx context.Context) (*di.Container, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize container: %w", err)
	}
	return container, cleanup, nil
}
