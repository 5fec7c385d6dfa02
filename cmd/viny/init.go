package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomymaritano/viny-sub001/internal/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the configured backend",
	Long: `Initialize the storage backend named in the configuration: create the
vault directory or database file and verify it is writable. Running init on an
already initialized backend is harmless.`,
	Run: func(cmd *cobra.Command, args []string) {
		store, err := openStore(cmd.Context())
		if err != nil {
			fatal("Failed to initialize backend", err)
		}
		defer store.Close()

		cfg, err := config.Load(cfgFile)
		if err != nil {
			fatal("Failed to load config", err)
		}
		switch cfg.Backend.Kind {
		case "couch":
			fmt.Println("Initialized CouchDB database", cfg.Backend.CouchDatabase)
		case "memory":
			fmt.Println("Initialized in-memory store (data will not persist)")
		default:
			fmt.Printf("Initialized %s backend at %s\n", cfg.Backend.Kind, cfg.Backend.Path)
		}
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
