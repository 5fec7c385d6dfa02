package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomymaritano/viny-sub001/pkg/viny"
)

var (
	exportOut     string
	importReplace bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all notes and notebooks as JSON",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store, err := openStore(ctx)
		if err != nil {
			fatal("Failed to open store", err)
		}
		defer store.Close()

		out := os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				fatal("Failed to create output file", err)
			}
			defer f.Close()
			out = f
		}

		if err := store.Export(ctx, out); err != nil {
			fatal("Export failed", err)
		}
	},
}

var importCmd = &cobra.Command{
	Use:   "import <envelope.json>",
	Short: "Import a JSON export",
	Long: `Import notes and notebooks from a JSON envelope. By default the
envelope is merged with existing data through the sync engine; with
--replace, items sharing an id are overwritten instead.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store, err := openStore(ctx)
		if err != nil {
			fatal("Failed to open store", err)
		}
		defer store.Close()

		f, err := os.Open(args[0])
		if err != nil {
			fatal("Failed to open envelope", err)
		}
		defer f.Close()

		mode := viny.ImportMerge
		if importReplace {
			mode = viny.ImportReplace
		}

		result, err := store.Import(ctx, f, mode)
		if err != nil {
			fatal("Import failed", err)
		}

		fmt.Printf("Imported: %d notes, %d notebooks.\n", len(result.Notes), len(result.Notebooks))
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: stdout)")
	importCmd.Flags().BoolVar(&importReplace, "replace", false, "Overwrite instead of merging")
}
