package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomymaritano/viny-sub001/pkg/viny"
)

var syncCmd = &cobra.Command{
	Use:   "sync <replica.json>",
	Short: "Reconcile the store with an exported replica",
	Long: `Merge the store with a replica exported by 'viny export'.
Conflicting items are resolved using the configured default strategy;
with 'manual' the conflicts are listed and nothing is written.`,
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
			fatal("Failed to open replica", err)
		}
		defer f.Close()

		result, err := store.Import(ctx, f, viny.ImportMerge)
		if err != nil {
			state := store.Engine().State()
			if len(state.Conflicts) > 0 {
				fmt.Println("Sync stopped: unresolved conflicts")
				for _, c := range state.Conflicts {
					fmt.Printf("  %s %s %s\n", c.ID, c.Kind, c.ItemID)
				}
				os.Exit(1)
			}
			fatal("Sync failed", err)
		}

		fmt.Printf("Synced: %d notes, %d notebooks, %d conflicts resolved.\n",
			len(result.Notes), len(result.Notebooks), len(result.Conflicts))
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
