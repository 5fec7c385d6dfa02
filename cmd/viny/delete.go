package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deleteHard bool

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Trash or permanently delete a note",
	Long: `Move a note to the trash. With --hard the note is removed
permanently and cannot be restored.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store, err := openStore(ctx)
		if err != nil {
			fatal("Failed to open store", err)
		}
		defer store.Close()

		if deleteHard {
			if err := store.DeleteNote(ctx, args[0]); err != nil {
				fatal("Failed to delete note", err)
			}
			fmt.Printf("Note '%s' deleted.\n", args[0])
			return
		}

		if _, err := store.TrashNote(ctx, args[0]); err != nil {
			fatal("Failed to trash note", err)
		}
		fmt.Printf("Note '%s' moved to trash.\n", args[0])
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore a note from the trash",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store, err := openStore(ctx)
		if err != nil {
			fatal("Failed to open store", err)
		}
		defer store.Close()

		if _, err := store.RestoreNote(ctx, args[0]); err != nil {
			fatal("Failed to restore note", err)
		}
		fmt.Printf("Note '%s' restored.\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(restoreCmd)
	deleteCmd.Flags().BoolVar(&deleteHard, "hard", false, "Delete permanently instead of trashing")
}
