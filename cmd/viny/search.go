package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search notes",
	Long: `Search notes by substring across title, content and tags.
Queries containing glob characters (* ? [ {) match against note IDs instead.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store, err := openStore(ctx)
		if err != nil {
			fatal("Failed to open store", err)
		}
		defer store.Close()

		notes, err := store.SearchNotes(ctx, args[0])
		if err != nil {
			fatal("Search failed", err)
		}

		for _, note := range notes {
			fmt.Printf("%s  %s\n", note.ID, note.Title)
		}
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
