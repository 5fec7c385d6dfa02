package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/tomymaritano/viny-sub001/pkg/core"
)

var (
	listJSON    bool
	listTag     string
	listTrashed bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all notes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store, err := openStore(ctx)
		if err != nil {
			fatal("Failed to open store", err)
		}
		defer store.Close()

		notes, err := store.ListNotes(ctx)
		if err != nil {
			fatal("Failed to list notes", err)
		}

		var filtered []core.Note
		for _, note := range notes {
			if note.IsTrashed && !listTrashed {
				continue
			}
			if listTag != "" && !slices.Contains(note.Tags, listTag) {
				continue
			}
			filtered = append(filtered, note)
		}

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(filtered); err != nil {
				fatal("Failed to encode JSON", err)
			}
			return
		}

		for _, note := range filtered {
			marker := " "
			if note.IsPinned {
				marker = "*"
			}
			fmt.Printf("%s %s  %s\n", marker, note.ID, note.Title)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().StringVar(&listTag, "tag", "", "Filter notes by tag")
	listCmd.Flags().BoolVar(&listTrashed, "trashed", false, "Include trashed notes")
}
