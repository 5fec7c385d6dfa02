package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomymaritano/viny-sub001/pkg/core"
)

var (
	saveID       string
	saveTitle    string
	saveContent  string
	saveTags     []string
	saveNotebook string
	savePinned   bool
	saveStdin    bool
)

// saveCmd represents the save command
var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create or update a note",
	Long: `Create a note, or update an existing one when --id is given.
Content comes from --content, or from stdin with --stdin.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store, err := openStore(ctx)
		if err != nil {
			fatal("Failed to open store", err)
		}
		defer store.Close()

		note := core.Note{
			ID:         saveID,
			Title:      saveTitle,
			Content:    saveContent,
			Tags:       saveTags,
			NotebookID: saveNotebook,
			IsPinned:   savePinned,
		}

		if saveID != "" {
			existing, err := store.GetNote(ctx, saveID)
			if err != nil {
				fatal("Failed to load note", err)
			}
			note.CreatedAt = existing.CreatedAt
			note.Revision = existing.Revision
			if note.Title == "" {
				note.Title = existing.Title
			}
			if note.Content == "" && !saveStdin {
				note.Content = existing.Content
			}
		}

		if saveStdin {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				fatal("Failed to read stdin", err)
			}
			note.Content = string(data)
		}

		saved, err := store.SaveNote(ctx, note)
		if err != nil {
			fatal("Failed to save note", err)
		}

		fmt.Printf("Note '%s' saved (revision %s).\n", saved.ID, saved.Revision)
	},
}

func init() {
	rootCmd.AddCommand(saveCmd)
	saveCmd.Flags().StringVar(&saveID, "id", "", "Note ID (omit to create)")
	saveCmd.Flags().StringVarP(&saveTitle, "title", "t", "", "Note title")
	saveCmd.Flags().StringVar(&saveContent, "content", "", "Note content")
	saveCmd.Flags().StringSliceVar(&saveTags, "tag", nil, "Tags (repeatable)")
	saveCmd.Flags().StringVar(&saveNotebook, "notebook", "", "Notebook ID")
	saveCmd.Flags().BoolVar(&savePinned, "pinned", false, "Pin the note")
	saveCmd.Flags().BoolVar(&saveStdin, "stdin", false, "Read content from stdin")
}
