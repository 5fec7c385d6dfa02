package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomymaritano/viny-sub001/pkg/core"
)

var (
	notebookID     string
	notebookName   string
	notebookColor  string
	notebookParent string
)

var notebookCmd = &cobra.Command{
	Use:   "notebook",
	Short: "Manage notebooks",
}

var notebookSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create or update a notebook",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store, err := openStore(ctx)
		if err != nil {
			fatal("Failed to open store", err)
		}
		defer store.Close()

		book := core.Notebook{
			ID:       notebookID,
			Name:     notebookName,
			Color:    notebookColor,
			ParentID: notebookParent,
		}

		if notebookID != "" {
			existing, err := store.GetNotebook(ctx, notebookID)
			if err != nil {
				fatal("Failed to load notebook", err)
			}
			book.CreatedAt = existing.CreatedAt
			book.Revision = existing.Revision
			if book.Name == "" {
				book.Name = existing.Name
			}
		}

		saved, err := store.SaveNotebook(ctx, book)
		if err != nil {
			fatal("Failed to save notebook", err)
		}
		fmt.Printf("Notebook '%s' saved.\n", saved.ID)
	},
}

var notebookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all notebooks",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store, err := openStore(ctx)
		if err != nil {
			fatal("Failed to open store", err)
		}
		defer store.Close()

		books, err := store.ListNotebooks(ctx)
		if err != nil {
			fatal("Failed to list notebooks", err)
		}

		for _, book := range books {
			parent := ""
			if book.ParentID != "" {
				parent = fmt.Sprintf("  (in %s)", book.ParentID)
			}
			fmt.Printf("%s  %s%s\n", book.ID, book.Name, parent)
		}
	},
}

var notebookDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Permanently delete a notebook",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store, err := openStore(ctx)
		if err != nil {
			fatal("Failed to open store", err)
		}
		defer store.Close()

		if err := store.DeleteNotebook(ctx, args[0]); err != nil {
			fatal("Failed to delete notebook", err)
		}
		fmt.Printf("Notebook '%s' deleted.\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(notebookCmd)
	notebookCmd.AddCommand(notebookSaveCmd)
	notebookCmd.AddCommand(notebookListCmd)
	notebookCmd.AddCommand(notebookDeleteCmd)

	notebookSaveCmd.Flags().StringVar(&notebookID, "id", "", "Notebook ID (omit to create)")
	notebookSaveCmd.Flags().StringVarP(&notebookName, "name", "n", "", "Notebook name")
	notebookSaveCmd.Flags().StringVar(&notebookColor, "color", "", "Display color (#rrggbb)")
	notebookSaveCmd.Flags().StringVar(&notebookParent, "parent", "", "Parent notebook ID")
}
