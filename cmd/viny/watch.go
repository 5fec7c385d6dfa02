package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream change events from the backend",
	Long: `Print a line for every note created, modified or deleted in the
backend until interrupted. Only backends with change detection (the file
backend) support watching.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := openStore(ctx)
		if err != nil {
			fatal("Failed to open store", err)
		}
		defer store.Close()

		events, err := store.Watch(ctx)
		if err != nil {
			fatal("Failed to start watching", err)
		}

		for ev := range events {
			fmt.Printf("%s %s\n", ev.Type, ev.ID)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
