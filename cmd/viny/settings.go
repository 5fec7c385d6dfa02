package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var settingsCategory string

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage key-value settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a setting",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store, err := openStore(ctx)
		if err != nil {
			fatal("Failed to open store", err)
		}
		defer store.Close()

		value, err := store.GetSetting(ctx, settingsCategory, args[0])
		if err != nil {
			fatal("Failed to read setting", err)
		}
		fmt.Println(value)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a setting",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store, err := openStore(ctx)
		if err != nil {
			fatal("Failed to open store", err)
		}
		defer store.Close()

		if err := store.SetSetting(ctx, settingsCategory, args[0], args[1]); err != nil {
			fatal("Failed to write setting", err)
		}
	},
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a setting",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store, err := openStore(ctx)
		if err != nil {
			fatal("Failed to open store", err)
		}
		defer store.Close()

		if err := store.DeleteSetting(ctx, settingsCategory, args[0]); err != nil {
			fatal("Failed to remove setting", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsUnsetCmd)
	settingsCmd.PersistentFlags().StringVar(&settingsCategory, "category", "app", "Settings namespace")
}
