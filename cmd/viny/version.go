package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	viny "github.com/tomymaritano/viny-sub001"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of viny",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("viny version %s\n", strings.TrimSpace(viny.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
