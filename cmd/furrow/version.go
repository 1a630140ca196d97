package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/furrow"
	"github.com/aretw0/furrow/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of furrow",
	Run: func(cmd *cobra.Command, args []string) {
		if banner, _ := cmd.Flags().GetBool("banner"); banner {
			tui.PrintBanner(cmd.OutOrStdout(), strings.TrimSpace(furrow.Version))
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "furrow version %s\n", strings.TrimSpace(furrow.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("banner", false, "Print the banner as well")
}
