// Package cli wires the avalink client commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/yeonbit/avalink/internal/util"
)

var version = "dev"

var debugFlag bool

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "avalink",
	Short:   "Peer-to-peer avatar sessions over WebRTC",
	Long:    `Avalink connects two participants through a room on a signaling relay, negotiates a direct WebRTC session between them, and streams avatar parameter snapshots over an unordered data channel. The relay only carries negotiation traffic; once connected, snapshots flow peer to peer.`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debugFlag {
			util.EnableDebug()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
}

// Execute runs the CLI. Called once from main.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
}
