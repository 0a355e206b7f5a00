// Scopectl is a remote-control utility for Yokogawa DL7440/DL7480
// digital oscilloscopes.
//
// It discovers an oscilloscope over USB (with an mDNS network fallback),
// captures display screenshots, and saves, restores and undoes full
// configuration snapshots across eight slots. An interactive terminal
// front panel and an HTTP remote panel server expose the same
// operations.
//
// Usage:
//
//	scopectl [command] [flags]
//
// Running without arguments on a terminal launches the front panel.
// See 'scopectl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hfujise/scopectl/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "scopectl",
	Short: "Yokogawa DL7440/DL7480 Remote Control Utility",
	Long: `A remote-control utility for Yokogawa DL7440/DL7480 oscilloscopes.

Provides screenshot capture, configuration snapshot save/load with one
level of undo, an interactive terminal front panel, and an HTTP remote
panel server.

If no command is specified on a terminal, the front panel launches
automatically.`,
	Version: version.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return runPanel(cmd, args)
		}
		return cmd.Help()
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("scopectl %s (commit: %s)\n", version.Version, version.Commit)
	},
}
