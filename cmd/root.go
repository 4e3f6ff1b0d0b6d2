// Package cmd provides the command-line interface of pktsim.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pktsim",
	Short: "pktsim simulates packets flowing between nodes with bounded buffers.",
	Long: `pktsim generates random packets between a set of nodes, admits ` +
		`them into the sender's buffer when there is room, drops them ` +
		`otherwise, and shows the load of every node while it runs.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Exit handlers, such as the recorder flush, run before the
// process exits.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
