package cmd

import (
	"os"

	"github.com/encodeous/ripple/core"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <config>",
	Short: "Run a router",
	Long: `Runs a router from a YAML configuration or a topology file.
A topology file names this router on its first line and one neighbour per following line:

	127.0.0.1 1000
	127.0.0.1 1001 5

While running, PRINT, NEIGHBOURS, MSG and CHANGE commands are read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := core.RunOptions{}
		opts.Verbose, _ = cmd.Flags().GetBool("verbose")
		opts.LogPath, _ = cmd.Flags().GetString("log")
		opts.DebugAddr, _ = cmd.Flags().GetString("debug")
		if cmd.Flags().Changed("ctl") {
			opts.CtlAddr = ctlAddr
		}
		if noConsole, _ := cmd.Flags().GetBool("no-console"); !noConsole {
			opts.Console = os.Stdin
		}
		cmd.SilenceUsage = true
		return core.Bootstrap(args[0], opts)
	},
	GroupID: "rt",
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().StringP("log", "l", "", "Also write logs to this file, rotated")
	runCmd.Flags().String("debug", "", "Serve /debug/vars and /debug/metrics on this address")
	runCmd.Flags().Bool("no-console", false, "Do not read commands from stdin")
}
