package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var ctlAddr string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ripple",
	Short: "Ripple distance-vector router",
	Long: `Ripple is a distance-vector router.
Each router exchanges its routing table with its neighbours over UDP and converges on the cheapest path to every reachable router.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "rt",
		Title: "Router Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "ctl",
		Title: "Control a Running Router",
	})
	rootCmd.PersistentFlags().StringVarP(&ctlAddr, "ctl", "a", "127.0.0.1:5200", "control address of the running router")
}
