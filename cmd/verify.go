package cmd

import (
	"fmt"

	"github.com/encodeous/ripple/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <config>",
	Short: "Validates a configuration and prints it as YAML with defaults filled in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := state.ReadNodeConfig(args[0])
		if err != nil {
			return err
		}
		err = state.NodeConfigValidator(cfg)
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
	GroupID: "rt",
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
