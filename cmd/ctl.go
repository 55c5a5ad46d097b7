package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/encodeous/ripple/core"
	"github.com/spf13/cobra"
)

func ctlCommand(use, short string, args cobra.PositionalArgs, build func(args []string) string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			line := build(args)
			if _, err := core.ParseCommand(line); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			res, err := core.CtlRequest(ctx, ctlAddr, line)
			if err != nil {
				return err
			}
			fmt.Print(res)
			return nil
		},
		GroupID: "ctl",
	}
}

func init() {
	rootCmd.AddCommand(ctlCommand("print", "Prints the routing table of a running router",
		cobra.NoArgs, func([]string) string { return core.CmdPrint }))
	rootCmd.AddCommand(ctlCommand("neighbours", "Prints the neighbours of a running router and the vectors they advertised",
		cobra.NoArgs, func([]string) string { return core.CmdNeighbours }))
	rootCmd.AddCommand(ctlCommand("change <dst-ip> <dst-port> <new-weight>", "Changes the weight of a link",
		cobra.ExactArgs(3), func(args []string) string {
			return core.CmdChange + " " + strings.Join(args, " ")
		}))
	rootCmd.AddCommand(ctlCommand("msg <dst-ip> <dst-port> <msg>", "Sends a message to another router",
		cobra.MinimumNArgs(3), func(args []string) string {
			return core.CmdMsg + " " + strings.Join(args, " ")
		}))
}
