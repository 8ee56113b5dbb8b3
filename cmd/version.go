package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewVersionCommand(c *cliContext) *cobra.Command {
	var short bool

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			version := c.build.BuildVersion
			if version == "" {
				version = "dev"
			}
			if short {
				fmt.Fprintln(out, version)
				return
			}
			fmt.Fprintf(out, "tarpush %s\n", version)
			fmt.Fprintf(out, "Commit: %s\n", c.build.BuildCommit)
			fmt.Fprintf(out, "Built: %s\n", c.build.BuildDate)
		},
	}
	versionCmd.Flags().BoolVarP(&short, "short", "s", false, "Show only version number")
	return versionCmd
}
