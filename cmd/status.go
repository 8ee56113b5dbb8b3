package cmd

import (
	"github.com/spf13/cobra"
)

func NewStatusCommand(c *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the docker daemon, registry and local images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.loadApp()
			if err != nil {
				return err
			}
			defer a.Shutdown()

			printStatus(cmd.OutOrStdout(), a.Status(cmd.Context()))
			return nil
		},
	}
}

func NewCatalogCommand(c *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the repositories and tags of the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.loadApp()
			if err != nil {
				return err
			}
			defer a.Shutdown()

			repos, err := a.Registry.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			printCatalog(cmd.OutOrStdout(), a.Registry.URL(), repos)
			return nil
		},
	}
}
