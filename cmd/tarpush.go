// Package cmd holds the tarpush cobra commands.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bnema/tarpush/internal/common"
	"github.com/bnema/tarpush/internal/server"
	"github.com/bnema/tarpush/pkg/logger"

	_ "github.com/joho/godotenv/autoload"
)

// cliContext carries what every command needs. Configuration is loaded lazily
// so "config init" and "version" work without a valid config file.
type cliContext struct {
	configPath string
	build      common.BuildConfig
}

func (c *cliContext) loadConfig() (*common.Config, error) {
	cfg, err := common.LoadConfig(c.configPath)
	if err != nil {
		return nil, err
	}
	cfg.Build = c.build

	log := logger.GetLogger()
	log.SetLogLevel(cfg.General.LogLevel)
	log.SetFormat(cfg.General.LogFormat)
	log.ConfigureFromEnv()
	return cfg, nil
}

func (c *cliContext) loadApp() (*server.App, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	return server.NewApp(cfg, logger.GetLogger())
}

// NewRootCommand builds the command tree.
func NewRootCommand(build common.BuildConfig) *cobra.Command {
	c := &cliContext{build: build}

	rootCmd := &cobra.Command{
		Use:          "tarpush",
		Short:        "Load docker image archives and push them to a registry",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/tarpush/config.yml)")

	rootCmd.AddCommand(
		NewServeCommand(c),
		NewPushCommand(c),
		NewStatusCommand(c),
		NewCatalogCommand(c),
		NewVersionCommand(c),
		NewConfigCommand(c),
	)
	return rootCmd
}

func ExecuteCLI(build, commit, date string) {
	rootCmd := NewRootCommand(common.BuildConfig{
		BuildVersion: build,
		BuildCommit:  commit,
		BuildDate:    date,
	})
	cobra.CheckErr(rootCmd.Execute())
}
