package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scrivener/internal/config"
	"scrivener/internal/queue"
)

// cliContext lazily resolves the config and queue store shared by commands.
type cliContext struct {
	configFlag *string

	cfg   *config.Config
	store *queue.Store
}

func (c *cliContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, path, err := config.Load(*c.configFlag)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *cliContext) ensureStore() (*queue.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, err
	}
	c.store = store
	return store, nil
}

func (c *cliContext) close() {
	if c.store != nil {
		_ = c.store.Close()
		c.store = nil
	}
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &cliContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "scrivener",
		Short:         "Operator CLI for the scrivener document daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.close()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newQueueCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newStateCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
