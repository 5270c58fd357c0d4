package main

import (
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hyobinnSeo/VoiceSync/config"
)

type commandContext struct {
	configFlag *string

	once   sync.Once
	config *config.Config
	log    *logrus.Logger
	err    error
}

func (c *commandContext) ensureConfig() (*config.Config, *logrus.Logger, error) {
	c.once.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(*c.configFlag))
		if err != nil {
			c.err = err
			return
		}
		log, err := config.NewLogger(cfg.Logging, os.Stdout)
		if err != nil {
			c.err = err
			return
		}
		c.config = cfg
		c.log = log
	})
	return c.config, c.log, c.err
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &commandContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "cliphive",
		Short:         "Short-form video narration gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (.toml, .yaml)")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newReplayCommand())
	rootCmd.AddCommand(newTimecodeCommand())
	return rootCmd
}
