// Package cli implements the apmctl command tree.
package cli

import (
	"github.com/opd-ai/apm/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// state is shared by every subcommand of one command tree.
type state struct {
	configPath string
	settings   *config.Settings
}

// RootCommand creates and returns the root command.
func RootCommand() *cobra.Command {
	st := &state{}

	rootCmd := &cobra.Command{
		Use:           "apmctl",
		Short:         "Audio processing module CLI",
		Long:          "Run capture audio through high-pass filtering, noise gating, gain control and echo suppression.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&st.configPath, "config", "", "Path to a YAML config file (default ./apm.yaml if present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return st.initialize(cmd)
	}

	rootCmd.AddCommand(
		processCommand(st),
		configCommand(st),
		versionCommand(),
	)

	return rootCmd
}

// initialize loads settings and configures logging before any subcommand runs.
func (st *state) initialize(cmd *cobra.Command) error {
	v := config.New(st.configPath)
	if err := v.BindPFlag("log.level", cmd.Root().PersistentFlags().Lookup("log-level")); err != nil {
		return err
	}

	settings, err := config.LoadFrom(v, st.configPath != "")
	if err != nil {
		return err
	}
	st.settings = settings

	// Validate has already accepted the level.
	level, _ := logrus.ParseLevel(settings.Log.Level)
	logrus.SetLevel(level)
	logrus.SetOutput(cmd.ErrOrStderr())
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return nil
}
