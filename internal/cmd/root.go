// Package cmd implements the crew command line interface.
package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crewkit/crew/internal/config"
	crewerrors "github.com/crewkit/crew/internal/errors"
)

var rootCmd = &cobra.Command{
	Use:   "crew",
	Short: "Multi-agent workflow orchestrator",
	Long: `Crew runs teams of model-backed agents against a project.

Agents, teams, and workflows are defined under the project's .crew directory.
Configuration merges from the global config, the project config, and -c
overrides, in that order.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Exit codes. Config, reference, and selection failures are distinguishable
// from generic errors for scripting.
const (
	exitOK        = 0
	exitGeneric   = 1
	exitConfig    = 2
	exitNotFound  = 3
	exitSelection = 4
	exitStep      = 5
)

// ExitCode maps an error to the process exit code. A step failure caused by
// an invalid selection reports the selection code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case crewerrors.IsConfigInvalid(err):
		return exitConfig
	case crewerrors.IsNotFound(err):
		return exitNotFound
	case crewerrors.IsSelectionInvalid(err):
		return exitSelection
	case crewerrors.IsStepFailed(err):
		return exitStep
	}
	return exitGeneric
}

var (
	flagChdir     string
	flagOverrides []string
)

func init() {
	cobra.OnInitialize(initViper)

	rootCmd.PersistentFlags().StringVarP(&flagChdir, "chdir", "C", "", "run as if started in this directory")
	rootCmd.PersistentFlags().StringArrayVarP(&flagOverrides, "config", "c", nil, "config override as dotted.path=value (repeatable)")
	rootCmd.PersistentFlags().String("log-level", "INFO", "log level (DEBUG, INFO, WARN, ERROR)")
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initViper() {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("CREW")
	// CREW_LOG_LEVEL binds to log_level, and so on for nested keys.
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

// resolveConfig produces the effective configuration for this invocation,
// honoring -C and -c.
func resolveConfig() (*config.EffectiveConfig, error) {
	cwd := flagChdir
	if cwd == "" {
		var err error
		cwd, err = os.Getwd()
		if err != nil {
			return nil, err
		}
	}

	r := &config.Resolver{GlobalFile: config.GlobalConfigFile()}
	return r.Resolve(cwd, flagOverrides)
}
