package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/velveeva/internal/build"
	"github.com/ShayCichocki/velveeva/internal/config"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "velveeva",
	Short: "Slide build pipeline for Veeva CLM presentations",
	Long: `velveeva builds slide decks for the Veeva content platform.

A build is a set of goals (clean, bake, package, publish, ...). Each goal
names the tasks it needs; velveeva pulls in their prerequisites, orders
them into stages, runs independent tasks of a stage in parallel and stops
at the first failure.

Project settings live in VELVEEVA-config.json at the project root.
Run 'velveeva init' to create one.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the build exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var silent *silentError
		if !errors.As(err, &silent) {
			printStatus("✗", err.Error(), colorError)
		}
		os.Exit(build.ExitCode(err))
	}
}

// silentError carries an error that has already been reported to the user.
type silentError struct {
	err error
}

func (e *silentError) Error() string { return e.err.Error() }
func (e *silentError) Unwrap() error { return e.err }

// loadConfig loads the configuration at path, or the one found by searching
// upward from the working directory when path is empty.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, config.ErrNotFound) {
		return nil, fmt.Errorf("%w (run 'velveeva init' to create one)", err)
	}
	return cfg, err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to "+config.FileName)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Chatty output")

	rootCmd.AddCommand(goCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}
