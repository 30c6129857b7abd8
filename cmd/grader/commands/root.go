// Package commands implements the grader CLI.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/nulzo/vision-grader/internal/bootstrap"
	"github.com/nulzo/vision-grader/internal/cli"
	"github.com/nulzo/vision-grader/internal/config"
	"github.com/nulzo/vision-grader/internal/platform/logger"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	verbose    bool
	noColor    bool
	record     bool
}

// NewRootCmd builds the CLI with every subcommand registered.
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "grader",
		Short: "Grade images with whichever vision model each slot points at",
		Long: `grader sends an image and a prompt to an OpenAI-style vision endpoint,
discovering the URL, payload and image encoding the vendor accepts.

Examples:
  grader test
  grader grade --slot first --image answer.jpg --prompt "Score this answer out of 10"
  grader strategy show second`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if opts.noColor {
				cli.SetEnabled(false)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "path to a config file")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log engine activity")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&opts.record, "record", false, "write calls to the configured call store")

	rootCmd.AddCommand(
		newGradeCmd(opts),
		newTestCmd(opts),
		newStrategyCmd(opts),
		newVersionCmd(version),
	)

	return rootCmd
}

// load reads config and assembles the engine for a single CLI run.
func (o *rootOptions) load(ctx context.Context) (*config.Config, *bootstrap.App, error) {
	if o.configFile != "" {
		if err := os.Setenv("CONFIG_FILE", o.configFile); err != nil {
			return nil, nil, err
		}
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	level := "warn"
	if o.verbose {
		level = "debug"
	}
	log, _, err := logger.New(logger.FromSettings(level, "console"))
	if err != nil {
		return nil, nil, err
	}

	var bopts []bootstrap.Option
	if !o.record {
		bopts = append(bopts, bootstrap.WithoutStore())
	}

	app, err := bootstrap.New(ctx, cfg, log.Named("grader"), bopts...)
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}
	return cfg, app, nil
}

func closeApp(cmd *cobra.Command, app *bootstrap.App) {
	if err := app.Close(cmd.Context()); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s shutdown: %v\n", cli.CrossMark(), err)
	}
}
