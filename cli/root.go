// Package cli holds the cobra commands of the therapy-tagger binary.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cfg "github.com/maastricht-university/therapy-tagger/config"
	"github.com/maastricht-university/therapy-tagger/orchestrator"
)

type options struct {
	configPath string
	logLevel   string
	noProgress bool
}

// NewRootCommand builds the command tree. Without a subcommand the full
// pipeline runs, like the run subcommand.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "therapy-tagger",
		Short:         "Tag therapist utterances in session transcripts",
		Long:          "Trains a decision tree on manually classified transcripts and writes predicted tags into unclassified ones.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, opts)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.noProgress, "no-progress", false, "disable the progress bar")

	root.AddCommand(
		newRunCommand(opts),
		newEvaluateCommand(opts),
		newClassifyCommand(opts),
		newConfigCommand(opts),
	)
	return root
}

func (o *options) load() (*cfg.Root, error) {
	c, err := cfg.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		c.Pipeline.LogLvl = o.logLevel
	}
	if o.noProgress {
		c.Pipeline.Progress = false
	}
	return c, nil
}

func newLogger(c *cfg.Root, out io.Writer) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(c.Pipeline.LogLvl)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(lvl)
	return log, nil
}

// setup loads config and builds the pipeline for a command.
func setup(cmd *cobra.Command, opts *options) (*orchestrator.Pipeline, error) {
	c, err := opts.load()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(c, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	log.WithField("version", c.Pipeline.Version).Debugf("%s starting", c.Pipeline.Name)
	return orchestrator.NewPipeline(c, log, cmd.ErrOrStderr()), nil
}

func runPipeline(cmd *cobra.Command, opts *options) error {
	p, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	_, err = p.Run(cmd.Context())
	return err
}

// Execute runs the root command and exits non-zero on failure.
func Execute(ctx context.Context, cmd *cobra.Command) {
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
