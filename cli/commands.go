package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	cfg "github.com/maastricht-university/therapy-tagger/config"
	"github.com/maastricht-university/therapy-tagger/features"
)

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Train on the labeled folder and tag every workbook in the unlabeled folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, opts)
		},
	}
}

func newEvaluateCommand(opts *options) *cobra.Command {
	var showTree bool
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Train and report held-out accuracy without touching unlabeled files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			corpus, _, err := p.Aggregate(cmd.Context())
			if err != nil {
				return err
			}
			tr, err := p.Train(corpus)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sentences: %d\neval: %d\ntrain: %d\naccuracy: %.4f\n",
				tr.Sentences, tr.EvalSize, tr.TrainSize, tr.Accuracy)
			if showTree {
				return tr.Model.Pretty(out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showTree, "tree", false, "print the trained tree")
	return cmd
}

func newClassifyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <sentence>...",
		Short: "Train, then print the predicted tag for each sentence given",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			corpus, _, err := p.Aggregate(cmd.Context())
			if err != nil {
				return err
			}
			tr, err := p.Train(corpus)
			if err != nil {
				return err
			}
			for _, s := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", tr.Model.Predict(features.Extract(s)), strings.TrimSpace(s))
			}
			return nil
		},
	}
}

func newConfigCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.load()
			if err != nil {
				return err
			}
			return cfg.Write(cmd.OutOrStdout(), c)
		},
	}
}
