package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	pointer "github.com/BarrensZeppelin/cspta"
	"github.com/BarrensZeppelin/cspta/config"
	"github.com/BarrensZeppelin/cspta/irutil"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var analysisFlags struct {
	cs           string
	order        string
	taint        string
	maxWorkItems int
	timeout      time.Duration
	json         bool
	verifyOrder  bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze PROGRAM",
	Short: "Analyze a program once and print a report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions(cmd)
		if err != nil {
			return err
		}
		return runAnalysis(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
	},
}

func addAnalysisFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&analysisFlags.cs, "cs", "ci", "Context sensitivity: ci, <k>-call, <k>-obj or <k>-type")
	f.StringVar(&analysisFlags.order, "order", "fifo", "Worklist order: fifo or lifo")
	f.StringVarP(&analysisFlags.taint, "taint", "t", "", "Path to a taint configuration (YAML)")
	f.IntVar(&analysisFlags.maxWorkItems, "max-work-items", 0, "Give up after this many work items (0 means no limit)")
	f.DurationVar(&analysisFlags.timeout, "timeout", 0, "Give up after this long (0 means no limit)")
	f.BoolVar(&analysisFlags.json, "json", false, "Print the report as JSON")
	f.BoolVar(&analysisFlags.verifyOrder, "verify-order", false, "Also run with the other worklist order and compare the results")
}

func init() {
	addAnalysisFlags(analyzeCmd)
}

func runAnalysis(ctx context.Context, out io.Writer, programPath string, opts *config.Options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := newLogger(opts)
	if err != nil {
		return err
	}

	prog, err := irutil.LoadProgramFile(programPath)
	if err != nil {
		return err
	}

	ac, err := opts.AnalysisConfig(logger)
	if err != nil {
		return err
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	ac.Program = prog
	res, err := analyze(ctx, ac, logger)
	if err != nil && !errors.Is(err, pointer.ErrIncomplete) {
		return err
	}
	if err != nil {
		logger.WithError(err).Warn("reporting partial results")
	}

	rep := newReport(programPath, opts.ContextSensitivity, res)
	if analysisFlags.json {
		return rep.writeJSON(out)
	}
	rep.writeText(out, useColor(out))
	return nil
}

// analyze runs the analysis. With --verify-order, the other worklist order is
// run concurrently and the two results must agree.
func analyze(ctx context.Context, ac pointer.AnalysisConfig, logger *logrus.Logger) (*pointer.Result, error) {
	if !analysisFlags.verifyOrder {
		return pointer.Analyze(ctx, ac)
	}

	other := ac
	other.Order = pointer.LIFO
	if ac.Order == pointer.LIFO {
		other.Order = pointer.FIFO
	}

	var results [2]*pointer.Result
	var g errgroup.Group
	for i, c := range [...]pointer.AnalysisConfig{ac, other} {
		g.Go(func() error {
			res, err := pointer.Analyze(ctx, c)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results[0], err
	}

	if diff := results[0].Snapshot().Diff(results[1].Snapshot()); len(diff) != 0 {
		return nil, fmt.Errorf("%v and %v orders disagree:\n  %s",
			ac.Order, other.Order, strings.Join(diff, "\n  "))
	}
	logger.WithField("order", other.Order).Info("worklist orders agree")
	return results[0], nil
}

func useColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}
