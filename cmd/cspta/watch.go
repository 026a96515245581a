package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/BarrensZeppelin/cspta/internal/watcher"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var watchDelay time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch PROGRAM",
	Short: "Reanalyze a program whenever it or its configuration changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		out := cmd.OutOrStdout()
		program := args[0]

		opts, err := loadOptions(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(opts)
		if err != nil {
			return err
		}

		files := []string{program}
		if optionsFlag != "" {
			files = append(files, optionsFlag)
		}
		if opts.Taint != "" {
			files = append(files, opts.Taint)
		}

		fw, err := watcher.New(files, watchDelay, logger.WithField("component", "watcher"))
		if err != nil {
			return err
		}
		defer fw.Close()

		rerun := func() error {
			// Options may have changed on disk.
			opts, err := loadOptions(cmd)
			if err != nil {
				return err
			}
			return runAnalysis(ctx, out, program, opts)
		}

		if err := rerun(); err != nil {
			color.New(color.FgRed).Fprintln(cmd.ErrOrStderr(), err)
		}
		color.New(color.FgCyan).Fprintf(cmd.ErrOrStderr(), "watching %v, press Ctrl+C to stop\n", files)

		err = fw.Run(ctx, func(changed []string) error {
			logger.WithField("files", changed).Info("reanalyzing")
			return rerun()
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	addAnalysisFlags(watchCmd)
	watchCmd.Flags().DurationVar(&watchDelay, "delay", 300*time.Millisecond, "Wait this long for changes to settle before reanalyzing")
}
