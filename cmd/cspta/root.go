package main

import (
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/BarrensZeppelin/cspta/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	optionsFlag    string
	logLevelFlag   string
	cpuprofileFlag string

	stopProfile func()
)

var rootCmd = &cobra.Command{
	Use:   "cspta",
	Short: "Context-sensitive pointer analysis with taint tracking",
	Long: `cspta computes points-to sets and an on-the-fly call graph for a program
described in YAML, optionally reporting taint flows from sources to sinks.

Examples:
  cspta analyze prog.yml                        # Context-insensitive analysis
  cspta analyze --cs 2-obj --taint t.yml prog.yml
  cspta analyze --json --verify-order prog.yml  # Check that FIFO and LIFO agree
  cspta watch --options opts.yml prog.yml       # Reanalyze on every change`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cpuprofileFlag == "" {
			return nil
		}
		f, err := os.Create(cpuprofileFlag)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		stopProfile = func() {
			pprof.StopCPUProfile()
			f.Close()
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopProfile != nil {
			stopProfile()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&optionsFlag, "options", "c", "", "Path to an options file (YAML)")
	pf.StringVar(&logLevelFlag, "log-level", "", "Log level (overrides the options file)")
	pf.StringVar(&cpuprofileFlag, "cpuprofile", "", "Write a CPU profile to `file`")

	rootCmd.AddCommand(analyzeCmd, watchCmd)
}

// loadOptions reads the options file, if any, and applies the flags that
// were set on the command line.
func loadOptions(cmd *cobra.Command) (*config.Options, error) {
	opts := config.Default()
	if optionsFlag != "" {
		var err error
		if opts, err = config.Load(optionsFlag); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("cs") {
		opts.ContextSensitivity = analysisFlags.cs
	}
	if flags.Changed("order") {
		opts.Order = analysisFlags.order
	}
	if flags.Changed("taint") {
		opts.Taint = analysisFlags.taint
	}
	if flags.Changed("max-work-items") {
		opts.MaxWorkItems = analysisFlags.maxWorkItems
	}
	if flags.Changed("timeout") {
		opts.Timeout = analysisFlags.timeout
	}
	if flags.Changed("log-level") {
		opts.LogLevel = logLevelFlag
	}
	return opts, opts.Validate()
}

func newLogger(opts *config.Options) (*logrus.Logger, error) {
	return config.NewLogger(os.Stderr, opts.LogLevel)
}
