// Package config holds the options of an analysis run, as read from a YAML
// options file and overridden on the command line.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	pointer "github.com/BarrensZeppelin/cspta"
	"github.com/BarrensZeppelin/cspta/taint"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Options configures an analysis run.
type Options struct {
	// Context sensitivity, e.g. "ci", "2-call", "1-obj" or "2-type"
	ContextSensitivity string `yaml:"cs"`

	// Worklist order, "fifo" or "lifo"
	Order string `yaml:"order"`

	// Path of the taint configuration, relative to the options file
	Taint string `yaml:"taint,omitempty"`

	LogLevel string `yaml:"log-level"`

	// Zero means no limit
	MaxWorkItems int           `yaml:"max-work-items"`
	Timeout      time.Duration `yaml:"timeout"`
}

func Default() *Options {
	return &Options{
		ContextSensitivity: "ci",
		Order:              "fifo",
		LogLevel:           "warning",
	}
}

// Load reads options from the YAML file at path. Missing keys keep their
// default values.
func Load(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading options: %w", err)
	}

	opts, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if opts.Taint != "" && !filepath.IsAbs(opts.Taint) {
		opts.Taint = filepath.Join(filepath.Dir(path), opts.Taint)
	}
	return opts, nil
}

// Parse decodes options from YAML and validates them.
func Parse(data []byte) (*Options, error) {
	opts := Default()
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("parsing options: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func (o *Options) Validate() error {
	var errs []error
	if _, err := pointer.SelectorByName(o.ContextSensitivity); err != nil {
		errs = append(errs, err)
	}
	if _, err := pointer.ParseOrder(o.Order); err != nil {
		errs = append(errs, err)
	}
	if _, err := logrus.ParseLevel(o.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if o.MaxWorkItems < 0 {
		errs = append(errs, fmt.Errorf("max-work-items must not be negative, got %d", o.MaxWorkItems))
	}
	if o.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %v", o.Timeout))
	}
	return errors.Join(errs...)
}

// AnalysisConfig builds the configuration of pointer.Analyze from o. The
// taint configuration is loaded if o names one.
func (o *Options) AnalysisConfig(logger *logrus.Logger) (pointer.AnalysisConfig, error) {
	var config pointer.AnalysisConfig
	if err := o.Validate(); err != nil {
		return config, err
	}

	config.Selector, _ = pointer.SelectorByName(o.ContextSensitivity)
	config.Order, _ = pointer.ParseOrder(o.Order)
	config.MaxWorkItems = o.MaxWorkItems
	config.Logger = logger

	if o.Taint != "" {
		tc, err := taint.Load(o.Taint)
		if err != nil {
			return config, err
		}
		config.Taint = tc
	}
	return config, nil
}

// NewLogger returns a text logger on w at the given level.
func NewLogger(w io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	return logger, nil
}
