// Package taint describes taint analysis problems: which calls produce
// tainted values (sources), which call arguments must not receive them
// (sinks), and which calls move taint between their arguments, receiver and
// result (transfers).
//
// Configurations are written in YAML:
//
//	sources:
//	  - {method: "Source.read()", type: String}
//	sinks:
//	  - {method: "Sink.write(String)", index: 0}
//	transfers:
//	  - {method: "String.concat(String)", from: base, to: result, type: String}
//	  - {method: "StringBuilder.append(String)", from: 0, to: base}
package taint

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrConfig is wrapped by errors reporting an invalid configuration.
var ErrConfig = errors.New("invalid taint configuration")

// Position designates a value at a call site: an argument index, the
// receiver (Base) or the call result (Result).
type Position int

const (
	Base   Position = -1
	Result Position = -2
)

func (p Position) String() string {
	switch p {
	case Base:
		return "base"
	case Result:
		return "result"
	default:
		return strconv.Itoa(int(p))
	}
}

// ParsePosition parses "base", "result" or a non-negative argument index.
func ParsePosition(s string) (Position, error) {
	switch s {
	case "base":
		return Base, nil
	case "result":
		return Result, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: bad position %q", ErrConfig, s)
	}
	return Position(i), nil
}

func (p *Position) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d: position must be a scalar", ErrConfig, node.Line)
	}
	pos, err := ParsePosition(node.Value)
	if err != nil {
		return err
	}
	*p = pos
	return nil
}

func (p Position) MarshalYAML() (any, error) {
	return p.String(), nil
}

// Source marks calls to Method as producing a tainted value of type Type.
// The rule applies only if the return type of the method is Type.
type Source struct {
	Method string `yaml:"method"`
	Type   string `yaml:"type"`
}

// Sink marks argument Index of calls to Method as a sink.
type Sink struct {
	Method string `yaml:"method"`
	Index  int    `yaml:"index"`
}

// Transfer makes taint reaching position From of a call to Method also reach
// position To. The transferred taint takes type Type, or keeps its type when
// Type is empty.
type Transfer struct {
	Method string   `yaml:"method"`
	From   Position `yaml:"from"`
	To     Position `yaml:"to"`
	Type   string   `yaml:"type"`
}

// Config is an immutable set of taint rules.
type Config struct {
	Sources   []Source   `yaml:"sources"`
	Sinks     []Sink     `yaml:"sinks"`
	Transfers []Transfer `yaml:"transfers"`
}

// Load reads the configuration in the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML configuration and checks it for consistency.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	cfg := new(Config)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every rule names a method and uses sensible positions.
func (c *Config) Validate() error {
	var errs []error
	for _, s := range c.Sources {
		if s.Method == "" || s.Type == "" {
			errs = append(errs, fmt.Errorf("%w: source %+v needs method and type", ErrConfig, s))
		}
	}
	for _, s := range c.Sinks {
		if s.Method == "" || s.Index < 0 {
			errs = append(errs, fmt.Errorf("%w: sink %+v needs method and a non-negative index", ErrConfig, s))
		}
	}
	for _, t := range c.Transfers {
		switch {
		case t.Method == "":
			errs = append(errs, fmt.Errorf("%w: transfer %+v needs a method", ErrConfig, t))
		case t.From == Result:
			errs = append(errs, fmt.Errorf("%w: transfer for %s cannot start at the result", ErrConfig, t.Method))
		case t.From == t.To:
			errs = append(errs, fmt.Errorf("%w: transfer for %s goes from %v to itself", ErrConfig, t.Method, t.From))
		}
	}
	return errors.Join(errs...)
}
