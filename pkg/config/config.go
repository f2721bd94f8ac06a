// Package config loads the YAML configuration of strand.
//
// A configuration file looks like:
//
//	eval:
//	  eager-calls: false
//	  arg-cache-size: 4
//	  timeout: 10s
//	log:
//	  file: /tmp/strand.log
//	store:
//	  path: values.db
//	  timeout: 1s
//	instrument:
//	  trace: true
//
// All keys are optional.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the configuration of the runtime and the command.
type Config struct {
	Eval       Eval       `yaml:"eval"`
	Log        Log        `yaml:"log"`
	Store      Store      `yaml:"store"`
	Instrument Instrument `yaml:"instrument"`
}

// Eval configures the Evaler.
type Eval struct {
	// Make calls in tail position directly instead of deferring them.
	EagerCalls bool `yaml:"eager-calls"`
	// Entries of the argument matching cache of each call site, 1 to 4.
	ArgCacheSize int `yaml:"arg-cache-size"`
	// Interrupt the program after this long; 0 means no limit.
	Timeout time.Duration `yaml:"timeout"`
}

// Log configures debug logging.
type Log struct {
	File string `yaml:"file"`
}

// Store configures the value log. It is disabled when Path is empty.
type Store struct {
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"`
}

// Instrument configures the observation of expression values.
type Instrument struct {
	// Print the value of every identified expression.
	Trace bool `yaml:"trace"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Eval:  Eval{ArgCacheSize: 4},
		Store: Store{Timeout: time.Second},
	}
}

// ValidationError aggregates the problems of a configuration.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid configuration:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// Load reads the configuration from a file. A missing file gives the default
// configuration.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	} else if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()
	cfg, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse reads the configuration from r. Keys that are not known are
// rejected; missing keys keep their default values.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	var issues []string
	if n := cfg.Eval.ArgCacheSize; n < 1 || n > 4 {
		issues = append(issues, fmt.Sprintf("eval.arg-cache-size must be from 1 to 4, got %d", n))
	}
	if cfg.Eval.Timeout < 0 {
		issues = append(issues, "eval.timeout must not be negative")
	}
	if cfg.Store.Timeout < 0 {
		issues = append(issues, "store.timeout must not be negative")
	}
	if len(issues) > 0 {
		return &ValidationError{issues}
	}
	return nil
}
