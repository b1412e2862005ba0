// Package config implements minijs configuration loading.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// File names searched by Load.
const (
	ProjectFile = ".minijs.yaml"
	UserDir     = ".minijs"
	UserFile    = "config.yaml"
)

// For loop modes.
const (
	ForLoopOnce    = "once"
	ForLoopIterate = "iterate"
)

// Config holds interpreter settings.
type Config struct {
	Log     LogConfig    `yaml:"log"`
	Budget  BudgetConfig `yaml:"budget"`
	ForLoop string       `yaml:"for_loop"`
	Output  OutputConfig `yaml:"output"`

	// Source is the file the config was read from, empty for defaults.
	Source string `yaml:"-"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// BudgetConfig holds optional execution limits. Nil means unlimited.
type BudgetConfig struct {
	TimeMs        *int64 `yaml:"time_ms"`
	MaxIterations *int64 `yaml:"max_iterations"`
}

// OutputConfig controls how print output reaches stdout.
type OutputConfig struct {
	Buffered bool `yaml:"buffered"`
}

// Error reports a config file that exists but cannot be used.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError aggregates config validation failures.
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

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Log:     LogConfig{Level: "none", Format: "text"},
		ForLoop: ForLoopOnce,
		Output:  OutputConfig{Buffered: true},
	}
}

// IterateFor reports whether for statements run as C-style loops.
func (c *Config) IterateFor() bool {
	return c.ForLoop == ForLoopIterate
}

// Load loads configuration for a program in projectDir.
// Precedence: project (.minijs.yaml) → user (~/.minijs/config.yaml) → defaults.
// Only the first file found is used; its unset fields keep their defaults.
func Load(projectDir string) (*Config, error) {
	// Try project config
	projectPath := filepath.Join(projectDir, ProjectFile)
	if cfg, err := LoadFile(projectPath); !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}

	// Try user config
	homeDir, err := os.UserHomeDir()
	if err == nil {
		userPath := filepath.Join(homeDir, UserDir, UserFile)
		if cfg, err := LoadFile(userPath); !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	}

	// Default
	return Defaults(), nil
}

// LoadFile reads a single YAML config file over the defaults.
// A missing file returns an error matching fs.ErrNotExist.
func LoadFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfg, err := Decode(file)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	cfg.Source = path
	return cfg, nil
}

// Decode parses YAML from r over the defaults and validates the result.
// An empty document yields the defaults.
func Decode(r io.Reader) (*Config, error) {
	cfg := Defaults()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	var issues []string
	switch c.Log.Level {
	case "debug", "info", "warn", "error", "none":
	default:
		issues = append(issues, fmt.Sprintf("log.level %q must be one of debug, info, warn, error, none", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		issues = append(issues, fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	switch c.ForLoop {
	case ForLoopOnce, ForLoopIterate:
	default:
		issues = append(issues, fmt.Sprintf("for_loop %q must be %s or %s", c.ForLoop, ForLoopOnce, ForLoopIterate))
	}
	if c.Budget.TimeMs != nil && *c.Budget.TimeMs <= 0 {
		issues = append(issues, "budget.time_ms must be positive")
	}
	if c.Budget.MaxIterations != nil && *c.Budget.MaxIterations <= 0 {
		issues = append(issues, "budget.max_iterations must be positive")
	}
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
