// Package config loads runtime configuration for pipelines.
//
// Configuration files are YAML (.yaml, .yml) or CUE (.cue, .json). CUE
// files are checked against an embedded schema before decoding; every
// format then goes through the same defaults and validation.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/illuin-tech/data-pipeline-sub000/archive"
	"github.com/illuin-tech/data-pipeline-sub000/pipeline"
	"github.com/illuin-tech/data-pipeline-sub000/sink"
	"github.com/illuin-tech/data-pipeline-sub000/step"
)

// Config is the runtime configuration of one pipeline.
type Config struct {
	Pipeline string `yaml:"pipeline" json:"pipeline"`
	// Workers is the async sink pool size; 0 means GOMAXPROCS.
	Workers      int                   `yaml:"workers" json:"workers"`
	CloseTimeout Duration              `yaml:"close_timeout" json:"close_timeout"`
	LogLevel     string                `yaml:"log_level" json:"log_level"`
	Steps        map[string]StepPolicy `yaml:"steps" json:"steps"`
	Journal      *JournalConfig        `yaml:"journal" json:"journal"`
	Archive      *archive.Config       `yaml:"archive" json:"archive"`
}

// StepPolicy wraps one step with retries and a time limit.
type StepPolicy struct {
	Retries   int      `yaml:"retries" json:"retries"`
	RetryWait Duration `yaml:"retry_wait" json:"retry_wait"`
	Timeout   Duration `yaml:"timeout" json:"timeout"`
}

// JournalConfig enables the SQLite result journal.
type JournalConfig struct {
	Path  string `yaml:"path" json:"path"`
	Async bool   `yaml:"async" json:"async"`
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Default returns the configuration used when no file is given.
func Default(pipelineID string) *Config {
	c := &Config{Pipeline: pipelineID}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.CloseTimeout == 0 {
		c.CloseTimeout = Duration(pipeline.DefaultCloseTimeout)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	if c.Archive != nil && c.Archive.Region == "" {
		c.Archive.Region = "us-east-1"
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.Pipeline == "" {
		return fmt.Errorf("pipeline is required")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.CloseTimeout < 0 {
		return fmt.Errorf("close_timeout must be >= 0, got %s", c.CloseTimeout)
	}
	if _, ok := logLevels[c.LogLevel]; !ok {
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	for id, p := range c.Steps {
		if p.Retries < 0 {
			return fmt.Errorf("steps.%s: retries must be >= 0", id)
		}
		if p.RetryWait < 0 || p.Timeout < 0 {
			return fmt.Errorf("steps.%s: durations must be >= 0", id)
		}
	}
	if c.Journal != nil && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required")
	}
	if c.Archive != nil {
		if err := c.Archive.Validate(); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
	}
	return nil
}

// Level returns the slog level of LogLevel.
func (c *Config) Level() slog.Level {
	return logLevels[c.LogLevel]
}

// PipelineOptions returns the pipeline options derived from the config.
func (c *Config) PipelineOptions() []pipeline.Option {
	opts := []pipeline.Option{pipeline.WithCloseTimeout(time.Duration(c.CloseTimeout))}
	if c.Workers > 0 {
		n := c.Workers
		opts = append(opts, pipeline.WithPoolSize(func() int { return n }))
	} else {
		opts = append(opts, pipeline.WithPoolSize(sink.DefaultPoolSize))
	}
	return opts
}

// Wrappers returns the wrappers of the policy: retries outside, time
// limit inside, so each attempt gets the full time limit.
func (p StepPolicy) Wrappers() []step.Wrapper {
	var ws []step.Wrapper
	if p.Retries > 0 {
		ws = append(ws, step.Retry(p.Retries+1, time.Duration(p.RetryWait)))
	}
	if p.Timeout > 0 {
		ws = append(ws, step.TimeLimit(time.Duration(p.Timeout)))
	}
	return ws
}

// ApplySteps appends the configured wrappers to the matching steps.
// It returns an error naming any configured step that does not exist.
func (c *Config) ApplySteps(steps []*step.Descriptor) error {
	known := make(map[string]*step.Descriptor, len(steps))
	for _, s := range steps {
		known[s.ID] = s
	}
	for id, p := range c.Steps {
		s, ok := known[id]
		if !ok {
			return fmt.Errorf("steps.%s: no such step", id)
		}
		s.Wrappers = append(s.Wrappers, p.Wrappers()...)
	}
	return nil
}
