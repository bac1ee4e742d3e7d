package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illuin-tech/data-pipeline-sub000/pipeline"
	"github.com/illuin-tech/data-pipeline-sub000/result"
	"github.com/illuin-tech/data-pipeline-sub000/step"
)

type entity string

func (e entity) UID() string { return string(e) }

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "pipeline.yaml", `
pipeline: lines
workers: 4
close_timeout: 2s
log_level: DEBUG
steps:
  count:
    retries: 2
    retry_wait: 10ms
    timeout: 1s
journal:
  path: runs.db
  async: true
archive:
  endpoint: localhost:9000
  access_key: key
  secret_key: secret
  bucket: runs
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "lines", cfg.Pipeline)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, Duration(2*time.Second), cfg.CloseTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, StepPolicy{Retries: 2, RetryWait: Duration(10 * time.Millisecond), Timeout: Duration(time.Second)}, cfg.Steps["count"])
	require.NotNil(t, cfg.Journal)
	assert.Equal(t, "runs.db", cfg.Journal.Path)
	assert.True(t, cfg.Journal.Async)
	require.NotNil(t, cfg.Archive)
	assert.Equal(t, "us-east-1", cfg.Archive.Region)
}

func TestLoad_YAMLRejectsUnknownFields(t *testing.T) {
	path := writeFile(t, "pipeline.yaml", "pipeline: lines\nworker: 3\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_YAMLBadDuration(t *testing.T) {
	path := writeFile(t, "pipeline.yaml", "pipeline: lines\nclose_timeout: soon\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoad_CUE(t *testing.T) {
	path := writeFile(t, "pipeline.cue", `
pipeline: "lines"
workers:  2
steps: count: {
	retries: 1
	timeout: "500ms"
}
archive: {
	endpoint:   "minio:9000"
	access_key: "key"
	secret_key: "secret"
	bucket:     "runs"
}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "lines", cfg.Pipeline)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, Duration(pipeline.DefaultCloseTimeout), cfg.CloseTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 1, cfg.Steps["count"].Retries)
	assert.Equal(t, Duration(500*time.Millisecond), cfg.Steps["count"].Timeout)
	require.NotNil(t, cfg.Archive)
	assert.Equal(t, "us-east-1", cfg.Archive.Region, "schema default")
	assert.Nil(t, cfg.Journal)
}

func TestLoad_JSONGoesThroughSchema(t *testing.T) {
	path := writeFile(t, "pipeline.json", `{"pipeline": "lines", "log_level": "warn"}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, cfg.Level())
}

func TestLoad_CUESchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing pipeline", `workers: 1`},
		{"negative workers", `pipeline: "p", workers: -1`},
		{"unknown field", `pipeline: "p", worker: 1`},
		{"bad level", `pipeline: "p", log_level: "loud"`},
		{"bad duration", `pipeline: "p", close_timeout: "soon"`},
		{"journal without path", `pipeline: "p", journal: async: true`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "pipeline.cue", tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "pipeline.toml", `pipeline = "x"`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config format")

	_, err = Load(writeFile(t, "empty.yaml", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty document")
}

func TestValidate(t *testing.T) {
	valid := func() *Config { return Default("p") }
	require.NoError(t, valid().Validate())

	c := valid()
	c.Pipeline = ""
	assert.Error(t, c.Validate())

	c = valid()
	c.LogLevel = "trace"
	assert.Error(t, c.Validate())

	c = valid()
	c.Steps = map[string]StepPolicy{"s": {Retries: -1}}
	assert.Error(t, c.Validate())

	c = valid()
	c.Journal = &JournalConfig{}
	assert.Error(t, c.Validate())
}

func TestPipelineOptions_PoolSize(t *testing.T) {
	cfg := Default("p")
	cfg.Workers = 3
	cfg.CloseTimeout = Duration(time.Second)

	p, err := pipeline.New("p", cfg.PipelineOptions()...)
	require.NoError(t, err)
	graceful, err := p.Close()
	require.NoError(t, err)
	assert.True(t, graceful)
}

func TestApplySteps(t *testing.T) {
	var calls atomic.Int32
	flaky := &step.Descriptor{
		ID: "flaky",
		Func: func(context.Context, step.Args) (result.Result, error) {
			if calls.Add(1) < 3 {
				return nil, errors.New("transient")
			}
			return nil, nil
		},
	}
	cfg := Default("p")
	cfg.Steps = map[string]StepPolicy{"flaky": {Retries: 2}}

	require.NoError(t, cfg.ApplySteps([]*step.Descriptor{flaky}))
	require.Len(t, flaky.Wrappers, 1)

	_, err := flaky.Wrappers[0](flaky.Func)(context.Background(), step.Args{Entity: entity("e")})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())

	cfg.Steps = map[string]StepPolicy{"ghost": {Retries: 1}}
	assert.Error(t, cfg.ApplySteps([]*step.Descriptor{flaky}))
}

func TestStepPolicy_Wrappers(t *testing.T) {
	assert.Empty(t, StepPolicy{}.Wrappers())
	assert.Len(t, StepPolicy{Retries: 1, Timeout: Duration(time.Second)}.Wrappers(), 2)
}
