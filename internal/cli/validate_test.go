package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_YAML(t *testing.T) {
	cfg := writeFile(t, "datapipe.yaml", `pipeline: words
close_timeout: 5s
steps:
  tokenize:
    timeout: 1s
  count:
    retries: 2
journal:
  path: /tmp/journal.db
`)

	stdout, _, err := execute(t, "validate", cfg)
	require.NoError(t, err)
	assert.Contains(t, stdout, "config valid: pipeline words, log level info, close timeout 5s")
	assert.Contains(t, stdout, "step policies: count, tokenize")
	assert.Contains(t, stdout, "journal: true, archive: false")
}

func TestValidate_CUEJSON(t *testing.T) {
	cfg := writeFile(t, "datapipe.cue", `pipeline: "words"
log_level: "debug"
archive: {
	endpoint:   "localhost:9000"
	access_key: "minio"
	secret_key: "minio123"
	bucket:     "runs"
}
`)

	stdout, _, err := execute(t, "validate", cfg, "--format", "json")
	require.NoError(t, err)
	data := decode(t, stdout).Data.(map[string]any)
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, "debug", data["log_level"])
	assert.Equal(t, "30s", data["close_timeout"])
	assert.Equal(t, true, data["archive"])
	assert.Equal(t, false, data["journal"])
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"schema violation", "bad.cue", `pipeline: "words"` + "\nworkers: -1\n", "E002"},
		{"unknown step", "bad.yaml", "pipeline: words\nsteps:\n  parse: {}\n", "steps.parse: no such step"},
		{"unsupported format", "bad.toml", "pipeline = 'words'\n", "unsupported config format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := writeFile(t, tt.file, tt.content)
			stdout, _, err := execute(t, "validate", cfg)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, stdout, tt.want)
		})
	}
}
