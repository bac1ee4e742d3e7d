package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rendered struct{ n int }

func (r rendered) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "rendered %d\n", r.n)
	return err
}

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"result": "success"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"result": "success"}, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("plain"))
	require.NoError(t, formatter.Success(rendered{n: 3}))
	assert.Equal(t, "plain\nrendered 3\n", buf.String())
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error(ErrCodeConfig, "bad config", map[string]string{"file": "a.yaml"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E002", resp.Error.Code)
	assert.Equal(t, "bad config", resp.Error.Message)
	assert.Equal(t, map[string]any{"file": "a.yaml"}, resp.Error.Details)
}

func TestOutputFormatter_TextErrorDetailsOnlyWhenVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}
	require.NoError(t, formatter.Error("E001", "missing", "ctx"))
	assert.Equal(t, "Error [E001]: missing\n", buf.String())

	buf.Reset()
	formatter.Verbose = true
	require.NoError(t, formatter.Error("E001", "missing", "ctx"))
	assert.Equal(t, "Error [E001]: missing\nDetails: ctx\n", buf.String())
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	cause := errors.New("boom")
	err := formatter.Fail(ExitFailure, ErrCodeRun, cause, nil)

	assert.Equal(t, "Error [E010]: boom\n", buf.String())
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, cause)
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out, diag := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag}

	formatter.VerboseLog("hidden %d", 1)
	assert.Empty(t, diag.String())

	formatter.Verbose = true
	formatter.VerboseLog("shown %d", 2)
	assert.Equal(t, "shown 2\n", diag.String())
	assert.Empty(t, out.String())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "inner", errors.New("cause")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.Equal(t, "outer: inner: cause", wrapped.Error())
}
