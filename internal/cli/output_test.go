package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/integration"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]int{"fields": 2}, "ignored\n"))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.NotContains(t, buf.String(), "ignored")
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success(nil, "refresh doc: ok\n"))
	assert.Equal(t, "refresh doc: ok\n", buf.String())
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("STYLE_NOT_FOUND", "no such style", map[string]string{"style": "x"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "STYLE_NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "no such style", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, formatter.Error("HOST_FAILURE", "write failed", "field 3"))
	assert.Contains(t, buf.String(), "Error [HOST_FAILURE]: write failed")
	assert.Contains(t, buf.String(), "Details: field 3")
}

func TestOutputFormatter_CommandError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := &integration.Error{Code: integration.ErrCodeUserCancelled, Message: "cancelled"}
	require.NoError(t, formatter.CommandError(err, nil))
	assert.Contains(t, buf.String(), "Error [USER_CANCELLED]")

	buf.Reset()
	require.NoError(t, formatter.CommandError(errors.New("boom"), nil))
	assert.Contains(t, buf.String(), "Error [HOST_FAILURE]: boom")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out, diag := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: true}

	formatter.VerboseLog("running %s", "refresh")
	assert.Empty(t, out.String())
	assert.Equal(t, "running refresh\n", diag.String())

	formatter.Verbose = false
	formatter.VerboseLog("quiet")
	assert.Equal(t, "running refresh\n", diag.String())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitSuccess, "fine", errors.New("inner")))
	assert.Equal(t, ExitSuccess, GetExitCode(wrapped))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestExitError_Message(t *testing.T) {
	assert.Equal(t, "failed to load document: missing", WrapExitError(ExitCommandError, "failed to load document", errors.New("missing")).Error())
	assert.Equal(t, "bad", NewExitError(ExitFailure, "bad").Error())
}
