package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(map[string]int{"events": 3}))
	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)

	buf.Reset()
	require.NoError(t, f.Error(CodeCommand, "scenario invalid", "step 3"))
	resp = Response{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeCommand, resp.Error.Code)
	assert.Equal(t, "scenario invalid", resp.Error.Message)
	assert.Equal(t, "step 3", resp.Error.Details)
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Success("Session stopped"))
	assert.Equal(t, "Session stopped\n", buf.String())

	buf.Reset()
	require.NoError(t, f.Error(CodeFailed, "bridge unreachable", nil))
	assert.Equal(t, "Error [E_FAILED]: bridge unreachable\n", buf.String())

	buf.Reset()
	require.NoError(t, f.Error(CodeFailed, "bridge unreachable", "dial refused"))
	assert.Equal(t, "Error [E_FAILED]: bridge unreachable: dial refused\n", buf.String())
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}
	failure := NewExitError(ExitFailure, "2 assertion(s) failed").withKind(CodeAssertionsFailed)

	err := f.Fail("result", failure)
	assert.Same(t, failure, err)
	assert.Empty(t, buf.String(), "text mode leaves the result to the command")
	assert.False(t, failure.reported)

	f.Format = "json"
	err = f.Fail(map[string]bool{"pass": false}, failure)
	assert.Same(t, failure, err)
	assert.True(t, failure.reported)

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, map[string]any{"pass": false}, resp.Data)
	assert.Equal(t, CodeAssertionsFailed, resp.Error.Code)
}

func TestOutputFormatter_Textf(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}
	f.Textf("%d events\n", 12345)
	assert.Equal(t, "12,345 events\n", buf.String())

	buf.Reset()
	f.Format = "json"
	f.Textf("%d events\n", 1)
	assert.Empty(t, buf.String())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out, diag := &bytes.Buffer{}, &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out, Diag: diag}

	f.VerboseLog("hidden")
	assert.Empty(t, diag.String())

	f.Verbose = true
	f.VerboseLog("running %s", "climb.yaml")
	assert.Equal(t, "running climb.yaml\n", diag.String())
	assert.Empty(t, out.String())

	f.Diag = nil
	f.VerboseLog("fallback")
	assert.Equal(t, "fallback\n", out.String())
}

func TestExitError(t *testing.T) {
	cause := errors.New("boom")
	err := WrapExitError(ExitCommandError, "failed to listen", cause)
	assert.Equal(t, "failed to listen: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeCommand, err.kind())
	assert.Equal(t, CodeFailed, NewExitError(ExitFailure, "failed").kind())
	assert.Equal(t, CodeTestFailed, NewExitError(ExitFailure, "failed").withKind(CodeTestFailed).kind())

	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "failed")))
	assert.Equal(t, ExitFailure, GetExitCode(cause))
}

// executeReported runs the root command and reports its error the way main
// does, returning stdout and stderr.
func executeReported(args ...string) (stdout, stderr string, err error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	if err = cmd.Execute(); err != nil {
		ReportError(cmd, err)
	}
	return out.String(), errOut.String(), err
}

func TestReportError_Text(t *testing.T) {
	stdout, stderr, err := executeReported("replay", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Error [E_COMMAND]: failed to load scenario: ")
}

func TestReportError_JSON(t *testing.T) {
	stdout, _, err := executeReported("--format", "json", "replay", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeCommand, resp.Error.Code)
	assert.Equal(t, "failed to load scenario", resp.Error.Message)
	assert.NotEmpty(t, resp.Error.Details)
}

func TestReportError_JSONWrittenOnce(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "silent", failingScenario)

	stdout, _, err := executeReported("--format", "json", "replay", path)
	require.Error(t, err)

	dec := json.NewDecoder(bytes.NewBufferString(stdout))
	var resp Response
	require.NoError(t, dec.Decode(&resp))
	assert.Equal(t, CodeAssertionsFailed, resp.Error.Code)
	assert.False(t, dec.More(), "one response per command")
}
