package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: %s
description: climb through 10,000 ft
steps:
  - message: open
  - record: {tag: altitude, value: 9000}
  - advance: 30s
  - record: {tag: altitude, value: 11000}
  - message: quit
assertions:
  - type: event_count
    event: audio-event
    audio: 10k-feet
    count: 1
`

const failingScenario = `name: %s
description: expects an announcement that never plays
steps:
  - message: open
  - message: quit
assertions:
  - type: event_count
    event: audio-event
    audio: welcome_aboard
    count: 1
`

func writeScenario(t *testing.T, dir, name, body string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(body, name)), 0o644))
	return path
}

func executeCommand(args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestReplay_Text(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "climb", passingScenario)

	out, err := executeCommand("replay", path)
	require.NoError(t, err)
	assert.Contains(t, out, "+0s #1 simconnect-open {}\n")
	assert.Contains(t, out, `+30s #3 audio-event {"type":"10k-feet"}`)
	assert.Contains(t, out, "+30s #5 simconnect-quit {}\n")
	assert.Contains(t, out, "climb: 5 events over 30s")
}

func TestReplay_JSON(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "climb", passingScenario)

	out, err := executeCommand("--format", "json", "replay", path)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "climb", resp.Data.Scenario)
	assert.True(t, resp.Data.Pass)
	assert.True(t, resp.Data.Ended)
	assert.Equal(t, "30s", resp.Data.Elapsed)
	assert.Len(t, resp.Data.Trace, 5)
	assert.Equal(t, float64(11000), resp.Data.State["alt"])
}

func TestReplay_FailedAssertions(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "silent", failingScenario)

	out, err := executeCommand("replay", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Assertion failed: event_count")
}

func TestReplay_FailedAssertionsJSON(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "silent", failingScenario)

	out, err := executeCommand("--format", "json", "replay", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string         `json:"status"`
		Data   ReplayResult   `json:"data"`
		Error  *ResponseError `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Pass)
	assert.NotEmpty(t, resp.Data.Errors)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeAssertionsFailed, resp.Error.Code)
}

func TestReplay_MissingFile(t *testing.T) {
	_, err := executeCommand("replay", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load scenario")
}
