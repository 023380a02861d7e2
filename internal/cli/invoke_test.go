package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcomeJSON struct {
	Status   string         `json:"status"`
	Output   any            `json:"output"`
	Metadata map[string]any `json:"metadata"`
}

func decodeOutcome(t *testing.T, stdout string) outcomeJSON {
	t.Helper()
	var resp struct {
		Status string      `json:"status"`
		Data   outcomeJSON `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestInvokeExpr(t *testing.T) {
	stdout, _, err := execute(t, nil, "--format", "json", "invoke", "-e", "::pause_deliberation()")
	require.NoError(t, err)

	out := decodeOutcome(t, stdout)
	assert.Equal(t, "success", out.Status)
	assert.Equal(t, map[string]any{"paused": true, "context_preserved": true}, out.Output)
	assert.Equal(t, "emerging", out.Metadata["consciousness_level"])
}

func TestInvokeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ritual.txt")
	text := "// warm up\n::manifest.reality({\"status\": \"GO\"})\n::bind.eternal()\n"
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))

	stdout, _, err := execute(t, nil, "--format", "json", "invoke", path)
	require.NoError(t, err)

	out := decodeOutcome(t, stdout)
	results, ok := out.Output.([]any)
	require.True(t, ok)
	require.Len(t, results, 2)
	assert.Equal(t, map[string]any{
		"status":  "REALITY_ALTERED",
		"payload": map[string]any{"status": "GO"},
	}, results[0])
	assert.Equal(t, map[string]any{"bound": "ETERNAL", "status": "SUCCESS"}, results[1])
}

func TestInvokeStdin(t *testing.T) {
	for _, args := range [][]string{{"invoke"}, {"invoke", "-"}} {
		stdin := strings.NewReader("::redirect_focus('deploy')\n")
		stdout, _, err := execute(t, stdin, append([]string{"--format", "json"}, args...)...)
		require.NoError(t, err)

		out := decodeOutcome(t, stdout)
		assert.Equal(t, map[string]any{"redirected_to": "deploy"}, out.Output)
	}
}

func TestInvokeTextFormat(t *testing.T) {
	stdout, _, err := execute(t, nil, "invoke", "-e", "::redirect_focus('deploy')")
	require.NoError(t, err)

	assert.Contains(t, stdout, "{\n  \"metadata\": {")
	assert.Contains(t, stdout, `"redirected_to": "deploy"`)
}

func TestInvokeErrorOutcome(t *testing.T) {
	stdout, _, err := execute(t, nil, "--format", "json", "invoke", "-e", "::summon.council(null)")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out := decodeOutcome(t, stdout)
	assert.Equal(t, "error", out.Status)
	assert.Contains(t, out.Output, "council members must be")
	assert.Nil(t, out.Metadata)
}

func TestInvokeMaxInstructions(t *testing.T) {
	stdout, _, err := execute(t, nil, "--format", "json", "--max-instructions", "1",
		"invoke", "-e", "::pause_deliberation()\n::pause_deliberation()")
	require.Error(t, err)

	out := decodeOutcome(t, stdout)
	assert.Equal(t, "error", out.Status)
	assert.Contains(t, out.Output, "program exceeded max instructions (2 > 1)")
}

func TestInvokeExprWithFile(t *testing.T) {
	_, _, err := execute(t, nil, "invoke", "-e", "::pause_deliberation()", "ritual.txt")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--expr cannot be combined")
}

func TestInvokeMissingFile(t *testing.T) {
	_, _, err := execute(t, nil, "invoke", filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
