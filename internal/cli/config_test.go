package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "codecraft.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const fullConfig = `
format: json
verbose: true
rituals: ./rituals
max_instructions: 50
memory:
  backend: redis
  db: /tmp/memory.db
  redis:
    addr: redis:6379
    password: secret
    db: 2
    prefix: "cc:"
council:
  seed: 7
server:
  addr: ":9090"
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(fullConfig))
	require.NoError(t, err)

	assert.Equal(t, &Config{
		Format:   "json",
		Verbose:  true,
		Rituals:  "./rituals",
		MaxInstr: 50,
		Memory: MemoryConfig{
			Backend: "redis",
			DB:      "/tmp/memory.db",
			Redis:   RedisConfig{Addr: "redis:6379", Password: "secret", DB: 2, Prefix: "cc:"},
		},
		Council: CouncilConfig{Seed: 7},
		Server:  ServerConfig{Addr: ":9090"},
	}, cfg)
}

func TestParseConfigEmpty(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestParseConfigUnknownField(t *testing.T) {
	_, err := ParseConfig([]byte("formatt: json\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "formatt")
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigApply(t *testing.T) {
	cfg, err := ParseConfig([]byte(fullConfig))
	require.NoError(t, err)

	cmd := NewRootCommand()
	opts := &RootOptions{Format: "text", MemoryBackend: "map"}
	cfg.apply(opts, cmd.PersistentFlags())

	assert.Equal(t, "json", opts.Format)
	assert.True(t, opts.Verbose)
	assert.Equal(t, "./rituals", opts.Rituals)
	assert.Equal(t, 50, opts.MaxInstructions)
	assert.Equal(t, "redis", opts.MemoryBackend)
	assert.Equal(t, "/tmp/memory.db", opts.Database)
	assert.Equal(t, "redis:6379", opts.RedisAddr)
	assert.Equal(t, "secret", opts.RedisPassword)
	assert.Equal(t, 2, opts.RedisDB)
	assert.Equal(t, "cc:", opts.RedisPrefix)
	assert.Equal(t, uint64(7), opts.Seed)
	assert.Equal(t, ":9090", opts.ServerAddr)
}

func TestConfigApplyFlagsWin(t *testing.T) {
	cfg, err := ParseConfig([]byte(fullConfig))
	require.NoError(t, err)

	cmd := NewRootCommand()
	flags := cmd.PersistentFlags()
	require.NoError(t, flags.Parse([]string{"--format", "text", "--memory-backend", "map", "--seed", "9"}))

	opts := &RootOptions{Format: "text", MemoryBackend: "map", Seed: 9}
	cfg.apply(opts, flags)

	assert.Equal(t, "text", opts.Format)
	assert.Equal(t, "map", opts.MemoryBackend)
	assert.Equal(t, uint64(9), opts.Seed)
	assert.Equal(t, 50, opts.MaxInstructions)
}

func TestConfigFileDrivesCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "memory.db")
	cfg := writeConfig(t, "format: json\nmemory:\n  backend: sqlite\n  db: "+db+"\n")

	stdout, _, err := execute(t, nil, "--config", cfg, "ritual", "memory_archive", "event=deploy")
	require.NoError(t, err)

	out := decodeOutcome(t, stdout)
	assert.Equal(t, "success", out.Status)
	_, err = os.Stat(db)
	assert.NoError(t, err)
}

func TestConfigFlagOverridesFile(t *testing.T) {
	cfg := writeConfig(t, "format: json\n")

	stdout, _, err := execute(t, nil, "--config", cfg, "--format", "text", "invoke", "-e", "::pause_deliberation()")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"paused": true`)
	assert.NotContains(t, stdout, `"data"`)
}
