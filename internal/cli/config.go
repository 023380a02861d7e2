package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration file.
//
// Every field mirrors a global flag. A flag given on the command line
// always wins over the file.
type Config struct {
	Format   string        `yaml:"format"`
	Verbose  bool          `yaml:"verbose"`
	Rituals  string        `yaml:"rituals"`
	MaxInstr int           `yaml:"max_instructions"`
	Memory   MemoryConfig  `yaml:"memory"`
	Council  CouncilConfig `yaml:"council"`
	Server   ServerConfig  `yaml:"server"`
}

// MemoryConfig selects and configures the memory backend.
type MemoryConfig struct {
	Backend string      `yaml:"backend"`
	DB      string      `yaml:"db"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis memory backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// CouncilConfig configures council deliberations.
type CouncilConfig struct {
	// Seed pins the random source; 0 means a fresh random seed.
	Seed uint64 `yaml:"seed"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoadConfig reads a YAML config file. Unknown fields are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML config data. Empty input yields a zero Config.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// apply copies config values into opts for every flag not set explicitly.
func (c *Config) apply(opts *RootOptions, flags *pflag.FlagSet) {
	set := func(name string, fn func()) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			return
		}
		fn()
	}
	if c.Format != "" {
		set("format", func() { opts.Format = c.Format })
	}
	if c.Verbose {
		set("verbose", func() { opts.Verbose = true })
	}
	if c.Rituals != "" {
		set("rituals", func() { opts.Rituals = c.Rituals })
	}
	if c.MaxInstr > 0 {
		set("max-instructions", func() { opts.MaxInstructions = c.MaxInstr })
	}
	if c.Memory.Backend != "" {
		set("memory-backend", func() { opts.MemoryBackend = c.Memory.Backend })
	}
	if c.Memory.DB != "" {
		set("db", func() { opts.Database = c.Memory.DB })
	}
	if c.Memory.Redis.Addr != "" {
		set("redis-addr", func() { opts.RedisAddr = c.Memory.Redis.Addr })
	}
	if c.Council.Seed != 0 {
		set("seed", func() { opts.Seed = c.Council.Seed })
	}
	opts.RedisPassword = c.Memory.Redis.Password
	opts.RedisDB = c.Memory.Redis.DB
	opts.RedisPrefix = c.Memory.Redis.Prefix
	opts.ServerAddr = c.Server.Addr
}
