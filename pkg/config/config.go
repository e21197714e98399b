// Package config loads the YAML settings shared by decode runs.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"example.com/ulogkit/internal/common"
	"example.com/ulogkit/pkg/ulog"
)

type DecoderConfig struct {
	StrictUnknownRecords bool  `yaml:"strictUnknownRecords"`
	MaxBufferSize        int64 `yaml:"maxBufferSize"`
}

type LogConfig struct {
	Directory  string `yaml:"directory"`
	FileName   string `yaml:"fileName"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
}

type Config struct {
	Decoder     DecoderConfig `yaml:"decoder"`
	Concurrency int           `yaml:"concurrency"`
	Logs        LogConfig     `yaml:"logs"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

// Load decodes YAML from r, fills defaults and validates the result. Unknown
// keys are rejected. An empty document yields Default().
func Load(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFile reads path. A relative log directory is resolved against the
// directory holding the file.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	cfg, err := Load(f)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if dir := strings.TrimSpace(cfg.Logs.Directory); dir != "" && !filepath.IsAbs(dir) {
		cfg.Logs.Directory = filepath.Clean(filepath.Join(filepath.Dir(path), dir))
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = runtime.NumCPU()
	}
	if c.Logs.Directory != "" {
		if c.Logs.FileName == "" {
			c.Logs.FileName = "ulogkit.log"
		}
		if c.Logs.MaxSizeMB <= 0 {
			c.Logs.MaxSizeMB = 25
		}
		if c.Logs.MaxAgeDays <= 0 {
			c.Logs.MaxAgeDays = 7
		}
		if c.Logs.MaxBackups <= 0 {
			c.Logs.MaxBackups = 5
		}
	}
}

func (c Config) validate() error {
	if c.Decoder.MaxBufferSize < 0 {
		return fmt.Errorf("decoder.maxBufferSize must not be negative, got %d", c.Decoder.MaxBufferSize)
	}
	if strings.ContainsAny(c.Logs.FileName, `/\`) {
		return fmt.Errorf("logs.fileName %q must not contain a path separator", c.Logs.FileName)
	}
	return nil
}

// DecodeOptions maps the decoder section onto ulog.Options.
func (c Config) DecodeOptions() ulog.Options {
	return ulog.Options{
		StrictUnknownRecords: c.Decoder.StrictUnknownRecords,
		MaxBufferSize:        c.Decoder.MaxBufferSize,
	}
}

func (c Config) LogConfig() common.LogConfig {
	return common.LogConfig{
		Directory:  c.Logs.Directory,
		FileName:   c.Logs.FileName,
		MaxSizeMB:  c.Logs.MaxSizeMB,
		MaxAgeDays: c.Logs.MaxAgeDays,
		MaxBackups: c.Logs.MaxBackups,
		Compress:   c.Logs.Compress,
	}
}
