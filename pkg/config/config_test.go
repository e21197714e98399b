package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"example.com/ulogkit/pkg/ulog"
)

func TestLoad(t *testing.T) {
	src := `
decoder:
  strictUnknownRecords: true
  maxBufferSize: 1048576
concurrency: 3
logs:
  directory: /var/log/ulogkit
  maxSizeMB: 10
  compress: true
`
	cfg, err := Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Config{
		Decoder:     DecoderConfig{StrictUnknownRecords: true, MaxBufferSize: 1 << 20},
		Concurrency: 3,
		Logs: LogConfig{
			Directory:  "/var/log/ulogkit",
			FileName:   "ulogkit.log",
			MaxSizeMB:  10,
			MaxAgeDays: 7,
			MaxBackups: 5,
			Compress:   true,
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	opts := cfg.DecodeOptions()
	if !opts.StrictUnknownRecords || opts.MaxBufferSize != 1<<20 {
		t.Fatalf("DecodeOptions = %+v", opts)
	}
	if lc := cfg.LogConfig(); lc.Directory != "/var/log/ulogkit" || !lc.Compress {
		t.Fatalf("LogConfig = %+v", lc)
	}
}

func TestLoadEmpty(t *testing.T) {
	cfg, err := Load(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.Concurrency != runtime.NumCPU() {
		t.Fatalf("Concurrency = %d, want %d", cfg.Concurrency, runtime.NumCPU())
	}
	if cfg.DecodeOptions() != (ulog.Options{}) {
		t.Fatalf("default DecodeOptions = %+v, want zero", cfg.DecodeOptions())
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "unknown key", src: "decoder:\n  strict: true\n"},
		{name: "negative limit", src: "decoder:\n  maxBufferSize: -1\n"},
		{name: "bad file name", src: "logs:\n  directory: logs\n  fileName: a/b.log\n"},
		{name: "wrong type", src: "concurrency: many\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(strings.NewReader(tc.src)); err == nil {
				t.Fatalf("expected error for %q", tc.src)
			}
		})
	}
}

func TestLoadFileResolvesLogDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ulogkit.yaml")
	if err := os.WriteFile(path, []byte("logs:\n  directory: logs\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if want := filepath.Join(dir, "logs"); cfg.Logs.Directory != want {
		t.Fatalf("Logs.Directory = %q, want %q", cfg.Logs.Directory, want)
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
