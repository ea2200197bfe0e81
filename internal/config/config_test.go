package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	t.Setenv("DEEPWATCH_SERVER", "")
	c, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if c.Server != "http://localhost:8000" {
		t.Fatalf("server = %q", c.Server)
	}
	if c.TimeoutSeconds != 10 {
		t.Fatalf("timeout = %d", c.TimeoutSeconds)
	}
}

func TestLoadReadsYAML(t *testing.T) {
	t.Setenv("DEEPWATCH_SERVER", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "server: https://dashboard.example.org\ntimeout_seconds: 30\nsession_file: /tmp/s.json\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if c.Server != "https://dashboard.example.org" || c.TimeoutSeconds != 30 || c.SessionFile != "/tmp/s.json" {
		t.Fatalf("config %+v", c)
	}
}

func TestEnvOverridesServer(t *testing.T) {
	t.Setenv("DEEPWATCH_SERVER", "https://override.example.org/")
	c, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if c.Server != "https://override.example.org" {
		t.Fatalf("server = %q, trailing slash should be trimmed", c.Server)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
