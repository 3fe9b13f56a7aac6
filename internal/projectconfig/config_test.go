package projectconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew_ReturnsAllDefaults(t *testing.T) {
	cfg := New()

	assertEqual(t, "Paths.Batches", "batches/", cfg.Paths.Batches)
	assertEqual(t, "Paths.Results", "results/", cfg.Paths.Results)

	assertEqual(t, "Defaults.Model", "gpt-4o-mini", cfg.Defaults.Model)
	assertEqualInt(t, "Defaults.Attempts", 1, cfg.Defaults.Attempts)
	assertEqualInt(t, "Defaults.Workers", 4, cfg.Defaults.Workers)
	assertEqualInt(t, "Defaults.Timeout", 60, cfg.Defaults.Timeout)
	assertBoolPtr(t, "Defaults.CarryContext", false, cfg.Defaults.CarryContext)

	assertEqual(t, "Agent.Endpoint", "", cfg.Agent.Endpoint)
	assertEqualInt(t, "Agent.Timeout", 60, cfg.Agent.Timeout)

	if len(cfg.Judges) != 0 {
		t.Errorf("Judges should be empty by default, got %v", cfg.Judges)
	}

	assertEqualInt(t, "Server.Port", 8000, cfg.Server.Port)
}

func TestLoad_NoConfigFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	assertEqual(t, "Defaults.Model", "gpt-4o-mini", cfg.Defaults.Model)
}

func TestLoad_MergesFileOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ConfigFileName, `
paths:
  results: "out/"
defaults:
  model: llama-3
  attempts: 3
  carry_context: true
agent:
  endpoint: http://localhost:9000/chat
  rate_limit: 2.5
judges:
  - kind: generic
    name: local
    parameters:
      api_url: http://localhost:9001/score
server:
  port: 9999
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	// overridden values
	assertEqual(t, "Paths.Results", "out/", cfg.Paths.Results)
	assertEqual(t, "Defaults.Model", "llama-3", cfg.Defaults.Model)
	assertEqualInt(t, "Defaults.Attempts", 3, cfg.Defaults.Attempts)
	assertBoolPtr(t, "Defaults.CarryContext", true, cfg.Defaults.CarryContext)
	assertEqual(t, "Agent.Endpoint", "http://localhost:9000/chat", cfg.Agent.Endpoint)
	assertEqualInt(t, "Server.Port", 9999, cfg.Server.Port)

	if cfg.Agent.RateLimit != 2.5 {
		t.Errorf("Agent.RateLimit = %v, want 2.5", cfg.Agent.RateLimit)
	}
	if len(cfg.Judges) != 1 || cfg.Judges[0].Kind != "generic" {
		t.Errorf("unexpected judges: %v", cfg.Judges)
	}

	// untouched values keep their defaults
	assertEqual(t, "Paths.Batches", "batches/", cfg.Paths.Batches)
	assertEqualInt(t, "Defaults.Workers", 4, cfg.Defaults.Workers)
}

func TestLoad_WalksUpToParentDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ConfigFileName, "defaults:\n  model: from-parent\n")

	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(nested)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	assertEqual(t, "Defaults.Model", "from-parent", cfg.Defaults.Model)
}

func TestLoad_MalformedYAMLIsAnError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ConfigFileName, "defaults: [not a map")

	if _, err := Load(dir); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func assertEqual(t *testing.T, field, want, got string) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %q, want %q", field, got, want)
	}
}

func assertEqualInt(t *testing.T, field string, want, got int) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %d, want %d", field, got, want)
	}
}

func assertBoolPtr(t *testing.T, field string, want bool, got *bool) {
	t.Helper()
	if got == nil {
		t.Errorf("%s is nil, want %v", field, want)
		return
	}
	if *got != want {
		t.Errorf("%s = %v, want %v", field, *got, want)
	}
}
