package config

import (
	"encoding/json"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Theme != "light" {
		t.Errorf("expected light default theme, got %q", cfg.Theme)
	}
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := DefaultConfig()
	cfg.Theme = "dark"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Theme != "dark" {
		t.Errorf("expected dark theme, got %q", loaded.Theme)
	}
}

func TestSave_PreservesLoggingSection(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := DefaultConfig()
	cfg.Logging = json.RawMessage(`{"debug_mode":true,"level":"debug"}`)
	if err := Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Change the theme and save again; logging settings must survive
	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	loaded.Theme = "dark"
	if err := Save(loaded); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	final, err := Load()
	if err != nil {
		t.Fatalf("final Load failed: %v", err)
	}

	var logging struct {
		DebugMode bool   `json:"debug_mode"`
		Level     string `json:"level"`
	}
	if err := json.Unmarshal(final.Logging, &logging); err != nil {
		t.Fatalf("logging section lost: %v", err)
	}
	if !logging.DebugMode || logging.Level != "debug" {
		t.Errorf("logging section corrupted: %+v", logging)
	}
}
