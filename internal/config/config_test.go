package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsmith/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	// Default leaves the clip ceiling unset until the provider is known.
	cfg.Avatar.MaxClipChars = config.ClipCharLimit(cfg.Avatar.Provider)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Avatar.Provider != "heygen" {
		t.Fatalf("provider = %q, want heygen", cfg.Avatar.Provider)
	}
	if cfg.Speech.MaxChars != 5000 {
		t.Fatalf("speech.max_chars = %d, want 5000", cfg.Speech.MaxChars)
	}
	if cfg.Avatar.MaxClipChars != 1500 {
		t.Fatalf("max_clip_chars = %d, want heygen default 1500", cfg.Avatar.MaxClipChars)
	}
	if cfg.Workflow.Language != "tr" {
		t.Fatalf("language = %q, want tr", cfg.Workflow.Language)
	}
}

func TestLoadOverridesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[avatar]
provider = "DID"

[workflow]
language = "en-us"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Avatar.Provider != "did" {
		t.Fatalf("provider = %q, want did", cfg.Avatar.Provider)
	}
	if cfg.Avatar.MaxClipChars != 500 {
		t.Fatalf("max_clip_chars = %d, want did default 500", cfg.Avatar.MaxClipChars)
	}
	if cfg.Workflow.Language != "en-US" {
		t.Fatalf("language = %q, want canonical en-US", cfg.Workflow.Language)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[avatar]
provider = "synthesia"

[logging]
level = "verbose"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "avatar.provider") {
		t.Fatalf("error should mention avatar.provider: %v", err)
	}
	if !strings.Contains(err.Error(), "logging.level") {
		t.Fatalf("error should mention logging.level: %v", err)
	}
}

func TestLoadRejectsInvalidLanguage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[workflow]\nlanguage = \"!!\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected language parse error")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, want := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.VideosDir(), cfg.UploadsDir()} {
		info, err := os.Stat(want)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", want, err)
		}
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[avatar]") {
		t.Fatal("sample config should contain avatar section")
	}
}

func TestJobDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = "/srv/reelsmith"
	got := cfg.JobDir("abc-123")
	want := filepath.Join("/srv/reelsmith", "videos", "abc-123")
	if got != want {
		t.Fatalf("JobDir = %q, want %q", got, want)
	}
}
