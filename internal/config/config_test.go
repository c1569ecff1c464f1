package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, file, err := Load(WithSearchPaths(t.TempDir()))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if file != "" {
		t.Errorf("expected no config file, got %q", file)
	}
	if cfg != Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_SearchedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "choreo.yaml", "frame_delay: 10ms\nduration_scale: 0.5\ndb: runs.db\n")

	cfg, file, err := Load(WithSearchPaths(dir))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if file != path {
		t.Errorf("expected file %q, got %q", path, file)
	}
	if cfg.FrameDelay != 10*time.Millisecond {
		t.Errorf("frame_delay = %s", cfg.FrameDelay)
	}
	if cfg.DurationScale != 0.5 {
		t.Errorf("duration_scale = %g", cfg.DurationScale)
	}
	if cfg.DB != "runs.db" {
		t.Errorf("db = %q", cfg.DB)
	}
	if cfg.Format != "text" {
		t.Errorf("format should keep its default, got %q", cfg.Format)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "choreo.yaml", "frame_delay: 10ms\nformat: text\n")
	t.Setenv("CHOREO_FRAME_DELAY", "40ms")
	t.Setenv("CHOREO_DURATION_SCALE", "2")
	t.Setenv("CHOREO_DB", "/tmp/choreo.db")
	t.Setenv("CHOREO_FORMAT", "json")

	cfg, _, err := Load(WithSearchPaths(dir))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Config{FrameDelay: 40 * time.Millisecond, DurationScale: 2, DB: "/tmp/choreo.db", Format: "json"}
	if cfg != want {
		t.Errorf("got %+v, want %+v", cfg, want)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.yml", "frame_delay: 8ms\n")

	cfg, file, err := Load(WithConfigFile(path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if file != path || cfg.FrameDelay != 8*time.Millisecond {
		t.Errorf("got %+v from %q", cfg, file)
	}

	_, _, err = Load(WithConfigFile(filepath.Join(dir, "missing.yaml")))
	if err == nil {
		t.Fatal("expected error for missing explicit file")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"zero frame delay", "frame_delay: 0s\n", "frame_delay must be positive"},
		{"negative scale", "duration_scale: -1\n", "duration_scale must be zero or greater"},
		{"bad format", "format: xml\n", "format must be text or json"},
		{"malformed yaml", "frame_delay: [\n", "failed to load config file"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "choreo.yaml", tc.content)
			_, _, err := Load(WithSearchPaths(dir))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tc.errMsg)
			}
		})
	}
}
