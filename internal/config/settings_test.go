package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	settings, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.Port != DefaultPort {
		t.Fatalf("expected default port %d, got %d", DefaultPort, settings.Port)
	}
	if settings.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level, got %q", settings.LogLevel)
	}
	if settings.HistorySize != DefaultHistorySize {
		t.Fatalf("expected default history size, got %d", settings.HistorySize)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dirwatch.yaml")
	content := "port: 9000\nauth_token: secret\ndirectories:\n  - /srv/incoming\n  - /srv/outgoing\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	settings, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.Port != 9000 {
		t.Fatalf("expected port 9000, got %d", settings.Port)
	}
	if settings.AuthToken != "secret" {
		t.Fatalf("expected auth token, got %q", settings.AuthToken)
	}
	if len(settings.Directories) != 2 || settings.Directories[0] != "/srv/incoming" {
		t.Fatalf("unexpected directories: %v", settings.Directories)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dirwatch.yaml")
	if err := os.WriteFile(path, []byte("port: 9000\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("DIRWATCH_PORT", "9100")
	t.Setenv("DIRWATCH_DIRS", " /a , /b ,")

	settings, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.Port != 9100 {
		t.Fatalf("expected env port 9100, got %d", settings.Port)
	}
	if len(settings.Directories) != 2 || settings.Directories[0] != "/a" || settings.Directories[1] != "/b" {
		t.Fatalf("unexpected directories: %v", settings.Directories)
	}
}

func TestLoadMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dirwatch.yaml")
	if err := os.WriteFile(path, []byte("port: [nope\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected read error for explicit missing file")
	}
}
