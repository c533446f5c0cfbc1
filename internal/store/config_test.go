package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfig_SaveLoadKeepsBackup(t *testing.T) {
	withEnv(t, envConfigDir, t.TempDir(), func() {
		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("load missing: %v", err)
		}
		if *cfg != (Config{}) {
			t.Fatalf("expected zero config, got %+v", cfg)
		}

		cfg.JournalBackend = "sqlite"
		cfg.HistoryLimit = 20
		if err := SaveConfig(cfg); err != nil {
			t.Fatalf("save: %v", err)
		}
		cfg.Format = "text"
		if err := SaveConfig(cfg); err != nil {
			t.Fatalf("save 2: %v", err)
		}

		got, err := LoadConfig()
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if got.JournalBackend != "sqlite" || got.HistoryLimit != 20 || got.Format != "text" {
			t.Fatalf("unexpected config: %+v", got)
		}
		path, _ := ConfigPath()
		if _, err := os.Stat(path + ".bak"); err != nil {
			t.Fatalf("expected backup file: %v", err)
		}
	})
}

func TestConfig_WithEnvOverrides(t *testing.T) {
	withEnv(t, envLogLevel, "debug", func() {
		withEnv(t, envFormat, "edn", func() {
			withEnv(t, envHistoryLimit, "7", func() {
				got := Config{LogLevel: "warn", Format: "json", HistoryLimit: 50}.WithEnv()
				if got.LogLevel != "debug" || got.Format != "edn" || got.HistoryLimit != 7 {
					t.Fatalf("unexpected overrides: %+v", got)
				}
			})
		})
	})
}

func TestConfig_JournalPath(t *testing.T) {
	dir := t.TempDir()
	withEnv(t, envConfigDir, dir, func() {
		got, err := Config{}.JournalPath()
		if err != nil {
			t.Fatalf("journal path: %v", err)
		}
		if got != filepath.Join(dir, "journal") {
			t.Fatalf("unexpected default journal path %q", got)
		}
		got, _ = Config{JournalDir: "/tmp/x/../j"}.JournalPath()
		if got != "/tmp/j" {
			t.Fatalf("expected cleaned override, got %q", got)
		}
	})
}

func TestNewID_PrefixAndLength(t *testing.T) {
	id, err := NewID("run")
	if err != nil {
		t.Fatalf("NewID: %v", err)
	}
	if !strings.HasPrefix(id, "run-") {
		t.Fatalf("expected run prefix, got %q", id)
	}
	if got, want := len(strings.TrimPrefix(id, "run-")), 8; got != want {
		t.Fatalf("expected suffix len %d, got %d (%q)", want, got, id)
	}
}
