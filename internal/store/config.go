package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	envConfigDir    = "GRIDFORM_CONFIG_DIR"
	envLogLevel     = "GRIDFORM_LOG_LEVEL"
	envFormat       = "GRIDFORM_FORMAT"
	envHistoryLimit = "GRIDFORM_HISTORY_LIMIT"
)

// Config is the global gridform configuration stored in ~/.gridform/config.json.
type Config struct {
	// JournalBackend is "jsonl" or "sqlite". Empty means auto-detect.
	JournalBackend string `json:"journalBackend,omitempty"`

	// JournalDir overrides the journal location (default: <config dir>/journal).
	JournalDir string `json:"journalDir,omitempty"`

	// HistoryLimit caps each view's undo history. Zero means the built-in default.
	HistoryLimit int `json:"historyLimit,omitempty"`

	LogLevel string `json:"logLevel,omitempty"`

	// Format is the default output format (json, edn or text).
	Format string `json:"format,omitempty"`
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.gridform).
	if v := strings.TrimSpace(os.Getenv(envConfigDir)); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".gridform"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func LoadConfig() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

func SaveConfig(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	// Keep a copy of the previous config; failures here never block the save.
	if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
		_ = atomicWriteFile(dir, "config.json.bak.*.tmp", path+".bak", prev, 0o644)
	}
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}

// WithEnv returns a copy of c with GRIDFORM_* environment overrides applied.
func (c Config) WithEnv() Config {
	if v := strings.TrimSpace(os.Getenv(envJournalBackend)); v != "" {
		c.JournalBackend = v
	}
	if v := strings.TrimSpace(os.Getenv(envLogLevel)); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(envFormat)); v != "" {
		c.Format = v
	}
	if v := strings.TrimSpace(os.Getenv(envHistoryLimit)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.HistoryLimit = n
		}
	}
	return c
}

// JournalPath is the directory holding the journal.
func (c Config) JournalPath() (string, error) {
	if v := strings.TrimSpace(c.JournalDir); v != "" {
		return filepath.Clean(v), nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "journal"), nil
}
