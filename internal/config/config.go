// Package config loads rmatrack settings from a YAML file and the environment.
//
// A missing config file is not an error: defaults apply and every role set is
// empty, so every identity is denied until membership is configured.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rmatrack/internal/access"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "rmatrack.yaml"

// Store backends.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// Upload collision policies.
const (
	CollisionOverwrite = "overwrite"
	CollisionVersion   = "version"
)

// StoreConfig selects and locates the record table.
type StoreConfig struct {
	Backend    string `yaml:"backend"`
	CSVPath    string `yaml:"csv_path"`
	ExcelPath  string `yaml:"excel_path"`
	SQLitePath string `yaml:"sqlite_path"`
}

// UploadsConfig locates attachments and sets the collision policy.
type UploadsConfig struct {
	Dir          string   `yaml:"dir"`
	OnCollision  string   `yaml:"on_collision"`
	AllowedTypes []string `yaml:"allowed_types"`
}

// InspectionConfig holds inspection-stage policy.
type InspectionConfig struct {
	// RequireOutcome rejects an inspection with no outcome selected.
	RequireOutcome *bool `yaml:"require_outcome"`
}

// LogConfig selects log level and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config models rmatrack.yaml.
type Config struct {
	DataDir    string           `yaml:"data_dir"`
	Store      StoreConfig      `yaml:"store"`
	Uploads    UploadsConfig    `yaml:"uploads"`
	Inspection InspectionConfig `yaml:"inspection"`
	Roles      access.Roles     `yaml:"roles"`
	Log        LogConfig        `yaml:"log"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	requireOutcome := true
	return &Config{
		DataDir: ".",
		Store: StoreConfig{
			Backend:    BackendCSV,
			CSVPath:    "rma_log.csv",
			ExcelPath:  "rma_log.xlsx",
			SQLitePath: "rma_log.db",
		},
		Uploads: UploadsConfig{
			Dir:          "uploaded_docs",
			OnCollision:  CollisionOverwrite,
			AllowedTypes: []string{"pdf", "png", "jpg", "jpeg", "docx"},
		},
		Inspection: InspectionConfig{RequireOutcome: &requireOutcome},
		Log:        LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// decode parses YAML strictly so a typo like "reviwers:" is reported.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("RMA_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := getenv("RMA_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := getenv("RMA_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("RMA_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
}

// Validate rejects unknown backends and policies.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendCSV:
		if c.Store.CSVPath == "" {
			return fmt.Errorf("store.csv_path is required for the csv backend")
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("store.backend %q: must be %s or %s", c.Store.Backend, BackendCSV, BackendSQLite)
	}

	switch c.Uploads.OnCollision {
	case CollisionOverwrite, CollisionVersion:
	default:
		return fmt.Errorf("uploads.on_collision %q: must be %s or %s", c.Uploads.OnCollision, CollisionOverwrite, CollisionVersion)
	}
	if c.Uploads.Dir == "" {
		return fmt.Errorf("uploads.dir is required")
	}
	return nil
}

// RequireOutcome reports the inspection outcome policy (default true).
func (c *Config) RequireOutcome() bool {
	if c.Inspection.RequireOutcome == nil {
		return true
	}
	return *c.Inspection.RequireOutcome
}

// AllowedTypes returns lower-cased extensions without leading dots.
func (c *Config) AllowedTypes() []string {
	out := make([]string, 0, len(c.Uploads.AllowedTypes))
	for _, t := range c.Uploads.AllowedTypes {
		t = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "."))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Resolve returns p joined under DataDir unless p is absolute or empty.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// CSVPath is the resolved primary table path.
func (c *Config) CSVPath() string { return c.Resolve(c.Store.CSVPath) }

// ExcelPath is the resolved export path; empty disables the export.
func (c *Config) ExcelPath() string { return c.Resolve(c.Store.ExcelPath) }

// SQLitePath is the resolved SQLite database path.
func (c *Config) SQLitePath() string { return c.Resolve(c.Store.SQLitePath) }

// UploadsDir is the resolved attachment directory.
func (c *Config) UploadsDir() string { return c.Resolve(c.Uploads.Dir) }
