// Package config loads offpos settings from a YAML file, a .env file and
// OFFPOS_* environment variables, in increasing order of precedence. The
// merged result is validated against an embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/offpos/internal/logging"
)

//go:embed schema.cue
var schemaSource string

// Config is the full set of settings.
type Config struct {
	// Restaurant is the default tenant for CLI commands.
	Restaurant string         `yaml:"restaurant" json:"restaurant,omitempty"`
	Database   DatabaseConfig `yaml:"database" json:"database"`
	Remote     RemoteConfig   `yaml:"remote" json:"remote"`
	Sync       SyncConfig     `yaml:"sync" json:"sync"`
	Ledger     LedgerConfig   `yaml:"ledger" json:"ledger"`
	Report     ReportConfig   `yaml:"report" json:"report"`
	Server     ServerConfig   `yaml:"server" json:"server"`
	Log        LogConfig      `yaml:"log" json:"log"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" json:"path"`
}

// RemoteConfig points at the notification service. An empty BaseURL runs
// offline: syncs serve the local list and report the remote unavailable.
type RemoteConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	Token   string `yaml:"token" json:"token"`
	Timeout string `yaml:"timeout" json:"timeout"`
}

type SyncConfig struct {
	Interval   string `yaml:"interval" json:"interval"`
	ReadPolicy string `yaml:"read_policy" json:"read_policy"`
}

type LedgerConfig struct {
	DeletePolicy string `yaml:"delete_policy" json:"delete_policy"`
}

type ReportConfig struct {
	// Timezone decides which calendar day an order falls on.
	Timezone      string `yaml:"timezone" json:"timezone"`
	ExportDir     string `yaml:"export_dir" json:"export_dir"`
	GSTIN         string `yaml:"gstin" json:"gstin"`
	PlaceOfSupply string `yaml:"place_of_supply" json:"place_of_supply"`
	SACCode       string `yaml:"sac_code" json:"sac_code"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

type LogConfig struct {
	Level       string `yaml:"level" json:"level"`
	Encoding    string `yaml:"encoding" json:"encoding"`
	Development bool   `yaml:"development" json:"development"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "offpos.db"},
		Remote:   RemoteConfig{Timeout: "10s"},
		Sync:     SyncConfig{Interval: "2m", ReadPolicy: "remote-wins"},
		Ledger:   LedgerConfig{DeletePolicy: "warn"},
		Report: ReportConfig{
			Timezone:  "Local",
			ExportDir: "exports",
			SACCode:   "996331",
		},
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
		Log:    LogConfig{Level: "info", Encoding: "json"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := decodeYAML(data, cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	applyEnv(cfg, os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from a .env file into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks cfg against the schema and parses its durations and
// time zone.
func (c *Config) Validate() error {
	cuectx := cuecontext.New()
	schema := cuectx.CompileString(schemaSource).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config: schema: %w", err)
	}

	v := schema.Unify(cuectx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if _, err := c.RemoteTimeout(); err != nil {
		return err
	}
	if _, err := c.SyncInterval(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// RemoteTimeout parses remote.timeout.
func (c *Config) RemoteTimeout() (time.Duration, error) {
	return parsePositive("remote.timeout", c.Remote.Timeout)
}

// SyncInterval parses sync.interval.
func (c *Config) SyncInterval() (time.Duration, error) {
	return parsePositive("sync.interval", c.Sync.Interval)
}

// Location loads report.timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: report.timezone: %w", err)
	}
	return loc, nil
}

// Logging returns the logger settings.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Log.Level
	cfg.Encoding = c.Log.Encoding
	cfg.Development = c.Log.Development
	return cfg
}

func parsePositive(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive", field)
	}
	return d, nil
}
