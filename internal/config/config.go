// Package config loads the server configuration from defaults, an optional
// JSON or YAML file, a .env file and the process environment, in that order
// of increasing precedence. Command-line flags are applied on top by the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrNoDatabase is returned by RequireDatabase when no DSN is configured.
var ErrNoDatabase = errors.New("database DSN is not set (DATABASE_URL or --database-dsn)")

// Options holds the configuration values for the application.
type Options struct {
	// Address is the server's listening address (ip:port).
	Address string `json:"address" yaml:"address" env:"SERVER_ADDRESS"`

	// DatabaseDSN is a postgres:// URL, or sqlite:<path> / file:<path>.
	DatabaseDSN string `json:"database_dsn" yaml:"database_dsn" env:"DATABASE_URL"`

	// LogLevel is a zap level name.
	LogLevel string `json:"log_level" yaml:"log_level" env:"LOG_LEVEL"`

	// Config is the path to the config file.
	Config string `json:"-" yaml:"-" env:"CONFIG"`

	// MirrorTimeout bounds one spreadsheet append.
	MirrorTimeout Duration `json:"mirror_timeout" yaml:"mirror_timeout" env:"MIRROR_TIMEOUT"`

	// Sheets configures the spreadsheet mirror.
	Sheets SheetsOptions `json:"sheets" yaml:"sheets"`
}

// SheetsOptions configures the Google Sheets mirror.
type SheetsOptions struct {
	Name            string `json:"name" yaml:"name" env:"GOOGLE_SHEETS_NAME"`
	CredentialsJSON string `json:"credentials_json" yaml:"credentials_json" env:"GOOGLE_CREDENTIALS_JSON"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file" env:"GOOGLE_CREDENTIALS_FILE"`
	Columns         string `json:"columns" yaml:"columns" env:"GOOGLE_SHEETS_COLUMNS"`
	TimeZone        string `json:"time_zone" yaml:"time_zone" env:"GOOGLE_SHEETS_TIMEZONE"`
	TimeFormat      string `json:"time_format" yaml:"time_format" env:"GOOGLE_SHEETS_TIME_FORMAT"`
}

// Duration is a time.Duration written as a Go duration string ("15s") in
// files and environment variables.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns the built-in configuration.
func Default() *Options {
	return &Options{
		Address:       "localhost:8080",
		LogLevel:      "info",
		MirrorTimeout: Duration(15 * time.Second),
		Sheets: SheetsOptions{
			Name:       "Accounts",
			TimeZone:   "UTC",
			TimeFormat: "%Y-%m-%d %H:%M:%S",
		},
	}
}

// Load builds Options. path names the config file; when empty, the CONFIG
// environment variable is consulted. A missing config file or .env file is
// not an error.
func Load(path string) (*Options, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	opts := Default()
	if path == "" {
		path = os.Getenv("CONFIG")
	}
	opts.Config = path
	if path != "" {
		if err := readFile(path, opts); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return opts, nil
}

func loadDotEnv(name string) error {
	err := godotenv.Load(name)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", name, err)
}

func readFile(path string, opts *Options) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, opts)
	default:
		err = json.Unmarshal(data, opts)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// RequireDatabase reports ErrNoDatabase when no DSN is configured.
func (o *Options) RequireDatabase() error {
	if strings.TrimSpace(o.DatabaseDSN) == "" {
		return ErrNoDatabase
	}
	return nil
}

// Credentials returns the service-account JSON: the inline value when set,
// otherwise the contents of CredentialsFile. Both empty yields nil.
func (s SheetsOptions) Credentials() ([]byte, error) {
	if s.CredentialsJSON != "" {
		return []byte(s.CredentialsJSON), nil
	}
	if s.CredentialsFile == "" {
		return nil, nil
	}
	b, err := os.ReadFile(s.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	return b, nil
}
