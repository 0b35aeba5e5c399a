// Package config loads sitedoc settings from a YAML file, an optional .env
// file and SITEDOC_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jlrickert/cli-toolkit/mylog"
	"github.com/jlrickert/sitedoc/pkg/internal"
	"github.com/jlrickert/sitedoc/pkg/store"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	AppName = "sitedoc"

	// DefaultConfigFile is the file name looked up in the user config dir.
	DefaultConfigFile = "config.yaml"
	// DefaultContentFile is the document file name in the user data dir.
	DefaultContentFile = "content.json"
	DefaultHTTPAddr    = "127.0.0.1:8080"
	DefaultLogLevel    = "info"

	DefaultRequestTimeout = 30 * time.Second
)

// Environment variables that override file settings.
const (
	EnvContentPath    = "SITEDOC_CONTENT_PATH"
	EnvVersionsDir    = "SITEDOC_VERSIONS_DIR"
	EnvMaxVersions    = "SITEDOC_MAX_VERSIONS"
	EnvJournalPath    = "SITEDOC_HISTORY_PATH"
	EnvLogLevel       = "SITEDOC_LOG_LEVEL"
	EnvHTTPAddr       = "SITEDOC_HTTP_ADDR"
	EnvRequestTimeout = "SITEDOC_HTTP_TIMEOUT"
)

// Config is the resolved sitedoc configuration.
type Config struct {
	ContentPath    string     `yaml:"contentPath"`
	VersionsDir    string     `yaml:"versionsDir,omitempty"`
	MaxVersions    int        `yaml:"maxVersions,omitempty"`
	JournalPath    string     `yaml:"historyPath,omitempty"`
	DisableJournal bool       `yaml:"disableHistory,omitempty"`
	ProcessLock    bool       `yaml:"processLock"`
	LogLevel       string     `yaml:"logLevel,omitempty"`
	HTTP           HTTPConfig `yaml:"http"`

	// Source is the config file the values were read from, if any.
	Source string `yaml:"-"`
}

// HTTPConfig configures the admin API server.
type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"requestTimeout,omitempty"`
}

// LoadOptions controls where Load looks.
type LoadOptions struct {
	// Path is an explicit config file. It must exist when set. When empty the
	// default file in the user config dir is used if present.
	Path string
	// EnvFile is a dotenv file merged under the process environment. Missing
	// files are ignored.
	EnvFile string
	// Getenv reads the process environment. Defaults to os.Getenv.
	Getenv func(string) string
}

// Default returns the configuration used when nothing is set. The content
// file lives in the user data dir.
func Default() *Config {
	contentPath := DefaultContentFile
	if dir, err := internal.DataDir(AppName); err == nil {
		contentPath = filepath.Join(dir, DefaultContentFile)
	}
	return &Config{
		ContentPath: contentPath,
		MaxVersions: store.DefaultMaxVersions,
		ProcessLock: true,
		LogLevel:    DefaultLogLevel,
		HTTP: HTTPConfig{
			Addr:           DefaultHTTPAddr,
			RequestTimeout: DefaultRequestTimeout,
		},
	}
}

// DefaultPath returns the user config file location.
func DefaultPath() (string, error) {
	dir, err := internal.ConfigDir(AppName)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// Load resolves the configuration: defaults, then the config file, then the
// env file, then the process environment. The result is validated.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	path, explicit := opts.Path, opts.Path != ""
	if !explicit {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
			cfg.Source = path
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	getenv, err := envLookup(opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// envLookup layers the process environment over the dotenv file, the same
// precedence godotenv.Load gives.
func envLookup(opts LoadOptions) (func(string) string, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if opts.EnvFile == "" {
		return getenv, nil
	}
	fileEnv, err := godotenv.Read(opts.EnvFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return getenv, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", opts.EnvFile, err)
	}
	return func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fileEnv[key]
	}, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv(EnvContentPath); v != "" {
		c.ContentPath = v
	}
	if v := getenv(EnvVersionsDir); v != "" {
		c.VersionsDir = v
	}
	if v := getenv(EnvJournalPath); v != "" {
		c.JournalPath = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := getenv(EnvHTTPAddr); v != "" {
		c.HTTP.Addr = v
	}
	if v := getenv(EnvMaxVersions); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxVersions, err)
		}
		c.MaxVersions = n
	}
	if v := getenv(EnvRequestTimeout); v != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRequestTimeout, err)
		}
		c.HTTP.RequestTimeout = d
	}
	return nil
}

// Validate checks required fields and ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ContentPath) == "" {
		return fmt.Errorf("contentPath is required")
	}
	if c.MaxVersions < 1 {
		return fmt.Errorf("maxVersions must be at least 1, got %d", c.MaxVersions)
	}
	if c.HTTP.RequestTimeout < 0 {
		return fmt.Errorf("http.requestTimeout must not be negative, got %s", c.HTTP.RequestTimeout)
	}
	if !knownLogLevel(c.LogLevel) {
		return fmt.Errorf("logLevel: unknown level %q", c.LogLevel)
	}
	return nil
}

// knownLogLevel reports whether mylog.ParseLevel recognises s. ParseLevel
// falls back to info for unknown names, so only an explicit info (or empty)
// may map there.
func knownLogLevel(s string) bool {
	name := strings.ToLower(strings.TrimSpace(s))
	if mylog.ParseLevel(name) != slog.LevelInfo {
		return true
	}
	return name == "" || name == "info"
}

// StoreOptions maps the configuration onto store options.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Path:           c.ContentPath,
		VersionsDir:    c.VersionsDir,
		MaxVersions:    c.MaxVersions,
		JournalPath:    c.JournalPath,
		DisableJournal: c.DisableJournal,
		ProcessLock:    c.ProcessLock,
	}
}
