package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/absurd-lang/relbuild/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"

	// ProjectFile is the optional per-project settings file.
	ProjectFile = "relbuild.yaml"
)

// Setting keys.
const (
	KeyBinary          = "binary"
	KeyStrip           = "strip"
	KeyTimeout         = "timeout"
	KeyOutput          = "output"
	KeyCargo           = "cargo"
	KeyRustup          = "rustup"
	KeyStripTool       = "strip_tool"
	KeyMinCargoVersion = "min_cargo_version"
	KeyEnv             = "env"
)

var defaults = map[string]interface{}{
	KeyBinary:          "",
	KeyStrip:           true,
	KeyTimeout:         "0",
	KeyOutput:          "text",
	KeyCargo:           "cargo",
	KeyRustup:          "rustup",
	KeyStripTool:       "strip",
	KeyMinCargoVersion: "",
	KeyEnv:             []string{},
}

// Keys returns the known setting keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsKnownKey reports whether key is a recognised setting.
func IsKnownKey(key string) bool {
	_, ok := defaults[key]
	return ok
}

// Dir returns the path to the user config directory (~/.relbuild/).
// RELBUILD_HOME overrides it.
func Dir() string {
	if dir := os.Getenv(branding.EnvVar("HOME")); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the user config file (~/.relbuild/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Config is a loaded, layered view of all settings sources.
type Config struct {
	v       *viper.Viper
	sources []string
}

// Load reads the user config file and, when projectDir is non-empty, the
// project file in it. Missing files are skipped.
func Load(projectDir string) (*Config, error) {
	v := viper.New()
	for k, def := range defaults {
		v.SetDefault(k, def)
	}
	v.SetConfigType(fileType)
	v.SetEnvPrefix(branding.EnvPrefix())
	v.AutomaticEnv()

	c := &Config{v: v}

	if err := c.merge(FilePath()); err != nil {
		return nil, err
	}
	if projectDir != "" {
		if err := c.merge(filepath.Join(projectDir, ProjectFile)); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Config) merge(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	c.v.SetConfigFile(path)
	if err := c.v.MergeInConfig(); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	c.sources = append(c.sources, path)
	return nil
}

// Sources returns the config files that were read, in merge order.
func (c *Config) Sources() []string {
	return c.sources
}

// Get returns a config value by key. Returns empty string if not set.
// List values are returned one entry per line.
func (c *Config) Get(key string) string {
	if key == KeyEnv {
		return strings.Join(c.v.GetStringSlice(key), "\n")
	}
	return c.v.GetString(key)
}

// Settings is the typed form of the configuration.
type Settings struct {
	Binary          string
	Strip           bool
	Timeout         time.Duration
	Output          string
	Cargo           string
	Rustup          string
	StripTool       string
	MinCargoVersion string
	// Env is a list of KEY=VALUE pairs added to every toolchain command.
	Env []string
}

// Settings decodes and validates the loaded values.
func (c *Config) Settings() (*Settings, error) {
	timeout, err := parseTimeout(c.v.GetString(KeyTimeout))
	if err != nil {
		return nil, err
	}

	s := &Settings{
		Binary:          c.v.GetString(KeyBinary),
		Strip:           c.v.GetBool(KeyStrip),
		Timeout:         timeout,
		Output:          c.v.GetString(KeyOutput),
		Cargo:           c.v.GetString(KeyCargo),
		Rustup:          c.v.GetString(KeyRustup),
		StripTool:       c.v.GetString(KeyStripTool),
		MinCargoVersion: c.v.GetString(KeyMinCargoVersion),
		Env:             c.v.GetStringSlice(KeyEnv),
	}
	for key, val := range map[string]string{KeyCargo: s.Cargo, KeyRustup: s.Rustup, KeyStripTool: s.StripTool} {
		if strings.TrimSpace(val) == "" {
			return nil, fmt.Errorf("config key %q must not be empty", key)
		}
	}
	for _, kv := range s.Env {
		if err := checkEnvEntry(kv); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func checkEnvEntry(kv string) error {
	key, _, ok := strings.Cut(kv, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return fmt.Errorf("invalid %s entry %q: want KEY=VALUE", KeyEnv, kv)
	}
	return nil
}

// parseTimeout accepts a Go duration ("90s", "15m") or a bare number of
// seconds. "0" and "" mean no timeout.
func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		secs, convErr := time.ParseDuration(raw + "s")
		if convErr != nil {
			return 0, fmt.Errorf("invalid %s %q: %w", KeyTimeout, raw, err)
		}
		d = secs
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", KeyTimeout, raw)
	}
	return d, nil
}

// Set writes a key-value pair to the user config file, creating it if needed.
// For env, value is a KEY=VALUE pair that replaces any entry with the same
// KEY and is otherwise appended.
func Set(key, value string) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("unknown config key %q (known keys: %s)", key, strings.Join(Keys(), ", "))
	}
	switch key {
	case KeyTimeout:
		if _, err := parseTimeout(value); err != nil {
			return err
		}
	case KeyEnv:
		if err := checkEnvEntry(value); err != nil {
			return err
		}
	}
	if err := EnsureDir(); err != nil {
		return err
	}

	configFile := FilePath()
	v := viper.New()
	v.SetConfigType(fileType)
	v.SetConfigFile(configFile)

	if _, err := os.Stat(configFile); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	if key == KeyEnv {
		v.Set(key, upsertEnv(v.GetStringSlice(key), value))
	} else {
		v.Set(key, value)
	}

	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// upsertEnv replaces the entry in env whose key matches kv, or appends kv.
func upsertEnv(env []string, kv string) []string {
	key, _, _ := strings.Cut(kv, "=")
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = kv
			return env
		}
	}
	return append(env, kv)
}
