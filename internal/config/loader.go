package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

// Loader reads configuration. Load order, later overriding earlier:
//  1. Built-in defaults
//  2. Config file (~/.ticket2pr/config.toml)
//  3. .env in the working directory, for variables not already set
//  4. Environment variables (TICKET2PR_*)
type Loader struct {
	// Path overrides the config file location.
	Path string
	// DotEnv overrides the .env location. "-" disables it.
	DotEnv string
	// NoEnv ignores environment variables, so only the file and defaults
	// are read.
	NoEnv bool
}

// Load reads configuration from path, or the default location when empty.
func Load(path string) (*Config, error) {
	return Loader{Path: path}.Load()
}

// Load reads and decodes the configuration. A missing config file is not
// an error, so settings may come from the environment alone.
func (l Loader) Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if !l.NoEnv {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", EnvDelimiter))
		v.AutomaticEnv()
	}

	walk(reflect.ValueOf(Default()).Elem(), "", func(key string, field reflect.Value) {
		v.SetDefault(key, field.Interface())
	})

	path := l.Path
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
	}
	if err := readFile(v, path); err != nil {
		return nil, err
	}

	if l.DotEnv != "-" {
		dotenv := l.DotEnv
		if dotenv == "" {
			dotenv = DotEnvFile
		}
		if err := applyDotEnv(v, dotenv); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Forge.Provider = strings.ToLower(cfg.Forge.Provider)
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	return &cfg, nil
}

func readFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("no config file", "path", path)
			return nil
		}
		return fmt.Errorf("stat config %s: %w", path, err)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	slog.Debug("loaded config", "path", v.ConfigFileUsed())
	return nil
}

// applyDotEnv copies TICKET2PR_* entries of a dotenv file into v, unless
// the process environment already sets them.
func applyDotEnv(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	d := viper.New()
	d.SetConfigFile(path)
	d.SetConfigType("dotenv")
	if err := d.ReadInConfig(); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	prefix := EnvPrefix + "_"
	for _, k := range d.AllKeys() {
		name := strings.ToUpper(k)
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if _, set := os.LookupEnv(name); set {
			continue
		}
		key := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(name, prefix), EnvDelimiter, "."))
		v.Set(key, d.GetString(k))
	}
	slog.Debug("loaded dotenv", "path", path)
	return nil
}
