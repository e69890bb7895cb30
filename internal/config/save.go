package config

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/bengabay11/ticket2pr/internal/fsutil"
)

// Save writes cfg as TOML to path, or the default location when empty.
// The directory is created 0700 and the file 0600 since it holds tokens.
func Save(path string, cfg *Config) (string, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg.document()); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}

	if err := fsutil.WriteFileAtomic(path, buf.Bytes(), 0o600, 0o700); err != nil {
		return "", fmt.Errorf("write config %s: %w", path, err)
	}
	return path, nil
}

// document converts cfg into section tables, with durations as strings.
func (c *Config) document() map[string]map[string]any {
	doc := make(map[string]map[string]any)
	walk(reflect.ValueOf(c).Elem(), "", func(key string, field reflect.Value) {
		section, name, _ := strings.Cut(key, ".")
		if doc[section] == nil {
			doc[section] = make(map[string]any)
		}
		doc[section][name] = tomlValue(field)
	})
	return doc
}
