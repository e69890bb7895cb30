package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// GetValue retrieves a config value by dotted key (e.g. "jira.base_url").
func (c *Config) GetValue(key string) (string, error) {
	field, err := fieldByKey(reflect.ValueOf(c).Elem(), key)
	if err != nil {
		return "", err
	}
	return formatValue(field), nil
}

// SetValue parses value according to the field's type and stores it.
func (c *Config) SetValue(key, value string) error {
	field, err := fieldByKey(reflect.ValueOf(c).Elem(), key)
	if err != nil {
		return err
	}
	if err := setFieldValue(field, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// Values returns every key with its formatted value.
func (c *Config) Values() map[string]string {
	out := make(map[string]string)
	walk(reflect.ValueOf(c).Elem(), "", func(key string, field reflect.Value) {
		out[key] = formatValue(field)
	})
	return out
}

func fieldByKey(v reflect.Value, key string) (reflect.Value, error) {
	var found reflect.Value
	walk(v, "", func(k string, field reflect.Value) {
		if k == key {
			found = field
		}
	})
	if !found.IsValid() {
		return reflect.Value{}, fmt.Errorf("unknown config key: %s", key)
	}
	return found, nil
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration %q: %w", value, err)
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q: %w", value, err)
		}
		field.SetInt(i)
	case reflect.Bool:
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "y", "on", "1":
		return true, nil
	case "false", "no", "n", "off", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", value)
}

func formatValue(v reflect.Value) string {
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int64:
		if v.Type() == durationType {
			return time.Duration(v.Int()).String()
		}
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

// tomlValue is the value written to the config file for a field.
func tomlValue(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Int, reflect.Int64:
		if v.Type() == durationType {
			return time.Duration(v.Int()).String()
		}
		return v.Int()
	case reflect.Bool:
		return v.Bool()
	default:
		return v.String()
	}
}
