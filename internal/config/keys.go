package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// MaskPassword returns a masked version of a password for display.
func MaskPassword(p string) string {
	if p == "" {
		return "(not set)"
	}
	return strings.Repeat("*", 8)
}

// Masked returns a copy of the config with the password hidden.
func (c *Config) Masked() *Config {
	cp := *c
	cp.Veeva.Password = MaskPassword(c.Veeva.Password)
	return &cp
}

// Settings returns the configuration as nested maps keyed by the section
// and field names used in the config file.
func (c *Config) Settings() (map[string]interface{}, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return out, nil
}

// Lookup resolves a dotted key such as "MAIN.source_dir" or "ss.full.width".
// Matching is case-insensitive. A section key returns the nested map.
func (c *Config) Lookup(key string) (interface{}, error) {
	settings, err := c.Settings()
	if err != nil {
		return nil, err
	}

	var cur interface{} = settings
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("config key %q: %q is not a section", key, part)
		}
		next, found := lookupFold(m, part)
		if !found {
			return nil, fmt.Errorf("config key %q: %q not found", key, part)
		}
		cur = next
	}
	return cur, nil
}

func lookupFold(m map[string]interface{}, key string) (interface{}, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// Keys returns every leaf key in dotted form, sorted.
func (c *Config) Keys() ([]string, error) {
	settings, err := c.Settings()
	if err != nil {
		return nil, err
	}
	var keys []string
	var walk func(prefix string, m map[string]interface{})
	walk = func(prefix string, m map[string]interface{}) {
		for k, v := range m {
			full := k
			if prefix != "" {
				full = prefix + "." + k
			}
			if sub, ok := v.(map[string]interface{}); ok {
				walk(full, sub)
				continue
			}
			keys = append(keys, full)
		}
	}
	walk("", settings)
	sort.Strings(keys)
	return keys, nil
}

// Write saves cfg as indented JSON. It refuses to overwrite an existing
// file unless force is set.
func Write(path string, cfg *Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
