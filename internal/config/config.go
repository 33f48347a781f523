package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"flagfold/internal/registry"
)

// EnvPrefix scopes environment overrides, e.g.
// FLAGFOLD__OPTIONS__OBSERVER_CACHE=true or FLAGFOLD__SERVE__ADDR=:9000.
const EnvPrefix = "FLAGFOLD__"

// LogCfg overrides FLAGFOLD_LOG_LEVEL / FLAGFOLD_LOG_JSON when set.
type LogCfg struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

type ServeCfg struct {
	Addr        string `koanf:"addr"`
	MetricsAddr string `koanf:"metrics_addr"` // empty disables /metrics
	CacheSize   int    `koanf:"cache_size"`   // 0 disables the result cache
}

type Config struct {
	SchemaVersion string         `koanf:"schema_version"`
	Options       map[string]any `koanf:"options"`
	Dialect       string         `koanf:"dialect"` // auto|estree|babel
	Log           LogCfg         `koanf:"log"`
	Serve         ServeCfg       `koanf:"serve"`
}

// Load merges a YAML or TOML file (if present) with FLAGFOLD__ env-vars.
// The file format is picked by extension; anything but .toml is read as YAML.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		var p koanf.Parser = yaml.Parser()
		if strings.EqualFold(filepath.Ext(path), ".toml") {
			p = TOMLParser()
		}
		if err := k.Load(file.Provider(path), p); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	sv := k.String("schema_version")
	if sv != "" && sv != SupportedSchema {
		return Config{}, fmt.Errorf("config schema_version %q (want %q): %w", sv, SupportedSchema, ErrSchema)
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// envKey maps FLAGFOLD__SECTION__NAME to section.name. Plugin options are
// camelCased (OBSERVER_CACHE -> observerCache) and their values typed.
func envKey(key, value string) (string, any) {
	parts := strings.Split(strings.TrimPrefix(key, EnvPrefix), "__")
	if len(parts) == 0 || parts[0] == "" {
		return "", nil
	}
	section := strings.ToLower(parts[0])
	if section == "options" {
		if len(parts) != 2 {
			return "", nil
		}
		return section + "." + camel(parts[1]), coerce(value)
	}
	for i := range parts {
		parts[i] = strings.ToLower(parts[i])
	}
	return strings.Join(parts, "."), value
}

func camel(s string) string {
	words := strings.Split(strings.ToLower(s), "_")
	var b strings.Builder
	for i, w := range words {
		if w == "" {
			continue
		}
		if i > 0 {
			w = strings.ToUpper(w[:1]) + w[1:]
		}
		b.WriteString(w)
	}
	return b.String()
}

// coerce types option values the same way -set overrides are typed.
func coerce(v string) any {
	_, val, _ := registry.ParseAssignment("v=" + v)
	return val
}

func applyDefaults(c *Config) {
	if c.SchemaVersion == "" {
		c.SchemaVersion = SupportedSchema
	}
	if c.Options == nil {
		c.Options = map[string]any{}
	}
	if c.Dialect == "" {
		c.Dialect = "auto"
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = ":50051"
	}
	if c.Serve.CacheSize < 0 {
		c.Serve.CacheSize = 0
	}
}
