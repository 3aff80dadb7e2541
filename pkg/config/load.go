package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix prefixes the environment variables Load reads.
const DefaultEnvPrefix = "SCOPED_"

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	files     []string
	envPrefix string
}

// WithFiles adds YAML files, loaded in order; later files win.
func WithFiles(paths ...string) Option {
	return func(o *loadOptions) {
		o.files = append(o.files, paths...)
	}
}

// WithEnvPrefix replaces DefaultEnvPrefix. An empty prefix disables the
// environment layer.
func WithEnvPrefix(prefix string) Option {
	return func(o *loadOptions) {
		o.envPrefix = prefix
	}
}

// Load reads configuration in layers, highest precedence last:
//
//  1. Built-in defaults
//  2. YAML files, in the order given
//  3. Environment variables (SCOPED_ prefix)
//
// Environment keys are matched against the keys already loaded so that
// underscores inside option names survive:
//
//	SCOPED_LOG_LEVEL                   -> log.level
//	SCOPED_KINDS_SESSION_MAX_NESTING   -> kinds.Session.max_nesting
func Load(opts ...Option) (*Config, error) {
	o := &loadOptions{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(o)
	}

	k := koanf.New(".")
	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("setting default %s: %w", key, err)
		}
	}

	for _, path := range o.files {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	}

	if o.envPrefix != "" {
		envLookup := buildEnvLookup(k.Keys())
		prefix := o.envPrefix
		if err := k.Load(env.Provider(".", env.Opt{
			Prefix: prefix,
			TransformFunc: func(key, value string) (string, any) {
				key = strings.ToLower(strings.TrimPrefix(key, prefix))
				if koanfKey, ok := envLookup[key]; ok {
					return koanfKey, value
				}
				return strings.ReplaceAll(key, "_", "."), value
			},
		}), nil); err != nil {
			return nil, fmt.Errorf("loading env vars: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// buildEnvLookup maps the lowercased env form of every loaded key, such as
// "kinds_session_max_nesting", back to the key itself.
func buildEnvLookup(keys []string) map[string]string {
	lookup := make(map[string]string, len(keys))
	for _, key := range keys {
		envKey := strings.ToLower(strings.ReplaceAll(key, ".", "_"))
		lookup[envKey] = key
	}
	return lookup
}
