package config

import (
	"fmt"
	"sort"
	"strings"

	scoped "github.com/goliatone/go-scoped"
)

// Keys of a kind block handled here rather than by scoped.DecodeOptions.
const (
	keyGuard    = "guard"
	keyMetadata = "metadata"
)

// KindNames returns the configured kind names sorted alphabetically.
func (c *Config) KindNames() []string {
	names := make([]string, 0, len(c.Kinds))
	for name := range c.Kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KindOptions turns the kinds.<name> block into options for scoped.Define or
// Kind.Derive. A kind without a block yields no options.
func (c *Config) KindOptions(name string) ([]scoped.KindOption, error) {
	block, ok := c.Kinds[name]
	if !ok {
		return nil, nil
	}

	rest := make(map[string]any, len(block))
	var opts []scoped.KindOption
	for key, value := range block {
		switch key {
		case keyGuard:
			guard, err := guardOption(value)
			if err != nil {
				return nil, fmt.Errorf("kinds.%s.guard: %w", name, err)
			}
			opts = append(opts, guard)
		case keyMetadata:
			metadata, ok := value.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("kinds.%s.metadata must be a map, got %T", name, value)
			}
			opts = append(opts, scoped.WithMetadata(metadata))
		default:
			rest[key] = value
		}
	}

	options, err := scoped.DecodeKindOptions(name, rest)
	if err != nil {
		return nil, fmt.Errorf("kinds.%s: %w", name, err)
	}
	return append([]scoped.KindOption{scoped.WithOptions(options)}, opts...), nil
}

func guardOption(value any) (scoped.KindOption, error) {
	switch guard := value.(type) {
	case string:
		return scoped.WithGuard(guard), nil
	case map[string]any:
		expr, _ := guard["expr"].(string)
		if strings.TrimSpace(expr) == "" {
			return nil, fmt.Errorf("expr must be a non-empty string")
		}
		var opts []scoped.GuardOption
		if engine, ok := guard["engine"].(string); ok && engine != "" {
			opts = append(opts, scoped.GuardWithEngine(scoped.Engine(strings.ToLower(engine))))
		}
		return scoped.WithGuard(expr, opts...), nil
	default:
		return nil, fmt.Errorf("must be a string or a map, got %T", value)
	}
}
