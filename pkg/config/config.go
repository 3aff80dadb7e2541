// Package config loads kind declarations and logging settings from YAML files
// with environment variable overrides:
//
//	log:
//	  level: debug
//	  format: text
//	kinds:
//	  Session:
//	    max_nesting: 4
//	    allow_reuse: true
//	    metadata:
//	      team: identity
//	    guard:
//	      expr: depth < max_nesting
//	      engine: cel
//
// A guard may also be a plain expr-language string.
package config

// Config holds everything Load reads.
type Config struct {
	Log   LogConfig                 `koanf:"log"`
	Kinds map[string]map[string]any `koanf:"kinds"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Values bool   `koanf:"values"`
}

func defaults() map[string]any {
	return map[string]any{
		"log.level":  "info",
		"log.format": "json",
		"log.values": false,
	}
}
