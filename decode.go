package scoped

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-scoped/internal/hydrate"
)

var optionsDecoder = hydrate.NewDecoder(
	hydrate.WithPreHook[Options](coerceScalars),
	hydrate.WithDisallowUnknownFields[Options](),
	hydrate.WithPostHook[Options](checkDecodedNesting),
)

// DecodeOptions decodes an options block such as
// {"inherit_stack": false, "max_nesting": 4, "allow_reuse": true}. Unknown
// keys are rejected. String values, as read from environment variables, are
// parsed into booleans and integers.
func DecodeOptions(payload map[string]any) (Options, error) {
	return DecodeKindOptions("", payload)
}

// DecodeKindOptions is DecodeOptions naming the kind in errors.
func DecodeKindOptions(kind string, payload map[string]any) (Options, error) {
	options, err := optionsDecoder.Decode(hydrate.Context{Kind: kind}, payload)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	return options, nil
}

func coerceScalars(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
	for key, value := range payload {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		raw = strings.TrimSpace(raw)
		switch key {
		case "inherit_stack", "allow_reuse":
			parsed, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			payload[key] = parsed
		case "max_nesting":
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			payload[key] = parsed
		}
	}
	return payload, nil
}

func checkDecodedNesting(_ hydrate.Context, options *Options) error {
	if options.MaxNesting != nil && *options.MaxNesting < 1 {
		return fmt.Errorf("max_nesting must be >= 1, got %d", *options.MaxNesting)
	}
	return nil
}
