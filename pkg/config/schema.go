package config

import (
	"encoding/json"
	"reflect"
	"strings"

	scoped "github.com/goliatone/go-scoped"
)

// Schema returns a JSON Schema describing the documents Load reads. Editors
// and CI can use it to check kind files before a program loads them.
func Schema() map[string]any {
	kind := schemaForType(reflect.TypeOf(scoped.Options{}))
	properties := kind["properties"].(map[string]any)
	if nesting, ok := properties["max_nesting"].(map[string]any); ok {
		nesting["minimum"] = 1
	}
	properties[keyMetadata] = map[string]any{"type": "object"}
	properties[keyGuard] = map[string]any{
		"oneOf": []any{
			map[string]any{"type": "string", "minLength": 1},
			map[string]any{
				"type":                 "object",
				"required":             []any{"expr"},
				"additionalProperties": false,
				"properties": map[string]any{
					"expr": map[string]any{"type": "string", "minLength": 1},
					"engine": map[string]any{
						"type": "string",
						"enum": []any{string(scoped.EngineExpr), string(scoped.EngineCEL), string(scoped.EngineJS)},
					},
				},
			},
		},
	}
	kind["additionalProperties"] = false

	return map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type":    "object",
		"properties": map[string]any{
			"log": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"level":  map[string]any{"type": "string", "enum": []any{"debug", "info", "warn", "error"}},
					"format": map[string]any{"type": "string", "enum": []any{"json", "text"}},
					"values": map[string]any{"type": "boolean"},
				},
			},
			"kinds": map[string]any{
				"type":                 "object",
				"additionalProperties": kind,
			},
		},
	}
}

// SchemaJSON renders Schema as indented JSON.
func SchemaJSON() ([]byte, error) {
	return json.MarshalIndent(Schema(), "", "  ")
}

func schemaForType(rt reflect.Type) map[string]any {
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	switch rt.Kind() {
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Struct:
		return schemaForStruct(rt)
	case reflect.Map:
		return map[string]any{"type": "object"}
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": schemaForType(rt.Elem())}
	default:
		return map[string]any{}
	}
}

func schemaForStruct(rt reflect.Type) map[string]any {
	properties := map[string]any{}
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag := field.Tag.Get("json"); tag != "" {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		properties[name] = schemaForType(field.Type)
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}
}
