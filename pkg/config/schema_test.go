package config_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-scoped/pkg/config"
)

func TestSchemaDescribesKindBlock(t *testing.T) {
	schema := config.Schema()

	properties := schema["properties"].(map[string]any)
	kinds := properties["kinds"].(map[string]any)
	kind := kinds["additionalProperties"].(map[string]any)
	require.Equal(t, false, kind["additionalProperties"])

	fields := kind["properties"].(map[string]any)
	require.Equal(t, map[string]any{"type": "boolean"}, fields["inherit_stack"])
	require.Equal(t, map[string]any{"type": "boolean"}, fields["allow_reuse"])
	require.Equal(t, map[string]any{"type": "integer", "minimum": 1}, fields["max_nesting"])
	require.Contains(t, fields, "guard")
	require.Contains(t, fields, "metadata")
}

func TestSchemaJSON(t *testing.T) {
	payload, err := config.SchemaJSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Equal(t, "object", decoded["type"])
	require.Contains(t, decoded["properties"], "log")
}
