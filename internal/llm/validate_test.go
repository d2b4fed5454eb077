package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verdictSchema() *Schema {
	return &Schema{
		Name:        "test-verdict",
		Description: "A pass/fail verdict",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"passed":    map[string]any{"type": "boolean"},
				"reasoning": map[string]any{"type": "string"},
				"level":     map[string]any{"type": "string", "enum": []any{"basic", "intermediate", "advanced"}},
				"quotes":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			"required":             []any{"passed", "reasoning"},
			"additionalProperties": false,
		},
	}
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"complete", `{"passed":true,"reasoning":"cites the author","level":"basic","quotes":["a"]}`, false},
		{"required only", `{"passed":false,"reasoning":"no evidence"}`, false},
		{"missing reasoning", `{"passed":true}`, true},
		{"wrong type", `{"passed":"yes","reasoning":"x"}`, true},
		{"bad enum", `{"passed":true,"reasoning":"x","level":"expert"}`, true},
		{"bad array item", `{"passed":true,"reasoning":"x","quotes":[1]}`, true},
		{"extra field", `{"passed":true,"reasoning":"x","score":3}`, true},
		{"malformed", `{passed:true}`, true},
		{"empty", ``, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(verdictSchema(), json.RawMessage(tt.raw))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var inv *ErrInvalidResponse
			require.ErrorAs(t, err, &inv)
			assert.Equal(t, tt.raw, string(inv.Content))
		})
	}
}

func TestValidateResponse_NilSchemaAcceptsAnything(t *testing.T) {
	assert.NoError(t, validateResponse(nil, json.RawMessage(`plain tutor text`)))
}

func TestValidateResponse_CachesCompiledSchema(t *testing.T) {
	s := verdictSchema()
	s.Name = "test-verdict-cache"
	require.NoError(t, ValidateJSON(s, json.RawMessage(`{"passed":true,"reasoning":"x"}`)))

	_, ok := schemaCache.Load(s.Name)
	assert.True(t, ok)
}
