package tool

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// schemaRecord converts a typed schema into the wire map form a Parameters
// implementation returns, via a marshal round-trip.
func schemaRecord(s *jsonschema.Schema) map[string]any {
	data, err := json.Marshal(s)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var rec map[string]any
	if err := json.Unmarshal(data, &rec); err != nil {
		return map[string]any{"type": "object"}
	}
	return rec
}
