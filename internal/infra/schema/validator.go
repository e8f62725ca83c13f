// Package schema validates action payloads against named schemas.
// Validation never returns an error — an invalid payload is a normal false,
// so callers can treat it as a business outcome rather than a fault.
package schema

import (
	"bytes"
	"encoding/json"
)

// SchemaWork names the work-details schema checked before an edit is
// accepted into a mining task.
const SchemaWork = "mining-task-work"

// Service checks payloads against the schemas it knows about.
// Unknown schema names reject everything.
type Service struct{}

// NewService returns a validator service.
func NewService() *Service {
	return &Service{}
}

// Validate reports whether payload satisfies the named schema.
func (s *Service) Validate(schema string, payload []byte) bool {
	switch schema {
	case SchemaWork:
		return validWork(payload)
	default:
		return false
	}
}

// validWork accepts a non-empty JSON object. When a "proof" field is
// present it must be a non-empty string — that is the only typed field
// the coordinator itself inspects; the rest of the work details are
// opaque to it.
func validWork(payload []byte) bool {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return false
	}
	if len(obj) == 0 {
		return false
	}

	if raw, ok := obj["proof"]; ok {
		var proof string
		if err := json.Unmarshal(raw, &proof); err != nil || proof == "" {
			return false
		}
	}
	return true
}
