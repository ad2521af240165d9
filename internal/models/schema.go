package models

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// sessionsSchema guards the shape of the persisted session list. Anything
// that fails here is treated as corrupt storage, not an error condition.
const sessionsSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "startTime", "duration", "isActive", "breaks"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "startTime": {"type": "string"},
      "endTime": {"type": ["string", "null"]},
      "duration": {"type": "integer", "minimum": 0},
      "isActive": {"type": "boolean"},
      "faceDetected": {"type": "boolean"},
      "breaks": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["id", "startTime", "reason"],
          "properties": {
            "id": {"type": "string", "minLength": 1},
            "startTime": {"type": "string"},
            "endTime": {"type": ["string", "null"]},
            "duration": {"type": "integer", "minimum": 0},
            "reason": {"type": "string", "enum": ["away", "manual", "distraction"]}
          }
        }
      }
    }
  }
}`

var sessionsSchemaLoader = gojsonschema.NewStringLoader(sessionsSchema)

// ValidateSessionsPayload checks a serialized session list against the
// schema without decoding it.
func ValidateSessionsPayload(data []byte) error {
	result, err := gojsonschema.Validate(sessionsSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("sessions payload is not valid JSON: %w", err)
	}
	if !result.Valid() {
		if errs := result.Errors(); len(errs) > 0 {
			return fmt.Errorf("sessions payload failed schema validation: %s", errs[0].String())
		}
		return fmt.Errorf("sessions payload failed schema validation")
	}
	return nil
}
