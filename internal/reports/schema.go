package reports

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// sectionsSchema is the shape every stored template sections document must
// satisfy before it is handed to a worker. Templates are authored by hand,
// so a malformed document is caught here instead of at validation time.
const sectionsSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["id", "title", "fields"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"title": {"type": "string", "minLength": 1},
			"fields": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["id", "label", "type"],
					"properties": {
						"id": {"type": "string", "minLength": 1},
						"label": {"type": "string", "minLength": 1},
						"type": {"type": "string", "enum": ["text", "textarea", "number", "boolean", "select", "multiselect"]},
						"required": {"type": "boolean"}
					}
				}
			}
		}
	}
}`

// ValidateSectionsDocument checks a raw template sections document against
// the expected shape and returns every violation found.
func ValidateSectionsDocument(raw []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(sectionsSchema)
	documentLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("template sections malformed: %v", errs)
	}

	return nil
}
