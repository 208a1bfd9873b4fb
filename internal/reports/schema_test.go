package reports

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSectionsDocument_Valid(t *testing.T) {
	doc := []byte(`[
		{
			"id": "activity",
			"title": "Activity Summary",
			"fields": [
				{"id": "highlights", "label": "Key Highlights", "type": "textarea", "required": true},
				{"id": "hours", "label": "Hours Spent", "type": "number"}
			]
		}
	]`)

	assert.NoError(t, ValidateSectionsDocument(doc))
}

func TestValidateSectionsDocument_EmptyArray(t *testing.T) {
	assert.NoError(t, ValidateSectionsDocument([]byte(`[]`)))
}

func TestValidateSectionsDocument_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "not an array",
			doc:  `{"id": "activity"}`,
		},
		{
			name: "section missing fields",
			doc:  `[{"id": "activity", "title": "Activity"}]`,
		},
		{
			name: "field missing label",
			doc:  `[{"id": "a", "title": "A", "fields": [{"id": "x", "type": "text"}]}]`,
		},
		{
			name: "unknown field type",
			doc:  `[{"id": "a", "title": "A", "fields": [{"id": "x", "label": "X", "type": "slider"}]}]`,
		},
		{
			name: "empty section id",
			doc:  `[{"id": "", "title": "A", "fields": []}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSectionsDocument([]byte(tt.doc))
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "template sections malformed")
		})
	}
}
