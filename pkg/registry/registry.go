// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// ValidateSchemas checks that every activity's input and output schema is a
// compilable JSON schema. A registry entry with a broken schema would fail
// at job time otherwise.
func (r *ActivityRegistry) ValidateSchemas() error {
	for _, activity := range r.Activities {
		if err := compileSchema(activity.InputSchema); err != nil {
			return fmt.Errorf("activity %s: input schema: %w", activity.ID, err)
		}
		if err := compileSchema(activity.OutputSchema); err != nil {
			return fmt.Errorf("activity %s: output schema: %w", activity.ID, err)
		}
	}
	return nil
}

func compileSchema(schema map[string]interface{}) error {
	if len(schema) == 0 {
		return nil
	}
	_, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	return err
}

// FindByTaskType returns the registry entry for a Camunda task type.
func (r *ActivityRegistry) FindByTaskType(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}
