// pkg/registry/registry_test.go
package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "activity-registry.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRegistry(t *testing.T) {
	path := writeRegistry(t, `{
		"version": "1.0.0",
		"lastUpdated": "2025-08-01",
		"activities": [
			{
				"id": "approve-application",
				"displayName": "Approve Application",
				"category": "application",
				"taskType": "approve-application",
				"inputSchema": {"type": "object", "required": ["applicationId"]},
				"timeout": "30s",
				"retries": 3
			}
		]
	}`)

	reg, err := LoadRegistry(path)
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", reg.Version)
	require.Len(t, reg.Activities, 1)
	assert.Equal(t, "approve-application", reg.Activities[0].ID)
	assert.Equal(t, 3, reg.Activities[0].Retries)
}

func TestLoadRegistry_MissingFile(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestFindByTaskType(t *testing.T) {
	reg := &ActivityRegistry{
		Activities: []Activity{
			{ID: "a", TaskType: "approve-application"},
			{ID: "b", TaskType: "create-assignment"},
		},
	}

	activity, ok := reg.FindByTaskType("create-assignment")
	require.True(t, ok)
	assert.Equal(t, "b", activity.ID)

	_, ok = reg.FindByTaskType("unknown-task")
	assert.False(t, ok)
}

func TestValidateSchemas(t *testing.T) {
	reg := &ActivityRegistry{
		Activities: []Activity{
			{
				ID:          "good",
				InputSchema: map[string]interface{}{"type": "object"},
			},
		},
	}
	assert.NoError(t, reg.ValidateSchemas())

	reg.Activities = append(reg.Activities, Activity{
		ID:          "bad",
		InputSchema: map[string]interface{}{"type": 42},
	})
	err := reg.ValidateSchemas()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "activity bad")
}

func TestActivity_TimeoutDuration(t *testing.T) {
	a := &Activity{Timeout: "45s"}
	d, err := a.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, d)

	a.Timeout = "soon"
	_, err = a.TimeoutDuration()
	assert.Error(t, err)
}
