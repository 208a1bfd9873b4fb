// pkg/registry/schema.go
package registry

import "time"

// ActivityRegistry is the catalog of worker activities this service hosts.
// The source of truth is configs/activity-registry.json; the registry-updater
// tool maintains it and the worker manager validates it on startup.
type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

// Activity describes one worker activity: its identity, the Zeebe task type
// it serves, the JSON Schemas its inputs and outputs must satisfy, and the
// BPMN error codes it can throw.
type Activity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`

	// Category groups activities by domain: application, assignment,
	// scoring, reports or notifications.
	Category string `json:"category"`
	Version  string `json:"version"`

	TaskType             string `json:"taskType"`
	ImplementationStatus string `json:"implementationStatus"`

	InputSchema  map[string]interface{} `json:"inputSchema"`
	OutputSchema map[string]interface{} `json:"outputSchema"`

	// ErrorCodes lists the BPMN error codes the worker can throw so process
	// models can attach boundary events to them.
	ErrorCodes []string `json:"errorCodes"`

	// Timeout is a Go duration string ("30s", "1m").
	Timeout string `json:"timeout"`
	Retries int    `json:"retries"`

	// Workflows names the BPMN processes that reference this activity.
	Workflows []string `json:"workflows"`
	Tags      []string `json:"tags"`
}

// TimeoutDuration parses the activity's timeout string.
func (a *Activity) TimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(a.Timeout)
}
