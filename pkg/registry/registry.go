// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed activities.json
var defaultRegistry []byte

// Default returns the registry compiled into the binary.
func Default() (*ActivityRegistry, error) {
	return parse(defaultRegistry)
}

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	return &reg, nil
}

var taskTypePattern = regexp.MustCompile(`^[a-z]+(-[a-z]+)*$`)

var knownErrorCodes = map[string]bool{
	"NOT_FOUND":                true,
	"PROVIDER_ERROR":           true,
	"VALIDATION_ERROR":         true,
	"STATE_CONFLICT":           true,
	"BATCH_ITEM_FAILURE":       true,
	"DATABASE_ERROR":           true,
	"SEARCH_ERROR":             true,
	"CACHE_ERROR":              true,
	"NOTIFICATION_SEND_FAILED": true,
	"INVALID_INPUT":            true,
	"INTERNAL_ERROR":           true,
}

// Validate checks task type naming, uniqueness, timeouts, error codes and that every
// schema compiles.
func Validate(reg *ActivityRegistry) error {
	seen := make(map[string]bool, len(reg.Activities))
	for _, a := range reg.Activities {
		if !taskTypePattern.MatchString(a.TaskType) {
			return fmt.Errorf("activity %q: task type %q must be lower-kebab-case", a.ID, a.TaskType)
		}
		if seen[a.TaskType] {
			return fmt.Errorf("activity %q: duplicate task type %q", a.ID, a.TaskType)
		}
		seen[a.TaskType] = true

		if a.Timeout != "" {
			if _, err := time.ParseDuration(a.Timeout); err != nil {
				return fmt.Errorf("activity %q: invalid timeout %q", a.ID, a.Timeout)
			}
		}
		for _, code := range a.ErrorCodes {
			if !knownErrorCodes[code] {
				return fmt.Errorf("activity %q: unknown error code %q", a.ID, code)
			}
		}

		for name, schema := range map[string]map[string]interface{}{"input": a.InputSchema, "output": a.OutputSchema} {
			if schema == nil {
				continue
			}
			if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema)); err != nil {
				return fmt.Errorf("activity %q: %s schema: %w", a.ID, name, err)
			}
		}
	}
	return nil
}
