// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"event-matchmaker/pkg/registry"
)

const defaultPath = "pkg/registry/activities.json"

func main() {
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)

	listPath := listCmd.String("path", "", "Registry file (defaults to the compiled-in registry)")
	validatePath := validateCmd.String("path", defaultPath, "Registry file to validate")

	updatePath := updateCmd.String("path", defaultPath, "Registry file to update")
	taskType := updateCmd.String("taskType", "", "Task type to update (e.g., generate-matches)")
	field := updateCmd.String("field", "", "Field to update (status, version, timeout, retries, description)")
	value := updateCmd.String("value", "", "New value for the field")

	exportPath := exportCmd.String("out", defaultPath, "Where to write the compiled-in registry")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "list":
		listCmd.Parse(os.Args[2:])
		err = list(*listPath)
	case "validate":
		validateCmd.Parse(os.Args[2:])
		err = validate(*validatePath)
	case "update":
		updateCmd.Parse(os.Args[2:])
		if *taskType == "" || *field == "" || *value == "" {
			fmt.Println("Error: taskType, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		err = update(*updatePath, *taskType, *field, *value)
	case "export":
		exportCmd.Parse(os.Args[2:])
		err = export(*exportPath)
	default:
		help()
		return
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func load(path string) (*registry.ActivityRegistry, error) {
	if path == "" {
		return registry.Default()
	}
	return registry.LoadRegistry(path)
}

func list(path string) error {
	reg, err := load(path)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TASK TYPE\tCATEGORY\tSTATUS\tTIMEOUT\tRETRIES")
	for _, a := range reg.Activities {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", a.TaskType, a.Category, a.ImplementationStatus, a.Timeout, a.Retries)
	}
	return w.Flush()
}

func validate(path string) error {
	reg, err := load(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if len(reg.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}
	if err := registry.Validate(reg); err != nil {
		return err
	}
	fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

func update(path, taskType, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	var target *registry.Activity
	for i := range reg.Activities {
		if reg.Activities[i].TaskType == taskType {
			target = &reg.Activities[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("activity with task type %s not found", taskType)
	}

	switch field {
	case "status":
		target.ImplementationStatus = value
	case "version":
		target.Version = value
	case "description":
		target.Description = value
	case "timeout":
		target.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		target.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	if err := registry.Validate(reg); err != nil {
		return fmt.Errorf("update rejected: %w", err)
	}
	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	if err := save(reg, path); err != nil {
		return err
	}
	fmt.Printf("Updated %s: %s = %s\n", taskType, field, value)
	return nil
}

func export(path string) error {
	reg, err := registry.Default()
	if err != nil {
		return err
	}
	if err := save(reg, path); err != nil {
		return err
	}
	fmt.Printf("Wrote %d activities to %s\n", len(reg.Activities), path)
	return nil
}

func save(reg *registry.ActivityRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  list      Print the registered activities
  validate  Check task types, timeouts, error codes and schemas
  update    Change a field of one activity
  export    Write the compiled-in registry to a file
  help      Show this help message

Examples:
  registry-updater list
  registry-updater validate -path pkg/registry/activities.json
  registry-updater update -taskType generate-matches -field timeout -value 10m

Use 'registry-updater <command> -h' for more information about a command.
` + "\n")
}
