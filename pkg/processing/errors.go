package processing

import (
	"errors"
	"fmt"
)

// ErrDryRun stops a run on purpose after printing a query. It is not a
// failure.
var ErrDryRun = errors.New("dry run: query printed, not executed")

// ConfigError is raised before anything executes.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "config: " + e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

// TemplateError covers reading, expanding and post-processing a template.
type TemplateError struct {
	Step     int
	Template string
	Query    string // empty when expansion itself failed
	Err      error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %s (step %d): %v", e.Template, e.Step, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// ExecutionError reports a query the database client could not run. The
// query itself is printed to stderr by the runner, not repeated here.
type ExecutionError struct {
	Step     int
	Template string
	Query    string
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("executing %s (step %d): %v", e.Template, e.Step, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
