package cli

import (
	"errors"
	"fmt"
	"strings"

	"underway-hq/underway/pkg/config"
	"underway-hq/underway/pkg/topology"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	// ExitCompile means the documents were read but did not compile.
	ExitCompile = 2
	// ExitUsage means the configuration or flags are invalid.
	ExitUsage = 3
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var compileErr *topology.ConfigError
	if errors.As(err, &compileErr) {
		return ExitCompile
	}

	var cfgErr *ConfigError
	var fieldErr config.FieldError
	var validationErr config.ValidationError
	if errors.As(err, &cfgErr) || errors.As(err, &fieldErr) || errors.As(err, &validationErr) {
		return ExitUsage
	}
	return ExitFailure
}

// FormatError renders err for the terminal. Compile errors keep their
// code/message form and gain the include being resolved and a suggestion.
func FormatError(err error) string {
	var compileErr *topology.ConfigError
	if !errors.As(err, &compileErr) {
		return "Error: " + err.Error()
	}

	var b strings.Builder
	b.WriteString(compileErr.Error())
	if compileErr.Include != "" {
		fmt.Fprintf(&b, "\n  include:    %s", compileErr.Include)
	}
	if compileErr.Suggestion != "" {
		fmt.Fprintf(&b, "\n  suggestion: %s", compileErr.Suggestion)
	}
	return b.String()
}
