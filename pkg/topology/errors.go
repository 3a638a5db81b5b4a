package topology

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes a compile failure.
type ErrorKind string

const (
	MissingRoot            ErrorKind = "missing_root"             // world has no root document
	IncludeNotFound        ErrorKind = "include_not_found"        // include target absent from world
	MalformedInclude       ErrorKind = "malformed_include"        // include spec matches no grammar rule
	FilterNoMatch          ErrorKind = "filter_no_match"          // filter selected nothing
	FilterAmbiguous        ErrorKind = "filter_ambiguous"         // filter selected several elements
	ExtractionKeyNotFound  ErrorKind = "extraction_key_not_found" // extraction key missing from the match
	UnsupportedType        ErrorKind = "unsupported_type"         // node outside mapping/sequence/string
	NotAMapping            ErrorKind = "not_a_mapping"            // merge variant given a non-mapping
	RecursionLimitExceeded ErrorKind = "recursion_limit_exceeded" // cumulative compile calls hit the ceiling
)

var kindCodes = map[ErrorKind]string{
	MissingRoot:            "404.0",
	IncludeNotFound:        "404.4",
	MalformedInclude:       "404.5",
	FilterNoMatch:          "404.6",
	FilterAmbiguous:        "404.7",
	ExtractionKeyNotFound:  "404.8",
	UnsupportedType:        "500.2",
	NotAMapping:            "501.1",
	RecursionLimitExceeded: "203.1",
}

// Code returns the numeric status code for the kind, or "0" if unknown.
func (k ErrorKind) Code() string {
	if c, ok := kindCodes[k]; ok {
		return c
	}
	return "0"
}

// ConfigError is the single error type returned by the compiler.
type ConfigError struct {
	Kind       ErrorKind
	Include    string // include spec being resolved, if any
	Message    string
	Suggestion string
}

func newError(kind ErrorKind, include, msg string) *ConfigError {
	return &ConfigError{
		Kind:       kind,
		Include:    include,
		Message:    msg,
		Suggestion: suggestions[kind],
	}
}

// Code returns the numeric status code of the error.
func (e *ConfigError) Code() string {
	return e.Kind.Code()
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("ERROR: {code: %s, msg: %s}", e.Code(), e.Message)
}

// Is matches another *ConfigError of the same kind, so a bare
// &ConfigError{Kind: k} can be used as a target for errors.Is.
func (e *ConfigError) Is(target error) bool {
	t, ok := target.(*ConfigError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// KindOf returns the kind of the first ConfigError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries a ConfigError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

var suggestions = map[ErrorKind]string{
	MissingRoot:            "Add a document named \"root\" to the document set",
	IncludeNotFound:        "Check the document name; names are file stems without extension",
	MalformedInclude:       "Use name, name[key: value] or name[key: value][field]",
	FilterNoMatch:          "Check the filter key and value against the included list",
	FilterAmbiguous:        "Use a filter key whose value is unique in the included list",
	ExtractionKeyNotFound:  "Check the extraction key against the matched item",
	RecursionLimitExceeded: "Look for an include cycle, or raise the maximum depth",
}
