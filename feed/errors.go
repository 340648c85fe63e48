package feed

import (
	"fmt"
	"strings"
)

// SchemaDriftError - a source's column layout no longer matches the
// hard-coded expectation. Fatal and never retried: it requires a code change.
type SchemaDriftError struct {
	Source   string
	Expected []string
	Got      []string
}

func (e *SchemaDriftError) Error() string {
	return fmt.Sprintf("schema drift in source %s: expected header %q, got %q",
		e.Source, strings.Join(e.Expected, ","), strings.Join(e.Got, ","))
}

// SourceUnavailableError - a transport-level failure fetching a source,
// including a placeholder body served in place of the real file. Retryable
// only by re-running the whole job later.
type SourceUnavailableError struct {
	Source string
	Reason string
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %s", e.Source, e.Reason)
}

// UnknownFieldValueError - a field value that its typed converter rejects.
// Fatal for the run: a bad coercion means either a data-quality problem or
// schema drift the guard failed to catch.
type UnknownFieldValueError struct {
	Source string
	Column string
	Value  string
	Err    error
}

func (e *UnknownFieldValueError) Error() string {
	return fmt.Sprintf("source %s: cannot convert column %q value %q: %s",
		e.Source, e.Column, e.Value, e.Err)
}
