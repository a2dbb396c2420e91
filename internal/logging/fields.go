// Package logging builds the zap loggers used for construction and
// synthesis diagnostics.
package logging

// Field names shared by every log line.
const (
	FieldStack     = "stack"
	FieldLogicalID = "logical_id"
	FieldType      = "type"
	FieldPath      = "path"
	FieldResources = "resources"
	FieldBytes     = "bytes"
	FieldCheck     = "check"
	FieldCommand   = "command"
)
