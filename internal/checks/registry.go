// Package checks runs static checks over synthesized templates. Each check
// registers itself from init() and can be turned off in the config file
// under checks.<name>.enabled.
package checks

import "github.com/ThomasCrouzet/openzfs-stack/internal/construct"

// Severity ranks a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// RegisteredCheck defines the interface for self-registering template
// checks.
type RegisteredCheck interface {
	Metadata() CheckMetadata
	Run(t *construct.Template) ([]Finding, error)
}

// CheckMetadata describes a check for listing and configuration.
type CheckMetadata struct {
	Name        string // config key, e.g. "subnets"
	DisplayName string // human-readable, e.g. "Subnet layout"
	Description string // one-line description
}

// Finding reports a template problem with a suggested fix.
type Finding struct {
	Check      string
	Severity   Severity
	Resource   string // logical ID, empty for template-wide findings
	Message    string
	Suggestion string
}

var registry []func() RegisteredCheck

// Register adds a check factory to the global registry.
// Each check calls this in its init().
func Register(factory func() RegisteredCheck) {
	registry = append(registry, factory)
}

// All returns fresh instances of every registered check.
func All() []RegisteredCheck {
	out := make([]RegisteredCheck, len(registry))
	for i, f := range registry {
		out[i] = f()
	}
	return out
}

// Enabled reports whether the check called name is enabled in settings,
// the raw checks section of the config. Checks are on unless disabled.
func Enabled(name string, settings map[string]any) bool {
	section, ok := settings[name].(map[string]any)
	if !ok {
		return true
	}
	if enabled, ok := section["enabled"].(bool); ok {
		return enabled
	}
	return true
}
