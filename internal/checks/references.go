package checks

import (
	"strings"

	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
)

func init() {
	Register(func() RegisteredCheck { return &ReferencesCheck{} })
}

// ReferencesCheck reports Ref, Fn::GetAtt, Fn::Sub and DependsOn targets
// that are not declared in the template.
type ReferencesCheck struct{}

func (c *ReferencesCheck) Metadata() CheckMetadata {
	return CheckMetadata{
		Name:        "references",
		DisplayName: "References",
		Description: "Every reference resolves to a resource or parameter of the same template",
	}
}

func (c *ReferencesCheck) Run(t *construct.Template) ([]Finding, error) {
	var findings []Finding
	for _, d := range construct.DanglingReferences(t) {
		from, target, _ := strings.Cut(d, " -> ")
		findings = append(findings, Finding{
			Severity:   SeverityError,
			Resource:   from,
			Message:    "references undeclared " + target,
			Suggestion: "declare " + target + " in the same stack or pass its value as a parameter",
		})
	}
	return findings, nil
}
