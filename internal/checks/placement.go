package checks

import (
	"fmt"

	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
)

func init() {
	Register(func() RegisteredCheck { return &PlacementCheck{} })
}

// PlacementCheck verifies that instances sit in public subnets and file
// systems in isolated ones. A subnet is public when its route table routes
// to an internet gateway.
type PlacementCheck struct{}

func (c *PlacementCheck) Metadata() CheckMetadata {
	return CheckMetadata{
		Name:        "placement",
		DisplayName: "Placement",
		Description: "Instances use public subnets, file systems use isolated subnets",
	}
}

func (c *PlacementCheck) Run(t *construct.Template) ([]Finding, error) {
	public := publicSubnets(t)
	var findings []Finding

	for _, id := range t.LogicalIDsOfType(typeInstance) {
		subnet, ok := refTarget(t.Resources[id].Properties["SubnetId"])
		if !ok {
			findings = append(findings, Finding{
				Severity: SeverityWarning,
				Resource: id,
				Message:  "SubnetId is not a reference, placement not checked",
			})
			continue
		}
		if !public[subnet] {
			findings = append(findings, Finding{
				Severity:   SeverityError,
				Resource:   id,
				Message:    fmt.Sprintf("instance is in subnet %s which has no route to an internet gateway", subnet),
				Suggestion: "place the instance in a public subnet",
			})
		}
	}

	for _, id := range t.LogicalIDsOfType(typeFileSystem) {
		subnets, _ := t.Resources[id].Properties["SubnetIds"].([]any)
		if len(subnets) == 0 {
			findings = append(findings, Finding{
				Severity: SeverityError,
				Resource: id,
				Message:  "file system declares no subnets",
			})
		}
		for _, raw := range subnets {
			subnet, ok := refTarget(raw)
			if !ok {
				findings = append(findings, Finding{
					Severity: SeverityWarning,
					Resource: id,
					Message:  fmt.Sprintf("subnet %v is not a reference, placement not checked", raw),
				})
				continue
			}
			if public[subnet] {
				findings = append(findings, Finding{
					Severity:   SeverityError,
					Resource:   id,
					Message:    fmt.Sprintf("file system is in public subnet %s", subnet),
					Suggestion: "place the file system in an isolated subnet",
				})
			}
		}
	}
	return findings, nil
}
