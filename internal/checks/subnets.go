package checks

import (
	"fmt"
	"net"

	"github.com/apparentlymart/go-cidr/cidr"

	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
)

func init() {
	Register(func() RegisteredCheck { return &SubnetsCheck{} })
}

// SubnetsCheck verifies that the subnets of each VPC fit inside its block
// and do not overlap.
type SubnetsCheck struct{}

func (c *SubnetsCheck) Metadata() CheckMetadata {
	return CheckMetadata{
		Name:        "subnets",
		DisplayName: "Subnet layout",
		Description: "Subnets fit in their VPC block and never overlap",
	}
}

func (c *SubnetsCheck) Run(t *construct.Template) ([]Finding, error) {
	vpcs := vpcCIDRs(t)
	byVpc := make(map[string][]*net.IPNet)
	var findings []Finding

	for _, id := range t.LogicalIDsOfType(typeSubnet) {
		props := t.Resources[id].Properties
		vpc, ok := refTarget(props["VpcId"])
		if !ok {
			findings = append(findings, Finding{
				Severity: SeverityWarning,
				Resource: id,
				Message:  "VpcId is not a reference to a VPC of this template, layout not checked",
			})
			continue
		}
		block, ok := literalCIDR(props["CidrBlock"])
		if !ok {
			findings = append(findings, Finding{
				Severity:   SeverityError,
				Resource:   id,
				Message:    fmt.Sprintf("CidrBlock %v is not an IPv4 CIDR", props["CidrBlock"]),
				Suggestion: "use a literal block such as 10.10.0.0/28",
			})
			continue
		}
		if _, ok := vpcs[vpc]; !ok {
			findings = append(findings, Finding{
				Severity: SeverityWarning,
				Resource: id,
				Message:  fmt.Sprintf("VPC %s has no literal CidrBlock, layout not checked", vpc),
			})
			continue
		}
		byVpc[vpc] = append(byVpc[vpc], block)
	}

	for _, vpc := range t.LogicalIDsOfType(typeVPC) {
		subnets := byVpc[vpc]
		if len(subnets) == 0 {
			continue
		}
		if err := cidr.VerifyNoOverlap(subnets, vpcs[vpc]); err != nil {
			findings = append(findings, Finding{
				Severity:   SeverityError,
				Resource:   vpc,
				Message:    err.Error(),
				Suggestion: "give every subnet its own block inside " + vpcs[vpc].String(),
			})
		}
	}
	return findings, nil
}
