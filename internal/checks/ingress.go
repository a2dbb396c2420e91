package checks

import (
	"fmt"
	"net"

	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
)

func init() {
	Register(func() RegisteredCheck { return &IngressCheck{} })
}

// IngressCheck verifies that security group ingress stays inside the VPC
// the group belongs to and that port ranges are well formed.
type IngressCheck struct{}

func (c *IngressCheck) Metadata() CheckMetadata {
	return CheckMetadata{
		Name:        "ingress",
		DisplayName: "Ingress scope",
		Description: "Security group ingress is limited to the VPC address range",
	}
}

func (c *IngressCheck) Run(t *construct.Template) ([]Finding, error) {
	vpcs := vpcCIDRs(t)
	var findings []Finding

	for _, id := range t.LogicalIDsOfType(typeSecurityGroup) {
		props := t.Resources[id].Properties
		vpc, _ := refTarget(props["VpcId"])

		rules, _ := props["SecurityGroupIngress"].([]any)
		for i, raw := range rules {
			rule, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s: ingress rule %d is not an object", id, i)
			}
			where := fmt.Sprintf("ingress rule %d (%v)", i, rule["Description"])

			if msg := checkPorts(rule); msg != "" {
				findings = append(findings, Finding{
					Severity:   SeverityError,
					Resource:   id,
					Message:    where + ": " + msg,
					Suggestion: "ports must be in 0-65535 with FromPort <= ToPort",
				})
			}
			if msg := checkSource(rule["CidrIp"], vpc, vpcs); msg != "" {
				findings = append(findings, Finding{
					Severity:   SeverityError,
					Resource:   id,
					Message:    where + ": " + msg,
					Suggestion: fmt.Sprintf("use Fn::GetAtt [%s, CidrBlock] as the source", vpc),
				})
			}
		}
	}
	return findings, nil
}

func checkPorts(rule map[string]any) string {
	if proto, _ := rule["IpProtocol"].(string); proto == "-1" {
		return ""
	}
	from, ok1 := toInt(rule["FromPort"])
	to, ok2 := toInt(rule["ToPort"])
	switch {
	case !ok1 || !ok2:
		return "FromPort and ToPort are required"
	case from < 0 || to > 65535:
		return fmt.Sprintf("port range %d-%d is out of bounds", from, to)
	case from > to:
		return fmt.Sprintf("port range %d-%d is reversed", from, to)
	}
	return ""
}

// checkSource accepts the VPC CIDR attribute of the group's own VPC or a
// literal block inside it.
func checkSource(source any, vpc string, vpcs map[string]*net.IPNet) string {
	if id, attr, ok := getAttTarget(source); ok {
		if attr == "CidrBlock" && id == vpc {
			return ""
		}
		return fmt.Sprintf("source %s.%s is not the CIDR block of VPC %s", id, attr, vpc)
	}

	block, ok := literalCIDR(source)
	if !ok {
		return fmt.Sprintf("source %v is not an IPv4 CIDR", source)
	}
	vpcBlock, ok := vpcs[vpc]
	if !ok {
		return fmt.Sprintf("source %s cannot be checked against VPC %q", block, vpc)
	}
	ones, _ := block.Mask.Size()
	vpcOnes, _ := vpcBlock.Mask.Size()
	if !vpcBlock.Contains(block.IP) || ones < vpcOnes {
		return fmt.Sprintf("source %s is outside the VPC block %s", block, vpcBlock)
	}
	return ""
}
