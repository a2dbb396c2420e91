package ec2

import (
	"errors"
	"fmt"
	"net"

	"github.com/awslabs/goformation/v7/cloudformation"
	cfnec2 "github.com/awslabs/goformation/v7/cloudformation/ec2"

	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
)

var ErrInvalidPeer = errors.New("invalid peer")

// Peer is the source of an ingress rule: a literal IPv4 CIDR or a template
// expression that resolves to one.
type Peer struct {
	cidr  string
	expr  string
	label string
}

// IPv4 is a literal IPv4 CIDR peer.
func IPv4(cidr string) Peer {
	return Peer{cidr: cidr, label: cidr}
}

// AnyIPv4 is 0.0.0.0/0.
func AnyIPv4() Peer {
	return IPv4("0.0.0.0/0")
}

// VpcCIDR is the address block of v, resolved at deploy time.
func VpcCIDR(v *Vpc) Peer {
	return Peer{expr: v.CIDRBlock(), label: v.CIDR().String()}
}

func (p Peer) validate() error {
	if p.expr != "" {
		return nil
	}
	ip, _, err := net.ParseCIDR(p.cidr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPeer, err)
	}
	if ip.To4() == nil {
		return fmt.Errorf("%w: %s is not IPv4", ErrInvalidPeer, p.cidr)
	}
	return nil
}

func (p Peer) value() string {
	if p.expr != "" {
		return p.expr
	}
	return p.cidr
}

// String returns the peer's CIDR for display.
func (p Peer) String() string {
	return p.label
}

// IngressRule is one declared ingress rule.
type IngressRule struct {
	Peer        Peer
	Port        Port
	Description string
}

// SecurityGroupProps configures a security group.
type SecurityGroupProps struct {
	Vpc *Vpc
	// Description defaults to the construct path.
	Description      string
	AllowAllOutbound bool
}

// SecurityGroup controls traffic to the resources it is attached to.
type SecurityGroup struct {
	resource *construct.Resource
	props    *cfnec2.SecurityGroup
	rules    []IngressRule
}

// NewSecurityGroup declares an empty security group in props.Vpc.
func NewSecurityGroup(s *construct.Stack, id string, props SecurityGroupProps) (*SecurityGroup, error) {
	if props.Vpc == nil {
		return nil, construct.Errorf([]string{id}, "security group requires a VPC")
	}

	cfn := &cfnec2.SecurityGroup{
		GroupDescription: props.Description,
		VpcId:            cloudformation.String(props.Vpc.ID()),
	}
	if props.AllowAllOutbound {
		cfn.SecurityGroupEgress = []cfnec2.SecurityGroup_Egress{{
			CidrIp:      cloudformation.String("0.0.0.0/0"),
			Description: cloudformation.String("Allow all outbound traffic by default"),
			IpProtocol:  "-1",
		}}
	}

	res, err := s.AddResource(construct.ResourceSpec{
		Path:       []string{id, "Resource"},
		Properties: cfn,
		Taggable:   true,
	})
	if err != nil {
		return nil, err
	}
	if cfn.GroupDescription == "" {
		cfn.GroupDescription = fmt.Sprintf("%s/%s", s.Name(), id)
	}

	return &SecurityGroup{resource: res, props: cfn}, nil
}

// AddIngressRule allows traffic from peer on port. Identical rules are
// declared once.
func (sg *SecurityGroup) AddIngressRule(peer Peer, port Port, description string) error {
	if err := port.Validate(); err != nil {
		return &construct.ConstructError{Path: sg.resource.Path, Err: err}
	}
	if err := peer.validate(); err != nil {
		return &construct.ConstructError{Path: sg.resource.Path, Err: err}
	}
	if description == "" {
		description = fmt.Sprintf("from %s:%s", peer, port)
	}

	rule := IngressRule{Peer: peer, Port: port, Description: description}
	for _, existing := range sg.rules {
		if sameRule(existing, rule) {
			return nil
		}
	}

	sg.rules = append(sg.rules, rule)
	sg.props.SecurityGroupIngress = append(sg.props.SecurityGroupIngress, cfnec2.SecurityGroup_Ingress{
		CidrIp:      cloudformation.String(peer.value()),
		Description: cloudformation.String(description),
		FromPort:    cloudformation.Int(port.From),
		IpProtocol:  string(port.Protocol),
		ToPort:      cloudformation.Int(port.To),
	})
	return nil
}

func sameRule(a, b IngressRule) bool {
	return a.Port == b.Port && a.Description == b.Description &&
		a.Peer.cidr == b.Peer.cidr && a.Peer.expr == b.Peer.expr
}

// IngressRules returns the declared rules in order.
func (sg *SecurityGroup) IngressRules() []IngressRule {
	return append([]IngressRule(nil), sg.rules...)
}

// Resource returns the AWS::EC2::SecurityGroup resource.
func (sg *SecurityGroup) Resource() *construct.Resource {
	return sg.resource
}

// ID returns the security group id attribute.
func (sg *SecurityGroup) ID() string {
	return sg.resource.GetAtt("GroupId")
}
