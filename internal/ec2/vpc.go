package ec2

import (
	"errors"
	"fmt"
	"net"

	"github.com/apparentlymart/go-cidr/cidr"
	"github.com/awslabs/goformation/v7/cloudformation"
	cfnec2 "github.com/awslabs/goformation/v7/cloudformation/ec2"

	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
)

var ErrInvalidNetwork = errors.New("invalid network")

// VPC and subnet masks accepted by the EC2 API.
const (
	minMask = 16
	maxMask = 28
)

// SubnetType classifies a subnet group by its route to the internet.
type SubnetType string

const (
	// SubnetTypePublic routes 0.0.0.0/0 to an internet gateway.
	SubnetTypePublic SubnetType = "Public"
	// SubnetTypeIsolated has no route to the internet in either direction.
	SubnetTypeIsolated SubnetType = "Isolated"
)

// SubnetConfiguration describes one subnet group; one subnet is created per
// availability zone.
type SubnetConfiguration struct {
	Name       string
	SubnetType SubnetType
	CIDRMask   int
}

// VpcProps configures a VPC.
type VpcProps struct {
	CIDR               string
	MaxAZs             int
	NATGateways        int
	EnableDNSHostnames bool
	EnableDNSSupport   bool
	Subnets            []SubnetConfiguration
}

// Vpc is a virtual network with its subnets, route tables and, when it has
// public subnets, an internet gateway.
type Vpc struct {
	resource *construct.Resource
	cidr     *net.IPNet
	subnets  []*Subnet
}

// NewVpc declares a VPC under id. Subnet blocks are allocated in
// configuration order, one per AZ, and never overlap.
func NewVpc(s *construct.Stack, id string, props VpcProps) (*Vpc, error) {
	path := []string{id}

	plan, base, err := planSubnets(props)
	if err != nil {
		return nil, &construct.ConstructError{Path: path, Err: err}
	}

	res, err := s.AddResource(construct.ResourceSpec{
		Path: []string{id, "Resource"},
		Properties: &cfnec2.VPC{
			CidrBlock:          cloudformation.String(base.String()),
			EnableDnsHostnames: cloudformation.Bool(props.EnableDNSHostnames),
			EnableDnsSupport:   cloudformation.Bool(props.EnableDNSSupport),
			InstanceTenancy:    cloudformation.String("default"),
		},
		Taggable: true,
	})
	if err != nil {
		return nil, err
	}
	v := &Vpc{resource: res, cidr: base}
	res.AddTag("Name", res.ConstructPath())

	var igw, attachment *construct.Resource
	if hasPublic(props.Subnets) {
		igw, err = s.AddResource(construct.ResourceSpec{
			Path:       []string{id, "IGW"},
			Properties: &cfnec2.InternetGateway{},
			Taggable:   true,
		})
		if err != nil {
			return nil, err
		}
		igw.AddTag("Name", res.ConstructPath())

		attachment, err = s.AddResource(construct.ResourceSpec{
			Path: []string{id, "VPCGW"},
			Properties: &cfnec2.VPCGatewayAttachment{
				InternetGatewayId: cloudformation.String(igw.Ref()),
				VpcId:             res.Ref(),
			},
		})
		if err != nil {
			return nil, err
		}
	}

	for _, p := range plan {
		sn, err := newSubnet(s, v, id, p, igw, attachment)
		if err != nil {
			return nil, err
		}
		v.subnets = append(v.subnets, sn)
	}
	return v, nil
}

// Resource returns the AWS::EC2::VPC resource.
func (v *Vpc) Resource() *construct.Resource {
	return v.resource
}

// ID returns a reference to the VPC id.
func (v *Vpc) ID() string {
	return v.resource.Ref()
}

// CIDRBlock returns the VPC address block as a template expression.
func (v *Vpc) CIDRBlock() string {
	return v.resource.GetAtt("CidrBlock")
}

// CIDR returns the declared VPC address block.
func (v *Vpc) CIDR() *net.IPNet {
	return v.cidr
}

// Subnets returns every subnet in allocation order.
func (v *Vpc) Subnets() []*Subnet {
	return append([]*Subnet(nil), v.subnets...)
}

// SelectSubnets returns the subnets of the given type in AZ order.
func (v *Vpc) SelectSubnets(t SubnetType) []*Subnet {
	var out []*Subnet
	for _, sn := range v.subnets {
		if sn.Type == t {
			out = append(out, sn)
		}
	}
	return out
}

type subnetPlan struct {
	config  SubnetConfiguration
	azIndex int
	cidr    *net.IPNet
}

func planSubnets(props VpcProps) ([]subnetPlan, *net.IPNet, error) {
	_, base, err := net.ParseCIDR(props.CIDR)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidNetwork, err)
	}
	if base.IP.To4() == nil {
		return nil, nil, fmt.Errorf("%w: %s is not an IPv4 block", ErrInvalidNetwork, props.CIDR)
	}
	baseMask, _ := base.Mask.Size()
	if baseMask < minMask || baseMask > maxMask {
		return nil, nil, fmt.Errorf("%w: VPC mask /%d must be between /%d and /%d", ErrInvalidNetwork, baseMask, minMask, maxMask)
	}
	if props.MaxAZs < 1 {
		return nil, nil, fmt.Errorf("%w: at least one availability zone is required", ErrInvalidNetwork)
	}
	if props.NATGateways != 0 {
		return nil, nil, fmt.Errorf("%w: NAT gateways are not supported, got %d", ErrInvalidNetwork, props.NATGateways)
	}
	if len(props.Subnets) == 0 {
		return nil, nil, fmt.Errorf("%w: no subnet configuration", ErrInvalidNetwork)
	}

	names := make(map[string]bool)
	alloc := &allocator{base: base, baseMask: baseMask}
	var plan []subnetPlan
	var blocks []*net.IPNet

	for _, sc := range props.Subnets {
		if sc.Name == "" || construct.RemoveNonAlphanumeric(sc.Name) != sc.Name {
			return nil, nil, fmt.Errorf("%w: subnet name %q must be alphanumeric", ErrInvalidNetwork, sc.Name)
		}
		if names[sc.Name] {
			return nil, nil, fmt.Errorf("%w: duplicate subnet name %q", ErrInvalidNetwork, sc.Name)
		}
		names[sc.Name] = true

		if sc.SubnetType != SubnetTypePublic && sc.SubnetType != SubnetTypeIsolated {
			return nil, nil, fmt.Errorf("%w: subnet %s has unsupported type %q", ErrInvalidNetwork, sc.Name, sc.SubnetType)
		}
		if sc.CIDRMask < minMask || sc.CIDRMask > maxMask {
			return nil, nil, fmt.Errorf("%w: subnet %s mask /%d must be between /%d and /%d", ErrInvalidNetwork, sc.Name, sc.CIDRMask, minMask, maxMask)
		}

		for az := 0; az < props.MaxAZs; az++ {
			block, err := alloc.next(sc.CIDRMask)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: subnet %s%d: %v", ErrInvalidNetwork, sc.Name, az+1, err)
			}
			plan = append(plan, subnetPlan{config: sc, azIndex: az, cidr: block})
			blocks = append(blocks, block)
		}
	}

	if err := cidr.VerifyNoOverlap(blocks, base); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidNetwork, err)
	}
	return plan, base, nil
}

// allocator hands out aligned blocks from the VPC range, lowest address
// first.
type allocator struct {
	base     *net.IPNet
	baseMask int
	offset   uint64
}

func (a *allocator) next(mask int) (*net.IPNet, error) {
	newBits := mask - a.baseMask
	if newBits < 0 {
		return nil, fmt.Errorf("/%d is larger than the VPC block /%d", mask, a.baseMask)
	}
	size := uint64(1) << uint(32-mask)
	num := (a.offset + size - 1) / size
	if num >= uint64(1)<<uint(newBits) {
		return nil, fmt.Errorf("no room left for a /%d in %s", mask, a.base)
	}
	block, err := cidr.Subnet(a.base, newBits, int(num))
	if err != nil {
		return nil, err
	}
	a.offset = (num + 1) * size
	return block, nil
}

func hasPublic(configs []SubnetConfiguration) bool {
	for _, sc := range configs {
		if sc.SubnetType == SubnetTypePublic {
			return true
		}
	}
	return false
}
