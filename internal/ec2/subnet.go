package ec2

import (
	"fmt"
	"net"

	"github.com/awslabs/goformation/v7/cloudformation"
	cfnec2 "github.com/awslabs/goformation/v7/cloudformation/ec2"

	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
)

// Subnet tag keys understood by tooling that reads the template back.
const (
	TagSubnetName = "aws-cdk:subnet-name"
	TagSubnetType = "aws-cdk:subnet-type"
)

// Subnet is one subnet of a VPC in a single availability zone.
type Subnet struct {
	Name    string // e.g. PublicSubnet1
	Group   string // subnet configuration name, e.g. Public
	Type    SubnetType
	AZIndex int
	CIDR    *net.IPNet

	resource   *construct.Resource
	routeTable *construct.Resource
}

func newSubnet(s *construct.Stack, v *Vpc, vpcID string, p subnetPlan, igw, attachment *construct.Resource) (*Subnet, error) {
	name := fmt.Sprintf("%sSubnet%d", p.config.Name, p.azIndex+1)

	res, err := s.AddResource(construct.ResourceSpec{
		Path: []string{vpcID, name, "Subnet"},
		Properties: &cfnec2.Subnet{
			AvailabilityZone:    cloudformation.String(azOf(p.azIndex)),
			CidrBlock:           cloudformation.String(p.cidr.String()),
			MapPublicIpOnLaunch: cloudformation.Bool(p.config.SubnetType == SubnetTypePublic),
			VpcId:               v.ID(),
		},
		Taggable: true,
	})
	if err != nil {
		return nil, err
	}
	subnetPath := fmt.Sprintf("%s/%s/%s", s.Name(), vpcID, name)
	res.AddTag(TagSubnetName, p.config.Name)
	res.AddTag(TagSubnetType, string(p.config.SubnetType))
	res.AddTag("Name", subnetPath)

	rt, err := s.AddResource(construct.ResourceSpec{
		Path:       []string{vpcID, name, "RouteTable"},
		Properties: &cfnec2.RouteTable{VpcId: v.ID()},
		Taggable:   true,
	})
	if err != nil {
		return nil, err
	}
	rt.AddTag("Name", subnetPath)

	if _, err := s.AddResource(construct.ResourceSpec{
		Path: []string{vpcID, name, "RouteTableAssociation"},
		Properties: &cfnec2.SubnetRouteTableAssociation{
			RouteTableId: rt.Ref(),
			SubnetId:     res.Ref(),
		},
	}); err != nil {
		return nil, err
	}

	if p.config.SubnetType == SubnetTypePublic {
		route, err := s.AddResource(construct.ResourceSpec{
			Path: []string{vpcID, name, "DefaultRoute"},
			Properties: &cfnec2.Route{
				DestinationCidrBlock: cloudformation.String("0.0.0.0/0"),
				GatewayId:            cloudformation.String(igw.Ref()),
				RouteTableId:         rt.Ref(),
			},
		})
		if err != nil {
			return nil, err
		}
		route.AddDependency(attachment)
	}

	return &Subnet{
		Name:       name,
		Group:      p.config.Name,
		Type:       p.config.SubnetType,
		AZIndex:    p.azIndex,
		CIDR:       p.cidr,
		resource:   res,
		routeTable: rt,
	}, nil
}

// Resource returns the AWS::EC2::Subnet resource.
func (sn *Subnet) Resource() *construct.Resource {
	return sn.resource
}

// ID returns a reference to the subnet id.
func (sn *Subnet) ID() string {
	return sn.resource.Ref()
}

// AvailabilityZone returns the subnet's AZ as a template expression.
func (sn *Subnet) AvailabilityZone() string {
	return azOf(sn.AZIndex)
}

// azOf picks the index-th AZ of the deployment region.
func azOf(index int) string {
	return construct.Select(index, construct.GetAZs(""))
}

// RouteTable returns the subnet's route table resource.
func (sn *Subnet) RouteTable() *construct.Resource {
	return sn.routeTable
}
