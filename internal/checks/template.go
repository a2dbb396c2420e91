package checks

import (
	"net"

	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
)

const (
	typeVPC              = "AWS::EC2::VPC"
	typeSubnet           = "AWS::EC2::Subnet"
	typeRoute            = "AWS::EC2::Route"
	typeInternetGateway  = "AWS::EC2::InternetGateway"
	typeRouteAssociation = "AWS::EC2::SubnetRouteTableAssociation"
	typeSecurityGroup    = "AWS::EC2::SecurityGroup"
	typeInstance         = "AWS::EC2::Instance"
	typeFileSystem       = "AWS::FSx::FileSystem"
)

func refTarget(v any) (string, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return "", false
	}
	id, ok := m["Ref"].(string)
	return id, ok
}

func getAttTarget(v any) (id, attr string, ok bool) {
	m, isMap := v.(map[string]any)
	if !isMap || len(m) != 1 {
		return "", "", false
	}
	args, isList := m["Fn::GetAtt"].([]any)
	if !isList || len(args) != 2 {
		return "", "", false
	}
	id, ok1 := args[0].(string)
	attr, ok2 := args[1].(string)
	return id, attr, ok1 && ok2
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), n == float64(int(n))
	case int:
		return n, true
	default:
		return 0, false
	}
}

// literalCIDR parses v when it is a literal IPv4 block.
func literalCIDR(v any) (*net.IPNet, bool) {
	s, ok := v.(string)
	if !ok {
		return nil, false
	}
	ip, n, err := net.ParseCIDR(s)
	if err != nil || ip.To4() == nil {
		return nil, false
	}
	return n, true
}

// vpcCIDRs maps each VPC logical ID to its literal CIDR block.
func vpcCIDRs(t *construct.Template) map[string]*net.IPNet {
	out := make(map[string]*net.IPNet)
	for _, id := range t.LogicalIDsOfType(typeVPC) {
		if n, ok := literalCIDR(t.Resources[id].Properties["CidrBlock"]); ok {
			out[id] = n
		}
	}
	return out
}

// publicSubnets returns the subnets whose route table sends traffic to an
// internet gateway.
func publicSubnets(t *construct.Template) map[string]bool {
	gateways := make(map[string]bool)
	for _, id := range t.LogicalIDsOfType(typeInternetGateway) {
		gateways[id] = true
	}

	publicTables := make(map[string]bool)
	for _, id := range t.LogicalIDsOfType(typeRoute) {
		props := t.Resources[id].Properties
		gw, ok := refTarget(props["GatewayId"])
		if !ok || !gateways[gw] {
			continue
		}
		if rt, ok := refTarget(props["RouteTableId"]); ok {
			publicTables[rt] = true
		}
	}

	out := make(map[string]bool)
	for _, id := range t.LogicalIDsOfType(typeRouteAssociation) {
		props := t.Resources[id].Properties
		rt, ok1 := refTarget(props["RouteTableId"])
		subnet, ok2 := refTarget(props["SubnetId"])
		if ok1 && ok2 && publicTables[rt] {
			out[subnet] = true
		}
	}
	return out
}
