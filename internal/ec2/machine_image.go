package ec2

import (
	"strings"

	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
)

// AmazonLinux2Parameter is the public SSM parameter holding the latest
// Amazon Linux 2 AMI id.
const AmazonLinux2Parameter = "/aws/service/ami-amazon-linux-latest/amzn2-ami-hvm-x86_64-gp2"

const ssmImageParameterType = "AWS::SSM::Parameter::Value<AWS::EC2::Image::Id>"

// MachineImage resolves to an AMI id inside a stack.
type MachineImage interface {
	// ImageID returns the AMI id, typically an encoded Ref to a parameter.
	ImageID(s *construct.Stack) (string, error)
	UserData() string
}

type ssmImage struct {
	parameterName string
}

// LatestAmazonLinux2 resolves the AMI from the public SSM parameter at
// deploy time, so the synthesized template does not pin an AMI id.
func LatestAmazonLinux2() MachineImage {
	return FromSSMParameter(AmazonLinux2Parameter)
}

// FromSSMParameter resolves the AMI from an SSM parameter.
func FromSSMParameter(name string) MachineImage {
	return ssmImage{parameterName: name}
}

func (i ssmImage) ImageID(s *construct.Stack) (string, error) {
	id := "SsmParameterValue" + strings.ReplaceAll(i.parameterName, "/", "--")
	p, err := s.AddParameter([]string{id, "Parameter"}, construct.Parameter{
		Type:    ssmImageParameterType,
		Default: i.parameterName,
	})
	if err != nil {
		return "", err
	}
	return construct.Ref(p.LogicalID), nil
}

func (ssmImage) UserData() string {
	return "#!/bin/bash"
}
