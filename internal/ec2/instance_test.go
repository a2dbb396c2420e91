package ec2

import (
	"testing"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThomasCrouzet/openzfs-stack/internal/iam"
)

func consumerInstanceProps(vpc *Vpc, role *iam.Role) InstanceProps {
	return InstanceProps{
		InstanceType: ec2types.InstanceTypeT3Micro,
		MachineImage: LatestAmazonLinux2(),
		Vpc:          vpc,
		SubnetType:   SubnetTypePublic,
		Role:         role,
		BlockDevices: []BlockDevice{{
			DeviceName: "/dev/xvda",
			Volume:     EBS(8, ec2types.VolumeTypeGp3),
		}},
		PropagateTagsToVolumeOnCreation: true,
	}
}

func TestNewInstance(t *testing.T) {
	s := newTestStack(t)
	vpc, err := NewVpc(s, "Vpc", providerVpcProps())
	require.NoError(t, err)
	role, err := iam.NewRole(s, "Role", iam.RoleProps{AssumedBy: "ec2.amazonaws.com"})
	require.NoError(t, err)

	inst, err := NewInstance(s, "Consumer EC2 Instance", consumerInstanceProps(vpc, role))
	require.NoError(t, err)
	assert.Equal(t, SubnetTypePublic, inst.Subnet().Type)
	assert.Equal(t, "PublicSubnet1", inst.Subnet().Name)

	tmpl, err := s.Template()
	require.NoError(t, err)

	res := tmpl.Resources[inst.Resource().LogicalID]
	assert.Equal(t, []string{role.Resource().LogicalID}, res.DependsOn)
	assert.Equal(t, "t3.micro", res.Properties["InstanceType"])
	assert.Equal(t, true, res.Properties["PropagateTagsToVolumeOnCreation"])
	assert.Equal(t, map[string]any{"Ref": inst.Subnet().Resource().LogicalID}, res.Properties["SubnetId"])
	assert.Equal(t, map[string]any{"Ref": inst.InstanceProfile().LogicalID}, res.Properties["IamInstanceProfile"])
	assert.Equal(t, map[string]any{"Fn::Base64": "#!/bin/bash"}, res.Properties["UserData"])
	assert.NotContains(t, res.Properties, "SecurityGroupIds")
	assert.Equal(t, []any{map[string]any{
		"DeviceName": "/dev/xvda",
		"Ebs":        map[string]any{"VolumeSize": 8.0, "VolumeType": "gp3"},
	}}, res.Properties["BlockDeviceMappings"])

	require.Len(t, tmpl.Parameters, 1)
	for id, p := range tmpl.Parameters {
		assert.Equal(t, "AWS::SSM::Parameter::Value<AWS::EC2::Image::Id>", p.Type)
		assert.Equal(t, AmazonLinux2Parameter, p.Default)
		assert.Equal(t, map[string]any{"Ref": id}, res.Properties["ImageId"])
	}
}

func TestNewInstanceValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*InstanceProps)
	}{
		{"unknown instance type", func(p *InstanceProps) { p.InstanceType = "t3.gigantic" }},
		{"zero size volume", func(p *InstanceProps) { p.BlockDevices[0].Volume.SizeGiB = 0 }},
		{"unknown volume type", func(p *InstanceProps) { p.BlockDevices[0].Volume.VolumeType = "floppy" }},
		{"duplicate device", func(p *InstanceProps) { p.BlockDevices = append(p.BlockDevices, p.BlockDevices[0]) }},
		{"no image", func(p *InstanceProps) { p.MachineImage = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStack(t)
			vpc, err := NewVpc(s, "Vpc", providerVpcProps())
			require.NoError(t, err)
			before := len(s.Resources())

			props := consumerInstanceProps(vpc, nil)
			tt.mutate(&props)
			_, err = NewInstance(s, "Instance", props)
			assert.ErrorIs(t, err, ErrInvalidInstance)
			assert.Len(t, s.Resources(), before)
		})
	}
}

func TestNewInstanceRequiresMatchingSubnets(t *testing.T) {
	s := newTestStack(t)
	props := providerVpcProps()
	props.Subnets = props.Subnets[1:]
	vpc, err := NewVpc(s, "Vpc", props)
	require.NoError(t, err)

	_, err = NewInstance(s, "Instance", consumerInstanceProps(vpc, nil))
	assert.ErrorIs(t, err, ErrInvalidInstance)
}
