package ec2

import (
	"errors"
	"fmt"
	"slices"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/awslabs/goformation/v7/cloudformation"
	cfnec2 "github.com/awslabs/goformation/v7/cloudformation/ec2"
	cfniam "github.com/awslabs/goformation/v7/cloudformation/iam"

	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
	"github.com/ThomasCrouzet/openzfs-stack/internal/iam"
)

var ErrInvalidInstance = errors.New("invalid instance")

const maxVolumeSizeGiB = 16384

// BlockDeviceVolume is an EBS volume definition.
type BlockDeviceVolume struct {
	SizeGiB    int
	VolumeType ec2types.VolumeType
}

// EBS returns a volume of sizeGiB with the given volume type.
func EBS(sizeGiB int, volumeType ec2types.VolumeType) BlockDeviceVolume {
	return BlockDeviceVolume{SizeGiB: sizeGiB, VolumeType: volumeType}
}

// BlockDevice maps a device name to a volume.
type BlockDevice struct {
	DeviceName string
	Volume     BlockDeviceVolume
}

// InstanceProps configures an instance.
type InstanceProps struct {
	InstanceType ec2types.InstanceType
	MachineImage MachineImage
	Vpc          *Vpc
	SubnetType   SubnetType
	Role         *iam.Role
	BlockDevices []BlockDevice
	// SecurityGroups may be empty, in which case EC2 attaches the VPC
	// default security group.
	SecurityGroups                  []*SecurityGroup
	PropagateTagsToVolumeOnCreation bool
}

// Instance is an EC2 instance placed in the first subnet of the selected
// type.
type Instance struct {
	resource *construct.Resource
	profile  *construct.Resource
	subnet   *Subnet
}

// NewInstance declares an instance and, when a role is given, the instance
// profile that carries it.
func NewInstance(s *construct.Stack, id string, props InstanceProps) (*Instance, error) {
	path := []string{id}
	if err := validateInstance(props); err != nil {
		return nil, &construct.ConstructError{Path: path, Err: err}
	}

	subnets := props.Vpc.SelectSubnets(props.SubnetType)
	if len(subnets) == 0 {
		return nil, &construct.ConstructError{Path: path, Err: fmt.Errorf("%w: VPC has no %s subnets", ErrInvalidInstance, props.SubnetType)}
	}
	subnet := subnets[0]

	imageID, err := props.MachineImage.ImageID(s)
	if err != nil {
		return nil, err
	}

	cfn := &cfnec2.Instance{
		AvailabilityZone: cloudformation.String(subnet.AvailabilityZone()),
		ImageId:          cloudformation.String(imageID),
		InstanceType:     cloudformation.String(string(props.InstanceType)),
		SubnetId:         cloudformation.String(subnet.ID()),
		UserData:         cloudformation.String(construct.Base64(props.MachineImage.UserData())),
	}
	if props.PropagateTagsToVolumeOnCreation {
		cfn.PropagateTagsToVolumeOnCreation = cloudformation.Bool(true)
	}
	for _, bd := range props.BlockDevices {
		cfn.BlockDeviceMappings = append(cfn.BlockDeviceMappings, cfnec2.Instance_BlockDeviceMapping{
			DeviceName: bd.DeviceName,
			Ebs: &cfnec2.Instance_Ebs{
				VolumeSize: cloudformation.Int(bd.Volume.SizeGiB),
				VolumeType: cloudformation.String(string(bd.Volume.VolumeType)),
			},
		})
	}
	for _, sg := range props.SecurityGroups {
		cfn.SecurityGroupIds = append(cfn.SecurityGroupIds, sg.ID())
	}

	inst := &Instance{subnet: subnet}

	if props.Role != nil {
		inst.profile, err = s.AddResource(construct.ResourceSpec{
			Path:       []string{id, "InstanceProfile"},
			Properties: &cfniam.InstanceProfile{Roles: []string{props.Role.Ref()}},
		})
		if err != nil {
			return nil, err
		}
		cfn.IamInstanceProfile = cloudformation.String(inst.profile.Ref())
	}

	inst.resource, err = s.AddResource(construct.ResourceSpec{
		Path:       []string{id, "Resource"},
		Properties: cfn,
		Taggable:   true,
	})
	if err != nil {
		return nil, err
	}
	inst.resource.AddTag("Name", fmt.Sprintf("%s/%s", s.Name(), id))
	if props.Role != nil {
		inst.resource.AddDependency(props.Role.Resource())
	}
	return inst, nil
}

func validateInstance(props InstanceProps) error {
	if props.Vpc == nil {
		return fmt.Errorf("%w: a VPC is required", ErrInvalidInstance)
	}
	if props.MachineImage == nil {
		return fmt.Errorf("%w: a machine image is required", ErrInvalidInstance)
	}
	if !slices.Contains(props.InstanceType.Values(), props.InstanceType) {
		return fmt.Errorf("%w: unknown instance type %q", ErrInvalidInstance, props.InstanceType)
	}
	devices := make(map[string]bool)
	for _, bd := range props.BlockDevices {
		if bd.DeviceName == "" {
			return fmt.Errorf("%w: block device without a device name", ErrInvalidInstance)
		}
		if devices[bd.DeviceName] {
			return fmt.Errorf("%w: device %s mapped twice", ErrInvalidInstance, bd.DeviceName)
		}
		devices[bd.DeviceName] = true
		if bd.Volume.SizeGiB < 1 || bd.Volume.SizeGiB > maxVolumeSizeGiB {
			return fmt.Errorf("%w: %s size %d GiB is outside 1-%d", ErrInvalidInstance, bd.DeviceName, bd.Volume.SizeGiB, maxVolumeSizeGiB)
		}
		if !slices.Contains(bd.Volume.VolumeType.Values(), bd.Volume.VolumeType) {
			return fmt.Errorf("%w: %s has unknown volume type %q", ErrInvalidInstance, bd.DeviceName, bd.Volume.VolumeType)
		}
	}
	return nil
}

// Resource returns the AWS::EC2::Instance resource.
func (i *Instance) Resource() *construct.Resource {
	return i.resource
}

// InstanceProfile returns the instance profile, or nil without a role.
func (i *Instance) InstanceProfile() *construct.Resource {
	return i.profile
}

// Subnet returns the subnet the instance is placed in.
func (i *Instance) Subnet() *Subnet {
	return i.subnet
}

// ID returns a reference to the instance id.
func (i *Instance) ID() string {
	return i.resource.Ref()
}
