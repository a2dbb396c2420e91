// Package stack assembles the OpenZFS stack: an SSM managed EC2 instance in
// a public subnet consuming an FSx for OpenZFS file system placed in an
// isolated subnet of the same VPC.
package stack

import (
	"errors"
	"fmt"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	fsxtypes "github.com/aws/aws-sdk-go-v2/service/fsx/types"
	"go.uber.org/zap"

	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
	"github.com/ThomasCrouzet/openzfs-stack/internal/ec2"
	"github.com/ThomasCrouzet/openzfs-stack/internal/fsx"
	"github.com/ThomasCrouzet/openzfs-stack/internal/iam"
	"github.com/ThomasCrouzet/openzfs-stack/internal/logging"
)

// DefaultStackName is used when no stack name is configured.
const DefaultStackName = "OpenzfsStack"

// Construct ids. They determine the logical ids in the template.
const (
	RoleID          = "SSM IAM Role"
	VpcID           = "Provider VPC"
	SecurityGroupID = "Security Group of FSx for OpenZFS file system"
	InstanceID      = "Consumer EC2 Instance"
	FileSystemID    = "FSx for OpenZFS"
)

const (
	vpcCIDR         = "10.10.0.0/24"
	ssmPolicy       = "AmazonSSMManagedInstanceCore"
	rootDevice      = "/dev/xvda"
	rootVolumeGiB   = 8
	fileSystemName  = "fsx-for-openzfs"
	storageGiB      = 64
	throughputMBps  = 64
	backupRetention = 31
)

// IngressRule is a port opened on the file system security group to the
// VPC address range.
type IngressRule struct {
	Port        ec2.Port
	Description string
}

// NFSIngress returns the ports NFS clients need: portmapper, nfsd and the
// mount, status monitor and lock daemons, for both TCP and UDP.
func NFSIngress() []IngressRule {
	var rules []IngressRule
	for _, proto := range []struct {
		single func(int) ec2.Port
		ranged func(int, int) ec2.Port
	}{
		{ec2.TCP, ec2.TCPRange},
		{ec2.UDP, ec2.UDPRange},
	} {
		rules = append(rules,
			IngressRule{Port: proto.single(111), Description: "Remote procedure call for NFS"},
			IngressRule{Port: proto.single(2049), Description: "NFS server daemon"},
			IngressRule{Port: proto.ranged(20001, 20003), Description: "NFS mount, status monitor, and lock daemon"},
		)
	}
	return rules
}

// Props are the optional properties of the stack.
type Props struct {
	construct.StackProps
	// Ingress replaces the NFS ingress rules when non-empty.
	Ingress []IngressRule
}

// OpenZFSStack is a registered stack with typed handles on its constructs.
type OpenZFSStack struct {
	*construct.Stack

	Role          *iam.Role
	Vpc           *ec2.Vpc
	SecurityGroup *ec2.SecurityGroup
	Instance      *ec2.Instance
	FileSystem    *fsx.FileSystem
}

// New builds the stack called id and registers it on app. Nothing is
// registered when construction fails.
func New(app *construct.App, id string, props Props) (*OpenZFSStack, error) {
	ingress := props.Ingress
	if len(ingress) == 0 {
		ingress = NFSIngress()
	}
	// Ports are checked up front so a bad rule never leaves half a graph.
	for _, rule := range ingress {
		if err := rule.Port.Validate(); err != nil {
			return nil, &construct.ConstructError{
				Path: []string{id, SecurityGroupID},
				Err:  fmt.Errorf("ingress %q: %w", rule.Description, err),
			}
		}
	}

	s, err := construct.NewStack(app, id, props.StackProps)
	if err != nil {
		return nil, err
	}
	st := &OpenZFSStack{Stack: s}

	if err := st.build(ingress); err != nil {
		return nil, err
	}
	if err := app.Register(s); err != nil {
		return nil, err
	}

	app.Logger().Info("stack constructed",
		zap.String(logging.FieldStack, id),
		zap.Int(logging.FieldResources, len(s.Resources())),
	)
	return st, nil
}

func (st *OpenZFSStack) build(ingress []IngressRule) error {
	var err error

	st.Role, err = iam.NewRole(st.Stack, RoleID, iam.RoleProps{
		AssumedBy:       "ec2.amazonaws.com",
		ManagedPolicies: []iam.ManagedPolicy{iam.AWSManagedPolicy(ssmPolicy)},
	})
	if err != nil {
		return err
	}

	st.Vpc, err = ec2.NewVpc(st.Stack, VpcID, ec2.VpcProps{
		CIDR:               vpcCIDR,
		MaxAZs:             2,
		NATGateways:        0,
		EnableDNSHostnames: true,
		EnableDNSSupport:   true,
		Subnets: []ec2.SubnetConfiguration{
			{Name: "Public", SubnetType: ec2.SubnetTypePublic, CIDRMask: 28},
			{Name: "Isolated", SubnetType: ec2.SubnetTypeIsolated, CIDRMask: 28},
		},
	})
	if err != nil {
		return err
	}

	st.SecurityGroup, err = ec2.NewSecurityGroup(st.Stack, SecurityGroupID, ec2.SecurityGroupProps{
		Vpc:              st.Vpc,
		AllowAllOutbound: true,
	})
	if err != nil {
		return err
	}
	for _, rule := range ingress {
		if err := st.SecurityGroup.AddIngressRule(ec2.VpcCIDR(st.Vpc), rule.Port, rule.Description); err != nil {
			return &construct.ConstructError{Path: []string{st.Name(), SecurityGroupID}, Err: err}
		}
	}

	st.Instance, err = ec2.NewInstance(st.Stack, InstanceID, ec2.InstanceProps{
		InstanceType: ec2types.InstanceTypeT3Micro,
		MachineImage: ec2.LatestAmazonLinux2(),
		Vpc:          st.Vpc,
		SubnetType:   ec2.SubnetTypePublic,
		Role:         st.Role,
		BlockDevices: []ec2.BlockDevice{{
			DeviceName: rootDevice,
			Volume:     ec2.EBS(rootVolumeGiB, ec2types.VolumeTypeGp3),
		}},
		PropagateTagsToVolumeOnCreation: true,
	})
	if err != nil {
		return err
	}

	isolated := st.Vpc.SelectSubnets(ec2.SubnetTypeIsolated)
	if len(isolated) == 0 {
		return construct.Errorf([]string{st.Name(), FileSystemID}, "VPC has no isolated subnets")
	}
	st.FileSystem, err = fsx.NewFileSystem(st.Stack, FileSystemID, fsx.FileSystemProps{
		FileSystemType:   fsxtypes.FileSystemTypeOpenzfs,
		SubnetIDs:        []string{isolated[0].ID()},
		SecurityGroupIDs: []string{st.SecurityGroup.ID()},
		StorageCapacity:  storageGiB,
		StorageType:      fsxtypes.StorageTypeSsd,
		OpenZFS:          openZFSConfiguration(),
		Tags:             map[string]string{"Name": fileSystemName},
	})
	if err != nil {
		return err
	}

	return st.addOutputs()
}

func openZFSConfiguration() *fsx.OpenZFSConfiguration {
	return &fsx.OpenZFSConfiguration{
		AutomaticBackupRetentionDays:  backupRetention,
		CopyTagsToBackups:             true,
		CopyTagsToVolumes:             true,
		DailyAutomaticBackupStartTime: "16:00",
		DeploymentType:                fsxtypes.OpenZFSDeploymentTypeSingleAz1,
		DiskIopsConfiguration: &fsx.DiskIopsConfiguration{
			Mode: fsxtypes.DiskIopsConfigurationModeAutomatic,
		},
		Options: []fsxtypes.DeleteFileSystemOpenZFSOption{
			fsxtypes.DeleteFileSystemOpenZFSOptionDeleteChildVolumesAndSnapshots,
		},
		RootVolumeConfiguration: &fsx.RootVolumeConfiguration{
			CopyTagsToSnapshots: true,
			DataCompressionType: fsxtypes.OpenZFSDataCompressionTypeZstd,
			NfsExports: []fsx.NfsExport{{
				ClientConfigurations: []fsx.ClientConfiguration{{
					Clients: "*",
					Options: []string{"rw", "crossmnt"},
				}},
			}},
			ReadOnly:      false,
			RecordSizeKiB: 128,
			UserAndGroupQuotas: []fsx.Quota{{
				ID:                      1,
				StorageCapacityQuotaGiB: 2,
				Type:                    fsxtypes.OpenZFSQuotaTypeUser,
			}},
		},
		ThroughputCapacity:         throughputMBps,
		WeeklyMaintenanceStartTime: "6:17:00",
	}
}

func (st *OpenZFSStack) addOutputs() error {
	outputs := []struct {
		id, description string
		value           string
	}{
		{"VpcId", "Provider VPC id", st.Vpc.ID()},
		{"InstanceId", "Consumer EC2 instance id", st.Instance.ID()},
		{"FileSystemId", "FSx for OpenZFS file system id", st.FileSystem.ID()},
		{"FileSystemDnsName", "DNS name NFS clients mount", st.FileSystem.DNSName()},
	}
	var errs []error
	for _, o := range outputs {
		errs = append(errs, st.AddOutput(o.id, o.description, o.value))
	}
	return errors.Join(errs...)
}
