// Package fsx declares Amazon FSx file systems. Only the OpenZFS file
// system type is supported.
package fsx

import (
	"errors"
	"fmt"

	fsxtypes "github.com/aws/aws-sdk-go-v2/service/fsx/types"
	"github.com/awslabs/goformation/v7/cloudformation"
	cfnfsx "github.com/awslabs/goformation/v7/cloudformation/fsx"

	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
)

var ErrInvalidFileSystem = errors.New("invalid file system")

// DiskIopsConfiguration selects how SSD IOPS are provisioned.
type DiskIopsConfiguration struct {
	Mode fsxtypes.DiskIopsConfigurationMode
	Iops int
}

// ClientConfiguration is one NFS export rule: which clients may mount and
// with what options.
type ClientConfiguration struct {
	Clients string
	Options []string
}

// NfsExport groups client configurations of a volume export.
type NfsExport struct {
	ClientConfigurations []ClientConfiguration
}

// Quota limits the storage a user or group may consume on a volume.
type Quota struct {
	ID                      int
	StorageCapacityQuotaGiB int
	Type                    fsxtypes.OpenZFSQuotaType
}

// RootVolumeConfiguration configures the root volume of an OpenZFS file
// system.
type RootVolumeConfiguration struct {
	CopyTagsToSnapshots bool
	DataCompressionType fsxtypes.OpenZFSDataCompressionType
	NfsExports          []NfsExport
	ReadOnly            bool
	RecordSizeKiB       int
	UserAndGroupQuotas  []Quota
}

// OpenZFSConfiguration holds the OpenZFS specific settings.
type OpenZFSConfiguration struct {
	AutomaticBackupRetentionDays  int
	CopyTagsToBackups             bool
	CopyTagsToVolumes             bool
	DailyAutomaticBackupStartTime string
	DeploymentType                fsxtypes.OpenZFSDeploymentType
	DiskIopsConfiguration         *DiskIopsConfiguration
	Options                       []fsxtypes.DeleteFileSystemOpenZFSOption
	RootVolumeConfiguration       *RootVolumeConfiguration
	ThroughputCapacity            int
	WeeklyMaintenanceStartTime    string
}

// FileSystemProps configures a file system. Subnet and security group ids
// are usually encoded intrinsics such as a subnet Ref.
type FileSystemProps struct {
	FileSystemType   fsxtypes.FileSystemType
	SubnetIDs        []string
	SecurityGroupIDs []string
	StorageCapacity  int // GiB
	StorageType      fsxtypes.StorageType
	OpenZFS          *OpenZFSConfiguration
	Tags             map[string]string
}

// FileSystem is an AWS::FSx::FileSystem.
type FileSystem struct {
	resource *construct.Resource
	props    FileSystemProps
}

// NewFileSystem validates props against the FSx API constraints and
// declares the file system under id.
func NewFileSystem(s *construct.Stack, id string, props FileSystemProps) (*FileSystem, error) {
	path := []string{id}
	if err := validate(props); err != nil {
		return nil, &construct.ConstructError{Path: path, Err: fmt.Errorf("%w: %v", ErrInvalidFileSystem, err)}
	}

	res, err := s.AddResource(construct.ResourceSpec{
		Path:       path,
		Properties: props.resource(),
		Taggable:   true,
	})
	if err != nil {
		return nil, err
	}
	for k, v := range props.Tags {
		res.AddTag(k, v)
	}
	return &FileSystem{resource: res, props: props}, nil
}

// Resource returns the AWS::FSx::FileSystem resource.
func (fs *FileSystem) Resource() *construct.Resource {
	return fs.resource
}

// ID returns a reference to the file system id.
func (fs *FileSystem) ID() string {
	return fs.resource.Ref()
}

// DNSName returns the DNS name clients mount.
func (fs *FileSystem) DNSName() string {
	return fs.resource.GetAtt("DNSName")
}

// RootVolumeID returns the id of the OpenZFS root volume.
func (fs *FileSystem) RootVolumeID() string {
	return fs.resource.GetAtt("RootVolumeId")
}

// Props returns the declared properties.
func (fs *FileSystem) Props() FileSystemProps {
	return fs.props
}

// resource maps validated props onto the CloudFormation schema. Settings
// FSx defaults when omitted, such as ReadOnly, are always written so the
// template states them.
func (p FileSystemProps) resource() *cfnfsx.FileSystem {
	fs := &cfnfsx.FileSystem{
		FileSystemType:   string(p.FileSystemType),
		SecurityGroupIds: p.SecurityGroupIDs,
		StorageCapacity:  cloudformation.Int(p.StorageCapacity),
		StorageType:      cloudformation.String(string(p.StorageType)),
		SubnetIds:        p.SubnetIDs,
	}
	if p.OpenZFS != nil {
		fs.OpenZFSConfiguration = p.OpenZFS.resource()
	}
	return fs
}

func (c *OpenZFSConfiguration) resource() *cfnfsx.FileSystem_OpenZFSConfiguration {
	out := &cfnfsx.FileSystem_OpenZFSConfiguration{
		AutomaticBackupRetentionDays: cloudformation.Int(c.AutomaticBackupRetentionDays),
		CopyTagsToBackups:            cloudformation.Bool(c.CopyTagsToBackups),
		CopyTagsToVolumes:            cloudformation.Bool(c.CopyTagsToVolumes),
		DeploymentType:               string(c.DeploymentType),
		ThroughputCapacity:           cloudformation.Int(c.ThroughputCapacity),
	}
	if c.DailyAutomaticBackupStartTime != "" {
		out.DailyAutomaticBackupStartTime = cloudformation.String(c.DailyAutomaticBackupStartTime)
	}
	if c.WeeklyMaintenanceStartTime != "" {
		out.WeeklyMaintenanceStartTime = cloudformation.String(c.WeeklyMaintenanceStartTime)
	}
	if d := c.DiskIopsConfiguration; d != nil {
		out.DiskIopsConfiguration = &cfnfsx.FileSystem_DiskIopsConfiguration{
			Mode: cloudformation.String(string(d.Mode)),
		}
		if d.Iops != 0 {
			out.DiskIopsConfiguration.Iops = cloudformation.Int(d.Iops)
		}
	}
	for _, opt := range c.Options {
		out.Options = append(out.Options, string(opt))
	}
	if c.RootVolumeConfiguration != nil {
		out.RootVolumeConfiguration = c.RootVolumeConfiguration.resource()
	}
	return out
}

func (v *RootVolumeConfiguration) resource() *cfnfsx.FileSystem_RootVolumeConfiguration {
	out := &cfnfsx.FileSystem_RootVolumeConfiguration{
		CopyTagsToSnapshots: cloudformation.Bool(v.CopyTagsToSnapshots),
		DataCompressionType: cloudformation.String(string(v.DataCompressionType)),
		ReadOnly:            cloudformation.Bool(v.ReadOnly),
		RecordSizeKiB:       cloudformation.Int(v.RecordSizeKiB),
	}
	for _, export := range v.NfsExports {
		var clients []cfnfsx.FileSystem_ClientConfigurations
		for _, cc := range export.ClientConfigurations {
			clients = append(clients, cfnfsx.FileSystem_ClientConfigurations{
				Clients: cloudformation.String(cc.Clients),
				Options: cc.Options,
			})
		}
		out.NfsExports = append(out.NfsExports, cfnfsx.FileSystem_NfsExports{ClientConfigurations: clients})
	}
	for _, q := range v.UserAndGroupQuotas {
		out.UserAndGroupQuotas = append(out.UserAndGroupQuotas, cfnfsx.FileSystem_UserAndGroupQuotas{
			Id:                      cloudformation.Int(q.ID),
			StorageCapacityQuotaGiB: cloudformation.Int(q.StorageCapacityQuotaGiB),
			Type:                    cloudformation.String(string(q.Type)),
		})
	}
	return out
}
