package fsx

import (
	"errors"
	"fmt"
	"regexp"
	"slices"

	fsxtypes "github.com/aws/aws-sdk-go-v2/service/fsx/types"
)

const (
	minStorageCapacityGiB = 64
	maxStorageCapacityGiB = 524288
	maxBackupRetention    = 90
)

var (
	dailyTimePattern  = regexp.MustCompile(`^([01]\d|2[0-3]):?([0-5]\d)$`)
	weeklyTimePattern = regexp.MustCompile(`^[1-7]:([01]\d|2[0-3]):?([0-5]\d)$`)

	recordSizesKiB = []int{4, 8, 16, 32, 64, 128, 256, 512, 1024}

	// Throughput capacities (MB/s) accepted per deployment type.
	throughputByDeployment = map[fsxtypes.OpenZFSDeploymentType][]int{
		fsxtypes.OpenZFSDeploymentTypeSingleAz1:   {64, 128, 256, 512, 1024, 2048, 3072, 4096},
		fsxtypes.OpenZFSDeploymentTypeSingleAzHa1: {64, 128, 256, 512, 1024, 2048, 3072, 4096},
		fsxtypes.OpenZFSDeploymentTypeSingleAz2:   {160, 320, 640, 1280, 2560, 3840, 5120, 7680, 10240},
		fsxtypes.OpenZFSDeploymentTypeSingleAzHa2: {160, 320, 640, 1280, 2560, 3840, 5120, 7680, 10240},
		fsxtypes.OpenZFSDeploymentTypeMultiAz1:    {160, 320, 640, 1280, 2560, 3840, 5120, 7680, 10240},
	}
)

func validate(p FileSystemProps) error {
	if !slices.Contains(p.FileSystemType.Values(), p.FileSystemType) {
		return fmt.Errorf("unknown file system type %q", p.FileSystemType)
	}
	if p.FileSystemType != fsxtypes.FileSystemTypeOpenzfs {
		return fmt.Errorf("file system type %s is not supported", p.FileSystemType)
	}
	if p.OpenZFS == nil {
		return errors.New("OPENZFS file systems need an OpenZFS configuration")
	}
	if !slices.Contains(p.StorageType.Values(), p.StorageType) {
		return fmt.Errorf("unknown storage type %q", p.StorageType)
	}
	if p.StorageCapacity < minStorageCapacityGiB || p.StorageCapacity > maxStorageCapacityGiB {
		return fmt.Errorf("storage capacity %d GiB is outside %d-%d", p.StorageCapacity, minStorageCapacityGiB, maxStorageCapacityGiB)
	}
	if len(p.SecurityGroupIDs) > 50 {
		return fmt.Errorf("at most 50 security groups, got %d", len(p.SecurityGroupIDs))
	}
	return validateOpenZFS(p.OpenZFS, len(p.SubnetIDs))
}

func validateOpenZFS(c *OpenZFSConfiguration, subnets int) error {
	if !slices.Contains(c.DeploymentType.Values(), c.DeploymentType) {
		return fmt.Errorf("unknown deployment type %q", c.DeploymentType)
	}

	wantSubnets := 1
	if c.DeploymentType == fsxtypes.OpenZFSDeploymentTypeMultiAz1 {
		wantSubnets = 2
	}
	if subnets != wantSubnets {
		return fmt.Errorf("%s needs %d subnet(s), got %d", c.DeploymentType, wantSubnets, subnets)
	}

	if allowed, ok := throughputByDeployment[c.DeploymentType]; ok && !slices.Contains(allowed, c.ThroughputCapacity) {
		return fmt.Errorf("throughput capacity %d MB/s is not one of %v for %s", c.ThroughputCapacity, allowed, c.DeploymentType)
	}
	if c.AutomaticBackupRetentionDays < 0 || c.AutomaticBackupRetentionDays > maxBackupRetention {
		return fmt.Errorf("backup retention %d days is outside 0-%d", c.AutomaticBackupRetentionDays, maxBackupRetention)
	}
	if c.DailyAutomaticBackupStartTime != "" && !dailyTimePattern.MatchString(c.DailyAutomaticBackupStartTime) {
		return fmt.Errorf("daily backup start time %q is not HH:MM", c.DailyAutomaticBackupStartTime)
	}
	if c.WeeklyMaintenanceStartTime != "" && !weeklyTimePattern.MatchString(c.WeeklyMaintenanceStartTime) {
		return fmt.Errorf("weekly maintenance start time %q is not d:HH:MM", c.WeeklyMaintenanceStartTime)
	}
	if c.DiskIopsConfiguration != nil {
		mode := c.DiskIopsConfiguration.Mode
		if !slices.Contains(mode.Values(), mode) {
			return fmt.Errorf("unknown disk IOPS mode %q", mode)
		}
		if mode == fsxtypes.DiskIopsConfigurationModeAutomatic && c.DiskIopsConfiguration.Iops != 0 {
			return errors.New("disk IOPS must not be set in AUTOMATIC mode")
		}
	}
	for _, opt := range c.Options {
		if !slices.Contains(opt.Values(), opt) {
			return fmt.Errorf("unknown file system option %q", opt)
		}
	}
	if c.RootVolumeConfiguration != nil {
		return validateRootVolume(c.RootVolumeConfiguration)
	}
	return nil
}

func validateRootVolume(v *RootVolumeConfiguration) error {
	if !slices.Contains(v.DataCompressionType.Values(), v.DataCompressionType) {
		return fmt.Errorf("unknown data compression type %q", v.DataCompressionType)
	}
	if !slices.Contains(recordSizesKiB, v.RecordSizeKiB) {
		return fmt.Errorf("record size %d KiB is not one of %v", v.RecordSizeKiB, recordSizesKiB)
	}
	for _, export := range v.NfsExports {
		if len(export.ClientConfigurations) == 0 {
			return errors.New("NFS export without client configurations")
		}
		for _, cc := range export.ClientConfigurations {
			if cc.Clients == "" {
				return errors.New("NFS client configuration without clients")
			}
			if len(cc.Options) == 0 {
				return fmt.Errorf("NFS client configuration for %q without options", cc.Clients)
			}
		}
	}
	seen := make(map[string]bool)
	for _, q := range v.UserAndGroupQuotas {
		if !slices.Contains(q.Type.Values(), q.Type) {
			return fmt.Errorf("unknown quota type %q", q.Type)
		}
		if q.ID < 0 {
			return fmt.Errorf("quota principal id %d is negative", q.ID)
		}
		if q.StorageCapacityQuotaGiB < 0 {
			return fmt.Errorf("quota for %s %d is negative", q.Type, q.ID)
		}
		key := fmt.Sprintf("%s/%d", q.Type, q.ID)
		if seen[key] {
			return fmt.Errorf("duplicate quota for %s %d", q.Type, q.ID)
		}
		seen[key] = true
	}
	return nil
}
