package construct

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogicalID(t *testing.T) {
	tests := []struct {
		name     string
		path     []string
		expected string
	}{
		{"single component", []string{"FSx for OpenZFS"}, "FSxforOpenZFS"},
		{"resource is hashed but hidden", []string{"SSM IAM Role", "Resource"}, "SSMIAMRole3E9EE63C"},
		{"nested", []string{"Provider VPC", "PublicSubnet1", "Subnet"}, "ProviderVPCPublicSubnet1SubnetCAC760BE"},
		{"default is dropped", []string{"Provider VPC", "Default", "Resource"}, "ProviderVPC5EDDC381"},
		{"consecutive duplicates collapse", []string{"Vpc", "Vpc", "Subnet"}, "VpcSubnet7D87A219"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, LogicalID(tt.path))
		})
	}
}

func TestLogicalIDIsStable(t *testing.T) {
	path := []string{"Consumer EC2 Instance", "Resource"}
	assert.Equal(t, LogicalID(path), LogicalID(path))
	assert.Equal(t, "ConsumerEC2Instance12C2010C", LogicalID(path))
}

func TestRemoveNonAlphanumeric(t *testing.T) {
	assert.Equal(t, "SecurityGroupofFSxforOpenZFSfilesystem", RemoveNonAlphanumeric("Security Group of FSx for OpenZFS file system"))
	assert.Equal(t, "", RemoveNonAlphanumeric("--/ "))
}
