package construct

import (
	"testing"

	"github.com/awslabs/goformation/v7/cloudformation"
	"github.com/awslabs/goformation/v7/cloudformation/ec2"
	"github.com/awslabs/goformation/v7/cloudformation/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateResolvesReferences(t *testing.T) {
	s, err := NewStack(NewApp(), "Test", StackProps{Description: "demo"})
	require.NoError(t, err)

	param, err := s.AddParameter([]string{"Name"}, Parameter{Type: "String", Default: "bucket"})
	require.NoError(t, err)

	a, err := s.AddResource(ResourceSpec{
		Path:       []string{"A", "Resource"},
		Properties: &s3.Bucket{BucketName: cloudformation.String("a")},
		Taggable:   true,
	})
	require.NoError(t, err)
	a.AddTag("Name", "a")

	b, err := s.AddResource(ResourceSpec{
		Path: []string{"B"},
		Properties: &ec2.Subnet{
			VpcId:            Ref(param.LogicalID),
			AvailabilityZone: cloudformation.String(Select(1, GetAZs(""))),
		},
	})
	require.NoError(t, err)
	b.AddDependency(a)
	require.NoError(t, s.AddOutput("BucketArn", "arn of A", a.GetAtt("Arn")))

	tmpl, err := s.Template()
	require.NoError(t, err)

	assert.Equal(t, "2010-09-09", tmpl.AWSTemplateFormatVersion)
	assert.Equal(t, "demo", tmpl.Description)
	require.Contains(t, tmpl.Resources, a.LogicalID)
	ra := tmpl.Resources[a.LogicalID]
	assert.Equal(t, "a", ra.Properties["BucketName"])
	assert.Equal(t, []any{map[string]any{"Key": "Name", "Value": "a"}}, ra.Properties["Tags"])
	assert.Equal(t, "Test/A/Resource", ra.Metadata["aws:cdk:path"])

	rb := tmpl.Resources["B"]
	assert.Equal(t, "AWS::EC2::Subnet", rb.Type)
	assert.Equal(t, map[string]any{"Ref": "Name"}, rb.Properties["VpcId"])
	assert.Equal(t, map[string]any{"Fn::Select": []any{1.0, map[string]any{"Fn::GetAZs": ""}}}, rb.Properties["AvailabilityZone"])
	assert.Equal(t, []string{a.LogicalID}, rb.DependsOn)

	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{a.LogicalID, "Arn"}}, tmpl.Outputs["BucketArn"].Value)
	assert.Equal(t, []string{a.LogicalID}, tmpl.LogicalIDsOfType("AWS::S3::Bucket"))
}

func TestTemplateRejectsDanglingReference(t *testing.T) {
	s, err := NewStack(NewApp(), "Test", StackProps{})
	require.NoError(t, err)

	_, err = s.AddResource(ResourceSpec{
		Path:       []string{"B"},
		Properties: &ec2.Subnet{VpcId: GetAtt("Missing", "VpcId")},
	})
	require.NoError(t, err)

	_, err = s.Template()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDanglingReference)
	assert.Contains(t, err.Error(), "B -> Missing")
}

func TestDanglingReferences(t *testing.T) {
	tmpl := &Template{
		Parameters: map[string]TemplateParameter{"Image": {Type: "String"}},
		Resources: map[string]TemplateResource{
			"Vpc": {Type: "AWS::EC2::VPC"},
			"Sub": {
				Type: "AWS::EC2::Subnet",
				Properties: map[string]any{
					"VpcId":  map[string]any{"Ref": "Vpc"},
					"Az":     map[string]any{"Fn::Select": []any{0.0, map[string]any{"Fn::GetAZs": ""}}},
					"Arn":    map[string]any{"Fn::Sub": "arn:${AWS::Partition}:ec2:${Vpc.Arn}:${!Literal}"},
					"Image":  map[string]any{"Ref": "Image"},
					"Broken": []any{map[string]any{"Fn::GetAtt": []any{"Image", "Id"}}},
				},
				DependsOn: []string{"Gone"},
			},
		},
		Outputs: map[string]TemplateOutput{
			"Id": {Value: map[string]any{"Ref": "Nowhere"}},
		},
	}

	assert.Equal(t, []string{
		"Outputs.Id -> Nowhere",
		"Sub -> Gone",
		"Sub -> Image",
	}, DanglingReferences(tmpl))
}

func TestTemplateOmitsEmptyProperties(t *testing.T) {
	s, err := NewStack(NewApp(), "Test", StackProps{})
	require.NoError(t, err)

	_, err = s.AddResource(ResourceSpec{Path: []string{"IGW"}, Properties: &ec2.InternetGateway{}})
	require.NoError(t, err)

	tmpl, err := s.Template()
	require.NoError(t, err)
	assert.Equal(t, "AWS::EC2::InternetGateway", tmpl.Resources["IGW"].Type)
	assert.Nil(t, tmpl.Resources["IGW"].Properties)
}

func TestIntrinsicsDecode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want any
	}{
		{"plain string", "10.10.0.0/24", "10.10.0.0/24"},
		{"base64 lookalike", "eyJub3QiOiJhbiBpbnRyaW5zaWMifQ==", "eyJub3QiOiJhbiBpbnRyaW5zaWMifQ=="},
		{"ref", Ref("Vpc"), map[string]any{"Ref": "Vpc"}},
		{"get att", GetAtt("Vpc", "CidrBlock"), map[string]any{"Fn::GetAtt": []any{"Vpc", "CidrBlock"}}},
		{"sub", Sub("arn:${AWS::Partition}:iam::aws:policy/X"), map[string]any{"Fn::Sub": "arn:${AWS::Partition}:iam::aws:policy/X"}},
		{"base64", Base64("#!/bin/bash"), map[string]any{"Fn::Base64": "#!/bin/bash"}},
		{"select", Select(0, GetAZs("")), map[string]any{"Fn::Select": []any{0.0, map[string]any{"Fn::GetAZs": ""}}}},
		{"join", Join("/", "a", Ref("B")), map[string]any{"Fn::Join": []any{"/", []any{"a", map[string]any{"Ref": "B"}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.in))
		})
	}
}
