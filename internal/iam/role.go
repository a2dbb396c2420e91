// Package iam declares IAM roles and references to AWS managed policies.
package iam

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/awslabs/goformation/v7/cloudformation"
	cfniam "github.com/awslabs/goformation/v7/cloudformation/iam"

	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
)

var ErrInvalidRole = errors.New("invalid role")

var policyNamePattern = regexp.MustCompile(`^[A-Za-z0-9+=,.@_/-]+$`)

// ServicePrincipal is an AWS service allowed to assume a role, e.g.
// ec2.amazonaws.com.
type ServicePrincipal string

// ManagedPolicy refers to an AWS managed policy by name.
type ManagedPolicy struct {
	Name string
}

// AWSManagedPolicy refers to the AWS managed policy called name.
func AWSManagedPolicy(name string) ManagedPolicy {
	return ManagedPolicy{Name: name}
}

// ARN returns the policy ARN in the partition the stack is deployed to.
func (p ManagedPolicy) ARN() string {
	a := arn.ARN{
		Partition: "${" + construct.PseudoPartition + "}",
		Service:   "iam",
		AccountID: "aws",
		Resource:  "policy/" + p.Name,
	}
	return construct.Sub(a.String())
}

// RoleProps configures a role.
type RoleProps struct {
	AssumedBy       ServicePrincipal
	ManagedPolicies []ManagedPolicy
	Description     string
}

type policyStatement struct {
	Action    string            `json:"Action"`
	Effect    string            `json:"Effect"`
	Principal map[string]string `json:"Principal"`
}

type policyDocument struct {
	Statement []policyStatement `json:"Statement"`
	Version   string            `json:"Version"`
}

// Role is an IAM role.
type Role struct {
	resource *construct.Resource
	policies []ManagedPolicy
}

// NewRole declares a role trusted by props.AssumedBy.
func NewRole(s *construct.Stack, id string, props RoleProps) (*Role, error) {
	path := []string{id}
	principal := string(props.AssumedBy)
	if principal == "" || !strings.HasSuffix(principal, ".amazonaws.com") {
		return nil, &construct.ConstructError{Path: path, Err: fmt.Errorf("%w: service principal %q", ErrInvalidRole, principal)}
	}

	cfn := &cfniam.Role{
		AssumeRolePolicyDocument: policyDocument{
			Statement: []policyStatement{{
				Action:    "sts:AssumeRole",
				Effect:    "Allow",
				Principal: map[string]string{"Service": principal},
			}},
			Version: "2012-10-17",
		},
	}
	if props.Description != "" {
		cfn.Description = cloudformation.String(props.Description)
	}
	for _, p := range props.ManagedPolicies {
		if !policyNamePattern.MatchString(p.Name) {
			return nil, &construct.ConstructError{Path: path, Err: fmt.Errorf("%w: managed policy name %q", ErrInvalidRole, p.Name)}
		}
		cfn.ManagedPolicyArns = append(cfn.ManagedPolicyArns, p.ARN())
	}

	res, err := s.AddResource(construct.ResourceSpec{
		Path:       []string{id, "Resource"},
		Properties: cfn,
		Taggable:   true,
	})
	if err != nil {
		return nil, err
	}
	return &Role{resource: res, policies: append([]ManagedPolicy(nil), props.ManagedPolicies...)}, nil
}

// Resource returns the AWS::IAM::Role resource.
func (r *Role) Resource() *construct.Resource {
	return r.resource
}

// Ref returns the role name.
func (r *Role) Ref() string {
	return r.resource.Ref()
}

// ARN returns the role ARN attribute.
func (r *Role) ARN() string {
	return r.resource.GetAtt("Arn")
}

// ManagedPolicies returns the attached managed policies.
func (r *Role) ManagedPolicies() []ManagedPolicy {
	return append([]ManagedPolicy(nil), r.policies...)
}
