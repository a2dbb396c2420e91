package construct

import (
	"sort"
	"strings"

	"github.com/awslabs/goformation/v7/cloudformation"
	"github.com/awslabs/goformation/v7/cloudformation/tags"
)

// Tag is a key/value pair as CloudFormation expects it in a Tags list.
type Tag = tags.Tag

// ResourceSpec describes a resource to add to a stack.
type ResourceSpec struct {
	// Path is the construct path relative to the stack, e.g.
	// ["Provider VPC", "PublicSubnet1", "Subnet"].
	Path []string
	// Properties is a typed goformation resource, e.g. *ec2.VPC. Its
	// AWSCloudFormationType names the resource type.
	Properties cloudformation.Resource
	// Taggable resources receive their own tags plus the stack tags.
	Taggable bool
}

// Resource is a declared resource inside a stack. Other declarations refer
// to it through Ref and GetAtt.
type Resource struct {
	LogicalID  string
	Type       string
	Path       []string
	Properties cloudformation.Resource
	DependsOn  []string

	taggable bool
	tags     map[string]string
	stack    *Stack
}

// Ref returns a reference to this resource.
func (r *Resource) Ref() string {
	return Ref(r.LogicalID)
}

// GetAtt returns an attribute reference on this resource.
func (r *Resource) GetAtt(attribute string) string {
	return GetAtt(r.LogicalID, attribute)
}

// AddDependency makes r wait for other during deployment.
func (r *Resource) AddDependency(other *Resource) {
	for _, id := range r.DependsOn {
		if id == other.LogicalID {
			return
		}
	}
	r.DependsOn = append(r.DependsOn, other.LogicalID)
	sort.Strings(r.DependsOn)
}

// AddTag sets a tag on a taggable resource. Resource tags win over stack
// tags with the same key.
func (r *Resource) AddTag(key, value string) {
	if r.tags == nil {
		r.tags = make(map[string]string)
	}
	r.tags[key] = value
}

// Taggable reports whether the resource type supports Tags.
func (r *Resource) Taggable() bool {
	return r.taggable
}

// Tags returns the effective tags sorted by key.
func (r *Resource) Tags() []Tag {
	if !r.taggable {
		return nil
	}
	merged := make(map[string]string)
	if r.stack != nil {
		for k, v := range r.stack.props.Tags {
			merged[k] = v
		}
	}
	for k, v := range r.tags {
		merged[k] = v
	}
	if len(merged) == 0 {
		return nil
	}

	tags := make([]Tag, 0, len(merged))
	for k, v := range merged {
		tags = append(tags, Tag{Key: k, Value: v})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Key < tags[j].Key })
	return tags
}

// ConstructPath is the full path including the stack name, as written to
// the aws:cdk:path metadata.
func (r *Resource) ConstructPath() string {
	name := ""
	if r.stack != nil {
		name = r.stack.name
	}
	return strings.Join(append([]string{name}, r.Path...), "/")
}
