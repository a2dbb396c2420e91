package construct

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/awslabs/goformation/v7/cloudformation"
)

// Template is the synthesized CloudFormation representation of a stack.
// Property values are plain JSON values (maps, slices, strings, float64,
// bool) so the same template renders identically as JSON or YAML.
type Template struct {
	AWSTemplateFormatVersion string                       `json:"AWSTemplateFormatVersion,omitempty" yaml:"AWSTemplateFormatVersion,omitempty"`
	Description              string                       `json:"Description,omitempty" yaml:"Description,omitempty"`
	Parameters               map[string]TemplateParameter `json:"Parameters,omitempty" yaml:"Parameters,omitempty"`
	Resources                map[string]TemplateResource  `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]TemplateOutput    `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

type TemplateParameter struct {
	Type        string `json:"Type" yaml:"Type"`
	Default     string `json:"Default,omitempty" yaml:"Default,omitempty"`
	Description string `json:"Description,omitempty" yaml:"Description,omitempty"`
}

type TemplateResource struct {
	Type       string         `json:"Type" yaml:"Type"`
	Properties map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	DependsOn  []string       `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
	Metadata   map[string]any `json:"Metadata,omitempty" yaml:"Metadata,omitempty"`
}

type TemplateOutput struct {
	Description string `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any    `json:"Value" yaml:"Value"`
}

const pathMetadataKey = "aws:cdk:path"

// Template builds the CloudFormation template for the stack. Resources are
// marshalled through a goformation template, then intrinsics are decoded
// and tags, dependencies and path metadata are attached. It fails if any
// Ref, Fn::GetAtt, Fn::Sub or DependsOn points outside the stack.
func (s *Stack) Template() (*Template, error) {
	cfn := cloudformation.NewTemplate()
	cfn.Description = s.props.Description
	for _, r := range s.order {
		cfn.Resources[r.LogicalID] = r.Properties
	}

	t, err := decodeTemplate(cfn)
	if err != nil {
		return nil, fmt.Errorf("stack %s: %w", s.name, err)
	}

	if len(s.parameters) > 0 {
		t.Parameters = make(map[string]TemplateParameter, len(s.parameters))
		for id, p := range s.parameters {
			t.Parameters[id] = TemplateParameter{Type: p.Type, Default: p.Default, Description: p.Description}
		}
	}

	for _, r := range s.order {
		res := t.Resources[r.LogicalID]
		if tags := r.Tags(); len(tags) > 0 {
			if res.Properties == nil {
				res.Properties = make(map[string]any)
			}
			generic, err := toGeneric(tags)
			if err != nil {
				return nil, &ConstructError{Path: r.Path, Err: err}
			}
			res.Properties["Tags"] = generic
		}
		res.DependsOn = append([]string(nil), r.DependsOn...)
		res.Metadata = map[string]any{pathMetadataKey: r.ConstructPath()}
		t.Resources[r.LogicalID] = res
	}

	if len(s.outputs) > 0 {
		t.Outputs = make(map[string]TemplateOutput, len(s.outputs))
		for id, o := range s.outputs {
			v, err := toGeneric(o.Value)
			if err != nil {
				return nil, &ConstructError{Path: []string{s.name, id}, Err: err}
			}
			t.Outputs[id] = TemplateOutput{Description: o.Description, Value: decodeValues(v)}
		}
	}

	if dangling := DanglingReferences(t); len(dangling) > 0 {
		return nil, fmt.Errorf("stack %s: %w: %s", s.name, ErrDanglingReference, strings.Join(dangling, ", "))
	}
	return t, nil
}

// decodeTemplate marshals cfn and rebuilds it as a Template with every
// encoded intrinsic in object form.
func decodeTemplate(cfn *cloudformation.Template) (*Template, error) {
	generic, err := toGeneric(cfn)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(decodeValues(generic))
	if err != nil {
		return nil, fmt.Errorf("encoding template: %w", err)
	}
	t := &Template{}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("decoding template: %w", err)
	}
	if t.Resources == nil {
		t.Resources = make(map[string]TemplateResource)
	}
	for id, r := range t.Resources {
		if len(r.Properties) == 0 {
			r.Properties = nil
			t.Resources[id] = r
		}
	}
	return t, nil
}

// LogicalIDsOfType returns the sorted logical IDs of resources of typ.
func (t *Template) LogicalIDsOfType(typ string) []string {
	var ids []string
	for id, r := range t.Resources {
		if r.Type == typ {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding: %w", err)
	}
	return out, nil
}

// refKind separates references that may name parameters from those that
// must name resources.
type refKind int

const (
	refAny refKind = iota
	refResource
)

var subVariable = regexp.MustCompile(`\$\{([^!}][^}]*)\}`)

// DanglingReferences lists every reference in t whose target is not
// declared in t. The result is sorted and empty for a consistent template.
func DanglingReferences(t *Template) []string {
	seen := make(map[string]bool)
	var out []string

	report := func(from, target string, kind refKind) {
		if strings.HasPrefix(target, pseudoPrefix) && kind == refAny {
			return
		}
		if _, ok := t.Resources[target]; ok {
			return
		}
		if kind == refAny {
			if _, ok := t.Parameters[target]; ok {
				return
			}
		}
		msg := fmt.Sprintf("%s -> %s", from, target)
		if !seen[msg] {
			seen[msg] = true
			out = append(out, msg)
		}
	}

	for id, r := range t.Resources {
		walkRefs(r.Properties, func(target string, kind refKind) { report(id, target, kind) })
		for _, dep := range r.DependsOn {
			report(id, dep, refResource)
		}
	}
	for id, o := range t.Outputs {
		walkRefs(o.Value, func(target string, kind refKind) { report("Outputs."+id, target, kind) })
	}

	sort.Strings(out)
	return out
}

func walkRefs(v any, visit func(target string, kind refKind)) {
	switch x := v.(type) {
	case map[string]any:
		if len(x) == 1 {
			if ref, ok := x["Ref"].(string); ok {
				visit(ref, refAny)
				return
			}
			if att, ok := x["Fn::GetAtt"].([]any); ok && len(att) == 2 {
				if id, ok := att[0].(string); ok {
					visit(id, refResource)
				}
				return
			}
			if sub, ok := x["Fn::Sub"].(string); ok {
				for _, m := range subVariable.FindAllStringSubmatch(sub, -1) {
					name, attr, found := strings.Cut(m[1], ".")
					if found && attr != "" {
						visit(name, refResource)
					} else {
						visit(name, refAny)
					}
				}
				return
			}
		}
		for _, child := range x {
			walkRefs(child, visit)
		}
	case []any:
		for _, child := range x {
			walkRefs(child, visit)
		}
	}
}
