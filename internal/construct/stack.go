package construct

import (
	"fmt"
	"regexp"
	"sort"

	"go.uber.org/zap"

	"github.com/ThomasCrouzet/openzfs-stack/internal/logging"
)

var (
	stackNamePattern    = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)
	resourceTypePattern = regexp.MustCompile(`^[A-Za-z0-9]+::[A-Za-z0-9]+::[A-Za-z0-9]+$`)
)

const maxStackNameLen = 128

// Environment pins a stack to an account and region. Empty fields leave the
// stack environment-agnostic.
type Environment struct {
	Account string
	Region  string
}

// String renders the environment the way the cloud assembly manifest does.
func (e Environment) String() string {
	account, region := e.Account, e.Region
	if account == "" {
		account = "unknown-account"
	}
	if region == "" {
		region = "unknown-region"
	}
	return fmt.Sprintf("aws://%s/%s", account, region)
}

// StackProps are the optional properties of a stack.
type StackProps struct {
	Description string
	Env         Environment
	Tags        map[string]string
}

// Parameter is a template parameter.
type Parameter struct {
	LogicalID   string
	Type        string
	Default     string
	Description string
}

// Output is a template output.
type Output struct {
	LogicalID   string
	Description string
	Value       any
}

// Stack collects resources, parameters and outputs that are deployed
// together. A stack is only visible to its App once registered.
type Stack struct {
	name   string
	props  StackProps
	logger *zap.Logger

	resources  map[string]*Resource
	order      []*Resource
	parameters map[string]*Parameter
	outputs    map[string]*Output
}

// NewStack creates an unregistered stack. Call App.Register once the stack
// is fully built.
func NewStack(app *App, name string, props StackProps) (*Stack, error) {
	if err := ValidateStackName(name); err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	if app != nil {
		logger = app.Logger()
	}

	return &Stack{
		name:       name,
		props:      props,
		logger:     logger.With(zap.String(logging.FieldStack, name)),
		resources:  make(map[string]*Resource),
		parameters: make(map[string]*Parameter),
		outputs:    make(map[string]*Output),
	}, nil
}

// ValidateStackName checks name against the CloudFormation stack name rules.
func ValidateStackName(name string) error {
	if len(name) > maxStackNameLen || !stackNamePattern.MatchString(name) {
		return fmt.Errorf("stack %q: %w: must start with a letter and contain only alphanumerics and hyphens", name, ErrInvalidName)
	}
	return nil
}

// Name returns the stack name.
func (s *Stack) Name() string {
	return s.name
}

// Props returns the stack properties.
func (s *Stack) Props() StackProps {
	return s.props
}

// AddResource declares a resource. The logical ID is derived from the
// path and must be unique in the stack.
func (s *Stack) AddResource(spec ResourceSpec) (*Resource, error) {
	if len(spec.Path) == 0 {
		return nil, &ConstructError{Path: []string{s.name}, Err: fmt.Errorf("%w: empty construct path", ErrInvalidName)}
	}
	if spec.Properties == nil {
		return nil, &ConstructError{Path: spec.Path, Err: fmt.Errorf("%w: resource without properties", ErrInvalidName)}
	}
	typ := spec.Properties.AWSCloudFormationType()
	if !resourceTypePattern.MatchString(typ) {
		return nil, &ConstructError{Path: spec.Path, Err: fmt.Errorf("%w: resource type %q", ErrInvalidName, typ)}
	}

	id := LogicalID(spec.Path)
	if id == "" {
		return nil, &ConstructError{Path: spec.Path, Err: fmt.Errorf("%w: path has no alphanumeric characters", ErrInvalidName)}
	}
	if s.taken(id) {
		return nil, &ConstructError{Path: spec.Path, Err: fmt.Errorf("%w: %s", ErrDuplicateLogicalID, id)}
	}

	r := &Resource{
		LogicalID:  id,
		Type:       typ,
		Path:       append([]string(nil), spec.Path...),
		Properties: spec.Properties,
		taggable:   spec.Taggable,
		stack:      s,
	}
	s.resources[id] = r
	s.order = append(s.order, r)

	s.logger.Debug("registered resource",
		zap.String(logging.FieldLogicalID, id),
		zap.String(logging.FieldType, typ),
		zap.String(logging.FieldPath, r.ConstructPath()),
	)
	return r, nil
}

// AddParameter declares a template parameter. Declaring the same parameter
// twice with identical settings returns the existing one.
func (s *Stack) AddParameter(path []string, p Parameter) (*Parameter, error) {
	id := LogicalID(path)
	if existing, ok := s.parameters[id]; ok {
		if existing.Type == p.Type && existing.Default == p.Default {
			return existing, nil
		}
		return nil, &ConstructError{Path: path, Err: fmt.Errorf("%w: %s", ErrDuplicateLogicalID, id)}
	}
	if id == "" || s.taken(id) {
		return nil, &ConstructError{Path: path, Err: fmt.Errorf("%w: %q", ErrDuplicateLogicalID, id)}
	}

	p.LogicalID = id
	s.parameters[id] = &p
	s.logger.Debug("registered parameter", zap.String(logging.FieldLogicalID, id), zap.String(logging.FieldType, p.Type))
	return &p, nil
}

// AddOutput declares a template output.
func (s *Stack) AddOutput(id string, description string, value any) error {
	id = RemoveNonAlphanumeric(id)
	if id == "" {
		return &ConstructError{Path: []string{s.name}, Err: fmt.Errorf("%w: empty output id", ErrInvalidName)}
	}
	if _, ok := s.outputs[id]; ok {
		return &ConstructError{Path: []string{s.name, id}, Err: fmt.Errorf("%w: output %s", ErrDuplicateLogicalID, id)}
	}
	s.outputs[id] = &Output{LogicalID: id, Description: description, Value: value}
	return nil
}

func (s *Stack) taken(id string) bool {
	if _, ok := s.resources[id]; ok {
		return true
	}
	_, ok := s.parameters[id]
	return ok
}

// Resource looks up a resource by logical ID.
func (s *Stack) Resource(logicalID string) (*Resource, bool) {
	r, ok := s.resources[logicalID]
	return r, ok
}

// Resources returns all resources in declaration order.
func (s *Stack) Resources() []*Resource {
	return append([]*Resource(nil), s.order...)
}

// ResourcesOfType returns the resources of the given CloudFormation type in
// declaration order.
func (s *Stack) ResourcesOfType(typ string) []*Resource {
	var out []*Resource
	for _, r := range s.order {
		if r.Type == typ {
			out = append(out, r)
		}
	}
	return out
}

// Parameters returns parameters sorted by logical ID.
func (s *Stack) Parameters() []*Parameter {
	out := make([]*Parameter, 0, len(s.parameters))
	for _, p := range s.parameters {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LogicalID < out[j].LogicalID })
	return out
}

// Outputs returns outputs sorted by logical ID.
func (s *Stack) Outputs() []*Output {
	out := make([]*Output, 0, len(s.outputs))
	for _, o := range s.outputs {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LogicalID < out[j].LogicalID })
	return out
}
