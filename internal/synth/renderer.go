// Package synth renders stack templates and writes the cloud assembly
// directory consumed by the deployment tooling.
package synth

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
)

// Supported template formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Renderer defines the interface for template encoders.
type Renderer interface {
	Render(t *construct.Template) ([]byte, error)
	// Extension is the file extension without the dot.
	Extension() string
}

// RendererFor returns the renderer for format. An empty format selects
// JSON.
func RendererFor(format string) (Renderer, error) {
	switch format {
	case "", FormatJSON:
		return JSONRenderer{}, nil
	case FormatYAML, "yml":
		return YAMLRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown template format %q (expected %s or %s)", format, FormatJSON, FormatYAML)
	}
}

// JSONRenderer writes templates as indented JSON with sorted keys.
type JSONRenderer struct{}

func (JSONRenderer) Render(t *construct.Template) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// Parameter types such as AWS::SSM::Parameter::Value<...> must stay
	// readable.
	enc.SetEscapeHTML(false)
	enc.SetIndent("", " ")
	if err := enc.Encode(t); err != nil {
		return nil, fmt.Errorf("encoding template: %w", err)
	}
	return buf.Bytes(), nil
}

func (JSONRenderer) Extension() string { return FormatJSON }

// YAMLRenderer writes templates as YAML using the long intrinsic function
// form (Fn::GetAtt keys rather than !GetAtt tags).
type YAMLRenderer struct{}

func (YAMLRenderer) Render(t *construct.Template) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return nil, fmt.Errorf("encoding template: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding template: %w", err)
	}
	return buf.Bytes(), nil
}

func (YAMLRenderer) Extension() string { return FormatYAML }

// RenderStack synthesizes s and encodes it with r.
func RenderStack(s *construct.Stack, r Renderer) ([]byte, error) {
	t, err := s.Template()
	if err != nil {
		return nil, err
	}
	return r.Render(t)
}
