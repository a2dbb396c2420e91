package synth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
)

// LoadTemplate reads a template written by Synthesize. The format follows
// the file extension. YAML goes through JSON so the loaded values have the
// same types as a freshly synthesized template.
func LoadTemplate(path string) (*construct.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}

	switch ext := strings.TrimPrefix(filepath.Ext(path), "."); ext {
	case FormatJSON:
	case FormatYAML, "yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("converting %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unknown template extension %q", ext)
	}

	var t construct.Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(t.Resources) == 0 {
		return nil, fmt.Errorf("%s declares no resources", path)
	}
	return &t, nil
}
