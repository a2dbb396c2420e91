package wizard

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/ThomasCrouzet/openzfs-stack/internal/config"
	"github.com/ThomasCrouzet/openzfs-stack/internal/stack"
)

// WizardAnswers holds all user responses from the wizard.
type WizardAnswers struct {
	// Stack settings
	StackName             string
	Description           string
	Account               string
	Region                string
	Tags                  map[string]string
	TerminationProtection bool

	// Output settings
	OutputDir    string
	OutputFormat string

	// Deployment settings
	Deploy  bool
	Profile string

	LogLevel string
}

// tagEntry keeps tags in a stable order in the generated file.
type tagEntry struct {
	Key   string
	Value string
}

const configTemplate = `# fsx-openzfs configuration
# Every key can be overridden with FSX_OPENZFS_<SECTION>_<KEY>.

stack:
  name: {{ quote .StackName }}
{{- if .Description }}
  description: {{ quote .Description }}
{{- end }}
{{- if or .Account .Region }}
  env:
{{- if .Account }}
    account: {{ quote .Account }}
{{- end }}
{{- if .Region }}
    region: {{ .Region }}
{{- end }}
{{- end }}
{{- if .Tags }}
  tags:
{{- range .Tags }}
    {{ quote .Key }}: {{ quote .Value }}
{{- end }}
{{- end }}
  termination_protection: {{ if .TerminationProtection }}true{{ else }}false{{ end }}

output:
  dir: {{ quote .OutputDir }}
  format: {{ .OutputFormat }}

deploy:
  enabled: {{ if .Deploy }}true{{ else }}false{{ end }}
  capabilities:
    - CAPABILITY_IAM
{{- if .Profile }}
  profile: {{ quote .Profile }}
{{- end }}

log:
  level: {{ .LogLevel }}
`

// GenerateConfig renders the YAML config from wizard answers.
func GenerateConfig(answers WizardAnswers) (string, error) {
	// Set defaults
	if answers.StackName == "" {
		answers.StackName = stack.DefaultStackName
	}
	if answers.OutputDir == "" {
		answers.OutputDir = "cdk.out"
	}
	if answers.OutputFormat == "" {
		answers.OutputFormat = "json"
	}
	if answers.LogLevel == "" {
		answers.LogLevel = "info"
	}

	tmpl, err := template.New("config").Funcs(template.FuncMap{
		"quote": yamlQuote,
	}).Parse(configTemplate)
	if err != nil {
		return "", err
	}

	data := struct {
		WizardAnswers
		Tags []tagEntry
	}{WizardAnswers: answers, Tags: sortedTags(answers.Tags)}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	// Catch quoting mistakes before the file reaches disk.
	var check map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &check); err != nil {
		return "", fmt.Errorf("generated config is not valid YAML: %w", err)
	}

	return buf.String(), nil
}

// yamlQuote renders s as a double-quoted YAML scalar.
func yamlQuote(s string) string {
	node := yaml.Node{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle, Value: s}
	out, err := yaml.Marshal(&node)
	if err != nil {
		return fmt.Sprintf("%q", s)
	}
	return strings.TrimSuffix(string(out), "\n")
}

func sortedTags(tags map[string]string) []tagEntry {
	out := make([]tagEntry, 0, len(tags))
	for k, v := range tags {
		out = append(out, tagEntry{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ParseTags parses "key=value" pairs separated by commas.
func ParseTags(s string) (map[string]string, error) {
	tags := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("tag %q is not key=value", pair)
		}
		if err := config.ValidateTagKey(key); err != nil {
			return nil, err
		}
		tags[key] = strings.TrimSpace(value)
	}
	return tags, nil
}
