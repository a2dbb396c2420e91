package synth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
	"github.com/ThomasCrouzet/openzfs-stack/internal/logging"
)

// ManifestFile is the cloud assembly manifest written next to the
// templates.
const ManifestFile = "manifest.json"

const (
	manifestVersion   = "36.0.0"
	stackArtifactType = "aws:cloudformation:stack"
)

// Options control where and how an app is synthesized.
type Options struct {
	OutDir                string
	Renderer              Renderer
	TerminationProtection bool
}

// Artifact describes one written stack template.
type Artifact struct {
	Stack        string
	TemplateFile string // relative to OutDir
	Path         string
	Environment  string
	Resources    int
	Size         int
}

// Manifest is the subset of the cloud assembly manifest the deployment
// tooling reads.
type Manifest struct {
	Version   string                      `json:"version"`
	Artifacts map[string]ManifestArtifact `json:"artifacts"`
}

type ManifestArtifact struct {
	Type        string             `json:"type"`
	Environment string             `json:"environment"`
	Properties  ManifestProperties `json:"properties"`
}

type ManifestProperties struct {
	TemplateFile          string `json:"templateFile"`
	TerminationProtection bool   `json:"terminationProtection,omitempty"`
}

// Synthesize renders every registered stack of app into opts.OutDir and
// writes the manifest. Templates are rendered before anything is written,
// so a stack that fails to synthesize leaves the directory untouched.
func Synthesize(app *construct.App, opts Options) ([]Artifact, error) {
	if opts.OutDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	r := opts.Renderer
	if r == nil {
		r = JSONRenderer{}
	}
	stacks := app.Stacks()
	if len(stacks) == 0 {
		return nil, fmt.Errorf("app has no stacks to synthesize")
	}

	logger := app.Logger()
	manifest := Manifest{Version: manifestVersion, Artifacts: make(map[string]ManifestArtifact, len(stacks))}
	artifacts := make([]Artifact, 0, len(stacks))
	contents := make([][]byte, 0, len(stacks))

	for _, s := range stacks {
		data, err := RenderStack(s, r)
		if err != nil {
			return nil, fmt.Errorf("synthesizing %s: %w", s.Name(), err)
		}
		file := fmt.Sprintf("%s.template.%s", s.Name(), r.Extension())
		env := s.Props().Env.String()

		artifacts = append(artifacts, Artifact{
			Stack:        s.Name(),
			TemplateFile: file,
			Path:         filepath.Join(opts.OutDir, file),
			Environment:  env,
			Resources:    len(s.Resources()),
			Size:         len(data),
		})
		contents = append(contents, data)
		manifest.Artifacts[s.Name()] = ManifestArtifact{
			Type:        stackArtifactType,
			Environment: env,
			Properties: ManifestProperties{
				TemplateFile:          file,
				TerminationProtection: opts.TerminationProtection,
			},
		}
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	for i, a := range artifacts {
		if err := os.WriteFile(a.Path, contents[i], 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", a.Path, err)
		}
		logger.Debug("wrote template",
			zap.String(logging.FieldStack, a.Stack),
			zap.String(logging.FieldPath, a.Path),
			zap.Int(logging.FieldBytes, a.Size),
		)
	}

	data, err := encodeManifest(manifest)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(opts.OutDir, ManifestFile), data, 0o644); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}
	return artifacts, nil
}

func encodeManifest(m Manifest) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadManifest loads the manifest of a synthesized cloud assembly.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}
