package synth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTemplateRoundTrip(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatYAML} {
		t.Run(format, func(t *testing.T) {
			app := newApp(t)
			r, err := RendererFor(format)
			require.NoError(t, err)

			dir := t.TempDir()
			artifacts, err := Synthesize(app, Options{OutDir: dir, Renderer: r})
			require.NoError(t, err)
			require.Len(t, artifacts, 1)

			loaded, err := LoadTemplate(artifacts[0].Path)
			require.NoError(t, err)

			want, err := app.Stacks()[0].Template()
			require.NoError(t, err)
			assert.Equal(t, want, loaded)
		})
	}
}

func TestLoadTemplateErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"missing", filepath.Join(dir, "absent.json"), "reading template"},
		{"extension", write("stack.template.txt", "{}"), "unknown template extension"},
		{"bad json", write("bad.template.json", "{"), "parsing"},
		{"bad yaml", write("bad.template.yaml", "Resources: [\n"), "parsing"},
		{"empty", write("empty.template.json", `{"Resources":{}}`), "declares no resources"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTemplate(tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
