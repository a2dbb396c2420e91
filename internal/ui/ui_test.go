package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatError(t *testing.T) {
	tests := []struct {
		name       string
		detail     string
		suggestion string
		lines      int
	}{
		{"title only", "", "", 1},
		{"with detail", "port -1 is outside 0-65535", "", 2},
		{"with hint", "port -1 is outside 0-65535", "fix the ingress rule", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FormatError("Synthesis failed", tt.detail, tt.suggestion)
			assert.Contains(t, out, "Error: Synthesis failed")
			assert.Equal(t, tt.lines, strings.Count(out, "\n"))
			if tt.suggestion != "" {
				assert.Contains(t, out, "Hint: "+tt.suggestion)
			}
		})
	}
}

func TestTable(t *testing.T) {
	out := Table([]string{"Logical ID", "Type"}, [][]string{
		{"FSxforOpenZFS", "AWS::FSx::FileSystem"},
		{"ProviderVPC5EDDC381", "AWS::EC2::VPC"},
	})

	for _, want := range []string{"Logical ID", "Type", "FSxforOpenZFS", "AWS::EC2::VPC"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "Logical ID"), strings.Index(out, "FSxforOpenZFS"))
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "template is empty", subject("", "template is empty"))
	assert.Equal(t, "Sg: open to the world", subject("Sg", "open to the world"))
}
