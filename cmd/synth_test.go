package cmd

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThomasCrouzet/openzfs-stack/internal/checks"
	"github.com/ThomasCrouzet/openzfs-stack/internal/config"
	"github.com/ThomasCrouzet/openzfs-stack/internal/synth"
)

func TestDeployArgs(t *testing.T) {
	a := synth.Artifact{Stack: "OpenzfsStack", Path: "cdk.out/OpenzfsStack.template.json"}

	tests := []struct {
		name string
		cfg  config.Config
		want []string
	}{
		{
			name: "defaults",
			cfg:  config.Config{Deploy: config.DeployConfig{Capabilities: []string{"CAPABILITY_IAM"}}},
			want: []string{
				"cloudformation", "deploy",
				"--template-file", "cdk.out/OpenzfsStack.template.json",
				"--stack-name", "OpenzfsStack",
				"--capabilities", "CAPABILITY_IAM",
			},
		},
		{
			name: "region and profile",
			cfg: config.Config{
				Stack:  config.StackConfig{Env: config.EnvConfig{Region: "eu-west-1"}},
				Deploy: config.DeployConfig{Profile: "sandbox"},
			},
			want: []string{
				"cloudformation", "deploy",
				"--template-file", "cdk.out/OpenzfsStack.template.json",
				"--stack-name", "OpenzfsStack",
				"--region", "eu-west-1",
				"--profile", "sandbox",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deployArgs(&tt.cfg, a))
		})
	}
}

func TestDeployWithoutAWSCLI(t *testing.T) {
	orig := findExecutable
	t.Cleanup(func() { findExecutable = orig })
	findExecutable = func(string) (string, error) { return "", exec.ErrNotFound }

	err := deploy(&config.Config{}, synth.Artifact{Stack: "OpenzfsStack"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aws not found")
}

func TestDeployRunsAWSCLI(t *testing.T) {
	origFind, origExec := findExecutable, execCommand
	t.Cleanup(func() { findExecutable, execCommand = origFind, origExec })

	var gotName string
	var gotArgs []string
	findExecutable = func(string) (string, error) { return "/usr/local/bin/aws", nil }
	execCommand = func(name string, args ...string) *exec.Cmd {
		gotName, gotArgs = name, args
		return exec.Command("true")
	}

	a := synth.Artifact{Stack: "OpenzfsStack", Path: "cdk.out/OpenzfsStack.template.json"}
	require.NoError(t, deploy(&config.Config{}, a))
	assert.Equal(t, "/usr/local/bin/aws", gotName)
	assert.Equal(t, []string{"cloudformation", "deploy"}, gotArgs[:2])
}

func TestApplyFlagOverrides(t *testing.T) {
	t.Cleanup(func() {
		outputDir, outputFormat, stackName, deployStack, deployProfile = "", "", "", false, ""
	})
	outputDir, outputFormat, stackName, deployStack, deployProfile = "build", "yaml", "Other", true, "sandbox"

	cfg := &config.Config{Output: config.OutputConfig{Dir: "cdk.out", Format: "json"}}
	applyFlagOverrides(cfg)

	assert.Equal(t, "build", cfg.Output.Dir)
	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.Equal(t, "Other", cfg.Stack.Name)
	assert.True(t, cfg.Deploy.Enabled)
	assert.Equal(t, "sandbox", cfg.Deploy.Profile)
}

func TestApplyFlagOverridesKeepsConfig(t *testing.T) {
	cfg := &config.Config{Output: config.OutputConfig{Dir: "cdk.out", Format: "json"}}
	applyFlagOverrides(cfg)
	assert.Equal(t, "cdk.out", cfg.Output.Dir)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.False(t, cfg.Deploy.Enabled)
}

func TestPrintResults(t *testing.T) {
	results := []checks.CheckResult{
		{Name: "References"},
		{Name: "Subnet layout", Skipped: true},
		{Name: "Ingress scope", Findings: []checks.Finding{
			{Severity: checks.SeverityWarning, Resource: "SG", Message: "wide"},
		}},
		{Name: "Placement", Findings: []checks.Finding{
			{Severity: checks.SeverityError, Resource: "FS", Message: "public"},
			{Severity: checks.SeverityError, Resource: "I", Message: "isolated"},
		}},
	}

	passed, failed, warnings := printResults(results)
	assert.Equal(t, 2, passed)
	assert.Equal(t, 2, failed)
	assert.Equal(t, 1, warnings)
}

func TestBuildStack(t *testing.T) {
	cfg := &config.Config{
		Stack: config.StackConfig{Name: "OpenzfsStack"},
		Log:   config.LogConfig{Level: "error", Format: "console"},
	}
	app, st, err := buildStack(cfg)
	require.NoError(t, err)
	assert.Len(t, app.Stacks(), 1)
	assert.Equal(t, "OpenzfsStack", st.Name())
}

func TestBuildStackInvalidLogger(t *testing.T) {
	cfg := &config.Config{
		Stack: config.StackConfig{Name: "OpenzfsStack"},
		Log:   config.LogConfig{Format: "xml"},
	}
	_, _, err := buildStack(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating logger")
}
