package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadYAML(t *testing.T, content string) *Config {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(content)))
	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "OpenzfsStack", cfg.Stack.Name)
	assert.Equal(t, "cdk.out", cfg.Output.Dir)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, []string{"CAPABILITY_IAM"}, cfg.Deploy.Capabilities)
	assert.False(t, cfg.Deploy.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Empty(t, cfg.RawChecks)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	cfg := loadYAML(t, `
stack:
  name: StorageStack
  description: Shared NFS storage
  env:
    account: "123456789012"
    region: eu-west-1
  tags:
    team: storage
  termination_protection: true
output:
  dir: build
  format: yaml
deploy:
  enabled: true
  profile: sandbox
log:
  level: debug
  format: json
checks:
  subnets:
    enabled: false
`)

	assert.Equal(t, "StorageStack", cfg.Stack.Name)
	assert.Equal(t, "eu-west-1", cfg.Stack.Env.Region)
	assert.Equal(t, map[string]string{"team": "storage"}, cfg.Stack.Tags)
	assert.True(t, cfg.Stack.TerminationProtection)
	assert.Equal(t, "build", cfg.Output.Dir)
	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.True(t, cfg.Deploy.Enabled)
	assert.Equal(t, "sandbox", cfg.Deploy.Profile)
	assert.Equal(t, map[string]any{"enabled": false}, cfg.RawChecks["subnets"])
	require.NoError(t, cfg.Validate())

	props := cfg.StackProps()
	assert.Equal(t, "Shared NFS storage", props.Description)
	assert.Equal(t, "aws://123456789012/eu-west-1", props.Env.String())
	assert.Nil(t, props.Ingress)

	lc := cfg.LoggingConfig()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "json", lc.Format)
}

func TestLoadRejectsNameTagFromFile(t *testing.T) {
	cfg := loadYAML(t, `
stack:
  tags:
    Name: shared
    team: storage
`)

	// viper lowercases map keys read from the file.
	assert.Equal(t, map[string]string{"name": "shared", "team": "storage"}, cfg.Stack.Tags)
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `tag key "name" collides with the Name tag`)
}

func TestValidateTagKey(t *testing.T) {
	for _, key := range []string{"team", "cost-center", "Owner", "names"} {
		assert.NoError(t, ValidateTagKey(key), key)
	}
	for _, key := range []string{"", "Name", "name", "aws:cloudformation:stack-name", "aws-cdk:subnet-name"} {
		assert.Error(t, ValidateTagKey(key), key)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("FSX_OPENZFS_STACK_NAME", "FromEnv")
	t.Setenv("FSX_OPENZFS_OUTPUT_FORMAT", "yaml")

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "FromEnv", cfg.Stack.Name)
	assert.Equal(t, "yaml", cfg.Output.Format)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty name", func(c *Config) { c.Stack.Name = "" }, "stack.name"},
		{"short account", func(c *Config) { c.Stack.Env.Account = "1234" }, "stack.env.account"},
		{"bad region", func(c *Config) { c.Stack.Env.Region = "Europe" }, "stack.env.region"},
		{"bad format", func(c *Config) { c.Output.Format = "toml" }, "output.format"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"leading digit", func(c *Config) { c.Stack.Name = "1stack" }, "stack.name"},
		{"bad capability", func(c *Config) { c.Deploy.Capabilities = []string{"CAPABILITY_ROOT"} }, "deploy.capabilities"},
		{"name tag", func(c *Config) { c.Stack.Tags = map[string]string{"name": "x"} }, "collides with the Name tag"},
		{"upper case name tag", func(c *Config) { c.Stack.Tags = map[string]string{"NAME": "x"} }, "stack.tags"},
		{"subnet tag prefix", func(c *Config) { c.Stack.Tags = map[string]string{"aws-cdk:subnet-type": "x"} }, "aws-cdk:"},
		{"aws prefix", func(c *Config) { c.Stack.Tags = map[string]string{"AWS:owner": "x"} }, "reserved aws:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFrom(viper.New())
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
