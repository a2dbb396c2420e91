package config

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
	"github.com/ThomasCrouzet/openzfs-stack/internal/logging"
	"github.com/ThomasCrouzet/openzfs-stack/internal/stack"
	"github.com/ThomasCrouzet/openzfs-stack/internal/synth"
)

// EnvPrefix prefixes environment overrides, e.g. FSX_OPENZFS_STACK_NAME.
const EnvPrefix = "FSX_OPENZFS"

// Patterns accepted for stack.env.account and stack.env.region.
var (
	AccountPattern = regexp.MustCompile(`^\d{12}$`)
	RegionPattern  = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-\d$`)
)

type Config struct {
	Stack     StackConfig  `mapstructure:"stack"`
	Output    OutputConfig `mapstructure:"output"`
	Deploy    DeployConfig `mapstructure:"deploy"`
	Log       LogConfig    `mapstructure:"log"`
	RawChecks map[string]any
}

type StackConfig struct {
	Name                  string            `mapstructure:"name"`
	Description           string            `mapstructure:"description"`
	Env                   EnvConfig         `mapstructure:"env"`
	Tags                  map[string]string `mapstructure:"tags"`
	TerminationProtection bool              `mapstructure:"termination_protection"`
}

type EnvConfig struct {
	Account string `mapstructure:"account"`
	Region  string `mapstructure:"region"`
}

type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"` // json, yaml
}

type DeployConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Capabilities []string `mapstructure:"capabilities"`
	Profile      string   `mapstructure:"profile"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console, json
}

var defaults = map[string]any{
	"stack.name":                   stack.DefaultStackName,
	"stack.description":            "",
	"stack.env.account":            "",
	"stack.env.region":             "",
	"stack.termination_protection": false,
	"output.dir":                   "cdk.out",
	"output.format":                synth.FormatJSON,
	"deploy.enabled":               false,
	"deploy.capabilities":          []string{"CAPABILITY_IAM"},
	"deploy.profile":               "",
	"log.level":                    "info",
	"log.format":                   logging.FormatConsole,
}

// SetDefaults registers defaults and environment binding on v. Every key
// needs a default for AutomaticEnv to see it during Unmarshal.
func SetDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// Populate RawChecks for the registry-based check runner
	cfg.RawChecks = v.GetStringMap("checks")

	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := construct.ValidateStackName(c.Stack.Name); err != nil {
		return fmt.Errorf("stack.name: %w", err)
	}
	if a := c.Stack.Env.Account; a != "" && !AccountPattern.MatchString(a) {
		return fmt.Errorf("stack.env.account %q is not a 12 digit account id", a)
	}
	if r := c.Stack.Env.Region; r != "" && !RegionPattern.MatchString(r) {
		return fmt.Errorf("stack.env.region %q is not a region name such as eu-west-1", r)
	}
	for _, key := range slices.Sorted(maps.Keys(c.Stack.Tags)) {
		if err := ValidateTagKey(key); err != nil {
			return fmt.Errorf("stack.tags: %w", err)
		}
	}
	if _, err := synth.RendererFor(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if f := c.Log.Format; f != "" && f != logging.FormatConsole && f != logging.FormatJSON {
		return fmt.Errorf("log.format %q is not %s or %s", f, logging.FormatConsole, logging.FormatJSON)
	}
	for _, capability := range c.Deploy.Capabilities {
		switch capability {
		case "CAPABILITY_IAM", "CAPABILITY_NAMED_IAM", "CAPABILITY_AUTO_EXPAND":
		default:
			return fmt.Errorf("deploy.capabilities: unknown capability %q", capability)
		}
	}
	return nil
}

// ValidateTagKey rejects stack tag keys that clash with tags every stack
// sets itself or that AWS reserves. Keys are compared without case since
// viper lowercases keys read from a config file.
func ValidateTagKey(key string) error {
	lower := strings.ToLower(key)
	switch {
	case key == "":
		return errors.New("empty tag key")
	case lower == "name":
		return fmt.Errorf("tag key %q collides with the Name tag set on each resource", key)
	case strings.HasPrefix(lower, "aws:"):
		return fmt.Errorf("tag key %q uses the reserved aws: prefix", key)
	case strings.HasPrefix(lower, "aws-cdk:"):
		return fmt.Errorf("tag key %q uses the reserved aws-cdk: prefix of subnet tags", key)
	}
	return nil
}

// StackProps converts the stack section into stack construction props.
func (c *Config) StackProps() stack.Props {
	return stack.Props{
		StackProps: construct.StackProps{
			Description: c.Stack.Description,
			Env: construct.Environment{
				Account: c.Stack.Env.Account,
				Region:  c.Stack.Env.Region,
			},
			Tags: c.Stack.Tags,
		},
	}
}

// LoggingConfig converts the log section into a logger configuration.
func (c *Config) LoggingConfig() logging.Config {
	lc := logging.DefaultConfig()
	if c.Log.Level != "" {
		lc.Level = c.Log.Level
	}
	if c.Log.Format != "" {
		lc.Format = c.Log.Format
	}
	return lc
}
