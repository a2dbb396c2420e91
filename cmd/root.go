package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ThomasCrouzet/openzfs-stack/internal/config"
	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
	"github.com/ThomasCrouzet/openzfs-stack/internal/logging"
	"github.com/ThomasCrouzet/openzfs-stack/internal/stack"
	"github.com/ThomasCrouzet/openzfs-stack/internal/ui"
)

const configName = "fsx-openzfs"

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "fsx-openzfs",
	Short: "Synthesize an FSx for OpenZFS stack as a CloudFormation template",
	Long: `fsx-openzfs declares a VPC with public and isolated subnets, an SSM managed
EC2 instance and an FSx for OpenZFS file system reachable over NFS, and
synthesizes them into a deterministic CloudFormation template.

Deploy the result with: aws cloudformation deploy --template-file cdk.out/OpenzfsStack.template.json`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: fsx-openzfs.yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(configName)
		viper.SetConfigType("yml")
		viper.AddConfigPath(".")
	}

	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		}
	}
}

// loadConfig loads the configuration, applies command flag overrides and
// validates the result, printing a styled error on failure.
func loadConfig(overrides func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprint(os.Stderr, ui.FormatError("Failed to load config", err.Error(), "run 'fsx-openzfs init' to create a config file"))
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if overrides != nil {
		overrides(cfg)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprint(os.Stderr, ui.FormatError("Invalid config", err.Error(), "fix "+configName+".yml or the matching FSX_OPENZFS_* variable"))
		return nil, err
	}
	return cfg, nil
}

// buildStack constructs the app and its single OpenZFS stack from cfg.
func buildStack(cfg *config.Config) (*construct.App, *stack.OpenZFSStack, error) {
	logger, err := logging.NewLogger(cfg.LoggingConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}

	app := construct.NewApp(construct.WithLogger(logger))
	st, err := stack.New(app, cfg.Stack.Name, cfg.StackProps())
	if err != nil {
		logger.Error("stack construction failed", zap.String(logging.FieldStack, cfg.Stack.Name), zap.Error(err))
		fmt.Fprint(os.Stderr, ui.FormatError("Failed to build stack", err.Error(), ""))
		return nil, nil, err
	}
	return app, st, nil
}

// stackTemplate builds the stack described by the loaded config and
// returns its template.
func stackTemplate() (*config.Config, *stack.OpenZFSStack, *construct.Template, error) {
	cfg, err := loadConfig(nil)
	if err != nil {
		return nil, nil, nil, err
	}
	_, st, err := buildStack(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	t, err := st.Template()
	if err != nil {
		fmt.Fprint(os.Stderr, ui.FormatError("Failed to synthesize template", err.Error(), ""))
		return nil, nil, nil, err
	}
	return cfg, st, t, nil
}
