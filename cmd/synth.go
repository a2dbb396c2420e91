package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ThomasCrouzet/openzfs-stack/internal/config"
	"github.com/ThomasCrouzet/openzfs-stack/internal/synth"
	"github.com/ThomasCrouzet/openzfs-stack/internal/ui"
)

var (
	outputDir     string
	outputFormat  string
	stackName     string
	deployStack   bool
	deployProfile string
)

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Synthesize the CloudFormation template",
	Long: `Build the OpenZFS stack and write its CloudFormation template and the
cloud assembly manifest to the output directory. With --deploy the template
is handed to 'aws cloudformation deploy'.`,
	RunE: runSynth,
}

func init() {
	rootCmd.AddCommand(synthCmd)

	synthCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "output directory (default: cdk.out)")
	synthCmd.Flags().StringVar(&outputFormat, "format", "", "template format: json, yaml (default: json)")
	synthCmd.Flags().StringVar(&stackName, "stack-name", "", "stack name (default: OpenzfsStack)")
	synthCmd.Flags().BoolVar(&deployStack, "deploy", false, "deploy the template with the AWS CLI after synthesizing (requires aws)")
	synthCmd.Flags().StringVar(&deployProfile, "profile", "", "AWS CLI profile for --deploy")
}

func runSynth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(applyFlagOverrides)
	if err != nil {
		return err
	}

	// Validate already rejected unknown formats.
	renderer, err := synth.RendererFor(cfg.Output.Format)
	if err != nil {
		return err
	}

	app, _, err := buildStack(cfg)
	if err != nil {
		return err
	}

	fmt.Println(ui.Bold("Synthesizing..."))

	artifacts, err := synth.Synthesize(app, synth.Options{
		OutDir:                cfg.Output.Dir,
		Renderer:              renderer,
		TerminationProtection: cfg.Stack.TerminationProtection,
	})
	if err != nil {
		fmt.Fprint(os.Stderr, ui.FormatError("Synthesis failed", err.Error(), ""))
		return err
	}

	for _, a := range artifacts {
		ui.Success(fmt.Sprintf("Generated %s (%s, %d resources, %s)",
			a.Path, a.Environment, a.Resources, humanize.Bytes(uint64(a.Size))))
	}

	if !cfg.Deploy.Enabled {
		fmt.Println()
		fmt.Printf("Next step: %s\n", ui.Bold("fsx-openzfs synth --deploy"))
		return nil
	}

	for _, a := range artifacts {
		if err := deploy(cfg, a); err != nil {
			fmt.Fprint(os.Stderr, ui.FormatError("Deploy failed", err.Error(), "install the AWS CLI: https://aws.amazon.com/cli/"))
			return err
		}
	}
	return nil
}

func applyFlagOverrides(cfg *config.Config) {
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if outputFormat != "" {
		cfg.Output.Format = outputFormat
	}
	if stackName != "" {
		cfg.Stack.Name = stackName
	}
	if deployStack {
		cfg.Deploy.Enabled = true
	}
	if deployProfile != "" {
		cfg.Deploy.Profile = deployProfile
	}
}

// deployArgs builds the aws CLI arguments deploying artifact a.
func deployArgs(cfg *config.Config, a synth.Artifact) []string {
	args := []string{
		"cloudformation", "deploy",
		"--template-file", filepath.Clean(a.Path),
		"--stack-name", a.Stack,
	}
	if len(cfg.Deploy.Capabilities) > 0 {
		args = append(args, "--capabilities")
		args = append(args, cfg.Deploy.Capabilities...)
	}
	if cfg.Stack.Env.Region != "" {
		args = append(args, "--region", cfg.Stack.Env.Region)
	}
	if cfg.Deploy.Profile != "" {
		args = append(args, "--profile", cfg.Deploy.Profile)
	}
	return args
}

func deploy(cfg *config.Config, a synth.Artifact) error {
	awsPath, err := findExecutable("aws")
	if err != nil {
		return fmt.Errorf("aws not found in PATH")
	}

	fmt.Println(ui.Bold("Deploying " + a.Stack + "..."))

	cmd := execCommand(awsPath, deployArgs(cfg, a)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("aws cloudformation deploy failed: %w", err)
	}

	ui.Success(fmt.Sprintf("Deployed %s", a.Stack))
	return nil
}
