package wizard

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/ThomasCrouzet/openzfs-stack/internal/config"
	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
	"github.com/ThomasCrouzet/openzfs-stack/internal/stack"
)

// Run executes the interactive wizard and returns the user's answers.
func Run(detection DetectionResult) (*WizardAnswers, error) {
	answers := &WizardAnswers{
		StackName:    stack.DefaultStackName,
		Region:       detection.Region,
		OutputDir:    "cdk.out",
		OutputFormat: "json",
		Deploy:       detection.AWSCLIAvailable,
		Profile:      detection.Profile,
		LogLevel:     "info",
	}

	// Build detection summary
	var hints []string
	if detection.AWSCLIAvailable {
		hints = append(hints, "AWS CLI detected")
	}
	if detection.AWSConfig != "" {
		hints = append(hints, fmt.Sprintf("AWS config found: %s", detection.AWSConfig))
	}
	if detection.Region != "" {
		hints = append(hints, fmt.Sprintf("Region from environment: %s", detection.Region))
	}
	if len(detection.Templates) > 0 {
		hints = append(hints, fmt.Sprintf("Existing templates: %s", strings.Join(detection.Templates, ", ")))
	}

	desc := "Name the CloudFormation stack holding the VPC, instance and file system."
	if len(hints) > 0 {
		desc += "\n\nAuto-detected:\n  " + strings.Join(hints, "\n  ")
	}

	var tagInput string

	// Step 1: Stack
	stackGroup := huh.NewGroup(
		huh.NewInput().
			Title("Stack name").
			Description(desc).
			Value(&answers.StackName).
			Validate(construct.ValidateStackName),
		huh.NewInput().
			Title("Description (optional)").
			Value(&answers.Description),
		huh.NewInput().
			Title("AWS account (optional)").
			Description("Leave empty for an environment-agnostic template").
			Placeholder("123456789012").
			Value(&answers.Account).
			Validate(optional(config.AccountPattern, "account id must be 12 digits")),
		huh.NewInput().
			Title("AWS region (optional)").
			Placeholder("eu-west-1").
			Value(&answers.Region).
			Validate(optional(config.RegionPattern, "not a region name such as eu-west-1")),
		huh.NewInput().
			Title("Stack tags (optional)").
			Description("Comma separated key=value pairs").
			Placeholder("team=storage,env=dev").
			Value(&tagInput).
			Validate(func(s string) error {
				_, err := ParseTags(s)
				return err
			}),
	)

	// Step 2: Output
	outputGroup := huh.NewGroup(
		huh.NewSelect[string]().
			Title("Template format").
			Options(
				huh.NewOption("JSON", "json"),
				huh.NewOption("YAML", "yaml"),
			).
			Value(&answers.OutputFormat),
		huh.NewInput().
			Title("Output directory").
			Value(&answers.OutputDir),
		huh.NewSelect[string]().
			Title("Log level").
			Options(
				huh.NewOption("Debug", "debug"),
				huh.NewOption("Info", "info"),
				huh.NewOption("Warn", "warn"),
				huh.NewOption("Error", "error"),
			).
			Value(&answers.LogLevel),
	)

	// Step 3: Deployment
	deployTitle := "Deploy with the AWS CLI after synth?"
	if !detection.AWSCLIAvailable {
		deployTitle += " (aws not found in PATH)"
	}
	deployGroup := huh.NewGroup(
		huh.NewConfirm().
			Title(deployTitle).
			Value(&answers.Deploy),
		huh.NewInput().
			Title("AWS CLI profile (optional)").
			Value(&answers.Profile),
		huh.NewConfirm().
			Title("Enable termination protection?").
			Value(&answers.TerminationProtection),
	)

	form := huh.NewForm(stackGroup, outputGroup, deployGroup)
	if err := form.Run(); err != nil {
		return nil, err
	}

	tags, err := ParseTags(tagInput)
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		answers.Tags = tags
	}

	return answers, nil
}

// optional accepts an empty string or one matching re.
func optional(re *regexp.Regexp, msg string) func(string) error {
	return func(s string) error {
		if s == "" || re.MatchString(s) {
			return nil
		}
		return errors.New(msg)
	}
}
