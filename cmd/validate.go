package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ThomasCrouzet/openzfs-stack/internal/checks"
	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
	"github.com/ThomasCrouzet/openzfs-stack/internal/synth"
	"github.com/ThomasCrouzet/openzfs-stack/internal/ui"
)

var validateCmd = &cobra.Command{
	Use:   "validate [template]",
	Short: "Check the synthesized template",
	Long: `Run the template checks: references resolve, subnets fit the VPC without
overlapping, NFS ingress stays inside the VPC and the instance and file
system sit in the right subnets.

Without an argument the stack from fsx-openzfs.yml is synthesized in
memory. Pass a .template.json or .template.yaml file to check it instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	var (
		t       *construct.Template
		subject string
	)
	if len(args) == 1 {
		subject = args[0]
		t, err = synth.LoadTemplate(subject)
		if err != nil {
			fmt.Fprint(os.Stderr, ui.FormatError("Failed to load template", err.Error(), "run 'fsx-openzfs synth' first"))
			return err
		}
	} else {
		_, st, err := buildStack(cfg)
		if err != nil {
			return err
		}
		subject = st.Name()
		if t, err = st.Template(); err != nil {
			fmt.Fprint(os.Stderr, ui.FormatError("Failed to synthesize template", err.Error(), ""))
			return err
		}
	}

	fmt.Println(ui.Bold("Validating " + subject + "..."))

	results, err := checks.RunAll(t, cfg.RawChecks)
	passed, failed, warnings := printResults(results)

	var checkErr *checks.CheckError
	if errors.As(err, &checkErr) {
		fmt.Fprint(os.Stderr, ui.FormatError(checkErr.Check+" failed", checkErr.Err.Error(), ""))
		return err
	}

	fmt.Println()
	summary := fmt.Sprintf("%d checks passed, %d errors, %d warnings", passed, failed, warnings)
	if failed == 0 {
		ui.Success(summary)
	} else {
		fmt.Println(summary)
	}
	return err
}

func printResults(results []checks.CheckResult) (passed, failed, warnings int) {
	for _, r := range results {
		if r.Skipped {
			ui.CheckSkipped(r.Name)
			continue
		}
		if len(r.Findings) == 0 {
			ui.CheckPassed(r.Name)
			passed++
			continue
		}
		for _, f := range r.Findings {
			if f.Severity == checks.SeverityError {
				ui.FindingErr(f.Resource, f.Message, f.Suggestion)
				failed++
			} else {
				ui.FindingWarn(f.Resource, f.Message)
				warnings++
			}
		}
		if r.Errors() == 0 {
			passed++
		}
	}
	return passed, failed, warnings
}
