package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ThomasCrouzet/openzfs-stack/internal/ui"
	"github.com/ThomasCrouzet/openzfs-stack/internal/wizard"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an fsx-openzfs.yml config file interactively",
	Long: `Detect the AWS CLI, region and profile from your environment and generate
a config file through an interactive wizard.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := configName + ".yml"

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("%s already exists.\n", configPath)
		fmt.Print("Overwrite? [y/N] ")
		var answer string
		_, _ = fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println(ui.Bold("Scanning environment..."))
	detection := wizard.Detect(nil, "cdk.out")

	answers, err := wizard.Run(detection)
	if err != nil {
		return fmt.Errorf("wizard: %w", err)
	}

	content, err := wizard.GenerateConfig(*answers)
	if err != nil {
		return fmt.Errorf("generating config: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	ui.Success(fmt.Sprintf("Created %s", configPath))
	fmt.Println()
	fmt.Printf("Next step: %s\n", ui.Bold("fsx-openzfs synth"))
	fmt.Printf("           %s\n", ui.Hint("or edit "+configPath+" to add tags or disable checks"))

	return nil
}
