package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ThomasCrouzet/openzfs-stack/internal/construct"
	"github.com/ThomasCrouzet/openzfs-stack/internal/ui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the resources, parameters and outputs of the stack",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	_, st, t, err := stackTemplate()
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n\n", ui.Bold(st.Name()), ui.Hint(st.Props().Env.String()))
	fmt.Println(ui.Table([]string{"Logical ID", "Type", "Path"}, resourceRows(st.Resources())))

	if len(t.Parameters) > 0 {
		var rows [][]string
		for _, p := range st.Parameters() {
			rows = append(rows, []string{p.LogicalID, p.Type, p.Default})
		}
		fmt.Println(ui.Table([]string{"Parameter", "Type", "Default"}, rows))
	}

	if len(t.Outputs) > 0 {
		var rows [][]string
		for _, o := range st.Outputs() {
			rows = append(rows, []string{o.LogicalID, o.Description})
		}
		fmt.Println(ui.Table([]string{"Output", "Description"}, rows))
	}

	fmt.Printf("%s resources, %s parameters, %s outputs\n",
		humanize.Comma(int64(len(t.Resources))),
		humanize.Comma(int64(len(t.Parameters))),
		humanize.Comma(int64(len(t.Outputs))))
	return nil
}

func resourceRows(resources []*construct.Resource) [][]string {
	rows := make([][]string, 0, len(resources))
	for _, r := range resources {
		rows = append(rows, []string{r.LogicalID, r.Type, strings.Join(r.Path, "/")})
	}
	return rows
}
