package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/paylens/schema"
)

// ValidationResult is the JSON form of the validate command.
type ValidationResult struct {
	Source   string              `json:"source"`
	Records  int                 `json:"records"`
	Columns  []schema.ColumnMeta `json:"columns"`
	Warnings []schema.Warning    `json:"warnings"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var data dataFlags

	cmd := &cobra.Command{
		Use:   "validate --file <data>",
		Short: "Check a salary file without asking anything",
		Long: `Validate reads the file, maps its headers to the employee schema and
reports which rows were dropped. A missing required column (name,
department, role, salary) is an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, rootOpts, &data)
		},
	}
	data.register(cmd, false)

	return cmd
}

func runValidate(cmd *cobra.Command, root *RootOptions, data *dataFlags) error {
	in, err := data.load(root.logger)
	if err != nil {
		return err
	}
	desc := schema.Describe(in.Dataset, schema.DescribeOptions{})
	res := ValidationResult{
		Source:   in.Source,
		Records:  in.Dataset.Len(),
		Columns:  desc.Columns,
		Warnings: in.Warnings,
	}
	if res.Warnings == nil {
		res.Warnings = []schema.Warning{}
	}

	w := root.out(cmd)
	switch root.Format {
	case "json":
		return writeJSON(w, res)
	case "csv":
		rows := make([][]string, 0, len(res.Columns))
		for _, c := range res.Columns {
			rows = append(rows, []string{c.Key, c.DisplayName, string(c.Type), strconv.FormatBool(c.Required)})
		}
		return writeCSV(w, []string{"key", "display_name", "type", "required"}, rows)
	}

	fmt.Fprintf(w, "%s: %d valid records\n", res.Source, res.Records)
	keys := make([]string, 0, len(res.Columns))
	for _, c := range res.Columns {
		keys = append(keys, c.Key)
	}
	fmt.Fprintf(w, "Columns: %s\n", strings.Join(keys, ", "))
	if len(res.Warnings) == 0 {
		fmt.Fprintln(w, "No warnings.")
		return nil
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warn.Message)
	}
	return nil
}
