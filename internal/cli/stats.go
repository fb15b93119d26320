package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spektr-org/paylens/engine"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	var data dataFlags

	cmd := &cobra.Command{
		Use:   "stats --file <data>",
		Short: "Summarize salaries per department",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, rootOpts, &data)
		},
	}
	data.register(cmd, true)

	return cmd
}

func runStats(cmd *cobra.Command, root *RootOptions, data *dataFlags) error {
	in, err := data.load(root.logger)
	if err != nil {
		return err
	}
	s := engine.ComputeStats(in.Dataset)
	unit := root.cfg.Unit

	w := root.out(cmd)
	switch root.Format {
	case "json":
		return writeJSON(w, s)
	case "csv":
		return writeCSV(w, departmentHeaders, departmentRows(s, "", true))
	}

	printWarnings(cmd, in.Warnings)
	if s.Employees == 0 {
		fmt.Fprintln(w, "No employees in the dataset.")
		return nil
	}
	fmt.Fprintf(w, "Employees:    %s\n", engine.FormatInt(s.Employees))
	fmt.Fprintf(w, "Departments:  %s\n", engine.FormatInt(s.Departments))
	fmt.Fprintf(w, "Average:      %s\n", engine.FormatAmount(s.Mean, unit))
	fmt.Fprintf(w, "Median:       %s\n", engine.FormatAmount(s.Median, unit))
	fmt.Fprintf(w, "Range:        %s - %s\n", engine.FormatAmount(s.Min, unit), engine.FormatAmount(s.Max, unit))
	fmt.Fprintf(w, "Monthly cost: %s\n", engine.FormatAmount(s.Total, unit))
	fmt.Fprintln(w)
	renderTable(w, simpleTable(departmentHeaders, departmentRows(s, unit, false), 1, 2, 3, 4, 5))

	if len(s.Outliers) > 0 {
		fmt.Fprintf(w, "\nOutliers (more than %g standard deviations from the average):\n", engine.OutlierSigma)
		for _, r := range s.Outliers {
			fmt.Fprintf(w, "  %s, %s, %s: %s\n", r.Name, r.Department, r.Role, engine.FormatAmount(r.Salary, unit))
		}
	}
	return nil
}

var departmentHeaders = []string{"department", "employees", "average", "median", "min", "max"}

func departmentRows(s engine.Stats, unit string, raw bool) [][]string {
	amount := func(v float64) string {
		if raw {
			return engine.Number(engine.RoundTo2(v)).String()
		}
		return engine.FormatAmount(v, unit)
	}
	rows := make([][]string, 0, len(s.ByDepartment))
	for _, d := range s.ByDepartment {
		rows = append(rows, []string{
			d.Department,
			fmt.Sprint(d.Count),
			amount(d.Mean),
			amount(d.Median),
			amount(d.Min),
			amount(d.Max),
		})
	}
	return rows
}
