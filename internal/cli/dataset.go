package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/paylens/engine"
	"github.com/spektr-org/paylens/helpers"
	"github.com/spektr-org/paylens/schema"
)

// dataFlags selects and pre-filters the input file.
type dataFlags struct {
	File        string
	Departments []string
	MinSalary   float64
	MaxSalary   float64
}

func (f *dataFlags) register(cmd *cobra.Command, filters bool) {
	cmd.Flags().StringVar(&f.File, "file", "", "salary data file (.csv, .tsv, .txt, .xlsx, .parquet)")
	_ = cmd.MarkFlagRequired("file")
	if !filters {
		return
	}
	cmd.Flags().StringSliceVar(&f.Departments, "department", nil, "only include these departments (repeatable)")
	cmd.Flags().Float64Var(&f.MinSalary, "min-salary", 0, "only include salaries at or above this amount")
	cmd.Flags().Float64Var(&f.MaxSalary, "max-salary", 0, "only include salaries at or below this amount (0 = no limit)")
}

// loaded is a validated and pre-filtered input file.
type loaded struct {
	Source   string
	Dataset  *engine.Dataset
	Warnings []schema.Warning
	Total    int // records before pre-filtering
}

// load reads, validates and pre-filters the file.
func (f *dataFlags) load(logger *slog.Logger) (*loaded, error) {
	if f.MaxSalary > 0 && f.MinSalary > f.MaxSalary {
		return nil, fmt.Errorf("--min-salary %s is above --max-salary %s",
			engine.FormatNumber(f.MinSalary), engine.FormatNumber(f.MaxSalary))
	}

	table, err := helpers.LoadFile(f.File)
	if err != nil {
		return nil, err
	}
	ds, warnings, err := schema.Validate(table, schema.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	out := &loaded{Source: table.Source, Dataset: ds, Warnings: warnings, Total: ds.Len()}
	if f.filtered() {
		out.Dataset = f.apply(ds)
		logger.Debug("pre-filter applied", "before", out.Total, "after", out.Dataset.Len())
	}
	return out, nil
}

func (f *dataFlags) filtered() bool {
	return len(f.Departments) > 0 || f.MinSalary > 0 || f.MaxSalary > 0
}

// apply returns a new Dataset restricted to the flag ranges. Department
// matching is case-insensitive.
func (f *dataFlags) apply(ds *engine.Dataset) *engine.Dataset {
	depts := make(map[string]bool, len(f.Departments))
	for _, d := range f.Departments {
		if d = strings.TrimSpace(d); d != "" {
			depts[strings.ToLower(d)] = true
		}
	}
	return ds.Where(func(r engine.Record) bool {
		if len(depts) > 0 && !depts[strings.ToLower(r.Department)] {
			return false
		}
		if f.MinSalary > 0 && r.Salary < f.MinSalary {
			return false
		}
		if f.MaxSalary > 0 && r.Salary > f.MaxSalary {
			return false
		}
		return true
	})
}

// printWarnings reports validation warnings on stderr in text mode.
func printWarnings(cmd *cobra.Command, warnings []schema.Warning) {
	for _, w := range warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w.Message)
	}
}
