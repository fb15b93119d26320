package engine

import "math"

// ============================================================================
// STATS — Dataset summary statistics
// ============================================================================
// Used by the CLI stats command and as the (row-free) context sent with
// recommendation requests.
// ============================================================================

// Stats summarizes salaries across a view.
type Stats struct {
	Employees    int               `json:"employees"`
	Mean         float64           `json:"mean"`
	Median       float64           `json:"median"`
	Min          float64           `json:"min"`
	Max          float64           `json:"max"`
	Total        float64           `json:"total"`
	StdDev       float64           `json:"stdDev"`
	Departments  int               `json:"departments"`
	ByDepartment []DepartmentStats `json:"byDepartment"`
	Outliers     []Record          `json:"outliers"`
}

// DepartmentStats summarizes one department.
type DepartmentStats struct {
	Department string  `json:"department"`
	Count      int     `json:"count"`
	Mean       float64 `json:"mean"`
	Median     float64 `json:"median"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
}

// OutlierSigma is how many standard deviations from the mean mark an outlier.
const OutlierSigma = 2.0

// ComputeStats summarizes a view. Departments are listed in first-seen order.
func ComputeStats(view RecordView) Stats {
	s := Stats{
		Employees:    view.Len(),
		ByDepartment: []DepartmentStats{},
		Outliers:     []Record{},
	}
	if view.Len() == 0 {
		return s
	}

	s.Mean = AvgMeasure(view, ColSalary)
	s.Median = MedianMeasure(view, ColSalary)
	s.Min = MinMeasure(view, ColSalary)
	s.Max = MaxMeasure(view, ColSalary)
	s.Total = SumMeasure(view, ColSalary)
	s.StdDev = StdDevMeasure(view, ColSalary)

	for _, g := range GroupBy(view, ColDepartment) {
		s.ByDepartment = append(s.ByDepartment, DepartmentStats{
			Department: g.Key,
			Count:      g.View.Len(),
			Mean:       AvgMeasure(g.View, ColSalary),
			Median:     MedianMeasure(g.View, ColSalary),
			Min:        MinMeasure(g.View, ColSalary),
			Max:        MaxMeasure(g.View, ColSalary),
		})
	}
	s.Departments = len(s.ByDepartment)

	if s.StdDev > 0 {
		for i := 0; i < view.Len(); i++ {
			if math.Abs(view.Measure(i, ColSalary)-s.Mean) > OutlierSigma*s.StdDev {
				s.Outliers = append(s.Outliers, view.Record(i))
			}
		}
	}
	return s
}
