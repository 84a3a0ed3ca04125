package sheet

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// NotAvailable is shown for statistics that have not been loaded
const NotAvailable = "N/A"

// Statistics are the aggregates computed by the data API over every stored
// measurement. A nil field has not been loaded yet.
type Statistics struct {
	Average           *float64 `json:"average,omitempty"`
	StandardDeviation *float64 `json:"standardDeviation,omitempty"`
}

// IsEmpty reports whether nothing has been loaded
func (s Statistics) IsEmpty() bool {
	return s.Average == nil && s.StandardDeviation == nil
}

func (s Statistics) AverageText() string {
	return formatStat(s.Average)
}

func (s Statistics) StandardDeviationText() string {
	return formatStat(s.StandardDeviation)
}

func formatStat(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f", *v)
}

// ColumnSummary aggregates one numeric column of the local dataset
type ColumnSummary struct {
	Column string
	Header string
	Count  int
	Sum    float64
	Mean   float64
	Min    float64
	Max    float64
}

// HasData reports whether any value contributed to the summary
func (c ColumnSummary) HasData() bool {
	return c.Count > 0
}

// Summarize computes per-column aggregates over the non-null measurements of ds
func Summarize(ds Dataset) []ColumnSummary {
	cols := NumericColumns()
	out := make([]ColumnSummary, 0, len(cols))
	for _, col := range cols {
		var values stats.Float64Data
		for _, row := range ds {
			if v := row.Measure(col.Key); v != nil {
				values = append(values, *v)
			}
		}
		summary := ColumnSummary{Column: col.Key, Header: col.Header, Count: len(values)}
		if len(values) > 0 {
			summary.Sum, _ = stats.Sum(values)
			summary.Mean, _ = stats.Mean(values)
			summary.Min, _ = stats.Min(values)
			summary.Max, _ = stats.Max(values)
		}
		out = append(out, summary)
	}
	return out
}

// Aggregate computes the overall average and sample standard deviation of
// every measurement in ds, the same aggregate the data API reports
func Aggregate(ds Dataset) Statistics {
	var values stats.Float64Data
	for _, row := range ds {
		for _, col := range NumericColumns() {
			if v := row.Measure(col.Key); v != nil {
				values = append(values, *v)
			}
		}
	}
	if len(values) == 0 {
		return Statistics{}
	}
	mean, _ := stats.Mean(values)
	sd := 0.0
	if len(values) > 1 {
		sd, _ = stats.StandardDeviationSample(values)
	}
	return Statistics{Average: Float(mean), StandardDeviation: Float(sd)}
}
