package domain

import "time"

// DateRange is an inclusive time window
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls inside the window, bounds included
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// TimeWindow describes the detected date column and its bounds
type TimeWindow struct {
	Column   string    `json:"column"`
	Min      time.Time `json:"min"`
	Max      time.Time `json:"max"`
	Selected DateRange `json:"selected"`
}

// TopNSelector keeps the N rows with the largest values in Column
type TopNSelector struct {
	Column string `json:"column,omitempty"`
	N      int    `json:"n" validate:"min=1,max=10000"`
}

// FilterState is the per-request filter selection
type FilterState struct {
	Search        string              `json:"search,omitempty" validate:"max=256"`
	DateRange     *DateRange          `json:"date_range,omitempty"`
	TopN          *TopNSelector       `json:"top_n,omitempty"`
	ColumnFilters map[string][]string `json:"column_filters,omitempty"`
}

// Summary holds the headline figures: Count is the number of rows, the
// others are taken over all numeric cells
type Summary struct {
	Sum            float64  `json:"sum"`
	Count          int      `json:"count"`
	Max            float64  `json:"max"`
	Min            float64  `json:"min"`
	NumericColumns []string `json:"numeric_columns"`
}

// CleaningReport describes what cleaning changed
type CleaningReport struct {
	RowsBefore        int            `json:"rows_before"`
	RowsAfter         int            `json:"rows_after"`
	DuplicatesRemoved int            `json:"duplicates_removed"`
	Imputed           map[string]int `json:"imputed"`
	LeftMissing       []string       `json:"left_missing,omitempty"`
}

// OpenEnded is the upper bound of a date range given only a start
var OpenEnded = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
