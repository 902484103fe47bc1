package domain

import (
	"encoding/json"
	"fmt"
)

// DiffMatrix is a cell-wise inequality table: Cells[row][col] is true where
// the two tables differ at that position.
type DiffMatrix struct {
	Columns []string `json:"columns"`
	Cells   [][]bool `json:"cells"`
}

// ComparisonResult holds the structural comparison of two tables and, only
// when their shapes are identical, the cell-level differences.
type ComparisonResult struct {
	ShapeDiff        bool
	Shape1           Shape
	Shape2           Shape
	CommonColumns    []string
	UniqueColumnsDF1 []string
	UniqueColumnsDF2 []string

	differences *int
	matrix      *DiffMatrix
}

// SetCellDiff attaches cell-level results. It is only valid for
// results whose shapes match.
func (r *ComparisonResult) SetCellDiff(matrix DiffMatrix, differences int) {
	r.matrix = &matrix
	r.differences = &differences
}

// HasCellDiff reports whether cell-level results are available
func (r ComparisonResult) HasCellDiff() bool {
	return r.matrix != nil
}

// Differences returns the total number of differing cells
func (r ComparisonResult) Differences() (int, error) {
	if r.differences == nil {
		return 0, fmt.Errorf("%w: %dx%d vs %dx%d", ErrShapeMismatch,
			r.Shape1.Rows, r.Shape1.Columns, r.Shape2.Rows, r.Shape2.Columns)
	}
	return *r.differences, nil
}

// DifferenceMatrix returns the cell-wise inequality table
func (r ComparisonResult) DifferenceMatrix() (*DiffMatrix, error) {
	if r.matrix == nil {
		return nil, fmt.Errorf("%w: %dx%d vs %dx%d", ErrShapeMismatch,
			r.Shape1.Rows, r.Shape1.Columns, r.Shape2.Rows, r.Shape2.Columns)
	}
	return r.matrix, nil
}

type comparisonJSON struct {
	ShapeDiff        bool        `json:"shape_diff"`
	Shape1           Shape       `json:"shape1"`
	Shape2           Shape       `json:"shape2"`
	CommonColumns    []string    `json:"common_columns"`
	UniqueColumnsDF1 []string    `json:"unique_columns_df1"`
	UniqueColumnsDF2 []string    `json:"unique_columns_df2"`
	Differences      *int        `json:"differences,omitempty"`
	DifferenceMatrix *DiffMatrix `json:"difference_matrix,omitempty"`
}

// MarshalJSON omits the cell-level fields when shapes differ
func (r ComparisonResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(comparisonJSON{
		ShapeDiff:        r.ShapeDiff,
		Shape1:           r.Shape1,
		Shape2:           r.Shape2,
		CommonColumns:    nonNil(r.CommonColumns),
		UniqueColumnsDF1: nonNil(r.UniqueColumnsDF1),
		UniqueColumnsDF2: nonNil(r.UniqueColumnsDF2),
		Differences:      r.differences,
		DifferenceMatrix: r.matrix,
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
