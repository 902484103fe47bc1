package dataprocessing

import (
	"sort"

	"kuberdash/pkg/contracts/domain"
)

// Compare reports the structural differences between two tables and, when
// both have the same shape, the cell-by-cell differences by column position.
// Column names need not match for the cell comparison.
func Compare(a, b *domain.Table) domain.ComparisonResult {
	result := domain.ComparisonResult{
		Shape1: a.Shape(),
		Shape2: b.Shape(),
	}
	result.ShapeDiff = result.Shape1 != result.Shape2
	result.CommonColumns, result.UniqueColumnsDF1, result.UniqueColumnsDF2 = columnSets(a.ColumnNames(), b.ColumnNames())

	if result.ShapeDiff {
		return result
	}

	rows := a.NumRows()
	matrix := domain.DiffMatrix{
		Columns: a.ColumnNames(),
		Cells:   make([][]bool, rows),
	}
	differences := 0
	for i := 0; i < rows; i++ {
		row := make([]bool, a.NumCols())
		for j := range a.Columns {
			if !cellsEqual(a.Columns[j], b.Columns[j], i) {
				row[j] = true
				differences++
			}
		}
		matrix.Cells[i] = row
	}
	result.SetCellDiff(matrix, differences)
	return result
}

func cellsEqual(ca, cb domain.Column, i int) bool {
	va, vb := ca.Values[i], cb.Values[i]
	if ca.Type != cb.Type {
		return va.Null && vb.Null
	}
	return va.Equal(vb, ca.Type)
}

// columnSets splits two name lists into sorted common, left-only and
// right-only sets
func columnSets(left, right []string) (common, onlyLeft, onlyRight []string) {
	inRight := make(map[string]struct{}, len(right))
	for _, name := range right {
		inRight[name] = struct{}{}
	}
	inLeft := make(map[string]struct{}, len(left))
	for _, name := range left {
		inLeft[name] = struct{}{}
		if _, ok := inRight[name]; ok {
			common = append(common, name)
		} else {
			onlyLeft = append(onlyLeft, name)
		}
	}
	for _, name := range right {
		if _, ok := inLeft[name]; !ok {
			onlyRight = append(onlyRight, name)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyLeft)
	sort.Strings(onlyRight)
	return common, onlyLeft, onlyRight
}
