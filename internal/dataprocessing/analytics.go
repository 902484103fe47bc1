package dataprocessing

import (
	"fmt"
	"math"

	"kuberdash/pkg/contracts/domain"
)

// Correlate computes the Pearson correlation between every pair of numeric
// columns, in column order. Each pair uses only the rows where both values
// are present. Pairs with fewer than two such rows or zero variance are NaN.
func Correlate(t *domain.Table) (*domain.CorrelationMatrix, error) {
	names := t.ColumnsOfType(domain.ColumnNumeric)
	if len(names) < 2 {
		return nil, fmt.Errorf("%w: correlation needs at least 2 numeric columns, found %d",
			domain.ErrInsufficientData, len(names))
	}

	cols := make([]*domain.Column, len(names))
	for i, name := range names {
		cols[i], _ = t.Column(name)
	}

	values := make([][]domain.Correlation, len(names))
	for i := range values {
		values[i] = make([]domain.Correlation, len(names))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			r := domain.Correlation(Pearson(cols[i].Values, cols[j].Values))
			values[i][j] = r
			values[j][i] = r
		}
	}
	return &domain.CorrelationMatrix{Columns: names, Values: values}, nil
}

// Pearson returns the correlation coefficient of two equally long numeric
// sequences over the positions where both are present
func Pearson(xs, ys []domain.Value) float64 {
	var n, sx, sy float64
	for i := range xs {
		if xs[i].Null || ys[i].Null {
			continue
		}
		n++
		sx += xs[i].Num
		sy += ys[i].Num
	}
	if n < 2 {
		return math.NaN()
	}
	mx, my := sx/n, sy/n

	var cov, vx, vy float64
	for i := range xs {
		if xs[i].Null || ys[i].Null {
			continue
		}
		dx, dy := xs[i].Num-mx, ys[i].Num-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return math.NaN()
	}
	r := cov / math.Sqrt(vx*vy)
	return math.Max(-1, math.Min(1, r))
}
