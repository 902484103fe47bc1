package dataprocessing

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kuberdash/pkg/contracts/domain"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name    string
		table   *domain.Table
		want    domain.Summary
		wantErr error
	}{
		{
			name: "all numeric cells",
			table: domain.MustTable("t",
				domain.TextColumn("k", "a", "b", "c"),
				domain.NumberColumn("x", 1, 2, math.NaN()),
				domain.NumberColumn("y", -4, 10, 0),
			),
			want: domain.Summary{Sum: 9, Count: 3, Max: 10, Min: -4, NumericColumns: []string{"x", "y"}},
		},
		{
			name: "count is rows not cells",
			table: domain.MustTable("t",
				domain.NumberColumn("x", 1, 2, 3),
				domain.NumberColumn("y", 4, 5, 6),
			),
			want: domain.Summary{Sum: 21, Count: 3, Max: 6, Min: 1, NumericColumns: []string{"x", "y"}},
		},
		{
			name:  "all missing",
			table: domain.MustTable("t", domain.NumberColumn("x", math.NaN(), math.NaN())),
			want:  domain.Summary{Count: 2, NumericColumns: []string{"x"}},
		},
		{
			name:  "no rows",
			table: domain.MustTable("t", domain.NumberColumn("x")),
			want:  domain.Summary{NumericColumns: []string{"x"}},
		},
		{
			name:    "no numeric columns",
			table:   domain.MustTable("t", domain.TextColumn("k", "a")),
			wantErr: domain.ErrInsufficientData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Summarize(tt.table)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescribe(t *testing.T) {
	stats := Describe(salesTable())
	require.Len(t, stats, 3)

	region := stats[0]
	assert.Equal(t, "region", region.Name)
	assert.Equal(t, 3, region.Count)
	assert.Equal(t, 2, region.Missing)
	assert.Equal(t, 2, region.Unique)
	assert.Nil(t, region.Mean)

	amount := stats[1]
	require.NotNil(t, amount.Mean)
	assert.InDelta(t, 50.0/3, *amount.Mean, 1e-9)
	assert.Equal(t, 10.0, *amount.Min)
	assert.Equal(t, 30.0, *amount.Max)

	raw, err := json.Marshal(stats[2])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "mean")
}
