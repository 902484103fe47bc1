package dataprocessing

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kuberdash/pkg/contracts/domain"
)

func salesTable() *domain.Table {
	day := func(d int) domain.Value {
		return domain.Timestamp(time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC))
	}
	return domain.MustTable("sales",
		domain.NewColumn("region", domain.ColumnText,
			domain.Text("north"), domain.Missing(), domain.Text("south"), domain.Text("north"), domain.Missing()),
		domain.NumberColumn("amount", 10, math.NaN(), 30, 10, math.NaN()),
		domain.NewColumn("day", domain.ColumnTemporal,
			day(1), day(2), domain.Missing(), day(1), day(2)),
	)
}

func TestCleanImputation(t *testing.T) {
	tests := []struct {
		name   string
		column domain.Column
		want   []domain.Value
	}{
		{
			name:   "numeric gaps take the mean",
			column: domain.NumberColumn("v", 1, math.NaN(), 3),
			want:   []domain.Value{domain.Number(1), domain.Number(2), domain.Number(3)},
		},
		{
			name: "text gaps become Unknown",
			column: domain.NewColumn("c", domain.ColumnText,
				domain.Text("A"), domain.Missing(), domain.Text("B")),
			want: []domain.Value{domain.Text("A"), domain.Text("Unknown"), domain.Text("B")},
		},
		{
			name: "temporal gaps are kept",
			column: domain.NewColumn("d", domain.ColumnTemporal,
				domain.Timestamp(time.Unix(0, 0)), domain.Missing()),
			want: []domain.Value{domain.Timestamp(time.Unix(0, 0)), domain.Missing()},
		},
		{
			name:   "all-missing numeric column stays missing",
			column: domain.NumberColumn("e", math.NaN()),
			want:   []domain.Value{domain.Missing()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Clean(domain.MustTable("t", tt.column))
			require.Equal(t, 1, out.NumCols())
			col := out.Columns[0]
			require.Equal(t, len(tt.want), col.Len())
			for i, want := range tt.want {
				assert.True(t, want.Equal(col.Values[i], col.Type), "row %d: want %+v got %+v", i, want, col.Values[i])
			}
		})
	}
}

func TestCleanMeanUsesDistinctRows(t *testing.T) {
	// the duplicate 10 is dropped before the mean is taken: (10+40)/2
	in := domain.MustTable("t",
		domain.TextColumn("k", "a", "a", "b", "c"),
		domain.NumberColumn("v", 10, 10, 40, math.NaN()),
	)
	out := Clean(in)

	v, err := out.Column("v")
	require.NoError(t, err)
	require.Equal(t, 3, v.Len())
	assert.Equal(t, 25.0, v.Values[2].Num)
}

func TestCleanIsIdempotent(t *testing.T) {
	tables := []*domain.Table{
		salesTable(),
		domain.MustTable("empty"),
		domain.MustTable("no rows", domain.NumberColumn("v")),
		domain.MustTable("collide",
			domain.TextColumn("k", "x", "x"),
			domain.NumberColumn("v", 5, math.NaN()),
		),
	}
	for _, in := range tables {
		t.Run(in.Name, func(t *testing.T) {
			once := Clean(in)
			twice := Clean(once)
			assert.True(t, once.Equal(twice), "once=%v twice=%v", once.Records(), twice.Records())
		})
	}
}

func TestCleanRemovesDuplicates(t *testing.T) {
	in := domain.MustTable("t",
		domain.TextColumn("k", "a", "b", "a", "c", "b"),
		domain.NumberColumn("v", 1, 2, 1, 3, 2),
	)
	out := Clean(in)

	assert.Equal(t, [][]string{{"a", "1"}, {"b", "2"}, {"c", "3"}}, out.Records())

	original := map[string]bool{}
	for _, rec := range in.Records() {
		original[rec[0]+"|"+rec[1]] = true
	}
	seen := map[string]bool{}
	for _, rec := range out.Records() {
		key := rec[0] + "|" + rec[1]
		assert.True(t, original[key], "row %v not in input", rec)
		assert.False(t, seen[key], "row %v repeated", rec)
		seen[key] = true
	}
}

func TestCleanImputationCollisionIsDeduplicated(t *testing.T) {
	// imputing the gap with 5 makes both rows ("x", 5)
	in := domain.MustTable("t",
		domain.TextColumn("k", "x", "x"),
		domain.NumberColumn("v", 5, math.NaN()),
	)
	out, report := NewCleaner(nil, "").CleanWithReport(in)

	assert.Equal(t, [][]string{{"x", "5"}}, out.Records())
	assert.Equal(t, 2, report.RowsBefore)
	assert.Equal(t, 1, report.RowsAfter)
	assert.Equal(t, 1, report.DuplicatesRemoved)
	assert.Equal(t, map[string]int{"v": 1}, report.Imputed)
}

func TestCleanDoesNotModifyInput(t *testing.T) {
	in := salesTable()
	before := in.Clone()

	_ = Clean(in)

	assert.True(t, before.Equal(in))
}

func TestCleanWithReport(t *testing.T) {
	in := domain.MustTable("t",
		domain.TextColumn("k", "a", "a", "b"),
		domain.NumberColumn("v", 1, 1, math.NaN()),
		domain.NumberColumn("empty", math.NaN(), math.NaN(), math.NaN()),
	)
	out, report := NewCleaner(nil, "n/a").CleanWithReport(in)

	assert.Equal(t, 2, out.NumRows())
	assert.Equal(t, 1, report.DuplicatesRemoved)
	assert.Equal(t, map[string]int{"v": 1}, report.Imputed)
	assert.Equal(t, []string{"empty"}, report.LeftMissing)
}

func TestCleanerCustomPlaceholder(t *testing.T) {
	in := domain.MustTable("t", domain.NewColumn("c", domain.ColumnText, domain.Missing()))
	out := NewCleaner(nil, "-").Clean(in)
	assert.Equal(t, "-", out.Columns[0].Values[0].Str)
}

func TestDropDuplicatesTreatsMissingAsEqual(t *testing.T) {
	in := domain.MustTable("t",
		domain.NewColumn("c", domain.ColumnText, domain.Missing(), domain.Missing(), domain.Text("")),
	)
	out := DropDuplicates(in)
	require.Equal(t, 2, out.NumRows())
	assert.True(t, out.Columns[0].Values[0].Null)
	assert.False(t, out.Columns[0].Values[1].Null)
}
