package dataprocessing

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"kuberdash/pkg/contracts/domain"
)

func TestParseCSV(t *testing.T) {
	input := "name,score,joined,city\n" +
		"alice,10,2024-01-01,Paris\n" +
		"bob,NA,2024-01-02,\n" +
		"carol,7.5,,Rome\n"

	table, err := ParseCSV(strings.NewReader(input), "people")
	require.NoError(t, err)

	assert.Equal(t, "people", table.Name)
	assert.Equal(t, domain.Shape{Rows: 3, Columns: 4}, table.Shape())
	assert.Equal(t, []string{"name", "score", "joined", "city"}, table.ColumnNames())

	score, err := table.Column("score")
	require.NoError(t, err)
	assert.Equal(t, domain.ColumnNumeric, score.Type)
	assert.Equal(t, 10.0, score.Values[0].Num)
	assert.True(t, score.Values[1].Null)
	assert.Equal(t, 7.5, score.Values[2].Num)

	joined, err := table.Column("joined")
	require.NoError(t, err)
	assert.Equal(t, domain.ColumnTemporal, joined.Type)
	assert.True(t, joined.Values[0].Time.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, joined.Values[2].Null)

	city, err := table.Column("city")
	require.NoError(t, err)
	assert.Equal(t, domain.ColumnText, city.Type)
	assert.True(t, city.Values[1].Null)
}

func TestParseCSVHeaders(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "duplicate names get suffixes",
			input: "a,a,b,a\n1,2,3,4\n",
			want:  []string{"a", "a.1", "b", "a.2"},
		},
		{
			name:  "blank names are numbered",
			input: ",x,\n1,2,3\n",
			want:  []string{"Unnamed: 0", "x", "Unnamed: 2"},
		},
		{
			name:  "byte order mark is dropped",
			input: "\uFEFFid,v\n1,2\n",
			want:  []string{"id", "v"},
		},
		{
			name:  "ragged rows widen the table",
			input: "a,b\n1,2,3\n4\n",
			want:  []string{"a", "b", "Unnamed: 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ParseCSV(strings.NewReader(tt.input), "t")
			require.NoError(t, err)
			assert.Equal(t, tt.want, table.ColumnNames())
		})
	}
}

func TestParseCSVRaggedRowsArePadded(t *testing.T) {
	table, err := ParseCSV(strings.NewReader("a,b\n1,2\n3\n"), "t")
	require.NoError(t, err)

	b, err := table.Column("b")
	require.NoError(t, err)
	assert.Equal(t, 2, b.Len())
	assert.True(t, b.Values[1].Null)
}

func TestParseCSVEmptyInput(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""), "empty")
	assert.ErrorIs(t, err, domain.ErrInvalidTable)
}

func TestParseCSVHeaderOnly(t *testing.T) {
	table, err := ParseCSV(strings.NewReader("a,b\n"), "t")
	require.NoError(t, err)
	assert.Equal(t, domain.Shape{Rows: 0, Columns: 2}, table.Shape())

	// no values at all reads as numeric
	assert.Equal(t, domain.ColumnNumeric, table.Columns[0].Type)
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"region", "sales"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"north", 120}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"south", 80.5}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	table, err := ParseFile("report.xlsx", &buf)
	require.NoError(t, err)

	assert.Equal(t, "report", table.Name)
	assert.Equal(t, domain.Shape{Rows: 2, Columns: 2}, table.Shape())

	sales, err := table.Column("sales")
	require.NoError(t, err)
	assert.Equal(t, domain.ColumnNumeric, sales.Type)
	assert.Equal(t, 120.0, sales.Values[0].Num)
	assert.Equal(t, 80.5, sales.Values[1].Num)
}

func TestParseFileDispatch(t *testing.T) {
	table, err := ParseFile("dir/Data.CSV", strings.NewReader("x\n1\n"))
	require.NoError(t, err)
	assert.Equal(t, "Data", table.Name)

	_, err = ParseFile("data.xls", strings.NewReader(""))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	_, err = ParseFile("data.json", strings.NewReader("{}"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}
