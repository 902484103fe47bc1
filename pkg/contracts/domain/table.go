package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ColumnType is the semantic type tag assigned to a column at ingestion
type ColumnType string

const (
	ColumnNumeric  ColumnType = "numeric"
	ColumnText     ColumnType = "text"
	ColumnTemporal ColumnType = "temporal"
)

// Valid reports whether the type tag is one of the known types
func (ct ColumnType) Valid() bool {
	switch ct {
	case ColumnNumeric, ColumnText, ColumnTemporal:
		return true
	}
	return false
}

// Value is a single cell. Exactly one of Num, Str or Time is meaningful,
// selected by the owning column's type. Null marks a missing cell.
type Value struct {
	Null bool
	Num  float64
	Str  string
	Time time.Time
}

// Missing returns a missing cell
func Missing() Value {
	return Value{Null: true}
}

// Number returns a numeric cell; NaN is stored as missing
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Missing()
	}
	return Value{Num: f}
}

// Text returns a text cell
func Text(s string) Value {
	return Value{Str: s}
}

// Timestamp returns a temporal cell; the zero time is stored as missing
func Timestamp(t time.Time) Value {
	if t.IsZero() {
		return Missing()
	}
	return Value{Time: t}
}

// Format renders the cell as text according to the column type.
// Missing cells render as the empty string.
func (v Value) Format(ct ColumnType) string {
	if v.Null {
		return ""
	}
	switch ct {
	case ColumnNumeric:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ColumnTemporal:
		return v.Time.Format(time.RFC3339)
	default:
		return v.Str
	}
}

// Equal compares two cells of the same column type. Two missing cells are equal.
func (v Value) Equal(o Value, ct ColumnType) bool {
	if v.Null || o.Null {
		return v.Null && o.Null
	}
	switch ct {
	case ColumnNumeric:
		return v.Num == o.Num
	case ColumnTemporal:
		return v.Time.Equal(o.Time)
	default:
		return v.Str == o.Str
	}
}

// Column is a named, typed sequence of cells
type Column struct {
	Name   string     `json:"name"`
	Type   ColumnType `json:"type"`
	Values []Value    `json:"-"`
}

// NewColumn builds a column, copying the values
func NewColumn(name string, ct ColumnType, values ...Value) Column {
	vals := make([]Value, len(values))
	copy(vals, values)
	return Column{Name: name, Type: ct, Values: vals}
}

// NumberColumn builds a numeric column. NaN entries become missing.
func NumberColumn(name string, values ...float64) Column {
	vals := make([]Value, len(values))
	for i, f := range values {
		vals[i] = Number(f)
	}
	return Column{Name: name, Type: ColumnNumeric, Values: vals}
}

// TextColumn builds a text column
func TextColumn(name string, values ...string) Column {
	vals := make([]Value, len(values))
	for i, s := range values {
		vals[i] = Text(s)
	}
	return Column{Name: name, Type: ColumnText, Values: vals}
}

// Len returns the number of cells
func (c Column) Len() int {
	return len(c.Values)
}

// Clone returns a deep copy of the column
func (c Column) Clone() Column {
	return NewColumn(c.Name, c.Type, c.Values...)
}

// MissingCount returns the number of missing cells
func (c Column) MissingCount() int {
	n := 0
	for _, v := range c.Values {
		if v.Null {
			n++
		}
	}
	return n
}

// Table is an ordered collection of equal-length, uniquely named columns
type Table struct {
	Name    string
	Columns []Column
}

// Shape is the (rows, columns) size of a table
type Shape struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// NewTable validates the column invariants and returns a table that owns
// copies of the given columns.
func NewTable(name string, columns ...Column) (*Table, error) {
	seen := make(map[string]struct{}, len(columns))
	rows := -1
	cols := make([]Column, len(columns))
	for i, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrInvalidTable, i)
		}
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column name %q", ErrInvalidTable, c.Name)
		}
		seen[c.Name] = struct{}{}
		if !c.Type.Valid() {
			return nil, fmt.Errorf("%w: column %q has unknown type %q", ErrInvalidTable, c.Name, c.Type)
		}
		if rows >= 0 && c.Len() != rows {
			return nil, fmt.Errorf("%w: column %q has %d values, expected %d", ErrInvalidTable, c.Name, c.Len(), rows)
		}
		rows = c.Len()
		cols[i] = c.Clone()
	}
	return &Table{Name: name, Columns: cols}, nil
}

// MustTable is NewTable for fixtures and literals; it panics on invalid input
func MustTable(name string, columns ...Column) *Table {
	t, err := NewTable(name, columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// NumRows returns the number of rows
func (t *Table) NumRows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// NumCols returns the number of columns
func (t *Table) NumCols() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Shape returns the table dimensions
func (t *Table) Shape() Shape {
	return Shape{Rows: t.NumRows(), Columns: t.NumCols()}
}

// ColumnNames returns the column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column or -1
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column looks up a column by name
func (t *Table) Column(name string) (*Column, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return &t.Columns[idx], nil
}

// ColumnsOfType returns the names of the columns with the given type, in order
func (t *Table) ColumnsOfType(ct ColumnType) []string {
	var names []string
	for _, c := range t.Columns {
		if c.Type == ct {
			names = append(names, c.Name)
		}
	}
	return names
}

// Row returns the cells of row i across all columns
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.Columns))
	for j, c := range t.Columns {
		row[j] = c.Values[i]
	}
	return row
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	cols := make([]Column, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.Clone()
	}
	return &Table{Name: t.Name, Columns: cols}
}

// SelectRows returns a new table holding the given rows in the given order
func (t *Table) SelectRows(rows []int) *Table {
	cols := make([]Column, len(t.Columns))
	for j, c := range t.Columns {
		vals := make([]Value, len(rows))
		for k, r := range rows {
			vals[k] = c.Values[r]
		}
		cols[j] = Column{Name: c.Name, Type: c.Type, Values: vals}
	}
	return &Table{Name: t.Name, Columns: cols}
}

// Head returns at most n leading rows
func (t *Table) Head(n int) *Table {
	if n < 0 || n >= t.NumRows() {
		return t.Clone()
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return t.SelectRows(rows)
}

// Records renders the table as text rows, header excluded
func (t *Table) Records() [][]string {
	out := make([][]string, t.NumRows())
	for i := range out {
		rec := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			rec[j] = c.Values[i].Format(c.Type)
		}
		out[i] = rec
	}
	return out
}

// Equal reports whether two tables have the same schema and cells
func (t *Table) Equal(o *Table) bool {
	if t.NumCols() != o.NumCols() || t.NumRows() != o.NumRows() {
		return false
	}
	for j, c := range t.Columns {
		oc := o.Columns[j]
		if c.Name != oc.Name || c.Type != oc.Type {
			return false
		}
		for i, v := range c.Values {
			if !v.Equal(oc.Values[i], c.Type) {
				return false
			}
		}
	}
	return true
}

// String is a short description used in logs
func (t *Table) String() string {
	return fmt.Sprintf("%s[%dx%d %s]", t.Name, t.NumRows(), t.NumCols(), strings.Join(t.ColumnNames(), ","))
}

// tableJSON is the grid representation served to clients
type tableJSON struct {
	Name    string   `json:"name,omitempty"`
	Columns []Column `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Shape   Shape    `json:"shape"`
}

// MarshalJSON renders the table as a column schema plus row-major cells
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := make([][]any, t.NumRows())
	for i := range rows {
		row := make([]any, len(t.Columns))
		for j, c := range t.Columns {
			row[j] = cellJSON(c.Values[i], c.Type)
		}
		rows[i] = row
	}
	cols := t.Columns
	if cols == nil {
		cols = []Column{}
	}
	return json.Marshal(tableJSON{Name: t.Name, Columns: cols, Rows: rows, Shape: t.Shape()})
}

func cellJSON(v Value, ct ColumnType) any {
	if v.Null {
		return nil
	}
	switch ct {
	case ColumnNumeric:
		if math.IsInf(v.Num, 0) {
			return v.Format(ct)
		}
		return v.Num
	case ColumnTemporal:
		return v.Time.Format(time.RFC3339)
	default:
		return v.Str
	}
}

// Interface returns the JSON-friendly Go value of the cell
func (v Value) Interface(ct ColumnType) any {
	return cellJSON(v, ct)
}
