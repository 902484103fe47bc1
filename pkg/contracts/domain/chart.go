package domain

import (
	"encoding/json"
	"math"
)

// ChartKind identifies the chart to build
type ChartKind string

const (
	ChartLine        ChartKind = "line"
	ChartBar         ChartKind = "bar"
	ChartPie         ChartKind = "pie"
	ChartHeatmap     ChartKind = "heatmap"
	ChartCorrelation ChartKind = "correlation-matrix"
)

// ChartKinds lists the supported kinds in display order
var ChartKinds = []ChartKind{ChartLine, ChartBar, ChartPie, ChartHeatmap, ChartCorrelation}

// ChartRequest selects a chart kind and its columns
type ChartRequest struct {
	Kind   ChartKind `json:"kind" validate:"required,oneof=line bar pie heatmap correlation-matrix"`
	X      string    `json:"x,omitempty" validate:"required_if=Kind line,required_if=Kind bar"`
	Y      string    `json:"y,omitempty" validate:"required_if=Kind line,required_if=Kind bar"`
	Values string    `json:"values,omitempty" validate:"required_if=Kind pie"`
	Names  string    `json:"names,omitempty" validate:"required_if=Kind pie"`
	Title  string    `json:"title,omitempty" validate:"max=200"`
}

// ChartLayout carries rendering hints
type ChartLayout struct {
	Template  string `json:"template"`
	HoverMode string `json:"hovermode"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// ChartPoint is one x/y pair of a line or bar chart
type ChartPoint struct {
	X any `json:"x"`
	Y any `json:"y"`
}

// PieSlice is one labelled slice of a pie chart
type PieSlice struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Correlation is a coefficient that encodes NaN as JSON null
type Correlation float64

// MarshalJSON implements json.Marshaler
func (c Correlation) MarshalJSON() ([]byte, error) {
	f := float64(c)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// CorrelationMatrix is a square matrix of pairwise coefficients
type CorrelationMatrix struct {
	Columns []string        `json:"columns"`
	Values  [][]Correlation `json:"values"`
}

// ChartSpec is a renderer-independent chart description
type ChartSpec struct {
	Kind         ChartKind          `json:"kind"`
	Title        string             `json:"title"`
	XColumn      string             `json:"x_column,omitempty"`
	YColumn      string             `json:"y_column,omitempty"`
	ValuesColumn string             `json:"values_column,omitempty"`
	NamesColumn  string             `json:"names_column,omitempty"`
	XType        ColumnType         `json:"x_type,omitempty"`
	Points       []ChartPoint       `json:"points,omitempty"`
	Slices       []PieSlice         `json:"slices,omitempty"`
	Matrix       *CorrelationMatrix `json:"matrix,omitempty"`
	Layout       ChartLayout        `json:"layout"`
}
