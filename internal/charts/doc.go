// Package charts builds renderer-independent chart specifications from
// tables and draws the simple kinds as PNG or SVG images.
//
// A Factory carries the layout shared by every chart. Line and bar charts
// take one point per row; pie charts sum values per label; heatmaps hold the
// Pearson correlation matrix of the numeric columns.
package charts
