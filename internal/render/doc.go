// Package render draws histogram grids for inspection: line profiles as PNG
// through gonum/plot and 2-D slices as go-echarts heat-map pages.
package render
