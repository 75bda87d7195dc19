package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"kratio/internal/analysis"
	"kratio/internal/logging"

	chart "github.com/wcharczuk/go-chart/v2"
)

const (
	plotWidth  = 1200
	plotHeight = 600
)

// Plotter exports bar charts of the densest units.
type Plotter struct {
	Logger *logging.Logger
	TopN   int
}

// SupportedPlotExtension reports whether path names a .png or .svg file.
func SupportedPlotExtension(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".svg":
		return true
	default:
		return false
	}
}

// Save writes the chart to path. Empty tables are skipped with a warning and
// no file is created.
func (plotter Plotter) Save(source analysis.Table, path string) error {
	var format chart.RendererProvider
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = chart.PNG
	case ".svg":
		format = chart.SVG
	default:
		return fmt.Errorf("%w: %q (use .png or .svg)", ErrUnsupportedFormat, filepath.Ext(path))
	}

	rows := source.Top(plotter.TopN)
	if len(rows) == 0 {
		plotter.Logger.Warn("plot skipped, table is empty", map[string]string{"path": path})
		return nil
	}

	graph := barChart(source, rows)
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := graph.Render(format, file); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	plotter.Logger.Info("plot saved", map[string]string{"path": path})
	return nil
}

func barChart(source analysis.Table, rows []analysis.Row) chart.BarChart {
	bars := make([]chart.Value, 0, len(rows))
	maxDensity := 0.0
	for _, row := range rows {
		bars = append(bars, chart.Value{Label: string(row.Unit), Value: row.Density})
		if row.Density > maxDensity {
			maxDensity = row.Density
		}
	}

	noun := "Keywords"
	if source.Kind == analysis.KindPhrase {
		noun = "Noun Chunks"
	}
	return chart.BarChart{
		Title:      fmt.Sprintf("Top %d %s", len(rows), noun),
		Width:      plotWidth,
		Height:     plotHeight,
		BarWidth:   60,
		BarSpacing: 20,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.Style{TextRotationDegrees: 45},
		YAxis: chart.YAxis{
			Name:  "Density (%)",
			Range: &chart.ContinuousRange{Min: 0, Max: maxDensity * 1.1},
		},
		Bars: bars,
	}
}
