/*
DESCRIPTION
  histogram.go plots dictionary assignment histograms.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vis

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Plot dimensions.
const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 4 * vg.Inch
)

// HistogramPlot returns a bar chart of the number of samples assigned to each
// atom, atoms ordered by descending count.
func HistogramPlot(h []int, title string) (*plot.Plot, error) {
	if len(h) == 0 {
		return nil, fmt.Errorf("empty histogram")
	}
	sorted := append([]int(nil), h...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	vals := make(plotter.Values, len(sorted))
	for i, c := range sorted {
		vals[i] = float64(c)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "atom rank"
	p.Y.Label.Text = "samples"

	w := plotWidth / vg.Length(len(vals)+1)
	if w < vg.Points(0.5) {
		w = vg.Points(0.5)
	}
	bars, err := plotter.NewBarChart(vals, w)
	if err != nil {
		return nil, fmt.Errorf("could not create bar chart: %w", err)
	}
	bars.LineStyle.Width = 0
	p.Add(bars)
	return p, nil
}

// WriteHistogram writes the histogram plot of h to w in the given format,
// which is any image format supported by gonum plot, for example "png".
func WriteHistogram(w io.Writer, h []int, title, format string) error {
	p, err := HistogramPlot(h, title)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, format)
	if err != nil {
		return fmt.Errorf("could not render histogram: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SaveHistogram writes the histogram plot of h to the file at path, in the
// format given by its extension.
func SaveHistogram(path string, h []int, title string) error {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create histogram file: %w", err)
	}
	err = WriteHistogram(f, h, title, format)
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
