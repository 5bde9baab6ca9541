// Package report renders pipeline results for people: histogram charts as
// PNG (gonum/plot) or interactive HTML (go-echarts), radial spectra as PNG,
// and color-mapped height images.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"image/png"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/cwbudde/algo-surface/colormap"
	"github.com/cwbudde/algo-surface/heightfield"
	"github.com/cwbudde/algo-surface/histogram"
	"github.com/cwbudde/algo-surface/spectral"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("report: no data")

// Chart dimensions for PNG output.
const (
	chartWidth  = 8 * vg.Inch
	chartHeight = 4 * vg.Inch

	// labelEvery controls how many histogram bins share one x-axis label.
	labelEvery = 10
)

var barColor = color.RGBA{R: 0x31, G: 0x68, B: 0x8e, A: 0xff}

// HistogramPNG draws the normalized bins of h as a bar chart.
func HistogramPNG(w io.Writer, h histogram.Histogram, title string) error {
	if len(h.Bins) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Height"
	p.Y.Label.Text = "Relative count"
	p.Y.Min, p.Y.Max = 0, 1

	bars, err := plotter.NewBarChart(plotter.Values(h.Bins), vg.Points(4))
	if err != nil {
		return fmt.Errorf("report: histogram bars: %w", err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(binLabels(h)...)

	return writePlot(w, p)
}

// HistogramHTML writes h as a standalone go-echarts bar chart page.
func HistogramHTML(w io.Writer, h histogram.Histogram, title string) error {
	if len(h.Bins) == 0 {
		return ErrNoData
	}

	x := make([]string, len(h.Bins))
	y := make([]opts.BarData, len(h.Bins))
	for i, v := range h.Bins {
		x[i] = fmt.Sprintf("%.4g", h.Center(i))
		y[i] = opts.BarData{Value: v}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("samples=%d bins=%d range=[%.4g, %.4g]", h.Total, len(h.Bins), h.Min, h.Max),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Height", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Relative count", Min: 0, Max: 1}),
	)
	bar.SetXAxis(x).AddSeries("histogram", y)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("report: render histogram: %w", err)
	}
	return nil
}

// ProfilePNG draws a radial power spectrum on a logarithmic power axis.
// Bins without cells are left out.
func ProfilePNG(w io.Writer, prof spectral.Profile, title string) error {
	pts := make(plotter.XYs, 0, len(prof.Frequency))
	for i, f := range prof.Frequency {
		if prof.Cells[i] == 0 || !(prof.Power[i] > 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: f, Y: prof.Power[i]})
	}
	if len(pts) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Frequency (cycles/pixel)"
	p.Y.Label.Text = "Power"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("report: profile line: %w", err)
	}
	line.Color = barColor
	line.Width = vg.Points(1)
	p.Add(line)

	return writePlot(w, p)
}

// HeightPNG writes a color-mapped image of one field view.
func HeightPNG(w io.Writer, f *heightfield.Field, view heightfield.View, name colormap.Name, zScale float64) error {
	if f.Empty() {
		return ErrNoData
	}
	if err := png.Encode(w, colormap.Render(f, view, name, zScale)); err != nil {
		return fmt.Errorf("report: encode png: %w", err)
	}
	return nil
}

func writePlot(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return fmt.Errorf("report: plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("report: write plot: %w", err)
	}
	return nil
}

func binLabels(h histogram.Histogram) []string {
	labels := make([]string, len(h.Bins))
	for i := range labels {
		if i%labelEvery == 0 {
			labels[i] = fmt.Sprintf("%.3g", h.Center(i))
		}
	}
	return labels
}
