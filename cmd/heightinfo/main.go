// Command heightinfo loads a height map, optionally bandpass filters it and
// prints field, roughness and histogram summaries.
//
// Usage:
//
//	heightinfo [flags] [file.tif]
//
// Without a file it works on the built-in synthetic surface.
//
// Examples:
//
//	heightinfo scan.tif
//	heightinfo -low 0.5 -high 2 -out-png filtered.png scan.tif
//	heightinfo -config pipeline.json -out-html hist.html scan.tif
//	heightinfo -list ./scans
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/algo-surface/heightfield"
	"github.com/cwbudde/algo-surface/histogram"
	"github.com/cwbudde/algo-surface/internal/config"
	"github.com/cwbudde/algo-surface/internal/logging"
	"github.com/cwbudde/algo-surface/raster"
	"github.com/cwbudde/algo-surface/report"
	"github.com/cwbudde/algo-surface/session"
	"github.com/cwbudde/algo-surface/spectral"
	"github.com/cwbudde/algo-surface/stats/roughness"
)

const profileBins = 64

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type outputs struct {
	tiff, png, hist, html, spectrum string
	format                          string
	deflate                         bool
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("heightinfo", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "path to a JSON pipeline config")
	low := fs.Float64("low", 0, "low cutoff wavelength (raw units)")
	high := fs.Float64("high", 0, "high cutoff wavelength (raw units)")
	pixelSize := fs.Float64("pixel-size", 0, "physical sample spacing; 0 derives it from the physical span")
	bins := fs.Int("bins", 0, "histogram bin count")
	dc := fs.String("dc", "", "DC policy: preserve or mask")
	view := fs.String("view", "", "view to summarize: raw, normalized or filtered")
	cmap := fs.String("colormap", "", "colormap for -out-png")
	zScale := fs.Float64("zscale", 0, "z scale for -out-png")
	tiffDefaults := fs.Bool("tiff-defaults", false, "accept rasters without SampleFormat/SamplesPerPixel tags")
	listDir := fs.String("list", "", "list .tif/.tiff files in `DIR` and exit")
	verbose := fs.Bool("v", false, "log session activity to stderr")

	var out outputs
	fs.StringVar(&out.tiff, "out-tiff", "", "write the selected view as TIFF")
	fs.StringVar(&out.format, "format", "float32", "TIFF sample format: float32, uint16 or uint8")
	fs.BoolVar(&out.deflate, "deflate", false, "Deflate-compress -out-tiff")
	fs.StringVar(&out.png, "out-png", "", "write a color-mapped PNG of the selected view")
	fs.StringVar(&out.hist, "out-hist", "", "write the histogram as a PNG chart")
	fs.StringVar(&out.html, "out-html", "", "write the histogram as an HTML chart")
	fs.StringVar(&out.spectrum, "out-spectrum", "", "write the radial power spectrum as a PNG chart")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: heightinfo [flags] [file.tif]\n\n")
		fmt.Fprintf(stderr, "Prints summaries of a height map, optionally bandpass filtered.\n")
		fmt.Fprintf(stderr, "Without a file, the synthetic demo surface is used.\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  heightinfo scan.tif\n")
		fmt.Fprintf(stderr, "  heightinfo -low 0.5 -high 2 -out-png filtered.png scan.tif\n")
		fmt.Fprintf(stderr, "  heightinfo -list ./scans\n")
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *verbose {
		logging.SetLogger(log.New(stderr, "", log.LstdFlags).Printf)
	} else {
		logging.SetLogger(nil)
	}

	if *listDir != "" {
		names, err := raster.ListRasters(*listDir)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		for _, n := range names {
			fmt.Fprintln(stdout, n)
		}
		return 0
	}

	cfg := config.DefaultPipelineConfig()
	if *configPath != "" {
		loaded, err := config.LoadPipelineConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		cfg = loaded
	}

	// Flags given on the command line override the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "low":
			cfg.LowCutoff = low
		case "high":
			cfg.HighCutoff = high
		case "pixel-size":
			cfg.PixelSize = pixelSize
		case "bins":
			cfg.HistogramBins = bins
		case "dc":
			cfg.DCPolicy = dc
		case "view":
			cfg.View = view
		case "colormap":
			cfg.Colormap = cmap
		case "zscale":
			cfg.ZScale = zScale
		case "tiff-defaults":
			cfg.TIFFDefaults = tiffDefaults
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	logging.Verbosef(*verbose, "heightinfo: view=%s bins=%d dc=%s span=%g",
		cfg.GetView(), cfg.GetHistogramBins(), cfg.GetDCPolicy(), cfg.GetPhysicalSpan())

	sess := session.New(session.WithConfig(cfg))
	if fs.NArg() > 1 {
		fmt.Fprintf(stderr, "error: expected at most one raster, got %d\n", fs.NArg())
		return 2
	}
	if fs.NArg() == 1 {
		if _, err := sess.Load(fs.Arg(0)); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	printField(tw, sess.Field())

	if cfg.HasFilter() {
		res, err := sess.ApplyFilter(cfg.FilterRequest())
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		printFilter(tw, res)
	}

	v := cfg.GetView()
	f := sess.Field()
	pixel := spectral.NewBandpass(spectral.WithPhysicalSpan(cfg.GetPhysicalSpan())).
		PixelSize(cfg.FilterRequest(), f.Width(), f.Height())
	printRoughness(tw, v, sess.Roughness(v), roughness.Sdq(f, v, pixel))
	printHistogram(tw, v, sess.Histogram(v))

	prof, err := sess.Profile(v, profileBins)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	printTexture(tw, prof.Texture(), pixel)

	if err := tw.Flush(); err != nil {
		fmt.Fprintf(stderr, "error: failed to flush output: %v\n", err)
		return 1
	}

	if err := writeOutputs(sess, cfg, v, out); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func printField(w io.Writer, f *heightfield.Field) {
	m := f.Meta()
	rawLo, rawHi := f.RawRange()
	fmt.Fprintf(w, "Source\t%s\n", m.Source)
	fmt.Fprintf(w, "Size\t%d x %d\n", f.Width(), f.Height())
	fmt.Fprintf(w, "Units\t%s\n", m.Units)
	if m.BitsPerSample > 0 {
		fmt.Fprintf(w, "Samples\t%d-bit, format %d\n", m.BitsPerSample, m.SampleFormat)
	}
	fmt.Fprintf(w, "Raw range\t[%.6g, %.6g]\n", rawLo, rawHi)
}

func printFilter(w io.Writer, res spectral.Result) {
	lo, hi := res.Field.FilteredRange()
	fmt.Fprintf(w, "Pixel size\t%.6g\n", res.PixelSize)
	fmt.Fprintf(w, "Band\t[%.4f, %.4f] cycles/pixel\n", res.LowFreq, res.HighFreq)
	fmt.Fprintf(w, "Cells kept\t%d of %d\n", res.Kept, res.Kept+res.Rejected)
	fmt.Fprintf(w, "Filtered range\t[%.6g, %.6g]\n", lo, hi)
}

func printRoughness(w io.Writer, v heightfield.View, s roughness.Stats, sdq float64) {
	fmt.Fprintf(w, "\nRoughness (%s)\n", v)
	fmt.Fprintf(w, "Sa\tSq\tSsk\tSku\tSp\tSv\tSz\tSdq\n")
	fmt.Fprintf(w, "--\t--\t---\t---\t--\t--\t--\t---\n")
	fmt.Fprintf(w, "%.4g\t%.4g\t%.4f\t%.4f\t%.4g\t%.4g\t%.4g\t%.4g\n", s.Sa, s.Sq, s.Ssk, s.Sku, s.Sp, s.Sv, s.Sz, sdq)
}

func printTexture(w io.Writer, s spectral.TextureStats, pixelSize float64) {
	fmt.Fprintf(w, "\nSpectrum\n")
	fmt.Fprintf(w, "Peak\t%.4f cycles/pixel (wavelength %.4g)\n", s.Peak, spectral.Wavelength(s.Peak, pixelSize))
	fmt.Fprintf(w, "Centroid\t%.4f cycles/pixel\n", s.Centroid)
	fmt.Fprintf(w, "Rolloff\t%.4f cycles/pixel\n", s.Rolloff)
	fmt.Fprintf(w, "Flatness\t%.4f\n", s.Flatness)
}

var sparkLevels = []rune(" ▁▂▃▄▅▆▇█")

func printHistogram(w io.Writer, v heightfield.View, h histogram.Histogram) {
	fmt.Fprintf(w, "\nHistogram (%s, %d bins)\n", v, len(h.Bins))
	fmt.Fprintf(w, "Range\t[%.6g, %.6g]\n", h.Min, h.Max)
	fmt.Fprintf(w, "Median\t%.6g\n", h.Percentile(0.5))
	fmt.Fprintf(w, "Shape\t%s\n", sparkline(h.Bins))
}

func sparkline(bins []float64) string {
	var sb strings.Builder
	top := len(sparkLevels) - 1
	for _, b := range bins {
		i := int(b*float64(top) + 0.5)
		i = min(max(i, 0), top)
		sb.WriteRune(sparkLevels[i])
	}
	return sb.String()
}

func writeOutputs(sess *session.Session, cfg *config.PipelineConfig, v heightfield.View, out outputs) error {
	if out.tiff != "" {
		format, err := parseFormat(out.format)
		if err != nil {
			return err
		}
		opts := raster.EncodeOptions{Format: format, Deflate: out.deflate}
		if err := writeFile(out.tiff, func(w io.Writer) error { return sess.Export(w, v, opts) }); err != nil {
			return err
		}
	}
	if out.png != "" {
		f := sess.Field()
		if err := writeFile(out.png, func(w io.Writer) error {
			return report.HeightPNG(w, f, v, cfg.GetColormap(), cfg.GetZScale())
		}); err != nil {
			return err
		}
	}

	title := fmt.Sprintf("%s (%s)", sess.Field().Meta().Source, v)
	if out.hist != "" {
		if err := writeFile(out.hist, func(w io.Writer) error {
			return report.HistogramPNG(w, sess.Histogram(v), title)
		}); err != nil {
			return err
		}
	}
	if out.html != "" {
		if err := writeFile(out.html, func(w io.Writer) error {
			return report.HistogramHTML(w, sess.Histogram(v), title)
		}); err != nil {
			return err
		}
	}
	if out.spectrum != "" {
		prof, err := sess.Profile(v, profileBins)
		if err != nil {
			return err
		}
		if err := writeFile(out.spectrum, func(w io.Writer) error {
			return report.ProfilePNG(w, prof, title)
		}); err != nil {
			return err
		}
	}
	return nil
}

func parseFormat(s string) (raster.Format, error) {
	for _, f := range []raster.Format{raster.Float32, raster.Uint16, raster.Uint8} {
		if strings.EqualFold(s, f.String()) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown TIFF format %q (want float32, uint16 or uint8)", s)
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
