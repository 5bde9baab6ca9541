// Package config loads the JSON configuration for the height-map pipeline.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-surface/colormap"
	"github.com/cwbudde/algo-surface/heightfield"
	"github.com/cwbudde/algo-surface/spectral"
)

const (
	defaultPhysicalSpan  = spectral.DefaultPhysicalSpan
	defaultHistogramBins = 100
	defaultDCPolicy      = "preserve"
	defaultColormap      = "jet"
	defaultZScale        = 1.0
	defaultView          = "filtered"

	maxConfigSize = 1 * 1024 * 1024 // 1MB
	maxBins       = 1 << 16
)

// PipelineConfig holds the tunable parameters of the pipeline.
// Every field is optional; Get* methods fall back to defaults for nil fields,
// so partial configs are safe.
type PipelineConfig struct {
	// Filter params
	PhysicalSpan *float64 `json:"physical_span,omitempty"`
	PixelSize    *float64 `json:"pixel_size,omitempty"` // 0 means derive from physical_span
	LowCutoff    *float64 `json:"low_cutoff,omitempty"`
	HighCutoff   *float64 `json:"high_cutoff,omitempty"`
	DCPolicy     *string  `json:"dc_policy,omitempty"` // "preserve" or "mask"

	// Histogram params
	HistogramBins *int    `json:"histogram_bins,omitempty"`
	View          *string `json:"view,omitempty"`

	// Presentation params
	Colormap *string  `json:"colormap,omitempty"`
	ZScale   *float64 `json:"z_scale,omitempty"`

	// Decoder params
	TIFFDefaults *bool `json:"tiff_defaults,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyPipelineConfig returns a config with every field unset.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// DefaultPipelineConfig returns a config with every field populated.
// Cutoffs stay unset: without them the filter is not applied.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		PhysicalSpan:  ptrFloat64(defaultPhysicalSpan),
		PixelSize:     ptrFloat64(0),
		DCPolicy:      ptrString(defaultDCPolicy),
		HistogramBins: ptrInt(defaultHistogramBins),
		View:          ptrString(defaultView),
		Colormap:      ptrString(defaultColormap),
		ZScale:        ptrFloat64(defaultZScale),
		TIFFDefaults:  ptrBool(false),
	}
}

// LoadPipelineConfig reads a config from a .json file of at most 1MB and
// validates it.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPipelineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *PipelineConfig) Validate() error {
	if c.PhysicalSpan != nil && !(*c.PhysicalSpan > 0) {
		return fmt.Errorf("physical_span must be > 0, got %v", *c.PhysicalSpan)
	}
	if c.PixelSize != nil && (*c.PixelSize < 0 || math.IsNaN(*c.PixelSize)) {
		return fmt.Errorf("pixel_size must be >= 0, got %v", *c.PixelSize)
	}
	for name, p := range map[string]*float64{"low_cutoff": c.LowCutoff, "high_cutoff": c.HighCutoff} {
		if p != nil && math.IsNaN(*p) {
			return fmt.Errorf("%s must be a number", name)
		}
	}
	if c.DCPolicy != nil {
		if _, err := spectral.ParseDCPolicy(*c.DCPolicy); err != nil {
			return err
		}
	}
	if c.HistogramBins != nil && (*c.HistogramBins <= 0 || *c.HistogramBins > maxBins) {
		return fmt.Errorf("histogram_bins must be in [1, %d], got %d", maxBins, *c.HistogramBins)
	}
	if c.View != nil {
		if _, err := heightfield.ParseView(*c.View); err != nil {
			return err
		}
	}
	if c.Colormap != nil {
		if _, err := colormap.Parse(*c.Colormap); err != nil {
			return err
		}
	}
	if c.ZScale != nil && !(*c.ZScale > 0) {
		return fmt.Errorf("z_scale must be > 0, got %v", *c.ZScale)
	}
	return nil
}

// GetPhysicalSpan returns the nominal span across the longer raster axis.
func (c *PipelineConfig) GetPhysicalSpan() float64 {
	if c.PhysicalSpan == nil {
		return defaultPhysicalSpan
	}
	return *c.PhysicalSpan
}

// GetPixelSize returns the explicit pixel spacing, or 0 to derive it.
func (c *PipelineConfig) GetPixelSize() float64 {
	if c.PixelSize == nil {
		return 0
	}
	return *c.PixelSize
}

// HasFilter reports whether both cutoffs are configured.
func (c *PipelineConfig) HasFilter() bool {
	return c.LowCutoff != nil && c.HighCutoff != nil
}

// FilterRequest builds the bandpass request from the configured cutoffs.
func (c *PipelineConfig) FilterRequest() spectral.Request {
	var req spectral.Request
	if c.LowCutoff != nil {
		req.LowCutoff = *c.LowCutoff
	}
	if c.HighCutoff != nil {
		req.HighCutoff = *c.HighCutoff
	}
	req.PixelSize = c.GetPixelSize()
	return req
}

// GetDCPolicy returns the parsed DC policy.
func (c *PipelineConfig) GetDCPolicy() spectral.DCPolicy {
	if c.DCPolicy == nil {
		return spectral.DCPreserve
	}
	p, err := spectral.ParseDCPolicy(*c.DCPolicy)
	if err != nil {
		return spectral.DCPreserve
	}
	return p
}

// GetHistogramBins returns the histogram bin count.
func (c *PipelineConfig) GetHistogramBins() int {
	if c.HistogramBins == nil {
		return defaultHistogramBins
	}
	return *c.HistogramBins
}

// GetView returns the field view the summaries read.
func (c *PipelineConfig) GetView() heightfield.View {
	name := defaultView
	if c.View != nil {
		name = *c.View
	}
	v, err := heightfield.ParseView(name)
	if err != nil {
		return heightfield.ViewFiltered
	}
	return v
}

// GetColormap returns the presentation curve.
func (c *PipelineConfig) GetColormap() colormap.Name {
	name := defaultColormap
	if c.Colormap != nil {
		name = *c.Colormap
	}
	m, err := colormap.Parse(name)
	if err != nil {
		return colormap.Jet
	}
	return m
}

// GetZScale returns the display Z scale factor.
func (c *PipelineConfig) GetZScale() float64 {
	if c.ZScale == nil {
		return defaultZScale
	}
	return *c.ZScale
}

// GetTIFFDefaults reports whether absent TIFF tags take baseline defaults.
func (c *PipelineConfig) GetTIFFDefaults() bool {
	if c.TIFFDefaults == nil {
		return false
	}
	return *c.TIFFDefaults
}
