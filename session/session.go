// Package session holds the active height field of an interactive viewer
// and serializes every operation on it.
//
// A Session starts with the synthetic demo field. Loading a raster replaces
// it only when decoding succeeds; on failure the previous field stays
// active and the error is logged and returned. Filtering always derives
// from the active field's raw samples and swaps in the new snapshot.
package session

import (
	"fmt"
	"io"
	"sync"

	"github.com/cwbudde/algo-surface/heightfield"
	"github.com/cwbudde/algo-surface/histogram"
	"github.com/cwbudde/algo-surface/internal/config"
	"github.com/cwbudde/algo-surface/internal/logging"
	"github.com/cwbudde/algo-surface/raster"
	"github.com/cwbudde/algo-surface/spectral"
	"github.com/cwbudde/algo-surface/stats/roughness"
	"github.com/cwbudde/algo-surface/synthetic"
)

// Option configures a Session.
type Option func(*settings)

type settings struct {
	span         float64
	dc           spectral.DCPolicy
	bins         int
	tiffDefaults bool
}

// WithConfig applies the filter, histogram and decoder settings of cfg.
func WithConfig(cfg *config.PipelineConfig) Option {
	return func(s *settings) {
		if cfg == nil {
			return
		}
		s.span = cfg.GetPhysicalSpan()
		s.dc = cfg.GetDCPolicy()
		s.bins = cfg.GetHistogramBins()
		s.tiffDefaults = cfg.GetTIFFDefaults()
	}
}

// WithDCPolicy selects how the filter treats the zero-frequency cell.
func WithDCPolicy(p spectral.DCPolicy) Option {
	return func(s *settings) { s.dc = p }
}

// WithHistogramBins sets the histogram bin count. Values <= 0 are ignored.
func WithHistogramBins(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.bins = n
		}
	}
}

// WithTIFFDefaults makes Load accept rasters without SampleFormat or
// SamplesPerPixel tags.
func WithTIFFDefaults(enabled bool) Option {
	return func(s *settings) { s.tiffDefaults = enabled }
}

// Session is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	field   *heightfield.Field
	filter  *spectral.Bandpass
	bins    int
	decode  []raster.Option
	lastReq *spectral.Request
}

// New returns a session holding the synthetic demo field.
func New(opts ...Option) *Session {
	s := settings{
		span: spectral.DefaultPhysicalSpan,
		dc:   spectral.DCPreserve,
		bins: histogram.DefaultBins,
	}
	for _, opt := range opts {
		opt(&s)
	}

	sess := &Session{
		field:  synthetic.Generate(),
		filter: spectral.NewBandpass(spectral.WithPhysicalSpan(s.span), spectral.WithDCPolicy(s.dc)),
		bins:   s.bins,
	}
	if s.tiffDefaults {
		sess.decode = append(sess.decode, raster.WithTIFFDefaults())
	}
	return sess
}

// Field returns the active snapshot.
func (s *Session) Field() *heightfield.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.field
}

// LastRequest returns the most recent successful filter request, if any.
func (s *Session) LastRequest() (spectral.Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastReq == nil {
		return spectral.Request{}, false
	}
	return *s.lastReq, true
}

// Load decodes path and makes it the active field.
func (s *Session) Load(path string) (*heightfield.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := raster.DecodeFile(path, s.decode...)
	if err != nil {
		logging.Logf("session: load failed, keeping %s: %v", describe(s.field), err)
		return nil, err
	}

	s.field = f
	s.lastReq = nil
	logging.Logf("session: loaded %s", describe(f))
	return f, nil
}

// LoadSynthetic resets the active field to the synthetic demo surface.
func (s *Session) LoadSynthetic() *heightfield.Field {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.field = synthetic.Generate()
	s.lastReq = nil
	return s.field
}

// ApplyFilter bandpasses the active field and activates the result. A
// skipped pass leaves the session untouched.
func (s *Session) ApplyFilter(req spectral.Request) (spectral.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.filter.Apply(s.field, req)
	if err != nil {
		return spectral.Result{}, fmt.Errorf("session: filter: %w", err)
	}
	if res.Skipped {
		logging.Logf("session: filter skipped, no field loaded")
		return res, nil
	}

	s.field = res.Field
	s.lastReq = &req
	return res, nil
}

// Histogram summarizes one view of the active field.
func (s *Session) Histogram(view heightfield.View) histogram.Histogram {
	s.mu.Lock()
	defer s.mu.Unlock()
	return histogram.FromField(s.field, view, s.bins)
}

// Roughness computes areal height parameters for one view of the active
// field.
func (s *Session) Roughness(view heightfield.View) roughness.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return roughness.FromField(s.field, view)
}

// Profile returns the radial power spectrum of one view.
func (s *Session) Profile(view heightfield.View, bins int) (spectral.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return spectral.RadialProfile(s.field, view, bins)
}

// Export writes one view of the active field as a TIFF.
func (s *Session) Export(w io.Writer, view heightfield.View, opts raster.EncodeOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return raster.Encode(w, s.field, view, opts)
}

// ListRasters lists the TIFF files in dir.
func (s *Session) ListRasters(dir string) ([]string, error) {
	names, err := raster.ListRasters(dir)
	if err != nil {
		logging.Logf("session: %v", err)
		return nil, err
	}
	return names, nil
}

func describe(f *heightfield.Field) string {
	if f.Empty() {
		return "no field"
	}
	m := f.Meta()
	return fmt.Sprintf("%s (%dx%d, %s)", m.Source, f.Width(), f.Height(), m.Units)
}
