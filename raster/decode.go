package raster

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/cwbudde/algo-surface/heightfield"
)

// maxSamples bounds width*height read from untrusted headers.
const maxSamples = 1 << 28

// Option configures decoding.
type Option func(*decodeConfig)

type decodeConfig struct {
	tiffDefaults bool
}

// WithTIFFDefaults substitutes the TIFF baseline defaults for absent
// SampleFormat (unsigned int) and SamplesPerPixel (1) tags instead of
// failing with ErrMissingMetadata.
func WithTIFFDefaults() Option {
	return func(c *decodeConfig) {
		c.tiffDefaults = true
	}
}

// Header is the sample geometry reported by a raster file.
type Header struct {
	Width, Height   int
	BitsPerSample   int
	SampleFormat    int
	SamplesPerPixel int
	Compression     int
	Predictor       int
	RowsPerStrip    int

	stripOffsets []uint64
	stripCounts  []uint64
	order        binary.ByteOrder
}

// DecodeFile opens path and decodes it into a height field.
func DecodeFile(path string, opts ...Option) (*heightfield.Field, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Kind: ErrOpenFailed, Err: err}
	}
	defer file.Close()

	return Decode(file, path, opts...)
}

// Decode reads a single-channel raster from r. name is used as the field
// source and in error messages.
//
// Samples are converted per (BitsPerSample, SampleFormat):
//
//	32-bit float  -> value as-is (micrometers)
//	16-bit uint   -> v/65535*2 - 1
//	8-bit uint    -> v/255*2 - 1
//
// Any failure returns a *DecodeError and no field.
func Decode(r io.ReaderAt, name string, opts ...Option) (*heightfield.Field, error) {
	hdr, err := ReadHeader(r, name, opts...)
	if err != nil {
		return nil, err
	}

	convert, units, err := sampleConverter(hdr)
	if err != nil {
		return nil, &DecodeError{Path: name, Kind: ErrUnsupportedSampleFormat, Bits: hdr.BitsPerSample, Format: hdr.SampleFormat}
	}

	meta := heightfield.Meta{
		Source:        name,
		Units:         units,
		BitsPerSample: hdr.BitsPerSample,
		SampleFormat:  hdr.SampleFormat,
	}

	rowBytes := hdr.Width * hdr.BitsPerSample / 8
	return heightfield.Build(hdr.Width, hdr.Height, meta, func(set func(x, y int, v float64)) error {
		buf := make([]byte, rowBytes*hdr.RowsPerStrip)
		for s := 0; s*hdr.RowsPerStrip < hdr.Height; s++ {
			first := s * hdr.RowsPerStrip
			rows := min(hdr.RowsPerStrip, hdr.Height-first)
			strip := buf[:rows*rowBytes]

			if err := readStrip(r, hdr, s, strip); err != nil {
				var short *shortRead
				if errors.As(err, &short) {
					return scanlineFailed(name, first+short.n/rowBytes, err)
				}
				return scanlineFailed(name, first, err)
			}

			for row := 0; row < rows; row++ {
				line := strip[row*rowBytes : (row+1)*rowBytes]
				if hdr.Predictor == predictorHorizontal {
					undoHorizontal(line, hdr.BitsPerSample/8, hdr.order)
				}
				for x := 0; x < hdr.Width; x++ {
					set(x, first+row, convert(line, x))
				}
			}
		}
		return nil
	})
}

// ReadHeader parses and validates the raster header without reading samples.
func ReadHeader(r io.ReaderAt, name string, opts ...Option) (*Header, error) {
	cfg := decodeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	dir, err := readDirectory(r, name)
	if err != nil {
		return nil, err
	}

	hdr := &Header{order: dir.order}
	required := []struct {
		tag   uint16
		dst   *int
		deflt int
	}{
		{tagImageWidth, &hdr.Width, -1},
		{tagImageLength, &hdr.Height, -1},
		{tagBitsPerSample, &hdr.BitsPerSample, -1},
		{tagSampleFormat, &hdr.SampleFormat, SampleFormatUint},
		{tagSamplesPerPixel, &hdr.SamplesPerPixel, 1},
	}
	for _, req := range required {
		v, ok, err := dir.first(req.tag)
		if err != nil {
			return nil, malformed(name, "%w", err)
		}
		if !ok {
			if !cfg.tiffDefaults || req.deflt < 0 {
				return nil, &DecodeError{Path: name, Kind: ErrMissingMetadata, Tag: req.tag}
			}
			v = uint64(req.deflt)
		}
		if v > math.MaxInt32 {
			return nil, malformed(name, "tag %d value %d out of range", req.tag, v)
		}
		*req.dst = int(v)
	}

	if hdr.SamplesPerPixel != 1 {
		return nil, &DecodeError{Path: name, Kind: ErrUnsupportedChannels, Samples: hdr.SamplesPerPixel}
	}
	if _, _, err := sampleConverter(hdr); err != nil {
		return nil, &DecodeError{Path: name, Kind: ErrUnsupportedSampleFormat, Bits: hdr.BitsPerSample, Format: hdr.SampleFormat}
	}
	if hdr.Width <= 0 || hdr.Height <= 0 || int64(hdr.Width)*int64(hdr.Height) > maxSamples {
		return nil, malformed(name, "image size %dx%d", hdr.Width, hdr.Height)
	}

	if dir.has(tagTileWidth) {
		return nil, unsupportedLayout(name, "tiled rasters are not scanline-readable")
	}

	optional := []struct {
		tag   uint16
		dst   *int
		deflt int
	}{
		{tagCompression, &hdr.Compression, compressionNone},
		{tagPredictor, &hdr.Predictor, predictorNone},
		{tagRowsPerStrip, &hdr.RowsPerStrip, hdr.Height},
	}
	for _, opt := range optional {
		v, ok, err := dir.first(opt.tag)
		if err != nil {
			return nil, malformed(name, "%w", err)
		}
		if !ok || v > math.MaxInt32 {
			v = uint64(opt.deflt)
		}
		*opt.dst = int(v)
	}
	if hdr.RowsPerStrip <= 0 || hdr.RowsPerStrip > hdr.Height {
		hdr.RowsPerStrip = hdr.Height
	}

	switch hdr.Compression {
	case compressionNone, compressionLZW, compressionDeflate, compressionDeflateOld, compressionPackBits:
	default:
		return nil, unsupportedLayout(name, "compression %d", hdr.Compression)
	}
	switch hdr.Predictor {
	case predictorNone, predictorHorizontal:
	default:
		return nil, unsupportedLayout(name, "predictor %d", hdr.Predictor)
	}

	offsets, ok, err := dir.uints(tagStripOffsets)
	if err != nil {
		return nil, malformed(name, "%w", err)
	}
	if !ok {
		return nil, &DecodeError{Path: name, Kind: ErrMissingMetadata, Tag: tagStripOffsets}
	}
	counts, ok, err := dir.uints(tagStripByteCounts)
	if err != nil {
		return nil, malformed(name, "%w", err)
	}
	rowBytes := hdr.Width * hdr.BitsPerSample / 8
	if !ok {
		if hdr.Compression != compressionNone {
			return nil, &DecodeError{Path: name, Kind: ErrMissingMetadata, Tag: tagStripByteCounts}
		}
		counts = make([]uint64, len(offsets))
		for i := range counts {
			counts[i] = uint64(rowBytes * hdr.RowsPerStrip)
		}
	}
	if len(counts) != len(offsets) {
		return nil, malformed(name, "%d strip offsets but %d byte counts", len(offsets), len(counts))
	}
	hdr.stripOffsets = offsets
	hdr.stripCounts = counts

	return hdr, nil
}

// Strips returns the number of strips the header declares.
func (h *Header) Strips() int { return len(h.stripOffsets) }

type sampleFunc func(line []byte, x int) float64

// sampleConverter returns the per-sample decoder for the header encoding.
func sampleConverter(hdr *Header) (sampleFunc, heightfield.Units, error) {
	order := hdr.order
	switch {
	case hdr.BitsPerSample == 32 && hdr.SampleFormat == SampleFormatFloat:
		return func(line []byte, x int) float64 {
			return float64(math.Float32frombits(order.Uint32(line[4*x:])))
		}, heightfield.UnitsMicrometers, nil
	case hdr.BitsPerSample == 16 && hdr.SampleFormat == SampleFormatUint:
		return func(line []byte, x int) float64 {
			return float64(order.Uint16(line[2*x:]))/65535*2 - 1
		}, heightfield.UnitsNormalized, nil
	case hdr.BitsPerSample == 8 && hdr.SampleFormat == SampleFormatUint:
		return func(line []byte, x int) float64 {
			return float64(line[x])/255*2 - 1
		}, heightfield.UnitsNormalized, nil
	}
	return nil, 0, fmt.Errorf("bits=%d format=%d", hdr.BitsPerSample, hdr.SampleFormat)
}
