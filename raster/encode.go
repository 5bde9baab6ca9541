package raster

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/cwbudde/algo-surface/heightfield"
)

// ErrEmptyField is returned by Encode for a nil or empty field.
var ErrEmptyField = errors.New("raster: empty field")

// Format selects the sample encoding written by Encode.
type Format int

const (
	// Float32 writes IEEE float samples as-is.
	Float32 Format = iota
	// Uint16 quantizes [-1, 1] onto 0..65535.
	Uint16
	// Uint8 quantizes [-1, 1] onto 0..255.
	Uint8
)

func (f Format) String() string {
	switch f {
	case Float32:
		return "float32"
	case Uint16:
		return "uint16"
	case Uint8:
		return "uint8"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// EncodeOptions controls Encode.
type EncodeOptions struct {
	Format  Format
	Deflate bool
}

// Encode writes one view of f as a single-strip little-endian TIFF that
// Decode reads back. Integer formats clamp values to [-1, 1] first.
func Encode(w io.Writer, f *heightfield.Field, view heightfield.View, opts EncodeOptions) error {
	if f.Empty() {
		return ErrEmptyField
	}

	var (
		bits   int
		format int
		put    func(dst []byte, v float64)
	)
	switch opts.Format {
	case Float32:
		bits, format = 32, SampleFormatFloat
		put = func(dst []byte, v float64) {
			binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(v)))
		}
	case Uint16:
		bits, format = 16, SampleFormatUint
		put = func(dst []byte, v float64) {
			binary.LittleEndian.PutUint16(dst, uint16(quantize(v, 65535)))
		}
	case Uint8:
		bits, format = 8, SampleFormatUint
		put = func(dst []byte, v float64) {
			dst[0] = uint8(quantize(v, 255))
		}
	default:
		return fmt.Errorf("raster: unknown format %v", opts.Format)
	}

	size := bits / 8
	payload := make([]byte, f.Len()*size)
	f.Each(view, func(i int, v float64) {
		put(payload[i*size:], v)
	})

	compression := uint32(compressionNone)
	if opts.Deflate {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			return fmt.Errorf("raster: deflate: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("raster: deflate: %w", err)
		}
		payload = buf.Bytes()
		compression = compressionDeflate
	}

	entries := []ifdEntry{
		{tagImageWidth, typeLong, []uint32{uint32(f.Width())}},
		{tagImageLength, typeLong, []uint32{uint32(f.Height())}},
		{tagBitsPerSample, typeShort, []uint32{uint32(bits)}},
		{tagCompression, typeShort, []uint32{compression}},
		{tagPhotometric, typeShort, []uint32{photometricBlackIsZero}},
		{tagSamplesPerPixel, typeShort, []uint32{1}},
		{tagRowsPerStrip, typeLong, []uint32{uint32(f.Height())}},
		{tagStripByteCounts, typeLong, []uint32{uint32(len(payload))}},
		{tagPlanarConfig, typeShort, []uint32{1}},
		{tagSampleFormat, typeShort, []uint32{uint32(format)}},
	}
	return writeTIFF(w, binary.LittleEndian, [][]byte{payload}, entries)
}

// quantize maps v in [-1, 1] onto 0..levels, the inverse of the decode
// mapping v/levels*2 - 1.
func quantize(v, levels float64) float64 {
	if math.IsNaN(v) {
		v = 0
	}
	v = math.Max(-1, math.Min(1, v))
	return math.Round((v + 1) / 2 * levels)
}

// ifdEntry is one directory entry to be written.
type ifdEntry struct {
	tag    uint16
	typ    uint16
	values []uint32
}

// writeTIFF writes a classic TIFF with the given strips placed right after
// the header, followed by one IFD. StripOffsets is derived from the strip
// layout and must not appear in entries.
func writeTIFF(w io.Writer, order binary.ByteOrder, strips [][]byte, entries []ifdEntry) error {
	offset := uint32(headerSize)
	offsets := make([]uint32, len(strips))
	for i, s := range strips {
		offsets[i] = offset
		offset += uint32(len(s))
	}
	if offset%2 == 1 {
		offset++
	}

	entries = append(append([]ifdEntry(nil), entries...), ifdEntry{tagStripOffsets, typeLong, offsets})
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	ifdOffset := offset
	extraOffset := ifdOffset + 2 + uint32(len(entries))*entrySize + 4

	var ifd, extra bytes.Buffer
	put16 := func(b *bytes.Buffer, v uint16) {
		var tmp [2]byte
		order.PutUint16(tmp[:], v)
		b.Write(tmp[:])
	}
	put32 := func(b *bytes.Buffer, v uint32) {
		var tmp [4]byte
		order.PutUint32(tmp[:], v)
		b.Write(tmp[:])
	}

	put16(&ifd, uint16(len(entries)))
	for _, e := range entries {
		put16(&ifd, e.tag)
		put16(&ifd, e.typ)
		put32(&ifd, uint32(len(e.values)))

		var data bytes.Buffer
		for _, v := range e.values {
			switch e.typ {
			case typeByte:
				data.WriteByte(byte(v))
			case typeShort:
				put16(&data, uint16(v))
			default:
				put32(&data, v)
			}
		}
		if data.Len() <= 4 {
			var inline [4]byte
			copy(inline[:], data.Bytes())
			ifd.Write(inline[:])
			continue
		}
		put32(&ifd, extraOffset+uint32(extra.Len()))
		extra.Write(data.Bytes())
	}
	put32(&ifd, 0)

	var hdr bytes.Buffer
	if order == binary.BigEndian {
		hdr.WriteString("MM")
	} else {
		hdr.WriteString("II")
	}
	put16(&hdr, classicTIFF)
	put32(&hdr, ifdOffset)

	out := hdr.Bytes()
	for _, s := range strips {
		out = append(out, s...)
	}
	for uint32(len(out)) < ifdOffset {
		out = append(out, 0)
	}
	out = append(out, ifd.Bytes()...)
	out = append(out, extra.Bytes()...)

	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("raster: write: %w", err)
	}
	return nil
}
