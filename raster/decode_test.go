package raster

import (
	"bytes"
	"compress/lzw"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-surface/heightfield"
	"github.com/cwbudde/algo-surface/internal/testutil"
)

// stripEntries returns the directory entries for a single-channel strip
// image, leaving StripOffsets to writeTIFF.
func stripEntries(w, h, bits, format, rowsPerStrip int, counts []uint32) []ifdEntry {
	return []ifdEntry{
		{tagImageWidth, typeLong, []uint32{uint32(w)}},
		{tagImageLength, typeShort, []uint32{uint32(h)}},
		{tagBitsPerSample, typeShort, []uint32{uint32(bits)}},
		{tagSamplesPerPixel, typeShort, []uint32{1}},
		{tagRowsPerStrip, typeShort, []uint32{uint32(rowsPerStrip)}},
		{tagStripByteCounts, typeLong, counts},
		{tagSampleFormat, typeShort, []uint32{uint32(format)}},
	}
}

func withEntry(entries []ifdEntry, e ifdEntry) []ifdEntry {
	out := make([]ifdEntry, 0, len(entries)+1)
	for _, old := range entries {
		if old.tag != e.tag {
			out = append(out, old)
		}
	}
	return append(out, e)
}

func withoutTag(entries []ifdEntry, tag uint16) []ifdEntry {
	out := make([]ifdEntry, 0, len(entries))
	for _, e := range entries {
		if e.tag != tag {
			out = append(out, e)
		}
	}
	return out
}

func buildTIFF(t *testing.T, order binary.ByteOrder, strips [][]byte, entries []ifdEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := writeTIFF(&buf, order, strips, entries); err != nil {
		t.Fatalf("writeTIFF: %v", err)
	}
	return buf.Bytes()
}

func decodeBytes(data []byte, opts ...Option) (*heightfield.Field, error) {
	return Decode(bytes.NewReader(data), "test.tif", opts...)
}

func mustDecode(t *testing.T, data []byte, opts ...Option) *heightfield.Field {
	t.Helper()
	f, err := decodeBytes(data, opts...)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return f
}

func requireKind(t *testing.T, err error, kind error) *DecodeError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("error %v is not %v", err, kind)
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("error %T is not a *DecodeError", err)
	}
	return de
}

func uint8Samples(w, h int) []byte {
	out := make([]byte, w*h)
	for i := range out {
		out[i] = byte(i * 17)
	}
	return out
}

func TestDecode_Uint8Mapping(t *testing.T) {
	payload := []byte{0, 255, 51, 204}
	data := buildTIFF(t, binary.LittleEndian, [][]byte{payload},
		stripEntries(2, 2, 8, SampleFormatUint, 2, []uint32{4}))

	f := mustDecode(t, data)
	want := []float64{-1, 1, 51.0/255*2 - 1, 204.0/255*2 - 1}
	testutil.RequireSliceNearlyEqual(t, f.Raw(), want, 1e-12)

	meta := f.Meta()
	if meta.Units != heightfield.UnitsNormalized || meta.BitsPerSample != 8 || meta.SampleFormat != SampleFormatUint {
		t.Fatalf("meta = %+v", meta)
	}
	if meta.Source != "test.tif" {
		t.Fatalf("source = %q, want test.tif", meta.Source)
	}
	lo, hi := f.RawRange()
	if lo != -1 || hi != 1 {
		t.Fatalf("RawRange = (%v, %v), want (-1, 1)", lo, hi)
	}
	testutil.RequireSliceNearlyEqual(t, f.Filtered(), f.Raw(), 0)
}

func TestDecode_BigEndianUint16(t *testing.T) {
	samples := []uint16{0, 65535, 32768, 1000, 20000, 40000}
	payload := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.BigEndian.PutUint16(payload[2*i:], s)
	}
	data := buildTIFF(t, binary.BigEndian, [][]byte{payload},
		stripEntries(3, 2, 16, SampleFormatUint, 2, []uint32{uint32(len(payload))}))

	f := mustDecode(t, data)
	if f.Width() != 3 || f.Height() != 2 {
		t.Fatalf("size = %dx%d, want 3x2", f.Width(), f.Height())
	}
	for i, s := range samples {
		want := float64(s)/65535*2 - 1
		if got := f.Raw()[i]; math.Abs(got-want) > 1e-12 {
			t.Fatalf("raw[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestDecode_Float32AsIs(t *testing.T) {
	values := []float32{-1.5, 0, 2.25, 8, -3.125, 100}
	payload := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(payload[4*i:], math.Float32bits(v))
	}
	data := buildTIFF(t, binary.LittleEndian, [][]byte{payload},
		stripEntries(3, 2, 32, SampleFormatFloat, 2, []uint32{uint32(len(payload))}))

	f := mustDecode(t, data)
	for i, v := range values {
		if got := f.Raw()[i]; got != float64(v) {
			t.Fatalf("raw[%d] = %v, want %v", i, got, v)
		}
	}
	if f.Meta().Units != heightfield.UnitsMicrometers {
		t.Fatalf("units = %v, want micrometers", f.Meta().Units)
	}
	lo, hi := f.RawRange()
	if lo != -3.125 || hi != 100 {
		t.Fatalf("RawRange = (%v, %v), want (-3.125, 100)", lo, hi)
	}
}

func TestDecode_MultipleStrips(t *testing.T) {
	const w, h = 4, 5
	payload := uint8Samples(w, h)
	strips := [][]byte{payload[0:8], payload[8:16], payload[16:20]}
	data := buildTIFF(t, binary.LittleEndian, strips,
		stripEntries(w, h, 8, SampleFormatUint, 2, []uint32{8, 8, 4}))

	f := mustDecode(t, data)
	for i, b := range payload {
		want := float64(b)/255*2 - 1
		if got := f.Raw()[i]; math.Abs(got-want) > 1e-12 {
			t.Fatalf("raw[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestDecode_Compression(t *testing.T) {
	const w, h = 4, 4
	payload := []byte{
		7, 7, 7, 7,
		1, 2, 3, 4,
		9, 9, 0, 0,
		200, 100, 100, 100,
	}

	var lzwBuf bytes.Buffer
	lw := lzw.NewWriter(&lzwBuf, lzw.MSB, 8)
	if _, err := lw.Write(payload); err != nil {
		t.Fatalf("lzw write: %v", err)
	}
	if err := lw.Close(); err != nil {
		t.Fatalf("lzw close: %v", err)
	}

	var deflated bytes.Buffer
	if err := Encode(&deflated, fieldFromBytes(t, w, h, payload), heightfield.ViewRaw,
		EncodeOptions{Format: Uint8, Deflate: true}); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	tests := []struct {
		name        string
		compression uint32
		strip       []byte
	}{
		{"none", compressionNone, payload},
		{"lzw", compressionLZW, lzwBuf.Bytes()},
		{"packbits", compressionPackBits, packBits(payload)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := withEntry(stripEntries(w, h, 8, SampleFormatUint, h, []uint32{uint32(len(tt.strip))}),
				ifdEntry{tagCompression, typeShort, []uint32{tt.compression}})
			f := mustDecode(t, buildTIFF(t, binary.LittleEndian, [][]byte{tt.strip}, entries))
			assertSamples(t, f, payload)
		})
	}

	t.Run("deflate", func(t *testing.T) {
		hdr, err := ReadHeader(bytes.NewReader(deflated.Bytes()), "deflate.tif")
		if err != nil {
			t.Fatalf("ReadHeader: %v", err)
		}
		if hdr.Compression != compressionDeflate {
			t.Fatalf("compression = %d, want %d", hdr.Compression, compressionDeflate)
		}
		assertSamples(t, mustDecode(t, deflated.Bytes()), payload)
	})
}

func TestDecode_HorizontalPredictor(t *testing.T) {
	t.Run("8-bit", func(t *testing.T) {
		const w, h = 5, 3
		payload := uint8Samples(w, h)
		coded := append([]byte(nil), payload...)
		for y := 0; y < h; y++ {
			applyHorizontal(coded[y*w:(y+1)*w], 1, binary.LittleEndian)
		}
		entries := withEntry(stripEntries(w, h, 8, SampleFormatUint, h, []uint32{uint32(len(coded))}),
			ifdEntry{tagPredictor, typeShort, []uint32{predictorHorizontal}})
		assertSamples(t, mustDecode(t, buildTIFF(t, binary.LittleEndian, [][]byte{coded}, entries)), payload)
	})

	t.Run("16-bit big endian", func(t *testing.T) {
		const w, h = 3, 2
		samples := []uint16{100, 50, 65000, 0, 1, 2}
		coded := make([]byte, 2*len(samples))
		for i, s := range samples {
			binary.BigEndian.PutUint16(coded[2*i:], s)
		}
		for y := 0; y < h; y++ {
			applyHorizontal(coded[y*w*2:(y+1)*w*2], 2, binary.BigEndian)
		}
		entries := withEntry(stripEntries(w, h, 16, SampleFormatUint, h, []uint32{uint32(len(coded))}),
			ifdEntry{tagPredictor, typeShort, []uint32{predictorHorizontal}})
		f := mustDecode(t, buildTIFF(t, binary.BigEndian, [][]byte{coded}, entries))
		for i, s := range samples {
			want := float64(s)/65535*2 - 1
			if got := f.Raw()[i]; math.Abs(got-want) > 1e-12 {
				t.Fatalf("raw[%d] = %v, want %v", i, got, want)
			}
		}
	})
}

func TestDecode_UnsupportedChannels(t *testing.T) {
	entries := withEntry(stripEntries(2, 2, 8, SampleFormatUint, 2, []uint32{12}),
		ifdEntry{tagSamplesPerPixel, typeShort, []uint32{3}})
	f, err := decodeBytes(buildTIFF(t, binary.LittleEndian, [][]byte{make([]byte, 12)}, entries))

	de := requireKind(t, err, ErrUnsupportedChannels)
	if de.Samples != 3 {
		t.Fatalf("Samples = %d, want 3", de.Samples)
	}
	if f != nil {
		t.Fatal("expected no field on failure")
	}
}

func TestDecode_ChannelsCheckedBeforeFormat(t *testing.T) {
	entries := withEntry(stripEntries(2, 2, 12, SampleFormatUint, 2, []uint32{6}),
		ifdEntry{tagSamplesPerPixel, typeShort, []uint32{3}})
	_, err := decodeBytes(buildTIFF(t, binary.LittleEndian, [][]byte{make([]byte, 6)}, entries))
	requireKind(t, err, ErrUnsupportedChannels)
}

func TestDecode_UnsupportedSampleFormat(t *testing.T) {
	tests := []struct {
		name         string
		bits, format int
	}{
		{"12-bit uint", 12, SampleFormatUint},
		{"16-bit int", 16, SampleFormatInt},
		{"64-bit float", 64, SampleFormatFloat},
		{"8-bit float", 8, SampleFormatFloat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := stripEntries(2, 2, tt.bits, tt.format, 2, []uint32{32})
			_, err := decodeBytes(buildTIFF(t, binary.LittleEndian, [][]byte{make([]byte, 32)}, entries))
			de := requireKind(t, err, ErrUnsupportedSampleFormat)
			if de.Bits != tt.bits || de.Format != tt.format {
				t.Fatalf("got bits=%d format=%d, want %d/%d", de.Bits, de.Format, tt.bits, tt.format)
			}
		})
	}
}

func TestDecode_MissingMetadata(t *testing.T) {
	for _, tag := range []uint16{tagImageWidth, tagImageLength, tagBitsPerSample, tagSampleFormat, tagSamplesPerPixel} {
		t.Run(tagName(tag), func(t *testing.T) {
			entries := withoutTag(stripEntries(2, 2, 8, SampleFormatUint, 2, []uint32{4}), tag)
			_, err := decodeBytes(buildTIFF(t, binary.LittleEndian, [][]byte{make([]byte, 4)}, entries))
			de := requireKind(t, err, ErrMissingMetadata)
			if de.Tag != tag {
				t.Fatalf("Tag = %d, want %d", de.Tag, tag)
			}
		})
	}
}

func TestDecode_WithTIFFDefaults(t *testing.T) {
	payload := []byte{0, 85, 170, 255}
	entries := withoutTag(withoutTag(stripEntries(2, 2, 8, SampleFormatUint, 2, []uint32{4}),
		tagSampleFormat), tagSamplesPerPixel)
	data := buildTIFF(t, binary.LittleEndian, [][]byte{payload}, entries)

	if _, err := decodeBytes(data); !errors.Is(err, ErrMissingMetadata) {
		t.Fatalf("without defaults: err = %v, want ErrMissingMetadata", err)
	}
	assertSamples(t, mustDecode(t, data, WithTIFFDefaults()), payload)

	// Defaults never cover the geometry tags.
	noWidth := buildTIFF(t, binary.LittleEndian, [][]byte{payload}, withoutTag(entries, tagImageWidth))
	if _, err := decodeBytes(noWidth, WithTIFFDefaults()); !errors.Is(err, ErrMissingMetadata) {
		t.Fatalf("missing width: err = %v, want ErrMissingMetadata", err)
	}
}

func TestDecode_ScanlineReadFailed(t *testing.T) {
	t.Run("truncated strip", func(t *testing.T) {
		// 4x4 uint8 needs 16 bytes; only 9 are declared, so rows 0 and 1
		// are complete and row 2 fails.
		entries := stripEntries(4, 4, 8, SampleFormatUint, 4, []uint32{9})
		f, err := decodeBytes(buildTIFF(t, binary.LittleEndian, [][]byte{make([]byte, 9)}, entries))
		de := requireKind(t, err, ErrScanlineReadFailed)
		if de.Row != 2 {
			t.Fatalf("Row = %d, want 2", de.Row)
		}
		if f != nil {
			t.Fatal("expected no partial field")
		}
	})

	t.Run("missing strip", func(t *testing.T) {
		entries := stripEntries(4, 4, 8, SampleFormatUint, 2, []uint32{8})
		_, err := decodeBytes(buildTIFF(t, binary.LittleEndian, [][]byte{make([]byte, 8)}, entries))
		de := requireKind(t, err, ErrScanlineReadFailed)
		if de.Row != 2 {
			t.Fatalf("Row = %d, want 2", de.Row)
		}
	})

	t.Run("corrupt deflate", func(t *testing.T) {
		entries := withEntry(stripEntries(2, 2, 8, SampleFormatUint, 2, []uint32{4}),
			ifdEntry{tagCompression, typeShort, []uint32{compressionDeflate}})
		_, err := decodeBytes(buildTIFF(t, binary.LittleEndian, [][]byte{{1, 2, 3, 4}}, entries))
		de := requireKind(t, err, ErrScanlineReadFailed)
		if de.Row != 0 {
			t.Fatalf("Row = %d, want 0", de.Row)
		}
	})
}

func TestDecode_UnsupportedLayout(t *testing.T) {
	base := stripEntries(2, 2, 8, SampleFormatUint, 2, []uint32{4})
	tests := []struct {
		name  string
		entry ifdEntry
	}{
		{"tiled", ifdEntry{tagTileWidth, typeShort, []uint32{16}}},
		{"jpeg compression", ifdEntry{tagCompression, typeShort, []uint32{7}}},
		{"float predictor", ifdEntry{tagPredictor, typeShort, []uint32{3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildTIFF(t, binary.LittleEndian, [][]byte{make([]byte, 4)}, withEntry(base, tt.entry))
			_, err := decodeBytes(data)
			requireKind(t, err, ErrUnsupportedLayout)
		})
	}

	t.Run("bigtiff", func(t *testing.T) {
		_, err := decodeBytes([]byte{'I', 'I', 43, 0, 8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0})
		requireKind(t, err, ErrUnsupportedLayout)
	})
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", []byte{'I', 'I', 42}},
		{"bad byte order", []byte{'X', 'X', 42, 0, 8, 0, 0, 0}},
		{"bad magic", []byte{'I', 'I', 7, 0, 8, 0, 0, 0}},
		{"ifd out of range", []byte{'I', 'I', 42, 0, 0xff, 0, 0, 0}},
		{"zero entries", []byte{'I', 'I', 42, 0, 8, 0, 0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeBytes(tt.data)
			requireKind(t, err, ErrMalformed)
		})
	}

	t.Run("strip count mismatch", func(t *testing.T) {
		entries := stripEntries(2, 2, 8, SampleFormatUint, 1, []uint32{2, 2, 2})
		_, err := decodeBytes(buildTIFF(t, binary.LittleEndian, [][]byte{make([]byte, 2), make([]byte, 2)}, entries))
		requireKind(t, err, ErrMalformed)
	})
}

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("open failed", func(t *testing.T) {
		path := filepath.Join(dir, "missing.tif")
		_, err := DecodeFile(path)
		de := requireKind(t, err, ErrOpenFailed)
		if de.Path != path {
			t.Fatalf("Path = %q, want %q", de.Path, path)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected wrapped os.ErrNotExist, got %v", err)
		}
	})

	t.Run("success", func(t *testing.T) {
		path := filepath.Join(dir, "ramp.tif")
		payload := uint8Samples(3, 3)
		data := buildTIFF(t, binary.LittleEndian, [][]byte{payload},
			stripEntries(3, 3, 8, SampleFormatUint, 3, []uint32{9}))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		f, err := DecodeFile(path)
		if err != nil {
			t.Fatalf("DecodeFile: %v", err)
		}
		if f.Meta().Source != path {
			t.Fatalf("source = %q, want %q", f.Meta().Source, path)
		}
		assertSamples(t, f, payload)
	})
}

func TestDecodeError_Message(t *testing.T) {
	err := &DecodeError{Path: "a.tif", Kind: ErrUnsupportedSampleFormat, Bits: 12, Format: 1}
	if got, want := err.Error(), "raster: a.tif: unsupported sample format: bits=12 format=1"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}

	err = &DecodeError{Path: "b.tif", Kind: ErrMissingMetadata, Tag: tagSampleFormat}
	if got, want := err.Error(), "raster: b.tif: missing metadata: tag SampleFormat (339)"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestPackBits(t *testing.T) {
	tests := [][]byte{
		{},
		{1},
		{5, 5, 5, 5, 5},
		{1, 2, 3, 4, 5},
		{1, 1, 2, 3, 3, 3, 4},
		bytes.Repeat([]byte{9}, 300),
		uint8Samples(20, 10),
	}
	for i, src := range tests {
		dst := make([]byte, len(src))
		n, err := unpackBits(dst, packBits(src))
		if err != nil {
			t.Fatalf("case %d: unpack: %v", i, err)
		}
		if n != len(src) || !bytes.Equal(dst, src) {
			t.Fatalf("case %d: got %v (n=%d), want %v", i, dst[:n], n, src)
		}
	}

	// Literal header claiming more bytes than present.
	if _, err := unpackBits(make([]byte, 4), []byte{3, 1}); err == nil {
		t.Fatal("expected error for truncated literal run")
	}
}

func TestHorizontalPredictorInverse(t *testing.T) {
	for _, size := range []int{1, 2, 4} {
		line := make([]byte, size*6)
		for i := range line {
			line[i] = byte(i*37 + 11)
		}
		orig := append([]byte(nil), line...)
		applyHorizontal(line, size, binary.LittleEndian)
		undoHorizontal(line, size, binary.LittleEndian)
		if !bytes.Equal(line, orig) {
			t.Fatalf("size %d: got %v, want %v", size, line, orig)
		}
	}
}

func fieldFromBytes(t *testing.T, w, h int, payload []byte) *heightfield.Field {
	t.Helper()
	raw := make([]float64, len(payload))
	for i, b := range payload {
		raw[i] = float64(b)/255*2 - 1
	}
	f, err := heightfield.New(w, h, raw, heightfield.Meta{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func assertSamples(t *testing.T, f *heightfield.Field, payload []byte) {
	t.Helper()
	raw := f.Raw()
	if len(raw) != len(payload) {
		t.Fatalf("len = %d, want %d", len(raw), len(payload))
	}
	for i, b := range payload {
		want := float64(b)/255*2 - 1
		if math.Abs(raw[i]-want) > 1e-12 {
			t.Fatalf("raw[%d] = %v, want %v", i, raw[i], want)
		}
	}
}
