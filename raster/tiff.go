package raster

import (
	"encoding/binary"
	"fmt"
	"io"
)

// TIFF tags read or written by this package.
const (
	tagImageWidth      uint16 = 256
	tagImageLength     uint16 = 257
	tagBitsPerSample   uint16 = 258
	tagCompression     uint16 = 259
	tagPhotometric     uint16 = 262
	tagStripOffsets    uint16 = 273
	tagSamplesPerPixel uint16 = 277
	tagRowsPerStrip    uint16 = 278
	tagStripByteCounts uint16 = 279
	tagPlanarConfig    uint16 = 284
	tagPredictor       uint16 = 317
	tagTileWidth       uint16 = 322
	tagSampleFormat    uint16 = 339
)

// Field types.
const (
	typeByte  uint16 = 1
	typeASCII uint16 = 2
	typeShort uint16 = 3
	typeLong  uint16 = 4
)

// Compression schemes.
const (
	compressionNone        = 1
	compressionLZW         = 5
	compressionDeflate     = 8
	compressionDeflateOld  = 32946
	compressionPackBits    = 32773
	predictorNone          = 1
	predictorHorizontal    = 2
	photometricBlackIsZero = 1
)

// Sample formats.
const (
	SampleFormatUint  = 1
	SampleFormatInt   = 2
	SampleFormatFloat = 3
)

const (
	headerSize  = 8
	entrySize   = 12
	classicTIFF = 42
	bigTIFF     = 43

	// maxEntries bounds the IFD entry count read from untrusted headers.
	maxEntries = 4096
)

func tagName(tag uint16) string {
	switch tag {
	case tagImageWidth:
		return "ImageWidth"
	case tagImageLength:
		return "ImageLength"
	case tagBitsPerSample:
		return "BitsPerSample"
	case tagCompression:
		return "Compression"
	case tagStripOffsets:
		return "StripOffsets"
	case tagSamplesPerPixel:
		return "SamplesPerPixel"
	case tagRowsPerStrip:
		return "RowsPerStrip"
	case tagStripByteCounts:
		return "StripByteCounts"
	case tagSampleFormat:
		return "SampleFormat"
	default:
		return "Unknown"
	}
}

func typeSize(typ uint16) int {
	switch typ {
	case typeByte, typeASCII, 6, 7:
		return 1
	case typeShort, 8:
		return 2
	case typeLong, 9, 11:
		return 4
	case 5, 10, 12:
		return 8
	default:
		return 0
	}
}

// ifdField is one parsed directory entry.
type ifdField struct {
	typ   uint16
	count uint32
	data  []byte
}

// directory is the first image file directory of a TIFF stream.
type directory struct {
	order  binary.ByteOrder
	fields map[uint16]ifdField
}

// readDirectory parses the header and first IFD.
func readDirectory(r io.ReaderAt, path string) (*directory, error) {
	var hdr [headerSize]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return nil, malformed(path, "reading header: %w", err)
	}

	var order binary.ByteOrder
	switch string(hdr[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, malformed(path, "bad byte order mark %q", hdr[:2])
	}

	switch magic := order.Uint16(hdr[2:4]); magic {
	case classicTIFF:
	case bigTIFF:
		return nil, unsupportedLayout(path, "BigTIFF is not supported")
	default:
		return nil, malformed(path, "bad magic %d", magic)
	}

	offset := int64(order.Uint32(hdr[4:8]))
	var cnt [2]byte
	if _, err := r.ReadAt(cnt[:], offset); err != nil {
		return nil, malformed(path, "reading IFD at %d: %w", offset, err)
	}
	n := int(order.Uint16(cnt[:]))
	if n == 0 || n > maxEntries {
		return nil, malformed(path, "IFD entry count %d", n)
	}

	entries := make([]byte, n*entrySize)
	if _, err := r.ReadAt(entries, offset+2); err != nil {
		return nil, malformed(path, "reading %d IFD entries: %w", n, err)
	}

	d := &directory{order: order, fields: make(map[uint16]ifdField, n)}
	for i := 0; i < n; i++ {
		e := entries[i*entrySize : (i+1)*entrySize]
		tag := order.Uint16(e[0:2])
		typ := order.Uint16(e[2:4])
		count := order.Uint32(e[4:8])

		size := typeSize(typ)
		if size == 0 {
			// Unknown types are skipped, as TIFF readers must.
			continue
		}
		total := int64(size) * int64(count)
		if total > 1<<30 {
			return nil, malformed(path, "tag %d claims %d bytes", tag, total)
		}

		data := make([]byte, total)
		if total <= 4 {
			copy(data, e[8:8+total])
		} else if _, err := r.ReadAt(data, int64(order.Uint32(e[8:12]))); err != nil {
			return nil, malformed(path, "reading tag %d values: %w", tag, err)
		}
		d.fields[tag] = ifdField{typ: typ, count: count, data: data}
	}
	return d, nil
}

// has reports whether a tag is present.
func (d *directory) has(tag uint16) bool {
	_, ok := d.fields[tag]
	return ok
}

// uints returns the integer values of a tag. ok is false if the tag is absent.
func (d *directory) uints(tag uint16) (vals []uint64, ok bool, err error) {
	f, ok := d.fields[tag]
	if !ok {
		return nil, false, nil
	}

	vals = make([]uint64, f.count)
	for i := range vals {
		switch f.typ {
		case typeByte:
			vals[i] = uint64(f.data[i])
		case typeShort:
			vals[i] = uint64(d.order.Uint16(f.data[2*i:]))
		case typeLong:
			vals[i] = uint64(d.order.Uint32(f.data[4*i:]))
		default:
			return nil, true, fmt.Errorf("tag %d has non-integer type %d", tag, f.typ)
		}
	}
	return vals, true, nil
}

// first returns the first integer value of a tag.
func (d *directory) first(tag uint16) (v uint64, ok bool, err error) {
	vals, ok, err := d.uints(tag)
	if err != nil || !ok {
		return 0, ok, err
	}
	if len(vals) == 0 {
		return 0, true, fmt.Errorf("tag %d has no values", tag)
	}
	return vals[0], true, nil
}
