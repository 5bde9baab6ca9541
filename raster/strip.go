package raster

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/image/tiff/lzw"
)

var errPackBitsOverrun = errors.New("packbits run overruns strip")

// shortRead reports that only n bytes of a strip could be produced.
type shortRead struct {
	n   int
	err error
}

func (e *shortRead) Error() string {
	return fmt.Sprintf("strip ended after %d bytes: %v", e.n, e.err)
}

func (e *shortRead) Unwrap() error { return e.err }

// readStrip fills dst with the decompressed samples of strip s.
func readStrip(r io.ReaderAt, hdr *Header, s int, dst []byte) error {
	if s >= len(hdr.stripOffsets) {
		return &shortRead{n: 0, err: fmt.Errorf("strip %d not declared (%d strips)", s, len(hdr.stripOffsets))}
	}

	offset := int64(hdr.stripOffsets[s])
	count := int64(hdr.stripCounts[s])
	section := io.NewSectionReader(r, offset, count)

	var src io.Reader
	switch hdr.Compression {
	case compressionNone:
		src = section
	case compressionLZW:
		lr := lzw.NewReader(section, lzw.MSB, 8)
		defer lr.Close()
		src = lr
	case compressionDeflate, compressionDeflateOld:
		zr, err := zlib.NewReader(section)
		if err != nil {
			return fmt.Errorf("deflate strip %d: %w", s, err)
		}
		defer zr.Close()
		src = zr
	case compressionPackBits:
		raw, err := io.ReadAll(section)
		if err != nil {
			return &shortRead{n: 0, err: err}
		}
		n, err := unpackBits(dst, raw)
		if err != nil || n < len(dst) {
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			return &shortRead{n: n, err: err}
		}
		return nil
	default:
		return fmt.Errorf("compression %d", hdr.Compression)
	}

	// Trailing bytes past the expected strip size, or a missing end-of-data
	// code after a complete strip, are tolerated.
	if n, err := io.ReadFull(src, dst); err != nil {
		return &shortRead{n: n, err: err}
	}
	return nil
}

// unpackBits decodes a PackBits stream into dst and returns the number of
// bytes written.
func unpackBits(dst, src []byte) (int, error) {
	n := 0
	for i := 0; i < len(src) && n < len(dst); {
		hdr := int8(src[i])
		i++
		switch {
		case hdr >= 0:
			run := int(hdr) + 1
			if i+run > len(src) {
				return n, io.ErrUnexpectedEOF
			}
			if n+run > len(dst) {
				return n, errPackBitsOverrun
			}
			copy(dst[n:], src[i:i+run])
			i += run
			n += run
		case hdr != -128:
			run := 1 - int(hdr)
			if i >= len(src) {
				return n, io.ErrUnexpectedEOF
			}
			if n+run > len(dst) {
				return n, errPackBitsOverrun
			}
			b := src[i]
			i++
			for k := 0; k < run; k++ {
				dst[n+k] = b
			}
			n += run
		}
	}
	return n, nil
}

// packBits encodes src with literal runs and byte repeats.
func packBits(src []byte) []byte {
	var out bytes.Buffer
	for i := 0; i < len(src); {
		run := 1
		for i+run < len(src) && run < 128 && src[i+run] == src[i] {
			run++
		}
		if run > 1 {
			out.WriteByte(byte(int8(1 - run)))
			out.WriteByte(src[i])
			i += run
			continue
		}

		start := i
		for i < len(src) && i-start < 128 && (i+1 >= len(src) || src[i+1] != src[i]) {
			i++
		}
		if i == start {
			i++
		}
		out.WriteByte(byte(i - start - 1))
		out.Write(src[start:i])
	}
	return out.Bytes()
}

// undoHorizontal reverses TIFF predictor 2 on one scanline of samples that
// are size bytes wide.
func undoHorizontal(line []byte, size int, order binary.ByteOrder) {
	switch size {
	case 1:
		for i := 1; i < len(line); i++ {
			line[i] += line[i-1]
		}
	case 2:
		for i := 2; i+2 <= len(line); i += 2 {
			order.PutUint16(line[i:], order.Uint16(line[i:])+order.Uint16(line[i-2:]))
		}
	case 4:
		for i := 4; i+4 <= len(line); i += 4 {
			order.PutUint32(line[i:], order.Uint32(line[i:])+order.Uint32(line[i-4:]))
		}
	}
}

// applyHorizontal applies TIFF predictor 2 to one scanline in place.
func applyHorizontal(line []byte, size int, order binary.ByteOrder) {
	switch size {
	case 1:
		for i := len(line) - 1; i >= 1; i-- {
			line[i] -= line[i-1]
		}
	case 2:
		for i := len(line) - 2; i >= 2; i -= 2 {
			order.PutUint16(line[i:], order.Uint16(line[i:])-order.Uint16(line[i-2:]))
		}
	case 4:
		for i := len(line) - 4; i >= 4; i -= 4 {
			order.PutUint32(line[i:], order.Uint32(line[i:])-order.Uint32(line[i-4:]))
		}
	}
}
