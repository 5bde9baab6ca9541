package raster

import (
	"errors"
	"fmt"
)

// Decode error kinds. A *DecodeError matches its kind with errors.Is.
var (
	ErrOpenFailed              = errors.New("open failed")
	ErrMissingMetadata         = errors.New("missing metadata")
	ErrUnsupportedChannels     = errors.New("unsupported channels")
	ErrUnsupportedSampleFormat = errors.New("unsupported sample format")
	ErrScanlineReadFailed      = errors.New("scanline read failed")
	ErrMalformed               = errors.New("malformed raster")
	ErrUnsupportedLayout       = errors.New("unsupported layout")
)

// ErrDirUnreadable is returned by ListRasters when a directory cannot be read.
var ErrDirUnreadable = errors.New("raster: directory unreadable")

// DecodeError describes why a raster could not be turned into a height field.
// Only the fields relevant to Kind are set.
type DecodeError struct {
	Path string
	Kind error

	Tag          uint16 // ErrMissingMetadata
	Samples      int    // ErrUnsupportedChannels
	Bits, Format int    // ErrUnsupportedSampleFormat
	Row          int    // ErrScanlineReadFailed

	Err error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("raster: %s: %v", e.Path, e.Kind)

	switch e.Kind {
	case ErrMissingMetadata:
		msg += fmt.Sprintf(": tag %s (%d)", tagName(e.Tag), e.Tag)
	case ErrUnsupportedChannels:
		msg += fmt.Sprintf(": %d samples per pixel", e.Samples)
	case ErrUnsupportedSampleFormat:
		msg += fmt.Sprintf(": bits=%d format=%d", e.Bits, e.Format)
	case ErrScanlineReadFailed:
		msg += fmt.Sprintf(": row %d", e.Row)
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is the kind of this error.
func (e *DecodeError) Is(target error) bool { return target == e.Kind }

// Unwrap returns the underlying cause, if any.
func (e *DecodeError) Unwrap() error { return e.Err }

func malformed(path string, format string, args ...any) *DecodeError {
	return &DecodeError{Path: path, Kind: ErrMalformed, Err: fmt.Errorf(format, args...)}
}

func unsupportedLayout(path string, format string, args ...any) *DecodeError {
	return &DecodeError{Path: path, Kind: ErrUnsupportedLayout, Err: fmt.Errorf(format, args...)}
}

func scanlineFailed(path string, row int, err error) *DecodeError {
	return &DecodeError{Path: path, Kind: ErrScanlineReadFailed, Row: row, Err: err}
}
