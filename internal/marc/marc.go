// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package marc reads and writes catalog records in ISO 2709 (binary),
// MARCXML and the mnemonic text form. It is a thin codec around
// types.Record; routing and extraction live elsewhere.
package marc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/marcsplit/pkg/types"
)

const (
	subfieldDelim = 0x1F
	fieldTerm     = 0x1E
	recordTerm    = 0x1D

	leaderLen   = 24
	dirEntryLen = 12
	maxRecLen   = 99999
	maxFieldLen = 9999
)

// Sentinel errors for malformed input and unencodable records.
var (
	ErrUnknownFormat  = errors.New("unknown record format")
	ErrInvalidTag     = errors.New("invalid field tag")
	ErrRecordTooLong  = errors.New("record exceeds 99999 bytes")
	ErrFieldTooLong   = errors.New("field exceeds 9999 bytes")
	ErrBadDirectory   = errors.New("malformed directory")
	ErrBadBaseAddress = errors.New("invalid base address of data")
	ErrFieldBounds    = errors.New("field extends past end of record")
	ErrNoTerminator   = errors.New("missing record terminator")
)

// Source yields records one at a time. Next returns io.EOF at the end of the
// stream and a *RecordError for a malformed record that was skipped; any
// other error means the stream cannot be read further.
type Source interface {
	Next() (*types.Record, error)
}

// RecordError reports a malformed record. The stream remains readable.
type RecordError struct {
	// Index is the zero-based position of the record in the stream.
	Index int

	// Leader is the record leader, as far as it could be read.
	Leader string

	Err error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d (leader %q): %v", e.Index, e.Leader, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// IsRecordError reports whether err is a skippable per-record error.
func IsRecordError(err error) bool {
	var re *RecordError
	return errors.As(err, &re)
}

// isControlTag reports whether tag names a control field: 001-009 plus the
// LDR and FMT pseudo-fields some catalog exports emit.
func isControlTag(tag string) bool {
	if tag == types.TagLeader || tag == types.TagFormat {
		return true
	}
	return len(tag) == 3 && tag[0] == '0' && tag[1] == '0' && tag[2] >= '0' && tag[2] <= '9'
}

// Format identifies an on-disk record encoding.
type Format string

const (
	FormatISO2709 Format = "iso2709"
	FormatXML     Format = "marcxml"
)

// DetectFormat picks the encoding from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mrc", ".marc", ".dat", ".iso":
		return FormatISO2709, nil
	case ".xml":
		return FormatXML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// File is a Source backed by an open file.
type File struct {
	Source
	f *os.File
}

// Close releases the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}

// Open opens a record file for streaming, choosing the decoder by extension.
func Open(path string) (*File, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	var src Source
	switch format {
	case FormatXML:
		src = NewXMLReader(f)
	default:
		src = NewReader(f)
	}
	return &File{Source: src, f: f}, nil
}
