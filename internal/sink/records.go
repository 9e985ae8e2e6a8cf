// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"bufio"
	"fmt"
	"os"

	"github.com/pdiddy/marcsplit/internal/marc"
	"github.com/pdiddy/marcsplit/pkg/types"
)

type recordEncoder interface {
	Write(rec *types.Record) error
}

// RecordFile writes the records of one destination to a file.
type RecordFile struct {
	path string
	f    *os.File
	bw   *bufio.Writer
	enc  recordEncoder
}

// CreateRecordFile truncates or creates path and prepares it for records in
// the given format.
func CreateRecordFile(path string, format types.RecordFormat) (*RecordFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriter(f)

	rf := &RecordFile{path: path, f: f, bw: bw}
	switch format {
	case types.FormatBinary:
		rf.enc = marc.NewWriter(bw)
	case types.FormatText:
		rf.enc = marc.NewTextWriter(bw)
	default:
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return rf, nil
}

// Path returns the file being written.
func (rf *RecordFile) Path() string {
	return rf.path
}

// Write appends rec.
func (rf *RecordFile) Write(rec *types.Record) error {
	return rf.enc.Write(rec)
}

// Close flushes buffered records and closes the file.
func (rf *RecordFile) Close() error {
	flushErr := rf.bw.Flush()
	closeErr := rf.f.Close()
	if flushErr != nil {
		return fmt.Errorf("flushing %s: %w", rf.path, flushErr)
	}
	return closeErr
}
