// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package marc

import (
	"io"

	"github.com/pdiddy/marcsplit/pkg/types"
)

// TextWriter writes records in mnemonic form (.mrk), separated by a blank line.
type TextWriter struct {
	w io.Writer
}

// NewTextWriter returns a TextWriter over w.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

// Write renders rec followed by a blank line.
func (t *TextWriter) Write(rec *types.Record) error {
	_, err := io.WriteString(t.w, rec.String()+"\n\n")
	return err
}
