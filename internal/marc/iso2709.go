// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package marc

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/pdiddy/marcsplit/pkg/types"
)

// Reader decodes ISO 2709 records from a byte stream.
type Reader struct {
	r     *bufio.Reader
	index int
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next record. A record whose length prefix is readable but
// whose body is malformed is consumed and reported as a *RecordError.
func (d *Reader) Next() (*types.Record, error) {
	if err := d.skipSeparators(); err != nil {
		return nil, err
	}

	head, err := d.r.Peek(5)
	if err != nil {
		return nil, fmt.Errorf("reading record length at record %d: %w", d.index, io.ErrUnexpectedEOF)
	}
	n, ok := digits(head)
	if !ok || n <= leaderLen {
		return nil, fmt.Errorf("invalid record length %q at record %d", head, d.index)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, fmt.Errorf("reading record %d: %w", d.index, err)
	}

	idx := d.index
	d.index++

	rec, err := decodeRecord(buf)
	if err != nil {
		return nil, &RecordError{Index: idx, Leader: string(buf[:leaderLen]), Err: err}
	}
	return rec, nil
}

// skipSeparators discards line breaks some tools insert between records.
func (d *Reader) skipSeparators() error {
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return err
		}
		if b != '\n' && b != '\r' {
			return d.r.UnreadByte()
		}
	}
}

func decodeRecord(buf []byte) (*types.Record, error) {
	if buf[len(buf)-1] != recordTerm {
		return nil, ErrNoTerminator
	}
	base, ok := digits(buf[12:17])
	if !ok || base <= leaderLen || base > len(buf) {
		return nil, fmt.Errorf("%w: %q", ErrBadBaseAddress, buf[12:17])
	}
	if buf[base-1] != fieldTerm {
		return nil, ErrBadDirectory
	}
	dir := buf[leaderLen : base-1]
	if len(dir)%dirEntryLen != 0 {
		return nil, fmt.Errorf("%w: length %d", ErrBadDirectory, len(dir))
	}

	rec := &types.Record{Leader: string(buf[:leaderLen])}
	for off := 0; off < len(dir); off += dirEntryLen {
		entry := dir[off : off+dirEntryLen]
		tag := string(entry[0:3])
		length, ok1 := digits(entry[3:7])
		start, ok2 := digits(entry[7:12])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("%w: entry %q", ErrBadDirectory, entry)
		}
		end := base + start + length
		if end > len(buf)-1 {
			return nil, fmt.Errorf("%w: field %s", ErrFieldBounds, tag)
		}
		data := bytes.TrimSuffix(buf[base+start:end], []byte{fieldTerm})
		rec.Fields = append(rec.Fields, decodeField(tag, data))
	}
	return rec, nil
}

func decodeField(tag string, data []byte) types.Field {
	if isControlTag(tag) || (bytes.IndexByte(data, subfieldDelim) < 0 && !isNumericTag(tag)) {
		return types.NewControlField(tag, string(data))
	}

	f := types.NewDataField(tag)
	if len(data) < 2 {
		return f
	}
	f.Indicators = [2]byte{data[0], data[1]}
	chunks := bytes.Split(data[2:], []byte{subfieldDelim})
	// The first chunk precedes the first delimiter and carries no code.
	for _, chunk := range chunks[1:] {
		if len(chunk) == 0 {
			continue
		}
		f.Subfields = append(f.Subfields, types.Subfield{Code: chunk[0], Value: string(chunk[1:])})
	}
	return f
}

// digits parses an unsigned decimal field of the leader or directory. Signs,
// spaces and other non-digit bytes are rejected.
func digits(b []byte) (int, bool) {
	if len(b) == 0 {
		return 0, false
	}
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

func isNumericTag(tag string) bool {
	for i := 0; i < len(tag); i++ {
		if tag[i] < '0' || tag[i] > '9' {
			return false
		}
	}
	return true
}

// Writer encodes records as ISO 2709.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write encodes rec, recomputing the record length and base address in the
// leader. Nothing is written when the record cannot be encoded.
func (e *Writer) Write(rec *types.Record) error {
	var dir, body bytes.Buffer
	for _, f := range rec.Fields {
		if len(f.Tag) != 3 {
			return fmt.Errorf("%w: %q", ErrInvalidTag, f.Tag)
		}
		start := body.Len()
		encodeField(&body, f)
		length := body.Len() - start
		if length > maxFieldLen {
			return fmt.Errorf("%w: field %s is %d bytes", ErrFieldTooLong, f.Tag, length)
		}
		if start > maxRecLen {
			return fmt.Errorf("%w: field %s starts at %d", ErrRecordTooLong, f.Tag, start)
		}
		fmt.Fprintf(&dir, "%s%04d%05d", f.Tag, length, start)
	}
	dir.WriteByte(fieldTerm)

	base := leaderLen + dir.Len()
	total := base + body.Len() + 1
	if total > maxRecLen {
		return fmt.Errorf("%w: %d", ErrRecordTooLong, total)
	}

	out := make([]byte, 0, total)
	out = append(out, buildLeader(rec.Leader, total, base)...)
	out = append(out, dir.Bytes()...)
	out = append(out, body.Bytes()...)
	out = append(out, recordTerm)
	_, err := e.w.Write(out)
	return err
}

func encodeField(buf *bytes.Buffer, f types.Field) {
	if f.IsControl() {
		buf.WriteString(f.Value)
		buf.WriteByte(fieldTerm)
		return
	}
	for _, ind := range f.Indicators {
		if ind == 0 {
			ind = ' '
		}
		buf.WriteByte(ind)
	}
	for _, sf := range f.Subfields {
		buf.WriteByte(subfieldDelim)
		buf.WriteByte(sf.Code)
		buf.WriteString(sf.Value)
	}
	buf.WriteByte(fieldTerm)
}

// buildLeader pads or truncates leader to 24 bytes and stamps the computed
// lengths and fixed entry map.
func buildLeader(leader string, total, base int) []byte {
	l := []byte(fmt.Sprintf("%-24s", leader))[:leaderLen]
	copy(l[0:5], fmt.Sprintf("%05d", total))
	l[10], l[11] = '2', '2'
	copy(l[12:17], fmt.Sprintf("%05d", base))
	copy(l[20:24], "4500")
	return l
}
