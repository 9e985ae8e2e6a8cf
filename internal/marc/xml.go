// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package marc

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/marcsplit/pkg/types"
)

// MARCXML element structures.
type xmlRecord struct {
	Leader string     `xml:"leader"`
	Fields []xmlField `xml:",any"`
}

type xmlField struct {
	XMLName   xml.Name
	Tag       string        `xml:"tag,attr"`
	Ind1      string        `xml:"ind1,attr"`
	Ind2      string        `xml:"ind2,attr"`
	Value     string        `xml:",chardata"`
	Subfields []xmlSubfield `xml:"subfield"`
}

type xmlSubfield struct {
	Code  string `xml:"code,attr"`
	Value string `xml:",chardata"`
}

// XMLReader streams records out of a MARCXML document. The enclosing
// collection element, if any, is ignored.
type XMLReader struct {
	dec   *xml.Decoder
	index int
}

// NewXMLReader returns an XMLReader over r.
func NewXMLReader(r io.Reader) *XMLReader {
	return &XMLReader{dec: xml.NewDecoder(r)}
}

// Next returns the next record element. XML syntax errors end the stream;
// a well-formed record with unusable fields is a *RecordError.
func (x *XMLReader) Next() (*types.Record, error) {
	for {
		tok, err := x.dec.Token()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("reading MARCXML at record %d: %w", x.index, err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "record" {
			continue
		}

		var xr xmlRecord
		if err := x.dec.DecodeElement(&xr, &se); err != nil {
			return nil, fmt.Errorf("decoding MARCXML record %d: %w", x.index, err)
		}
		idx := x.index
		x.index++

		rec, err := xr.toRecord()
		if err != nil {
			return nil, &RecordError{Index: idx, Leader: xr.Leader, Err: err}
		}
		return rec, nil
	}
}

func (xr xmlRecord) toRecord() (*types.Record, error) {
	rec := &types.Record{Leader: xr.Leader}
	for _, xf := range xr.Fields {
		local := xf.XMLName.Local
		if local != "controlfield" && local != "datafield" {
			continue
		}
		if len(xf.Tag) != 3 {
			return nil, fmt.Errorf("%w: %q in <%s>", ErrInvalidTag, xf.Tag, local)
		}
		switch local {
		case "controlfield":
			rec.Fields = append(rec.Fields, types.NewControlField(xf.Tag, xf.Value))
		case "datafield":
			f := types.NewDataField(xf.Tag)
			f.Indicators = [2]byte{indicator(xf.Ind1), indicator(xf.Ind2)}
			for _, sf := range xf.Subfields {
				code := strings.TrimSpace(sf.Code)
				if len(code) != 1 {
					continue
				}
				f.Subfields = append(f.Subfields, types.Subfield{Code: code[0], Value: sf.Value})
			}
			rec.Fields = append(rec.Fields, f)
		}
	}
	return rec, nil
}

func indicator(s string) byte {
	if s == "" {
		return ' '
	}
	return s[0]
}
