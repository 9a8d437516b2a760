package sheetio

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/ignite/adreport-ingest/internal/datanorm"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// Delimited reads CSV and TSV exports. With Sniff set, a first line with
// more tabs than commas switches the delimiter to tab.
type Delimited struct {
	Comma byte
	Sniff bool
}

// Read parses the whole file as a single sheet.
func (d Delimited) Read(data []byte) ([]Sheet, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}
	comma := d.Comma
	if comma == 0 {
		comma = ','
	}
	if d.Sniff {
		comma = sniffDelimiter(text, comma)
	}
	rows := ParseDelimited(text, comma)
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	return []Sheet{{Rows: rows}}, nil
}

// decodeText strips byte-order marks and decodes UTF-16 or, when the bytes
// are not valid UTF-8, Windows-1252.
func decodeText(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, utf8BOM):
		data = data[len(utf8BOM):]
	case bytes.HasPrefix(data, utf16LEBOM), bytes.HasPrefix(data, utf16BEBOM):
		out, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(data)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func sniffDelimiter(text string, fallback byte) byte {
	line := text
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		line = text[:i]
	}
	if strings.Count(line, "\t") > strings.Count(line, ",") {
		return '\t'
	}
	return fallback
}

// ParseDelimited splits text into rows of string cells. It handles quoted
// fields, doubled-quote escapes, quoted line breaks and CRLF, LF or CR line
// endings. Rows whose fields are all blank are dropped.
func ParseDelimited(text string, comma byte) [][]datanorm.Cell {
	var (
		rows     [][]datanorm.Cell
		row      []datanorm.Cell
		field    strings.Builder
		inQuotes bool
		quoted   bool // current field opened with a quote
	)

	endField := func() {
		row = append(row, field.String())
		field.Reset()
		quoted = false
	}
	endRow := func() {
		endField()
		if !blankRow(row) {
			rows = append(rows, row)
		}
		row = nil
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inQuotes {
			if c == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					field.WriteByte('"')
					i++
				} else {
					inQuotes = false
				}
			} else {
				field.WriteByte(c)
			}
			continue
		}

		switch c {
		case '"':
			// A quote opens a field only at its start; elsewhere it is literal.
			if field.Len() == 0 && !quoted {
				inQuotes, quoted = true, true
			} else {
				field.WriteByte(c)
			}
		case comma:
			endField()
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			endRow()
		case '\n':
			endRow()
		default:
			field.WriteByte(c)
		}
	}
	if field.Len() > 0 || len(row) > 0 || quoted {
		endRow()
	}
	return rows
}

func blankRow(row []datanorm.Cell) bool {
	for _, c := range row {
		if !datanorm.IsBlank(c) {
			return false
		}
	}
	return true
}
