// Package sheetio decodes uploaded report files into raw sheets. Headers
// are left unresolved; the header-row locator runs later.
package sheetio

import (
	"errors"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/ignite/adreport-ingest/internal/datanorm"
)

var (
	ErrUnsupportedFormat  = errors.New("unsupported file format")
	ErrEmptyFile          = errors.New("file contains no rows")
	ErrArchiveUnavailable = errors.New("archive reading is not enabled")
)

// Supported extensions.
const (
	ExtCSV  = ".csv"
	ExtTSV  = ".tsv"
	ExtXLSX = ".xlsx"
	ExtXLS  = ".xls"
	ExtZIP  = ".zip"
)

// Sheet is one rectangular-ish table of raw cells.
type Sheet struct {
	Name string
	Rows [][]datanorm.Cell
}

// Reader decodes one file's bytes into sheets.
type Reader interface {
	Read(data []byte) ([]Sheet, error)
}

// Formats maps extensions to readers. Archives are handled by the caller
// because each entry goes back through the same table.
type Formats struct {
	readers  map[string]Reader
	archives bool
}

// FormatOption tweaks DefaultFormats.
type FormatOption func(*Formats)

// WithXLSCharset sets the code page used for legacy .xls string cells.
func WithXLSCharset(charset string) FormatOption {
	return func(f *Formats) {
		if charset != "" {
			f.readers[ExtXLS] = LegacyWorkbook{Charset: charset}
		}
	}
}

// WithDisabled removes extensions from the table.
func WithDisabled(exts ...string) FormatOption {
	return func(f *Formats) {
		for _, e := range exts {
			e = normalizeExt(e)
			if e == ExtZIP {
				f.archives = false
				continue
			}
			delete(f.readers, e)
		}
	}
}

// WithReader registers or replaces the reader for an extension.
func WithReader(ext string, r Reader) FormatOption {
	return func(f *Formats) { f.readers[normalizeExt(ext)] = r }
}

// DefaultFormats enables csv, tsv, xlsx, xls and zip.
func DefaultFormats(opts ...FormatOption) *Formats {
	f := &Formats{
		readers: map[string]Reader{
			ExtCSV:  Delimited{Comma: ',', Sniff: true},
			ExtTSV:  Delimited{Comma: '\t'},
			ExtXLSX: Workbook{},
			ExtXLS:  LegacyWorkbook{},
		},
		archives: true,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// ReaderFor returns the reader for an extension.
func (f *Formats) ReaderFor(ext string) (Reader, bool) {
	r, ok := f.readers[normalizeExt(ext)]
	return r, ok
}

// ArchivesEnabled reports whether .zip uploads can be opened.
func (f *Formats) ArchivesEnabled() bool { return f.archives }

// Known reports whether an extension is one of the supported types,
// enabled or not.
func Known(ext string) bool {
	switch normalizeExt(ext) {
	case ExtCSV, ExtTSV, ExtXLSX, ExtXLS, ExtZIP:
		return true
	}
	return false
}

// Ext returns the lowercased extension of a file name.
func Ext(name string) string {
	return strings.ToLower(path.Ext(name))
}

func normalizeExt(e string) string {
	e = strings.ToLower(strings.TrimSpace(e))
	if e != "" && !strings.HasPrefix(e, ".") {
		e = "." + e
	}
	return e
}

// Plain decimal numbers without leading zeros. Anything else (IDs with
// leading zeros, SKUs) stays text.
var plainNumber = regexp.MustCompile(`^-?(0|[1-9]\d*)(\.\d+)?([eE][-+]?\d+)?$`)

// maxExactDigits is the most digits a float64 holds without rounding.
const maxExactDigits = 15

// coerceRows turns plain numeric strings into float64 so spreadsheet
// serial dates and amounts stay numeric, as they are in the workbook.
func coerceRows(rows [][]string) [][]datanorm.Cell {
	out := make([][]datanorm.Cell, len(rows))
	for i, r := range rows {
		cells := make([]datanorm.Cell, len(r))
		for j, s := range r {
			cells[j] = coerceCell(s)
		}
		out[i] = cells
	}
	return out
}

func coerceCell(s string) datanorm.Cell {
	if s == "" || !plainNumber.MatchString(s) {
		return s
	}
	digits := 0
	for _, c := range s {
		if c >= '0' && c <= '9' {
			digits++
		}
	}
	if digits > maxExactDigits {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return f
}
