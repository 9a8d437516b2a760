package sheetio

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Workbook reads .xlsx files. Every sheet is returned in workbook order.
type Workbook struct{}

func (Workbook) Read(data []byte) ([]Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		// Raw values keep dates as serial numbers and percents as fractions.
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", name, err)
		}
		sheets = append(sheets, Sheet{Name: name, Rows: coerceRows(rows)})
	}
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	return sheets, nil
}

// LegacyWorkbook reads BIFF .xls files. Charset names the code page of
// string cells; empty means utf-8.
type LegacyWorkbook struct {
	Charset string
}

func (w LegacyWorkbook) Read(data []byte) ([]Sheet, error) {
	charset := w.Charset
	if charset == "" {
		charset = "utf-8"
	}
	wb, err := xls.OpenReader(bytes.NewReader(data), charset)
	if err != nil {
		return nil, fmt.Errorf("opening xls workbook: %w", err)
	}

	var sheets []Sheet
	for i := 0; i < wb.NumSheets(); i++ {
		ws := wb.GetSheet(i)
		if ws == nil {
			continue
		}
		rows := make([][]string, 0, int(ws.MaxRow)+1)
		for r := 0; r <= int(ws.MaxRow); r++ {
			row := ws.Row(r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			cells := make([]string, 0, row.LastCol())
			for c := 0; c < row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			rows = append(rows, cells)
		}
		sheets = append(sheets, Sheet{Name: ws.Name, Rows: coerceRows(rows)})
	}
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	return sheets, nil
}
