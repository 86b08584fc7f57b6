package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

type SheetSpec struct {
	Title  string
	Header []string
	Rows   [][]string
}

// NewWorkbook renders one sheet per spec with a bold, filterable header row.
func NewWorkbook(sheets []SheetSpec) (*excelize.File, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook needs at least one sheet")
	}

	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Title); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.Title); err != nil {
			return nil, fmt.Errorf("new sheet: %w", err)
		}

		if err := writeSheet(f, s, bold); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func writeSheet(f *excelize.File, s SheetSpec, headerStyle int) error {
	for col, h := range s.Header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellStr(s.Title, cell, h); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}

	if len(s.Header) > 0 {
		end, _ := excelize.CoordinatesToCellName(len(s.Header), 1)
		_ = f.SetCellStyle(s.Title, "A1", end, headerStyle)
		_ = f.AutoFilter(s.Title, "A1:"+end, nil)
	}

	for r, row := range s.Rows {
		for c, val := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellStr(s.Title, cell, val); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	for c := 1; c <= len(s.Header); c++ {
		width := len(s.Header[c-1])
		for r := 0; r < len(s.Rows) && r < 50; r++ {
			if c-1 < len(s.Rows[r]) && len(s.Rows[r][c-1]) > width {
				width = len(s.Rows[r][c-1])
			}
		}
		w := float64(width) * 0.9
		if w < 12 {
			w = 12
		}
		if w > 40 {
			w = 40
		}
		col, _ := excelize.ColumnNumberToName(c)
		_ = f.SetColWidth(s.Title, col, col, w)
	}
	return nil
}
