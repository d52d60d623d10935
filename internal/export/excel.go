// internal/export/excel.go
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/pagehound/pagehound/pkg/types"
)

// excelMaxCellLength is the hard Excel limit on characters per cell.
const excelMaxCellLength = 32767

// renderXLSX writes one worksheet per populated type with a bold header row.
func renderXLSX(scraped *types.ScrapedStore) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	secs := sections(scraped)
	if len(secs) == 0 {
		// An empty workbook still needs one sheet.
		f.SetSheetName("Sheet1", "Data")
	}
	for i, sec := range secs {
		sheet := sec.Label
		if i == 0 {
			f.SetSheetName("Sheet1", sheet)
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("failed to create sheet %q: %w", sheet, err)
		}

		rowNum := 1
		if len(sec.Columns) > 0 {
			for j, col := range sec.Columns {
				cellRef, _ := excelize.CoordinatesToCellName(j+1, rowNum)
				f.SetCellValue(sheet, cellRef, col.Label)
			}
			last, _ := excelize.CoordinatesToCellName(len(sec.Columns), rowNum)
			first, _ := excelize.CoordinatesToCellName(1, rowNum)
			f.SetCellStyle(sheet, first, last, headerStyle)
			rowNum++
		}

		for _, rec := range sec.Records {
			for j, value := range row(sec, rec) {
				if len(value) > excelMaxCellLength {
					value = value[:excelMaxCellLength]
				}
				cellRef, _ := excelize.CoordinatesToCellName(j+1, rowNum)
				f.SetCellValue(sheet, cellRef, value)
			}
			rowNum++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}
