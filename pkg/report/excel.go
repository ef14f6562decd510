package report

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"
	"github.com/xuri/excelize/v2"

	"github.com/pippi2802/hlem-framework/pkg/hlem"
)

// WriteWorkbook writes the full result set as an XLSX workbook with one
// sheet per analysis: all retained paths, the significant outcome rows, and
// the significant throughput rows (when a throughput partition is given).
func WriteWorkbook(path string, table hlem.Table, successful, unsuccessful *roaring.Bitmap, throughput *[3]*roaring.Bitmap) error {
	wb := excelize.NewFile()
	defer wb.Close()

	const pathsSheet = "Paths"
	wb.SetSheetName("Sheet1", pathsSheet)
	writeRow(wb, pathsSheet, 1, "Length", "Frequency", "Path")
	for i, r := range table.Rows {
		writeRow(wb, pathsSheet, i+2, r.Path.Len(), r.Frequency, string(r.Path.Key()))
	}

	const outcomeSheet = "Outcome"
	if _, err := wb.NewSheet(outcomeSheet); err != nil {
		return fmt.Errorf("report: new sheet: %w", err)
	}
	writeRow(wb, outcomeSheet, 1, "Length", "Frequency", "Path",
		"Part&Success", "Part&Unsuccess", "NonPart&Success", "NonPart&Unsuccess", "p_value")
	for i, r := range OutcomeRows(table, successful, unsuccessful) {
		writeRow(wb, outcomeSheet, i+2, r.Length, r.Frequency, r.Path,
			r.PartSuccess, r.PartUnsuccess, r.NonPartSuccess, r.NonPartUnsuccess, r.PValue)
	}

	if throughput != nil {
		const tpSheet = "Throughput"
		if _, err := wb.NewSheet(tpSheet); err != nil {
			return fmt.Errorf("report: new sheet: %w", err)
		}
		writeRow(wb, tpSheet, 1, "Length", "Frequency", "Path",
			"Part&Class1", "Part&Class2", "Part&Class3",
			"NonPart&Class1", "NonPart&Class2", "NonPart&Class3", "p")
		for i, r := range ThroughputRows(table, *throughput) {
			writeRow(wb, tpSheet, i+2, r.Length, r.Frequency, r.Path,
				r.Part[0], r.Part[1], r.Part[2],
				r.NonPart[0], r.NonPart[1], r.NonPart[2], r.PValue)
		}
	}

	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("report: save %q: %w", path, err)
	}
	return nil
}

// writeRow fills one sheet row from column A.
func writeRow(wb *excelize.File, sheet string, row int, values ...interface{}) {
	for col, v := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		wb.SetCellValue(sheet, cell, v)
	}
}
