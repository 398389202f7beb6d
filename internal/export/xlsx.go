// Package export writes extracted tables to spreadsheet files.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/hilens/internal/chunkset"
	"github.com/dgallion1/hilens/internal/preview"
	"github.com/xuri/excelize/v2"
)

const (
	indexSheet    = "Tables"
	maxSheetRunes = 31
)

var indexHeaders = []string{"Label", "Title", "Page", "Sheet", "Preview", "BBox"}

// WriteTables writes an XLSX workbook with an index sheet listing every
// table and one sheet per table holding its preview rows. Tables without a
// preview get a sheet with the caption only.
func WriteTables(w io.Writer, cs *chunkset.ChunkSet) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", indexSheet); err != nil {
		return fmt.Errorf("rename index sheet: %w", err)
	}
	for i, h := range indexHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(indexSheet, cell, h)
	}

	used := map[string]bool{strings.ToLower(indexSheet): true}
	for i, r := range cs.Tables {
		name := uniqueSheetName(sheetName(r.Label, i), used)
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(indexSheet, cell, v)
		}
		write(1, r.Label)
		write(2, r.Title)
		write(3, r.Page)
		write(4, name)
		write(5, r.PreviewSource)
		write(6, r.BBox.String())

		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %q: %w", name, err)
		}
		if err := writeTableSheet(f, name, r); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(indexSheet, "A", "A", 10)
	_ = f.SetColWidth(indexSheet, "B", "B", 40)
	_ = f.SetColWidth(indexSheet, "D", "D", 14)
	_ = f.SetColWidth(indexSheet, "F", "F", 36)
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func writeTableSheet(f *excelize.File, sheet string, r chunkset.Region) error {
	caption := r.Caption
	if caption == "" {
		caption = strings.TrimSpace(chunkset.KindTable.Prefix() + " " + r.Label + " " + r.Title)
	}
	if err := f.SetCellValue(sheet, "A1", caption); err != nil {
		return fmt.Errorf("write caption: %w", err)
	}
	for i, cells := range preview.Rows(r.PreviewMD) {
		for j, v := range cells {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+3)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	return nil
}

// sheetName builds a valid sheet name from a label. Excel forbids
// : \ / ? * [ ] and names longer than 31 characters.
func sheetName(label string, i int) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]'`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(label))
	if clean == "" {
		clean = fmt.Sprintf("%d", i+1)
	}
	return truncateRunes(chunkset.KindTable.Prefix()+" "+clean, maxSheetRunes)
}

func uniqueSheetName(name string, used map[string]bool) string {
	out := name
	for n := 2; used[strings.ToLower(out)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		out = truncateRunes(name, maxSheetRunes-len(suffix)) + suffix
	}
	used[strings.ToLower(out)] = true
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
