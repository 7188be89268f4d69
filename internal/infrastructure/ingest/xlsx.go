package ingest

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/askerfotball/club-assistant/internal/core/domain"
)

// loadXLSX flattens each sheet into one unit, one text line per row
// with cells joined by " | ". Spreadsheets carry things like price
// tables and fixture lists, where row context matters more than layout.
func loadXLSX(path string) (*domain.SourceDocument, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	var units []domain.SourceUnit
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sheet, err)
		}
		lines := make([]string, 0, len(rows)+1)
		lines = append(lines, sheet)
		for _, row := range rows {
			cells := make([]string, 0, len(row))
			for _, cell := range row {
				if cell = strings.TrimSpace(cell); cell != "" {
					cells = append(cells, cell)
				}
			}
			if len(cells) > 0 {
				lines = append(lines, strings.Join(cells, " | "))
			}
		}
		if len(lines) > 1 {
			units = append(units, domain.SourceUnit{Text: strings.Join(lines, "\n")})
		}
	}
	if len(units) == 0 {
		return nil, nil
	}
	return &domain.SourceDocument{
		Source: path,
		Title:  stemTitle(path),
		Format: "xlsx",
		Units:  units,
	}, nil
}
