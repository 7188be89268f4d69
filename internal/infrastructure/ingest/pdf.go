package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/askerfotball/club-assistant/internal/core/domain"
)

// loadPDF emits one unit per page so answers can cite the page number.
// Pages that fail text extraction are skipped; scanned pages without a
// text layer simply contribute nothing.
func loadPDF(path string) (*domain.SourceDocument, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var units []domain.SourceUnit
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		raw, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text := normalizeText(raw)
		if text == "" {
			continue
		}
		pageNo := i
		units = append(units, domain.SourceUnit{Text: text, Page: &pageNo})
	}
	if len(units) == 0 {
		return nil, nil
	}
	return &domain.SourceDocument{
		Source: path,
		Title:  stemTitle(path),
		Format: strings.TrimPrefix(filepath.Ext(path), "."),
		Units:  units,
	}, nil
}
