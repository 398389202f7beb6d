package ocr

import "github.com/dgallion1/hilens/internal/preview"

// DefaultLanguage covers Korean reports with English terms.
const DefaultLanguage = "kor+eng"

// TableMarkdown shapes OCR output into a rough Markdown table. OCR text is
// noisier than extracted text, so fewer lines are required and more rows
// are kept.
func TableMarkdown(text string) string {
	return preview.RoughMarkdown(text, preview.Options{MinLines: 2, MaxRows: 20, MinColumns: 2})
}
