// Package extract converts uploaded file bytes into plain text.
//
// Extraction is failure-safe by contract: Text always returns a string
// (possibly empty), never an error and never a panic. The ingestion pipeline
// persists the evidence row unconditionally with whatever this returns, so an
// unsupported format or an internal extraction failure is a valid terminal
// outcome, not an error.
package extract

import (
	"strings"

	"go.uber.org/zap"
)

// Extractor dispatches extraction by declared file extension.
type Extractor struct {
	ocr    OCR
	logger *zap.Logger
}

// New creates an extractor. ocr may be nil when no OCR capability is
// configured; image uploads then extract to empty text.
func New(ocr OCR, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{ocr: ocr, logger: logger}
}

// Text extracts plain text from data according to the declared extension
// (with or without leading dot, any case). Unsupported extensions yield "".
func (e *Extractor) Text(data []byte, ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))

	switch ext {
	case "pdf":
		text, err := pdfText(data)
		if err != nil {
			e.logger.Warn("pdf extraction failed", zap.Error(err))
			return ""
		}
		return strings.TrimSpace(text)

	case "png", "jpg", "jpeg":
		if e.ocr == nil || !e.ocr.Available() {
			return ""
		}
		text, err := e.ocr.Image(data)
		if err != nil {
			e.logger.Warn("ocr extraction failed", zap.Error(err))
			return ""
		}
		return strings.TrimSpace(text)

	case "txt":
		// UTF-8 with invalid-byte tolerance: replace, never raise.
		return strings.ToValidUTF8(string(data), "�")
	}

	return ""
}
