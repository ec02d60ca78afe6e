//go:build cgo

package extract

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractOCR implements OCR via the system Tesseract engine.
type TesseractOCR struct{}

// NewTesseractOCR returns the Tesseract-backed OCR capability.
func NewTesseractOCR() *TesseractOCR {
	return &TesseractOCR{}
}

// Available reports true; the binary was built with CGO and Tesseract.
func (t *TesseractOCR) Available() bool {
	return true
}

// Image transcribes image bytes using Tesseract.
func (t *TesseractOCR) Image(data []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("setting image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("running ocr: %w", err)
	}
	return text, nil
}
