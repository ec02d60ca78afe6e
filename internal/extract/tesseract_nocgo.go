//go:build !cgo

package extract

import "errors"

// ErrOCRNotAvailable is returned when OCR is requested from a binary built
// without CGO support.
var ErrOCRNotAvailable = errors.New("ocr: not available (binary built without CGO support)")

// TesseractOCR is a stub in non-CGO builds. Image uploads degrade to empty
// extracted text.
type TesseractOCR struct{}

// NewTesseractOCR returns the stub OCR capability.
func NewTesseractOCR() *TesseractOCR {
	return &TesseractOCR{}
}

// Available reports false in non-CGO builds.
func (t *TesseractOCR) Available() bool {
	return false
}

// Image always fails in non-CGO builds.
func (t *TesseractOCR) Image(data []byte) (string, error) {
	return "", ErrOCRNotAvailable
}
