package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeOCR is a configurable OCR capability for tests.
type fakeOCR struct {
	text      string
	err       error
	available bool
	calls     int
}

func (f *fakeOCR) Image(data []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

func (f *fakeOCR) Available() bool {
	return f.available
}

func TestText_UnsupportedExtension(t *testing.T) {
	e := New(nil, nil)

	for _, ext := range []string{"docx", ".docx", "exe", "csv", ""} {
		assert.Equal(t, "", e.Text([]byte("irrelevant"), ext), "ext %q", ext)
	}
}

func TestText_PlainText(t *testing.T) {
	e := New(nil, nil)

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"valid utf8", []byte("witness saw the theft"), "witness saw the theft"},
		// A run of adjacent invalid bytes collapses to one replacement rune.
		{"invalid run replaced", []byte("caf\xff\xfe statement"), "caf� statement"},
		{"separated invalid bytes replaced", []byte("a\xffb\xfec"), "a�b�c"},
		{"empty file", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Text(tt.data, "txt"))
		})
	}
}

func TestText_ExtensionNormalization(t *testing.T) {
	e := New(nil, nil)
	assert.Equal(t, "hello", e.Text([]byte("hello"), ".TXT"))
	assert.Equal(t, "hello", e.Text([]byte("hello"), "Txt"))
}

func TestText_ImageWithoutOCR(t *testing.T) {
	// nil OCR and unavailable OCR both degrade to empty text.
	assert.Equal(t, "", New(nil, nil).Text([]byte{0x89, 0x50}, "png"))

	ocr := &fakeOCR{available: false}
	assert.Equal(t, "", New(ocr, nil).Text([]byte{0x89, 0x50}, "png"))
	assert.Zero(t, ocr.calls)
}

func TestText_ImageWithOCR(t *testing.T) {
	ocr := &fakeOCR{available: true, text: "  handwritten note  "}
	e := New(ocr, nil)

	for _, ext := range []string{"png", "jpg", "jpeg"} {
		assert.Equal(t, "handwritten note", e.Text([]byte{0xff, 0xd8}, ext))
	}
	assert.Equal(t, 3, ocr.calls)
}

func TestText_OCRFailureDegrades(t *testing.T) {
	ocr := &fakeOCR{available: true, err: errors.New("engine crashed")}
	assert.Equal(t, "", New(ocr, nil).Text([]byte{0xff, 0xd8}, "jpg"))
}

func TestText_MalformedPDF(t *testing.T) {
	e := New(nil, nil)

	// Garbage bytes and truncated headers must degrade to empty text, never
	// panic or error.
	assert.Equal(t, "", e.Text([]byte("not a pdf"), "pdf"))
	assert.Equal(t, "", e.Text([]byte("%PDF-1.7 truncated"), "pdf"))
	assert.Equal(t, "", e.Text(nil, "pdf"))
}
