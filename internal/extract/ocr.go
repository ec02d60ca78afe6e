package extract

// OCR is the optional image transcription capability. Absence degrades image
// uploads to empty text rather than failing them.
type OCR interface {
	// Image transcribes the image bytes to text.
	Image(data []byte) (string, error)

	// Available reports whether the capability is usable in this build and
	// environment.
	Available() bool
}
