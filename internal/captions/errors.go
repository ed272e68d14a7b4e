package captions

import "errors"

// Extraction error kinds. Extractor implementations wrap one of these so
// callers can tell them apart with errors.Is.
var (
	// ErrUnsupportedSource means the extractor does not handle the URL
	ErrUnsupportedSource = errors.New("unsupported video source")
	// ErrUnavailable means the video exists in no accessible form
	ErrUnavailable = errors.New("video unavailable")
	// ErrNetwork means the platform could not be reached
	ErrNetwork = errors.New("network error")
	// ErrExtractorMissing means the extractor binary could not be started
	ErrExtractorMissing = errors.New("extractor not installed")
	// ErrExtraction is any other extractor failure
	ErrExtraction = errors.New("extraction failed")
)

// ErrorKind returns a short label for err, suitable for metrics
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrUnsupportedSource):
		return "unsupported_source"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrExtractorMissing):
		return "extractor_missing"
	case errors.Is(err, ErrInvalidVTT):
		return "invalid_subtitle"
	default:
		return "internal"
	}
}
