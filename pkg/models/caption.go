package models

// Caption is a single timed caption entry as returned to clients.
// Start and End are display formatted (mm:ss or hh:mm:ss).
type Caption struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Text  string `json:"text"`
}

// CaptionTrack is an ordered sequence of captions in playback order
type CaptionTrack struct {
	Language string    `json:"language"`
	Captions []Caption `json:"captions"`
}

// Empty reports whether the track has no captions
func (t *CaptionTrack) Empty() bool {
	return t == nil || len(t.Captions) == 0
}

// CaptionFormat describes one downloadable rendition of a caption track
type CaptionFormat struct {
	Ext  string `json:"ext"`
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// ExtractionResult holds the metadata reported by the video extractor.
// Languages lists the keys of AutomaticCaptions in the order the extractor
// reported them.
type ExtractionResult struct {
	VideoID           string                     `json:"id"`
	Title             string                     `json:"title"`
	WebpageURL        string                     `json:"webpage_url"`
	Extractor         string                     `json:"extractor"`
	AutomaticCaptions map[string][]CaptionFormat `json:"automatic_captions"`
	Languages         []string                   `json:"-"`
}

// HasLanguage reports whether an automatic caption track exists for lang
func (r *ExtractionResult) HasLanguage(lang string) bool {
	if r == nil {
		return false
	}
	_, ok := r.AutomaticCaptions[lang]
	return ok
}

// SubtitleFormatVTT is the only subtitle format the extractor requests
const SubtitleFormatVTT = "vtt"
