package captions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/therealutkarshpriyadarshi/autocaptions/internal/logging"
	"github.com/therealutkarshpriyadarshi/autocaptions/internal/metrics"
	"github.com/therealutkarshpriyadarshi/autocaptions/internal/tracing"
	"github.com/therealutkarshpriyadarshi/autocaptions/pkg/models"
)

// DefaultLanguage is used when no preferred language is configured
const DefaultLanguage = "en"

// VideoExtractor fetches video metadata and writes the automatic caption
// track into dir as captions.<lang>.vtt.
type VideoExtractor interface {
	Extract(ctx context.Context, videoURL, dir string) (*models.ExtractionResult, error)
}

// Options configures an Extractor
type Options struct {
	WorkDir           string
	PreferredLanguage string
	Logger            *logging.Logger
}

// Extractor produces caption tracks for video URLs
type Extractor struct {
	video             VideoExtractor
	workDir           string
	preferredLanguage string
	logger            *logging.Logger
}

// NewExtractor creates a new caption extractor
func NewExtractor(video VideoExtractor, opts Options) *Extractor {
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	if opts.PreferredLanguage == "" {
		opts.PreferredLanguage = DefaultLanguage
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	return &Extractor{
		video:             video,
		workDir:           opts.WorkDir,
		preferredLanguage: opts.PreferredLanguage,
		logger:            opts.Logger.WithComponent("captions"),
	}
}

// CaptionFilename is the name the extractor gives the track for lang
func CaptionFilename(lang string) string {
	return fmt.Sprintf("captions.%s.%s", lang, models.SubtitleFormatVTT)
}

// SelectLanguage picks preferred when available, otherwise the first
// language the extractor listed. It returns "" when there are none.
func SelectLanguage(info *models.ExtractionResult, preferred string) (string, bool) {
	if info == nil || len(info.AutomaticCaptions) == 0 {
		return "", false
	}
	if info.HasLanguage(preferred) {
		return preferred, true
	}
	for _, lang := range info.Languages {
		if info.HasLanguage(lang) {
			return lang, false
		}
	}
	// Languages was not populated; any key will do.
	for lang := range info.AutomaticCaptions {
		return lang, false
	}
	return "", false
}

// Captions returns the automatic caption track for videoURL. A track with
// no captions means none were available; extractor failures are returned
// as errors wrapping one of the package's error kinds.
func (e *Extractor) Captions(ctx context.Context, videoURL string) (*models.CaptionTrack, error) {
	span, ctx := tracing.StartSpan(ctx, "captions.extract")
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "video.url", videoURL)

	start := time.Now()
	metrics.ExtractionsInProgress.Inc()
	defer metrics.ExtractionsInProgress.Dec()

	track, languages, err := e.captions(ctx, videoURL)
	duration := time.Since(start)

	cues := 0
	language := ""
	if track != nil {
		cues = len(track.Captions)
		language = track.Language
	}

	result := "success"
	switch {
	case err != nil:
		result = ErrorKind(err)
		metrics.RecordError("extractor", result)
		tracing.LogError(span, err)
	case cues == 0:
		result = "empty"
	}
	metrics.RecordExtraction(result, duration.Seconds(), cues)
	tracing.SetTag(span, "captions.language", language)
	tracing.SetTag(span, "captions.cues", cues)

	e.logger.WithVideoURL(videoURL).LogExtraction(language, languages, cues, duration, err)

	return track, err
}

func (e *Extractor) captions(ctx context.Context, videoURL string) (*models.CaptionTrack, []string, error) {
	dir := filepath.Join(e.workDir, "captions-"+uuid.New().String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.WithError(err).Warnf("failed to remove work dir %s", dir)
		}
	}()

	info, err := e.video.Extract(ctx, videoURL, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract %s: %w", videoURL, err)
	}
	if info == nil {
		return nil, nil, fmt.Errorf("%w: extractor returned no info for %s", ErrExtraction, videoURL)
	}

	languages := info.Languages
	e.logger.WithField("languages", languages).Debug("auto subtitles available")

	lang, preferred := SelectLanguage(info, e.preferredLanguage)
	if lang == "" {
		e.logger.Debug("no automatic captions available")
		return &models.CaptionTrack{Captions: []models.Caption{}}, languages, nil
	}
	metrics.RecordLanguageSelection(lang, preferred)

	path := filepath.Join(dir, CaptionFilename(lang))
	fileLogger := e.logger.WithFields(map[string]interface{}{
		"language":  lang,
		"preferred": preferred,
		"path":      path,
	})
	fileLogger.Debug("expected caption file")

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fileLogger.Debug("caption file not found")
			return &models.CaptionTrack{Language: lang, Captions: []models.Caption{}}, languages, nil
		}
		return nil, languages, fmt.Errorf("failed to stat caption file: %w", err)
	}

	cues, err := ReadVTTFile(path)
	if err != nil {
		return nil, languages, err
	}

	return &models.CaptionTrack{Language: lang, Captions: FromCues(cues)}, languages, nil
}

// FromCues converts parsed cues into display captions, keeping their order
// and text.
func FromCues(cues []Cue) []models.Caption {
	out := make([]models.Caption, 0, len(cues))
	for _, cue := range cues {
		out = append(out, models.Caption{
			Start: FormatTimestamp(cue.Start),
			End:   FormatTimestamp(cue.End),
			Text:  cue.Text,
		})
	}
	return out
}
