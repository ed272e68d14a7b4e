// Package ytdlp runs yt-dlp to fetch automatic captions for a video.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/therealutkarshpriyadarshi/autocaptions/internal/captions"
	"github.com/therealutkarshpriyadarshi/autocaptions/internal/config"
	"github.com/therealutkarshpriyadarshi/autocaptions/internal/tracing"
	"github.com/therealutkarshpriyadarshi/autocaptions/pkg/models"
)

// OutputTemplate is the yt-dlp output template used inside the work dir.
// yt-dlp names the subtitle file captions.<lang>.vtt.
const OutputTemplate = "captions.%(ext)s"

const infoFilename = "info.json"

// Client wraps the yt-dlp binary
type Client struct {
	path              string
	preferredLanguage string
	extraArgs         []string
}

// New creates a new yt-dlp client
func New(cfg config.ExtractorConfig) *Client {
	path := cfg.YtDlpPath
	if path == "" {
		path = "yt-dlp"
	}
	lang := cfg.PreferredLanguage
	if lang == "" {
		lang = captions.DefaultLanguage
	}
	return &Client{
		path:              path,
		preferredLanguage: lang,
		extraArgs:         cfg.ExtraArgs,
	}
}

// Extract fetches the video info and writes the automatic caption track
// into dir. The preferred language is requested; when the video has no
// track for it, the first listed language is fetched from the saved info
// instead.
func (c *Client) Extract(ctx context.Context, videoURL, dir string) (*models.ExtractionResult, error) {
	span, ctx := tracing.StartSpan(ctx, "ytdlp.extract")
	defer tracing.FinishSpan(span)

	stdout, err := c.run(ctx, c.extractArgs(videoURL, dir))
	if err != nil {
		tracing.LogError(span, err)
		return nil, err
	}

	info, err := DecodeInfo(stdout)
	if err != nil {
		tracing.LogError(span, err)
		return nil, err
	}

	lang, preferred := captions.SelectLanguage(info, c.preferredLanguage)
	if lang == "" || preferred {
		return info, nil
	}

	infoPath := filepath.Join(dir, infoFilename)
	if err := os.WriteFile(infoPath, stdout, 0o644); err != nil {
		return nil, fmt.Errorf("failed to save video info: %w", err)
	}
	if _, err := c.run(ctx, c.fallbackArgs(infoPath, lang, dir)); err != nil {
		tracing.LogError(span, err)
		return nil, err
	}

	return info, nil
}

func (c *Client) baseArgs(lang, dir string) []string {
	args := []string{
		"--skip-download",
		"--write-auto-subs",
		"--sub-format", models.SubtitleFormatVTT,
		"--sub-langs", lang,
		"--no-playlist",
		"--no-progress",
		"--no-warnings",
		"-o", filepath.Join(dir, OutputTemplate),
	}
	return append(args, c.extraArgs...)
}

func (c *Client) extractArgs(videoURL, dir string) []string {
	args := c.baseArgs(c.preferredLanguage, dir)
	args = append(args, "--no-simulate", "--dump-single-json", "--", videoURL)
	return args
}

func (c *Client) fallbackArgs(infoPath, lang, dir string) []string {
	args := c.baseArgs(lang, dir)
	args = append(args, "--load-info-json", infoPath)
	return args
}

func (c *Client) run(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("yt-dlp interrupted: %w", ctxErr)
		}
		return nil, classifyError(err, stderr.String())
	}

	return stdout.Bytes(), nil
}

// DecodeInfo decodes a yt-dlp info document, keeping the order of the
// automatic caption languages.
func DecodeInfo(data []byte) (*models.ExtractionResult, error) {
	var info models.ExtractionResult
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: failed to parse yt-dlp output: %v", captions.ErrExtraction, err)
	}

	var raw struct {
		AutomaticCaptions json.RawMessage `json:"automatic_captions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse yt-dlp output: %v", captions.ErrExtraction, err)
	}

	langs, err := objectKeys(raw.AutomaticCaptions)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse automatic captions: %v", captions.ErrExtraction, err)
	}
	info.Languages = langs

	return &info, nil
}

// objectKeys lists the keys of a JSON object in document order
func objectKeys(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, nil
}

var (
	unsupportedMarkers = []string{
		"unsupported url",
		"is not a valid url",
		"no suitable extractor",
	}
	unavailableMarkers = []string{
		"video unavailable",
		"private video",
		"has been removed",
		"this video is not available",
		"members-only",
		"sign in to confirm your age",
		"http error 404",
		"http error 410",
		"premieres in",
	}
	networkMarkers = []string{
		"unable to download",
		"http error",
		"timed out",
		"connection refused",
		"connection reset",
		"name resolution",
		"getaddrinfo",
		"network is unreachable",
		"urlopen error",
		"ssl:",
	}
)

// classifyError maps a failed yt-dlp run onto the caption error kinds
func classifyError(err error, stderr string) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %v", captions.ErrExtractorMissing, err)
	}

	msg := lastErrorLine(stderr)
	lower := strings.ToLower(stderr)

	kind := captions.ErrExtraction
	switch {
	case containsAny(lower, unsupportedMarkers):
		kind = captions.ErrUnsupportedSource
	case containsAny(lower, unavailableMarkers):
		kind = captions.ErrUnavailable
	case containsAny(lower, networkMarkers):
		kind = captions.ErrNetwork
	}

	if msg == "" {
		return fmt.Errorf("yt-dlp: %w: %v", kind, err)
	}
	return fmt.Errorf("yt-dlp: %w: %s", kind, msg)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// lastErrorLine returns the last "ERROR:" line of stderr, or its last
// non-empty line
func lastErrorLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
	}
	if len(lines) > 0 {
		return strings.TrimSpace(lines[len(lines)-1])
	}
	return ""
}
