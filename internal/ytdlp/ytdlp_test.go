package ytdlp

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/autocaptions/internal/captions"
	"github.com/therealutkarshpriyadarshi/autocaptions/internal/config"
)

// fakeYtDlp mimics the parts of yt-dlp the client relies on. The scenario
// is picked from the URL.
const fakeYtDlp = `#!/bin/sh
out=""; lang=""; load=""; url=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift 2 ;;
    --sub-langs) lang="$2"; shift 2 ;;
    --sub-format) shift 2 ;;
    --load-info-json) load="$2"; shift 2 ;;
    --) url="$2"; shift 2 ;;
    *) shift ;;
  esac
done
dir=$(dirname "$out")
echo "$lang" >> "$dir/requested.log"

write_track() {
  printf 'WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nhello %s\n' "$1" > "$dir/captions.$1.vtt"
}

if [ -n "$load" ]; then
  write_track "$lang"
  exit 0
fi

case "$url" in
  *unsupported*)
    echo "ERROR: Unsupported URL: $url" >&2; exit 1 ;;
  *private*)
    echo "WARNING: something" >&2
    echo "ERROR: [youtube] abc: Private video. Sign in if you've been granted access" >&2; exit 1 ;;
  *offline*)
    echo "ERROR: [youtube] abc: Unable to download webpage: <urlopen error [Errno -3] Temporary failure in name resolution>" >&2; exit 1 ;;
  *crash*)
    echo "Traceback (most recent call last):" >&2; exit 2 ;;
  *garbage*)
    echo "not json"; exit 0 ;;
  *nocaps*)
    echo '{"id":"nocaps","title":"No captions","automatic_captions":{}}'; exit 0 ;;
  *german*)
    echo '{"id":"german","title":"Deutsch","automatic_captions":{"de":[{"ext":"vtt"}],"fr":[{"ext":"vtt"}]}}'
    exit 0 ;;
esac

echo '{"id":"abc","title":"Video","extractor":"youtube","automatic_captions":{"fr":[{"ext":"vtt","url":"https://x/fr"}],"en":[{"ext":"vtt","url":"https://x/en"}]}}'
if [ "$lang" = "en" ] || [ "$lang" = "fr" ]; then
  write_track "$lang"
fi
`

func newFakeClient(t *testing.T, preferred string) *Client {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake yt-dlp requires a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	bin := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(bin, []byte(fakeYtDlp), 0o755))

	return New(config.ExtractorConfig{YtDlpPath: bin, PreferredLanguage: preferred})
}

func requestedLanguages(t *testing.T, dir string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "requested.log"))
	require.NoError(t, err)
	return strings.Fields(string(data))
}

func TestExtract_PreferredLanguage(t *testing.T) {
	client := newFakeClient(t, "en")
	dir := t.TempDir()

	info, err := client.Extract(context.Background(), "https://www.youtube.com/watch?v=abc", dir)
	require.NoError(t, err)

	assert.Equal(t, "abc", info.VideoID)
	assert.Equal(t, "youtube", info.Extractor)
	assert.Equal(t, []string{"fr", "en"}, info.Languages)
	assert.FileExists(t, filepath.Join(dir, "captions.en.vtt"))
	assert.NoFileExists(t, filepath.Join(dir, "captions.fr.vtt"))
	assert.Equal(t, []string{"en"}, requestedLanguages(t, dir))
}

func TestExtract_FallsBackToFirstListedLanguage(t *testing.T) {
	client := newFakeClient(t, "en")
	dir := t.TempDir()

	info, err := client.Extract(context.Background(), "https://www.youtube.com/watch?v=german", dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"de", "fr"}, info.Languages)
	assert.FileExists(t, filepath.Join(dir, "captions.de.vtt"))
	assert.FileExists(t, filepath.Join(dir, infoFilename))
	assert.Equal(t, []string{"en", "de"}, requestedLanguages(t, dir))
}

func TestExtract_NoAutomaticCaptions(t *testing.T) {
	client := newFakeClient(t, "en")
	dir := t.TempDir()

	info, err := client.Extract(context.Background(), "https://www.youtube.com/watch?v=nocaps", dir)
	require.NoError(t, err)
	assert.Empty(t, info.Languages)
	assert.Equal(t, []string{"en"}, requestedLanguages(t, dir))
}

func TestExtract_ErrorKinds(t *testing.T) {
	client := newFakeClient(t, "en")

	tests := []struct {
		url     string
		kind    error
		message string
	}{
		{"https://example.com/unsupported", captions.ErrUnsupportedSource, "Unsupported URL"},
		{"https://www.youtube.com/watch?v=private", captions.ErrUnavailable, "Private video"},
		{"https://www.youtube.com/watch?v=offline", captions.ErrNetwork, "Unable to download webpage"},
		{"https://www.youtube.com/watch?v=crash", captions.ErrExtraction, "Traceback"},
		{"https://www.youtube.com/watch?v=garbage", captions.ErrExtraction, "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, err := client.Extract(context.Background(), tt.url, t.TempDir())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestExtract_MissingBinary(t *testing.T) {
	client := New(config.ExtractorConfig{YtDlpPath: filepath.Join(t.TempDir(), "does-not-exist")})

	_, err := client.Extract(context.Background(), "https://www.youtube.com/watch?v=abc", t.TempDir())
	assert.ErrorIs(t, err, captions.ErrExtractorMissing)
}

func TestExtract_CanceledContext(t *testing.T) {
	client := newFakeClient(t, "en")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Extract(ctx, "https://www.youtube.com/watch?v=abc", t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractArgs(t *testing.T) {
	client := New(config.ExtractorConfig{
		YtDlpPath:         "yt-dlp",
		PreferredLanguage: "en",
		ExtraArgs:         []string{"--cookies", "/etc/cookies.txt"},
	})

	args := client.extractArgs("-weird-url", "/work/abc")
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "--skip-download")
	assert.Contains(t, joined, "--write-auto-subs")
	assert.Contains(t, joined, "--sub-format vtt")
	assert.Contains(t, joined, "--sub-langs en")
	assert.Contains(t, joined, "--no-simulate --dump-single-json")
	assert.Contains(t, joined, "-o "+filepath.Join("/work/abc", OutputTemplate))
	assert.Contains(t, joined, "--cookies /etc/cookies.txt")
	assert.Equal(t, []string{"--", "-weird-url"}, args[len(args)-2:])
	assert.NotContains(t, args, "--write-subs")
}

func TestFallbackArgs(t *testing.T) {
	client := New(config.ExtractorConfig{})
	args := client.fallbackArgs("/work/abc/info.json", "de", "/work/abc")

	assert.Equal(t, []string{"--load-info-json", "/work/abc/info.json"}, args[len(args)-2:])
	assert.Contains(t, strings.Join(args, " "), "--sub-langs de")
	assert.NotContains(t, args, "--dump-single-json")
}

func TestNewDefaults(t *testing.T) {
	client := New(config.ExtractorConfig{})
	assert.Equal(t, "yt-dlp", client.path)
	assert.Equal(t, captions.DefaultLanguage, client.preferredLanguage)
}

func TestDecodeInfo(t *testing.T) {
	data := []byte(`{
		"id": "xyz",
		"title": "Title",
		"webpage_url": "https://www.youtube.com/watch?v=xyz",
		"automatic_captions": {
			"zh-Hans": [{"ext": "json3"}, {"ext": "vtt"}],
			"ab": [{"ext": "vtt", "name": "Abkhazian"}],
			"en": [{"ext": "vtt"}]
		},
		"subtitles": {"en": [{"ext": "vtt"}]}
	}`)

	info, err := DecodeInfo(data)
	require.NoError(t, err)

	assert.Equal(t, "xyz", info.VideoID)
	assert.Equal(t, "https://www.youtube.com/watch?v=xyz", info.WebpageURL)
	assert.Equal(t, []string{"zh-Hans", "ab", "en"}, info.Languages)
	assert.Len(t, info.AutomaticCaptions["zh-Hans"], 2)
	assert.Equal(t, "Abkhazian", info.AutomaticCaptions["ab"][0].Name)
}

func TestDecodeInfo_MissingOrNullCaptions(t *testing.T) {
	for _, data := range []string{`{"id":"a"}`, `{"id":"a","automatic_captions":null}`} {
		info, err := DecodeInfo([]byte(data))
		require.NoError(t, err)
		assert.Empty(t, info.Languages)
		assert.Empty(t, info.AutomaticCaptions)
	}
}

func TestDecodeInfo_Invalid(t *testing.T) {
	_, err := DecodeInfo([]byte("WARNING: not json"))
	assert.ErrorIs(t, err, captions.ErrExtraction)

	_, err = DecodeInfo([]byte(`{"automatic_captions": []}`))
	assert.ErrorIs(t, err, captions.ErrExtraction)
}

func TestClassifyError(t *testing.T) {
	exitErr := errors.New("exit status 1")

	tests := []struct {
		stderr string
		kind   error
	}{
		{"ERROR: Unsupported URL: https://example.com", captions.ErrUnsupportedSource},
		{"ERROR: [generic] 'foo' is not a valid URL.", captions.ErrUnsupportedSource},
		{"ERROR: [youtube] abc: Video unavailable", captions.ErrUnavailable},
		{"ERROR: [youtube] abc: Sign in to confirm your age", captions.ErrUnavailable},
		{"ERROR: [youtube] abc: This video is not available in your country", captions.ErrUnavailable},
		{"ERROR: [youtube] abc: Requested format is not available. Use --list-formats for a list of available formats", captions.ErrExtraction},
		{"ERROR: Unable to download webpage: HTTP Error 404: Not Found", captions.ErrUnavailable},
		{"ERROR: Unable to download webpage: HTTP Error 503", captions.ErrNetwork},
		{"ERROR: Unable to download webpage: The read operation timed out", captions.ErrNetwork},
		{"something odd happened", captions.ErrExtraction},
		{"", captions.ErrExtraction},
	}

	for _, tt := range tests {
		t.Run(tt.stderr, func(t *testing.T) {
			err := classifyError(exitErr, tt.stderr)
			assert.ErrorIs(t, err, tt.kind)
		})
	}

	assert.ErrorIs(t, classifyError(exec.ErrNotFound, ""), captions.ErrExtractorMissing)
}

func TestLastErrorLine(t *testing.T) {
	stderr := "WARNING: first\nERROR: the real problem\nsome trailing noise\n"
	assert.Equal(t, "the real problem", lastErrorLine(stderr))
	assert.Equal(t, "only line", lastErrorLine("only line\n"))
	assert.Equal(t, "", lastErrorLine(""))
}
