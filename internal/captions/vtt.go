package captions

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// ErrInvalidVTT is returned when input does not start with a WEBVTT signature
var ErrInvalidVTT = errors.New("not a WebVTT file")

var vttTimestampRe = regexp.MustCompile(`^(?:\d{2,}:)?\d{2}:\d{2}\.\d{3}$`)

// Cue is one timed unit of a WebVTT file, exactly as written in the file
type Cue struct {
	ID    string
	Start string
	End   string
	Text  string
}

// ReadVTTFile parses the WebVTT file at path
func ReadVTTFile(path string) ([]Cue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subtitle file: %w", err)
	}
	defer f.Close()

	return ReadVTT(f)
}

// ReadVTT parses WebVTT content into cues in file order. Cue text is kept
// verbatim, inline tags included; multi-line cue text is joined with "\n".
// Blocks with a malformed timing line are skipped.
func ReadVTT(r io.Reader) ([]Cue, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	blocks, err := splitBlocks(scanner)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 || !isSignature(blocks[0][0]) {
		return nil, ErrInvalidVTT
	}

	cues := make([]Cue, 0, len(blocks)-1)
	for _, block := range blocks[1:] {
		if isMetadataBlock(block[0]) {
			continue
		}
		if cue, ok := parseCue(block); ok {
			cues = append(cues, cue)
		}
	}

	return cues, nil
}

// splitBlocks groups lines into blank-line separated blocks
func splitBlocks(scanner *bufio.Scanner) ([][]string, error) {
	var blocks [][]string
	var current []string

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if len(blocks) == 0 && len(current) == 0 {
			line = strings.TrimPrefix(line, "\uFEFF")
		}
		if line == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read subtitle file: %w", err)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}

	return blocks, nil
}

func isSignature(line string) bool {
	return line == "WEBVTT" || strings.HasPrefix(line, "WEBVTT ") || strings.HasPrefix(line, "WEBVTT\t")
}

func isMetadataBlock(first string) bool {
	for _, kw := range []string{"NOTE", "STYLE", "REGION"} {
		if first == kw || strings.HasPrefix(first, kw+" ") || strings.HasPrefix(first, kw+"\t") {
			return true
		}
	}
	return false
}

func parseCue(block []string) (Cue, bool) {
	var cue Cue

	timing := 0
	if !strings.Contains(block[0], "-->") {
		if len(block) < 2 || !strings.Contains(block[1], "-->") {
			return Cue{}, false
		}
		cue.ID = block[0]
		timing = 1
	}

	left, right, _ := strings.Cut(block[timing], "-->")
	fields := strings.Fields(right)
	if len(fields) == 0 {
		return Cue{}, false
	}

	cue.Start = strings.TrimSpace(left)
	cue.End = fields[0]
	if !vttTimestampRe.MatchString(cue.Start) || !vttTimestampRe.MatchString(cue.End) {
		return Cue{}, false
	}

	cue.Text = strings.Join(block[timing+1:], "\n")
	return cue, true
}
