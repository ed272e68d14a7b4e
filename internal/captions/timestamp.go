package captions

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatTimestamp converts a WebVTT timestamp such as "01:02:03.500" or
// "02:03.250" into a zero-padded "hh:mm:ss" or "mm:ss" string with the
// fraction dropped. Input it cannot interpret is returned unchanged.
func FormatTimestamp(ts string) string {
	whole, _, _ := strings.Cut(ts, ".")
	parts := strings.Split(whole, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return ts
	}

	formatted := make([]string, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return ts
		}
		formatted[i] = fmt.Sprintf("%02d", n)
	}

	return strings.Join(formatted, ":")
}
