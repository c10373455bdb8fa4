package lyrics

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Matches "[mm:ss.xx]" timestamps, including multiple tags on one line.
var lrcTagRegex = regexp.MustCompile(`\[(\d+):(\d{2})(?:\.(\d{1,3}))?\]`)

// ParseLRC parses LRC-format synced lyrics into timed lines sorted by time.
// Lines without a timestamp and metadata tags like [ar:] are skipped.
func ParseLRC(raw string) []Line {
	if raw == "" {
		return nil
	}

	var out []Line
	for _, lineText := range strings.Split(raw, "\n") {
		tags := lrcTagRegex.FindAllStringSubmatch(lineText, -1)
		if len(tags) == 0 {
			continue
		}
		text := strings.TrimSpace(lrcTagRegex.ReplaceAllString(lineText, ""))

		for _, tag := range tags {
			minutes, _ := strconv.Atoi(tag[1])
			seconds, _ := strconv.Atoi(tag[2])

			at := time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second
			if tag[3] != "" {
				// Fraction digits: ".5" is 500ms, ".50" is 500ms, ".500" is 500ms.
				frac := tag[3] + strings.Repeat("0", 3-len(tag[3]))
				ms, _ := strconv.Atoi(frac)
				at += time.Duration(ms) * time.Millisecond
			}

			out = append(out, Line{At: at, Text: text})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].At < out[j].At })
	return out
}
