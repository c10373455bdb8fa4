// Package text parses track suggestions out of free-form model output.
package text

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrNoCandidate reports that no track could be read from the text.
	ErrNoCandidate = errors.New("no track candidate in text")

	// Matches "1. Title by Artist", "1) Title - Artist", "- Title — Artist".
	listLineRegex = regexp.MustCompile(`^\s*(?:\d+[\.\)]|-|\*)\s+(.+)$`)
	bySplitRegex  = regexp.MustCompile(`\s+(?:by|[-–—])\s+`)
	quoteTrim     = "\"'“”‘’"
)

// Suggestion is one (title, artist) pair read from model output, with
// optional intro text when the model supplied one.
type Suggestion struct {
	Title  string `json:"track_name"`
	Artist string `json:"artist_name"`
	Intro  string `json:"intro,omitempty"`
}

// ParseSuggestion reads a single suggestion from model output. It accepts a
// bare JSON object, a JSON object embedded in prose or a code fence, or a
// single "Title by Artist" line.
func ParseSuggestion(raw string) (*Suggestion, error) {
	raw = Normalize(raw)

	if obj := extractJSONObject(raw); obj != "" {
		var s Suggestion
		if err := json.Unmarshal([]byte(obj), &s); err == nil {
			s.clean()
			if s.valid() {
				return &s, nil
			}
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		if s := parseLine(line); s != nil {
			return s, nil
		}
	}

	return nil, ErrNoCandidate
}

// ParseSuggestionList reads a numbered or bulleted list of suggestions, or a
// JSON array of suggestion objects. Unparseable lines are skipped; an empty
// result is an error.
func ParseSuggestionList(raw string) ([]Suggestion, error) {
	raw = Normalize(raw)

	if arr := extractJSONArray(raw); arr != "" {
		var out []Suggestion
		if err := json.Unmarshal([]byte(arr), &out); err == nil {
			kept := out[:0]
			for _, s := range out {
				s.clean()
				if s.valid() {
					kept = append(kept, s)
				}
			}
			if len(kept) > 0 {
				return kept, nil
			}
		}
	}

	var out []Suggestion
	for _, line := range strings.Split(raw, "\n") {
		m := listLineRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if s := parseLine(m[1]); s != nil {
			out = append(out, *s)
		}
	}

	if len(out) == 0 {
		return nil, ErrNoCandidate
	}
	return out, nil
}

// ParseMysteryPick reads a mystery-round reply: a JSON object holding an
// option list and the model's 1-based secret selection. Returns the options
// and the zero-based selection index, -1 when the model named none. A bare
// JSON array of options is accepted too.
func ParseMysteryPick(raw string) ([]Suggestion, int, error) {
	raw = Normalize(raw)

	if obj := extractJSONObject(raw); obj != "" {
		var pick struct {
			Options  []Suggestion `json:"options"`
			Selected int          `json:"selected_index"`
		}
		if err := json.Unmarshal([]byte(obj), &pick); err == nil {
			kept := keepValid(pick.Options)
			if len(kept) > 0 {
				selected := pick.Selected - 1
				if selected < 0 || selected >= len(kept) {
					selected = -1
				}
				return kept, selected, nil
			}
		}
	}

	// No selection survives the fallback forms.
	if suggestions, err := ParseSuggestionList(raw); err == nil {
		return suggestions, -1, nil
	}
	return nil, -1, ErrNoCandidate
}

func keepValid(in []Suggestion) []Suggestion {
	var out []Suggestion
	for _, s := range in {
		s.clean()
		if s.valid() {
			out = append(out, s)
		}
	}
	return out
}

// Normalize applies NFKC and strips code fences and trailing whitespace.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

func parseLine(line string) *Suggestion {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	parts := bySplitRegex.Split(line, 2)
	if len(parts) != 2 {
		return nil
	}
	s := Suggestion{Title: parts[0], Artist: parts[1]}
	s.clean()
	if !s.valid() {
		return nil
	}
	return &s
}

func (s *Suggestion) clean() {
	s.Title = strings.Trim(strings.TrimSpace(s.Title), quoteTrim)
	s.Artist = strings.Trim(strings.TrimSpace(s.Artist), quoteTrim)
	s.Intro = strings.TrimSpace(s.Intro)
}

func (s *Suggestion) valid() bool {
	return s.Title != "" && s.Artist != ""
}

// extractJSONObject returns the first balanced {...} span, or "".
func extractJSONObject(raw string) string {
	return extractBalanced(raw, '{', '}')
}

// extractJSONArray returns the first balanced [...] span, or "".
func extractJSONArray(raw string) string {
	return extractBalanced(raw, '[', ']')
}

func extractBalanced(raw string, open, close byte) string {
	start := strings.IndexByte(raw, open)
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}
