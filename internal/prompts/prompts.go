// Package prompts holds the named prompt templates for the recommendation
// engine, with optional overrides from a JSON file.
package prompts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"text/template"
)

// Template names.
const (
	System       = "system"
	SuggestOne   = "suggest_one"
	SuggestBatch = "suggest_batch"
	ThemeList    = "theme_playlist"
	SongInsight  = "song_insight"
	ExplainLyric = "explain_lyrics"
	RadioIntro   = "radio_intro"
	MysteryList  = "mystery_list"
)

var defaults = map[string]string{
	System: "You are an expert radio DJ with encyclopedic music knowledge. " +
		"You pick real, existing tracks that fit the listener's current mood and history. " +
		"Answer in the exact format requested, nothing else.",

	SuggestOne: `Pick the single best next track for this session.
{{if .Current}}Now playing: {{.Current}}.{{end}}
{{if .Recent}}Recently played: {{.Recent}}.{{end}}
{{if .Exclude}}Do not suggest any of: {{.Exclude}}.{{end}}
{{if .WithIntro}}Include a one-sentence radio intro for the track in an "intro" field.{{end}}
Respond with a single JSON object: {"track_name": "...", "artist_name": "..."{{if .WithIntro}}, "intro": "..."{{end}}}`,

	SuggestBatch: `Pick the {{.Count}} best next tracks for this session, in play order.
{{if .Current}}Now playing: {{.Current}}.{{end}}
{{if .Recent}}Recently played: {{.Recent}}.{{end}}
{{if .Exclude}}Do not suggest any of: {{.Exclude}}.{{end}}
Respond with a numbered list, one track per line, formatted exactly as:
1. Track Name by Artist Name`,

	ThemeList: `Build a {{.Count}}-track playlist for the theme "{{.Theme}}".
{{if .Exclude}}Do not suggest any of: {{.Exclude}}.{{end}}
Respond with a numbered list, one track per line, formatted exactly as:
1. Track Name by Artist Name`,

	SongInsight: `Tell me about "{{.Title}}" by {{.Artist}}: its history, production, ` +
		`cultural context, and anything a curious listener would enjoy knowing. ` +
		`Three short paragraphs at most.`,

	ExplainLyric: `Explain the meaning of the lyrics of "{{.Title}}" by {{.Artist}}.
{{if .Lyrics}}Lyrics:
{{.Lyrics}}{{end}}
Cover the story, themes and notable imagery. Three short paragraphs at most.`,

	RadioIntro: `Write a single enthusiastic sentence a radio DJ would say to introduce ` +
		`"{{.Title}}" by {{.Artist}}. No quotes around the answer.`,

	MysteryList: `Pick {{.Count}} real tracks that would each follow {{if .Current}}{{.Current}}{{else}}this session{{end}} well.
{{if .Exclude}}Do not suggest any of: {{.Exclude}}.{{end}}
Decide which one you would play next yourself and report it as selected_index (1-based), but give no other hint about it.
Respond with a single JSON object:
{"options": [{"track_name": "...", "artist_name": "..."}], "selected_index": 1}`,
}

// Set is an immutable collection of parsed templates.
type Set struct {
	templates map[string]*template.Template
}

// Load parses the default templates merged with any overrides found in the
// JSON file at path (a flat object of name → template text). An empty path
// loads the defaults only.
func Load(path string) (*Set, error) {
	texts := make(map[string]string, len(defaults))
	for name, text := range defaults {
		texts[name] = text
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read prompts file: %w", err)
		}
		var overrides map[string]string
		if err := json.Unmarshal(raw, &overrides); err != nil {
			return nil, fmt.Errorf("parse prompts file: %w", err)
		}
		for name, text := range overrides {
			if _, known := defaults[name]; !known {
				return nil, fmt.Errorf("unknown prompt template %q", name)
			}
			texts[name] = text
		}
	}

	set := &Set{templates: make(map[string]*template.Template, len(texts))}
	for name, text := range texts {
		tmpl, err := template.New(name).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse template %q: %w", name, err)
		}
		set.templates[name] = tmpl
	}
	return set, nil
}

// Render executes the named template with data.
func (s *Set) Render(name string, data any) (string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt template %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %q: %w", name, err)
	}
	return buf.String(), nil
}
