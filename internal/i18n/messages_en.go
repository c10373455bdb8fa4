package i18n

var englishMessages = map[string]string{
	// Auto-DJ status line
	"autodj.enabled":     "Auto-DJ on",
	"autodj.disabled":    "Auto-DJ off",
	"autodj.fetching":    "Auto-DJ picking the next track…",
	"autodj.cooldown":    "Auto-DJ cooling down (%s)",
	"autodj.queued":      "Queued: %s",
	"autodj.unavailable": "Recommendations unavailable, retrying in %s",

	// Command feedback
	"cmd.queued_one":     "Queued %s",
	"cmd.queued_many":    "Queued %d tracks",
	"cmd.theme_prompt":   "Theme: ",
	"cmd.saved":          "Saved %s",
	"cmd.disliked":       "Disliked %s, skipping",
	"cmd.nothing":        "Nothing playing",
	"cmd.volume":         "Volume %d%%",
	"cmd.not_found":      "Could not find %s",
	"cmd.rate_limited":   "Too many requests, try again in a moment",
	"cmd.insight_title":  "About this track",
	"cmd.lyrics_title":   "Lyric breakdown",
	"cmd.lyrics_missing": "No lyrics found for %s",
	"cmd.no_library":     "Library disabled",

	// Mystery mode
	"mystery.on":          "Mystery mode on",
	"mystery.off":         "Mystery mode off",
	"mystery.round":       "Mystery picks are in",
	"mystery.title":       "Mystery crate picks",
	"mystery.hint":        "Press 1-5 to choose the next track",
	"mystery.none":        "No mystery selection pending",
	"mystery.invalid":     "Invalid selection",
	"mystery.unavailable": "That one is unavailable",
	"mystery.playing":     "Now playing %s",

	// Session
	"session.goodbye": "Session ended. %d tracks in history.",
}
