package spotify

import (
	"radiofree/internal/core"
	"radiofree/pkg/fuzzy"
)

// bestMatch scores search results against the wanted candidate and returns
// the highest scorer. Popular re-releases often outrank the canonical track
// in raw search order, so the score decides, not result position.
func bestMatch(tracks []core.Track, candidate core.Candidate) (*core.Track, float64) {
	var best *core.Track
	bestScore := 0.0

	for i := range tracks {
		score := fuzzy.MatchScore(candidate.Title, candidate.Artist,
			tracks[i].Title, tracks[i].Artist)
		if best == nil || score > bestScore {
			best = &tracks[i]
			bestScore = score
		}
	}

	return best, bestScore
}
