// Package fuzzy normalizes and scores track metadata for catalog matching.
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	featRegex       = regexp.MustCompile(`(?i)\s*[\(\[]?\s*(?:feat\.?|ft\.?|featuring)\s+[^\)\]]*[\)\]]?\s*`)
	versionRegex    = regexp.MustCompile(`(?i)\s*[\(\[]\s*(remaster|remastered|deluxe|extended|radio edit|mono|stereo|live|single version)[^\)\]]*[\)\]]\s*`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// Title normalizes a track title for comparison: NFKD fold, strip feature
// credits and edition tags, lowercase, collapse whitespace.
func Title(title string) string {
	title = featRegex.ReplaceAllString(title, " ")
	title = versionRegex.ReplaceAllString(title, " ")
	return fold(title)
}

// Artist normalizes an artist name for comparison.
func Artist(artist string) string {
	artist = fold(artist)
	artist = strings.ReplaceAll(artist, " and ", " & ")
	return artist
}

// Similarity returns a [0,1] score between two normalized strings, based on
// longest common subsequence length.
func Similarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}
	if len(s1) == 0 || len(s2) == 0 {
		return 0.0
	}
	return float64(lcs(s1, s2)) / float64(max(len(s1), len(s2)))
}

// MatchScore combines title and artist similarity for a search hit against a
// wanted (title, artist) pair. Title carries more weight: artist fields on
// search hits often list collaborators the model omits.
func MatchScore(wantTitle, wantArtist, gotTitle, gotArtist string) float64 {
	ts := Similarity(Title(wantTitle), Title(gotTitle))
	as := Similarity(Artist(wantArtist), Artist(gotArtist))
	return 0.6*ts + 0.4*as
}

func fold(text string) string {
	text = norm.NFKD.String(text)

	var b strings.Builder
	for _, r := range text {
		if !unicode.IsMark(r) {
			b.WriteRune(r)
		}
	}
	text = b.String()

	text = punctRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(strings.ToLower(text))
}

func lcs(s1, s2 string) int {
	m, n := len(s1), len(s2)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if s1[i-1] == s2[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}
	return dp[m][n]
}
