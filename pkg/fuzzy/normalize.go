// Package fuzzy normalizes artist and title strings so that different
// spellings of the same song compare equal.
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	featRegex       = regexp.MustCompile(`(?i)\s*[\(\[]?\s*\b(?:feat\.?|ft\.?|featuring)\s+[^\)\]]*[\)\]]?\s*`)
	versionRegex    = regexp.MustCompile(`(?i)\s*[\(\[]\s*(?:\d{4}\s+)?(?:remaster(?:ed)?|deluxe|extended|radio edit|clean|explicit|official[^\)\]]*|lyrics?|audio)[^\)\]]*[\)\]]\s*`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s&]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeArtist keeps only the first credited artist, which is what
// providers agree on when they list collaborators differently.
func (n *Normalizer) NormalizeArtist(artist string) string {
	if idx := strings.Index(artist, ","); idx >= 0 {
		artist = artist[:idx]
	}
	artist = featRegex.ReplaceAllString(artist, " ")
	artist = n.basicNormalize(artist)

	artist = strings.ReplaceAll(artist, " and ", " & ")
	return strings.TrimPrefix(artist, "the ")
}

func (n *Normalizer) NormalizeTitle(title string) string {
	title = featRegex.ReplaceAllString(title, " ")
	title = versionRegex.ReplaceAllString(title, " ")
	return n.basicNormalize(title)
}

// Key is a stable identity for a song across providers.
func (n *Normalizer) Key(artist, title string) string {
	return n.NormalizeArtist(artist) + "|" + n.NormalizeTitle(title)
}

func (n *Normalizer) basicNormalize(text string) string {
	text = norm.NFKD.String(text)

	var result strings.Builder
	for _, r := range text {
		if !unicode.IsMark(r) {
			result.WriteRune(r)
		}
	}
	text = result.String()

	text = punctRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	return strings.TrimSpace(strings.ToLower(text))
}
