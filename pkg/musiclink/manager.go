package musiclink

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Classifier routes input to the classifier of the provider that owns it.
type Classifier struct {
	classifiers []classifier
}

// NewClassifier creates a classifier for all supported providers.
func NewClassifier() *Classifier {
	return &Classifier{
		classifiers: []classifier{
			&youtubeClassifier{},
			&spotifyClassifier{},
		},
	}
}

// Classify determines whether input is a free-text query or a link, and which kind of link.
func (c *Classifier) Classify(input string) Link {
	input = Normalize(input)

	if link, ok := classifySpotifyURI(input); ok {
		return link
	}

	u, ok := parseURL(input)
	if !ok {
		return Link{Kind: KindQuery, Input: input}
	}

	if isWeb(u) {
		for _, cl := range c.classifiers {
			if cl.CanClassify(u) {
				link := cl.Classify(u)
				link.Input = input
				return link
			}
		}
	}

	return Link{Kind: KindUnsupported, Input: input}
}

// Normalize trims input and folds compatibility characters (NFKC).
func Normalize(input string) string {
	return strings.TrimSpace(norm.NFKC.String(input))
}

// parseURL accepts any absolute URL: a scheme followed by a host or an opaque part.
// Input with whitespace is free text even when it contains a colon.
func parseURL(input string) (*url.URL, bool) {
	if input == "" || strings.ContainsAny(input, " \t\n") {
		return nil, false
	}

	u, err := url.Parse(input)
	if err != nil || u.Scheme == "" {
		return nil, false
	}

	if u.Host == "" && u.Opaque == "" {
		return nil, false
	}

	return u, true
}

// isWeb reports whether u is an http(s) URL with a host, the only shape providers own.
func isWeb(u *url.URL) bool {
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Hostname() != ""
}

func hostOf(u *url.URL) string {
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func pathSegments(u *url.URL) []string {
	trimmed := strings.Trim(u.Path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
