package musiclink

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	// SpotifyOpenURL is the canonical web player prefix
	SpotifyOpenURL = "https://open.spotify.com/"
	// SpotifyShortLinkDomain is the share link shortener
	SpotifyShortLinkDomain = "spotify.link"
	// SpotifyAppLinkDomain is the app deep link shortener
	SpotifyAppLinkDomain = "spotify.app.link"
)

var (
	spotifyIDRegex  = regexp.MustCompile(`^[A-Za-z0-9]{22}$`)
	spotifyURIRegex = regexp.MustCompile(`^spotify:(track|playlist|album|artist):([A-Za-z0-9]+)$`)
)

type spotifyClassifier struct{}

// CanClassify checks if the URL belongs to Spotify, short links included.
func (c *spotifyClassifier) CanClassify(u *url.URL) bool {
	host := hostOf(u)
	return host == "spotify.com" || strings.HasSuffix(host, ".spotify.com") ||
		host == SpotifyShortLinkDomain || host == SpotifyAppLinkDomain
}

// Classify maps the path shape (/track/ID, /playlist/ID, /album/ID) to a link kind.
func (c *spotifyClassifier) Classify(u *url.URL) Link {
	host := hostOf(u)
	if host == SpotifyShortLinkDomain || host == SpotifyAppLinkDomain {
		return Link{Kind: KindSpotifyShortLink, URL: u.String()}
	}

	segments := pathSegments(u)
	// Localized and embed links carry a prefix segment: /intl-de/track/ID, /embed/track/ID
	for len(segments) > 0 && (strings.HasPrefix(segments[0], "intl-") || segments[0] == "embed") {
		segments = segments[1:]
	}

	if len(segments) == 0 {
		return Link{Kind: KindUnsupported}
	}

	if segments[0] == "search" {
		return Link{Kind: KindSpotifySearch}
	}

	if len(segments) < 2 {
		return Link{Kind: KindUnsupported}
	}

	return spotifyLink(segments[0], segments[1])
}

func classifySpotifyURI(input string) (Link, bool) {
	matches := spotifyURIRegex.FindStringSubmatch(input)
	if len(matches) != 3 {
		return Link{}, false
	}
	link := spotifyLink(matches[1], matches[2])
	link.Input = input
	return link, true
}

func spotifyLink(objectType, id string) Link {
	var kind Kind
	switch objectType {
	case "track":
		kind = KindSpotifyTrack
	case "playlist":
		kind = KindSpotifyPlaylist
	case "album":
		kind = KindSpotifyAlbum
	case "artist":
		kind = KindSpotifyArtist
	default:
		return Link{Kind: KindUnsupported}
	}

	if !spotifyIDRegex.MatchString(id) {
		return Link{Kind: KindUnsupported}
	}

	return Link{Kind: kind, ID: id, URL: SpotifyOpenURL + objectType + "/" + id}
}
