// Package musiclink classifies user input into searches and provider links.
package musiclink

import (
	"net/url"
)

// Kind is the shape of a classified input.
type Kind int

const (
	// KindQuery is free text that is not a URL
	KindQuery Kind = iota
	// KindYouTubeVideo is a single YouTube video link
	KindYouTubeVideo
	// KindYouTubePlaylist is a YouTube playlist link
	KindYouTubePlaylist
	// KindSpotifyTrack is a Spotify track link or URI
	KindSpotifyTrack
	// KindSpotifyPlaylist is a Spotify playlist link or URI
	KindSpotifyPlaylist
	// KindSpotifyAlbum is a Spotify album link or URI
	KindSpotifyAlbum
	// KindSpotifyArtist is a Spotify artist page
	KindSpotifyArtist
	// KindSpotifySearch is a Spotify search result page
	KindSpotifySearch
	// KindSpotifyShortLink is a spotify.link redirect that must be expanded first
	KindSpotifyShortLink
	// KindUnsupported is a URL no provider handles
	KindUnsupported
)

var kindNames = map[Kind]string{
	KindQuery:            "query",
	KindYouTubeVideo:     "youtube_video",
	KindYouTubePlaylist:  "youtube_playlist",
	KindSpotifyTrack:     "spotify_track",
	KindSpotifyPlaylist:  "spotify_playlist",
	KindSpotifyAlbum:     "spotify_album",
	KindSpotifyArtist:    "spotify_artist",
	KindSpotifySearch:    "spotify_search",
	KindSpotifyShortLink: "spotify_short_link",
	KindUnsupported:      "unsupported",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsSpotify reports whether the kind belongs to Spotify.
func (k Kind) IsSpotify() bool {
	return k >= KindSpotifyTrack && k <= KindSpotifyShortLink
}

// IsYouTube reports whether the kind belongs to YouTube.
func (k Kind) IsYouTube() bool {
	return k == KindYouTubeVideo || k == KindYouTubePlaylist
}

// Link is a classified input.
type Link struct {
	Kind Kind
	// Input is the normalized user input
	Input string
	// ID is the provider identifier (video, playlist, track or album id)
	ID string
	// URL is the canonical provider URL, empty for queries
	URL string
}

// classifier recognizes the links of one provider.
type classifier interface {
	// CanClassify checks if this classifier owns the URL's host.
	CanClassify(u *url.URL) bool

	// Classify determines the link kind. Only called when CanClassify is true.
	Classify(u *url.URL) Link
}
