package musiclink

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	// YouTubeWatchURL is the canonical single video URL prefix
	YouTubeWatchURL = "https://www.youtube.com/watch?v="
	// YouTubePlaylistURL is the canonical playlist URL prefix
	YouTubePlaylistURL = "https://www.youtube.com/playlist?list="
	// mixPlaylistPrefix marks auto-generated mixes, which are endless and tied to a video
	mixPlaylistPrefix = "RD"
)

var (
	videoIDRegex    = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	playlistIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{2,}$`)

	// Title decorations that are not part of the song name.
	titleNoiseRegex = regexp.MustCompile(`(?i)\s*[\(\[]\s*(official\s+(music\s+)?(video|audio)|lyric\s+video|lyrics|visuali[sz]er|hd|4k)\s*[\)\]]`)
	camelCaseRegex  = regexp.MustCompile(`([a-z])([A-Z])`)
)

type youtubeClassifier struct{}

// CanClassify checks if the URL is a YouTube or YouTube Music link.
func (c *youtubeClassifier) CanClassify(u *url.URL) bool {
	switch hostOf(u) {
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be":
		return true
	}
	return false
}

// Classify distinguishes playlists from single videos.
func (c *youtubeClassifier) Classify(u *url.URL) Link {
	segments := pathSegments(u)
	query := u.Query()

	if hostOf(u) == "youtu.be" {
		if len(segments) == 0 {
			return Link{Kind: KindUnsupported}
		}
		return videoLink(segments[0])
	}

	listID := query.Get("list")
	videoID := query.Get("v")

	if len(segments) == 0 {
		return Link{Kind: KindUnsupported}
	}

	switch segments[0] {
	case "watch":
		if listID != "" && playlistIDRegex.MatchString(listID) &&
			(videoID == "" || !strings.HasPrefix(listID, mixPlaylistPrefix)) {
			return playlistLink(listID)
		}
		if videoID != "" {
			return videoLink(videoID)
		}
	case "playlist":
		if listID != "" && playlistIDRegex.MatchString(listID) {
			return playlistLink(listID)
		}
	case "shorts", "embed", "live", "v":
		if len(segments) > 1 {
			return videoLink(segments[1])
		}
	}

	return Link{Kind: KindUnsupported}
}

func videoLink(id string) Link {
	if !videoIDRegex.MatchString(id) {
		return Link{Kind: KindUnsupported}
	}
	return Link{Kind: KindYouTubeVideo, ID: id, URL: YouTubeWatchURL + id}
}

func playlistLink(id string) Link {
	return Link{Kind: KindYouTubePlaylist, ID: id, URL: YouTubePlaylistURL + id}
}

// VideoID extracts the video id from a canonical or pasted YouTube URL.
func VideoID(rawURL string) (string, bool) {
	u, ok := parseURL(rawURL)
	if !ok || !isWeb(u) {
		return "", false
	}
	c := &youtubeClassifier{}
	if !c.CanClassify(u) {
		return "", false
	}
	// A watch URL inside a playlist still names a video.
	if id := u.Query().Get("v"); videoIDRegex.MatchString(id) {
		return id, true
	}
	link := c.Classify(u)
	return link.ID, link.Kind == KindYouTubeVideo
}

// CleanTitle removes common video decorations like "(Official Video)".
func CleanTitle(title string) string {
	return strings.TrimSpace(titleNoiseRegex.ReplaceAllString(title, ""))
}

// ArtistFromChannel derives an artist name from a YouTube channel name.
// Auto-generated "X - Topic" channels and VEVO channels carry the artist in their name.
func ArtistFromChannel(channel string) string {
	if strings.HasSuffix(channel, " - Topic") {
		return strings.TrimSuffix(channel, " - Topic")
	}
	if strings.HasSuffix(channel, "VEVO") && !strings.Contains(channel, " ") {
		return camelCaseRegex.ReplaceAllString(strings.TrimSuffix(channel, "VEVO"), "$1 $2")
	}
	return channel
}
