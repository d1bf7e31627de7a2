// Package youtube resolves playable songs from YouTube through yt-dlp and the
// YouTube and YouTube Music search endpoints.
package youtube

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"musebot/internal/core"
	"musebot/pkg/musiclink"
)

const (
	// missingField is what yt-dlp prints for absent template fields
	missingField = "NA"

	videoTemplate = "%(id)s\t%(title)s\t%(duration)s\t%(webpage_url)s\t" +
		"%(channel,uploader)s\t%(channel_url,uploader_url)s\t%(thumbnail)s"
	flatTemplate = "%(id)s\t%(title)s\t%(duration)s\t%(url)s\t" +
		"%(channel,uploader)s\t%(channel_url,uploader_url)s\t%(thumbnails.-1.url)s"

	templateFields = 7
)

// ExtractOptions select how yt-dlp is run.
type ExtractOptions struct {
	// Flat lists playlist entries without resolving each video
	Flat bool
	// Items limits playlist entries, e.g. "1-12". Empty means all.
	Items string
}

// Extractor runs yt-dlp against a URL and returns one line per entry.
type Extractor interface {
	Extract(ctx context.Context, url string, opts ExtractOptions) ([]string, error)
}

type ytdlpExtractor struct {
	binary string
}

// NewExtractor returns an Extractor backed by the yt-dlp binary. An empty
// binary means the one found in PATH.
func NewExtractor(binary string) Extractor {
	return &ytdlpExtractor{binary: binary}
}

func (e *ytdlpExtractor) Extract(ctx context.Context, url string, opts ExtractOptions) ([]string, error) {
	cmd := ytdlp.New().
		NoWarnings().
		IgnoreConfig()
	if e.binary != "" {
		cmd.SetExecutable(e.binary)
	}

	template := videoTemplate
	if opts.Flat {
		template = flatTemplate
		cmd.FlatPlaylist()
	} else {
		cmd.NoPlaylist()
	}
	cmd.Print(template)
	if opts.Items != "" {
		cmd.PlaylistItems(opts.Items)
	}

	res, err := cmd.Run(ctx, url)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// parseEntry turns one template line into a song. Lines without a usable id are rejected.
func parseEntry(line string) (core.Song, bool) {
	fields := strings.SplitN(line, "\t", templateFields)
	if len(fields) < templateFields {
		return core.Song{}, false
	}
	for i, f := range fields {
		if f == missingField {
			fields[i] = ""
		}
	}

	id, title, duration, url, channel, channelURL, thumbnail :=
		fields[0], fields[1], fields[2], fields[3], fields[4], fields[5], fields[6]
	if id == "" {
		return core.Song{}, false
	}
	// Flat entries often print the bare id or a shortened link as url.
	if !strings.HasPrefix(url, "https://www.youtube.com/watch") {
		url = musiclink.YouTubeWatchURL + id
	}

	// yt-dlp reports no channel avatar for videos, so the item thumbnail stands in.
	return core.Song{
		ID: id,
		Artist: core.Artist{
			Name:    musiclink.ArtistFromChannel(channel),
			URL:     channelURL,
			IconURL: thumbnail,
		},
		Duration: parseDuration(duration),
		ImageURL: thumbnail,
		Provider: core.ProviderMedia,
		Title:    title,
		URL:      url,
	}, true
}

// parseDuration reads yt-dlp's duration in seconds, possibly fractional.
func parseDuration(value string) time.Duration {
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
