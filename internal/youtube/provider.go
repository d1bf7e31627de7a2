package youtube

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"musebot/internal/core"
	"musebot/pkg/musiclink"
)

const (
	// MaxRelated is the number of related songs returned for autoplay
	MaxRelated = 11
	// relatedItems fetches one extra entry since the mix starts with the seed
	relatedItems = "1-12"
)

// Provider implements core.MediaProvider on top of yt-dlp and the search backends.
type Provider struct {
	extractor Extractor
	backends  []SearchBackend
	logger    *zap.Logger
}

// NewProvider wires the yt-dlp extractor with web search first and YouTube
// Music as the fallback backend.
func NewProvider(config *core.YouTubeConfig, logger *zap.Logger) *Provider {
	return NewProviderWith(NewExtractor(config.BinaryPath), []SearchBackend{NewWebSearch(), NewMusicSearch()}, logger)
}

// NewProviderWith builds a provider from explicit parts.
func NewProviderWith(extractor Extractor, backends []SearchBackend, logger *zap.Logger) *Provider {
	return &Provider{extractor: extractor, backends: backends, logger: logger}
}

func (p *Provider) FetchVideo(ctx context.Context, url string) (core.Song, error) {
	lines, err := p.extractor.Extract(ctx, url, ExtractOptions{})
	if err != nil {
		return core.Song{}, core.NewProviderError(core.ProviderMedia, "fetch video", err)
	}

	for _, line := range lines {
		if song, ok := parseEntry(line); ok {
			return song, nil
		}
	}
	return core.Song{}, fmt.Errorf("%w: %s", core.ErrNoResults, url)
}

// FetchPlaylist returns every playlist entry in order.
func (p *Provider) FetchPlaylist(ctx context.Context, url string) ([]core.Song, error) {
	lines, err := p.extractor.Extract(ctx, url, ExtractOptions{Flat: true})
	if err != nil {
		return nil, core.NewProviderError(core.ProviderMedia, "fetch playlist", err)
	}

	songs := parseEntries(lines)
	p.logger.Debug("Fetched playlist", zap.String("url", url), zap.Int("songs", len(songs)))
	return songs, nil
}

// Search asks each backend in turn and returns the first video found.
func (p *Provider) Search(ctx context.Context, query string) (core.Song, error) {
	var errs []error
	for _, backend := range p.backends {
		ids, err := backend.Search(ctx, query)
		if err != nil {
			p.logger.Warn("Search backend failed",
				zap.String("backend", backend.Name()),
				zap.String("query", query),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			continue
		}
		if len(ids) == 0 {
			continue
		}

		return p.FetchVideo(ctx, musiclink.YouTubeWatchURL+ids[0])
	}

	// Every backend failing is an outage, some answering with nothing is a miss.
	if len(errs) > 0 && len(errs) == len(p.backends) {
		return core.Song{}, core.NewProviderError(core.ProviderMedia, "search", errors.Join(errs...))
	}
	return core.Song{}, fmt.Errorf("%w: %s", core.ErrNoResults, query)
}

// FetchRelated returns up to MaxRelated songs from the seed video's mix.
func (p *Provider) FetchRelated(ctx context.Context, url string) ([]core.Song, error) {
	id, ok := musiclink.VideoID(url)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedDomain, url)
	}

	mix := musiclink.YouTubeWatchURL + id + "&list=RD" + id
	lines, err := p.extractor.Extract(ctx, mix, ExtractOptions{Flat: true, Items: relatedItems})
	if err != nil {
		return nil, core.NewProviderError(core.ProviderMedia, "fetch related", err)
	}

	related := make([]core.Song, 0, MaxRelated)
	for _, song := range parseEntries(lines) {
		if song.ID == id {
			continue
		}
		related = append(related, song)
		if len(related) == MaxRelated {
			break
		}
	}
	return related, nil
}

func parseEntries(lines []string) []core.Song {
	songs := make([]core.Song, 0, len(lines))
	for _, line := range lines {
		if song, ok := parseEntry(line); ok {
			songs = append(songs, song)
		}
	}
	return songs
}
