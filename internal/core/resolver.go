package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"musebot/pkg/musiclink"
)

// ShortLinkExpander turns share short links into full provider URLs.
type ShortLinkExpander interface {
	Expand(ctx context.Context, shortURL string) (string, error)
}

// Resolver is the single entry point that turns user input into songs. It
// classifies the input and routes it to the provider that owns it.
type Resolver struct {
	classifier *musiclink.Classifier
	expander   ShortLinkExpander
	media      MediaProvider
	metadata   MetadataProvider
	recorder   Recorder
	logger     *zap.Logger
}

// NewResolver creates a resolver. A nil recorder disables metrics.
func NewResolver(media MediaProvider, metadata MetadataProvider, expander ShortLinkExpander,
	recorder Recorder, logger *zap.Logger) *Resolver {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Resolver{
		classifier: musiclink.NewClassifier(),
		expander:   expander,
		media:      media,
		metadata:   metadata,
		recorder:   recorder,
		logger:     logger,
	}
}

// Resolve returns one song for searches and single links, every item for
// playlists and albums. It never returns an empty slice without an error.
func (r *Resolver) Resolve(ctx context.Context, input string) ([]Song, error) {
	start := time.Now()
	link := r.classifier.Classify(input)

	songs, err := r.resolveLink(ctx, link, true)

	status := "ok"
	switch {
	case err == nil && len(songs) == 0:
		err = ErrNoResults
		status = "no_results"
	case errors.Is(err, ErrNoResults):
		status = "no_results"
	case errors.Is(err, ErrUnsupportedDomain):
		status = "unsupported"
	case err != nil:
		status = "error"
		r.recorder.RecordError("resolver", link.Kind.String())
	}
	r.recorder.RecordResolve(link.Kind.String(), status, time.Since(start))

	fields := []zap.Field{zap.String("input", link.Input), zap.Stringer("kind", link.Kind)}
	if provider, ok := linkProvider(link.Kind); ok {
		fields = append(fields, zap.Stringer("provider", provider))
	}

	if err != nil {
		r.logger.Debug("Failed to resolve input", append(fields, zap.Error(err))...)
		return nil, err
	}

	r.logger.Debug("Resolved input", append(fields, zap.Int("songs", len(songs)))...)
	return songs, nil
}

func (r *Resolver) resolveLink(ctx context.Context, link musiclink.Link, expand bool) ([]Song, error) {
	switch link.Kind {
	case musiclink.KindQuery:
		song, err := r.media.Search(ctx, link.Input)
		if err != nil {
			return nil, err
		}
		return []Song{song}, nil

	case musiclink.KindYouTubeVideo:
		song, err := r.media.FetchVideo(ctx, link.URL)
		if err != nil {
			return nil, err
		}
		return []Song{song}, nil

	case musiclink.KindYouTubePlaylist:
		return r.media.FetchPlaylist(ctx, link.URL)

	case musiclink.KindSpotifyTrack:
		song, err := r.metadata.GetTrack(ctx, link.ID)
		if err != nil {
			return nil, err
		}
		return []Song{song}, nil

	case musiclink.KindSpotifyPlaylist:
		return r.metadata.GetPlaylistTracks(ctx, link.ID)

	case musiclink.KindSpotifyAlbum:
		return r.metadata.GetAlbumTracks(ctx, link.ID)

	case musiclink.KindSpotifyShortLink:
		if !expand || r.expander == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedDomain, link.Input)
		}
		return r.resolveShortLink(ctx, link)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDomain, link.Input)
	}
}

func (r *Resolver) resolveShortLink(ctx context.Context, link musiclink.Link) ([]Song, error) {
	expanded, err := r.expander.Expand(ctx, link.URL)
	if errors.Is(err, musiclink.ErrShortLinkUnresolved) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDomain, link.Input)
	}
	if err != nil {
		provider, _ := linkProvider(link.Kind)
		return nil, NewProviderError(provider, "expand short link", err)
	}

	r.logger.Debug("Expanded short link", zap.String("from", link.URL), zap.String("to", expanded))
	return r.resolveLink(ctx, r.classifier.Classify(expanded), false)
}

// linkProvider returns the provider that serves a link kind. Searches go to
// the media provider; unsupported links have none.
func linkProvider(kind musiclink.Kind) (Provider, bool) {
	switch {
	case kind.IsSpotify():
		return ProviderMetadata, true
	case kind.IsYouTube(), kind == musiclink.KindQuery:
		return ProviderMedia, true
	default:
		return 0, false
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordResolve(string, string, time.Duration) {}
func (nopRecorder) RecordMatch(string)                          {}
func (nopRecorder) RecordError(string, string)                  {}
func (nopRecorder) SetActiveSessions(int)                       {}
