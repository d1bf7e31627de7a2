package youtube

import (
	"context"

	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
)

// SearchBackend returns video ids for a free-text query, best match first.
type SearchBackend interface {
	Name() string
	Search(ctx context.Context, query string) ([]string, error)
}

type webSearch struct {
	client *ytsearch.Client
}

// NewWebSearch searches youtube.com results pages.
func NewWebSearch() SearchBackend {
	return &webSearch{client: ytsearch.NewClient(nil)}
}

func (s *webSearch) Name() string { return "youtube" }

func (s *webSearch) Search(ctx context.Context, query string) ([]string, error) {
	res, err := s.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(res.Results))
	for _, v := range res.Results {
		// Channels and playlists come back without a video id.
		if v.VideoID == "" {
			continue
		}
		ids = append(ids, v.VideoID)
	}
	return ids, nil
}

type musicSearch struct{}

// NewMusicSearch searches YouTube Music tracks.
func NewMusicSearch() SearchBackend {
	return musicSearch{}
}

func (musicSearch) Name() string { return "youtube_music" }

func (musicSearch) Search(ctx context.Context, query string) ([]string, error) {
	type result struct {
		ids []string
		err error
	}
	done := make(chan result, 1)

	// The ytmusic client takes no context, so honor cancellation around it.
	go func() {
		res, err := ytmusic.TrackSearch(query).Next()
		if err != nil {
			done <- result{err: err}
			return
		}
		ids := make([]string, 0, len(res.Tracks))
		for _, track := range res.Tracks {
			if track.VideoID == "" {
				continue
			}
			ids = append(ids, track.VideoID)
		}
		done <- result{ids: ids}
	}()

	select {
	case r := <-done:
		return r.ids, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
