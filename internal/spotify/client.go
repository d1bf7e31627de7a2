// Package spotify resolves tracks, playlists and albums through the Spotify Web API.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"musebot/internal/core"
	"musebot/pkg/musiclink"
)

const (
	// PageSize is the number of items requested per page
	PageSize = 50
	// MaxArtistsPerRequest is the limit of the several-artists endpoint
	MaxArtistsPerRequest = 50
	// ArtistImageCacheSize bounds the artist image cache
	ArtistImageCacheSize = 2048
	// DefaultRequestsPerSecond is used when the config leaves the rate unset
	DefaultRequestsPerSecond = 10
)

type Client struct {
	config   *core.SpotifyConfig
	logger   *zap.Logger
	client   *spotify.Client
	renewer  *tokenRenewer
	limiter  *rate.Limiter
	images   *lru.Cache[spotify.ID, string]
	baseURL  string
	httpDoer *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient uses httpClient as is, without client credentials.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpDoer = httpClient
	}
}

// WithBaseURL points the client at another API root, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func NewClient(config *core.SpotifyConfig, logger *zap.Logger, opts ...Option) *Client {
	rps := config.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	images, _ := lru.New[spotify.ID, string](ArtistImageCacheSize)

	c := &Client{
		config:  config,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		images:  images,
	}
	for _, opt := range opts {
		opt(c)
	}

	httpClient := c.httpDoer
	if httpClient == nil {
		c.renewer = newTokenRenewer(config.ClientID, config.ClientSecret, logger)
		httpClient = &http.Client{
			Transport: &oauth2.Transport{Source: c.renewer, Base: http.DefaultTransport},
			Timeout:   30 * time.Second,
		}
	}

	var clientOpts []spotify.ClientOption
	if c.baseURL != "" {
		clientOpts = append(clientOpts, spotify.WithBaseURL(c.baseURL))
	}
	c.client = spotify.New(httpClient, clientOpts...)

	return c
}

// Start keeps the access token fresh until ctx is done.
func (c *Client) Start(ctx context.Context) error {
	if c.renewer == nil {
		<-ctx.Done()
		return nil
	}
	c.renewer.run(ctx)
	return nil
}

func (c *Client) GetTrack(ctx context.Context, trackID string) (core.Song, error) {
	if err := c.wait(ctx); err != nil {
		return core.Song{}, err
	}

	track, err := c.client.GetTrack(ctx, spotify.ID(trackID))
	if err != nil {
		return core.Song{}, core.NewProviderError(core.ProviderMetadata, "get track", err)
	}

	song := c.convertFullTrack(track)
	if len(track.Artists) > 0 {
		icons, err := c.artistImages(ctx, []spotify.ID{track.Artists[0].ID})
		if err != nil {
			c.logger.Warn("Failed to fetch artist image", zap.String("trackID", trackID), zap.Error(err))
		}
		if icon := icons[track.Artists[0].ID]; icon != "" {
			song.Artist.IconURL = icon
		}
	}
	return song, nil
}

// GetPlaylistTracks returns every track of a playlist in playlist order.
// Local and unavailable entries are skipped.
func (c *Client) GetPlaylistTracks(ctx context.Context, playlistID string) ([]core.Song, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	page, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(PageSize))
	if err != nil {
		return nil, core.NewProviderError(core.ProviderMetadata, "get playlist", err)
	}

	var (
		songs   []core.Song
		artists []spotify.ID
	)
	for {
		for i := range page.Items {
			track := page.Items[i].Track.Track
			if track == nil || track.ID == "" {
				continue
			}
			songs = append(songs, c.convertFullTrack(track))
			artists = append(artists, primaryArtist(track.Artists))
		}

		if page.Next == "" {
			break
		}
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		if err := c.client.NextPage(ctx, page); err != nil {
			if errors.Is(err, spotify.ErrNoMorePages) {
				break
			}
			return nil, core.NewProviderError(core.ProviderMetadata, "get playlist page", err)
		}
	}

	c.applyArtistImages(ctx, songs, artists)

	c.logger.Debug("Fetched playlist",
		zap.String("playlistID", playlistID),
		zap.Int("tracks", len(songs)))
	return songs, nil
}

// GetAlbumTracks returns every track of an album. Album listings carry no ISRC.
func (c *Client) GetAlbumTracks(ctx context.Context, albumID string) ([]core.Song, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	album, err := c.client.GetAlbum(ctx, spotify.ID(albumID))
	if err != nil {
		return nil, core.NewProviderError(core.ProviderMetadata, "get album", err)
	}

	cover := firstImage(album.Images)
	page := &album.Tracks

	var (
		songs   []core.Song
		artists []spotify.ID
	)
	for {
		for i := range page.Tracks {
			track := &page.Tracks[i]
			if track.ID == "" {
				continue
			}
			songs = append(songs, c.convertSimpleTrack(track, cover))
			artists = append(artists, primaryArtist(track.Artists))
		}

		if page.Next == "" {
			break
		}
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		if err := c.client.NextPage(ctx, page); err != nil {
			if errors.Is(err, spotify.ErrNoMorePages) {
				break
			}
			return nil, core.NewProviderError(core.ProviderMetadata, "get album page", err)
		}
	}

	c.applyArtistImages(ctx, songs, artists)

	c.logger.Debug("Fetched album",
		zap.String("albumID", albumID),
		zap.String("name", album.Name),
		zap.Int("tracks", len(songs)))
	return songs, nil
}

// applyArtistImages sets each song's artist icon, falling back to the cover.
func (c *Client) applyArtistImages(ctx context.Context, songs []core.Song, artists []spotify.ID) {
	icons, err := c.artistImages(ctx, artists)
	if err != nil {
		c.logger.Warn("Failed to fetch artist images, using covers", zap.Error(err))
	}
	for i := range songs {
		if icon := icons[artists[i]]; icon != "" {
			songs[i].Artist.IconURL = icon
		}
	}
}

// artistImages returns the first image of every distinct artist, served from
// the cache where possible and fetched in batches otherwise. Artists without
// an image are absent from the result.
func (c *Client) artistImages(ctx context.Context, ids []spotify.ID) (map[spotify.ID]string, error) {
	result := make(map[spotify.ID]string, len(ids))
	seen := make(map[spotify.ID]bool, len(ids))

	var missing []spotify.ID
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if url, ok := c.images.Get(id); ok {
			if url != "" {
				result[id] = url
			}
			continue
		}
		missing = append(missing, id)
	}

	for start := 0; start < len(missing); start += MaxArtistsPerRequest {
		end := min(start+MaxArtistsPerRequest, len(missing))

		if err := c.wait(ctx); err != nil {
			return result, err
		}
		artists, err := c.client.GetArtists(ctx, missing[start:end]...)
		if err != nil {
			return result, core.NewProviderError(core.ProviderMetadata, "get artists", err)
		}

		for _, artist := range artists {
			if artist == nil {
				continue
			}
			url := firstImage(artist.Images)
			c.images.Add(artist.ID, url)
			if url != "" {
				result[artist.ID] = url
			}
		}
	}

	return result, nil
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

func (c *Client) convertFullTrack(track *spotify.FullTrack) core.Song {
	song := c.convertSimpleTrack(&track.SimpleTrack, firstImage(track.Album.Images))
	song.ISRC = track.ExternalIDs["isrc"]
	return song
}

func (c *Client) convertSimpleTrack(track *spotify.SimpleTrack, cover string) core.Song {
	names := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		names = append(names, artist.Name)
	}

	var artistURL string
	if len(track.Artists) > 0 {
		artistURL = track.Artists[0].ExternalURLs["spotify"]
	}

	url := track.ExternalURLs["spotify"]
	if url == "" {
		url = musiclink.SpotifyOpenURL + "track/" + string(track.ID)
	}

	return core.Song{
		ID: string(track.ID),
		Artist: core.Artist{
			Name:    strings.Join(names, ", "),
			URL:     artistURL,
			IconURL: cover,
		},
		Duration: time.Duration(track.Duration) * time.Millisecond,
		ImageURL: cover,
		Provider: core.ProviderMetadata,
		Title:    track.Name,
		URL:      url,
	}
}

func primaryArtist(artists []spotify.SimpleArtist) spotify.ID {
	if len(artists) == 0 {
		return ""
	}
	return artists[0].ID
}

func firstImage(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}
