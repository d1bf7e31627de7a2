package core

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Provider tags where a Song came from and whether it can be played as is.
type Provider int

const (
	// ProviderMedia marks songs hosted on a provider that serves playable media (YouTube)
	ProviderMedia Provider = iota
	// ProviderMetadata marks songs from a metadata-only provider (Spotify)
	ProviderMetadata
)

func (p Provider) String() string {
	switch p {
	case ProviderMedia:
		return "youtube"
	case ProviderMetadata:
		return "spotify"
	default:
		return "unknown"
	}
}

type Artist struct {
	Name    string
	URL     string
	IconURL string // Empty when the provider has no image
}

// Song is a resolved track. Optional fields are empty strings when absent.
type Song struct {
	ID       string
	Artist   Artist
	Duration time.Duration
	ImageURL string
	ISRC     string
	Provider Provider
	Title    string
	URL      string
}

// HasISRC reports whether the song carries an industry recording code.
func (s Song) HasISRC() bool {
	return s.ISRC != ""
}

// Playable reports whether the song can be handed to a playback engine directly.
func (s Song) Playable() bool {
	return s.Provider == ProviderMedia
}

// QueuedSong is a Song accepted into a guild queue.
type QueuedSong struct {
	Song
	GuildID   snowflake.ID
	Requester string
}

// PlaybackState is the state of a guild's playback controller.
type PlaybackState int

const (
	// StateIdle means no current song and an empty queue
	StateIdle PlaybackState = iota
	// StatePlaying means the current song is bound to the engine and unpaused
	StatePlaying
	// StatePaused means the current song is bound to the engine and paused
	StatePaused
)

func (s PlaybackState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// EventType identifies a playback engine lifecycle event.
type EventType int

const (
	// EventTrackStart is emitted when the engine starts a track
	EventTrackStart EventType = iota
	// EventTrackEnd is emitted when a track finishes, fails or is stopped
	EventTrackEnd
)

// EndReason explains why a track ended.
type EndReason string

const (
	EndReasonFinished   EndReason = "finished"
	EndReasonLoadFailed EndReason = "loadFailed"
	EndReasonStopped    EndReason = "stopped"
	EndReasonReplaced   EndReason = "replaced"
	EndReasonCleanup    EndReason = "cleanup"
)

// Advances reports whether the queue should move on after this end reason.
// Replaced tracks were superseded by a play the controller already issued and
// cleanup happens when the engine is going away.
func (r EndReason) Advances() bool {
	return r != EndReasonReplaced && r != EndReasonCleanup
}

type PlayerEvent struct {
	Type   EventType
	Reason EndReason
}

// GuildSettings is the per-guild playback preference snapshot.
type GuildSettings struct {
	Volume   int // Percent, 100 is unity gain
	Autoplay bool
}

// MediaProvider resolves songs from a provider that hosts playable media.
type MediaProvider interface {
	FetchVideo(ctx context.Context, url string) (Song, error)
	FetchPlaylist(ctx context.Context, url string) ([]Song, error)
	// Search returns the first playable video for the query or ErrNoResults.
	Search(ctx context.Context, query string) (Song, error)
	FetchRelated(ctx context.Context, url string) ([]Song, error)
}

// MetadataProvider resolves songs from a metadata-only provider.
type MetadataProvider interface {
	GetTrack(ctx context.Context, id string) (Song, error)
	GetPlaylistTracks(ctx context.Context, id string) ([]Song, error)
	GetAlbumTracks(ctx context.Context, id string) ([]Song, error)
}

// Engine opens playback sessions for voice channels.
type Engine interface {
	Join(ctx context.Context, guildID, channelID snowflake.ID) (Session, error)
}

// Session is one guild's live connection to the playback engine.
type Session interface {
	ChannelID() snowflake.ID
	Move(ctx context.Context, channelID snowflake.ID) error
	Play(ctx context.Context, song Song) error
	Pause(ctx context.Context, paused bool) error
	Stop(ctx context.Context) error
	SetVolume(ctx context.Context, percent int) error
	// Events delivers start and end events until the session is closed.
	Events() <-chan PlayerEvent
	Close(ctx context.Context) error
}

// Notifier receives fire-and-forget announcements for a guild.
type Notifier interface {
	NowPlaying(guildID snowflake.ID, song QueuedSong)
	TrackNotFound(guildID snowflake.ID, song QueuedSong)
	IdleDisconnect(guildID snowflake.ID)
}

// SettingsStore persists per-guild playback preferences.
type SettingsStore interface {
	Get(ctx context.Context, guildID snowflake.ID) (GuildSettings, error)
	SetVolume(ctx context.Context, guildID snowflake.ID, volume int) error
	SetAutoplay(ctx context.Context, guildID snowflake.ID, enabled bool) error
}

// History remembers which songs a guild has played recently.
type History interface {
	Seen(guildID snowflake.ID, song Song) bool
	Record(guildID snowflake.ID, song Song)
	Forget(guildID snowflake.ID)
}

// Recorder receives metric observations from the core.
type Recorder interface {
	RecordResolve(source, status string, took time.Duration)
	RecordMatch(outcome string)
	RecordError(component, errorType string)
	SetActiveSessions(count int)
}
