package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// fakeMedia answers searches from a map and records every query.
type fakeMedia struct {
	mu        sync.Mutex
	queries   []string
	results   map[string]Song
	errs      map[string]error
	videos    map[string]Song
	playlists map[string][]Song
	related   []Song
	// gates hold a search until the channel is closed
	gates map[string]chan struct{}
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{
		results:   make(map[string]Song),
		errs:      make(map[string]error),
		videos:    make(map[string]Song),
		playlists: make(map[string][]Song),
		gates:     make(map[string]chan struct{}),
	}
}

func (f *fakeMedia) FetchVideo(_ context.Context, url string) (Song, error) {
	if song, ok := f.videos[url]; ok {
		return song, nil
	}
	return Song{}, ErrNoResults
}

func (f *fakeMedia) FetchPlaylist(_ context.Context, url string) ([]Song, error) {
	return f.playlists[url], nil
}

func (f *fakeMedia) Search(_ context.Context, query string) (Song, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	gate := f.gates[query]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.errs[query]; ok {
		return Song{}, err
	}
	if song, ok := f.results[query]; ok {
		return song, nil
	}
	return Song{}, ErrNoResults
}

func (f *fakeMedia) FetchRelated(context.Context, string) ([]Song, error) {
	return f.related, nil
}

func (f *fakeMedia) searched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// fakeMetadata serves fixed metadata songs.
type fakeMetadata struct {
	tracks    map[string]Song
	playlists map[string][]Song
	albums    map[string][]Song
	err       error
}

func (f *fakeMetadata) GetTrack(_ context.Context, id string) (Song, error) {
	if f.err != nil {
		return Song{}, f.err
	}
	if song, ok := f.tracks[id]; ok {
		return song, nil
	}
	return Song{}, ErrNoResults
}

func (f *fakeMetadata) GetPlaylistTracks(_ context.Context, id string) ([]Song, error) {
	return f.playlists[id], f.err
}

func (f *fakeMetadata) GetAlbumTracks(_ context.Context, id string) ([]Song, error) {
	return f.albums[id], f.err
}

// fakeSession emits a start event on every play and a stopped end event on stop.
type fakeSession struct {
	mu        sync.Mutex
	channelID snowflake.ID
	played    []Song
	paused    bool
	volume    int
	closed    int
	failPlay  bool
	quietStop bool // Stop emits no end event, the test sends it
	events    chan PlayerEvent
}

func newFakeSession(channelID snowflake.ID) *fakeSession {
	return &fakeSession{channelID: channelID, events: make(chan PlayerEvent, 16)}
}

func (s *fakeSession) ChannelID() snowflake.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channelID
}

func (s *fakeSession) Move(_ context.Context, channelID snowflake.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelID = channelID
	return nil
}

func (s *fakeSession) Play(_ context.Context, song Song) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPlay {
		return errors.New("engine refused track")
	}
	s.played = append(s.played, song)
	s.paused = false
	s.events <- PlayerEvent{Type: EventTrackStart}
	return nil
}

func (s *fakeSession) Pause(_ context.Context, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
	return nil
}

func (s *fakeSession) Stop(context.Context) error {
	s.mu.Lock()
	quiet := s.quietStop
	s.mu.Unlock()
	if quiet {
		return nil
	}
	s.events <- PlayerEvent{Type: EventTrackEnd, Reason: EndReasonStopped}
	return nil
}

func (s *fakeSession) SetVolume(_ context.Context, percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = percent
	return nil
}

func (s *fakeSession) Events() <-chan PlayerEvent {
	return s.events
}

func (s *fakeSession) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// finish simulates the engine reaching the end of the current track.
func (s *fakeSession) finish() {
	s.end(EndReasonFinished)
}

func (s *fakeSession) end(reason EndReason) {
	s.events <- PlayerEvent{Type: EventTrackEnd, Reason: reason}
}

func (s *fakeSession) playedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.played))
	for i, song := range s.played {
		out[i] = song.ID
	}
	return out
}

func (s *fakeSession) volumeLevel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *fakeSession) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeEngine struct {
	mu        sync.Mutex
	sessions  []*fakeSession
	failPlay  bool
	quietStop bool
}

func (e *fakeEngine) Join(_ context.Context, _, channelID snowflake.ID) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	session := newFakeSession(channelID)
	session.failPlay = e.failPlay
	session.quietStop = e.quietStop
	e.sessions = append(e.sessions, session)
	return session, nil
}

func (e *fakeEngine) session(t *testing.T) *fakeSession {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.sessions) == 0 {
		t.Fatal("engine has no session")
	}
	return e.sessions[len(e.sessions)-1]
}

func (e *fakeEngine) joins() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

type fakeNotifier struct {
	mu         sync.Mutex
	nowPlaying []string
	notFound   []string
	idle       int
}

func (n *fakeNotifier) NowPlaying(_ snowflake.ID, song QueuedSong) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nowPlaying = append(n.nowPlaying, song.ID)
}

func (n *fakeNotifier) TrackNotFound(_ snowflake.ID, song QueuedSong) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notFound = append(n.notFound, song.ID)
}

func (n *fakeNotifier) IdleDisconnect(snowflake.ID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.idle++
}

func (n *fakeNotifier) announced() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.nowPlaying...)
}

func (n *fakeNotifier) missing() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.notFound...)
}

func (n *fakeNotifier) idleCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.idle
}

type fakeSettings struct {
	mu       sync.Mutex
	settings map[snowflake.ID]GuildSettings
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{settings: make(map[snowflake.ID]GuildSettings)}
}

func (f *fakeSettings) Get(_ context.Context, guildID snowflake.ID) (GuildSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.settings[guildID]; ok {
		return s, nil
	}
	return GuildSettings{Volume: DefaultVolume}, nil
}

func (f *fakeSettings) SetVolume(_ context.Context, guildID snowflake.ID, volume int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.settings[guildID]
	if !ok {
		s = GuildSettings{Volume: DefaultVolume}
	}
	s.Volume = volume
	f.settings[guildID] = s
	return nil
}

func (f *fakeSettings) SetAutoplay(_ context.Context, guildID snowflake.ID, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.settings[guildID]
	if !ok {
		s = GuildSettings{Volume: DefaultVolume}
	}
	s.Autoplay = enabled
	f.settings[guildID] = s
	return nil
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func mediaSong(id string) Song {
	return Song{
		ID:       id,
		Title:    "Video " + id,
		URL:      "https://www.youtube.com/watch?v=" + id,
		Provider: ProviderMedia,
		Artist:   Artist{Name: "Channel"},
	}
}

func metadataSong(id, isrc string) Song {
	return Song{
		ID:       id,
		Title:    "Track " + id,
		URL:      "https://open.spotify.com/track/" + id,
		ISRC:     isrc,
		Provider: ProviderMetadata,
		Artist:   Artist{Name: "Artist " + id},
	}
}
