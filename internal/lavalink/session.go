package lavalink

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"

	"musebot/internal/core"
)

// Session is one guild's Lavalink player. It implements core.Session.
type Session struct {
	engine  *Engine
	guildID snowflake.ID

	mutex     sync.Mutex
	channelID snowflake.ID
	events    chan core.PlayerEvent
	closed    bool
}

func (s *Session) ChannelID() snowflake.ID {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.channelID
}

func (s *Session) Move(ctx context.Context, channelID snowflake.ID) error {
	if err := s.engine.voice.UpdateVoiceState(ctx, s.guildID, &channelID, false, true); err != nil {
		return fmt.Errorf("failed to move voice state: %w", err)
	}
	s.mutex.Lock()
	s.channelID = channelID
	s.mutex.Unlock()
	return nil
}

// Play loads the song on the best node and starts it unpaused.
func (s *Session) Play(ctx context.Context, song core.Song) error {
	track, err := s.load(ctx, song.URL)
	if err != nil {
		return err
	}
	return s.player().Update(ctx, lavalink.WithTrack(track), lavalink.WithPaused(false))
}

func (s *Session) load(ctx context.Context, identifier string) (lavalink.Track, error) {
	node := s.engine.link.BestNode()
	if node == nil {
		return lavalink.Track{}, ErrNoNode
	}

	var (
		track   lavalink.Track
		loadErr error
	)
	node.LoadTracksHandler(ctx, identifier, disgolink.NewResultHandler(
		func(loaded lavalink.Track) {
			track = loaded
		},
		func(playlist lavalink.Playlist) {
			if len(playlist.Tracks) == 0 {
				loadErr = fmt.Errorf("%w: empty playlist %s", core.ErrNoResults, identifier)
				return
			}
			track = playlist.Tracks[0]
		},
		func(tracks []lavalink.Track) {
			if len(tracks) == 0 {
				loadErr = fmt.Errorf("%w: %s", core.ErrNoResults, identifier)
				return
			}
			track = tracks[0]
		},
		func() {
			loadErr = fmt.Errorf("%w: %s", core.ErrNoResults, identifier)
		},
		func(err error) {
			loadErr = fmt.Errorf("failed to load track: %w", err)
		},
	))

	if loadErr != nil {
		return lavalink.Track{}, loadErr
	}
	return track, nil
}

func (s *Session) Pause(ctx context.Context, paused bool) error {
	return s.player().Update(ctx, lavalink.WithPaused(paused))
}

// Stop ends the current track. The engine answers with a stopped end event.
func (s *Session) Stop(ctx context.Context) error {
	return s.player().Update(ctx, lavalink.WithNullTrack())
}

func (s *Session) SetVolume(ctx context.Context, percent int) error {
	return s.player().Update(ctx, lavalink.WithVolume(percent))
}

func (s *Session) Events() <-chan core.PlayerEvent {
	return s.events
}

// Close leaves the voice channel and destroys the player.
func (s *Session) Close(ctx context.Context) error {
	s.engine.release(s)
	s.closeEvents()

	var errs []error
	if player := s.engine.link.ExistingPlayer(s.guildID); player != nil {
		if err := player.Destroy(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to destroy player: %w", err))
		}
		s.engine.link.RemovePlayer(s.guildID)
	}
	if err := s.engine.voice.UpdateVoiceState(ctx, s.guildID, nil, false, false); err != nil {
		errs = append(errs, fmt.Errorf("failed to leave voice channel: %w", err))
	}

	return errors.Join(errs...)
}

func (s *Session) player() disgolink.Player {
	return s.engine.link.Player(s.guildID)
}

// emit delivers an event without blocking the Lavalink read loop.
func (s *Session) emit(event core.PlayerEvent) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- event:
	default:
		s.engine.logger.Warn("Dropped player event, controller is not keeping up",
			zap.Stringer("guild", s.guildID))
	}
}

func (s *Session) closeEvents() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}
