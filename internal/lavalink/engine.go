// Package lavalink plays songs in Discord voice channels through a Lavalink node.
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

// eventBuffer holds engine events while the owning controller is busy.
const eventBuffer = 32

// ErrNoNode is returned when no Lavalink node is connected.
var ErrNoNode = errors.New("no lavalink node available")

// VoiceUpdater sends gateway voice state updates. A nil channel leaves voice.
type VoiceUpdater interface {
	UpdateVoiceState(ctx context.Context, guildID snowflake.ID, channelID *snowflake.ID, selfMute, selfDeaf bool) error
}

// Engine implements core.Engine with one Lavalink player per guild.
type Engine struct {
	config *core.LavalinkConfig
	voice  VoiceUpdater
	link   disgolink.Client
	logger *zap.Logger

	mutex    sync.Mutex
	sessions map[snowflake.ID]*Session
}

func NewEngine(userID snowflake.ID, voice VoiceUpdater, config *core.LavalinkConfig, logger *zap.Logger) *Engine {
	e := &Engine{
		config:   config,
		voice:    voice,
		logger:   logger,
		sessions: make(map[snowflake.ID]*Session),
	}
	e.link = disgolink.New(userID,
		disgolink.WithListenerFunc(e.onTrackStart),
		disgolink.WithListenerFunc(e.onTrackEnd),
		disgolink.WithListenerFunc(e.onTrackException),
		disgolink.WithListenerFunc(e.onTrackStuck),
	)
	return e
}

// Start connects the configured node and keeps it until ctx is done.
func (e *Engine) Start(ctx context.Context) error {
	_, err := e.link.AddNode(ctx, disgolink.NodeConfig{
		Name:     e.config.NodeName,
		Address:  e.config.Address,
		Password: e.config.Password,
		Secure:   e.config.Secure,
	})
	if err != nil {
		return fmt.Errorf("failed to connect lavalink node: %w", err)
	}

	e.logger.Info("Connected to lavalink",
		zap.String("node", e.config.NodeName),
		zap.String("address", e.config.Address))

	<-ctx.Done()
	e.link.Close()
	return nil
}

// Ready reports whether a node can take players.
func (e *Engine) Ready() error {
	if e.link.BestNode() == nil {
		return ErrNoNode
	}
	return nil
}

// Join moves the bot into channelID and opens the guild's player session.
func (e *Engine) Join(ctx context.Context, guildID, channelID snowflake.ID) (core.Session, error) {
	if err := e.voice.UpdateVoiceState(ctx, guildID, &channelID, false, true); err != nil {
		return nil, fmt.Errorf("failed to update voice state: %w", err)
	}

	session := &Session{
		engine:    e,
		guildID:   guildID,
		channelID: channelID,
		events:    make(chan core.PlayerEvent, eventBuffer),
	}

	e.mutex.Lock()
	if previous, ok := e.sessions[guildID]; ok {
		previous.closeEvents()
	}
	e.sessions[guildID] = session
	e.mutex.Unlock()

	return session, nil
}

// OnVoiceStateUpdate forwards the bot's own voice state to Lavalink.
func (e *Engine) OnVoiceStateUpdate(ctx context.Context, guildID snowflake.ID, channelID *snowflake.ID, sessionID string) {
	e.link.OnVoiceStateUpdate(ctx, guildID, channelID, sessionID)
}

// OnVoiceServerUpdate forwards voice server credentials to Lavalink.
func (e *Engine) OnVoiceServerUpdate(ctx context.Context, guildID snowflake.ID, token, endpoint string) {
	e.link.OnVoiceServerUpdate(ctx, guildID, token, endpoint)
}

func (e *Engine) session(guildID snowflake.ID) *Session {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.sessions[guildID]
}

func (e *Engine) release(s *Session) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.sessions[s.guildID] == s {
		delete(e.sessions, s.guildID)
	}
}

func (e *Engine) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	e.logger.Debug("Track started",
		zap.Stringer("guild", player.GuildID()),
		zap.String("title", event.Track.Info.Title))
	if s := e.session(player.GuildID()); s != nil {
		s.emit(core.PlayerEvent{Type: core.EventTrackStart})
	}
}

func (e *Engine) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	e.logger.Debug("Track ended",
		zap.Stringer("guild", player.GuildID()),
		zap.String("reason", string(event.Reason)))
	if s := e.session(player.GuildID()); s != nil {
		s.emit(core.PlayerEvent{Type: core.EventTrackEnd, Reason: endReason(event.Reason)})
	}
}

func (e *Engine) onTrackException(player disgolink.Player, event lavalink.TrackExceptionEvent) {
	e.logger.Warn("Track exception",
		zap.Stringer("guild", player.GuildID()),
		zap.String("title", event.Track.Info.Title),
		zap.String("message", event.Exception.Message))
}

// onTrackStuck stops the stuck track so the queue moves on.
func (e *Engine) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	e.logger.Warn("Track stuck, stopping",
		zap.Stringer("guild", player.GuildID()),
		zap.String("title", event.Track.Info.Title))
	if err := player.Update(context.Background(), lavalink.WithNullTrack()); err != nil {
		e.logger.Warn("Failed to stop stuck track", zap.Error(err))
	}
}

func endReason(reason lavalink.TrackEndReason) core.EndReason {
	switch reason {
	case lavalink.TrackEndReasonFinished:
		return core.EndReasonFinished
	case lavalink.TrackEndReasonLoadFailed:
		return core.EndReasonLoadFailed
	case lavalink.TrackEndReasonStopped:
		return core.EndReasonStopped
	case lavalink.TrackEndReasonReplaced:
		return core.EndReasonReplaced
	case lavalink.TrackEndReasonCleanup:
		return core.EndReasonCleanup
	default:
		return core.EndReason(reason)
	}
}
