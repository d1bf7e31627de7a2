package discord

import (
	"context"
	"errors"
	"slices"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"

	"musebot/internal/core"
)

func (b *Bot) forwarder() VoiceForwarder {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.voice
}

func (b *Bot) onVoiceStateUpdate(event *events.GuildVoiceStateUpdate) {
	state := event.VoiceState
	self := b.client.ApplicationID

	if state.UserID == self {
		if voice := b.forwarder(); voice != nil {
			voice.OnVoiceStateUpdate(context.Background(), state.GuildID, state.ChannelID, state.SessionID)
		}
		if state.ChannelID == nil {
			// Kicked or disconnected from outside; a teardown we started finds nothing left.
			go b.teardown(state.GuildID, "disconnected")
		}
		return
	}

	own, ok := b.client.Caches.VoiceState(state.GuildID, self)
	if !ok || own.ChannelID == nil {
		return
	}

	states := slices.Collect(b.client.Caches.VoiceStates(state.GuildID))
	if listeners(states, *own.ChannelID, self, b.isBot(state.GuildID)) == 0 {
		go b.teardown(state.GuildID, "channel empty")
	}
}

func (b *Bot) onVoiceServerUpdate(event *events.VoiceServerUpdate) {
	if event.Endpoint == nil {
		return
	}
	if voice := b.forwarder(); voice != nil {
		voice.OnVoiceServerUpdate(context.Background(), event.GuildID, event.Token, *event.Endpoint)
	}
}

func (b *Bot) isBot(guildID snowflake.ID) func(userID snowflake.ID) bool {
	return func(userID snowflake.ID) bool {
		member, ok := b.client.Caches.Member(guildID, userID)
		return ok && member.User.Bot
	}
}

func (b *Bot) teardown(guildID snowflake.ID, reason string) {
	err := b.player.Teardown(context.Background(), guildID)
	if errors.Is(err, core.ErrNotConnected) {
		return
	}
	if err != nil {
		b.logger.Warn("Failed to tear down guild", zap.Stringer("guild", guildID), zap.Error(err))
		return
	}
	b.logger.Info("Left voice channel", zap.Stringer("guild", guildID), zap.String("reason", reason))
}

// listeners counts the users other than self and bots in channelID.
// Members missing from the cache count as listeners.
func listeners(states []discord.VoiceState, channelID, self snowflake.ID, isBot func(snowflake.ID) bool) int {
	count := 0
	for _, state := range states {
		if state.ChannelID == nil || *state.ChannelID != channelID || state.UserID == self {
			continue
		}
		if isBot(state.UserID) {
			continue
		}
		count++
	}
	return count
}
