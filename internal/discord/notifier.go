package discord

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"

	"musebot/internal/core"
)

const (
	notifyTimeout = 10 * time.Second
	// embedColor is the accent of now playing embeds
	embedColor = 0x1DB954
)

func (b *Bot) rememberChannel(guildID, channelID snowflake.ID) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.textChannels[guildID] = channelID
}

func (b *Bot) textChannel(guildID snowflake.ID) (snowflake.ID, bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	channelID, ok := b.textChannels[guildID]
	return channelID, ok
}

// NowPlaying announces the song that just started.
func (b *Bot) NowPlaying(guildID snowflake.ID, song core.QueuedSong) {
	b.notify(guildID, discord.NewMessageCreate().
		AddEmbeds(nowPlayingEmbed(b.localizer.T("bot.now_playing",
			escapeMarkdown(song.Title), escapeMarkdown(song.Artist.Name), escapeMarkdown(song.Requester)), song)))
}

// TrackNotFound tells the guild a queued song had no playable version.
func (b *Bot) TrackNotFound(guildID snowflake.ID, song core.QueuedSong) {
	b.notify(guildID, discord.NewMessageCreate().
		WithContent(b.localizer.T("bot.track_not_found", escapeMarkdown(song.Title), escapeMarkdown(song.Artist.Name))))
}

// IdleDisconnect tells the guild the bot left because nothing was queued.
func (b *Bot) IdleDisconnect(guildID snowflake.ID) {
	b.notify(guildID, discord.NewMessageCreate().
		WithContent(b.localizer.T("bot.idle_disconnect")))
}

func nowPlayingEmbed(description string, song core.QueuedSong) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetDescription(description).
		SetColor(embedColor)
	if song.URL != "" {
		builder.SetTitle(song.Title).SetURL(song.URL)
	}
	if song.Artist.Name != "" {
		builder.SetAuthor(song.Artist.Name, song.Artist.URL, song.Artist.IconURL)
	}
	if song.ImageURL != "" {
		builder.SetThumbnail(song.ImageURL)
	}
	if song.Duration > 0 {
		builder.SetFooterText(formatDuration(song.Duration))
	}
	return builder.Build()
}

// notify sends without blocking the caller, which is a guild controller.
func (b *Bot) notify(guildID snowflake.ID, message discord.MessageCreate) {
	channelID, ok := b.textChannel(guildID)
	if !ok {
		b.logger.Debug("No text channel to notify", zap.Stringer("guild", guildID))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if _, err := b.client.Rest.CreateMessage(channelID, message, rest.WithCtx(ctx)); err != nil {
			b.recorder.RecordError("discord", "notify")
			b.logger.Warn("Failed to send notification",
				zap.Stringer("guild", guildID),
				zap.Stringer("channel", channelID),
				zap.Error(err))
		}
	}()
}
