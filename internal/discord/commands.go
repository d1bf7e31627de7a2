package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"

	"musebot/internal/core"
	"musebot/internal/i18n"
)

// Player is the guild session registry the commands drive.
type Player interface {
	Play(ctx context.Context, req core.PlayRequest) (core.PlayResult, error)
	Skip(ctx context.Context, guildID snowflake.ID, n int) ([]core.QueuedSong, error)
	Remove(ctx context.Context, guildID snowflake.ID, index, count int) ([]core.QueuedSong, error)
	Pause(ctx context.Context, guildID snowflake.ID) (bool, error)
	Resume(ctx context.Context, guildID snowflake.ID) (bool, error)
	Snapshot(ctx context.Context, guildID snowflake.ID) (core.Snapshot, error)
	Teardown(ctx context.Context, guildID snowflake.ID) error
	SetVolume(ctx context.Context, guildID snowflake.ID, percent int) error
	SetAutoplay(ctx context.Context, guildID snowflake.ID, enabled bool) error
	ActiveGuilds() int
}

// options reads slash command options. discord.SlashCommandInteractionData implements it.
type options interface {
	OptString(name string) (string, bool)
	OptInt(name string) (int, bool)
	OptBool(name string) (bool, bool)
}

// request is one slash command invocation in a guild.
type request struct {
	guildID   snowflake.ID
	channelID snowflake.ID // Text channel the command was used in
	userID    snowflake.ID
	username  string
	// voiceChannelID is the requester's voice channel, nil when not in voice.
	voiceChannelID *snowflake.ID
	options        options
}

type handler func(ctx context.Context, req request) (string, error)

// commandSet implements the slash commands on top of a Player.
type commandSet struct {
	player    Player
	localizer *i18n.Localizer
	started   time.Time
	guilds    func() int
	handlers  map[string]handler
}

func newCommandSet(player Player, localizer *i18n.Localizer, guilds func() int) *commandSet {
	c := &commandSet{
		player:    player,
		localizer: localizer,
		started:   time.Now(),
		guilds:    guilds,
	}
	c.handlers = map[string]handler{
		"play":     c.play,
		"skip":     c.skip,
		"remove":   c.remove,
		"pause":    c.pause,
		"resume":   c.resume,
		"stop":     c.stop,
		"queue":    c.queue,
		"volume":   c.volume,
		"autoplay": c.autoplay,
		"stats":    c.stats,
	}
	return c
}

// definitions returns the slash commands to register with Discord.
func definitions() []discord.ApplicationCommandCreate {
	guildOnly := []discord.InteractionContextType{discord.InteractionContextTypeGuild}

	return []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{
			Name:        "play",
			Description: "Play a song or playlist from YouTube or Spotify, or search YouTube",
			Contexts:    guildOnly,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "query",
					Description: "A link or search terms",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "position",
					Description: "Queue position to insert at (default: end of the queue)",
					Required:    false,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        "skip",
			Description: "Skip the current song",
			Contexts:    guildOnly,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "amount",
					Description: "Number of songs to skip, the current one included (default: 1)",
					Required:    false,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        "remove",
			Description: "Remove songs from the queue",
			Contexts:    guildOnly,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "position",
					Description: "Queue position of the first song to remove",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "count",
					Description: "Number of songs to remove (default: 1)",
					Required:    false,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        "pause",
			Description: "Pause playback",
			Contexts:    guildOnly,
		},
		discord.SlashCommandCreate{
			Name:        "resume",
			Description: "Resume playback",
			Contexts:    guildOnly,
		},
		discord.SlashCommandCreate{
			Name:        "stop",
			Description: "Stop playback, clear the queue and leave the voice channel",
			Contexts:    guildOnly,
		},
		discord.SlashCommandCreate{
			Name:        "queue",
			Description: "Show the queue",
			Contexts:    guildOnly,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "page",
					Description: "Page to show (default: 1)",
					Required:    false,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        "volume",
			Description: "Set the playback volume",
			Contexts:    guildOnly,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "amount",
					Description: fmt.Sprintf("Volume in percent (0-%d)", core.MaxVolume),
					Required:    true,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        "autoplay",
			Description: "Keep playing related songs when the queue runs out",
			Contexts:    guildOnly,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionBool{
					Name:        "enabled",
					Description: "Whether autoplay is on",
					Required:    true,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        "stats",
			Description: "Show bot statistics",
			Contexts:    guildOnly,
		},
	}
}

func (c *commandSet) play(ctx context.Context, req request) (string, error) {
	query, _ := req.options.OptString("query")
	if req.voiceChannelID == nil {
		return "", errNotInVoice
	}

	index := -1
	if position, ok := req.options.OptInt("position"); ok {
		var err error
		if index, err = toIndex(position); err != nil {
			return "", err
		}
	}

	result, err := c.player.Play(ctx, core.PlayRequest{
		GuildID:   req.guildID,
		ChannelID: *req.voiceChannelID,
		Query:     query,
		Requester: req.username,
		Index:     index,
	})
	if err != nil {
		return "", err
	}
	if len(result.Songs) == 0 {
		return "", fmt.Errorf("%w: %s", core.ErrNoResults, query)
	}

	first := result.Songs[0]
	switch {
	case len(result.Songs) > 1:
		return c.localizer.T("success.queued_many", len(result.Songs), escapeMarkdown(first.Title)), nil
	case result.Started:
		return c.localizer.T("success.playing", escapeMarkdown(first.Title), escapeMarkdown(first.Artist.Name)), nil
	default:
		return c.localizer.T("success.queued", escapeMarkdown(first.Title), escapeMarkdown(first.Artist.Name),
			result.Position), nil
	}
}

func (c *commandSet) skip(ctx context.Context, req request) (string, error) {
	amount := 1
	if n, ok := req.options.OptInt("amount"); ok {
		if n < 1 {
			return "", fmt.Errorf("%w: amount must be 1 or more", core.ErrInvalidArgument)
		}
		amount = n
	}

	removed, err := c.player.Skip(ctx, req.guildID, amount)
	if err != nil {
		return "", err
	}
	return c.localizer.T("success.skipped", len(removed)), nil
}

func (c *commandSet) remove(ctx context.Context, req request) (string, error) {
	position, _ := req.options.OptInt("position")
	index, err := toIndex(position)
	if err != nil {
		return "", err
	}
	count := 1
	if n, ok := req.options.OptInt("count"); ok {
		if n < 1 {
			return "", fmt.Errorf("%w: count must be 1 or more", core.ErrInvalidArgument)
		}
		count = n
	}

	removed, err := c.player.Remove(ctx, req.guildID, index, count)
	if err != nil {
		return "", err
	}
	if len(removed) == 0 {
		return "", fmt.Errorf("%w: there is no song at position %d", core.ErrInvalidArgument, position)
	}
	return c.localizer.T("success.removed", len(removed)), nil
}

func (c *commandSet) pause(ctx context.Context, req request) (string, error) {
	changed, err := c.player.Pause(ctx, req.guildID)
	if err != nil {
		return "", err
	}
	if !changed {
		return c.localizer.T("success.already_paused"), nil
	}
	return c.localizer.T("success.paused"), nil
}

func (c *commandSet) resume(ctx context.Context, req request) (string, error) {
	changed, err := c.player.Resume(ctx, req.guildID)
	if err != nil {
		return "", err
	}
	if !changed {
		return c.localizer.T("success.not_paused"), nil
	}
	return c.localizer.T("success.resumed"), nil
}

func (c *commandSet) stop(ctx context.Context, req request) (string, error) {
	if err := c.player.Teardown(ctx, req.guildID); err != nil {
		return "", err
	}
	return c.localizer.T("success.stopped"), nil
}

func (c *commandSet) queue(ctx context.Context, req request) (string, error) {
	page := 1
	if p, ok := req.options.OptInt("page"); ok {
		page = p
	}

	snap, err := c.player.Snapshot(ctx, req.guildID)
	if err != nil {
		return "", err
	}
	return formatQueue(c.localizer, snap, page)
}

func (c *commandSet) volume(ctx context.Context, req request) (string, error) {
	amount, _ := req.options.OptInt("amount")
	if err := c.player.SetVolume(ctx, req.guildID, amount); err != nil {
		return "", err
	}
	return c.localizer.T("success.volume", amount), nil
}

func (c *commandSet) autoplay(ctx context.Context, req request) (string, error) {
	enabled, _ := req.options.OptBool("enabled")
	if err := c.player.SetAutoplay(ctx, req.guildID, enabled); err != nil {
		return "", err
	}
	if enabled {
		return c.localizer.T("success.autoplay_on"), nil
	}
	return c.localizer.T("success.autoplay_off"), nil
}

func (c *commandSet) stats(_ context.Context, _ request) (string, error) {
	days := int(time.Since(c.started).Hours() / 24)
	return c.localizer.T("bot.stats", days, c.guilds(), c.player.ActiveGuilds()), nil
}
