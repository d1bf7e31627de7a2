// Package discord is the bot's Discord front end: slash commands, voice
// state tracking and channel notifications.
package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"

	"musebot/internal/core"
	"musebot/internal/flood"
	"musebot/internal/i18n"
)

// commandTimeout bounds a single command, resolution of large playlists included.
const commandTimeout = 2 * time.Minute

// ErrNotReady is reported by Ready until the gateway has connected.
var ErrNotReady = errors.New("discord gateway not ready")

// VoiceForwarder receives the bot's own voice credentials.
type VoiceForwarder interface {
	OnVoiceStateUpdate(ctx context.Context, guildID snowflake.ID, channelID *snowflake.ID, sessionID string)
	OnVoiceServerUpdate(ctx context.Context, guildID snowflake.ID, token, endpoint string)
}

// Recorder receives command metrics.
type Recorder interface {
	RecordCommand(command, status string)
	RecordError(component, errorType string)
}

// BotDeps are the collaborators of the front end.
type BotDeps struct {
	Player    Player
	Floodgate *flood.Floodgate
	Localizer *i18n.Localizer
	Recorder  Recorder
}

// Bot owns the gateway connection. It implements core.Notifier and the voice
// updater the playback engine needs.
type Bot struct {
	config    *core.DiscordConfig
	client    *bot.Client
	commands  *commandSet
	player    Player
	floodgate *flood.Floodgate
	localizer *i18n.Localizer
	recorder  Recorder
	logger    *zap.Logger
	ready     atomic.Bool

	mutex sync.Mutex
	voice VoiceForwarder
	// textChannels is the channel of each guild's latest command, where notifications go.
	textChannels map[snowflake.ID]snowflake.ID
	guilds       map[snowflake.ID]struct{}
}

func NewBot(config *core.DiscordConfig, deps BotDeps, logger *zap.Logger) (*Bot, error) {
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	b := &Bot{
		config:       config,
		player:       deps.Player,
		floodgate:    deps.Floodgate,
		localizer:    deps.Localizer,
		recorder:     deps.Recorder,
		logger:       logger,
		textChannels: make(map[snowflake.ID]snowflake.ID),
		guilds:       make(map[snowflake.ID]struct{}),
	}
	b.commands = newCommandSet(deps.Player, deps.Localizer, b.guildCount)

	client, err := disgo.New(config.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMembers,
				gateway.IntentGuildVoiceStates,
			),
			gateway.WithPresenceOpts(
				gateway.WithListeningActivity("/play"),
				gateway.WithOnlineStatus(discord.OnlineStatusOnline),
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds, cache.FlagMembers, cache.FlagChannels, cache.FlagVoiceStates),
		),
		bot.WithEventListenerFunc(b.onReady),
		bot.WithEventListenerFunc(b.onGuildReady),
		bot.WithEventListenerFunc(b.onGuildJoin),
		bot.WithEventListenerFunc(b.onGuildLeave),
		bot.WithEventListenerFunc(b.onCommand),
		bot.WithEventListenerFunc(b.onVoiceStateUpdate),
		bot.WithEventListenerFunc(b.onVoiceServerUpdate),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord client: %w", err)
	}
	b.client = client

	return b, nil
}

// UserID is the bot's user id, known from the token before the gateway opens.
func (b *Bot) UserID() snowflake.ID {
	return b.client.ApplicationID
}

// SetVoiceForwarder sets where the bot's own voice updates go.
func (b *Bot) SetVoiceForwarder(voice VoiceForwarder) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.voice = voice
}

// Start opens the gateway, registers the commands and blocks until ctx is done.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.client.Close(closeCtx)
	}()

	if err := b.registerCommands(); err != nil {
		return err
	}

	<-ctx.Done()
	b.ready.Store(false)
	b.logger.Info("Disconnecting from discord")
	return nil
}

func (b *Bot) registerCommands() error {
	commands := definitions()

	if b.config.GuildID != "" {
		guildID, err := snowflake.Parse(b.config.GuildID)
		if err != nil {
			return fmt.Errorf("invalid discord guild id %q: %w", b.config.GuildID, err)
		}
		if _, err := b.client.Rest.SetGuildCommands(b.client.ApplicationID, guildID, commands); err != nil {
			return fmt.Errorf("failed to register guild commands: %w", err)
		}
		b.logger.Info("Registered guild commands", zap.Stringer("guild", guildID), zap.Int("commands", len(commands)))
		return nil
	}

	if _, err := b.client.Rest.SetGlobalCommands(b.client.ApplicationID, commands); err != nil {
		return fmt.Errorf("failed to register global commands: %w", err)
	}
	b.logger.Info("Registered global commands", zap.Int("commands", len(commands)))
	return nil
}

// Ready is the readiness check of the front end.
func (b *Bot) Ready() error {
	if !b.ready.Load() {
		return ErrNotReady
	}
	return nil
}

// UpdateVoiceState joins, moves or (with a nil channel) leaves voice in a guild.
func (b *Bot) UpdateVoiceState(ctx context.Context, guildID snowflake.ID, channelID *snowflake.ID, selfMute, selfDeaf bool) error {
	return b.client.UpdateVoiceState(ctx, guildID, channelID, selfMute, selfDeaf)
}

func (b *Bot) onReady(event *events.Ready) {
	b.ready.Store(true)
	b.logger.Info("Connected to discord",
		zap.String("user", event.User.Username),
		zap.Stringer("id", event.User.ID))
}

func (b *Bot) onGuildReady(event *events.GuildReady) {
	b.trackGuild(event.GuildID, true)
}

func (b *Bot) onGuildJoin(event *events.GuildJoin) {
	b.trackGuild(event.GuildID, true)
}

func (b *Bot) onGuildLeave(event *events.GuildLeave) {
	b.trackGuild(event.GuildID, false)
	go b.teardown(event.GuildID, "left guild")
}

func (b *Bot) trackGuild(guildID snowflake.ID, present bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if present {
		b.guilds[guildID] = struct{}{}
		return
	}
	delete(b.guilds, guildID)
	delete(b.textChannels, guildID)
}

func (b *Bot) guildCount() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.guilds)
}

func (b *Bot) onCommand(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	name := data.CommandName()

	guildID := event.GuildID()
	if guildID == nil {
		b.reply(event, b.localizer.T("error.guild_only"))
		return
	}

	user := event.User()
	if b.floodgate != nil && !b.floodgate.CheckMessage(guildID.String(), user.ID.String()) {
		b.recorder.RecordCommand(name, "rate_limited")
		b.reply(event, b.localizer.T("error.rate_limited", b.floodgate.GetStats().LimitPerMinute))
		return
	}

	handle, ok := b.commands.handlers[name]
	if !ok {
		b.logger.Warn("Unknown command", zap.String("command", name))
		return
	}

	req := request{
		guildID:   *guildID,
		channelID: event.Channel().ID(),
		userID:    user.ID,
		username:  user.Username,
		options:   data,
	}
	if state, ok := b.client.Caches.VoiceState(*guildID, user.ID); ok {
		req.voiceChannelID = state.ChannelID
	}
	b.rememberChannel(req.guildID, req.channelID)

	if err := event.DeferCreateMessage(false); err != nil {
		b.logger.Warn("Failed to acknowledge command", zap.String("command", name), zap.Error(err))
		return
	}

	// The gateway delivers events one at a time, so commands run on their own goroutine.
	go b.run(event, name, handle, req)
}

func (b *Bot) run(event *events.ApplicationCommandInteractionCreate, name string, handle handler, req request) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	content, err := handle(ctx, req)
	if err != nil {
		subject, _ := req.options.OptString("query")
		var errorType string
		content, errorType = errorReply(b.localizer, err, subject)
		b.recorder.RecordCommand(name, "error")
		if !isUserError(err) {
			b.recorder.RecordError("discord", errorType)
			b.logger.Error("Command failed",
				zap.String("command", name),
				zap.Stringer("guild", req.guildID),
				zap.Error(err))
		} else {
			b.logger.Debug("Command rejected",
				zap.String("command", name),
				zap.Stringer("guild", req.guildID),
				zap.Error(err))
		}
	} else {
		b.recorder.RecordCommand(name, "ok")
	}

	if _, err := b.client.Rest.UpdateInteractionResponse(event.ApplicationID(), event.Token(),
		discord.NewMessageUpdate().WithContent(content)); err != nil {
		b.logger.Warn("Failed to answer command", zap.String("command", name), zap.Error(err))
	}
}

func (b *Bot) reply(event *events.ApplicationCommandInteractionCreate, content string) {
	if err := event.CreateMessage(discord.NewMessageCreate().
		WithContent(content).
		WithEphemeral(true)); err != nil {
		b.logger.Warn("Failed to reply", zap.Error(err))
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordCommand(string, string) {}
func (nopRecorder) RecordError(string, string)   {}
