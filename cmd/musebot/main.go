// Package main provides the musebot CLI application entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"musebot/internal/core"
	"musebot/internal/discord"
	"musebot/internal/flood"
	httpserver "musebot/internal/http"
	"musebot/internal/i18n"
	"musebot/internal/lavalink"
	"musebot/internal/spotify"
	"musebot/internal/store"
	"musebot/internal/youtube"
	"musebot/pkg/musiclink"
)

const (
	version           = "1.0.0"
	defaultServerHost = "0.0.0.0"
	// historyFalsePositiveRate is the bloom filter error rate of the autoplay history
	historyFalsePositiveRate = 0.001
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "musebot",
	Short: "musebot - Discord music bot for YouTube and Spotify",
	Long: `musebot is a Discord music bot. It resolves YouTube and Spotify links or search terms,
matches metadata-only songs to playable YouTube videos and streams them through Lavalink.`,
	RunE: runMusebot,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := core.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Log.Format, "log format (json, console)")
	flags.String("discord-token", "", "Discord bot token")
	flags.String("discord-guild-id", "", "Register commands on this guild only (default: global commands)")
	flags.String("spotify-client-id", "", "Spotify client ID")
	flags.String("spotify-client-secret", "", "Spotify client secret")
	flags.Float64("spotify-requests-per-second", defaults.Spotify.RequestsPerSecond, "Spotify API request budget")
	flags.String("youtube-binary-path", "", "yt-dlp executable (default: looked up in PATH)")
	flags.String("lavalink-node-name", defaults.Lavalink.NodeName, "Lavalink node name")
	flags.String("lavalink-address", defaults.Lavalink.Address, "Lavalink node host:port")
	flags.String("lavalink-password", defaults.Lavalink.Password, "Lavalink node password")
	flags.Bool("lavalink-secure", defaults.Lavalink.Secure, "Connect to Lavalink over TLS")
	flags.String("store-settings-path", defaults.Store.SettingsPath, "SQLite database for guild settings")
	flags.Int("store-history-size", defaults.Store.HistorySize, "Played songs remembered for autoplay")
	flags.String("server-host", defaultServerHost, "HTTP server host")
	flags.Int("server-port", defaults.Server.Port, "HTTP server port")
	flags.Duration("idle-timeout", defaults.App.IdleTimeout, "How long an idle guild stays in voice")
	flags.Int("default-volume", defaults.App.DefaultVolume, fmt.Sprintf("Volume for new guilds (0-%d)", core.MaxVolume))
	supportedLangs := strings.Join(i18n.GetSupportedLanguages(), ", ")
	flags.String("language", i18n.DefaultLanguage, fmt.Sprintf("Bot language (%s)", supportedLangs))
	flags.Int("command-limit-per-minute", defaults.App.CommandLimitPerMinute, "Maximum commands per user per minute")
	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix("MUSEBOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureDiscord(cfg)
	configureSpotify(cfg)
	configureYouTube(cfg)
	configureLavalink(cfg)
	configureStore(cfg)
	configureServer(cfg)
	configureApp(cfg)

	return cfg
}

func configureDiscord(cfg *core.Config) {
	cfg.Discord.Token = viper.GetString("discord-token")
	cfg.Discord.GuildID = viper.GetString("discord-guild-id")
}

func configureSpotify(cfg *core.Config) {
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	cfg.Spotify.RequestsPerSecond = viper.GetFloat64("spotify-requests-per-second")
}

func configureYouTube(cfg *core.Config) {
	cfg.YouTube.BinaryPath = viper.GetString("youtube-binary-path")
}

func configureLavalink(cfg *core.Config) {
	cfg.Lavalink.NodeName = viper.GetString("lavalink-node-name")
	cfg.Lavalink.Address = viper.GetString("lavalink-address")
	cfg.Lavalink.Password = viper.GetString("lavalink-password")
	cfg.Lavalink.Secure = viper.GetBool("lavalink-secure")
}

func configureStore(cfg *core.Config) {
	cfg.Store.SettingsPath = viper.GetString("store-settings-path")
	cfg.Store.HistorySize = viper.GetInt("store-history-size")
	if cfg.Store.HistorySize <= 0 {
		cfg.Store.HistorySize = core.DefaultHistorySize
	}
}

func configureServer(cfg *core.Config) {
	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultServerHost
	}
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")
}

func configureApp(cfg *core.Config) {
	cfg.App.IdleTimeout = viper.GetDuration("idle-timeout")
	if cfg.App.IdleTimeout <= 0 {
		fmt.Printf("Warning: Invalid idle timeout (%v), using default (%v)\n",
			cfg.App.IdleTimeout, core.DefaultIdleTimeout)
		cfg.App.IdleTimeout = core.DefaultIdleTimeout
	}
	cfg.App.DefaultVolume = viper.GetInt("default-volume")

	cfg.App.Language = viper.GetString("language")
	if cfg.App.Language == "" {
		cfg.App.Language = i18n.DefaultLanguage
	}
	if !i18n.IsSupported(cfg.App.Language) {
		fmt.Fprintf(os.Stderr, "Warning: Unsupported language '%s', falling back to '%s'. Supported languages: %s\n",
			cfg.App.Language, i18n.DefaultLanguage, strings.Join(i18n.GetSupportedLanguages(), ", "))
		cfg.App.Language = i18n.DefaultLanguage
	}

	cfg.App.CommandLimitPerMinute = viper.GetInt("command-limit-per-minute")
	if cfg.App.CommandLimitPerMinute <= 0 {
		cfg.App.CommandLimitPerMinute = core.DefaultCommandLimitPerMinute
	}
}

func buildLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	if strings.EqualFold(format, "console") {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runMusebot(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting musebot",
		zap.String("version", version),
		zap.String("lavalink", config.Lavalink.Address),
		zap.String("language", config.App.Language),
		zap.Duration("idle_timeout", config.App.IdleTimeout))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	svcs, err := initializeServices(ctx)
	if err != nil {
		return err
	}

	return runServices(ctx, svcs)
}

type services struct {
	httpServer *httpserver.Server
	settings   *store.SettingsStore
	spotify    *spotify.Client
	manager    *core.Manager
	bot        *discord.Bot
	engine     *lavalink.Engine
	floodgate  *flood.Floodgate
}

func initializeServices(ctx context.Context) (*services, error) {
	httpServer := httpserver.NewServer(&config.Server, logger.Named("http"))
	metrics := httpServer.GetMetrics()

	settings, err := store.OpenSettingsStore(ctx, config.Store.SettingsPath,
		core.GuildSettings{Volume: config.App.DefaultVolume}, logger.Named("store"))
	if err != nil {
		return nil, err
	}
	history := store.NewHistory(config.Store.HistorySize, historyFalsePositiveRate)

	spotifyClient := spotify.NewClient(&config.Spotify, logger.Named("spotify"))
	media := youtube.NewProvider(&config.YouTube, logger.Named("youtube"))

	resolver := core.NewResolver(media, spotifyClient, musiclink.NewExpander(nil), metrics, logger.Named("resolver"))
	matcher := core.NewMatcher(media, metrics, logger.Named("matcher"))

	manager := core.NewManager(config.App, core.ManagerDeps{
		Resolver: resolver,
		Matcher:  matcher,
		Media:    media,
		Settings: settings,
		History:  history,
		Recorder: metrics,
	}, logger.Named("manager"))

	floodgate := flood.New(config.App.CommandLimitPerMinute)
	bot, err := discord.NewBot(&config.Discord, discord.BotDeps{
		Player:    manager,
		Floodgate: floodgate,
		Localizer: i18n.NewLocalizer(config.App.Language),
		Recorder:  metrics,
	}, logger.Named("discord"))
	if err != nil {
		floodgate.Stop()
		_ = settings.Close()
		return nil, err
	}

	engine := lavalink.NewEngine(bot.UserID(), bot, &config.Lavalink, logger.Named("lavalink"))
	bot.SetVoiceForwarder(engine)
	manager.Attach(engine, bot)

	httpServer.AddReadinessCheck("discord", bot.Ready)
	httpServer.AddReadinessCheck("lavalink", engine.Ready)

	return &services{
		httpServer: httpServer,
		settings:   settings,
		spotify:    spotifyClient,
		manager:    manager,
		bot:        bot,
		engine:     engine,
		floodgate:  floodgate,
	}, nil
}

func runServices(ctx context.Context, svcs *services) error {
	defer func() {
		svcs.floodgate.Stop()
		if err := svcs.settings.Close(); err != nil {
			logger.Debug("Failed to close settings store", zap.Error(err))
		}
	}()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svcs.httpServer.Start(gCtx)
	})

	g.Go(func() error {
		return svcs.spotify.Start(gCtx)
	})

	g.Go(func() error {
		return svcs.engine.Start(gCtx)
	})

	g.Go(func() error {
		return svcs.bot.Start(gCtx)
	})

	g.Go(func() error {
		return svcs.manager.Start(gCtx)
	})

	logger.Info("musebot started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("musebot stopped with error", zap.Error(err))
		return err
	}

	logger.Info("musebot stopped gracefully")
	return nil
}

func validateConfig() error {
	if err := validateDiscordConfig(); err != nil {
		return err
	}

	if err := validateSpotifyConfig(); err != nil {
		return err
	}

	if err := validateLavalinkConfig(); err != nil {
		return err
	}

	if config.App.DefaultVolume < 0 || config.App.DefaultVolume > core.MaxVolume {
		return fmt.Errorf("default volume must be between 0 and %d, got %d", core.MaxVolume, config.App.DefaultVolume)
	}

	return nil
}

func validateDiscordConfig() error {
	if config.Discord.Token == "" {
		return fmt.Errorf("discord token is required")
	}
	return nil
}

func validateSpotifyConfig() error {
	if config.Spotify.ClientID == "" {
		return fmt.Errorf("spotify client ID is required")
	}

	if config.Spotify.ClientSecret == "" {
		return fmt.Errorf("spotify client secret is required")
	}

	return nil
}

func validateLavalinkConfig() error {
	if config.Lavalink.Address == "" {
		return fmt.Errorf("lavalink address is required")
	}
	if config.Lavalink.NodeName == "" {
		return fmt.Errorf("lavalink node name is required")
	}
	return nil
}
