package core

import (
	"time"
)

const (
	// DefaultIdleTimeout is how long an empty guild keeps its voice session
	DefaultIdleTimeout = 10 * time.Second
	// DefaultVolume is the volume percent for guilds without settings
	DefaultVolume = 50
	// MaxVolume is the highest accepted volume percent
	MaxVolume = 500
	// DefaultCommandLimitPerMinute is the per-user slash command budget
	DefaultCommandLimitPerMinute = 20
	// DefaultHistorySize is how many played songs the autoplay history keeps
	DefaultHistorySize = 5000
)

type Config struct {
	Discord  DiscordConfig
	Spotify  SpotifyConfig
	YouTube  YouTubeConfig
	Lavalink LavalinkConfig
	Store    StoreConfig
	Server   ServerConfig
	Log      LogConfig
	App      AppConfig
}

type DiscordConfig struct {
	Token string
	// GuildID registers commands on one guild only, useful while developing
	GuildID string
}

type SpotifyConfig struct {
	ClientID          string
	ClientSecret      string
	RequestsPerSecond float64
}

type YouTubeConfig struct {
	// BinaryPath overrides the yt-dlp executable, empty means PATH lookup
	BinaryPath string
}

type LavalinkConfig struct {
	NodeName string
	Address  string
	Password string
	Secure   bool
}

type StoreConfig struct {
	SettingsPath string
	HistorySize  int
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	IdleTimeout           time.Duration
	DefaultVolume         int
	Language              string
	CommandLimitPerMinute int
}

func DefaultConfig() *Config {
	return &Config{
		Spotify: SpotifyConfig{
			RequestsPerSecond: 10,
		},
		Lavalink: LavalinkConfig{
			NodeName: "main",
			Address:  "localhost:2333",
			Password: "youshallnotpass",
		},
		Store: StoreConfig{
			SettingsPath: "./musebot.db",
			HistorySize:  DefaultHistorySize,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			IdleTimeout:           DefaultIdleTimeout,
			DefaultVolume:         DefaultVolume,
			Language:              "en",
			CommandLimitPerMinute: DefaultCommandLimitPerMinute,
		},
	}
}
