package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"musebot/internal/core"
)

const settingsSchema = `
CREATE TABLE IF NOT EXISTS guild_settings (
	guild_id TEXT PRIMARY KEY,
	volume   INTEGER NOT NULL,
	autoplay INTEGER NOT NULL DEFAULT 0
)`

// SettingsStore persists per-guild playback preferences in SQLite.
type SettingsStore struct {
	db       *sql.DB
	defaults core.GuildSettings
	logger   *zap.Logger
}

// OpenSettingsStore opens (or creates) the settings database at path.
func OpenSettingsStore(ctx context.Context, path string, defaults core.GuildSettings,
	logger *zap.Logger) (*SettingsStore, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}
	// SQLite serializes writers anyway; one connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, settingsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create settings schema: %w", err)
	}

	logger.Info("Opened settings store", zap.String("path", path))

	return &SettingsStore{db: db, defaults: defaults, logger: logger}, nil
}

// Get returns the guild's settings, or the defaults when none were saved.
func (s *SettingsStore) Get(ctx context.Context, guildID snowflake.ID) (core.GuildSettings, error) {
	var settings core.GuildSettings
	err := s.db.QueryRowContext(ctx,
		`SELECT volume, autoplay FROM guild_settings WHERE guild_id = ?`, guildID.String(),
	).Scan(&settings.Volume, &settings.Autoplay)
	if errors.Is(err, sql.ErrNoRows) {
		return s.defaults, nil
	}
	if err != nil {
		return s.defaults, fmt.Errorf("failed to read settings: %w", err)
	}
	return settings, nil
}

// SetVolume saves the guild's volume percent.
func (s *SettingsStore) SetVolume(ctx context.Context, guildID snowflake.ID, volume int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_settings (guild_id, volume, autoplay) VALUES (?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET volume = excluded.volume`,
		guildID.String(), volume, s.defaults.Autoplay)
	if err != nil {
		return fmt.Errorf("failed to save volume: %w", err)
	}
	return nil
}

// SetAutoplay saves the guild's autoplay flag.
func (s *SettingsStore) SetAutoplay(ctx context.Context, guildID snowflake.ID, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_settings (guild_id, volume, autoplay) VALUES (?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET autoplay = excluded.autoplay`,
		guildID.String(), s.defaults.Volume, enabled)
	if err != nil {
		return fmt.Errorf("failed to save autoplay: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SettingsStore) Close() error {
	return s.db.Close()
}
