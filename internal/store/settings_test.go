package store

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"musebot/internal/core"
)

func openTestStore(t *testing.T) *SettingsStore {
	t.Helper()

	defaults := core.GuildSettings{Volume: core.DefaultVolume}
	store, err := OpenSettingsStore(context.Background(), filepath.Join(t.TempDir(), "settings.db"),
		defaults, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("OpenSettingsStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSettingsStore_Defaults(t *testing.T) {
	store := openTestStore(t)

	settings, err := store.Get(context.Background(), testGuild)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if settings.Volume != core.DefaultVolume || settings.Autoplay {
		t.Errorf("Get() = %+v, want defaults", settings)
	}
}

func TestSettingsStore_Upsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.SetVolume(ctx, testGuild, 150); err != nil {
		t.Fatalf("SetVolume() error = %v", err)
	}
	if err := store.SetAutoplay(ctx, testGuild, true); err != nil {
		t.Fatalf("SetAutoplay() error = %v", err)
	}
	if err := store.SetVolume(ctx, testGuild, 80); err != nil {
		t.Fatalf("SetVolume() error = %v", err)
	}

	settings, err := store.Get(ctx, testGuild)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if settings.Volume != 80 || !settings.Autoplay {
		t.Errorf("Get() = %+v, want {Volume:80 Autoplay:true}", settings)
	}

	other, err := store.Get(ctx, otherGuild)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if other.Volume != core.DefaultVolume || other.Autoplay {
		t.Errorf("Get() for untouched guild = %+v, want defaults", other)
	}
}
