package discord

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"musebot/internal/core"
	"musebot/internal/i18n"
)

func queued(i int) core.QueuedSong {
	return core.QueuedSong{Song: core.Song{
		ID:       fmt.Sprintf("v%d", i),
		Title:    fmt.Sprintf("Song %d", i),
		Artist:   core.Artist{Name: "Artist"},
		URL:      fmt.Sprintf("https://www.youtube.com/watch?v=v%d", i),
		Duration: 3*time.Minute + 5*time.Second,
	}}
}

func queuedSongs(n int) []core.QueuedSong {
	songs := make([]core.QueuedSong, n)
	for i := range songs {
		songs[i] = queued(i + 1)
	}
	return songs
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{59 * time.Second, "0:59"},
		{3*time.Minute + 5*time.Second, "3:05"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
		{212500 * time.Millisecond, "3:33"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSongLabel(t *testing.T) {
	localizer := i18n.NewLocalizer(i18n.DefaultLanguage)

	tests := []struct {
		name string
		song core.Song
		want string
	}{
		{
			name: "Full song",
			song: queued(1).Song,
			want: "[Artist - Song 1](https://www.youtube.com/watch?v=v1) (3:05)",
		},
		{
			name: "No artist or duration",
			song: core.Song{Title: "Untitled", URL: "https://example.com/a"},
			want: "[Untitled](https://example.com/a)",
		},
		{
			name: "Markdown is escaped",
			song: core.Song{Title: "*Bold* [Live]", Artist: core.Artist{Name: "A_B"}},
			want: `A\_B - \*Bold\* \[Live\]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := songLabel(localizer, tt.song); got != tt.want {
				t.Errorf("songLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPageBounds(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		total     int
		wantStart int
		wantEnd   int
		wantErr   bool
	}{
		{"Empty queue first page", 1, 0, 0, 0, false},
		{"Full first page", 1, 12, 0, 5, false},
		{"Middle page", 2, 12, 5, 10, false},
		{"Partial last page", 3, 12, 10, 12, false},
		{"Exact last page", 2, 10, 5, 10, false},
		{"Past the end", 4, 12, 0, 0, true},
		{"Zero page", 0, 12, 0, 0, true},
		{"Empty queue second page", 2, 0, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := pageBounds(tt.page, tt.total)
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidArgument) {
					t.Errorf("pageBounds() error = %v, want %v", err, core.ErrInvalidArgument)
				}
				return
			}
			if err != nil {
				t.Fatalf("pageBounds() error: %v", err)
			}
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("pageBounds() = [%d, %d), want [%d, %d)", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestFormatQueue(t *testing.T) {
	localizer := i18n.NewLocalizer(i18n.DefaultLanguage)
	current := queued(0)

	t.Run("Empty", func(t *testing.T) {
		got, err := formatQueue(localizer, core.Snapshot{}, 1)
		if err != nil {
			t.Fatalf("formatQueue() error: %v", err)
		}
		if got != localizer.T("queue.empty") {
			t.Errorf("formatQueue() = %q, want the empty message", got)
		}
	})

	t.Run("Current only", func(t *testing.T) {
		got, err := formatQueue(localizer, core.Snapshot{Current: &current}, 1)
		if err != nil {
			t.Fatalf("formatQueue() error: %v", err)
		}
		if !strings.Contains(got, "Song 0") || !strings.Contains(got, localizer.T("queue.empty")) {
			t.Errorf("formatQueue() = %q, want the current song and the empty message", got)
		}
	})

	t.Run("Second page", func(t *testing.T) {
		snap := core.Snapshot{Current: &current, Items: queuedSongs(12)}

		got, err := formatQueue(localizer, snap, 2)
		if err != nil {
			t.Fatalf("formatQueue() error: %v", err)
		}
		for i := 6; i <= 10; i++ {
			if !strings.Contains(got, fmt.Sprintf("`%d.` [Artist - Song %d]", i, i)) {
				t.Errorf("formatQueue() missing position %d in %q", i, got)
			}
		}
		for _, absent := range []string{"`5.`", "`11.`"} {
			if strings.Contains(got, absent) {
				t.Errorf("formatQueue() should not list %s on page 2", absent)
			}
		}
		if !strings.Contains(got, "Page 2/3, 12 song(s) queued") {
			t.Errorf("formatQueue() footer missing in %q", got)
		}
	})

	t.Run("Page out of range", func(t *testing.T) {
		_, err := formatQueue(localizer, core.Snapshot{Items: queuedSongs(3)}, 2)
		if !errors.Is(err, core.ErrInvalidArgument) {
			t.Errorf("formatQueue() error = %v, want %v", err, core.ErrInvalidArgument)
		}
	})
}

func TestToIndex(t *testing.T) {
	if got, err := toIndex(1); err != nil || got != 0 {
		t.Errorf("toIndex(1) = %d, %v, want 0, nil", got, err)
	}
	if got, err := toIndex(7); err != nil || got != 6 {
		t.Errorf("toIndex(7) = %d, %v, want 6, nil", got, err)
	}
	if _, err := toIndex(0); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("toIndex(0) error = %v, want %v", err, core.ErrInvalidArgument)
	}
}

func TestErrorReply(t *testing.T) {
	localizer := i18n.NewLocalizer(i18n.DefaultLanguage)

	tests := []struct {
		name     string
		err      error
		wantType string
		contains string
	}{
		{"Not in voice", errNotInVoice, "not_in_voice", "Join a voice channel"},
		{"Not connected", core.ErrNotConnected, "not_connected", "not in a voice channel"},
		{"Nothing playing", fmt.Errorf("skip: %w", core.ErrNothingPlaying), "nothing_playing", "Nothing is playing"},
		{
			"Invalid argument keeps its detail",
			fmt.Errorf("%w: volume must be between 0 and 500", core.ErrInvalidArgument),
			"invalid_argument",
			"That doesn't work: volume must be between 0 and 500",
		},
		{"No results names the query", fmt.Errorf("%w: foo", core.ErrNoResults), "no_results", "for lofi_beats"},
		{"Unsupported", core.ErrUnsupportedDomain, "unsupported_domain", "can't play that link"},
		{
			"Provider error",
			core.NewProviderError(core.ProviderMetadata, "get track", errors.New("503")),
			"provider_unavailable",
			"isn't answering",
		},
		{"Anything else", errors.New("boom"), "internal", "Something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, errorType := errorReply(localizer, tt.err, "lofi_beats")
			if errorType != tt.wantType {
				t.Errorf("errorReply() type = %q, want %q", errorType, tt.wantType)
			}
			if !strings.Contains(reply, strings.ReplaceAll(tt.contains, "_", `\_`)) {
				t.Errorf("errorReply() = %q, want it to contain %q", reply, tt.contains)
			}
		})
	}
}

func TestIsUserError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errNotInVoice, true},
		{core.ErrNotConnected, true},
		{core.ErrNothingPlaying, true},
		{fmt.Errorf("%w: volume must be between 0 and 200", core.ErrInvalidArgument), true},
		{core.ErrNoResults, true},
		{fmt.Errorf("%w: https://soundcloud.com/x", core.ErrUnsupportedDomain), true},
		{core.NewProviderError(core.ProviderMedia, "search", errors.New("timeout")), false},
		{errors.New("boom"), false},
	}

	for _, tt := range tests {
		if got := isUserError(tt.err); got != tt.want {
			t.Errorf("isUserError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
