package store

import (
	"fmt"
	"testing"

	"github.com/disgoorg/snowflake/v2"

	"musebot/internal/core"
)

const (
	testGuild  = snowflake.ID(1001)
	otherGuild = snowflake.ID(2002)
)

func song(artist, title, url string) core.Song {
	return core.Song{Artist: core.Artist{Name: artist}, Title: title, URL: url}
}

func TestHistory_Basic(t *testing.T) {
	history := NewHistory(100, 0.001)
	s := song("Daft Punk", "Get Lucky", "https://www.youtube.com/watch?v=5NV6Rdv1a3I")

	if history.Seen(testGuild, s) {
		t.Error("Empty history should not have any songs")
	}

	history.Record(testGuild, s)
	if !history.Seen(testGuild, s) {
		t.Error("History should have the song after recording")
	}

	// URL key plus normalized song key
	if history.size() != 2 {
		t.Errorf("History size should be 2 after one song, got %d", history.size())
	}

	history.Record(testGuild, s)
	if history.size() != 2 {
		t.Errorf("History size should still be 2 after recording a duplicate, got %d", history.size())
	}

	if history.Seen(otherGuild, s) {
		t.Error("History must be isolated per guild")
	}
}

func TestHistory_CrossProviderMatch(t *testing.T) {
	history := NewHistory(100, 0.001)

	history.Record(testGuild, song("Daft Punk, Pharrell Williams", "Get Lucky (feat. Pharrell Williams)",
		"https://open.spotify.com/track/69kOkLUCkxIZYexIgSG8rq"))

	upload := song("Daft Punk", "Get Lucky (Radio Edit)", "https://www.youtube.com/watch?v=5NV6Rdv1a3I")
	if !history.Seen(testGuild, upload) {
		t.Error("Same song from another provider should be seen")
	}

	video := song("Daft Punk", "Get Lucky (Official Video)", "https://www.youtube.com/watch?v=h5EofwRzit0")
	if !history.Seen(testGuild, video) {
		t.Error("Video decorations should not hide a played song")
	}
}

func TestHistory_Eviction(t *testing.T) {
	history := NewHistory(10, 0.001)

	for i := 0; i < 20; i++ {
		history.Record(testGuild, core.Song{URL: fmt.Sprintf("https://example.com/%d", i)})
	}

	if history.size() != 10 {
		t.Errorf("History size should be capped at 10, got %d", history.size())
	}

	if history.Seen(testGuild, core.Song{URL: "https://example.com/0"}) {
		t.Error("Oldest entry should have been evicted")
	}

	if !history.Seen(testGuild, core.Song{URL: "https://example.com/19"}) {
		t.Error("Newest entry should still be present")
	}
}

func TestHistory_ForgetAndClear(t *testing.T) {
	history := NewHistory(100, 0.001)
	s := song("Queen", "Bohemian Rhapsody", "https://www.youtube.com/watch?v=fJ9rUzIMcZQ")

	history.Record(testGuild, s)
	history.Record(otherGuild, s)

	history.Forget(testGuild)
	if history.Seen(testGuild, s) {
		t.Error("Forgotten guild should not see the song")
	}
	if !history.Seen(otherGuild, s) {
		t.Error("Forget must not touch other guilds")
	}

	if history.size() != 2 {
		t.Errorf("History size should be 2 after forgetting one guild, got %d", history.size())
	}
}

func TestHistory_FilterRebuild(t *testing.T) {
	tests := []struct {
		name  string
		drop  func(h *History)
		first string
	}{
		{
			name:  "forget",
			drop:  func(h *History) { h.Forget(testGuild) },
			first: "https://example.com/0",
		},
		{
			name: "eviction",
			drop: func(h *History) {
				for i := 10; i < 30; i++ {
					h.Record(otherGuild, core.Song{URL: fmt.Sprintf("https://example.com/%d", i)})
				}
			},
			first: "https://example.com/0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := NewHistory(10, 0.001)
			for i := 0; i < 10; i++ {
				history.Record(testGuild, core.Song{URL: fmt.Sprintf("https://example.com/%d", i)})
			}
			key := history.keys(testGuild, core.Song{URL: tt.first})[0]

			tt.drop(history)

			if history.Seen(testGuild, core.Song{URL: tt.first}) {
				t.Errorf("Seen(%q) = true after %s, want false", tt.first, tt.name)
			}
			if history.bloom.TestString(key) {
				t.Errorf("filter still holds %q after %s", key, tt.name)
			}
			if history.stale != 0 {
				t.Errorf("stale = %d after rebuild, want 0", history.stale)
			}
		})
	}
}
