// Package store provides per-guild settings persistence and play history.
package store

import (
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/disgoorg/snowflake/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"musebot/internal/core"
	"musebot/pkg/fuzzy"
	"musebot/pkg/musiclink"
)

// History remembers recently played songs per guild using a Bloom filter in
// front of an LRU bounded set. Songs are keyed both by URL and by normalized
// artist and title so a YouTube upload and its Spotify original collide.
// The filter cannot delete, so it is rebuilt from the live keys once evicted
// or forgotten keys reach its capacity.
type History struct {
	entries                map[string]struct{}
	bloom                  *bloom.BloomFilter
	lru                    *lru.Cache[string, struct{}]
	normalizer             *fuzzy.Normalizer
	mutex                  sync.RWMutex
	maxEntries             int
	bloomFalsePositiveRate float64
	// stale counts keys still set in the filter but gone from entries
	stale int
}

// NewHistory creates a history with the specified capacity and false positive rate.
func NewHistory(maxEntries int, bloomFalsePositiveRate float64) *History {
	if maxEntries <= 0 {
		maxEntries = core.DefaultHistorySize
	}

	h := &History{
		entries:                make(map[string]struct{}),
		bloom:                  bloom.NewWithEstimates(uint(maxEntries), bloomFalsePositiveRate),
		normalizer:             fuzzy.NewNormalizer(),
		maxEntries:             maxEntries,
		bloomFalsePositiveRate: bloomFalsePositiveRate,
	}
	// Evictions run under h.mutex, inside Record.
	h.lru, _ = lru.NewWithEvict(maxEntries, func(key string, _ struct{}) {
		delete(h.entries, key)
		h.stale++
	})

	return h
}

// Seen reports whether the guild played the song recently.
func (h *History) Seen(guildID snowflake.ID, song core.Song) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for _, key := range h.keys(guildID, song) {
		if !h.bloom.TestString(key) {
			continue
		}
		if _, exists := h.entries[key]; exists {
			return true
		}
	}
	return false
}

// Record adds the song to the guild's history.
func (h *History) Record(guildID snowflake.ID, song core.Song) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, key := range h.keys(guildID, song) {
		if _, exists := h.entries[key]; exists {
			h.lru.Get(key) // Refresh recency
			continue
		}

		h.entries[key] = struct{}{}
		h.bloom.AddString(key)
		h.lru.Add(key, struct{}{})
	}
	h.compact(h.maxEntries)
}

// Forget drops every entry of the guild.
func (h *History) Forget(guildID snowflake.ID) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	prefix := guildID.String() + ":"
	for key := range h.entries {
		if strings.HasPrefix(key, prefix) {
			// Remove runs the eviction callback, which deletes the entry.
			h.lru.Remove(key)
		}
	}
	h.compact(0)
}

// compact rebuilds the filter from the live keys once more than threshold keys went stale.
func (h *History) compact(threshold int) {
	if h.stale == 0 || h.stale < threshold {
		return
	}

	filter := bloom.NewWithEstimates(uint(h.maxEntries), h.bloomFalsePositiveRate)
	for key := range h.entries {
		filter.AddString(key)
	}
	h.bloom = filter
	h.stale = 0
}

func (h *History) size() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.entries)
}

func (h *History) keys(guildID snowflake.ID, song core.Song) []string {
	prefix := guildID.String() + ":"
	keys := make([]string, 0, 2)
	if song.URL != "" {
		keys = append(keys, prefix+"url:"+song.URL)
	}
	if song.Title != "" {
		keys = append(keys, prefix+"song:"+h.normalizer.Key(song.Artist.Name, musiclink.CleanTitle(song.Title)))
	}
	return keys
}
