// Package flood rate limits slash commands per user and guild.
package flood

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// windowDuration is the period the limit refills over
	windowDuration = 60 * time.Second
	// cleanupInterval is how often idle limiters are dropped
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long a user may stay quiet before their limiter is dropped
	idleTimeout = 10 * time.Minute
)

// Floodgate keeps one token bucket per user per guild. A user may burst up
// to the full limit, after which tokens come back evenly over the minute.
type Floodgate struct {
	limitPerMinute int
	entries        map[string]*userEntry // Key: "guildID:userID"
	mutex          sync.RWMutex
	stopCleanup    chan struct{}
	stopOnce       sync.Once
	now            func() time.Time
}

type userEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a Floodgate allowing limitPerMinute commands per user per guild.
func New(limitPerMinute int) *Floodgate {
	fg := &Floodgate{
		limitPerMinute: limitPerMinute,
		entries:        make(map[string]*userEntry),
		stopCleanup:    make(chan struct{}),
		now:            time.Now,
	}

	go fg.cleanup()

	return fg
}

// Stop stops the background cleanup goroutine. It is safe to call twice.
func (fg *Floodgate) Stop() {
	fg.stopOnce.Do(func() { close(fg.stopCleanup) })
}

// CheckMessage reports whether a command from userID in guildID may run.
func (fg *Floodgate) CheckMessage(guildID, userID string) bool {
	if fg.limitPerMinute <= 0 {
		return false
	}

	key := guildID + ":" + userID
	now := fg.now()

	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	entry, exists := fg.entries[key]
	if !exists {
		every := rate.Every(windowDuration / time.Duration(fg.limitPerMinute))
		entry = &userEntry{limiter: rate.NewLimiter(every, fg.limitPerMinute)}
		fg.entries[key] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1)
}

func (fg *Floodgate) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fg.performCleanup()
		case <-fg.stopCleanup:
			return
		}
	}
}

// performCleanup drops limiters of users idle for longer than idleTimeout.
func (fg *Floodgate) performCleanup() {
	cutoff := fg.now().Add(-idleTimeout)

	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	for key, entry := range fg.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(fg.entries, key)
		}
	}
}

// Stats is a snapshot of the floodgate for the stats command.
type Stats struct {
	ActiveUsers    int `json:"activeUsers"`
	LimitPerMinute int `json:"limitPerMinute"`
	WindowSeconds  int `json:"windowSeconds"`
}

func (fg *Floodgate) GetStats() Stats {
	fg.mutex.RLock()
	defer fg.mutex.RUnlock()

	return Stats{
		ActiveUsers:    len(fg.entries),
		LimitPerMinute: fg.limitPerMinute,
		WindowSeconds:  int(windowDuration.Seconds()),
	}
}
