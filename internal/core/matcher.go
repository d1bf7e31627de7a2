package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Match outcomes reported to the recorder.
const (
	MatchDirect   = "direct"
	MatchISRC     = "isrc"
	MatchFallback = "fallback"
	MatchNotFound = "not_found"
)

// Matcher finds a playable media song equivalent to a metadata-only song.
// It takes the first search hit without scoring duration or title similarity.
type Matcher struct {
	media    MediaProvider
	recorder Recorder
	logger   *zap.Logger
}

// NewMatcher creates a matcher. A nil recorder disables metrics.
func NewMatcher(media MediaProvider, recorder Recorder, logger *zap.Logger) *Matcher {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Matcher{media: media, recorder: recorder, logger: logger}
}

// Match searches by quoted ISRC first, then once by "<artist> <title>".
// ErrMatchNotFound means neither search returned a video.
func (m *Matcher) Match(ctx context.Context, song Song) (Song, error) {
	if song.Playable() {
		m.recorder.RecordMatch(MatchDirect)
		return song, nil
	}

	if song.HasISRC() {
		found, err := m.media.Search(ctx, `"`+song.ISRC+`"`)
		if err == nil {
			m.recorder.RecordMatch(MatchISRC)
			return found, nil
		}
		if !errors.Is(err, ErrNoResults) {
			m.logger.Warn("ISRC search failed, falling back to title search",
				zap.String("isrc", song.ISRC),
				zap.Error(err))
		}
	}

	query := FallbackQuery(song)
	found, err := m.media.Search(ctx, query)
	if errors.Is(err, ErrNoResults) {
		m.recorder.RecordMatch(MatchNotFound)
		return Song{}, fmt.Errorf("%w: %s", ErrMatchNotFound, query)
	}
	if err != nil {
		return Song{}, fmt.Errorf("failed to search for match: %w", err)
	}

	m.recorder.RecordMatch(MatchFallback)
	return found, nil
}

// FallbackQuery is the free-text query used when a song has no usable ISRC.
func FallbackQuery(song Song) string {
	return strings.TrimSpace(song.Artist.Name + " " + song.Title)
}
