package discord

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"musebot/internal/core"
	"musebot/internal/i18n"
)

// queuePageSize is the number of queued songs listed per page
const queuePageSize = 5

// errNotInVoice is returned when a play request comes from outside a voice channel.
var errNotInVoice = errors.New("requester is not in a voice channel")

// songLabel renders a song as a markdown link with its length.
func songLabel(localizer *i18n.Localizer, song core.Song) string {
	label := song.Title
	if song.Artist.Name != "" {
		label = localizer.T("format.song", song.Artist.Name, song.Title)
	}
	label = escapeMarkdown(label)
	if song.URL != "" {
		label = "[" + label + "](" + song.URL + ")"
	}
	if song.Duration > 0 {
		label += localizer.T("format.duration", formatDuration(song.Duration))
	}
	return label
}

// formatDuration renders d as m:ss, or h:mm:ss from one hour on.
func formatDuration(d time.Duration) string {
	total := int(d.Round(time.Second) / time.Second)
	hours, minutes, seconds := total/3600, total/60%60, total%60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "~", `\~`, "`", "\\`", "[", `\[`, "]", `\]`, "|", `\|`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// pageCount returns the number of pages for total items, at least one.
func pageCount(total int) int {
	if total <= 0 {
		return 1
	}
	return (total + queuePageSize - 1) / queuePageSize
}

// pageBounds returns the item range of the one based page.
func pageBounds(page, total int) (start, end int, err error) {
	if page < 1 || page > pageCount(total) {
		return 0, 0, fmt.Errorf("%w: page must be between 1 and %d", core.ErrInvalidArgument, pageCount(total))
	}
	start = (page - 1) * queuePageSize
	end = min(start+queuePageSize, total)
	return start, end, nil
}

// formatQueue renders one page of the guild's queue with the current song on top.
func formatQueue(localizer *i18n.Localizer, snap core.Snapshot, page int) (string, error) {
	start, end, err := pageBounds(page, len(snap.Items))
	if err != nil {
		return "", err
	}
	if snap.Current == nil && len(snap.Items) == 0 {
		return localizer.T("queue.empty"), nil
	}

	var b strings.Builder
	if snap.Current != nil {
		b.WriteString(localizer.T("queue.now_playing", songLabel(localizer, snap.Current.Song)))
		b.WriteString("\n\n")
	}
	if len(snap.Items) == 0 {
		b.WriteString(localizer.T("queue.empty"))
		return b.String(), nil
	}

	for i := start; i < end; i++ {
		b.WriteString(localizer.T("queue.entry", i+1, songLabel(localizer, snap.Items[i].Song)))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(localizer.T("queue.footer", page, pageCount(len(snap.Items)), len(snap.Items)))
	return b.String(), nil
}

// toIndex converts a one based position from a command into a queue index.
func toIndex(position int) (int, error) {
	if position < 1 {
		return 0, fmt.Errorf("%w: position must be 1 or more", core.ErrInvalidArgument)
	}
	return position - 1, nil
}

// errorReply maps err to a localized reply and a metrics error type. subject
// names what the user asked for in no results replies.
func errorReply(localizer *i18n.Localizer, err error, subject string) (reply, errorType string) {
	switch {
	case errors.Is(err, errNotInVoice):
		return localizer.T("error.not_in_voice"), "not_in_voice"
	case errors.Is(err, core.ErrNotConnected):
		return localizer.T("error.not_connected"), "not_connected"
	case errors.Is(err, core.ErrNothingPlaying):
		return localizer.T("error.nothing_playing"), "nothing_playing"
	case errors.Is(err, core.ErrInvalidArgument):
		detail := strings.TrimPrefix(err.Error(), core.ErrInvalidArgument.Error()+": ")
		return localizer.T("error.invalid_argument", detail), "invalid_argument"
	case errors.Is(err, core.ErrNoResults):
		return localizer.T("error.no_results", escapeMarkdown(subject)), "no_results"
	case errors.Is(err, core.ErrUnsupportedDomain):
		return localizer.T("error.unsupported"), "unsupported_domain"
	case errors.Is(err, core.ErrProviderUnavailable):
		return localizer.T("error.provider_unavailable"), "provider_unavailable"
	default:
		return localizer.T("error.generic"), "internal"
	}
}

// isUserError reports whether err stems from user input rather than a fault.
func isUserError(err error) bool {
	return errors.Is(err, errNotInVoice) || core.IsUserFacing(err)
}
