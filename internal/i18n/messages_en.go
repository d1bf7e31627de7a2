package i18n

// englishMessages contains all English translations.
var englishMessages = map[string]string{
	// Error messages
	"error.generic":              "Something went wrong. Please try again.",
	"error.no_results":           "I couldn't find anything for %s.",
	"error.unsupported":          "I can't play that link. Try YouTube or Spotify.",
	"error.provider_unavailable": "The music service isn't answering right now. Please try again later.",
	"error.not_in_voice":         "Join a voice channel first.",
	"error.nothing_playing":      "Nothing is playing right now.",
	"error.invalid_argument":     "That doesn't work: %s",
	"error.rate_limited":         "Slow down! You can use %d commands per minute.",
	"error.not_connected":        "I'm not in a voice channel.",
	"error.guild_only":           "Commands only work inside a server.",

	// Success messages
	"success.playing":        "🎵 Playing **%s** by %s",
	"success.queued":         "Queued **%s** by %s at position %d",
	"success.queued_many":    "Queued %d songs starting with **%s**",
	"success.skipped":        "⏭️ Skipped %d song(s)",
	"success.removed":        "Removed %d song(s) from the queue",
	"success.paused":         "⏸️ Paused",
	"success.already_paused": "Already paused.",
	"success.resumed":        "▶️ Resumed",
	"success.not_paused":     "Playback isn't paused.",
	"success.stopped":        "⏹️ Stopped and left the voice channel",
	"success.volume":         "🔊 Volume set to %d%%",
	"success.autoplay_on":    "Autoplay is on. I'll keep the music going when the queue runs out.",
	"success.autoplay_off":   "Autoplay is off.",

	// Queue listing
	"queue.empty":       "The queue is empty.",
	"queue.now_playing": "**Now playing:** %s",
	"queue.entry":       "`%d.` %s",
	"queue.footer":      "Page %d/%d, %d song(s) queued",

	// Format helpers
	"format.song":     "%s - %s",
	"format.duration": " (%s)",

	// Bot status messages
	"bot.now_playing":     "🎵 Now playing **%s** by %s, requested by %s",
	"bot.track_not_found": "Couldn't find a playable version of **%s** by %s, skipping it.",
	"bot.idle_disconnect": "👋 Left the voice channel because nothing was playing.",
	"bot.stats":           "⏱️ Uptime: %d day(s)\n🏠 Servers: %d\n🎶 Active sessions: %d",
}
