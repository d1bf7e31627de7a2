package i18n

// berneseGermanMessages contains all Bernese Swiss German (Bärndütsch) translations
var berneseGermanMessages = map[string]string{
	// Error messages
	"error.generic":              "Öppis isch schief gloffe. Probier's haut nomau, bitte.",
	"error.no_results":           "Ha nüt gfunde für %s.",
	"error.unsupported":          "Dä Link chan i nid abspiele. Probier's mit YouTube oder Spotify.",
	"error.provider_unavailable": "Dr Musigdienscht git grad kei Antwort. Probier's speter nomau.",
	"error.not_in_voice":         "Gang zersch i ne Voice-Channel.",
	"error.nothing_playing":      "Grad louft nüt.",
	"error.invalid_argument":     "Das geit nid: %s",
	"error.rate_limited":         "Nid so gschpränglet! Du chasch %d Befäle pro Minute bruuche.",
	"error.not_connected":        "I bi i keim Voice-Channel.",
	"error.guild_only":           "Befäle funktioniere nume uf emne Server.",

	// Success messages
	"success.playing":        "🎵 Spile **%s** vo %s",
	"success.queued":         "**%s** vo %s isch uf Platz %d i dr Warteschlange",
	"success.queued_many":    "%d Lieder i d Warteschlange ta, z erschte isch **%s**",
	"success.skipped":        "⏭️ %d Lied(er) übersprunge",
	"success.removed":        "%d Lied(er) us dr Warteschlange gno",
	"success.paused":         "⏸️ Pouse",
	"success.already_paused": "Isch scho pousiert.",
	"success.resumed":        "▶️ Wiiter geits",
	"success.not_paused":     "Es isch gar nid pousiert.",
	"success.stopped":        "⏹️ Gstoppt und dr Voice-Channel verla",
	"success.volume":         "🔊 Lutstärchi uf %d%% gsetzt",
	"success.autoplay_on":    "Autoplay isch ah. I spile wiiter, we d Warteschlange läär isch.",
	"success.autoplay_off":   "Autoplay isch us.",

	// Queue listing
	"queue.empty":       "D Warteschlange isch läär.",
	"queue.now_playing": "**Grad am Spile:** %s",
	"queue.entry":       "`%d.` %s",
	"queue.footer":      "Site %d/%d, %d Lied(er) i dr Warteschlange",

	// Format helpers
	"format.song":     "%s - %s",
	"format.duration": " (%s)",

	// Bot status messages
	"bot.now_playing":     "🎵 Jitz louft **%s** vo %s, gwünscht vo %s",
	"bot.track_not_found": "Ha für **%s** vo %s kei abspilbari Version gfunde, i lah's us.",
	"bot.idle_disconnect": "👋 Ha dr Voice-Channel verla, wius nüt meh z spile gä het.",
	"bot.stats":           "⏱️ Louft sit: %d Tag\n🏠 Server: %d\n🎶 Aktivi Sessions: %d",
}
