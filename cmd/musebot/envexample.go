package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// envSection groups flags under one heading of .env.example.
type envSection struct {
	title string
	note  string
	flags []string
}

var envSections = []envSection{
	{
		title: "Discord",
		note:  "Bot token from the Discord developer portal. Set the guild ID while developing to register commands instantly.",
		flags: []string{"discord-token", "discord-guild-id"},
	},
	{
		title: "Spotify",
		note:  "Client credentials from https://developer.spotify.com/dashboard. No user login is needed.",
		flags: []string{"spotify-client-id", "spotify-client-secret", "spotify-requests-per-second"},
	},
	{
		title: "YouTube",
		note:  "yt-dlp must be installed. Leave the path empty to look it up in PATH.",
		flags: []string{"youtube-binary-path"},
	},
	{
		title: "Lavalink",
		note:  "The Lavalink node that streams audio into voice channels.",
		flags: []string{"lavalink-node-name", "lavalink-address", "lavalink-password", "lavalink-secure"},
	},
	{
		title: "Storage",
		flags: []string{"store-settings-path", "store-history-size"},
	},
	{
		title: "Playback",
		flags: []string{"idle-timeout", "default-volume", "language", "command-limit-per-minute"},
	},
	{
		title: "HTTP Server",
		note:  "Serves /healthz, /readyz and /metrics.",
		flags: []string{"server-host", "server-port"},
	},
	{
		title: "Logging",
		flags: []string{"log-level", "log-format"},
	},
}

// secretFlags get a placeholder instead of their default.
var secretFlags = map[string]string{
	"discord-token":         "your_discord_bot_token",
	"spotify-client-id":     "your_spotify_client_id",
	"spotify-client-secret": "your_spotify_client_secret",
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(".env.example", []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("✅ Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# musebot Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("#\n")
	content.WriteString("# Format: MUSEBOT_<SECTION>_<SETTING>=value\n")
	content.WriteString("# CLI equivalent: --<section>-<setting>\n")
	content.WriteString("#\n")
	content.WriteString("# =============================================================================\n\n")

	for _, section := range envSections {
		generateSection(&content, cmd, section)
	}

	return content.String()
}

func generateSection(content *strings.Builder, cmd *cobra.Command, section envSection) {
	content.WriteString("# -----------------------------------------------------------------------------\n")
	fmt.Fprintf(content, "# %s Configuration\n", section.title)
	content.WriteString("# -----------------------------------------------------------------------------\n")
	if section.note != "" {
		fmt.Fprintf(content, "# %s\n", section.note)
	}
	fmt.Fprintf(content, "# CLI: --%s\n", strings.Join(section.flags, ", --"))

	for _, name := range section.flags {
		value, ok := secretFlags[name]
		if !ok {
			value = getDefaultValueString(cmd, name)
		}
		fmt.Fprintf(content, "%s=%s", flagToEnvVar(name), value)
		if usage := getUsage(cmd, name); usage != "" {
			fmt.Fprintf(content, "  # %s", usage)
		}
		content.WriteString("\n")
	}
	content.WriteString("\n")
}

func flagToEnvVar(flagName string) string {
	return "MUSEBOT_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func getDefaultValueString(cmd *cobra.Command, flagName string) string {
	if f := cmd.PersistentFlags().Lookup(flagName); f != nil {
		return f.DefValue
	}
	return ""
}

func getUsage(cmd *cobra.Command, flagName string) string {
	if f := cmd.PersistentFlags().Lookup(flagName); f != nil {
		return f.Usage
	}
	return ""
}
