// Package i18n localizes the replies the bot sends to Discord.
package i18n

import (
	"fmt"
	"strings"
)

const (
	// DefaultLanguage is the fallback language when no translation is available
	DefaultLanguage = "en"
	// BerneseGermanMessages is a Swiss Dialect spoken in the Canton of Bern
	BerneseGermanMessages = "ch_be"
)

// Localizer translates message keys into one language.
type Localizer struct {
	language string
	messages map[string]string
}

// NewLocalizer creates a localizer. Unknown languages fall back to English.
func NewLocalizer(language string) *Localizer {
	language = Normalize(language)
	return &Localizer{
		language: language,
		messages: getMessages(language),
	}
}

// Language returns the normalized language code.
func (l *Localizer) Language() string {
	return l.language
}

// T translates a message key, formatting it with args when given.
func (l *Localizer) T(key string, args ...any) string {
	if message, exists := l.messages[key]; exists {
		return format(message, args)
	}

	if l.language != DefaultLanguage {
		if fallbackMessage, exists := englishMessages[key]; exists {
			return format(fallbackMessage, args)
		}
	}

	return key
}

func format(message string, args []any) string {
	if len(args) == 0 {
		return message
	}
	return fmt.Sprintf(message, args...)
}

// GetSupportedLanguages returns list of supported language codes
func GetSupportedLanguages() []string {
	return []string{DefaultLanguage, BerneseGermanMessages}
}

// Normalize maps a configured language ("CH-BE", " en ") to a supported
// language code, DefaultLanguage when there is none.
func Normalize(language string) string {
	language = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(language), "-", "_"))
	for _, supported := range GetSupportedLanguages() {
		if language == supported {
			return supported
		}
	}
	return DefaultLanguage
}

// IsSupported reports whether language names a translation exactly.
func IsSupported(language string) bool {
	for _, supported := range GetSupportedLanguages() {
		if language == supported {
			return true
		}
	}
	return false
}

func getMessages(language string) map[string]string {
	switch language {
	case BerneseGermanMessages:
		return berneseGermanMessages
	default:
		return englishMessages
	}
}
