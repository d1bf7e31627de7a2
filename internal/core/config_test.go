package core

import (
	"testing"

	"musebot/internal/i18n"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.App.Language != i18n.DefaultLanguage {
		t.Errorf("Expected default language to be %s, got %s", i18n.DefaultLanguage, config.App.Language)
	}

	if config.App.IdleTimeout != DefaultIdleTimeout {
		t.Errorf("Expected default idle timeout %v, got %v", DefaultIdleTimeout, config.App.IdleTimeout)
	}

	if config.App.DefaultVolume != DefaultVolume {
		t.Errorf("Expected default volume %d, got %d", DefaultVolume, config.App.DefaultVolume)
	}

	if config.Discord.Token != "" {
		t.Errorf("Expected no default Discord token, got %q", config.Discord.Token)
	}

	if config.Store.HistorySize != DefaultHistorySize {
		t.Errorf("Expected default history size %d, got %d", DefaultHistorySize, config.Store.HistorySize)
	}
}

func TestLanguageConfiguration(t *testing.T) {
	config := DefaultConfig()

	for _, lang := range i18n.GetSupportedLanguages() {
		config.App.Language = lang
		localizer := i18n.NewLocalizer(config.App.Language)
		if localizer == nil {
			t.Errorf("Failed to create localizer for language %s", lang)
		}

		if message := localizer.T("error.generic"); message == "" || message == "error.generic" {
			t.Errorf("Missing message for key 'error.generic' in language %s", lang)
		}
	}
}

func TestConfigConstants(t *testing.T) {
	if DefaultIdleTimeout <= 0 {
		t.Error("DefaultIdleTimeout should be positive")
	}

	if DefaultVolume <= 0 || DefaultVolume > MaxVolume {
		t.Errorf("DefaultVolume %d should be within (0, %d]", DefaultVolume, MaxVolume)
	}

	if DefaultCommandLimitPerMinute <= 0 {
		t.Error("DefaultCommandLimitPerMinute should be positive")
	}
}
