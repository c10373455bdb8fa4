// Package i18n provides localization for user-facing status messages.
package i18n

import (
	"fmt"
)

// DefaultLanguage is the fallback language when no translation is available.
const DefaultLanguage = "en"

// Localizer resolves message keys for one language.
type Localizer struct {
	language string
	messages map[string]string
}

// NewLocalizer creates a localizer for the specified language code.
func NewLocalizer(language string) *Localizer {
	return &Localizer{
		language: language,
		messages: getMessages(language),
	}
}

// T translates a message key, with optional fmt parameters.
func (l *Localizer) T(key string, args ...interface{}) string {
	if message, exists := l.messages[key]; exists {
		if len(args) > 0 {
			return fmt.Sprintf(message, args...)
		}
		return message
	}

	if l.language != DefaultLanguage {
		if fallback, exists := getMessages(DefaultLanguage)[key]; exists {
			if len(args) > 0 {
				return fmt.Sprintf(fallback, args...)
			}
			return fallback
		}
	}

	// Ultimate fallback: return the key itself.
	return key
}

func getMessages(language string) map[string]string {
	switch language {
	case DefaultLanguage:
		return englishMessages
	default:
		return englishMessages
	}
}
