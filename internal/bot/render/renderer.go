// Package render produces localized reply copy for command handlers.
//
// Message catalogs live in per-locale Go files registered at init time; the
// user's stored locale picks the closest supported language, falling back to
// the en-US base.
package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// supported lists reply locales; the first entry is the fallback.
var supported = []language.Tag{
	language.AmericanEnglish,
	language.BrazilianPortuguese,
}

var matcher = language.NewMatcher(supported)

// Localizer is the minimal message-printer contract handlers render with.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// ForLocale returns a localizer for the given BCP 47 locale string. Unknown
// or empty locales render in the base locale.
func ForLocale(locale string) Localizer {
	tag, _ := language.MatchStrings(matcher, locale)
	return message.NewPrinter(tag)
}
