package translate

import (
	"context"
	"log"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// defaultLanguage is returned when detection fails. Detection is advisory,
// so a provider failure degrades to this fixed default instead of an error.
var defaultLanguage = Language{Code: "en", Name: "English"}

// DetectLanguage identifies the language of a transcript. Never fails: on
// engine error or an unparseable reply it returns the documented default.
func DetectLanguage(ctx context.Context, engine Engine, text string) Language {
	if engine == nil {
		return defaultLanguage
	}

	code, err := engine.DetectLanguageCode(ctx, text)
	if err != nil {
		log.Printf("[translate] language detection failed, using %s: %v", defaultLanguage.Code, err)
		return defaultLanguage
	}

	tag, err := language.Parse(code)
	if err != nil {
		log.Printf("[translate] unrecognized language code %q, using %s", code, defaultLanguage.Code)
		return defaultLanguage
	}

	name := display.English.Languages().Name(tag)
	if name == "" {
		name = code
	}
	return Language{Code: code, Name: name}
}
