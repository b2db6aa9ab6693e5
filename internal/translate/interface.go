package translate

import "context"

// Engine translates a batch of prose segments. Implementations must return
// one output per input, in order; timestamp handling is not their concern.
type Engine interface {
	TranslateTexts(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error)
	// DetectLanguageCode returns the ISO 639-1 code of the text.
	DetectLanguageCode(ctx context.Context, text string) (string, error)
	// Name returns the engine name
	Name() string
}

// Language is a detected language.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
