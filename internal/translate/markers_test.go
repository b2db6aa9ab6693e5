package translate

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

// fakeEngine translates by wrapping each text, so tests can tell exactly
// which runs were sent to the engine.
type fakeEngine struct {
	calls [][]string
	fail  error
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) TranslateTexts(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.calls = append(f.calls, texts)
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = "<" + strings.TrimSpace(t) + ">"
	}
	return out, nil
}

func (f *fakeEngine) DetectLanguageCode(ctx context.Context, text string) (string, error) {
	if f.fail != nil {
		return "", f.fail
	}
	return "ar", nil
}

func TestMarkers(t *testing.T) {
	text := "[00:05] intro [01:02:03] later"
	got := Markers(text)
	want := []string{"[00:05]", "[01:02:03]"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Markers = %v, want %v", got, want)
	}
}

func TestTranslateTextPreservesMarkers(t *testing.T) {
	text := "[00:00] welcome everyone\n[00:12] today we cover sorting\n[01:00:05] questions?\n"

	engine := &fakeEngine{}
	out, err := TranslateText(context.Background(), engine, text, "en", "ar")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}

	// Same markers, byte-identical, same order.
	if got, want := Markers(out), Markers(text); !reflect.DeepEqual(got, want) {
		t.Errorf("markers changed: got %v, want %v", got, want)
	}

	// Prose between markers went through the engine.
	if !strings.Contains(out, "[00:00] <welcome everyone>") {
		t.Errorf("first run not translated in place: %q", out)
	}
	if !strings.Contains(out, "[00:12] <today we cover sorting>") {
		t.Errorf("second run not translated in place: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Errorf("trailing whitespace dropped: %q", out)
	}

	// Markers themselves never reach the engine.
	for _, call := range engine.calls {
		for _, sent := range call {
			if markerRe.MatchString(sent) {
				t.Errorf("marker sent to engine: %q", sent)
			}
		}
	}
}

func TestTranslateTextNoProse(t *testing.T) {
	text := "[00:00][00:05][00:10]"
	engine := &fakeEngine{}
	out, err := TranslateText(context.Background(), engine, text, "en", "ar")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if out != text {
		t.Errorf("marker-only input changed: %q", out)
	}
	if len(engine.calls) != 0 {
		t.Errorf("engine called for marker-only input")
	}
}

func TestTranslateTextEngineFailure(t *testing.T) {
	engine := &fakeEngine{fail: errors.New("quota exceeded")}
	if _, err := TranslateText(context.Background(), engine, "[00:00] hello", "en", "ar"); err == nil {
		t.Fatal("expected engine failure to propagate")
	}
}

func TestTranslateTextKeepsOriginalOnEmptyTranslation(t *testing.T) {
	engine := &emptyEngine{}
	text := "[00:00] hello there"
	out, err := TranslateText(context.Background(), engine, text, "en", "ar")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if out != text {
		t.Errorf("empty translation should keep the original run: %q", out)
	}
}

type emptyEngine struct{}

func (e *emptyEngine) Name() string { return "empty" }

func (e *emptyEngine) TranslateTexts(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	return make([]string, len(texts)), nil
}

func (e *emptyEngine) DetectLanguageCode(ctx context.Context, text string) (string, error) {
	return "", nil
}

func TestDetectLanguage(t *testing.T) {
	lang := DetectLanguage(context.Background(), &fakeEngine{}, "مرحبا بالجميع")
	if lang.Code != "ar" {
		t.Errorf("code = %q, want ar", lang.Code)
	}
	if lang.Name != "Arabic" {
		t.Errorf("name = %q, want Arabic", lang.Name)
	}
}

func TestDetectLanguageFallsBack(t *testing.T) {
	cases := map[string]Engine{
		"nil engine":   nil,
		"engine error": &fakeEngine{fail: errors.New("unreachable")},
		"unparseable":  &emptyEngine{},
	}
	for name, engine := range cases {
		lang := DetectLanguage(context.Background(), engine, "some text")
		if lang.Code != "en" || lang.Name != "English" {
			t.Errorf("%s: got %+v, want the en default", name, lang)
		}
	}
}
