package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const geminiAPIBase = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiEngine translates transcript prose using the Gemini API.
type GeminiEngine struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewGeminiEngine(apiKey, model string) *GeminiEngine {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiEngine{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (g *GeminiEngine) Name() string { return "gemini" }

func (g *GeminiEngine) TranslateTexts(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("Gemini API key not configured")
	}

	source := sourceLang
	if source == "" || source == "auto" {
		source = "the source language"
	}
	systemPrompt := fmt.Sprintf(
		"You translate lecture transcripts from %s to %s. Keep the register natural and faithful; never add commentary.",
		source, targetLang)

	var userPrompt strings.Builder
	userPrompt.WriteString("Translate the following transcript segments. Return ONLY a JSON array with the translated text for each segment, maintaining the same order and count.\n\nInput segments:\n")
	for i, text := range texts {
		userPrompt.WriteString(fmt.Sprintf("[%d] %s\n", i+1, strings.TrimSpace(text)))
	}
	userPrompt.WriteString(fmt.Sprintf("\nReturn exactly %d translations as a JSON array of strings.", len(texts)))

	reqBody := map[string]interface{}{
		"system_instruction": map[string]interface{}{
			"parts": []map[string]string{
				{"text": systemPrompt},
			},
		},
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": userPrompt.String()},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":      0.3,
			"responseMimeType": "application/json",
		},
	}

	text, err := g.generate(ctx, reqBody)
	if err != nil {
		return nil, err
	}

	var translations []string
	if err := json.Unmarshal([]byte(text), &translations); err != nil {
		// Try to extract the JSON array from surrounding prose
		start := strings.Index(text, "[")
		end := strings.LastIndex(text, "]")
		if start >= 0 && end > start {
			if err2 := json.Unmarshal([]byte(text[start:end+1]), &translations); err2 != nil {
				return nil, fmt.Errorf("parse translations: %w (raw: %s)", err, text)
			}
		} else {
			return nil, fmt.Errorf("parse translations: %w (raw: %s)", err, text)
		}
	}

	if len(translations) != len(texts) {
		log.Printf("[translate] WARNING: expected %d translations, got %d", len(texts), len(translations))
	}

	// Fall back to the original text for any missing or empty entries.
	result := make([]string, len(texts))
	for i := range texts {
		if i < len(translations) && strings.TrimSpace(translations[i]) != "" {
			result[i] = translations[i]
		} else {
			result[i] = texts[i]
		}
	}
	return result, nil
}

func (g *GeminiEngine) DetectLanguageCode(ctx context.Context, text string) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("Gemini API key not configured")
	}

	sample := text
	if len(sample) > 1000 {
		sample = sample[:1000]
	}

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": "Reply with only the ISO 639-1 code of the language of this text:\n\n" + sample},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature": 0.0,
		},
	}

	reply, err := g.generate(ctx, reqBody)
	if err != nil {
		return "", err
	}
	code := strings.ToLower(strings.Trim(strings.TrimSpace(reply), "\"'`."))
	if len(code) < 2 || len(code) > 3 {
		return "", fmt.Errorf("unexpected language reply: %q", reply)
	}
	return code, nil
}

func (g *GeminiEngine) generate(ctx context.Context, reqBody map[string]interface{}) (string, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s:generateContent", geminiAPIBase, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("Gemini API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Gemini API error (status %d): %s", resp.StatusCode, string(body))
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason"`
		} `json:"promptFeedback"`
	}
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		if geminiResp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("Gemini blocked: %s", geminiResp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("empty Gemini response")
	}
	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}
