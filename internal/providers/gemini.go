package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mindspero/mindspero/internal/config"
	apperrors "github.com/mindspero/mindspero/internal/pkg/errors"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// ErrNoCandidates is returned when Gemini produces no usable text
var ErrNoCandidates = errors.New("gemini: no content generated")

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent      `json:"systemInstruction,omitempty"`
	Contents          []geminiContent     `json:"contents"`
	GenerationConfig  geminiGenerationCfg `json:"generationConfig"`
}

type geminiGenerationCfg struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// Gemini summarizes text with the Gemini generateContent API. It has no
// speech endpoint so narration stays with OpenAI.
type Gemini struct {
	apiKey        string
	baseURL       string
	model         string
	maxTokens     int
	maxInputChars int
	httpClient    *http.Client
}

// NewGemini builds the client from cfg
func NewGemini(cfg config.AIConfig) *Gemini {
	return &Gemini{
		apiKey:        cfg.GeminiAPIKey,
		baseURL:       geminiBaseURL,
		model:         cfg.GeminiModel,
		maxTokens:     cfg.MaxSummaryTokens,
		maxInputChars: cfg.MaxInputChars,
		httpClient:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Summarize returns a markdown study summary of text
func (g *Gemini) Summarize(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: summaryPrompt}}},
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: truncate(text, g.maxInputChars)}},
		}},
		GenerationConfig: geminiGenerationCfg{MaxOutputTokens: g.maxTokens},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", apperrors.ProviderAPIError("Gemini", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("gemini: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", apperrors.ProviderAPIError("Gemini",
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(raw), 512)))
	}

	var out geminiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(out.Candidates) == 0 {
		return "", ErrNoCandidates
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrNoCandidates
	}
	return sb.String(), nil
}
