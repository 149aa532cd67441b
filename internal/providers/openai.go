package providers

import (
	"context"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mindspero/mindspero/internal/config"
	apperrors "github.com/mindspero/mindspero/internal/pkg/errors"
)

// ErrEmptyCompletion is returned when the model answers with no content
var ErrEmptyCompletion = errors.New("openai: empty completion")

const summaryPrompt = `You are a study assistant. Summarize the following lecture notes for a student.
Use short sections with headings, keep key definitions and formulas, and end with five review questions.`

// OpenAI summarizes text and narrates summaries
type OpenAI struct {
	client        *openai.Client
	summaryModel  string
	speechModel   string
	voice         string
	maxTokens     int
	maxInputChars int
}

// NewOpenAI builds the client from cfg
func NewOpenAI(cfg config.AIConfig) *OpenAI {
	return &OpenAI{
		client:        openai.NewClient(cfg.OpenAIAPIKey),
		summaryModel:  cfg.SummaryModel,
		speechModel:   cfg.SpeechModel,
		voice:         cfg.Voice,
		maxTokens:     cfg.MaxSummaryTokens,
		maxInputChars: cfg.MaxInputChars,
	}
}

// Summarize returns a markdown study summary of text
func (o *OpenAI) Summarize(ctx context.Context, text string) (string, error) {
	text = truncate(text, o.maxInputChars)
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.summaryModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summaryPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens: o.maxTokens,
	})
	if err != nil {
		return "", apperrors.ProviderAPIError("OpenAI", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// Narrate converts a summary to MP3 speech. The caller closes the stream.
func (o *OpenAI) Narrate(ctx context.Context, text string) (io.ReadCloser, error) {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.speechModel),
		Input:          truncate(stripMarkdown(text), speechInputLimit),
		Voice:          openai.SpeechVoice(o.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, apperrors.ProviderAPIError("OpenAI speech", err)
	}
	return resp, nil
}

// the speech endpoint rejects inputs over 4096 characters
const speechInputLimit = 4096

// truncate cuts s to at most limit bytes without splitting a rune
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

var markdownReplacer = strings.NewReplacer("#", "", "*", "", "_", "", "`", "", ">", "")

func stripMarkdown(s string) string {
	return markdownReplacer.Replace(s)
}
