package recognizer

import (
	"context"
	"encoding/base64"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/krisalay/sharecache/jobs"
	"github.com/krisalay/sharecache/log"
)

const instruction = "Extract the text in this image. Output only the original text and its line breaks, " +
	"without extra symbols or explanations."

// Config selects an OpenAI-compatible chat completion endpoint.
type Config struct {
	BaseURL string `mapstructure:"baseURL"`
	APIKey  string `mapstructure:"apiKey"`
	Model   string `mapstructure:"model"`
}

// Enabled reports whether a recognizer should be built at all.
func (c Config) Enabled() bool {
	return c.BaseURL != ""
}

// ChatClient is the subset of the openai client used here.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

/*
OpenAI recognizes text by sending the image, as a data URL, to a vision-capable
chat model together with a fixed instruction, at (effectively) zero temperature.
*/
type OpenAI struct {
	client ChatClient
	model  string
}

var _ jobs.Recognizer = (*OpenAI)(nil)

// New returns nil when cfg has no base URL, leaving recognition unconfigured.
func New(cfg Config) *OpenAI {
	if !cfg.Enabled() {
		return nil
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	log.Info("text recognizer configured",
		log.FieldComponent("recognizer"),
		zap.String("baseURL", clientCfg.BaseURL),
		zap.String("model", cfg.Model))
	return NewWithClient(openai.NewClientWithConfig(clientCfg), cfg.Model)
}

func NewWithClient(client ChatClient, model string) *OpenAI {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{client: client, model: model}
}

func (o *OpenAI) Recognize(ctx context.Context, data []byte, contentType string) (string, error) {
	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: instruction},
	}
	if contentType != "" {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURL(contentType, data),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		// a literal 0 is dropped by omitempty and the server default applies
		Temperature: math.SmallestNonzeroFloat32,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", jobs.ErrNoText
	}
	return resp.Choices[0].Message.Content, nil
}

func dataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
