package recognizer

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/sharecache/jobs"
)

type fakeClient struct {
	req  openai.ChatCompletionRequest
	resp openai.ChatCompletionResponse
	err  error
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func reply(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: text}},
		},
	}
}

func TestNewDisabledWithoutBaseURL(t *testing.T) {
	assert.Nil(t, New(Config{Model: "m"}))
	assert.NotNil(t, New(Config{BaseURL: "http://localhost:11434/v1/", Model: "m"}))
}

func TestRecognizeSendsImage(t *testing.T) {
	client := &fakeClient{resp: reply("hello")}
	o := NewWithClient(client, "vision")

	text, err := o.Recognize(context.Background(), []byte{1, 2, 3}, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	assert.Equal(t, "vision", client.req.Model)
	assert.InDelta(t, 0, client.req.Temperature, 1e-6)
	require.Len(t, client.req.Messages, 1)
	parts := client.req.Messages[0].MultiContent
	require.Len(t, parts, 2)
	assert.Equal(t, instruction, parts[0].Text)
	assert.True(t, strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,"))
	assert.Equal(t, "data:image/png;base64,AQID", parts[1].ImageURL.URL)
}

func TestRecognizeWithoutContentTypeSendsOnlyText(t *testing.T) {
	client := &fakeClient{resp: reply("x")}
	o := NewWithClient(client, "")

	_, err := o.Recognize(context.Background(), []byte{1}, "")
	require.NoError(t, err)
	assert.Len(t, client.req.Messages[0].MultiContent, 1)
	assert.Equal(t, openai.GPT4oMini, client.req.Model)
}

func TestRecognizeErrors(t *testing.T) {
	o := NewWithClient(&fakeClient{err: errors.New("connection refused")}, "m")
	_, err := o.Recognize(context.Background(), nil, "image/png")
	assert.ErrorContains(t, err, "connection refused")

	o = NewWithClient(&fakeClient{}, "m")
	_, err = o.Recognize(context.Background(), nil, "image/png")
	assert.ErrorIs(t, err, jobs.ErrNoText)
}
