package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	api "github.com/sashabaranov/go-openai"

	"github.com/saswatpal/handlewarrior/internal/history"
)

// Client wraps the OpenAI API as the primary model backend: chat
// completions over full conversation history, voice transcription, and
// stateless image description.
type Client struct {
	api         *api.Client
	chatModel   string
	visionModel string
	audioModel  string
	timeout     time.Duration
}

// NewClient creates an OpenAI client. baseURL may be empty to use the
// public API endpoint.
func NewClient(apiKey, baseURL, chatModel, visionModel, audioModel string, timeout time.Duration) *Client {
	cfg := api.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:         api.NewClientWithConfig(cfg),
		chatModel:   chatModel,
		visionModel: visionModel,
		audioModel:  audioModel,
		timeout:     timeout,
	}
}

// ChatCompletion submits the full turn sequence and returns the reply text.
func (c *Client) ChatCompletion(ctx context.Context, turns []history.Turn) (string, error) {
	messages := make([]api.ChatCompletionMessage, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, api.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, api.ChatCompletionRequest{
		Model:    c.chatModel,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion returned no choices")
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("openai chat completion returned empty reply")
	}
	return reply, nil
}

// Transcribe converts a downloaded voice recording to text.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateTranscription(ctx, api.AudioRequest{
		Model:    c.audioModel,
		FilePath: audioPath,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("openai transcription returned empty text")
	}
	return text, nil
}

// DescribeImage sends a single stateless vision request asking for a
// free-text description of the image. It carries no conversation history.
func (c *Client) DescribeImage(ctx context.Context, imageData []byte) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(imageData)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, api.ChatCompletionRequest{
		Model:     c.visionModel,
		MaxTokens: 300,
		Messages: []api.ChatCompletionMessage{
			{
				Role: api.ChatMessageRoleUser,
				MultiContent: []api.ChatMessagePart{
					{
						Type: api.ChatMessagePartTypeText,
						Text: "Analyze this image and describe it.",
					},
					{
						Type: api.ChatMessagePartTypeImageURL,
						ImageURL: &api.ChatMessageImageURL{
							URL: "data:image/jpeg;base64," + encoded,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai image description failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai image description returned no choices")
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("openai image description returned empty reply")
	}
	return reply, nil
}
