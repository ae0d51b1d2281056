package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client calls the Gemini generateContent endpoint. It is the fallback
// model backend: a plain request/response completion with no
// conversational memory.
type Client struct {
	apiKey     string
	url        string
	httpClient *resty.Client
}

// NewClient creates a Gemini client for the given generateContent URL.
func NewClient(apiKey, url string, timeout time.Duration) *Client {
	return &Client{
		apiKey:     apiKey,
		url:        url,
		httpClient: resty.New().SetTimeout(timeout),
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Complete sends a single user message and returns the generated text.
func (c *Client) Complete(ctx context.Context, text string) (string, error) {
	var parsed generateResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetBody(generateRequest{
			Contents: []content{{Parts: []part{{Text: text}}}},
		}).
		SetResult(&parsed).
		Post(c.url)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("gemini non-success status=%d body=%s", resp.StatusCode(), truncate(resp.String(), 400))
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response missing candidates")
	}
	reply := strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text)
	if reply == "" {
		return "", fmt.Errorf("gemini returned empty reply")
	}
	return reply, nil
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
