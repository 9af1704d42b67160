// Package gemini wraps the Google GenAI API behind the small model
// capabilities the pipeline needs: text completion and vision extraction.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// ErrAPIKeyMissing indicates the model credential was never configured.
// It is a setup problem, not a transient failure, and is reported as such.
var ErrAPIKeyMissing = errors.New("gemini: api key not configured (set PALAVRA_GEMINI_API_KEY)")

// Client calls the Gemini API for text and vision completions.
type Client struct {
	client      *genai.Client
	visionModel string
	textModel   string
}

// New creates a Gemini client. An empty API key fails immediately with
// ErrAPIKeyMissing so operators can tell "needs setup" from a flaky network.
func New(ctx context.Context, apiKey, visionModel, textModel string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyMissing
	}
	if visionModel == "" {
		visionModel = "gemini-2.0-flash"
	}
	if textModel == "" {
		textModel = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{
		client:      client,
		visionModel: visionModel,
		textModel:   textModel,
	}, nil
}

// GenerateText runs a text completion and returns the raw response text.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.textModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini text completion: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty response")
	}
	return text, nil
}

// GenerateVision submits an image plus instruction to the vision model and
// returns the raw response text.
func (c *Client) GenerateVision(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/png"
	}

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(image, mimeType),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.visionModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini vision completion: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty response")
	}
	return text, nil
}
