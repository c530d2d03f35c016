package interpret

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// Interpreter reads a strip image and returns the per-panel numeric array.
// Network errors, non-success responses and unparsable text all surface as a
// plain error; callers only need "could not interpret".
type Interpreter interface {
	Interpret(ctx context.Context, image []byte, prompt string) ([]int, error)
}

// Client calls the hosted multimodal model with a kit prompt and an inline
// image and scrapes the numeric array out of the response. No retries are
// performed here; failures surface to the capture controller.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewClient creates an inference client.
func NewClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("inference API key is required")
	}
	if model == "" {
		model = "gemini-1.5-flash-latest"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create inference client: %w", err)
	}

	return &Client{
		client:  client,
		model:   model,
		timeout: timeout,
	}, nil
}

// Interpret sends one image with the resolved prompt and parses the reply.
func (c *Client) Interpret(ctx context.Context, image []byte, prompt string) ([]int, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(image, "image/png"),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("inference call failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return nil, ErrNoArray
	}
	return ExtractArray(text)
}

// InterpretSides runs one call per captured side and concatenates the arrays
// in front-then-back order. A failure on either side fails the pair.
func InterpretSides(ctx context.Context, it Interpreter, prompt string, front, back []byte) ([]int, error) {
	values, err := it.Interpret(ctx, front, prompt)
	if err != nil {
		return nil, err
	}
	if back == nil {
		return values, nil
	}

	backValues, err := it.Interpret(ctx, back, prompt)
	if err != nil {
		return nil, err
	}
	return append(values, backValues...), nil
}
