package agent

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiClient implements ModelClient on the Google Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiClient constructs a Gemini-backed model gateway. An empty model
// falls back to the default.
func NewGeminiClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{client: client, model: model, timeout: timeout}, nil
}

// geminiRole maps a gateway message onto the Gemini wire role. The SDK's
// role constants are untyped strings, so the conversion is pinned here.
func geminiRole(m Message) genai.Role {
	if m.Role == RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}

// Generate sends the instruction as the system instruction and the history
// as alternating user/model contents, returning the single reply text.
func (c *GeminiClient) Generate(ctx context.Context, instruction string, history []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		contents = append(contents, genai.NewContentFromText(m.Content, geminiRole(m)))
	}
	// Gemini rejects an empty contents list; the kickoff call sends only the
	// instruction, so seed it with a minimal opener.
	if len(contents) == 0 {
		contents = append(contents, genai.NewContentFromText("Begin.", genai.RoleUser))
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini generate: empty response")
	}
	return text, nil
}
