package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Client sends single-prompt generation requests to the Gemini API.
// Safe for concurrent use.
//
// config: Configuration for the Gemini API
// client: Underlying genai client
type Client struct {
	config *Config
	client *genai.Client
	safety []*genai.SafetySetting
}

// NewClient creates a new Gemini client with the given configuration
//
// Returns an error if the configuration is invalid or the genai client
// cannot be created.
func NewClient(ctx context.Context, config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{
		config: config,
		client: client,
		safety: DefaultSafetySettings(),
	}, nil
}

// GenerateContent sends prompt as a single user turn.
//
// API errors are returned unwrapped as genai.APIError so callers can
// inspect the status code.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error) {
	return c.client.Models.GenerateContent(ctx, c.config.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		SafetySettings: c.safety,
	})
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.config.Model
}

// DefaultSafetySettings disables blocking for every adjustable harm
// category. Dataset texts are translated as they are, moderation happens
// upstream.
func DefaultSafetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  c,
			Threshold: genai.HarmBlockThresholdBlockNone,
		})
	}
	return settings
}
