package llm

import (
	"fmt"
)

// DefaultModel is used when GEMINI_MODEL is unset.
const DefaultModel = "gemini-2.0-flash"

// Config holds the settings of the Gemini client.
//
// Environment Variables:
// - GEMINI_API_KEY: API key for the Gemini API (required for the gemini_pro translator)
// - GEMINI_MODEL: Model name to use (default: gemini-2.0-flash)
//
// BaseURL is only set by tests pointing the client at a local server.
type Config struct {
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	BaseURL string `json:"base_url,omitempty"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}
