// Package credentials reads the Home Assistant API credentials from an
// external env file at invocation time. Nothing is persisted or cached;
// a fresh read happens on every run that needs the API.
package credentials

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// EnvBaseURL is the env file variable holding the API base URL.
	EnvBaseURL = "HA_URL"
	// EnvToken is the env file variable holding the long-lived access token.
	EnvToken = "HA_TOKEN"
)

// Credentials holds the Home Assistant API base URL and bearer token.
type Credentials struct {
	BaseURL string
	Token   string
}

// Load reads the env file at path and extracts the two required variables.
func Load(path string) (*Credentials, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file %s: %w", path, err)
	}

	baseURL := strings.TrimSpace(vars[EnvBaseURL])
	if baseURL == "" {
		return nil, fmt.Errorf("%s not set in %s", EnvBaseURL, path)
	}

	token := strings.TrimSpace(vars[EnvToken])
	if token == "" {
		return nil, fmt.Errorf("%s not set in %s", EnvToken, path)
	}

	return &Credentials{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
	}, nil
}
