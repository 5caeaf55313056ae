package credentials

import (
	"os"
	"path/filepath"
	"testing"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeEnvFile(t, "HA_URL=http://homeassistant.local:8123/\nHA_TOKEN=abc123\n")

	creds, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Trailing slash is stripped so path joining is predictable
	if creds.BaseURL != "http://homeassistant.local:8123" {
		t.Errorf("BaseURL = %q", creds.BaseURL)
	}
	if creds.Token != "abc123" {
		t.Errorf("Token = %q", creds.Token)
	}
}

func TestLoadQuotedValues(t *testing.T) {
	path := writeEnvFile(t, `HA_URL="http://ha.local:8123"`+"\n"+`HA_TOKEN="tok en"`+"\n")

	creds, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if creds.BaseURL != "http://ha.local:8123" {
		t.Errorf("BaseURL = %q", creds.BaseURL)
	}
	if creds.Token != "tok en" {
		t.Errorf("Token = %q", creds.Token)
	}
}

func TestLoadMissingVariables(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no url", "HA_TOKEN=abc\n"},
		{"no token", "HA_URL=http://ha.local:8123\n"},
		{"empty values", "HA_URL=\nHA_TOKEN=\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeEnvFile(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}
