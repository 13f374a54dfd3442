package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	keychainService = "Claude Code-credentials"
	usageAPIURL     = "https://api.anthropic.com/api/oauth/usage"
)

// readAccessToken reads the Claude OAuth access token. On macOS it tries the
// system keychain first, falling back to ~/.claude/.credentials.json; other
// platforms read the JSON file directly.
func readAccessToken() (string, error) {
	var rawJSON string

	if runtime.GOOS == "darwin" {
		if secret, err := keyring.Get(keychainService, keychainService); err == nil && secret != "" {
			rawJSON = secret
		}
	}

	if rawJSON == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("determine home directory: %w", err)
		}
		data, err := os.ReadFile(filepath.Join(home, ".claude", ".credentials.json"))
		if err != nil {
			return "", nil //nolint:nilerr // absent credentials file just means no token yet
		}
		rawJSON = string(data)
	}

	var parsed struct {
		ClaudeAiOauth struct {
			AccessToken string `json:"accessToken"`
		} `json:"claudeAiOauth"`
	}
	if err := json.Unmarshal([]byte(rawJSON), &parsed); err != nil {
		return "", fmt.Errorf("parse credentials: %w", err)
	}
	return parsed.ClaudeAiOauth.AccessToken, nil
}

// FetchAPIUsage calls the Anthropic OAuth usage endpoint for rate-limit
// utilization, using the locally stored Claude Code OAuth credentials.
func FetchAPIUsage(ctx context.Context) (*APIResponse, error) {
	token, err := readAccessToken()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, fmt.Errorf("no Claude OAuth token found")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, usageAPIURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build usage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("anthropic-beta", "oauth-2025-04-20")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("usage API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read usage API response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("usage API returned %d: %s", resp.StatusCode, body)
	}

	var usage APIResponse
	if err := json.Unmarshal(body, &usage); err != nil {
		return nil, fmt.Errorf("parse usage API response: %w", err)
	}
	return &usage, nil
}
