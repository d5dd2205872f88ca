// Package azureopenai implements intent analysis against an Azure OpenAI
// chat completions deployment.
package azureopenai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/Yogeshviper/azure-ai-operator/internal/core/domain"
	"github.com/Yogeshviper/azure-ai-operator/internal/core/ports"
)

const (
	defaultAPIVersion    = "2024-06-01"
	defaultAuthorityHost = "https://login.microsoftonline.com"
	cognitiveScope       = "https://cognitiveservices.azure.com/.default"
)

// Config describes the deployment and how to authenticate to it. APIKey
// takes precedence; otherwise the service principal is used to obtain
// bearer tokens.
type Config struct {
	Endpoint   string
	Deployment string
	APIVersion string
	APIKey     string
	Timeout    time.Duration

	TenantID      string
	ClientID      string
	ClientSecret  string
	AuthorityHost string
}

type Client struct {
	endpoint   string
	deployment string
	apiVersion string
	apiKey     string
	httpClient *http.Client
}

var _ ports.IntentCompiler = (*Client)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	httpClient := &http.Client{Timeout: timeout}
	if cfg.APIKey == "" {
		authority := strings.TrimRight(cfg.AuthorityHost, "/")
		if authority == "" {
			authority = defaultAuthorityHost
		}
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", authority, cfg.TenantID),
			Scopes:       []string{cognitiveScope},
		}
		// The token source fetches with the same bounded client.
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})
		httpClient = cc.Client(ctx)
		httpClient.Timeout = timeout
	}

	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		deployment: cfg.Deployment,
		apiVersion: apiVersion,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}
}

func (c *Client) completionsURL() string {
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, url.PathEscape(c.deployment), url.QueryEscape(c.apiVersion))
}

// AnalyzeIntent sends the fixed instructions and the message with
// temperature 0 and parses the first choice.
func (c *Client) AnalyzeIntent(ctx context.Context, message string) (domain.Intent, error) {
	body, err := json.Marshal(chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: domain.IntentInstructions},
			{Role: "user", Content: message},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("azureopenai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.completionsURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("azureopenai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("azureopenai: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("azureopenai: read response: %w", err)
	}

	var parsed chatResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && parsed.Error != nil {
			return nil, fmt.Errorf("azureopenai: status %d: %s: %s", resp.StatusCode, parsed.Error.Code, parsed.Error.Message)
		}
		return nil, fmt.Errorf("azureopenai: unexpected status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("azureopenai: decode response: %w", decodeErr)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("azureopenai: response has no choices")
	}

	intent, err := domain.ParseIntent(parsed.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("azureopenai: %w", err)
	}
	return intent, nil
}
