package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type chatClient struct {
	baseURL    string
	httpClient *http.Client
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func newChatClient(baseURL string, timeout time.Duration) *chatClient {
	return &chatClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *chatClient) StartSession(ctx context.Context) (string, string, error) {
	var resp sessionResponse
	if err := c.post(ctx, "/sessions", nil, http.StatusCreated, &resp); err != nil {
		return "", "", fmt.Errorf("start session: %w", err)
	}
	return resp.SessionID, resp.Message, nil
}

func (c *chatClient) Send(ctx context.Context, sessionID, message string) (string, error) {
	var resp messageResponse
	body := map[string]string{"message": message}
	if err := c.post(ctx, "/sessions/"+sessionID+"/messages", body, http.StatusOK, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *chatClient) post(ctx context.Context, path string, body any, want int, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var apiErr errorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			if apiErr.Code != "" {
				return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Error)
			}
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// waitForBackend polls the backend health endpoint until it responds or times out
func waitForBackend(ctx context.Context, backendURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	healthURL := strings.TrimRight(backendURL, "/") + "/health"
	deadline := time.Now().Add(timeout)

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("backend not available after %v", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}
