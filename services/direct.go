package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"k8s.io/klog/v2"
)

// DirectClient calls the generateContent REST endpoint with a single prompt
type DirectClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

type directRequest struct {
	Contents []directContent `json:"contents"`
}

type directContent struct {
	Parts []directPart `json:"parts"`
}

type directPart struct {
	Text string `json:"text"`
}

// NewDirectClient creates a REST client for the given model
func NewDirectClient(apiKey, baseURL, model string, timeout time.Duration) *DirectClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &DirectClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ DirectCaller = &DirectClient{}

// GenerateDirect sends prompt alone and returns the first candidate's text
func (d *DirectClient) GenerateDirect(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(directRequest{
		Contents: []directContent{{Parts: []directPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent", d.baseURL, d.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", d.apiKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make direct request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = string(body)
		}
		return "", &StatusError{StatusCode: resp.StatusCode, Body: msg}
	}

	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("failed to decode response: invalid JSON")
	}

	var text strings.Builder
	for _, part := range gjson.GetBytes(body, "candidates.0.content.parts.#.text").Array() {
		text.WriteString(part.String())
	}

	if text.Len() == 0 {
		if reason := gjson.GetBytes(body, "promptFeedback.blockReason").String(); reason != "" {
			klog.Warningf("Direct call blocked by provider: %s", reason)
		}
		return "", ErrEmptyResponse
	}
	return text.String(), nil
}

// GetStatus returns the status of the direct client
func (d *DirectClient) GetStatus() map[string]interface{} {
	return map[string]interface{}{
		"base_url": d.baseURL,
		"model":    d.model,
		"timeout":  d.httpClient.Timeout.String(),
	}
}
