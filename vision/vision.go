// Package vision describes maintenance photos through a third-party vision
// model. The provider is an explicit configuration choice, not an ambient
// environment lookup: construction fails fast on anything outside the
// supported set.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Provider is the closed set of supported vision backends.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	defaultGeminiModel = "gemini-1.5-flash"
	defaultTimeout     = 20 * time.Second

	defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"
	defaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta/models"
)

// DefaultPrompt is used when the caller supplies no prompt of their own.
const DefaultPrompt = "Describe this image in detail. If it shows damage or a maintenance issue, " +
	"describe what is damaged, severity, and any visible details that would help " +
	"a repair technician."

var (
	// ErrUnsupportedProvider signals a provider outside the closed enum.
	ErrUnsupportedProvider = errors.New("vision: unsupported provider")
	// ErrMissingAPIKey signals a provider configured without credentials.
	ErrMissingAPIKey = errors.New("vision: api key is required")
	// ErrUpstream signals an error response from the vision backend.
	ErrUpstream = errors.New("vision: upstream request failed")
)

// Config selects and credentials a vision backend.
type Config struct {
	Provider Provider
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// Client calls one configured vision backend.
type Client struct {
	httpClient *http.Client
	provider   Provider
	apiKey     string
	model      string

	// Overridable URLs for testing.
	openaiURL string
	geminiURL string
}

// New creates a vision client, failing fast on an unrecognized provider or
// missing credentials.
func New(cfg Config) (*Client, error) {
	switch cfg.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	model := cfg.Model
	if model == "" {
		if cfg.Provider == ProviderOpenAI {
			model = defaultOpenAIModel
		} else {
			model = defaultGeminiModel
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		provider:   cfg.Provider,
		apiKey:     cfg.APIKey,
		model:      model,
		openaiURL:  defaultOpenAIURL,
		geminiURL:  defaultGeminiURL,
	}, nil
}

// Analyze describes an image (base64, optionally a data URL) and returns the
// backend's free-text description. An empty prompt falls back to
// DefaultPrompt. Upstream failures and timeouts are surfaced, never retried.
func (c *Client) Analyze(ctx context.Context, imageBase64, prompt string) (string, error) {
	if imageBase64 == "" {
		return "", fmt.Errorf("vision: empty image payload")
	}
	if prompt == "" {
		prompt = DefaultPrompt
	}

	switch c.provider {
	case ProviderOpenAI:
		return c.analyzeOpenAI(ctx, imageBase64, prompt)
	case ProviderGemini:
		return c.analyzeGemini(ctx, imageBase64, prompt)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, c.provider)
	}
}

func (c *Client) analyzeOpenAI(ctx context.Context, imageBase64, prompt string) (string, error) {
	dataURL := imageBase64
	if !strings.HasPrefix(imageBase64, "data:") {
		dataURL = "data:image/jpeg;base64," + imageBase64
	}

	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": prompt},
					{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
				},
			},
		},
		"temperature": 0.2,
	}

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	body, err := c.post(ctx, c.openaiURL, headers, payload)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("vision: decode openai response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty openai response", ErrUpstream)
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func (c *Client) analyzeGemini(ctx context.Context, imageBase64, prompt string) (string, error) {
	mime, data := splitDataURL(imageBase64)

	payload := map[string]any{
		"contents": []map[string]any{
			{
				"parts": []map[string]any{
					{"text": prompt},
					{"inline_data": map[string]any{"mime_type": mime, "data": data}},
				},
			},
		},
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.geminiURL, c.model, c.apiKey)
	body, err := c.post(ctx, url, nil, payload)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("vision: decode gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty gemini response", ErrUpstream)
	}
	return strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text), nil
}

func (c *Client) post(ctx context.Context, url string, headers map[string]string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("vision: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("vision: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("vision: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("%w: %s", ErrUpstream, msg)
	}
	return body, nil
}

// splitDataURL separates the mime type from the payload of a data URL,
// defaulting to JPEG for bare base64 strings.
func splitDataURL(imageBase64 string) (mime, data string) {
	if strings.HasPrefix(imageBase64, "data:") {
		if header, rest, ok := strings.Cut(imageBase64, ","); ok {
			mime = strings.TrimPrefix(strings.SplitN(header, ";", 2)[0], "data:")
			return mime, rest
		}
	}
	return "image/jpeg", imageBase64
}
