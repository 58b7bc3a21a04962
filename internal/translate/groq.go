// Package translate calls the Groq chat-completions API to translate
// section text into Hindi and Gujarati.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.groq.com/openai/v1"

// Client calls the Groq OpenAI-compatible chat completions endpoint.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client

	// Stats tracks recent call latencies for the metrics endpoint.
	Stats *LLMStats
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		Stats: NewLLMStats(time.Hour),
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// translationResult is the JSON shape the model is instructed to return.
type translationResult struct {
	HindiTranslation   string `json:"hindi_translation"`
	GujratiTranslation string `json:"gujrati_translation"`
}

// Translate returns the Hindi and Gujarati renderings of text. Both
// strings are guaranteed non-empty on success.
func (c *Client) Translate(ctx context.Context, text string) (hindi, guj string, err error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: text},
		},
		Temperature:    0.2,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", "", &TranslationError{Message: err.Error(), transport: true}
	}
	defer resp.Body.Close()

	if c.Stats != nil {
		c.Stats.Record(time.Since(start).Milliseconds())
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", "", &TranslationError{
			StatusCode: resp.StatusCode,
			Message:    truncate(string(respBody), 200),
		}
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", "", &TranslationError{Message: fmt.Sprintf("decode response: %s", err)}
	}
	if apiResp.Error != nil {
		return "", "", &TranslationError{
			Message: fmt.Sprintf("%s: %s", apiResp.Error.Type, apiResp.Error.Message),
		}
	}
	if len(apiResp.Choices) == 0 {
		return "", "", &TranslationError{Message: "empty response from model"}
	}

	content := stripCodeBlock(apiResp.Choices[0].Message.Content)

	var result translationResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return "", "", &TranslationError{
			Message: fmt.Sprintf("parse translation json: %s (raw: %s)", err, truncate(content, 200)),
		}
	}
	if err := validateResult(&result); err != nil {
		return "", "", err
	}

	return result.HindiTranslation, result.GujratiTranslation, nil
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// TranslationError is a failed or malformed translation call. Transport
// failures mark the collaborator unreachable; 429 and 5xx responses are
// retryable.
type TranslationError struct {
	StatusCode int
	Message    string
	transport  bool
}

func (e *TranslationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("translation error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("translation error: %s", e.Message)
}

func (e *TranslationError) Retryable() bool {
	return e.transport || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func (e *TranslationError) Unreachable() bool {
	return e.transport
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
