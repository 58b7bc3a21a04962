// Package speech calls a neural TTS REST endpoint to synthesize mp3 audio.
package speech

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Language selects the synthesis voice.
type Language string

const (
	English  Language = "en"
	Hindi    Language = "hi"
	Gujarati Language = "gu"
)

// voiceMapping pairs each language with its Indian neural voice.
var voiceMapping = map[Language]voice{
	English:  {name: "en-IN-PrabhatNeural", locale: "en-IN"},
	Hindi:    {name: "hi-IN-MadhurNeural", locale: "hi-IN"},
	Gujarati: {name: "gu-IN-NiranjanNeural", locale: "gu-IN"},
}

type voice struct {
	name   string
	locale string
}

const outputFormat = "audio-24khz-48kbitrate-mono-mp3"

// MIMEType is the content type of synthesized audio.
const MIMEType = "audio/mpeg"

// Client calls a Cognitive-Services-style TTS REST endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Synthesize converts text to mp3 bytes in the given language's voice.
func (c *Client) Synthesize(ctx context.Context, text string, lang Language) ([]byte, error) {
	v, ok := voiceMapping[lang]
	if !ok {
		return nil, &SynthesisError{Message: fmt.Sprintf("unsupported language: %s", lang)}
	}

	body, err := ssmlBody(text, v)
	if err != nil {
		return nil, fmt.Errorf("build ssml: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/cognitiveservices/v1", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/ssml+xml")
	httpReq.Header.Set("X-Microsoft-OutputFormat", outputFormat)
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	httpReq.Header.Set("User-Agent", "docvoice")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &SynthesisError{Message: err.Error(), transport: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &SynthesisError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, &SynthesisError{Message: "empty audio response"}
	}
	return audio, nil
}

func ssmlBody(text string, v voice) ([]byte, error) {
	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(text)); err != nil {
		return nil, err
	}
	ssml := fmt.Sprintf(
		`<speak version='1.0' xml:lang='%s'><voice xml:lang='%s' name='%s'>%s</voice></speak>`,
		v.locale, v.locale, v.name, escaped.String(),
	)
	return []byte(ssml), nil
}

// SynthesisError is a failed speech synthesis call.
type SynthesisError struct {
	StatusCode int
	Message    string
	transport  bool
}

func (e *SynthesisError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("synthesis error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("synthesis error: %s", e.Message)
}

func (e *SynthesisError) Retryable() bool {
	return e.transport || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func (e *SynthesisError) Unreachable() bool {
	return e.transport
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
