package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func chatReply(t *testing.T, content string) []byte {
	t.Helper()
	reply := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	data, err := json.Marshal(reply)
	if err != nil {
		t.Fatalf("marshal reply: %v", err)
	}
	return data
}

func newTestClient(baseURL string) *Client {
	c := NewClient("test-key", "test-model")
	c.baseURL = baseURL
	return c
}

func TestTranslate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("unexpected model %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("expected system+user messages, got %+v", req.Messages)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Errorf("expected json_object response format, got %+v", req.ResponseFormat)
		}
		w.Write(chatReply(t, `{"hindi_translation":"ईंट","gujrati_translation":"ઈંટ"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	hindi, guj, err := c.Translate(context.Background(), "brick")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hindi != "ईंट" || guj != "ઈંટ" {
		t.Errorf("unexpected translations %q %q", hindi, guj)
	}
	if c.Stats.Snapshot().Count != 1 {
		t.Errorf("expected one latency sample, got %d", c.Stats.Snapshot().Count)
	}
}

func TestTranslate_CodeFencedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatReply(t, "```json\n{\"hindi_translation\":\"नींव\",\"gujrati_translation\":\"પાયો\"}\n```"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	hindi, guj, err := c.Translate(context.Background(), "foundation")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hindi != "नींव" || guj != "પાયો" {
		t.Errorf("unexpected translations %q %q", hindi, guj)
	}
}

func TestTranslate_EmptyTranslationRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatReply(t, `{"hindi_translation":"","gujrati_translation":"ઈંટ"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, _, err := c.Translate(context.Background(), "brick")
	var terr *TranslationError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TranslationError, got %v", err)
	}
	if terr.Retryable() {
		t.Error("an empty translation is not retryable")
	}
}

func TestTranslate_RateLimitedIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, _, err := c.Translate(context.Background(), "brick")
	var terr *TranslationError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TranslationError, got %v", err)
	}
	if !terr.Retryable() {
		t.Error("429 should be retryable")
	}
	if terr.Unreachable() {
		t.Error("429 does not mean unreachable")
	}
}

func TestTranslate_TransportFailureIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse further connections

	c := newTestClient(srv.URL)
	_, _, err := c.Translate(context.Background(), "brick")
	var terr *TranslationError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TranslationError, got %v", err)
	}
	if !terr.Unreachable() || !terr.Retryable() {
		t.Errorf("transport failure should be unreachable and retryable: %+v", terr)
	}
}

func TestTranslate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad model"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, _, err := c.Translate(context.Background(), "brick")
	if err == nil {
		t.Fatal("expected an error for an API error body")
	}
}

func TestStripCodeBlock(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, c := range cases {
		if got := stripCodeBlock(c.in); got != c.want {
			t.Errorf("stripCodeBlock(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
