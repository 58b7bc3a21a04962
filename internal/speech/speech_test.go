package speech

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSynthesize_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cognitiveservices/v1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Ocp-Apim-Subscription-Key"); got != "tts-key" {
			t.Errorf("unexpected subscription key %q", got)
		}
		if got := r.Header.Get("X-Microsoft-OutputFormat"); got != "audio-24khz-48kbitrate-mono-mp3" {
			t.Errorf("unexpected output format %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/ssml+xml" {
			t.Errorf("unexpected content type %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		ssml := string(body)
		if !strings.Contains(ssml, "hi-IN-MadhurNeural") {
			t.Errorf("ssml missing hindi voice: %s", ssml)
		}
		if !strings.Contains(ssml, "ईंट &amp; पत्थर") {
			t.Errorf("ssml should escape text: %s", ssml)
		}
		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tts-key")
	audio, err := c.Synthesize(context.Background(), "ईंट & पत्थर", Hindi)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Errorf("unexpected audio %q", audio)
	}
}

func TestSynthesize_UnsupportedLanguage(t *testing.T) {
	c := NewClient("http://unused", "key")
	_, err := c.Synthesize(context.Background(), "text", Language("fr"))
	var serr *SynthesisError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SynthesisError, got %v", err)
	}
	if serr.Retryable() {
		t.Error("an unsupported language is not retryable")
	}
}

func TestSynthesize_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "capacity exceeded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	_, err := c.Synthesize(context.Background(), "text", English)
	var serr *SynthesisError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SynthesisError, got %v", err)
	}
	if serr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("unexpected status %d", serr.StatusCode)
	}
	if !serr.Retryable() {
		t.Error("5xx should be retryable")
	}
	if serr.Unreachable() {
		t.Error("an HTTP response means the service was reachable")
	}
}

func TestSynthesize_EmptyAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	_, err := c.Synthesize(context.Background(), "text", Gujarati)
	if err == nil {
		t.Fatal("expected an error for an empty audio body")
	}
}

func TestSynthesize_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, "key")
	_, err := c.Synthesize(context.Background(), "text", English)
	var serr *SynthesisError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SynthesisError, got %v", err)
	}
	if !serr.Unreachable() {
		t.Error("a connection failure should report unreachable")
	}
}
