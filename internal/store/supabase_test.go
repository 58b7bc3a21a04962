package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// supabaseStub records storage and PostgREST calls.
type supabaseStub struct {
	mu         sync.Mutex
	uploads    []string // object paths
	deletes    []string // object paths
	inserted   []insertRow
	rowDeletes []string // raw query strings
	failInsert bool
}

func (s *supabaseStub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/storage/v1/object/", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); !strings.HasPrefix(got, "Bearer ") {
			t.Errorf("missing bearer auth on storage call")
		}
		path := strings.TrimPrefix(r.URL.Path, "/storage/v1/object/")
		s.mu.Lock()
		defer s.mu.Unlock()
		switch r.Method {
		case http.MethodPost:
			s.uploads = append(s.uploads, path)
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			s.deletes = append(s.deletes, path)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/rest/v1/files", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		switch r.Method {
		case http.MethodPost:
			if s.failInsert {
				http.Error(w, `{"message":"duplicate key"}`, http.StatusConflict)
				return
			}
			var row insertRow
			if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
				t.Errorf("decode insert row: %v", err)
			}
			s.inserted = append(s.inserted, row)
			w.WriteHeader(http.StatusCreated)
		case http.MethodGet:
			if order := r.URL.Query().Get("order"); order != "" && order != "created_at.desc" {
				t.Errorf("unexpected order param %q", order)
			}
			var out []FileRecord
			for _, row := range s.inserted {
				id := r.URL.Query().Get("id")
				if id != "" && id != "eq."+row.ID {
					continue
				}
				out = append(out, FileRecord{ID: row.ID, Name: row.Name, Type: row.Type, URL: row.URL, Metadata: row.Metadata})
			}
			if out == nil {
				out = []FileRecord{}
			}
			json.NewEncoder(w).Encode(out)
		case http.MethodDelete:
			s.rowDeletes = append(s.rowDeletes, r.URL.RawQuery)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	return mux
}

func newStubClient(t *testing.T, stub *supabaseStub) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "service-key", "audio_files", "audio", testLogger()), srv
}

func TestUploadAndRecord_Success(t *testing.T) {
	stub := &supabaseStub{}
	c, srv := newStubClient(t, stub)

	meta := ArtifactMetadata{Section: "Walls", Language: "hi", TextType: "translation", TextLength: 12, Source: "document_processing"}
	id, err := c.UploadAndRecord(context.Background(), []byte("mp3"), "walls_hi.mp3", "audio/mpeg", meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Fatal("expected a file id")
	}

	if len(stub.uploads) != 1 {
		t.Fatalf("expected one upload, got %v", stub.uploads)
	}
	wantPath := "audio_files/audio/" + id + "_walls_hi.mp3"
	if stub.uploads[0] != wantPath {
		t.Errorf("unexpected object path %q, want %q", stub.uploads[0], wantPath)
	}

	if len(stub.inserted) != 1 {
		t.Fatalf("expected one row insert, got %d", len(stub.inserted))
	}
	row := stub.inserted[0]
	if row.ID != id || row.Name != "walls_hi.mp3" || row.Type != "audio/mpeg" {
		t.Errorf("unexpected row %+v", row)
	}
	wantURL := srv.URL + "/storage/v1/object/public/audio_files/audio/" + id + "_walls_hi.mp3"
	if row.URL != wantURL {
		t.Errorf("unexpected public URL %q, want %q", row.URL, wantURL)
	}
	if row.Metadata.Section != "Walls" || row.Metadata.Language != "hi" {
		t.Errorf("metadata not persisted: %+v", row.Metadata)
	}
}

func TestUploadAndRecord_RollsBackOnInsertFailure(t *testing.T) {
	stub := &supabaseStub{failInsert: true}
	c, _ := newStubClient(t, stub)

	_, err := c.UploadAndRecord(context.Background(), []byte("mp3"), "x.mp3", "audio/mpeg", ArtifactMetadata{})
	var serr *StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if len(stub.uploads) != 1 {
		t.Fatalf("expected the upload to have happened, got %v", stub.uploads)
	}
	if len(stub.deletes) != 1 || stub.deletes[0] != stub.uploads[0] {
		t.Errorf("expected the uploaded object to be rolled back, deletes=%v uploads=%v", stub.deletes, stub.uploads)
	}
}

func TestListFiles(t *testing.T) {
	stub := &supabaseStub{}
	c, _ := newStubClient(t, stub)

	if _, err := c.UploadAndRecord(context.Background(), []byte("a"), "a.mp3", "audio/mpeg", ArtifactMetadata{}); err != nil {
		t.Fatalf("seed upload: %v", err)
	}
	if _, err := c.UploadAndRecord(context.Background(), []byte("b"), "b.mp3", "audio/mpeg", ArtifactMetadata{}); err != nil {
		t.Fatalf("seed upload: %v", err)
	}

	records, err := c.ListFiles(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestDeleteFile(t *testing.T) {
	stub := &supabaseStub{}
	c, _ := newStubClient(t, stub)

	id, err := c.UploadAndRecord(context.Background(), []byte("a"), "a.mp3", "audio/mpeg", ArtifactMetadata{})
	if err != nil {
		t.Fatalf("seed upload: %v", err)
	}

	if err := c.DeleteFile(context.Background(), id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stub.deletes) != 1 || !strings.Contains(stub.deletes[0], id) {
		t.Errorf("expected the storage object to be removed, got %v", stub.deletes)
	}
	if len(stub.rowDeletes) != 1 || !strings.Contains(stub.rowDeletes[0], "id=eq.") {
		t.Errorf("expected a row delete by id, got %v", stub.rowDeletes)
	}
}

func TestDeleteFile_NotFound(t *testing.T) {
	stub := &supabaseStub{}
	c, _ := newStubClient(t, stub)

	err := c.DeleteFile(context.Background(), "missing-id")
	var serr *StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if serr.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", serr.StatusCode)
	}
}

func TestPing(t *testing.T) {
	stub := &supabaseStub{}
	c, srv := newStubClient(t, stub)

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	srv.Close()
	err := c.Ping(context.Background())
	var serr *StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if !serr.Unreachable() {
		t.Error("a connection failure should report unreachable")
	}
}
