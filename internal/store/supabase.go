// Package store is the persistence gateway: it uploads audio artifacts to
// Supabase object storage and records one files-table row per artifact.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ArtifactMetadata is the closed metadata schema attached to every
// uploaded audio artifact.
type ArtifactMetadata struct {
	Section       string `json:"section"`
	ParentSection string `json:"parent_section,omitempty"`
	Language      string `json:"language"`
	TextType      string `json:"text_type"` // "original" or "translation"
	TextLength    int    `json:"text_length"`
	Source        string `json:"source"`
	GeneratedAt   string `json:"generated_at"`
}

// FileRecord is one persisted metadata row describing an uploaded artifact.
type FileRecord struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Type      string           `json:"type"`
	URL       string           `json:"url"`
	Metadata  ArtifactMetadata `json:"metadata"`
	CreatedAt time.Time        `json:"created_at"`
}

// Client talks to the Supabase storage and PostgREST APIs.
type Client struct {
	baseURL    string
	serviceKey string
	bucket     string
	prefix     string
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(baseURL, serviceKey, bucket, prefix string, log *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		serviceKey: serviceKey,
		bucket:     bucket,
		prefix:     strings.Trim(prefix, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// insertRow is the body for POST /rest/v1/files. created_at is left to the
// table default.
type insertRow struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Type     string           `json:"type"`
	URL      string           `json:"url"`
	Metadata ArtifactMetadata `json:"metadata"`
}

// UploadAndRecord uploads audio bytes to the storage bucket and inserts
// the metadata row, as one logical step. If the insert fails after a
// successful upload, the orphaned object is deleted best-effort and the
// leak is logged; the call fails either way. The returned ID is the files
// table primary key.
func (c *Client) UploadAndRecord(ctx context.Context, audio []byte, name, mimeType string, meta ArtifactMetadata) (string, error) {
	id := uuid.NewString()
	objectPath := c.prefix + "/" + id + "_" + name

	if err := c.uploadObject(ctx, objectPath, audio, mimeType); err != nil {
		return "", err
	}

	row := insertRow{
		ID:       id,
		Name:     name,
		Type:     mimeType,
		URL:      c.publicURL(objectPath),
		Metadata: meta,
	}
	if err := c.insertFileRow(ctx, row); err != nil {
		if delErr := c.deleteObject(ctx, objectPath); delErr != nil {
			c.log.Error("orphaned storage object after failed insert",
				"object", objectPath, "insert_error", err, "cleanup_error", delErr)
		} else {
			c.log.Warn("rolled back storage object after failed insert",
				"object", objectPath, "insert_error", err)
		}
		return "", err
	}

	return id, nil
}

// ListFiles returns all file records, newest first.
func (c *Client) ListFiles(ctx context.Context) ([]FileRecord, error) {
	u := c.baseURL + "/rest/v1/files?select=*&order=created_at.desc"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &StorageError{Op: "list files", Message: err.Error(), transport: true}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError("list files", resp)
	}

	var records []FileRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode file records: %w", err)
	}
	return records, nil
}

// DeleteFile removes the storage object and the metadata row for one file.
func (c *Client) DeleteFile(ctx context.Context, id string) error {
	rec, err := c.getFile(ctx, id)
	if err != nil {
		return err
	}

	// Storage path is everything after the public-URL bucket segment.
	marker := "/object/public/" + c.bucket + "/"
	idx := strings.Index(rec.URL, marker)
	if idx >= 0 {
		objectPath := rec.URL[idx+len(marker):]
		if err := c.deleteObject(ctx, objectPath); err != nil {
			c.log.Warn("storage object removal failed, deleting row anyway",
				"file_id", id, "error", err)
		}
	}

	u := c.baseURL + "/rest/v1/files?id=eq." + url.QueryEscape(id)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &StorageError{Op: "delete file row", Message: err.Error(), transport: true}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.statusError("delete file row", resp)
	}
	return nil
}

// Ping checks that the files table is reachable.
func (c *Client) Ping(ctx context.Context) error {
	u := c.baseURL + "/rest/v1/files?select=id&limit=1"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &StorageError{Op: "ping", Message: err.Error(), transport: true}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.statusError("ping", resp)
	}
	return nil
}

func (c *Client) getFile(ctx context.Context, id string) (*FileRecord, error) {
	u := c.baseURL + "/rest/v1/files?select=*&id=eq." + url.QueryEscape(id)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &StorageError{Op: "get file", Message: err.Error(), transport: true}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError("get file", resp)
	}

	var records []FileRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode file record: %w", err)
	}
	if len(records) == 0 {
		return nil, &StorageError{Op: "get file", StatusCode: http.StatusNotFound, Message: "file " + id + " not found"}
	}
	return &records[0], nil
}

func (c *Client) uploadObject(ctx context.Context, objectPath string, data []byte, mimeType string) error {
	u := c.baseURL + "/storage/v1/object/" + c.bucket + "/" + objectPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setAuth(httpReq)
	httpReq.Header.Set("Content-Type", mimeType)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &StorageError{Op: "upload object", Message: err.Error(), transport: true}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return c.statusError("upload object", resp)
	}
	return nil
}

func (c *Client) deleteObject(ctx context.Context, objectPath string) error {
	u := c.baseURL + "/storage/v1/object/" + c.bucket + "/" + objectPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &StorageError{Op: "delete object", Message: err.Error(), transport: true}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.statusError("delete object", resp)
	}
	return nil
}

func (c *Client) insertFileRow(ctx context.Context, row insertRow) error {
	body, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal file row: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/v1/files", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setAuth(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Prefer", "return=minimal")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &StorageError{Op: "insert file row", Message: err.Error(), transport: true}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return c.statusError("insert file row", resp)
	}
	return nil
}

func (c *Client) setAuth(req *http.Request) {
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
}

func (c *Client) publicURL(objectPath string) string {
	return c.baseURL + "/storage/v1/object/public/" + c.bucket + "/" + objectPath
}

func (c *Client) statusError(op string, resp *http.Response) error {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &StorageError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Message:    string(respBody),
	}
}

// StorageError is a failed storage or metadata operation.
type StorageError struct {
	Op         string
	StatusCode int
	Message    string
	transport  bool
}

func (e *StorageError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("storage error: %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("storage error: %s: %s", e.Op, e.Message)
}

func (e *StorageError) Retryable() bool {
	return e.transport || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func (e *StorageError) Unreachable() bool {
	return e.transport
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
