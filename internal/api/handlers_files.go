package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/docvoice/docvoice/internal/store"
	"github.com/go-chi/chi/v5"
)

// handleListFiles lists all stored audio artifacts, newest first.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.ListFiles(r.Context())
	if err != nil {
		s.log.Error("list files failed", "error", err)
		jsonError(w, "failed to retrieve files", http.StatusInternalServerError)
		return
	}
	if files == nil {
		files = []store.FileRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "success",
		"count":     len(files),
		"files":     files,
		"timestamp": time.Now().Unix(),
	})
}

// handleDeleteFile removes one artifact from storage and its metadata row.
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	if err := s.store.DeleteFile(r.Context(), fileID); err != nil {
		var storeErr *store.StorageError
		if errors.As(err, &storeErr) && storeErr.StatusCode == http.StatusNotFound {
			jsonError(w, "file not found", http.StatusNotFound)
			return
		}
		s.log.Error("delete file failed", "file_id", fileID, "error", err)
		jsonError(w, "failed to delete file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "deleted",
		"file_id": fileID,
	})
}
