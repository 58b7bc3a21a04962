package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/docvoice/docvoice/internal/extract"
	"github.com/docvoice/docvoice/internal/parser"
	"github.com/docvoice/docvoice/internal/pipeline"
)

func (s *Server) handleProcessDocument(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// Limit total request size; extra 1MB for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	saveIntermediate := false
	if v := r.FormValue("save_intermediate"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			saveIntermediate = b
		}
	}

	result, err := s.orchestrator.Process(r.Context(), data, filename, pipeline.Options{
		SaveIntermediate: saveIntermediate,
	})
	if err != nil {
		s.writeProcessError(w, err)
		return
	}

	nodeErrs := result.NodeErrors
	if nodeErrs == nil {
		nodeErrs = []pipeline.NodeError{}
	}
	status := "success"
	message := "Document processed successfully"
	if len(nodeErrs) > 0 {
		status = "partial"
		message = fmt.Sprintf("Document processed with %d warnings", len(nodeErrs))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":          status,
		"message":         message,
		"data":            result.Tree,
		"node_errors":     nodeErrs,
		"processing_time": time.Since(start).Seconds(),
		"timestamp":       time.Now().Unix(),
	})
}

// writeProcessError maps fatal pipeline errors to HTTP statuses. Backend
// details never leak: connectivity failures get a fixed message.
func (s *Server) writeProcessError(w http.ResponseWriter, err error) {
	var malformed *extract.MalformedDocumentError
	if errors.As(err, &malformed) {
		jsonError(w, malformed.Error(), http.StatusBadRequest)
		return
	}
	var conn *pipeline.ConnectivityError
	if errors.As(err, &conn) {
		s.log.Error("processing aborted", "error", err)
		jsonError(w, "a required backing service is unreachable", http.StatusServiceUnavailable)
		return
	}
	jsonError(w, "failed to process document: "+err.Error(), http.StatusBadRequest)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
