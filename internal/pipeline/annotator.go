package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docvoice/docvoice/internal/doctree"
	"github.com/docvoice/docvoice/internal/speech"
	"github.com/docvoice/docvoice/internal/store"
)

// Translator returns Hindi and Gujarati renderings of English text.
type Translator interface {
	Translate(ctx context.Context, text string) (hindi, guj string, err error)
}

// Synthesizer converts text to audio bytes in the given language.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, lang speech.Language) ([]byte, error)
}

// Uploader persists one audio artifact and returns its file ID.
type Uploader interface {
	UploadAndRecord(ctx context.Context, audio []byte, name, mimeType string, meta store.ArtifactMetadata) (string, error)
}

// NodeError records one isolated failure during annotation.
type NodeError struct {
	Node     string `json:"node"` // "Topic" or "Topic > Subtopic"
	Stage    string `json:"stage"`
	Language string `json:"language,omitempty"`
	Message  string `json:"message"`
}

// ConnectivityError means a collaborator was unreachable before any
// external call had succeeded. It aborts the whole document.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("collaborator unreachable: %s", e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// Annotator walks a topic tree and fills translation and speech fields
// in place.
type Annotator struct {
	translator Translator
	synth      Synthesizer
	uploader   Uploader
	log        *slog.Logger

	maxConcurrent int
	maxRetries    int
}

func NewAnnotator(t Translator, s Synthesizer, u Uploader, log *slog.Logger, maxConcurrent, maxRetries int) *Annotator {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &Annotator{
		translator:    t,
		synth:         s,
		uploader:      u,
		log:           log,
		maxConcurrent: maxConcurrent,
		maxRetries:    maxRetries,
	}
}

// annotateRun holds shared state for one traversal: the collected node
// errors and whether any collaborator call has succeeded yet.
type annotateRun struct {
	mu        sync.Mutex
	errs      []NodeError
	succeeded atomic.Bool
}

func (r *annotateRun) record(e NodeError) {
	r.mu.Lock()
	r.errs = append(r.errs, e)
	r.mu.Unlock()
}

// Annotate processes every node: nodes with empty text are skipped
// untouched; per-node and per-language failures are recorded and
// traversal continues. Top-level nodes run concurrently, each subtree
// owned by a single goroutine. The returned error is non-nil only for
// fatal conditions (connectivity before first success, cancellation).
func (a *Annotator) Annotate(ctx context.Context, tree doctree.Tree) ([]NodeError, error) {
	run := &annotateRun{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxConcurrent)
	for _, node := range tree {
		node := node
		g.Go(func() error {
			return a.annotateSubtree(gctx, node, "", run)
		})
	}
	if err := g.Wait(); err != nil {
		return run.errs, err
	}
	return run.errs, nil
}

func (a *Annotator) annotateSubtree(ctx context.Context, node *doctree.TopicNode, parent string, run *annotateRun) error {
	if err := a.annotateNode(ctx, node, parent, run); err != nil {
		return err
	}
	for _, sub := range node.Subtopics {
		if err := a.annotateSubtree(ctx, sub, node.Name, run); err != nil {
			return err
		}
	}
	return nil
}

func (a *Annotator) annotateNode(ctx context.Context, node *doctree.TopicNode, parent string, run *annotateRun) error {
	if node.Text == "" {
		return nil
	}
	path := node.Name
	if parent != "" {
		path = parent + " > " + node.Name
	}

	// Step 1: translation. Skipped when both translations are already
	// present, so re-annotation only fills gaps.
	if node.HindiText == "" || node.GujText == "" {
		hindi, guj, err := a.translateWithRetry(ctx, node.Text)
		if err != nil {
			if fatal := a.classify(ctx, err, run); fatal != nil {
				return fatal
			}
			a.log.Error("translation failed", "node", path, "error", err)
			run.record(NodeError{Node: path, Stage: "translate", Message: err.Error()})
		} else {
			run.succeeded.Store(true)
			node.HindiText = hindi
			node.GujText = guj
		}
	}

	// Step 2: speech synthesis and upload per language. Failures are
	// isolated to the (node, language) pair; an existing file ID means
	// the artifact was produced earlier and is not regenerated.
	targets := []struct {
		text     string
		lang     speech.Language
		fileID   *string
		textType string
	}{
		{node.Text, speech.English, &node.EngSpeechFileID, "original"},
		{node.HindiText, speech.Hindi, &node.HindiSpeechFileID, "translation"},
		{node.GujText, speech.Gujarati, &node.GujSpeechFileID, "translation"},
	}
	for _, tgt := range targets {
		if tgt.text == "" || *tgt.fileID != "" {
			continue
		}

		audio, err := a.synthesizeWithRetry(ctx, tgt.text, tgt.lang)
		if err != nil {
			if fatal := a.classify(ctx, err, run); fatal != nil {
				return fatal
			}
			a.log.Error("speech synthesis failed", "node", path, "language", tgt.lang, "error", err)
			run.record(NodeError{Node: path, Stage: "speech", Language: string(tgt.lang), Message: err.Error()})
			continue
		}
		run.succeeded.Store(true)

		meta := store.ArtifactMetadata{
			Section:       node.Name,
			ParentSection: parent,
			Language:      string(tgt.lang),
			TextType:      tgt.textType,
			TextLength:    len(tgt.text),
			Source:        "document_processing",
			GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		}
		fileID, err := a.uploader.UploadAndRecord(ctx, audio, audioFileName(parent, node.Name, tgt.lang), speech.MIMEType, meta)
		if err != nil {
			if fatal := a.classify(ctx, err, run); fatal != nil {
				return fatal
			}
			a.log.Error("audio upload failed", "node", path, "language", tgt.lang, "error", err)
			run.record(NodeError{Node: path, Stage: "upload", Language: string(tgt.lang), Message: err.Error()})
			continue
		}
		run.succeeded.Store(true)
		*tgt.fileID = fileID
	}

	return nil
}

// classify decides whether an error aborts the whole run. Cancellation
// always does; an unreachable collaborator does only until the first
// successful call, after which it degrades to a per-node error.
func (a *Annotator) classify(ctx context.Context, err error, run *annotateRun) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if IsUnreachable(err) && !run.succeeded.Load() {
		return &ConnectivityError{Err: err}
	}
	return nil
}

func (a *Annotator) translateWithRetry(ctx context.Context, text string) (string, string, error) {
	var hindi, guj string
	var lastErr error
	for attempt := 0; attempt < a.maxRetries; attempt++ {
		hindi, guj, lastErr = a.translator.Translate(ctx, text)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		a.log.Warn("retryable translation error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return "", "", ctx.Err()
		}
	}
	return hindi, guj, lastErr
}

func (a *Annotator) synthesizeWithRetry(ctx context.Context, text string, lang speech.Language) ([]byte, error) {
	var audio []byte
	var lastErr error
	for attempt := 0; attempt < a.maxRetries; attempt++ {
		audio, lastErr = a.synth.Synthesize(ctx, text, lang)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		a.log.Warn("retryable synthesis error", "attempt", attempt, "language", lang, "error", lastErr)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return audio, lastErr
}

var unsafeFilenameRe = regexp.MustCompile(`[^\w\s-]+`)
var separatorRe = regexp.MustCompile(`[-\s]+`)

// cleanFilename reduces a section name to lowercase word characters and
// underscores.
func cleanFilename(name string) string {
	cleaned := unsafeFilenameRe.ReplaceAllString(name, "_")
	cleaned = separatorRe.ReplaceAllString(cleaned, "_")
	cleaned = strings.Trim(strings.ToLower(cleaned), "_")
	if cleaned == "" {
		return "unnamed"
	}
	return cleaned
}

func audioFileName(parent, section string, lang speech.Language) string {
	prefix := cleanFilename(section)
	if parent != "" {
		prefix = cleanFilename(parent) + "_" + prefix
	}
	return fmt.Sprintf("%s_%s.mp3", prefix, lang)
}
