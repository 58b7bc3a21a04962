package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/docvoice/docvoice/internal/doctree"
	"github.com/docvoice/docvoice/internal/extract"
	"github.com/docvoice/docvoice/internal/parser"
)

// Orchestrator sequences extraction, annotation and persistence for one
// uploaded document.
type Orchestrator struct {
	annotator *Annotator
	log       *slog.Logger
	outputDir string

	// Stats accumulates counters across documents for /metrics.
	Stats *Stats
}

func NewOrchestrator(annotator *Annotator, log *slog.Logger, outputDir string) *Orchestrator {
	return &Orchestrator{
		annotator: annotator,
		log:       log,
		outputDir: outputDir,
		Stats:     NewStats(),
	}
}

// Options control per-request processing behavior.
type Options struct {
	// SaveIntermediate writes extracted.json and annotated.json under the
	// configured output directory.
	SaveIntermediate bool
}

// Result is the outcome of processing one document.
type Result struct {
	Tree          doctree.Tree
	NodeErrors    []NodeError
	Topics        int
	Nodes         int
	AudioUploaded int
}

// Process parses the document, extracts the topic tree, annotates it and
// returns the result. Fatal errors (unsupported format, malformed
// document, startup connectivity) return a nil result; per-node errors
// report partial success alongside the tree.
func (o *Orchestrator) Process(ctx context.Context, data []byte, filename string, opts Options) (*Result, error) {
	p, err := parser.ForFile(filename)
	if err != nil {
		o.Stats.RecordFailure()
		return nil, err
	}

	blocks, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		o.Stats.RecordFailure()
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	tree, err := extract.BuildTree(blocks)
	if err != nil {
		o.Stats.RecordFailure()
		return nil, err
	}
	o.log.Info("extracted document structure",
		"filename", filename, "topics", len(tree), "nodes", tree.NodeCount())

	if opts.SaveIntermediate {
		o.saveIntermediate("extracted.json", tree)
	}

	nodeErrs, err := o.annotator.Annotate(ctx, tree)
	if err != nil {
		o.Stats.RecordFailure()
		return nil, err
	}

	if opts.SaveIntermediate {
		o.saveIntermediate("annotated.json", tree)
	}

	result := &Result{
		Tree:          tree,
		NodeErrors:    nodeErrs,
		Topics:        len(tree),
		Nodes:         tree.NodeCount(),
		AudioUploaded: countUploads(tree),
	}
	o.Stats.RecordDocument(result.Nodes, result.AudioUploaded, len(nodeErrs))
	o.log.Info("document processed",
		"filename", filename, "nodes", result.Nodes,
		"audio_uploaded", result.AudioUploaded, "node_errors", len(nodeErrs))
	return result, nil
}

func countUploads(tree doctree.Tree) int {
	count := 0
	tree.Walk(func(n *doctree.TopicNode) {
		for _, id := range []string{n.EngSpeechFileID, n.HindiSpeechFileID, n.GujSpeechFileID} {
			if id != "" {
				count++
			}
		}
	})
	return count
}

// saveIntermediate is best-effort: a failed write is logged, never fatal.
func (o *Orchestrator) saveIntermediate(name string, tree doctree.Tree) {
	if err := os.MkdirAll(o.outputDir, 0o755); err != nil {
		o.log.Warn("create output dir failed", "dir", o.outputDir, "error", err)
		return
	}
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		o.log.Warn("marshal intermediate failed", "name", name, "error", err)
		return
	}
	path := filepath.Join(o.outputDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		o.log.Warn("write intermediate failed", "path", path, "error", err)
		return
	}
	o.log.Info("saved intermediate output", "path", path)
}
