package pipeline

import "sync"

// Stats tracks cumulative pipeline counters for the metrics endpoint.
type Stats struct {
	mu                 sync.Mutex
	documentsProcessed int64
	documentsFailed    int64
	nodesAnnotated     int64
	audioUploaded      int64
	nodeErrors         int64
}

// StatsSnapshot is a JSON-safe copy of the counters.
type StatsSnapshot struct {
	DocumentsProcessed int64 `json:"documents_processed"`
	DocumentsFailed    int64 `json:"documents_failed"`
	NodesAnnotated     int64 `json:"nodes_annotated"`
	AudioUploaded      int64 `json:"audio_uploaded"`
	NodeErrors         int64 `json:"node_errors"`
}

func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) RecordDocument(nodes, uploads, nodeErrs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documentsProcessed++
	s.nodesAnnotated += int64(nodes)
	s.audioUploaded += int64(uploads)
	s.nodeErrors += int64(nodeErrs)
}

func (s *Stats) RecordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documentsFailed++
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		DocumentsProcessed: s.documentsProcessed,
		DocumentsFailed:    s.documentsFailed,
		NodesAnnotated:     s.nodesAnnotated,
		AudioUploaded:      s.audioUploaded,
		NodeErrors:         s.nodeErrors,
	}
}
