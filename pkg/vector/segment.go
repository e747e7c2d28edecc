package vector

import (
	"log"
	"sync"

	"github.com/orneryd/convergedb/pkg/hyberr"
)

// Payload is an opaque sidecar attached to a vector, filterable at search
// time.
type Payload map[string]any

// PayloadFilter reports whether p satisfies the filter; nil matches
// everything.
type PayloadFilter func(p Payload) bool

// SearchResult is one hit returned by Segment.Search/Manager.Search.
type SearchResult struct {
	ID      string
	Score   float32
	Payload Payload
}

// Segment owns one HNSW graph and a payload sidecar: the unit the manager
// seals, searches, and optimizes independently.
type Segment struct {
	mu sync.RWMutex

	id         string
	graph      *hnsw
	payloads   map[string]Payload
	dimensions int
	maxVectors int
	appendable bool
	optimized  bool
}

// NewSegment creates an appendable, unoptimized segment.
func NewSegment(id string, dimensions, maxVectors int, cfg HNSWConfig, kernel Kernel) *Segment {
	return &Segment{
		id:         id,
		graph:      newHNSW(dimensions, cfg, kernel),
		payloads:   make(map[string]Payload),
		dimensions: dimensions,
		maxVectors: maxVectors,
		appendable: true,
	}
}

func (s *Segment) ID() string { return s.id }

func (s *Segment) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.live
}

func (s *Segment) IsAppendable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appendable
}

func (s *Segment) IsOptimized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.optimized
}

func (s *Segment) IsFull() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.live >= s.maxVectors
}

// setAppendable seals or reopens the segment for inserts.
func (s *Segment) setAppendable(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendable = v
}

// AddVector rejects if the segment isn't appendable or is full, and
// validates dimension.
func (s *Segment) AddVector(id string, v []float32, payload Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.appendable {
		return hyberr.New(hyberr.Vector, "vector.Segment.AddVector", "segment is not appendable")
	}
	if s.graph.live >= s.maxVectors {
		return hyberr.New(hyberr.Vector, "vector.Segment.AddVector", "segment is full")
	}
	if err := s.graph.add(id, v); err != nil {
		return err
	}
	if payload != nil {
		s.payloads[id] = payload
	}
	return nil
}

// RemoveVector tombstones id; reclaim happens at Optimize.
func (s *Segment) RemoveVector(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.graph.remove(id)
	if removed {
		delete(s.payloads, id)
	}
	return removed
}

// Search returns the top-k hits by the segment's metric. filter, when
// non-nil, is applied to the scored hits, not before scoring: the graph
// search fetches 4*k candidates and drops those whose payload fails the
// filter, so fewer than k hits can come back even when more matching
// vectors exist in the segment.
func (s *Segment) Search(query []float32, k int, filter PayloadFilter) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := k
	if filter != nil {
		want = k * 4 // overfetch so post-filter truncation still yields k when possible
		if want < k {
			want = k
		}
	}

	raw, err := s.graph.search(query, want)
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, k)
	for _, r := range raw {
		p := s.payloads[r.id]
		if filter != nil && !filter(p) {
			continue
		}
		out = append(out, SearchResult{ID: r.id, Score: r.score, Payload: p})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func (s *Segment) GetPayload(id string) (Payload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payloads[id]
	return p, ok
}

// Optimize rebuilds the graph without tombstoned entries and freezes the
// segment; an optimized segment is immutable.
func (s *Segment) Optimize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.graph.nodes)
	s.graph = s.graph.rebuild()
	s.optimized = true
	s.appendable = false
	log.Printf("[hnsw] rebuilt %s: %d nodes -> %d live", s.id, before, s.graph.live)
	return nil
}
