package vector

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/orneryd/convergedb/pkg/hyberr"
)

// ManagerConfig carries the settings shared by every segment a Manager
// creates.
type ManagerConfig struct {
	MaxVectorsPerSegment int
	Dimensions           int
	HNSW                 HNSWConfig
	Metric               Metric
}

func DefaultManagerConfig(dimensions int) ManagerConfig {
	return ManagerConfig{
		MaxVectorsPerSegment: 100_000,
		Dimensions:           dimensions,
		HNSW:                 DefaultHNSWConfig(),
		Metric:               Cosine,
	}
}

// Manager owns a set of segments, at most one of them appendable. Optimize
// freezes every segment, the appendable one included, so between an
// Optimize and the next AddVector no segment is appendable. Search fans out
// across segments concurrently via errgroup and merges by score.
type Manager struct {
	mu sync.RWMutex

	cfg        ManagerConfig
	kernel     Kernel
	segments   map[string]*Segment
	appendable string
	nextID     int
}

func NewManager(cfg ManagerConfig) (*Manager, error) {
	kernel, err := KernelFor(cfg.Metric)
	if err != nil {
		return nil, err
	}
	m := &Manager{cfg: cfg, kernel: kernel, segments: make(map[string]*Segment)}
	m.createAppendableSegment()
	return m, nil
}

func (m *Manager) createAppendableSegment() {
	id := fmt.Sprintf("segment_%d", m.nextID)
	m.nextID++
	seg := NewSegment(id, m.cfg.Dimensions, m.cfg.MaxVectorsPerSegment, m.cfg.HNSW, m.kernel)
	m.segments[id] = seg
	m.appendable = id
}

// appendableSegment returns the current appendable segment, sealing it
// and opening a fresh one first if it's full or has been frozen by
// Optimize. Must be called with m.mu held.
func (m *Manager) appendableSegment() *Segment {
	seg, ok := m.segments[m.appendable]
	if !ok || seg.IsFull() || !seg.IsAppendable() {
		if ok {
			seg.setAppendable(false)
			log.Printf("[segment] sealed %s at %d vectors", seg.ID(), seg.Len())
		}
		m.createAppendableSegment()
		seg = m.segments[m.appendable]
		log.Printf("[segment] opened appendable %s", seg.ID())
	}
	return seg
}

// AddVector inserts into the current appendable segment, rolling it over
// first if full.
func (m *Manager) AddVector(id string, v []float32, payload Payload) error {
	if len(v) != m.cfg.Dimensions {
		return hyberr.Newf(hyberr.Vector, "vector.Manager.AddVector", "dimension mismatch: got %d, want %d", len(v), m.cfg.Dimensions)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	seg := m.appendableSegment()
	return seg.AddVector(id, v, payload)
}

// RemoveVector scans segments until found. An id->segment map would make
// this O(1) at a memory cost; the scan stays until benchmarks say
// otherwise.
func (m *Manager) RemoveVector(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, seg := range m.segments {
		if seg.RemoveVector(id) {
			return true
		}
	}
	return false
}

// Search fans out to every segment concurrently, merges by score, and
// truncates to k.
func (m *Manager) Search(ctx context.Context, query []float32, k int, filter PayloadFilter) ([]SearchResult, error) {
	m.mu.RLock()
	segs := make([]*Segment, 0, len(m.segments))
	for _, seg := range m.segments {
		segs = append(segs, seg)
	}
	m.mu.RUnlock()

	results := make([][]SearchResult, len(segs))
	g, gctx := errgroup.WithContext(ctx)
	for i, seg := range segs {
		i, seg := i, seg
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := seg.Search(query, k, filter)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []SearchResult
	for _, r := range results {
		merged = append(merged, r...)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged, nil
}

func (m *Manager) GetPayload(id string) (Payload, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, seg := range m.segments {
		if p, ok := seg.GetPayload(id); ok {
			return p, true
		}
	}
	return nil, false
}

func (m *Manager) Flush() error { return nil }

// Optimize rebuilds every segment, dropping tombstones.
func (m *Manager) Optimize() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, seg := range m.segments {
		if err := seg.Optimize(); err != nil {
			return err
		}
	}
	return nil
}

// Stats aggregates per-segment counts for monitoring.
type Stats struct {
	TotalVectors       int
	SegmentCount       int
	AppendableSegments int
	OptimizedSegments  int
}

func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var s Stats
	for _, seg := range m.segments {
		s.TotalVectors += seg.Len()
		s.SegmentCount++
		if seg.IsAppendable() {
			s.AppendableSegments++
		}
		if seg.IsOptimized() {
			s.OptimizedSegments++
		}
	}
	return s
}

// Index composes a Manager with a default metric and presents the flat
// add/remove/search/payload/flush/optimize/stats surface the rest of the
// system uses.
type Index struct {
	mgr *Manager
}

func NewIndex(cfg ManagerConfig) (*Index, error) {
	mgr, err := NewManager(cfg)
	if err != nil {
		return nil, err
	}
	return &Index{mgr: mgr}, nil
}

func (idx *Index) Add(id string, v []float32, payload Payload) error {
	return idx.mgr.AddVector(id, v, payload)
}

func (idx *Index) Remove(id string) bool { return idx.mgr.RemoveVector(id) }

func (idx *Index) Search(ctx context.Context, query []float32, k int, filter PayloadFilter) ([]SearchResult, error) {
	return idx.mgr.Search(ctx, query, k, filter)
}

func (idx *Index) GetPayload(id string) (Payload, bool) { return idx.mgr.GetPayload(id) }

func (idx *Index) Flush() error { return idx.mgr.Flush() }

func (idx *Index) Optimize() error { return idx.mgr.Optimize() }

func (idx *Index) Stats() Stats { return idx.mgr.Stats() }
