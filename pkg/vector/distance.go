// Package vector implements the segment-based ANN vector subsystem:
// distance kernels, a per-segment HNSW graph, and a segment manager that
// fans search out across segments.
package vector

import (
	"math"

	"github.com/orneryd/convergedb/pkg/hyberr"
)

// Metric names a distance kernel. Runtime selection resolves once at
// segment creation; inner loops run on the concrete kernel.
type Metric int

const (
	Cosine Metric = iota
	Euclidean
	Manhattan
	Dot
	Hamming
	Jaccard
)

func (m Metric) String() string {
	switch m {
	case Cosine:
		return "cosine"
	case Euclidean:
		return "euclidean"
	case Manhattan:
		return "manhattan"
	case Dot:
		return "dot"
	case Hamming:
		return "hamming"
	case Jaccard:
		return "jaccard"
	default:
		return "unknown"
	}
}

// Kernel implements a distance/similarity pair with a documented mapping
// between the two. Dimension mismatch is an error; empty vectors return
// the kernel's conventional default rather than erroring.
type Kernel interface {
	Distance(a, b []float32) (float32, error)
	Similarity(a, b []float32) (float32, error)
}

// KernelFor resolves a Metric to its Kernel.
func KernelFor(m Metric) (Kernel, error) {
	switch m {
	case Cosine:
		return cosineKernel{}, nil
	case Euclidean:
		return euclideanKernel{}, nil
	case Manhattan:
		return manhattanKernel{}, nil
	case Dot:
		return dotKernel{}, nil
	case Hamming:
		return hammingKernel{}, nil
	case Jaccard:
		return jaccardKernel{}, nil
	default:
		return nil, hyberr.Newf(hyberr.Vector, "vector.KernelFor", "unknown metric %d", m)
	}
}

func checkDims(op string, a, b []float32) error {
	if len(a) != len(b) {
		return hyberr.Newf(hyberr.Vector, op, "dimension mismatch: %d vs %d", len(a), len(b))
	}
	return nil
}

type cosineKernel struct{}

// Similarity is the standard float64-accumulated cosine. Empty vectors
// return 1.0 by convention.
func (cosineKernel) Similarity(a, b []float32) (float32, error) {
	if err := checkDims("vector.Cosine", a, b); err != nil {
		return 0, err
	}
	if len(a) == 0 {
		return 1.0, nil
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB))), nil
}

// Distance maps d = 1 - sim.
func (k cosineKernel) Distance(a, b []float32) (float32, error) {
	sim, err := k.Similarity(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - sim, nil
}

type euclideanKernel struct{}

func (euclideanKernel) Distance(a, b []float32) (float32, error) {
	if err := checkDims("vector.Euclidean", a, b); err != nil {
		return 0, err
	}
	if len(a) == 0 {
		return 0.0, nil
	}
	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return float32(math.Sqrt(sum)), nil
}

// Similarity maps sim = e^(-d).
func (k euclideanKernel) Similarity(a, b []float32) (float32, error) {
	d, err := k.Distance(a, b)
	if err != nil {
		return 0, err
	}
	return float32(math.Exp(-float64(d))), nil
}

type manhattanKernel struct{}

func (manhattanKernel) Distance(a, b []float32) (float32, error) {
	if err := checkDims("vector.Manhattan", a, b); err != nil {
		return 0, err
	}
	var sum float64
	for i := range a {
		sum += math.Abs(float64(a[i]) - float64(b[i]))
	}
	return float32(sum), nil
}

func (k manhattanKernel) Similarity(a, b []float32) (float32, error) {
	d, err := k.Distance(a, b)
	if err != nil {
		return 0, err
	}
	return float32(1.0 / (1.0 + float64(d))), nil
}

type dotKernel struct{}

func (dotKernel) Distance(a, b []float32) (float32, error) {
	sim, err := (dotKernel{}).Similarity(a, b)
	if err != nil {
		return 0, err
	}
	return -sim, nil
}

func (dotKernel) Similarity(a, b []float32) (float32, error) {
	if err := checkDims("vector.Dot", a, b); err != nil {
		return 0, err
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum), nil
}

// threshold converts a float component to a bit; the binary metrics
// threshold-convert floats before comparing.
func threshold(v float32) bool { return v > 0.5 }

type hammingKernel struct{}

func (hammingKernel) Distance(a, b []float32) (float32, error) {
	if err := checkDims("vector.Hamming", a, b); err != nil {
		return 0, err
	}
	var mismatches int
	for i := range a {
		if threshold(a[i]) != threshold(b[i]) {
			mismatches++
		}
	}
	return float32(mismatches), nil
}

func (k hammingKernel) Similarity(a, b []float32) (float32, error) {
	d, err := k.Distance(a, b)
	if err != nil {
		return 0, err
	}
	if len(a) == 0 {
		return 1.0, nil
	}
	return 1 - d/float32(len(a)), nil
}

type jaccardKernel struct{}

func (jaccardKernel) Similarity(a, b []float32) (float32, error) {
	if err := checkDims("vector.Jaccard", a, b); err != nil {
		return 0, err
	}
	if len(a) == 0 {
		return 1.0, nil
	}
	var intersection, union int
	for i := range a {
		ab, bb := threshold(a[i]), threshold(b[i])
		if ab && bb {
			intersection++
		}
		if ab || bb {
			union++
		}
	}
	if union == 0 {
		return 1.0, nil
	}
	return float32(intersection) / float32(union), nil
}

func (k jaccardKernel) Distance(a, b []float32) (float32, error) {
	sim, err := k.Similarity(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - sim, nil
}
