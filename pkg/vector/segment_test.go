package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment_AddVector_RejectsWhenFull(t *testing.T) {
	kernel, _ := KernelFor(Cosine)
	seg := NewSegment("s1", 4, 1, DefaultHNSWConfig(), kernel)

	require.NoError(t, seg.AddVector("v1", []float32{1, 0, 0, 0}, nil))
	assert.True(t, seg.IsFull())

	err := seg.AddVector("v2", []float32{0, 1, 0, 0}, nil)
	require.Error(t, err)
}

func TestSegment_AddVector_RejectsWhenSealed(t *testing.T) {
	kernel, _ := KernelFor(Cosine)
	seg := NewSegment("s1", 4, 100, DefaultHNSWConfig(), kernel)
	seg.setAppendable(false)

	err := seg.AddVector("v1", []float32{1, 0, 0, 0}, nil)
	require.Error(t, err)
}

func TestSegment_Optimize_SealsAndMarksOptimized(t *testing.T) {
	kernel, _ := KernelFor(Cosine)
	seg := NewSegment("s1", 4, 100, DefaultHNSWConfig(), kernel)
	require.NoError(t, seg.AddVector("v1", []float32{1, 0, 0, 0}, nil))

	require.NoError(t, seg.Optimize())
	assert.True(t, seg.IsOptimized())
	assert.False(t, seg.IsAppendable())
}

func TestSegment_RemoveVector(t *testing.T) {
	kernel, _ := KernelFor(Cosine)
	seg := NewSegment("s1", 4, 100, DefaultHNSWConfig(), kernel)
	require.NoError(t, seg.AddVector("v1", []float32{1, 0, 0, 0}, Payload{"k": "v"}))

	assert.True(t, seg.RemoveVector("v1"))
	assert.False(t, seg.RemoveVector("v1"))
	_, ok := seg.GetPayload("v1")
	assert.False(t, ok)
}
