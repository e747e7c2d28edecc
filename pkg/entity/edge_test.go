package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeEdge_RoundTrip(t *testing.T) {
	e := &Edge{
		ID:        "e1",
		From:      "n1",
		To:        "n2",
		EdgeType:  "REFERENCES",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Metadata:  map[string]any{"weight": 1.5},
	}
	buf, err := EncodeEdge(e)
	require.NoError(t, err)

	got, err := DecodeEdge(buf)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, e.From, got.From)
	assert.Equal(t, e.To, got.To)
	assert.Equal(t, e.EdgeType, got.EdgeType)
	assert.InDelta(t, 1.5, got.Metadata["weight"], 0.0001)
}

func TestEncodeDecodeEmbedding_RoundTrip(t *testing.T) {
	emb := &Embedding{ID: "emb1", Vector: []float32{0.1, 0.2, 0.3}, Model: "text-embedding-3"}
	buf, err := EncodeEmbedding(emb)
	require.NoError(t, err)

	got, err := DecodeEmbedding(buf)
	require.NoError(t, err)
	assert.Equal(t, emb.ID, got.ID)
	assert.Equal(t, emb.Model, got.Model)
	assert.Equal(t, emb.Vector, got.Vector)
}

func TestDecodeEdge_InvalidJSON(t *testing.T) {
	_, err := DecodeEdge([]byte("not json"))
	require.Error(t, err)
}
