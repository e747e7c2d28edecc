package entity

import (
	"encoding/json"
	"time"

	"github.com/orneryd/convergedb/pkg/hyberr"
)

// Edge is a directed relationship between two nodes. Multiple edges between
// the same pair are permitted, distinguished by ID and Type.
type Edge struct {
	ID        EdgeID         `json:"id"`
	From      NodeID         `json:"from"`
	To        NodeID         `json:"to"`
	EdgeType  string         `json:"edge_type"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func EncodeEdge(e *Edge) ([]byte, error) {
	buf, err := json.Marshal(e)
	if err != nil {
		return nil, hyberr.Wrap(hyberr.Serialization, "entity.EncodeEdge", err)
	}
	return buf, nil
}

func DecodeEdge(buf []byte) (*Edge, error) {
	var e Edge
	if err := json.Unmarshal(buf, &e); err != nil {
		return nil, hyberr.Wrap(hyberr.Serialization, "entity.DecodeEdge", err)
	}
	return &e, nil
}

// Embedding is a fixed-dimension vector tied to a model name. Dimension is
// validated against the owning segment on insert, not here.
type Embedding struct {
	ID     EmbeddingID `json:"id"`
	Vector []float32   `json:"vector"`
	Model  string      `json:"model"`
}

func EncodeEmbedding(e *Embedding) ([]byte, error) {
	buf, err := json.Marshal(e)
	if err != nil {
		return nil, hyberr.Wrap(hyberr.Serialization, "entity.EncodeEmbedding", err)
	}
	return buf, nil
}

func DecodeEmbedding(buf []byte) (*Embedding, error) {
	var e Embedding
	if err := json.Unmarshal(buf, &e); err != nil {
		return nil, hyberr.Wrap(hyberr.Serialization, "entity.DecodeEmbedding", err)
	}
	return &e, nil
}
