package entity

import (
	"path/filepath"
	"testing"

	"github.com/orneryd/convergedb/pkg/hyberr"
	"github.com/orneryd/convergedb/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEntityStore(t *testing.T) *Store {
	t.Helper()
	kv, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return NewStore(kv, nil)
}

func TestInsertGetNode(t *testing.T) {
	s := newTestEntityStore(t)
	n := &Node{Kind: KindChat, Chat: &ChatNode{Common: Common{ID: "chat-1"}, Title: "hi"}}
	require.NoError(t, s.InsertNode(n))

	got, err := s.GetNode("chat-1")
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Chat.Title)
}

func TestInsertNode_EmptyIDRejected(t *testing.T) {
	s := newTestEntityStore(t)
	n := &Node{Kind: KindChat, Chat: &ChatNode{Title: "no id"}}
	err := s.InsertNode(n)
	require.Error(t, err)
	assert.Equal(t, hyberr.InvalidOperation, hyberr.KindOf(err))
}

func TestDeleteNode_IdempotentOnAbsent(t *testing.T) {
	s := newTestEntityStore(t)
	require.NoError(t, s.DeleteNode("never-existed"))
	require.NoError(t, s.DeleteNode("never-existed")) // second call still a no-op
}

func TestDeleteNode_RemovesIt(t *testing.T) {
	s := newTestEntityStore(t)
	n := &Node{Kind: KindChat, Chat: &ChatNode{Common: Common{ID: "chat-1"}, Title: "hi"}}
	require.NoError(t, s.InsertNode(n))
	require.NoError(t, s.DeleteNode("chat-1"))

	_, err := s.GetNode("chat-1")
	assert.Equal(t, hyberr.NotFound, hyberr.KindOf(err))
}

func TestInsertEdge_RoundTripAndIdempotent(t *testing.T) {
	s := newTestEntityStore(t)
	e := &Edge{ID: "e1", From: "a", To: "b", EdgeType: "LINKS"}
	require.NoError(t, s.InsertEdge(e))
	require.NoError(t, s.InsertEdge(e)) // idempotent re-insert

	got, err := s.GetEdge("e1")
	require.NoError(t, err)
	assert.Equal(t, "a", string(got.From))
}

func TestInsertEdge_MissingEndpointRejected(t *testing.T) {
	s := newTestEntityStore(t)
	err := s.InsertEdge(&Edge{ID: "e1", From: "a"})
	require.Error(t, err)
	assert.Equal(t, hyberr.InvalidOperation, hyberr.KindOf(err))
}

func TestDeleteEdge_IdempotentOnAbsent(t *testing.T) {
	s := newTestEntityStore(t)
	require.NoError(t, s.DeleteEdge("never-existed"))
}

func TestInsertEmbedding_GeneratesIDWhenBlank(t *testing.T) {
	s := newTestEntityStore(t)
	e := &Embedding{Vector: []float32{1, 2, 3}}
	require.NoError(t, s.InsertEmbedding(e))
	assert.NotEmpty(t, e.ID)

	got, err := s.GetEmbedding(e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Vector, got.Vector)
}

func TestGetEmbeddingByNode(t *testing.T) {
	s := newTestEntityStore(t)
	emb := &Embedding{ID: "emb-1", Vector: []float32{1, 2}}
	require.NoError(t, s.InsertEmbedding(emb))

	n := &Node{Kind: KindChat, Chat: &ChatNode{Common: Common{ID: "chat-1", EmbeddingID: "emb-1"}, Title: "hi"}}
	require.NoError(t, s.InsertNode(n))

	got, err := s.GetEmbeddingByNode("chat-1")
	require.NoError(t, err)
	assert.Equal(t, emb.Vector, got.Vector)
}

func TestGetEmbeddingByNode_NoLink(t *testing.T) {
	s := newTestEntityStore(t)
	n := &Node{Kind: KindChat, Chat: &ChatNode{Common: Common{ID: "chat-1"}, Title: "hi"}}
	require.NoError(t, s.InsertNode(n))

	_, err := s.GetEmbeddingByNode("chat-1")
	assert.Equal(t, hyberr.NotFound, hyberr.KindOf(err))
}

func TestDeleteEmbedding_DoesNotCascadeFromNode(t *testing.T) {
	s := newTestEntityStore(t)
	emb := &Embedding{ID: "emb-1", Vector: []float32{1, 2}}
	require.NoError(t, s.InsertEmbedding(emb))
	n := &Node{Kind: KindChat, Chat: &ChatNode{Common: Common{ID: "chat-1", EmbeddingID: "emb-1"}, Title: "hi"}}
	require.NoError(t, s.InsertNode(n))

	require.NoError(t, s.DeleteNode("chat-1"))

	// The embedding survives the node's deletion; only an explicit
	// DeleteEmbedding removes it.
	_, err := s.GetEmbedding("emb-1")
	require.NoError(t, err)
}

func TestForEachEmbedding(t *testing.T) {
	s := newTestEntityStore(t)
	require.NoError(t, s.InsertEmbedding(&Embedding{ID: "e1", Vector: []float32{1}}))
	require.NoError(t, s.InsertEmbedding(&Embedding{ID: "e2", Vector: []float32{2}}))

	var seen []EmbeddingID
	err := s.ForEachEmbedding(func(e *Embedding) error {
		seen = append(seen, e.ID)
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []EmbeddingID{"e1", "e2"}, seen)
}

func TestForEachNode(t *testing.T) {
	s := newTestEntityStore(t)
	require.NoError(t, s.InsertNode(&Node{Kind: KindChat, Chat: &ChatNode{Common: Common{ID: "c1"}, Title: "a"}}))
	require.NoError(t, s.InsertNode(&Node{Kind: KindChat, Chat: &ChatNode{Common: Common{ID: "c2"}, Title: "b"}}))

	var seen []NodeID
	err := s.ForEachNode(func(n *Node) error {
		seen = append(seen, n.ID())
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []NodeID{"c1", "c2"}, seen)
}
