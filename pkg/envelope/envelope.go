// Package envelope implements handlers for the typed-request envelope the
// routing layer (HTTP, native messaging, WebRTC) hands the core. Only the
// variants that map to storage or query operations are handled here; a
// request with no populated variant, or a variant the core doesn't own, is
// rejected rather than routed further.
package envelope

import (
	"context"

	"github.com/orneryd/convergedb/pkg/entity"
	"github.com/orneryd/convergedb/pkg/hyberr"
	"github.com/orneryd/convergedb/pkg/query"
)

// Request is the envelope's tagged union. Exactly one pointer field is
// populated per request, the same discriminated-variant shape entity.Node
// uses.
type Request struct {
	InsertNode         *InsertNodeRequest
	GetNode            *GetNodeRequest
	DeleteNode         *DeleteNodeRequest
	InsertEdge         *InsertEdgeRequest
	GetEdge            *GetEdgeRequest
	DeleteEdge         *DeleteEdgeRequest
	InsertEmbedding    *InsertEmbeddingRequest
	GetEmbedding       *GetEmbeddingRequest
	GetEmbeddingByNode *GetEmbeddingByNodeRequest
	Query              *QueryRequest
	ShortestPath       *ShortestPathRequest
}

type InsertNodeRequest struct {
	Node *entity.Node
}

type GetNodeRequest struct {
	ID entity.NodeID
}

type DeleteNodeRequest struct {
	ID entity.NodeID
}

type InsertEdgeRequest struct {
	Edge *entity.Edge
}

type GetEdgeRequest struct {
	ID entity.EdgeID
}

type DeleteEdgeRequest struct {
	ID entity.EdgeID
}

type InsertEmbeddingRequest struct {
	Embedding *entity.Embedding
}

type GetEmbeddingRequest struct {
	ID entity.EmbeddingID
}

type GetEmbeddingByNodeRequest struct {
	NodeID entity.NodeID
}

type QueryRequest struct {
	Query query.ConvergedQuery
}

type ShortestPathRequest struct {
	Start entity.NodeID
	End   entity.NodeID
}

// Response carries whichever result shape the handled variant produces.
// Mutations that return nothing set Ack.
type Response struct {
	Ack       bool
	Node      *entity.Node
	Edge      *entity.Edge
	Embedding *entity.Embedding
	Results   []query.Result
	Path      *query.Path
}

// Handler dispatches envelope requests onto one database's entity store and
// query executor.
type Handler struct {
	entities *entity.Store
	exec     *query.Executor
}

func NewHandler(entities *entity.Store, exec *query.Executor) *Handler {
	return &Handler{entities: entities, exec: exec}
}

// Handle runs the populated variant's operation. A request with no
// populated variant fails with InvalidOperation.
func (h *Handler) Handle(ctx context.Context, req *Request) (*Response, error) {
	switch {
	case req.InsertNode != nil:
		if err := h.entities.InsertNode(req.InsertNode.Node); err != nil {
			return nil, err
		}
		return &Response{Ack: true}, nil

	case req.GetNode != nil:
		n, err := h.entities.GetNode(req.GetNode.ID)
		if err != nil {
			return nil, err
		}
		return &Response{Node: n}, nil

	case req.DeleteNode != nil:
		if err := h.entities.DeleteNode(req.DeleteNode.ID); err != nil {
			return nil, err
		}
		return &Response{Ack: true}, nil

	case req.InsertEdge != nil:
		if err := h.entities.InsertEdge(req.InsertEdge.Edge); err != nil {
			return nil, err
		}
		return &Response{Ack: true}, nil

	case req.GetEdge != nil:
		e, err := h.entities.GetEdge(req.GetEdge.ID)
		if err != nil {
			return nil, err
		}
		return &Response{Edge: e}, nil

	case req.DeleteEdge != nil:
		if err := h.entities.DeleteEdge(req.DeleteEdge.ID); err != nil {
			return nil, err
		}
		return &Response{Ack: true}, nil

	case req.InsertEmbedding != nil:
		if err := h.entities.InsertEmbedding(req.InsertEmbedding.Embedding); err != nil {
			return nil, err
		}
		return &Response{Ack: true}, nil

	case req.GetEmbedding != nil:
		e, err := h.entities.GetEmbedding(req.GetEmbedding.ID)
		if err != nil {
			return nil, err
		}
		return &Response{Embedding: e}, nil

	case req.GetEmbeddingByNode != nil:
		e, err := h.entities.GetEmbeddingByNode(req.GetEmbeddingByNode.NodeID)
		if err != nil {
			return nil, err
		}
		return &Response{Embedding: e}, nil

	case req.Query != nil:
		rows, err := h.exec.Execute(ctx, req.Query.Query)
		if err != nil {
			return nil, err
		}
		return &Response{Results: rows}, nil

	case req.ShortestPath != nil:
		p, err := h.exec.FindShortestPath(ctx, req.ShortestPath.Start, req.ShortestPath.End)
		if err != nil {
			return nil, err
		}
		return &Response{Path: p, Ack: p != nil}, nil

	default:
		return nil, hyberr.New(hyberr.InvalidOperation, "envelope.Handle", "request has no handled variant")
	}
}
