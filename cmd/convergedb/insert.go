package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/orneryd/convergedb/pkg/entity"
)

// nodeDoc is the CLI's JSON input shape for insert node: a kind
// discriminant plus the kind's variant-specific fields, decoded twice (once
// per kind) via its raw json.RawMessage fields sub-document.
type nodeDoc struct {
	Kind        string          `json:"kind"`
	ID          string          `json:"id"`
	EmbeddingID string          `json:"embedding_id,omitempty"`
	Fields      json.RawMessage `json:"fields"`
}

func newInsertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insert",
		Short: "Insert a node, edge, or embedding",
	}
	cmd.AddCommand(newInsertNodeCmd(), newInsertEdgeCmd(), newInsertEmbeddingCmd())
	return cmd
}

func newInsertNodeCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Insert a node from a JSON document",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(file)
			if err != nil {
				return err
			}
			var doc nodeDoc
			if err := json.Unmarshal(raw, &doc); err != nil {
				return fmt.Errorf("parsing node document: %w", err)
			}
			n, err := buildNode(doc)
			if err != nil {
				return err
			}

			coord, err := openCoordinator(cmd)
			if err != nil {
				return err
			}
			defer coord.Close()

			typ, tier := dbTypeAndTier(cmd)
			entities, _, err := coord.Open(typ, tier)
			if err != nil {
				return err
			}
			if err := entities.InsertNode(n); err != nil {
				return err
			}
			fmt.Printf("inserted node %s (%s)\n", doc.ID, doc.Kind)
			return nil
		},
	}
	addCommonFlags(cmd)
	cmd.Flags().StringVar(&file, "file", "", "JSON file (default: stdin)")
	return cmd
}

func buildNode(doc nodeDoc) (*entity.Node, error) {
	common := entity.Common{
		ID:          entity.NodeID(doc.ID),
		CreatedAt:   time.Now(),
		EmbeddingID: entity.EmbeddingID(doc.EmbeddingID),
	}

	n := &entity.Node{}
	switch doc.Kind {
	case "Chat":
		var v entity.ChatNode
		if err := unmarshalFields(doc.Fields, &v); err != nil {
			return nil, err
		}
		v.Common = common
		n.Kind, n.Chat = entity.KindChat, &v
	case "Message":
		var v entity.MessageNode
		if err := unmarshalFields(doc.Fields, &v); err != nil {
			return nil, err
		}
		v.Common = common
		n.Kind, n.Message = entity.KindMessage, &v
	case "Summary":
		var v entity.SummaryNode
		if err := unmarshalFields(doc.Fields, &v); err != nil {
			return nil, err
		}
		v.Common = common
		n.Kind, n.Summary = entity.KindSummary, &v
	case "Entity":
		var v entity.EntityNode
		if err := unmarshalFields(doc.Fields, &v); err != nil {
			return nil, err
		}
		v.Common = common
		n.Kind, n.Entity = entity.KindEntity, &v
	case "Attachment":
		var v entity.AttachmentNode
		if err := unmarshalFields(doc.Fields, &v); err != nil {
			return nil, err
		}
		v.Common = common
		n.Kind, n.Attachment = entity.KindAttachment, &v
	case "ScrapedPage":
		var v entity.ScrapedPageNode
		if err := unmarshalFields(doc.Fields, &v); err != nil {
			return nil, err
		}
		v.Common = common
		n.Kind, n.ScrapedPage = entity.KindScrapedPage, &v
	case "Bookmark":
		var v entity.BookmarkNode
		if err := unmarshalFields(doc.Fields, &v); err != nil {
			return nil, err
		}
		v.Common = common
		n.Kind, n.Bookmark = entity.KindBookmark, &v
	case "WebSearch":
		var v entity.WebSearchNode
		if err := unmarshalFields(doc.Fields, &v); err != nil {
			return nil, err
		}
		v.Common = common
		n.Kind, n.WebSearch = entity.KindWebSearch, &v
	case "ImageMetadata":
		var v entity.ImageMetadataNode
		if err := unmarshalFields(doc.Fields, &v); err != nil {
			return nil, err
		}
		v.Common = common
		n.Kind, n.ImageMetadata = entity.KindImageMetadata, &v
	case "AudioTranscript":
		var v entity.AudioTranscriptNode
		if err := unmarshalFields(doc.Fields, &v); err != nil {
			return nil, err
		}
		v.Common = common
		n.Kind, n.AudioTranscript = entity.KindAudioTranscript, &v
	case "ModelInfo":
		var v entity.ModelInfoNode
		if err := unmarshalFields(doc.Fields, &v); err != nil {
			return nil, err
		}
		v.Common = common
		n.Kind, n.ModelInfo = entity.KindModelInfo, &v
	default:
		return nil, fmt.Errorf("unknown node kind %q", doc.Kind)
	}
	return n, nil
}

func unmarshalFields(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func newInsertEdgeCmd() *cobra.Command {
	var id, from, to, edgeType string
	cmd := &cobra.Command{
		Use:   "edge",
		Short: "Insert an edge",
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := openCoordinator(cmd)
			if err != nil {
				return err
			}
			defer coord.Close()

			typ, tier := dbTypeAndTier(cmd)
			entities, _, err := coord.Open(typ, tier)
			if err != nil {
				return err
			}
			e := &entity.Edge{
				ID:        entity.EdgeID(id),
				From:      entity.NodeID(from),
				To:        entity.NodeID(to),
				EdgeType:  edgeType,
				CreatedAt: time.Now(),
			}
			if err := entities.InsertEdge(e); err != nil {
				return err
			}
			fmt.Printf("inserted edge %s (%s -> %s)\n", id, from, to)
			return nil
		},
	}
	addCommonFlags(cmd)
	cmd.Flags().StringVar(&id, "id", "", "edge id")
	cmd.Flags().StringVar(&from, "from", "", "source node id")
	cmd.Flags().StringVar(&to, "to", "", "target node id")
	cmd.Flags().StringVar(&edgeType, "type", "", "edge type")
	return cmd
}

func newInsertEmbeddingCmd() *cobra.Command {
	var id, model, vecFile string
	cmd := &cobra.Command{
		Use:   "embedding",
		Short: "Insert an embedding from a JSON float array",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(vecFile)
			if err != nil {
				return err
			}
			var vec []float32
			if err := json.Unmarshal(raw, &vec); err != nil {
				return fmt.Errorf("parsing vector: %w", err)
			}

			coord, err := openCoordinator(cmd)
			if err != nil {
				return err
			}
			defer coord.Close()

			typ, tier := dbTypeAndTier(cmd)
			entities, _, err := coord.Open(typ, tier)
			if err != nil {
				return err
			}
			e := &entity.Embedding{ID: entity.EmbeddingID(id), Vector: vec, Model: model}
			if err := entities.InsertEmbedding(e); err != nil {
				return err
			}
			fmt.Printf("inserted embedding %s\n", e.ID)
			return nil
		},
	}
	addCommonFlags(cmd)
	cmd.Flags().StringVar(&id, "id", "", "embedding id (generated if omitted)")
	cmd.Flags().StringVar(&model, "model", "", "embedding model name")
	cmd.Flags().StringVar(&vecFile, "vector-file", "", "JSON float array file (default: stdin)")
	return cmd
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
