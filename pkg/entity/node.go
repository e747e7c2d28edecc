// Package entity implements typed CRUD for the fixed set of node variants,
// edges, and embeddings that make up ConvergeDB's data model, over the
// framed KV substrate in pkg/store.
package entity

import (
	"encoding/json"
	"time"

	"github.com/orneryd/convergedb/pkg/hyberr"
)

// NodeID, EdgeID and EmbeddingID are distinct string types so a caller can't
// pass an EdgeID where a NodeID is expected and have it silently compile.
type NodeID string
type EdgeID string
type EmbeddingID string

// NodeKind is the discriminant byte stored as the first byte of every
// node's frame payload. It determines which of Node's variant pointers is
// populated and which struct json.Unmarshal decodes the remainder into.
type NodeKind byte

const (
	KindUnknown NodeKind = iota
	KindChat
	KindMessage
	KindSummary
	KindEntity
	KindAttachment
	KindScrapedPage
	KindBookmark
	KindWebSearch
	KindImageMetadata
	KindAudioTranscript
	KindModelInfo
)

func (k NodeKind) String() string {
	switch k {
	case KindChat:
		return "Chat"
	case KindMessage:
		return "Message"
	case KindSummary:
		return "Summary"
	case KindEntity:
		return "Entity"
	case KindAttachment:
		return "Attachment"
	case KindScrapedPage:
		return "ScrapedPage"
	case KindBookmark:
		return "Bookmark"
	case KindWebSearch:
		return "WebSearch"
	case KindImageMetadata:
		return "ImageMetadata"
	case KindAudioTranscript:
		return "AudioTranscript"
	case KindModelInfo:
		return "ModelInfo"
	default:
		return "Unknown"
	}
}

// Common carries the fields every variant has: a unique non-empty id, a
// creation marker, an optional embedding link, and an open metadata bag for
// extension fields that don't warrant a typed column.
type Common struct {
	ID          NodeID         `json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	EmbeddingID EmbeddingID    `json:"embedding_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type ChatNode struct {
	Common
	Title string `json:"title"`
}

type MessageNode struct {
	Common
	ChatID      NodeID `json:"chat_id"`
	Role        string `json:"role"`
	TextContent string `json:"text_content"`
}

type SummaryNode struct {
	Common
	ChatID NodeID `json:"chat_id"`
	Text   string `json:"text"`
}

type EntityNode struct {
	Common
	Name       string `json:"name"`
	EntityType string `json:"entity_type"`
}

type AttachmentNode struct {
	Common
	MessageID   NodeID `json:"message_id"`
	MimeType    string `json:"mime_type"`
	SizeBytes   int64  `json:"size_bytes"`
	StoragePath string `json:"storage_path"`
}

type ScrapedPageNode struct {
	Common
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type BookmarkNode struct {
	Common
	URL   string   `json:"url"`
	Title string   `json:"title"`
	Tags  []string `json:"tags,omitempty"`
}

type WebSearchNode struct {
	Common
	Query       string `json:"query"`
	ResultCount int    `json:"result_count"`
}

type ImageMetadataNode struct {
	Common
	SourceNodeID NodeID `json:"source_node_id"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Format       string `json:"format"`
}

type AudioTranscriptNode struct {
	Common
	SourceNodeID    NodeID  `json:"source_node_id"`
	Text            string  `json:"text"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type ModelInfoNode struct {
	Common
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	ContextWindow int    `json:"context_window"`
}

// Node is the tagged union over all variants. Exactly one of the pointer
// fields matching Kind is non-nil. Field access is by direct struct access
// after a switch on Kind; there is no interface method table to dispatch
// through on the hot read path.
type Node struct {
	Kind NodeKind

	Chat            *ChatNode
	Message         *MessageNode
	Summary         *SummaryNode
	Entity          *EntityNode
	Attachment      *AttachmentNode
	ScrapedPage     *ScrapedPageNode
	Bookmark        *BookmarkNode
	WebSearch       *WebSearchNode
	ImageMetadata   *ImageMetadataNode
	AudioTranscript *AudioTranscriptNode
	ModelInfo       *ModelInfoNode
}

// Common returns the populated variant's shared fields, or nil if Kind
// doesn't match any populated pointer (a malformed Node).
func (n *Node) Common() *Common {
	switch n.Kind {
	case KindChat:
		if n.Chat != nil {
			return &n.Chat.Common
		}
	case KindMessage:
		if n.Message != nil {
			return &n.Message.Common
		}
	case KindSummary:
		if n.Summary != nil {
			return &n.Summary.Common
		}
	case KindEntity:
		if n.Entity != nil {
			return &n.Entity.Common
		}
	case KindAttachment:
		if n.Attachment != nil {
			return &n.Attachment.Common
		}
	case KindScrapedPage:
		if n.ScrapedPage != nil {
			return &n.ScrapedPage.Common
		}
	case KindBookmark:
		if n.Bookmark != nil {
			return &n.Bookmark.Common
		}
	case KindWebSearch:
		if n.WebSearch != nil {
			return &n.WebSearch.Common
		}
	case KindImageMetadata:
		if n.ImageMetadata != nil {
			return &n.ImageMetadata.Common
		}
	case KindAudioTranscript:
		if n.AudioTranscript != nil {
			return &n.AudioTranscript.Common
		}
	case KindModelInfo:
		if n.ModelInfo != nil {
			return &n.ModelInfo.Common
		}
	}
	return nil
}

// ID returns the node's id, or "" if the Node is malformed.
func (n *Node) ID() NodeID {
	if c := n.Common(); c != nil {
		return c.ID
	}
	return ""
}

// StructuralFields returns the (property, value) pairs this node
// contributes to the structural index: node_type plus the variant-specific
// fields worth filtering on. Values are stringified; callers doing
// equality lookups format their filter value the same way.
func (n *Node) StructuralFields() map[string]string {
	fields := map[string]string{"node_type": n.Kind.String()}
	if c := n.Common(); c != nil && c.EmbeddingID != "" {
		fields["embedding_id"] = string(c.EmbeddingID)
	}
	switch n.Kind {
	case KindMessage:
		if n.Message != nil {
			fields["chat_id"] = string(n.Message.ChatID)
			fields["role"] = n.Message.Role
		}
	case KindSummary:
		if n.Summary != nil {
			fields["chat_id"] = string(n.Summary.ChatID)
		}
	case KindEntity:
		if n.Entity != nil {
			fields["entity_type"] = n.Entity.EntityType
			fields["name"] = n.Entity.Name
		}
	case KindAttachment:
		if n.Attachment != nil {
			fields["message_id"] = string(n.Attachment.MessageID)
			fields["mime_type"] = n.Attachment.MimeType
		}
	case KindScrapedPage:
		if n.ScrapedPage != nil {
			fields["url"] = n.ScrapedPage.URL
		}
	case KindBookmark:
		if n.Bookmark != nil {
			fields["url"] = n.Bookmark.URL
		}
	case KindImageMetadata:
		if n.ImageMetadata != nil {
			fields["source_node_id"] = string(n.ImageMetadata.SourceNodeID)
		}
	case KindAudioTranscript:
		if n.AudioTranscript != nil {
			fields["source_node_id"] = string(n.AudioTranscript.SourceNodeID)
		}
	case KindModelInfo:
		if n.ModelInfo != nil {
			fields["provider"] = n.ModelInfo.Provider
		}
	}
	return fields
}

// EncodeNode serializes a Node to its frame payload: a one-byte
// discriminant followed by the JSON encoding of the populated variant.
func EncodeNode(n *Node) ([]byte, error) {
	var variant any
	switch n.Kind {
	case KindChat:
		variant = n.Chat
	case KindMessage:
		variant = n.Message
	case KindSummary:
		variant = n.Summary
	case KindEntity:
		variant = n.Entity
	case KindAttachment:
		variant = n.Attachment
	case KindScrapedPage:
		variant = n.ScrapedPage
	case KindBookmark:
		variant = n.Bookmark
	case KindWebSearch:
		variant = n.WebSearch
	case KindImageMetadata:
		variant = n.ImageMetadata
	case KindAudioTranscript:
		variant = n.AudioTranscript
	case KindModelInfo:
		variant = n.ModelInfo
	default:
		return nil, hyberr.Newf(hyberr.InvalidOperation, "entity.EncodeNode", "unknown node kind %d", n.Kind)
	}
	body, err := json.Marshal(variant)
	if err != nil {
		return nil, hyberr.Wrap(hyberr.Serialization, "entity.EncodeNode", err)
	}
	out := make([]byte, 1+len(body))
	out[0] = byte(n.Kind)
	copy(out[1:], body)
	return out, nil
}

// DecodeNode is the inverse of EncodeNode.
func DecodeNode(buf []byte) (*Node, error) {
	if len(buf) < 1 {
		return nil, hyberr.New(hyberr.Serialization, "entity.DecodeNode", "empty node payload")
	}
	kind := NodeKind(buf[0])
	body := buf[1:]
	n := &Node{Kind: kind}

	var err error
	switch kind {
	case KindChat:
		n.Chat = &ChatNode{}
		err = json.Unmarshal(body, n.Chat)
	case KindMessage:
		n.Message = &MessageNode{}
		err = json.Unmarshal(body, n.Message)
	case KindSummary:
		n.Summary = &SummaryNode{}
		err = json.Unmarshal(body, n.Summary)
	case KindEntity:
		n.Entity = &EntityNode{}
		err = json.Unmarshal(body, n.Entity)
	case KindAttachment:
		n.Attachment = &AttachmentNode{}
		err = json.Unmarshal(body, n.Attachment)
	case KindScrapedPage:
		n.ScrapedPage = &ScrapedPageNode{}
		err = json.Unmarshal(body, n.ScrapedPage)
	case KindBookmark:
		n.Bookmark = &BookmarkNode{}
		err = json.Unmarshal(body, n.Bookmark)
	case KindWebSearch:
		n.WebSearch = &WebSearchNode{}
		err = json.Unmarshal(body, n.WebSearch)
	case KindImageMetadata:
		n.ImageMetadata = &ImageMetadataNode{}
		err = json.Unmarshal(body, n.ImageMetadata)
	case KindAudioTranscript:
		n.AudioTranscript = &AudioTranscriptNode{}
		err = json.Unmarshal(body, n.AudioTranscript)
	case KindModelInfo:
		n.ModelInfo = &ModelInfoNode{}
		err = json.Unmarshal(body, n.ModelInfo)
	default:
		return nil, hyberr.Newf(hyberr.InvalidOperation, "entity.DecodeNode", "unknown node kind %d", kind)
	}
	if err != nil {
		return nil, hyberr.Wrap(hyberr.Serialization, "entity.DecodeNode", err)
	}
	return n, nil
}
