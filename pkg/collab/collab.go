// Package collab declares the contracts for the external collaborators the
// core consumes but does not implement: inference runtimes that produce
// embeddings and generations, and the model-weight blob cache. The core
// validates identifiers crossing these boundaries; everything behind the
// interfaces (HTTP clients, native runtimes, chunked download caches) lives
// in other processes or layers.
package collab

import (
	"context"
	"strings"

	"github.com/orneryd/convergedb/pkg/hyberr"
)

// Embedder produces fixed-dimension vectors from text. Implementations must
// be safe for concurrent use. The core assumes every returned vector has
// Dimensions() length and validates that against the target segment on
// insert; it does not manage the runtime's memory or lifecycle.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector dimension.
	Dimensions() int

	// Model returns the model name.
	Model() string
}

// Generator produces token streams from a prompt. The returned channel is
// closed by the implementation when generation completes or ctx is
// cancelled.
type Generator interface {
	Generate(ctx context.Context, prompt string) (<-chan string, error)
}

// ChunkReader iterates a blob's chunks in order. Next returns io.EOF after
// the final chunk. The returned slice is only valid until the next call.
type ChunkReader interface {
	Next() ([]byte, error)
	Close() error
}

// BlobCache serves model-weight blobs addressed by (repo, path). The core
// never loads whole blobs into memory on its own behalf; callers that need
// the full bytes use Get knowingly, streaming paths use Stream.
type BlobCache interface {
	Get(repo, path string) ([]byte, error)
	Has(repo, path string) (bool, error)
	Stream(repo, path string) (ChunkReader, error)
}

// ValidateRepoID checks a repository id consumed from a collaborator:
// owner/name with exactly one separator, alphanumerics plus `.`, `-`, `_`
// in each part, and no `..` or `//` sequences anywhere.
func ValidateRepoID(id string) error {
	if id == "" {
		return hyberr.New(hyberr.InvalidOperation, "collab.ValidateRepoID", "repo id must be non-empty").WithField("repo")
	}

	var slashes int
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c == '/':
			slashes++
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '-', c == '_':
		default:
			return hyberr.Newf(hyberr.InvalidOperation, "collab.ValidateRepoID", "repo id %q contains invalid character %q", id, c).WithField("repo")
		}
	}
	if slashes != 1 {
		return hyberr.Newf(hyberr.InvalidOperation, "collab.ValidateRepoID", "repo id %q must be owner/name", id).WithField("repo")
	}
	if id[0] == '/' || id[len(id)-1] == '/' {
		return hyberr.Newf(hyberr.InvalidOperation, "collab.ValidateRepoID", "repo id %q has an empty owner or name", id).WithField("repo")
	}
	if strings.Contains(id, "..") {
		return hyberr.Newf(hyberr.InvalidOperation, "collab.ValidateRepoID", "repo id %q contains a path traversal sequence", id).WithField("repo")
	}
	return nil
}
