package collab

import (
	"testing"

	"github.com/orneryd/convergedb/pkg/hyberr"
	"github.com/stretchr/testify/assert"
)

func TestValidateRepoID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		ok   bool
	}{
		{"simple", "owner/name", true},
		{"dots and dashes", "mistral.ai/Mixtral-8x7B_v0.1", true},
		{"empty", "", false},
		{"no separator", "ownername", false},
		{"too many separators", "a/b/c", false},
		{"empty owner", "/name", false},
		{"empty name", "owner/", false},
		{"traversal", "owner/..", false},
		{"traversal in owner", "../name", false},
		{"space", "owner/my model", false},
		{"colon", "owner:name/x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRepoID(tt.id)
			if tt.ok {
				assert.NoError(t, err, tt.id)
			} else {
				assert.Error(t, err, tt.id)
				assert.Equal(t, hyberr.InvalidOperation, hyberr.KindOf(err))
			}
		})
	}
}
