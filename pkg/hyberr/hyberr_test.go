package hyberr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(NotFound, "pkg.Op", "missing thing")
	assert.Equal(t, NotFound, err.Kind)
	assert.Equal(t, "pkg.Op", err.Op)
	assert.Contains(t, err.Error(), "missing thing")
}

func TestNewf(t *testing.T) {
	err := Newf(InvalidQuery, "pkg.Op", "bad value %d", 42)
	assert.Contains(t, err.Error(), "bad value 42")
}

func TestWrap_NilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(Storage, "pkg.Op", nil))
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(Storage, "pkg.Op", cause)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestWithField(t *testing.T) {
	err := New(NotFound, "pkg.Op", "missing").WithField("user_id")
	assert.Equal(t, "user_id", err.Field)
	assert.Contains(t, err.Error(), "field=user_id")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, NotFound, KindOf(New(NotFound, "op", "msg")))
	assert.Equal(t, Unknown, KindOf(errors.New("plain error")))
	assert.Equal(t, Unknown, KindOf(nil))
}

func TestKindOf_WrappedByFmt(t *testing.T) {
	inner := New(Graph, "op", "dangling edge")
	wrapped := fmt.Errorf("outer: %w", inner)
	assert.Equal(t, Graph, KindOf(wrapped))
}

func TestError_Is_MatchesByKind(t *testing.T) {
	a := New(InvalidOperation, "opA", "msgA")
	b := New(InvalidOperation, "opB", "msgB")
	c := New(NotFound, "opC", "msgC")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "NotFound", NotFound.String())
	assert.Equal(t, "Unknown", Kind(999).String())
}
