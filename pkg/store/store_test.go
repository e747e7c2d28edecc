package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/orneryd/convergedb/pkg/hyberr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, Options{Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_CreatesAllTables(t *testing.T) {
	s := openTestStore(t)
	// Every table should accept a Put without erroring on a missing bucket.
	for _, table := range allTables {
		err := s.Update(func(tx *WriteTxn) error {
			return tx.Put(table, []byte("k"), []byte("v"))
		})
		require.NoError(t, err, table)
	}
}

func TestPutGet_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	err := s.Update(func(tx *WriteTxn) error {
		return tx.Put(TableNodes, []byte("n1"), []byte("hello"))
	})
	require.NoError(t, err)

	err = s.View(func(tx *ReadTxn) error {
		b, err := tx.Get(TableNodes, []byte("n1"))
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), b.Bytes)
		return nil
	})
	require.NoError(t, err)
}

func TestGet_NotFound(t *testing.T) {
	s := openTestStore(t)
	err := s.View(func(tx *ReadTxn) error {
		_, err := tx.Get(TableNodes, []byte("missing"))
		return err
	})
	require.Error(t, err)
	assert.Equal(t, hyberr.NotFound, hyberr.KindOf(err))
}

func TestDelete_AbsentKeyIsNoop(t *testing.T) {
	s := openTestStore(t)
	err := s.Update(func(tx *WriteTxn) error {
		return tx.Delete(TableNodes, []byte("never-existed"))
	})
	require.NoError(t, err)
}

func TestDelete_RemovesKey(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Update(func(tx *WriteTxn) error {
		return tx.Put(TableNodes, []byte("n1"), []byte("v"))
	}))
	require.NoError(t, s.Update(func(tx *WriteTxn) error {
		return tx.Delete(TableNodes, []byte("n1"))
	}))
	err := s.View(func(tx *ReadTxn) error {
		_, err := tx.Get(TableNodes, []byte("n1"))
		return err
	})
	assert.Equal(t, hyberr.NotFound, hyberr.KindOf(err))
}

func TestScanPrefix_OrdersByKey(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Update(func(tx *WriteTxn) error {
		for _, k := range []string{"b", "a", "c"} {
			if err := tx.Put(TableNodes, []byte(k), []byte(k)); err != nil {
				return err
			}
		}
		return nil
	}))

	var seen []string
	err := s.View(func(tx *ReadTxn) error {
		return tx.ScanPrefix(TableNodes, nil, func(key []byte, val Borrowed) error {
			seen = append(seen, string(key))
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestView_SeesPriorUpdate(t *testing.T) {
	s := openTestStore(t)
	// Borrow a read transaction, release it, then write, then borrow again:
	// the pool must hand back a transaction reflecting the write, not a
	// stale snapshot predating it.
	require.NoError(t, s.View(func(tx *ReadTxn) error { return nil }))
	require.NoError(t, s.Update(func(tx *WriteTxn) error {
		return tx.Put(TableNodes, []byte("k"), []byte("v1"))
	}))

	err := s.View(func(tx *ReadTxn) error {
		b, err := tx.Get(TableNodes, []byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), b.Bytes)
		return nil
	})
	require.NoError(t, err)
}

func TestReopen_FramesSurvive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, Options{Timeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, s.Update(func(tx *WriteTxn) error {
		return tx.Put(TableNodes, []byte("n1"), []byte("durable"))
	}))
	require.NoError(t, s.Close())

	s2, err := Open(path, Options{Timeout: time.Second})
	require.NoError(t, err)
	defer s2.Close()

	err = s2.View(func(tx *ReadTxn) error {
		b, err := tx.Get(TableNodes, []byte("n1"))
		require.NoError(t, err)
		assert.Equal(t, []byte("durable"), b.Bytes)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdate_ErrorAbortsTransaction(t *testing.T) {
	s := openTestStore(t)
	sentinelErr := hyberr.New(hyberr.InvalidOperation, "test", "boom")
	err := s.Update(func(tx *WriteTxn) error {
		if err := tx.Put(TableNodes, []byte("k"), []byte("v")); err != nil {
			return err
		}
		return sentinelErr
	})
	require.Error(t, err)

	err = s.View(func(tx *ReadTxn) error {
		_, err := tx.Get(TableNodes, []byte("k"))
		return err
	})
	assert.Equal(t, hyberr.NotFound, hyberr.KindOf(err))
}
