package db

import (
	"context"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID   int64 `xorm:"pk autoincr"`
	Name string
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewSQLite("file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	require.NoError(t, e.Sync(new(widget)))
	return e
}

func TestSerializableCommitsOnSuccess(t *testing.T) {
	e := newTestEngine(t)
	err := e.Serializable(context.Background(), func(tx *Tx) error {
		_, err := tx.Insert(&widget{Name: "gizmo"})
		return err
	})
	require.NoError(t, err)

	var rows []widget
	require.NoError(t, e.Find(&rows))
	require.Len(t, rows, 1)
	require.Equal(t, "gizmo", rows[0].Name)
}

func TestSerializableRollsBackOnError(t *testing.T) {
	e := newTestEngine(t)
	sentinel := errors.New("boom")
	err := e.Serializable(context.Background(), func(tx *Tx) error {
		if _, err := tx.Insert(&widget{Name: "gizmo"}); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	var rows []widget
	require.NoError(t, e.Find(&rows))
	require.Empty(t, rows, "rollback must undo the insert")
}

func TestSerializableRollsBackOnPanic(t *testing.T) {
	e := newTestEngine(t)
	require.Panics(t, func() {
		_ = e.Serializable(context.Background(), func(tx *Tx) error {
			_, _ = tx.Insert(&widget{Name: "gizmo"})
			panic("unexpected")
		})
	})

	var rows []widget
	require.NoError(t, e.Find(&rows))
	require.Empty(t, rows, "rollback must undo the insert even on panic")
}

func TestSerializableSkipsIsolationStatementOnSQLite(t *testing.T) {
	e := newTestEngine(t)
	require.Equal(t, "sqlite3", e.driver)

	// SQLite has no SERIALIZABLE isolation statement; Serializable must
	// not attempt to issue one against this driver.
	err := e.Serializable(context.Background(), func(tx *Tx) error {
		return nil
	})
	require.NoError(t, err)
}
