// Package db wraps xorm's engine setup and provides the serializable
// transaction helper every catalog-mutating operation in spec §4.C and
// §4.E runs inside.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"xorm.io/xorm"

	"code.deblane.dev/repod/modules/apierror"
	"code.deblane.dev/repod/modules/setting"
)

// Engine wraps *xorm.Engine with the tables this system owns. driver
// records which SQL dialect it was opened against, since Serializable's
// isolation-level statement is Postgres-specific.
type Engine struct {
	*xorm.Engine
	driver string
}

// New opens a Postgres-backed xorm engine per cfg and pings it.
func New(cfg setting.Database) (*Engine, error) {
	engine, err := xorm.NewEngine("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("db: open engine: %w", err)
	}
	engine.SetMaxOpenConns(cfg.MaxOpenConns)
	engine.SetMaxIdleConns(cfg.MaxIdleConns)
	engine.SetConnMaxLifetime(time.Hour)

	if err := engine.Ping(); err != nil {
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	return &Engine{Engine: engine, driver: "postgres"}, nil
}

// NewSQLite opens an in-memory SQLite-backed engine, the substitute
// dialect the Ambient Stack's test tooling section calls for: catalog
// tests exercise the serializable-transaction-shaped code path without a
// live Postgres. SQLite has no SERIALIZABLE isolation level statement, so
// Serializable skips that statement for this driver; SQLite's own
// file-level locking already serializes writers within a single process,
// which is all a test process needs.
func NewSQLite(dsn string) (*Engine, error) {
	engine, err := xorm.NewEngine("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite engine: %w", err)
	}
	engine.SetMaxOpenConns(1)
	return &Engine{Engine: engine, driver: "sqlite3"}, nil
}

// Sync creates or updates the schema for every table given, in the style
// of gitea's models/db migration bootstrap. repod also ships versioned SQL
// migrations (models/db/migrations); Sync is used only for local
// development and the in-memory test engine.
func (e *Engine) Sync(beans ...any) error {
	return e.Engine.Sync(beans...)
}

// Tx is a running transaction, plus the context it was opened under.
type Tx struct {
	*xorm.Session
	ctx context.Context
}

// Serializable opens a SERIALIZABLE-isolation transaction and runs fn
// inside it, committing on success and rolling back on error or panic.
// This is the mechanism spec §4.C requires: "All writes run in
// serializable transactions... On serialization failure the transaction
// aborts."
//
// A Postgres serialization failure (SQLSTATE 40001) surfaces to fn as a
// generic *pq.Error; Serializable classifies it into apierror.CatalogConflict
// so callers (and modules/retry) can distinguish it from other failures.
func (e *Engine) Serializable(ctx context.Context, fn func(tx *Tx) error) (err error) {
	session := e.Engine.NewSession()
	defer session.Close()

	if err := session.Begin(); err != nil {
		return apierror.Wrap(apierror.Internal, "DB_BEGIN_FAILED", "could not begin transaction", err)
	}
	if e.driver == "postgres" {
		if _, err := session.Exec("SET TRANSACTION ISOLATION LEVEL SERIALIZABLE"); err != nil {
			_ = session.Rollback()
			return apierror.Wrap(apierror.Internal, "DB_SET_ISOLATION_FAILED", "could not set serializable isolation", err)
		}
	}

	defer func() {
		if p := recover(); p != nil {
			_ = session.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{Session: session, ctx: ctx}); err != nil {
		_ = session.Rollback()
		if isSerializationFailure(err) {
			return apierror.Wrap(apierror.CatalogConflict, "SERIALIZATION_FAILURE", "concurrent catalog change conflicted with this transaction", err)
		}
		return err
	}

	if err := session.Commit(); err != nil {
		if isSerializationFailure(err) {
			return apierror.Wrap(apierror.CatalogConflict, "SERIALIZATION_FAILURE", "concurrent catalog change conflicted with this transaction", err)
		}
		return apierror.Wrap(apierror.Internal, "DB_COMMIT_FAILED", "could not commit transaction", err)
	}
	return nil
}

// isSerializationFailure reports whether err is Postgres SQLSTATE 40001
// ("serialization_failure") or 40P01 ("deadlock_detected"), the two
// transient conditions serializable isolation can raise under contention.
func isSerializationFailure(err error) bool {
	var pgErr *pq.Error
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// ErrNoRows aliases sql.ErrNoRows. The single-row lookups in
// models/catalog do not return it: they report a missing row as
// apierror.NotFound.
var ErrNoRows = sql.ErrNoRows
