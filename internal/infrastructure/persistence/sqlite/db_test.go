package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/mission-orders/pkg/database"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	raw, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "tx.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	_, err = raw.Exec(`CREATE TABLE counters (name TEXT PRIMARY KEY, value INTEGER NOT NULL)`)
	require.NoError(t, err)
	_, err = raw.Exec(`INSERT INTO counters (name, value) VALUES ('a', 0)`)
	require.NoError(t, err)
	return NewDB(raw.DB, zap.NewNop())
}

func counter(t *testing.T, db *DB) int {
	t.Helper()
	var v int
	require.NoError(t, db.QueryRow(`SELECT value FROM counters WHERE name = 'a'`).Scan(&v))
	return v
}

func increment(ctx context.Context, db *DB) error {
	_, err := ExecutorFor(ctx, db.DB).ExecContext(ctx, `UPDATE counters SET value = value + 1 WHERE name = 'a'`)
	return err
}

func TestWithTransaction_CommitAndRollback(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.WithTransaction(ctx, func(txCtx context.Context) error {
		assert.NotNil(t, TxFrom(txCtx))
		return increment(txCtx, db)
	}))
	assert.Equal(t, 1, counter(t, db))

	boom := errors.New("boom")
	err := db.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := increment(txCtx, db); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, counter(t, db))
}

func TestWithTransaction_NestedCallsJoin(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.WithTransaction(ctx, func(outer context.Context) error {
		outerTx := TxFrom(outer)
		if err := db.WithTransaction(outer, func(inner context.Context) error {
			assert.Same(t, outerTx, TxFrom(inner))
			return increment(inner, db)
		}); err != nil {
			return err
		}
		return errors.New("abort outer")
	})
	require.Error(t, err)
	assert.Equal(t, 0, counter(t, db), "inner work belongs to the outer transaction")
}

func TestWithTransaction_PanicRollsBack(t *testing.T) {
	db := newTestDB(t)

	assert.Panics(t, func() {
		_ = db.WithTransaction(context.Background(), func(txCtx context.Context) error {
			_ = increment(txCtx, db)
			panic("handler bug")
		})
	})
	assert.Equal(t, 0, counter(t, db))
}

func TestExecutorFor(t *testing.T) {
	db := newTestDB(t)
	assert.Equal(t, Executor(db.DB), ExecutorFor(context.Background(), db.DB))

	var tx *sql.Tx
	assert.Nil(t, TxFrom(WithTx(context.Background(), tx)))
}
