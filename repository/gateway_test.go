package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockGateway(t *testing.T) (*GormGateway, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return NewGateway(db), mock
}

func TestGateway_FetchOne(t *testing.T) {
	ctx := context.Background()

	t.Run("row found", func(t *testing.T) {
		gw, mock := newMockGateway(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email FROM users WHERE id = $1")).
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow(7, "a@example.com"))

		var row struct {
			ID    uint
			Email string
		}
		found, err := gw.FetchOne(ctx, &row, "SELECT id, email FROM users WHERE id = ?", 7)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, uint(7), row.ID)
		assert.Equal(t, "a@example.com", row.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no row", func(t *testing.T) {
		gw, mock := newMockGateway(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE id = $1")).
			WithArgs(9).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		var row struct{ ID uint }
		found, err := gw.FetchOne(ctx, &row, "SELECT id FROM users WHERE id = ?", 9)
		require.NoError(t, err)
		assert.False(t, found)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver error is wrapped", func(t *testing.T) {
		gw, mock := newMockGateway(t)
		boom := errors.New("connection reset")
		mock.ExpectQuery("SELECT").WillReturnError(boom)

		var row struct{ ID uint }
		_, err := gw.FetchOne(ctx, &row, "SELECT id FROM users")
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
	})
}

func TestGateway_FetchAllAndColumn(t *testing.T) {
	ctx := context.Background()
	gw, mock := newMockGateway(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT stars, total FROM dist WHERE business_id = $1")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"stars", "total"}).AddRow(5, 2).AddRow(4, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM reviews")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	var rows []struct {
		Stars int
		Total int64
	}
	require.NoError(t, gw.FetchAll(ctx, &rows, "SELECT stars, total FROM dist WHERE business_id = ?", 3))
	require.Len(t, rows, 2)
	assert.Equal(t, 5, rows[0].Stars)
	assert.Equal(t, int64(2), rows[0].Total)

	var count int64
	found, err := gw.FetchColumn(ctx, &count, "SELECT COUNT(*) FROM reviews")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(3), count)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGateway_ExecAndInsert(t *testing.T) {
	ctx := context.Background()
	gw, mock := newMockGateway(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE reviews SET status = $1 WHERE id = $2")).
		WithArgs("approved", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO business_categories (name, slug) VALUES ($1, $2) RETURNING id")).
		WithArgs("Plumbing", "plumbing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))

	affected, err := gw.Exec(ctx, "UPDATE reviews SET status = ? WHERE id = ?", "approved", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	id, err := gw.InsertReturningID(ctx, "INSERT INTO business_categories (name, slug) VALUES (?, ?) RETURNING id", "Plumbing", "plumbing")
	require.NoError(t, err)
	assert.Equal(t, uint(12), id)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGateway_WithTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		gw, mock := newMockGateway(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO accreditation_history").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err := gw.WithTransaction(ctx, func(txCtx context.Context) error {
			_, err := gw.Exec(txCtx, "INSERT INTO accreditation_history (accreditation_id) VALUES (?)", 1)
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		gw, mock := newMockGateway(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE business_profiles").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		failure := errors.New("history insert failed")
		err := gw.WithTransaction(ctx, func(txCtx context.Context) error {
			if _, err := gw.Exec(txCtx, "UPDATE business_profiles SET accreditation_level = ? WHERE id = ?", "basic", 1); err != nil {
				return err
			}
			return failure
		})
		assert.ErrorIs(t, err, failure)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		gw, mock := newMockGateway(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := gw.WithTransaction(ctx, func(context.Context) error {
			panic("unexpected")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panic in transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested call joins outer transaction", func(t *testing.T) {
		gw, mock := newMockGateway(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		var inner context.Context
		err := gw.WithTransaction(ctx, func(outer context.Context) error {
			return gw.WithTransaction(outer, func(txCtx context.Context) error {
				inner = txCtx
				return nil
			})
		})
		require.NoError(t, err)
		assert.NotNil(t, inner.Value(TxContextKey))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGateway_ManualTransaction(t *testing.T) {
	ctx := context.Background()
	gw, mock := newMockGateway(t)

	assert.ErrorIs(t, gw.Commit(ctx), ErrNoTransaction)
	assert.ErrorIs(t, gw.Rollback(ctx), ErrNoTransaction)

	mock.ExpectBegin()
	mock.ExpectRollback()

	txCtx, err := gw.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, gw.Rollback(txCtx))
	assert.NoError(t, mock.ExpectationsWereMet())
}
