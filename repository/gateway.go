package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNoTransaction is returned by Commit/Rollback when ctx carries no transaction
var ErrNoTransaction = errors.New("no transaction bound to context")

// Transactor runs a function inside one database transaction
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}

// Gateway is the raw parameterized-SQL contract shared by every repository.
// Values are always passed as bind arguments, never formatted into the query.
type Gateway interface {
	Transactor
	FetchOne(ctx context.Context, dest any, query string, args ...any) (bool, error)
	FetchAll(ctx context.Context, dest any, query string, args ...any) error
	FetchColumn(ctx context.Context, dest any, query string, args ...any) (bool, error)
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	InsertReturningID(ctx context.Context, query string, args ...any) (uint, error)
	Begin(ctx context.Context) (context.Context, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// GormGateway implements Gateway over a gorm connection pool
type GormGateway struct {
	db *gorm.DB
}

// NewGateway creates a gateway bound to db
func NewGateway(db *gorm.DB) *GormGateway {
	return &GormGateway{db: db}
}

func (g *GormGateway) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, g.db).WithContext(ctx)
}

// FetchOne scans the first row into dest and reports whether a row existed
func (g *GormGateway) FetchOne(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	res := g.conn(ctx).Raw(query, args...).Scan(dest)
	if res.Error != nil {
		return false, fmt.Errorf("fetch one: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// FetchAll scans every row into dest, which must be a pointer to a slice
func (g *GormGateway) FetchAll(ctx context.Context, dest any, query string, args ...any) error {
	if err := g.conn(ctx).Raw(query, args...).Scan(dest).Error; err != nil {
		return fmt.Errorf("fetch all: %w", err)
	}
	return nil
}

// FetchColumn scans a single scalar into dest and reports whether a row existed
func (g *GormGateway) FetchColumn(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	res := g.conn(ctx).Raw(query, args...).Scan(dest)
	if res.Error != nil {
		return false, fmt.Errorf("fetch column: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Exec runs a statement and returns the affected row count
func (g *GormGateway) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res := g.conn(ctx).Exec(query, args...)
	if res.Error != nil {
		return 0, fmt.Errorf("exec: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// InsertReturningID runs an INSERT ... RETURNING id and returns the new id
func (g *GormGateway) InsertReturningID(ctx context.Context, query string, args ...any) (uint, error) {
	var id uint
	res := g.conn(ctx).Raw(query, args...).Scan(&id)
	if res.Error != nil {
		return 0, fmt.Errorf("insert: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("insert: no id returned")
	}
	return id, nil
}

// Begin opens a transaction and returns a context carrying it
func (g *GormGateway) Begin(ctx context.Context) (context.Context, error) {
	tx := g.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return ctx, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	return context.WithValue(ctx, TxContextKey, tx), nil
}

// Commit commits the transaction carried by ctx
func (g *GormGateway) Commit(ctx context.Context) error {
	tx, ok := ctx.Value(TxContextKey).(*gorm.DB)
	if !ok || tx == nil {
		return ErrNoTransaction
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback aborts the transaction carried by ctx
func (g *GormGateway) Rollback(ctx context.Context) error {
	tx, ok := ctx.Value(TxContextKey).(*gorm.DB)
	if !ok || tx == nil {
		return ErrNoTransaction
	}
	if err := tx.Rollback().Error; err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// WithTransaction runs fn in a transaction bound to the returned context
func (g *GormGateway) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	return WithTransaction(ctx, g.db, fn)
}
