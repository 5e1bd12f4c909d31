package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// Store is the narrow transactional API over products, cart lines and orders.
// Every method is exactly one database transaction.
type Store interface {
	SearchProducts(ctx context.Context, q SearchQuery) ([]SearchHit, error)
	AddCartLine(ctx context.Context, userID, productID int64, quantity int) (CartChange, error)
	RemoveCartLine(ctx context.Context, userID, productID int64, quantity int) (CartChange, error)
	GetCart(ctx context.Context, userID int64) (Cart, error)
	PlaceOrder(ctx context.Context, userID int64) (Order, error)
	ListOrders(ctx context.Context, userID int64) ([]Order, error)
	CancelOrder(ctx context.Context, userID, orderID int64) (Order, error)
}

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

type Option func(*BunStore)

func WithClock(now func() time.Time) Option {
	return func(s *BunStore) {
		if now != nil {
			s.now = now
		}
	}
}

// BunStore implements Store on bun. Row locks are taken on Postgres; SQLite
// relies on its single-writer connection.
type BunStore struct {
	db       *bun.DB
	lockRows bool
	now      func() time.Time
}

var _ Store = (*BunStore)(nil)

func New(db *bun.DB, opts ...Option) (*BunStore, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	s := &BunStore{
		db:       db,
		lockRows: db.Dialect().Name() == dialect.PG,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *BunStore) inTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, fn)
}

// forUpdate adds a row lock where the dialect supports it.
func (s *BunStore) forUpdate(q *bun.SelectQuery) *bun.SelectQuery {
	if s.lockRows {
		return q.For("UPDATE")
	}
	return q
}

func (s *BunStore) timestamp() time.Time {
	return s.now().UTC()
}

func wrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("store %s: %w", op, err)
}
