package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

// PlaceOrder converts the user's cart into a pending order. Stock is checked
// for every line before anything is written; a failing line aborts the whole
// transaction and leaves cart and stock untouched.
func (s *BunStore) PlaceOrder(ctx context.Context, userID int64) (Order, error) {
	var order Order
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var lines []CartLine
		err := tx.NewSelect().
			Model(&lines).
			Where("cl.user_id = ?", userID).
			OrderExpr("cl.product_id ASC").
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		ids := make([]int64, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.ProductID)
		}
		var products []Product
		q := tx.NewSelect().
			Model(&products).
			Where("p.id IN (?)", bun.In(ids)).
			OrderExpr("p.id ASC")
		if err := s.forUpdate(q).Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		byID := make(map[int64]Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		for _, l := range lines {
			p, ok := byID[l.ProductID]
			if !ok || !p.ForSale {
				return notFound("product", l.ProductID)
			}
			if l.Quantity > p.Stock {
				return &StockError{ProductID: p.ID, Name: p.Name, Requested: l.Quantity, Available: p.Stock}
			}
		}

		now := s.timestamp()
		order = Order{UserID: userID, Status: OrderPending, CreatedAt: now, UpdatedAt: now}
		for _, l := range lines {
			p := byID[l.ProductID]
			order.TotalCents += p.PriceCents * int64(l.Quantity)
			order.Lines = append(order.Lines, &OrderLine{
				ProductID:  p.ID,
				Name:       p.Name,
				Quantity:   l.Quantity,
				PriceCents: p.PriceCents,
			})
			if err := adjustStock(ctx, tx, p.ID, -l.Quantity); err != nil {
				return err
			}
		}

		if _, err := tx.NewInsert().Model(&order).Exec(ctx); err != nil {
			return err
		}
		for _, ol := range order.Lines {
			ol.OrderID = order.ID
		}
		if _, err := tx.NewInsert().Model(&order.Lines).Exec(ctx); err != nil {
			return err
		}
		_, err = tx.NewDelete().
			Model((*CartLine)(nil)).
			Where("user_id = ?", userID).
			Exec(ctx)
		return err
	})
	if err != nil {
		return Order{}, classify("place order", err)
	}
	return order, nil
}

// ListOrders returns the user's orders newest first, lines included.
func (s *BunStore) ListOrders(ctx context.Context, userID int64) ([]Order, error) {
	var orders []Order
	err := s.db.NewSelect().
		Model(&orders).
		Relation("Lines", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("ol.product_id ASC")
		}).
		Where("o.user_id = ?", userID).
		OrderExpr("o.created_at DESC, o.id DESC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, wrapStore("list orders", err)
	}
	return orders, nil
}

// CancelOrder moves an order to cancelled and puts its units back in stock,
// both in one transaction. Orders of other users are reported as not found.
func (s *BunStore) CancelOrder(ctx context.Context, userID, orderID int64) (Order, error) {
	var order Order
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewSelect().
			Model(&order).
			Relation("Lines").
			Where("o.id = ?", orderID).
			Where("o.user_id = ?", userID)
		if err := s.forUpdate(q).Scan(ctx); err != nil {
			return mapNoRows(err, notFound("order", orderID))
		}
		if order.Status.Final() {
			return fmt.Errorf("%w: order %d is already %s", ErrInvalidState, order.ID, order.Status)
		}

		for _, ol := range order.Lines {
			if err := adjustStock(ctx, tx, ol.ProductID, ol.Quantity); err != nil {
				return err
			}
		}

		order.Status = OrderCancelled
		order.UpdatedAt = s.timestamp()
		_, err := tx.NewUpdate().
			Model(&order).
			Column("status", "updated_at").
			WherePK().
			Exec(ctx)
		return err
	})
	if err != nil {
		return Order{}, classify("cancel order", err)
	}
	return order, nil
}

// adjustStock adds delta to stock and subtracts it from units sold.
func adjustStock(ctx context.Context, tx bun.Tx, productID int64, delta int) error {
	_, err := tx.NewUpdate().
		Model((*Product)(nil)).
		Set("stock = stock + ?", delta).
		Set("units_sold = units_sold - ?", delta).
		Where("id = ?", productID).
		Exec(ctx)
	return err
}
