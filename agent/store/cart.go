package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
)

// AddCartLine increments the user's line for productID, inserting it when
// absent. The requested quantity is checked against the product's stock.
func (s *BunStore) AddCartLine(ctx context.Context, userID, productID int64, quantity int) (CartChange, error) {
	var change CartChange
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var p Product
		q := tx.NewSelect().Model(&p).Where("p.id = ?", productID)
		if err := s.forUpdate(q).Scan(ctx); err != nil {
			return mapNoRows(err, notFound("product", productID))
		}
		if !p.ForSale {
			return notFound("product", productID)
		}
		if quantity > p.Stock {
			return &StockError{ProductID: p.ID, Name: p.Name, Requested: quantity, Available: p.Stock}
		}

		now := s.timestamp()
		var line CartLine
		err := tx.NewSelect().
			Model(&line).
			Where("cl.user_id = ?", userID).
			Where("cl.product_id = ?", productID).
			Scan(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			line = CartLine{UserID: userID, ProductID: productID, Quantity: quantity, UpdatedAt: now}
			if _, err := tx.NewInsert().Model(&line).Exec(ctx); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			line.Quantity += quantity
			line.UpdatedAt = now
			if _, err := tx.NewUpdate().Model(&line).Column("quantity", "updated_at").WherePK().Exec(ctx); err != nil {
				return err
			}
		}

		change = CartChange{ProductID: p.ID, Name: p.Name, Delta: quantity, Quantity: line.Quantity}
		return nil
	})
	if err != nil {
		return CartChange{}, classify("add cart line", err)
	}
	return change, nil
}

// RemoveCartLine decrements the user's line for productID. A line that
// reaches zero is deleted, and a quantity of zero or less deletes it outright.
func (s *BunStore) RemoveCartLine(ctx context.Context, userID, productID int64, quantity int) (CartChange, error) {
	var change CartChange
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var line CartLine
		err := tx.NewSelect().
			Model(&line).
			Relation("Product").
			Where("cl.user_id = ?", userID).
			Where("cl.product_id = ?", productID).
			Scan(ctx)
		if err != nil {
			return mapNoRows(err, notFound("cart line for product", productID))
		}

		name := ""
		if line.Product != nil {
			name = line.Product.Name
		}
		removed := line.Quantity
		line.Quantity -= quantity
		if quantity <= 0 || line.Quantity <= 0 {
			if _, err := tx.NewDelete().Model(&line).WherePK().Exec(ctx); err != nil {
				return err
			}
			change = CartChange{ProductID: productID, Name: name, Delta: -removed, Quantity: 0, Removed: true}
			return nil
		}

		line.UpdatedAt = s.timestamp()
		if _, err := tx.NewUpdate().Model(&line).Column("quantity", "updated_at").WherePK().Exec(ctx); err != nil {
			return err
		}
		change = CartChange{ProductID: productID, Name: name, Delta: -quantity, Quantity: line.Quantity}
		return nil
	})
	if err != nil {
		return CartChange{}, classify("remove cart line", err)
	}
	return change, nil
}

// GetCart returns the user's lines with product name, unit price and line
// subtotal resolved. An empty cart is not an error.
func (s *BunStore) GetCart(ctx context.Context, userID int64) (Cart, error) {
	var lines []CartLine
	err := s.db.NewSelect().
		Model(&lines).
		Relation("Product").
		Where("cl.user_id = ?", userID).
		OrderExpr("cl.product_id ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Cart{}, wrapStore("get cart", err)
	}

	cart := Cart{UserID: userID, Items: make([]CartItem, 0, len(lines))}
	for _, l := range lines {
		item := CartItem{ProductID: l.ProductID, Quantity: l.Quantity}
		if l.Product != nil {
			item.Name = l.Product.Name
			item.PriceCents = l.Product.PriceCents
		}
		item.SubtotalCents = item.PriceCents * int64(item.Quantity)
		cart.SubtotalCents += item.SubtotalCents
		cart.Items = append(cart.Items, item)
	}
	return cart, nil
}

// classify keeps domain errors unwrapped so callers can match them and wraps
// everything else as a store failure.
func classify(op string, err error) error {
	var stock *StockError
	switch {
	case errors.As(err, &stock),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrAlreadyExists),
		errors.Is(err, ErrInvalidState):
		return err
	default:
		return wrapStore(op, err)
	}
}
