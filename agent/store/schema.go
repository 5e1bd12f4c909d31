package store

import (
	"context"
	"fmt"
)

// CreateSchema creates the tables if they do not exist.
func (s *BunStore) CreateSchema(ctx context.Context) error {
	models := []any{
		(*Product)(nil),
		(*CartLine)(nil),
		(*Order)(nil),
		(*OrderLine)(nil),
	}
	for _, m := range models {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}
	return nil
}

// InsertProducts stores products and fills in their ids.
func (s *BunStore) InsertProducts(ctx context.Context, products ...*Product) error {
	if len(products) == 0 {
		return nil
	}
	now := s.timestamp()
	for _, p := range products {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
	}
	_, err := s.db.NewInsert().Model(&products).Exec(ctx)
	return wrapStore("insert products", err)
}

// ProductByID reads a product outside of any tool transaction.
func (s *BunStore) ProductByID(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := s.db.NewSelect().Model(&p).Where("p.id = ?", id).Scan(ctx)
	if err != nil {
		return Product{}, mapNoRows(err, notFound("product", id))
	}
	return p, nil
}

// DemoCatalog is a small catalog for local runs.
func DemoCatalog() []*Product {
	return []*Product{
		{Name: "Red Runner Shoes", Brand: "Stride", Description: "Lightweight running shoes in red mesh", Attributes: map[string]string{"color": "red", "size": "42"}, PriceCents: 5999, Stock: 12, UnitsSold: 40, ForSale: true},
		{Name: "Trail Shoes", Brand: "Peak", Description: "Grippy trail shoes, red and black", Attributes: map[string]string{"color": "red/black"}, PriceCents: 8900, Stock: 5, UnitsSold: 75, ForSale: true},
		{Name: "Canvas Sneakers", Brand: "Redwood", Description: "Classic white canvas sneakers", Attributes: map[string]string{"color": "white"}, PriceCents: 3500, Stock: 30, UnitsSold: 12, ForSale: true},
		{Name: "Wireless Mouse", Brand: "Clicker", Description: "Ergonomic wireless mouse", Attributes: map[string]string{"dpi": "1600"}, PriceCents: 2499, Stock: 200, UnitsSold: 310, ForSale: true},
		{Name: "Gaming Laptop", Brand: "Volt", Description: "15 inch gaming laptop with RTX graphics", Attributes: map[string]string{"ram": "32GB"}, PriceCents: 129999, Stock: 3, UnitsSold: 8, ForSale: true},
		{Name: "Red Wool Scarf", Brand: "Knit Co", Description: "Warm merino wool scarf", Attributes: map[string]string{"color": "red"}, PriceCents: 2900, Stock: 1, UnitsSold: 4, ForSale: true},
	}
}
