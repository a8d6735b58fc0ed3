package store

import (
	"context"
	"time"

	"github.com/matheus3301/msana/internal/errs"
	"github.com/matheus3301/msana/internal/model"
)

// ReplaceProducts swaps the cached catalog for products in one transaction.
func (db *DB) ReplaceProducts(ctx context.Context, products []model.Product) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Storage("begin products tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return errs.Storage("clear products", err)
	}
	now := time.Now().UnixMilli()
	for _, p := range products {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO products (id, name, stock, selling_price, gst, cached_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				stock = excluded.stock,
				selling_price = excluded.selling_price,
				gst = excluded.gst,
				cached_at = excluded.cached_at`,
			p.ID, p.Name, p.Stock, p.SellingPrice, p.GST, now); err != nil {
			return errs.Storage("cache product", err)
		}
	}
	return errs.Storage("commit products", tx.Commit())
}

// Products returns the cached catalog sorted by name.
func (db *DB) Products(ctx context.Context) ([]model.Product, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, stock, selling_price, gst FROM products ORDER BY name ASC`)
	if err != nil {
		return nil, errs.Storage("list products", err)
	}
	defer func() { _ = rows.Close() }()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Stock, &p.SellingPrice, &p.GST); err != nil {
			return nil, errs.Storage("scan product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage("list products", err)
	}
	return products, nil
}
