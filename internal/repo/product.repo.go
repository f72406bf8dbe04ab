package repo

import (
	"context"
	"database/sql"
	"errors"
	"marketplace-checkout/internal/domain"
)

type ProductRepo interface {
	// LockByID reads the product row with an exclusive lock held until tx ends.
	// A missing product is (nil, nil).
	LockByID(ctx context.Context, tx *sql.Tx, id int64) (*domain.Product, error)
	DecrementStock(ctx context.Context, tx *sql.Tx, id int64, quantity int64) error
	IncrementStock(ctx context.Context, tx *sql.Tx, id int64, quantity int64) error
	FindById(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
	UpdateProduct(ctx context.Context, product *domain.Product) error
}

type productRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) ProductRepo {
	return &productRepo{db: db}
}

const productColumns = `id, name, price, stock, created_at, updated_at`

func scanProduct(row *sql.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) LockByID(ctx context.Context, tx *sql.Tx, id int64) (*domain.Product, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
	return scanProduct(row)
}

func (r *productRepo) DecrementStock(ctx context.Context, tx *sql.Tx, id int64, quantity int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1`, id, quantity)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *productRepo) IncrementStock(ctx context.Context, tx *sql.Tx, id int64, quantity int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`, id, quantity)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *productRepo) FindById(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func (r *productRepo) CreateProduct(ctx context.Context, product *domain.Product) error {
	return r.db.QueryRowContext(ctx,
		`INSERT INTO products (name, price, stock) VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`,
		product.Name, product.Price, product.Stock,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
}

func (r *productRepo) UpdateProduct(ctx context.Context, product *domain.Product) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET name = $2, price = $3, stock = $4, updated_at = now() WHERE id = $1`,
		product.ID, product.Name, product.Price, product.Stock,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return sql.ErrNoRows
	}
	return nil
}
