package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresRepository stores products in the `products` table.
type PostgresRepository struct {
	db *sql.DB
}

var _ Repository = (*PostgresRepository)(nil)

const (
	createProductsTable = `
		CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (price >= 0),
			category TEXT NOT NULL DEFAULT '',
			stock_quantity INT NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0)
		)
	`
	listProductsQuery = `
		SELECT id, name, description, price, category, stock_quantity
		FROM products
		ORDER BY id
	`
	getProductByIDQuery = `
		SELECT id, name, description, price, category, stock_quantity
		FROM products
		WHERE id = $1
	`
	insertProductQuery = `
		INSERT INTO products (name, description, price, category, stock_quantity)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`
	updateProductQuery = `
		UPDATE products
		SET name = $1,
			description = $2,
			price = $3,
			category = $4,
			stock_quantity = $5
		WHERE id = $6
	`
	deleteProductQuery    = `DELETE FROM products WHERE id = $1`
	truncateProductsQuery = `TRUNCATE products RESTART IDENTITY`
	insertSeedQuery       = `
		INSERT INTO products (name, description, price, category, stock_quantity)
		VALUES ($1,$2,$3,$4,$5)
	`
)

// check_violation, raised by the price / stock_quantity constraints.
const pgCheckViolation = "23514"

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the products table when it does not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createProductsTable); err != nil {
		return fmt.Errorf("create products table: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, listProductsQuery)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, getProductByIDQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p Product) (Product, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, insertProductQuery,
		p.Name, p.Description, p.Price, p.Category, p.StockQuantity,
	).Scan(&id)
	if err != nil {
		return Product{}, mapWriteError("insert product", err)
	}
	p.ID = id
	return p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id int64, p Product) (Product, error) {
	res, err := r.db.ExecContext(ctx, updateProductQuery,
		p.Name, p.Description, p.Price, p.Category, p.StockQuantity, id,
	)
	if err != nil {
		return Product{}, mapWriteError("update product", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Product{}, err
	}
	if n == 0 {
		return Product{}, ErrNotFound
	}
	p.ID = id
	return p, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteProductQuery, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Reset truncates the table and inserts products in order. Ids are reassigned
// by the sequence, so ids carried by the input are not preserved.
func (r *PostgresRepository) Reset(ctx context.Context, products []Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, truncateProductsQuery); err != nil {
		return fmt.Errorf("truncate products: %w", err)
	}
	for _, p := range products {
		if _, err := tx.ExecContext(ctx, insertSeedQuery,
			p.Name, p.Description, p.Price, p.Category, p.StockQuantity,
		); err != nil {
			return mapWriteError("seed product", err)
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.StockQuantity)
	return p, err
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
		return fmt.Errorf("%s: %w: %s", op, ErrInvalid, pgErr.ConstraintName)
	}
	return fmt.Errorf("%s: %w", op, err)
}
