package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrProductNotFound covers both a genuinely absent id and an id owned by a
// different user. The two cases must stay indistinguishable to callers.
var ErrProductNotFound = errors.New("product not found")

// Product is a catalog item owned by exactly one user.
type Product struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductInput carries the validated fields for a create.
type ProductInput struct {
	Name        string
	Description string
	Price       float64
	Category    string
	Stock       int
}

// ProductPatch carries a partial update; nil fields are left untouched.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *float64
	Category    *string
	Stock       *int
}

// SearchFilter narrows a search within the caller's own products.
type SearchFilter struct {
	Keyword  string
	Category string
	MinPrice *float64
	MaxPrice *float64
}

// ProductRepository defines tenant-scoped persistence for products. Every
// operation takes the owner id and never touches rows of other owners;
// update and delete are single filtered statements, not read-then-write.
type ProductRepository interface {
	Create(ctx context.Context, ownerID string, in ProductInput) (*Product, error)
	Get(ctx context.Context, ownerID, id string) (*Product, error)
	List(ctx context.Context, ownerID string, page, limit int) ([]Product, error)
	Search(ctx context.Context, ownerID string, f SearchFilter) ([]Product, error)
	Update(ctx context.Context, ownerID, id string, patch ProductPatch) (*Product, error)
	Delete(ctx context.Context, ownerID, id string) error
}

const productColumns = `id, user_id, name, description, price, category, stock, created_at, updated_at`

// PgProductRepository implements ProductRepository using pgxpool.
type PgProductRepository struct {
	db *pgxpool.Pool
}

func NewPgProductRepository(db *pgxpool.Pool) *PgProductRepository {
	return &PgProductRepository{db: db}
}

func (r *PgProductRepository) Create(ctx context.Context, ownerID string, in ProductInput) (*Product, error) {
	const q = `
INSERT INTO products (id, user_id, name, description, price, category, stock)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at, updated_at`
	p := Product{
		ID:          uuid.NewString(),
		UserID:      ownerID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Stock:       in.Stock,
	}
	if err := r.db.QueryRow(ctx, q, p.ID, p.UserID, p.Name, p.Description, p.Price, p.Category, p.Stock).
		Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PgProductRepository) Get(ctx context.Context, ownerID, id string) (*Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id=$1 AND user_id=$2`
	return scanProduct(r.db.QueryRow(ctx, q, id, ownerID))
}

func (r *PgProductRepository) List(ctx context.Context, ownerID string, page, limit int) ([]Product, error) {
	if page <= 0 || limit <= 0 {
		return nil, errors.New("invalid pagination")
	}
	q := `SELECT ` + productColumns + `
FROM products
WHERE user_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, q, ownerID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows, limit)
}

func (r *PgProductRepository) Search(ctx context.Context, ownerID string, f SearchFilter) ([]Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE user_id=$1`
	args := []any{ownerID}
	if f.Keyword != "" {
		args = append(args, "%"+f.Keyword+"%")
		q += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		q += fmt.Sprintf(" AND category=$%d", len(args))
	}
	if f.MinPrice != nil {
		args = append(args, *f.MinPrice)
		q += fmt.Sprintf(" AND price >= $%d", len(args))
	}
	if f.MaxPrice != nil {
		args = append(args, *f.MaxPrice)
		q += fmt.Sprintf(" AND price <= $%d", len(args))
	}
	q += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows, 16)
}

func (r *PgProductRepository) Update(ctx context.Context, ownerID, id string, patch ProductPatch) (*Product, error) {
	// One atomic filtered update: absent patch fields pass NULL and COALESCE
	// keeps the stored value. Ownership is part of the WHERE clause, so a
	// cross-tenant id reports not-found exactly like a missing one.
	const q = `
UPDATE products
SET name=COALESCE($1, name),
    description=COALESCE($2, description),
    price=COALESCE($3, price),
    category=COALESCE($4, category),
    stock=COALESCE($5, stock),
    updated_at=now()
WHERE id=$6 AND user_id=$7
RETURNING ` + productColumns
	return scanProduct(r.db.QueryRow(ctx, q,
		patch.Name, patch.Description, patch.Price, patch.Category, patch.Stock, id, ownerID))
}

func (r *PgProductRepository) Delete(ctx context.Context, ownerID, id string) error {
	const q = `DELETE FROM products WHERE id=$1 AND user_id=$2`
	tag, err := r.db.Exec(ctx, q, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func collectProducts(rows pgx.Rows, sizeHint int) ([]Product, error) {
	defer rows.Close()
	items := make([]Product, 0, sizeHint)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
