package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/freshveggie/veggie-api/internal/domain"
)

const productColumns = `id, name, description, category_id, base_price, stock_quantity, is_active, featured,
	image_url, weight_options, unit_options, discount_percentage, created_at, updated_at`

func scanProduct(row scanner) (*domain.Product, error) {
	p := &domain.Product{}
	var imageURL sql.NullString
	var weights, units []byte
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.CategoryID,
		&p.BasePrice,
		&p.StockQuantity,
		&p.IsActive,
		&p.Featured,
		&imageURL,
		&weights,
		&units,
		&p.DiscountPercentage,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ImageURL = imageURL.String
	if err := json.Unmarshal(weights, &p.WeightOptions); err != nil {
		return nil, fmt.Errorf("unmarshal weight options: %w", err)
	}
	if err := json.Unmarshal(units, &p.UnitOptions); err != nil {
		return nil, fmt.Errorf("unmarshal unit options: %w", err)
	}
	return p, nil
}

func (r *Repository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return p, nil
}

// GetProductsByIDs returns the products that exist among ids, keyed by id.
// Missing ids are simply absent from the map.
func (r *Repository) GetProductsByIDs(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	out := make(map[string]*domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE id IN (` + placeholders(1, len(ids)) + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// ListProducts filters, sorts and pages products and also returns the number
// of products matching the filter before paging.
func (r *Repository) ListProducts(ctx context.Context, f ProductFilter) ([]*domain.Product, int, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ActiveOnly {
		where = append(where, "is_active = "+arg(true))
	}
	if f.CategoryID != "" {
		where = append(where, "category_id = "+arg(f.CategoryID))
	}
	if f.Featured != nil {
		where = append(where, "featured = "+arg(*f.Featured))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := arg("%" + strings.ToLower(s) + "%")
		where = append(where, fmt.Sprintf("(LOWER(name) LIKE %s OR LOWER(description) LIKE %s)", p, p))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := `SELECT ` + productColumns + ` FROM products` + clause + ` ORDER BY ` + productOrder(f.SortBy)
	if f.Limit > 0 {
		query += ` LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg(f.Skip)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}
	return products, total, nil
}

func productOrder(sortBy string) string {
	switch sortBy {
	case "price_low":
		return "base_price ASC, name ASC"
	case "price_high":
		return "base_price DESC, name ASC"
	case "popular":
		return "featured DESC, name ASC"
	case "newest":
		return "created_at DESC, name ASC"
	default:
		return "name ASC"
	}
}

func (r *Repository) CreateProduct(ctx context.Context, p *domain.Product) error {
	weights, units, err := productOptions(p)
	if err != nil {
		return err
	}

	query := `INSERT INTO products (` + productColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = r.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.CategoryID,
		p.BasePrice,
		p.StockQuantity,
		p.IsActive,
		p.Featured,
		nullString(p.ImageURL),
		weights,
		units,
		p.DiscountPercentage,
		p.CreatedAt,
		p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *Repository) UpdateProduct(ctx context.Context, p *domain.Product) error {
	weights, units, err := productOptions(p)
	if err != nil {
		return err
	}

	query := `UPDATE products SET name = $1, description = $2, category_id = $3, base_price = $4,
	          stock_quantity = $5, is_active = $6, featured = $7, image_url = $8, weight_options = $9,
	          unit_options = $10, discount_percentage = $11, updated_at = $12
	          WHERE id = $13`

	res, err := r.db.ExecContext(ctx, query,
		p.Name,
		p.Description,
		p.CategoryID,
		p.BasePrice,
		p.StockQuantity,
		p.IsActive,
		p.Featured,
		nullString(p.ImageURL),
		weights,
		units,
		p.DiscountPercentage,
		p.UpdatedAt,
		p.ID)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return expectOne(res, domain.ErrProductNotFound)
}

func (r *Repository) DeleteProduct(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return expectOne(res, domain.ErrProductNotFound)
}

func (r *Repository) UpdateStock(ctx context.Context, id string, quantity int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET stock_quantity = $1, updated_at = $2 WHERE id = $3`,
		quantity, now(), id)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	return expectOne(res, domain.ErrProductNotFound)
}

func (r *Repository) CountProductsInCategory(ctx context.Context, categoryID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE category_id = $1`, categoryID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count products in category: %w", err)
	}
	return n, nil
}

func productOptions(p *domain.Product) (string, string, error) {
	weights := p.WeightOptions
	if weights == nil {
		weights = domain.DefaultWeightOptions
	}
	units := p.UnitOptions
	if units == nil {
		units = domain.DefaultUnitOptions
	}
	w, err := json.Marshal(weights)
	if err != nil {
		return "", "", fmt.Errorf("marshal weight options: %w", err)
	}
	u, err := json.Marshal(units)
	if err != nil {
		return "", "", fmt.Errorf("marshal unit options: %w", err)
	}
	return string(w), string(u), nil
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
