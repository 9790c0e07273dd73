package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/freshveggie/veggie-api/internal/domain"
)

const categoryColumns = `id, name, description, icon, color, image_url, display_order, is_active, created_at, updated_at`

const bannerColumns = `id, title, description, image_url, link_url, display_order, is_active, created_at, updated_at`

func scanCategory(row scanner) (*domain.Category, error) {
	c := &domain.Category{}
	var imageURL sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.Color, &imageURL,
		&c.DisplayOrder, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ImageURL = imageURL.String
	return c, nil
}

func scanBanner(row scanner) (*domain.Banner, error) {
	b := &domain.Banner{}
	var imageURL sql.NullString
	if err := row.Scan(&b.ID, &b.Title, &b.Description, &imageURL, &b.LinkURL,
		&b.DisplayOrder, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.ImageURL = imageURL.String
	return b, nil
}

func (r *Repository) ListCategories(ctx context.Context, activeOnly bool) ([]*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	var args []any
	if activeOnly {
		query += ` WHERE is_active = $1`
		args = append(args, true)
	}
	query += ` ORDER BY display_order, name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []*domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func (r *Repository) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query category: %w", err)
	}
	return c, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c *domain.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (`+categoryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.Name, c.Description, c.Icon, c.Color, nullString(c.ImageURL),
		c.DisplayOrder, c.IsActive, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *Repository) UpdateCategory(ctx context.Context, c *domain.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = $1, description = $2, icon = $3, color = $4, image_url = $5,
		 display_order = $6, is_active = $7, updated_at = $8 WHERE id = $9`,
		c.Name, c.Description, c.Icon, c.Color, nullString(c.ImageURL),
		c.DisplayOrder, c.IsActive, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return expectOne(res, domain.ErrCategoryNotFound)
}

func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return expectOne(res, domain.ErrCategoryNotFound)
}

func (r *Repository) ListBanners(ctx context.Context, activeOnly bool) ([]*domain.Banner, error) {
	query := `SELECT ` + bannerColumns + ` FROM banners`
	var args []any
	if activeOnly {
		query += ` WHERE is_active = $1`
		args = append(args, true)
	}
	query += ` ORDER BY display_order, title`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query banners: %w", err)
	}
	defer rows.Close()

	var out []*domain.Banner
	for rows.Next() {
		b, err := scanBanner(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan banner: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func (r *Repository) GetBanner(ctx context.Context, id string) (*domain.Banner, error) {
	b, err := scanBanner(r.db.QueryRowContext(ctx, `SELECT `+bannerColumns+` FROM banners WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBannerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query banner: %w", err)
	}
	return b, nil
}

func (r *Repository) CreateBanner(ctx context.Context, b *domain.Banner) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO banners (`+bannerColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.Title, b.Description, nullString(b.ImageURL), b.LinkURL,
		b.DisplayOrder, b.IsActive, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert banner: %w", err)
	}
	return nil
}

func (r *Repository) UpdateBanner(ctx context.Context, b *domain.Banner) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE banners SET title = $1, description = $2, image_url = $3, link_url = $4,
		 display_order = $5, is_active = $6, updated_at = $7 WHERE id = $8`,
		b.Title, b.Description, nullString(b.ImageURL), b.LinkURL,
		b.DisplayOrder, b.IsActive, b.UpdatedAt, b.ID)
	if err != nil {
		return fmt.Errorf("update banner: %w", err)
	}
	return expectOne(res, domain.ErrBannerNotFound)
}

func (r *Repository) DeleteBanner(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM banners WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete banner: %w", err)
	}
	return expectOne(res, domain.ErrBannerNotFound)
}

// SetImageURL points the entity's image at url; an empty url clears it.
func (r *Repository) SetImageURL(ctx context.Context, kind domain.ImageKind, id, url string) error {
	var table string
	var notFound error
	switch kind {
	case domain.ImageKindProduct:
		table, notFound = "products", domain.ErrProductNotFound
	case domain.ImageKindCategory:
		table, notFound = "categories", domain.ErrCategoryNotFound
	case domain.ImageKindBanner:
		table, notFound = "banners", domain.ErrBannerNotFound
	default:
		return fmt.Errorf("unknown image kind %q", kind)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE `+table+` SET image_url = $1, updated_at = $2 WHERE id = $3`,
		nullString(url), now(), id)
	if err != nil {
		return fmt.Errorf("update %s image: %w", table, err)
	}
	return expectOne(res, notFound)
}
