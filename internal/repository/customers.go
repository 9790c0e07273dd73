package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/google/uuid"
)

const customerColumns = `id, phone, name, login_count, is_active, created_at, last_login`

func scanCustomer(row scanner) (*domain.Customer, error) {
	c := &domain.Customer{}
	if err := row.Scan(&c.ID, &c.Phone, &c.Name, &c.LoginCount, &c.IsActive, &c.CreatedAt, &c.LastLoginAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Repository) GetCustomer(ctx context.Context, phone string) (*domain.Customer, error) {
	c, err := scanCustomer(r.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE phone = $1`, phone))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query customer: %w", err)
	}
	return c, nil
}

func (r *Repository) RecordLogin(ctx context.Context, phone, name string, at time.Time) (*domain.Customer, bool, error) {
	query := `INSERT INTO customers (` + customerColumns + `)
	          VALUES ($1, $2, $3, 1, $4, $5, $5)
	          ON CONFLICT (phone) DO UPDATE
	          SET login_count = customers.login_count + 1, last_login = excluded.last_login
	          RETURNING ` + customerColumns

	c, err := scanCustomer(r.db.QueryRowContext(ctx, query, uuid.NewString(), phone, name, true, at))
	if err != nil {
		return nil, false, fmt.Errorf("record login: %w", err)
	}
	return c, c.LoginCount == 1, nil
}

func (r *Repository) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	var out []*domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func (r *Repository) ListAddresses(ctx context.Context, phone string) ([]*domain.Address, error) {
	query := `SELECT id, user_phone, name, phone, address_line, landmark, area, pincode, address_type, created_at
	          FROM addresses WHERE user_phone = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, phone)
	if err != nil {
		return nil, fmt.Errorf("query addresses: %w", err)
	}
	defer rows.Close()

	var out []*domain.Address
	for rows.Next() {
		a := &domain.Address{}
		if err := rows.Scan(&a.ID, &a.UserPhone, &a.Name, &a.Phone, &a.AddressLine, &a.Landmark,
			&a.Area, &a.Pincode, &a.AddressType, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func (r *Repository) CreateAddress(ctx context.Context, a *domain.Address) error {
	query := `INSERT INTO addresses (id, user_phone, name, phone, address_line, landmark, area, pincode, address_type, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query, a.ID, a.UserPhone, a.Name, a.Phone, a.AddressLine,
		a.Landmark, a.Area, a.Pincode, a.AddressType, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert address: %w", err)
	}
	return nil
}
