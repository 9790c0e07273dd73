package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/freshveggie/veggie-api/internal/domain"
	"github.com/google/uuid"
)

const orderCounter = "orders"

const orderColumns = `id, order_number, user_phone, customer_name, delivery_address, items, subtotal,
	delivery_charge, total_amount, delivery_slot, payment_method, special_instructions, status, created_at, updated_at`

func scanOrder(row scanner) (*domain.Order, error) {
	var o domain.Order
	var addressJSON, itemsJSON []byte
	var updatedAt sql.NullTime
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserPhone,
		&o.CustomerName,
		&addressJSON,
		&itemsJSON,
		&o.Subtotal,
		&o.DeliveryCharge,
		&o.TotalAmount,
		&o.DeliverySlot,
		&o.PaymentMethod,
		&o.SpecialInstructions,
		&o.Status,
		&o.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		o.UpdatedAt = &t
	}
	if err := json.Unmarshal(addressJSON, &o.DeliveryAddress); err != nil {
		return nil, fmt.Errorf("unmarshal delivery address: %w", err)
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	return &o, nil
}

func (r *Repository) PlaceOrder(ctx context.Context, order *domain.Order) error {
	addressJSON, err := json.Marshal(order.DeliveryAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery address: %w", err)
	}
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// guarded decrement: a concurrent checkout that drained the stock makes
	// the row miss and the whole order roll back
	stock := make([]domain.StockMovement, 0, len(order.Items))
	for _, item := range order.Items {
		res, err := tx.ExecContext(ctx,
			`UPDATE products SET stock_quantity = stock_quantity - $1, updated_at = $2
			 WHERE id = $3 AND stock_quantity >= $1`,
			item.Quantity, order.CreatedAt, item.ProductID)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		} else if n == 0 {
			return &domain.StockError{ProductName: item.ProductName}
		}
		stock = append(stock, domain.StockMovement{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	var seq int64
	err = tx.QueryRowContext(ctx,
		`UPDATE order_counters SET value = value + 1 WHERE name = $1 RETURNING value`, orderCounter).Scan(&seq)
	if err != nil {
		return fmt.Errorf("next order number: %w", err)
	}
	order.OrderNumber = fmt.Sprintf("VEG%04d", seq)

	query := `INSERT INTO orders (` + orderColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err = tx.ExecContext(ctx, query,
		order.ID,
		order.OrderNumber,
		order.UserPhone,
		order.CustomerName,
		string(addressJSON),
		string(itemsJSON),
		order.Subtotal,
		order.DeliveryCharge,
		order.TotalAmount,
		order.DeliverySlot,
		order.PaymentMethod,
		order.SpecialInstructions,
		order.Status,
		order.CreatedAt,
		nil)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	event := domain.OrderPlacedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CartID:      order.CartID,
		UserPhone:   order.UserPhone,
		TotalAmount: order.TotalAmount,
		Stock:       stock,
		PlacedAt:    order.CreatedAt,
	}
	if err := insertOutboxEvent(ctx, tx, order.ID, EventOrderPlaced, event, order.CreatedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

func (r *Repository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return r.getOrderBy(ctx, "id", id)
}

func (r *Repository) GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return r.getOrderBy(ctx, "order_number", number)
}

func (r *Repository) getOrderBy(ctx context.Context, column, value string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + column + ` = $1`

	o, err := scanOrder(r.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by %s: %w", column, err)
	}
	return o, nil
}

func (r *Repository) ListOrdersByPhone(ctx context.Context, phone string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_phone = $1 ORDER BY created_at DESC`
	return r.queryOrders(ctx, query, phone)
}

func (r *Repository) ListOrders(ctx context.Context, f OrderFilter) ([]*domain.Order, error) {
	var where []string
	var args []any
	if !f.Since.IsZero() {
		args = append(args, f.Since.UTC())
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !f.Until.IsZero() {
		args = append(args, f.Until.UTC())
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	return r.queryOrders(ctx, query, args...)
}

func (r *Repository) queryOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return orders, nil
}

func (r *Repository) UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, at, id, from)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE id = $1`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("query order: %w", err)
		}
		return ErrStatusConflict
	}

	event := domain.OrderStatusChangedEvent{OrderID: id, From: from, To: to, ChangedAt: at}
	if err := insertOutboxEvent(ctx, tx, id, EventOrderStatusChanged, event, at); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status update: %w", err)
	}
	return nil
}

func insertOutboxEvent(ctx context.Context, tx *sql.Tx, aggregateID, eventType string, payload any, at time.Time) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (id, aggregate_id, event_type, payload, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), aggregateID, eventType, string(data), at)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}
