package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tuition-credit-api/internal/models"
)

// OrderRepository reads purchase orders owned by the order subsystem. The
// ledger never writes here.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository constructs the repository.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// FindByID returns an order by its ID.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	const query = `SELECT id, student_id, contact_id, status, source, confirmed_at, created_at FROM orders WHERE id = $1`
	var order models.Order
	if err := r.db.GetContext(ctx, &order, query, id); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListEnrollmentItems returns the enrollment-type line items of an order.
func (r *OrderRepository) ListEnrollmentItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	const query = `SELECT id, order_id, item_type, course_id, package_id, quantity, session_count, validity_days
        FROM order_items WHERE order_id = $1 AND item_type = $2 ORDER BY id`
	var items []models.OrderItem
	if err := r.db.SelectContext(ctx, &items, query, orderID, models.OrderItemTypeEnrollment); err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return items, nil
}
