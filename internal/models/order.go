package models

import "time"

// OrderStatus represents the purchase order lifecycle. The ledger only ever
// consumes confirmed orders.
type OrderStatus string

// Possible order statuses.
const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// OrderItemType classifies line items; only enrollment items feed the ledger.
type OrderItemType string

// Possible order item types.
const (
	OrderItemTypeEnrollment OrderItemType = "ENROLLMENT"
	OrderItemTypeMaterial   OrderItemType = "MATERIAL"
)

// Order is a read-only view of a purchase order owned by the order subsystem.
type Order struct {
	ID          string      `db:"id" json:"id"`
	StudentID   string      `db:"student_id" json:"student_id"`
	ContactID   *string     `db:"contact_id" json:"contact_id,omitempty"`
	Status      OrderStatus `db:"status" json:"status"`
	Source      string      `db:"source" json:"source"`
	ConfirmedAt *time.Time  `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// OrderItem is a read-only purchase order line item.
type OrderItem struct {
	ID           string        `db:"id" json:"id"`
	OrderID      string        `db:"order_id" json:"order_id"`
	ItemType     OrderItemType `db:"item_type" json:"item_type"`
	CourseID     string        `db:"course_id" json:"course_id"`
	PackageID    *string       `db:"package_id" json:"package_id,omitempty"`
	Quantity     int           `db:"quantity" json:"quantity"`
	SessionCount int           `db:"session_count" json:"session_count"`
	ValidityDays *int          `db:"validity_days" json:"validity_days,omitempty"`
}
