package checkout

import (
	"context"
	"time"

	"github.com/phenomboxing/storefront/pkg/db/models"
	"github.com/phenomboxing/storefront/pkg/enums"
	"gorm.io/gorm"
)

// Repository persists orders created at checkout.
type Repository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByExternalReference(ctx context.Context, ref string) (*models.Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID string, expected enums.OrderStatus, update PaymentUpdate) (bool, error)
}

// PaymentUpdate carries the gateway outcome applied to an order.
type PaymentUpdate struct {
	PaymentID     string
	PaymentStatus string
	Status        enums.OrderStatus
	PaidAt        *time.Time
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

// Create inserts the order together with its line items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByExternalReference(ctx context.Context, ref string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&order, "external_reference = ?", ref).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdatePaymentStatus applies update only while the order still holds the
// expected status. It reports whether a row changed.
func (r *repository) UpdatePaymentStatus(ctx context.Context, orderID string, expected enums.OrderStatus, update PaymentUpdate) (bool, error) {
	values := map[string]any{
		"payment_id":     update.PaymentID,
		"payment_status": update.PaymentStatus,
		"status":         update.Status,
		"updated_at":     time.Now().UTC(),
	}
	if update.PaidAt != nil {
		values["paid_at"] = *update.PaidAt
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, expected).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
