package repository

import (
	"context"
	"errors"
	"time"

	"inquiry-backend/internal/order/domain"

	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	AddAttachment(ctx context.Context, attachment *domain.Attachment) error
	FindByID(ctx context.Context, id uint) (*domain.Order, error)
	FindDetailByID(ctx context.Context, id uint) (*domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error)
	UpdateFields(ctx context.Context, id uint, status, notes *string) (bool, error)
	FindAttachmentByKey(ctx context.Context, key string) (*domain.Attachment, error)

	SetPaymentMethod(ctx context.Context, id uint, method, merchantTradeNo string) error
	MarkPaid(ctx context.Context, id uint, tradeNo string, paidAt time.Time) (bool, error)
	FindPendingPayments(ctx context.Context, since time.Time, limit int) ([]domain.Order, error)
}

type gormOrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &gormOrderRepository{db: db}
}

func (r *gormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if order.Status == "" {
		order.Status = domain.StatusPending
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = domain.PaymentUnpaid
	}
	return r.db.WithContext(ctx).Omit("User", "Service", "Attachments").Create(order).Error
}

func (r *gormOrderRepository) AddAttachment(ctx context.Context, attachment *domain.Attachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

func (r *gormOrderRepository) FindByID(ctx context.Context, id uint) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// FindDetailByID loads the order with its service, owner and attachments.
func (r *gormOrderRepository) FindDetailByID(ctx context.Context, id uint) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).
		Preload("Service").
		Preload("User").
		Preload("Attachments").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *gormOrderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Order{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []domain.Order
	q := query.
		Preload("Service").
		Preload("User").
		Preload("Attachments").
		Order("created_at DESC, id DESC").
		Offset(filter.Offset())
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateFields applies the non-nil fields. It reports false when the order
// does not exist.
func (r *gormOrderRepository) UpdateFields(ctx context.Context, id uint, status, notes *string) (bool, error) {
	updates := map[string]interface{}{"updated_at": time.Now()}
	if status != nil {
		updates["status"] = *status
	}
	if notes != nil {
		updates["notes"] = *notes
	}

	res := r.db.WithContext(ctx).Model(&domain.Order{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormOrderRepository) FindAttachmentByKey(ctx context.Context, key string) (*domain.Attachment, error) {
	var a domain.Attachment
	err := r.db.WithContext(ctx).Where("file_url = ?", key).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *gormOrderRepository) SetPaymentMethod(ctx context.Context, id uint, method, merchantTradeNo string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payment_method":    method,
			"merchant_trade_no": merchantTradeNo,
			"updated_at":        time.Now(),
		}).Error
}

// MarkPaid moves an unpaid order to paid in a single conditional update.
// It reports false when the row was not unpaid at write time, which is how
// concurrent duplicate notifications are told apart.
func (r *gormOrderRepository) MarkPaid(ctx context.Context, id uint, tradeNo string, paidAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND payment_status = ?", id, domain.PaymentUnpaid).
		Updates(map[string]interface{}{
			"payment_status":   domain.PaymentPaid,
			"status":           domain.StatusPaid,
			"payment_trade_no": tradeNo,
			"payment_time":     paidAt,
			"updated_at":       paidAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FindPendingPayments returns unpaid orders that were sent to the gateway
// after since, oldest first.
func (r *gormOrderRepository) FindPendingPayments(ctx context.Context, since time.Time, limit int) ([]domain.Order, error) {
	var orders []domain.Order
	err := r.db.WithContext(ctx).
		Where("payment_status = ? AND merchant_trade_no IS NOT NULL AND merchant_trade_no <> '' AND updated_at >= ?", domain.PaymentUnpaid, since).
		Order("updated_at ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
