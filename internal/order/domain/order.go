package domain

import (
	"errors"
	"time"

	authdomain "inquiry-backend/internal/auth/domain"
	catalogdomain "inquiry-backend/internal/catalog/domain"
)

const (
	StatusPending    = "pending"
	StatusPaid       = "paid"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

const (
	PaymentUnpaid   = "unpaid"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrAttachmentNotFound = errors.New("file not found")
	ErrForbidden          = errors.New("unauthorized")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrServiceNotFound    = errors.New("service not found")
	ErrMissingCustomer    = errors.New("name and contact are required")
)

// ValidStatus reports whether s is one of the order lifecycle statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusPaid, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentUnpaid, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

type Order struct {
	ID              uint                   `json:"id" gorm:"primaryKey"`
	UserID          uint                   `json:"userId" gorm:"index;not null"`
	User            *authdomain.User       `json:"user,omitempty" gorm:"foreignKey:UserID"`
	ServiceID       *uint                  `json:"serviceId"`
	Service         *catalogdomain.Service `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
	CustomerName    string                 `json:"customerName" gorm:"not null"`
	CustomerContact string                 `json:"customerContact" gorm:"not null"`
	Notes           *string                `json:"notes"`
	Status          string                 `json:"status" gorm:"not null;default:pending;index"`
	PaymentStatus   string                 `json:"paymentStatus" gorm:"not null;default:unpaid;index"`
	PaymentAmount   *float64               `json:"paymentAmount"`
	PaymentMethod   *string                `json:"paymentMethod"`
	MerchantTradeNo *string                `json:"merchantTradeNo"`
	PaymentTradeNo  *string                `json:"paymentTradeNo"`
	PaymentTime     *time.Time             `json:"paymentTime"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
	Attachments     []Attachment           `json:"attachments,omitempty" gorm:"foreignKey:OrderID"`
}

// Attachment is an uploaded file stored in the object store under FileURL.
type Attachment struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	OrderID     uint      `json:"orderId" gorm:"index;not null"`
	FileURL     string    `json:"fileUrl" gorm:"uniqueIndex;not null"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (Attachment) TableName() string {
	return "order_attachments"
}

// OrderFilter narrows order listings. A nil UserID lists every user's orders.
// Limit 0 means no limit.
type OrderFilter struct {
	UserID        *uint
	Status        string
	PaymentStatus string
	Page          int
	Limit         int
}

func (f OrderFilter) Offset() int {
	if f.Page <= 1 || f.Limit <= 0 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}
