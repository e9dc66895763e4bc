package usecase

import (
	"context"
	"fmt"
	"io"

	catalogdomain "inquiry-backend/internal/catalog/domain"
	"inquiry-backend/internal/order/domain"
	"inquiry-backend/pkg/storage"
)

// ObjectStore keeps attachment bodies.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*storage.Object, error)
}

// ServiceLookup resolves catalog entries referenced by new orders.
type ServiceLookup interface {
	GetService(ctx context.Context, id uint) (*catalogdomain.Service, error)
}

// FileTooLargeError rejects an upload that exceeds the size limit.
type FileTooLargeError struct {
	Name  string
	Limit int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file %s is too large, maximum size is %d MB", e.Name, e.Limit/(1024*1024))
}

// FileInput is one uploaded file of a new order.
type FileInput struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

type CreateOrderInput struct {
	CustomerName    string
	CustomerContact string
	Notes           string
	ServiceID       *uint
	Files           []FileInput
}

type CreateOrderResult struct {
	OrderID       uint
	UploadedFiles int
	FailedFiles   []string
}

type OrderUsecase interface {
	CreateOrder(ctx context.Context, userID uint, in CreateOrderInput) (*CreateOrderResult, error)
	ListUserOrders(ctx context.Context, userID uint, status string, page, limit int) ([]domain.Order, int64, error)
	GetUserOrder(ctx context.Context, userID, orderID uint) (*domain.Order, error)
	OpenUserAttachment(ctx context.Context, userID uint, key string) (*storage.Object, error)

	AdminListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error)
	AdminGetOrder(ctx context.Context, orderID uint) (*domain.Order, error)
	AdminUpdateOrder(ctx context.Context, orderID uint, status, notes *string) error
	OpenAttachment(ctx context.Context, key string) (*storage.Object, error)
	ExportOrders(ctx context.Context, filter domain.OrderFilter, w io.Writer) error
}
