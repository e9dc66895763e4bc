package usecase

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"inquiry-backend/internal/order/domain"
	"inquiry-backend/internal/order/repository"
	"inquiry-backend/pkg/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultUserPageSize  = 10
	DefaultAdminPageSize = 20
	MaxPageSize          = 100
)

type orderUsecase struct {
	repo           repository.OrderRepository
	services       ServiceLookup
	store          ObjectStore
	maxUploadBytes int64
}

func NewOrderUsecase(repo repository.OrderRepository, services ServiceLookup, store ObjectStore, maxUploadBytes int64) OrderUsecase {
	return &orderUsecase{
		repo:           repo,
		services:       services,
		store:          store,
		maxUploadBytes: maxUploadBytes,
	}
}

// CreateOrder validates every file before writing anything. After the order
// row exists, a failing file is recorded and the rest are still stored.
func (u *orderUsecase) CreateOrder(ctx context.Context, userID uint, in CreateOrderInput) (*CreateOrderResult, error) {
	name := strings.TrimSpace(in.CustomerName)
	contact := strings.TrimSpace(in.CustomerContact)
	if name == "" || contact == "" {
		return nil, domain.ErrMissingCustomer
	}

	for _, f := range in.Files {
		if f.Size > u.maxUploadBytes {
			return nil, &FileTooLargeError{Name: f.Name, Limit: u.maxUploadBytes}
		}
	}

	order := &domain.Order{
		UserID:          userID,
		CustomerName:    name,
		CustomerContact: contact,
		Status:          domain.StatusPending,
		PaymentStatus:   domain.PaymentUnpaid,
	}
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		order.Notes = &notes
	}

	if in.ServiceID != nil {
		svc, err := u.services.GetService(ctx, *in.ServiceID)
		if err != nil {
			return nil, fmt.Errorf("lookup service: %w", err)
		}
		if svc == nil {
			return nil, domain.ErrServiceNotFound
		}
		order.ServiceID = &svc.ID
		price := svc.Price
		order.PaymentAmount = &price
	}

	if err := u.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	log := logrus.WithFields(logrus.Fields{"component": "order", "order_id": order.ID})
	result := &CreateOrderResult{OrderID: order.ID, FailedFiles: []string{}}
	for _, f := range in.Files {
		if err := u.storeFile(ctx, order.ID, f); err != nil {
			log.WithError(err).WithField("file", f.Name).Warn("attachment upload failed")
			result.FailedFiles = append(result.FailedFiles, f.Name)
			continue
		}
		result.UploadedFiles++
	}

	log.WithFields(logrus.Fields{
		"user_id":  userID,
		"uploaded": result.UploadedFiles,
		"failed":   len(result.FailedFiles),
	}).Info("order created")
	return result, nil
}

func (u *orderUsecase) storeFile(ctx context.Context, orderID uint, f FileInput) error {
	body, err := f.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer body.Close()

	key := AttachmentKey(orderID, uuid.New().String(), f.Name)
	if err := u.store.Put(ctx, key, body, f.Size, f.ContentType); err != nil {
		return err
	}

	return u.repo.AddAttachment(ctx, &domain.Attachment{
		OrderID:     orderID,
		FileURL:     key,
		FileName:    f.Name,
		ContentType: f.ContentType,
		Size:        f.Size,
	})
}

// AttachmentKey builds orders/<orderID>/<unique>-<base name>.
func AttachmentKey(orderID uint, unique, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		base = "file"
	}
	return fmt.Sprintf("orders/%d/%s-%s", orderID, unique, base)
}

func (u *orderUsecase) ListUserOrders(ctx context.Context, userID uint, status string, page, limit int) ([]domain.Order, int64, error) {
	page, limit = normalizePage(page, limit, DefaultUserPageSize)
	return u.repo.List(ctx, domain.OrderFilter{
		UserID: &userID,
		Status: status,
		Page:   page,
		Limit:  limit,
	})
}

func (u *orderUsecase) GetUserOrder(ctx context.Context, userID, orderID uint) (*domain.Order, error) {
	order, err := u.AdminGetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return order, nil
}

func (u *orderUsecase) OpenUserAttachment(ctx context.Context, userID uint, key string) (*storage.Object, error) {
	attachment, err := u.repo.FindAttachmentByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if attachment == nil {
		return nil, domain.ErrAttachmentNotFound
	}

	order, err := u.repo.FindByID(ctx, attachment.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrAttachmentNotFound
	}
	if order.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return u.openObject(ctx, key)
}

func (u *orderUsecase) AdminListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	if filter.Status != "" && !domain.ValidStatus(filter.Status) {
		return nil, 0, domain.ErrInvalidStatus
	}
	if filter.PaymentStatus != "" && !domain.ValidPaymentStatus(filter.PaymentStatus) {
		return nil, 0, domain.ErrInvalidStatus
	}
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit, DefaultAdminPageSize)
	return u.repo.List(ctx, filter)
}

func (u *orderUsecase) AdminGetOrder(ctx context.Context, orderID uint) (*domain.Order, error) {
	order, err := u.repo.FindDetailByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (u *orderUsecase) AdminUpdateOrder(ctx context.Context, orderID uint, status, notes *string) error {
	if status != nil && !domain.ValidStatus(*status) {
		return domain.ErrInvalidStatus
	}

	found, err := u.repo.UpdateFields(ctx, orderID, status, notes)
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrOrderNotFound
	}

	logrus.WithFields(logrus.Fields{"component": "order", "order_id": orderID}).Info("order updated by admin")
	return nil
}

func (u *orderUsecase) OpenAttachment(ctx context.Context, key string) (*storage.Object, error) {
	attachment, err := u.repo.FindAttachmentByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if attachment == nil {
		return nil, domain.ErrAttachmentNotFound
	}
	return u.openObject(ctx, key)
}

func (u *orderUsecase) openObject(ctx context.Context, key string) (*storage.Object, error) {
	obj, err := u.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, domain.ErrAttachmentNotFound
		}
		return nil, err
	}
	return obj, nil
}

func normalizePage(page, limit, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = def
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}
