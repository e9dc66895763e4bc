package delivery

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	authdelivery "inquiry-backend/internal/auth/delivery"
	"inquiry-backend/internal/order/domain"
	orderdto "inquiry-backend/internal/order/dto"
	"inquiry-backend/internal/order/usecase"
	"inquiry-backend/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// OrderHandler serves the customer-facing order and file routes.
type OrderHandler struct {
	orderUsecase usecase.OrderUsecase
}

func NewOrderHandler(orderUsecase usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{orderUsecase: orderUsecase}
}

// CreateOrder accepts a multipart form with name, contact, notes, serviceId
// and any number of files.
// POST /api/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, _ := authdelivery.SubjectID(c)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form expected"})
		return
	}

	in := usecase.CreateOrderInput{
		CustomerName:    firstValue(form.Value, "name"),
		CustomerContact: firstValue(form.Value, "contact"),
		Notes:           firstValue(form.Value, "notes"),
	}
	if raw := firstValue(form.Value, "serviceId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid service ID"})
			return
		}
		serviceID := uint(id)
		in.ServiceID = &serviceID
	}
	for _, fh := range form.File["files"] {
		in.Files = append(in.Files, usecase.FileInput{
			Name:        fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}

	res, err := h.orderUsecase.CreateOrder(c.Request.Context(), userID, in)
	if err != nil {
		writeError(c, err, "failed to create order, please try again")
		return
	}

	c.JSON(http.StatusCreated, orderdto.CreateOrderResponse{
		Message:       "order created successfully",
		OrderID:       res.OrderID,
		UploadedFiles: res.UploadedFiles,
		FailedFiles:   res.FailedFiles,
	})
}

// ListOrders
// GET /api/orders/list?status=&page=1&limit=10
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, _ := authdelivery.SubjectID(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(usecase.DefaultUserPageSize)))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = usecase.DefaultUserPageSize
	}

	orders, total, err := h.orderUsecase.ListUserOrders(c.Request.Context(), userID, c.Query("status"), page, limit)
	if err != nil {
		writeError(c, err, "failed to fetch orders")
		return
	}

	c.JSON(http.StatusOK, listResponse(orders, page, min(limit, usecase.MaxPageSize), total))
}

// GetOrder
// GET /api/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, _ := authdelivery.SubjectID(c)

	orderID, ok := parseID(c)
	if !ok {
		return
	}

	order, err := h.orderUsecase.GetUserOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		writeError(c, err, "failed to fetch order details")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": order})
}

// GetFile streams an attachment of one of the caller's orders.
// GET /api/files/*key
func (h *OrderHandler) GetFile(c *gin.Context) {
	userID, _ := authdelivery.SubjectID(c)

	key := strings.TrimPrefix(c.Param("key"), "/")
	obj, err := h.orderUsecase.OpenUserAttachment(c.Request.Context(), userID, key)
	if err != nil {
		writeError(c, err, "failed to retrieve file")
		return
	}
	streamObject(c, obj)
}

func streamObject(c *gin.Context, obj *storage.Object) {
	defer obj.Body.Close()
	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, obj.Body, map[string]string{
		"Cache-Control": "private, max-age=3600",
	})
}

func listResponse(orders []domain.Order, page, limit int, total int64) orderdto.OrdersResponse {
	data := make([]orderdto.OrderSummary, 0, len(orders))
	for _, o := range orders {
		data = append(data, orderdto.NewOrderSummary(o))
	}
	return orderdto.OrdersResponse{
		Success:    true,
		Data:       data,
		Pagination: orderdto.NewPagination(page, limit, total),
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return 0, false
	}
	return uint(id), true
}

func firstValue(values map[string][]string, key string) string {
	if v := values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// writeError maps order errors to responses. Anything unrecognised is
// logged and reported with fallback.
func writeError(c *gin.Context, err error, fallback string) {
	var tooLarge *usecase.FileTooLargeError
	switch {
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": tooLarge.Error()})
	case errors.Is(err, domain.ErrMissingCustomer),
		errors.Is(err, domain.ErrServiceNotFound),
		errors.Is(err, domain.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrAttachmentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"component": "order",
			"path":      c.FullPath(),
		}).Error(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
