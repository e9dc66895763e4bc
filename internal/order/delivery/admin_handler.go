package delivery

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"inquiry-backend/internal/order/domain"
	orderdto "inquiry-backend/internal/order/dto"
	"inquiry-backend/internal/order/usecase"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminOrderHandler serves /api/admin. Routes are mounted behind
// RequireAdmin.
type AdminOrderHandler struct {
	orderUsecase usecase.OrderUsecase
}

func NewAdminOrderHandler(orderUsecase usecase.OrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{orderUsecase: orderUsecase}
}

// ListOrders
// GET /api/admin/orders?status=&paymentStatus=&page=1&limit=20
func (h *AdminOrderHandler) ListOrders(c *gin.Context) {
	filter := filterFromQuery(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(usecase.DefaultAdminPageSize)))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = usecase.DefaultAdminPageSize
	}
	filter.Page, filter.Limit = page, limit

	orders, total, err := h.orderUsecase.AdminListOrders(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err, "failed to fetch orders")
		return
	}

	c.JSON(http.StatusOK, listResponse(orders, page, min(limit, usecase.MaxPageSize), total))
}

// ExportOrders downloads the filtered orders as a spreadsheet.
// GET /api/admin/orders/export
func (h *AdminOrderHandler) ExportOrders(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.orderUsecase.ExportOrders(c.Request.Context(), filterFromQuery(c), &buf); err != nil {
		writeError(c, err, "failed to export orders")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="orders-%s.xlsx"`, time.Now().Format("20060102-150405")))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *AdminOrderHandler) GetOrder(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}

	order, err := h.orderUsecase.AdminGetOrder(c.Request.Context(), orderID)
	if err != nil {
		writeError(c, err, "failed to fetch order")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": order})
}

// UpdateOrder changes status and/or notes.
// PATCH /api/admin/orders/:id
func (h *AdminOrderHandler) UpdateOrder(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}

	var req orderdto.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.orderUsecase.AdminUpdateOrder(c.Request.Context(), orderID, req.Status, req.Notes); err != nil {
		writeError(c, err, "failed to update order")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "order updated successfully"})
}

// GetFile streams any attachment.
// GET /api/admin/files/*key
func (h *AdminOrderHandler) GetFile(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	obj, err := h.orderUsecase.OpenAttachment(c.Request.Context(), key)
	if err != nil {
		writeError(c, err, "failed to retrieve file")
		return
	}
	streamObject(c, obj)
}

func filterFromQuery(c *gin.Context) domain.OrderFilter {
	return domain.OrderFilter{
		Status:        c.Query("status"),
		PaymentStatus: c.Query("paymentStatus"),
	}
}
