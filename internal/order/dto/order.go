package dto

import "inquiry-backend/internal/order/domain"

type CreateOrderResponse struct {
	Message       string   `json:"message"`
	OrderID       uint     `json:"orderId"`
	UploadedFiles int      `json:"uploadedFiles"`
	FailedFiles   []string `json:"failedFiles"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

type OrdersResponse struct {
	Success    bool           `json:"success"`
	Data       []OrderSummary `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// OrderSummary is an order row in a listing. Attachments are flattened to
// their object keys.
type OrderSummary struct {
	domain.Order
	Attachments     []string `json:"attachments"`
	AttachmentCount int      `json:"attachmentCount"`
}

func NewOrderSummary(o domain.Order) OrderSummary {
	keys := make([]string, 0, len(o.Attachments))
	for _, a := range o.Attachments {
		keys = append(keys, a.FileURL)
	}
	return OrderSummary{Order: o, Attachments: keys, AttachmentCount: len(keys)}
}

type UpdateOrderRequest struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}
