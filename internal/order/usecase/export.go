package usecase

import (
	"context"
	"fmt"
	"io"

	"inquiry-backend/internal/order/domain"

	"github.com/xuri/excelize/v2"
)

const (
	exportSheet   = "Orders"
	maxExportRows = 10000
	exportTimeFmt = "2006-01-02 15:04:05"
)

var exportHeader = []interface{}{
	"ID", "User", "Service", "Customer", "Contact", "Status",
	"Payment Status", "Amount", "Method", "Trade No", "Paid At", "Created At",
}

// ExportOrders writes the orders matching filter as an xlsx workbook.
// Paging in filter is ignored.
func (u *orderUsecase) ExportOrders(ctx context.Context, filter domain.OrderFilter, w io.Writer) error {
	if filter.Status != "" && !domain.ValidStatus(filter.Status) {
		return domain.ErrInvalidStatus
	}
	if filter.PaymentStatus != "" && !domain.ValidPaymentStatus(filter.PaymentStatus) {
		return domain.ErrInvalidStatus
	}
	filter.Page, filter.Limit = 1, maxExportRows

	orders, _, err := u.repo.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("list orders: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return err
	}

	for i, o := range orders {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := exportRow(o)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func exportRow(o domain.Order) []interface{} {
	var email, service, method, tradeNo, paidAt string
	var amount interface{}
	if o.User != nil {
		email = o.User.Email
	}
	if o.Service != nil {
		service = o.Service.Name
	}
	if o.PaymentMethod != nil {
		method = *o.PaymentMethod
	}
	if o.PaymentTradeNo != nil {
		tradeNo = *o.PaymentTradeNo
	}
	if o.PaymentTime != nil {
		paidAt = o.PaymentTime.Format(exportTimeFmt)
	}
	if o.PaymentAmount != nil {
		amount = *o.PaymentAmount
	}

	return []interface{}{
		o.ID, email, service, o.CustomerName, o.CustomerContact, o.Status,
		o.PaymentStatus, amount, method, tradeNo, paidAt, o.CreatedAt.Format(exportTimeFmt),
	}
}
