package services

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"storefront/internal/domain"
	"storefront/internal/repos"
)

const MaxTopProducts = 50

type ReportService struct {
	Reports *repos.ReportRepo
}

func NewReportService(r *repos.ReportRepo) *ReportService { return &ReportService{Reports: r} }

type SalesReport struct {
	ByStatus     []repos.StatusTotal `json:"by_status"`
	TotalOrders  int                 `json:"total_orders"`
	TotalRevenue float64             `json:"total_revenue"`
	Counts       repos.CatalogCounts `json:"counts"`
}

// Sales sums orders per status. TotalRevenue leaves cancelled orders out.
func (s *ReportService) Sales(ctx context.Context) (SalesReport, error) {
	rows, err := s.Reports.SalesByStatus(ctx)
	if err != nil {
		return SalesReport{}, err
	}
	counts, err := s.Reports.Counts(ctx)
	if err != nil {
		return SalesReport{}, err
	}
	rep := SalesReport{ByStatus: rows, Counts: counts}
	for _, r := range rows {
		rep.TotalOrders += r.Orders
		if r.Status != domain.OrderCancelled {
			rep.TotalRevenue += r.Revenue
		}
	}
	rep.TotalRevenue = roundCents(rep.TotalRevenue)
	return rep, nil
}

func (s *ReportService) TopProducts(ctx context.Context, limit int) ([]repos.TopProduct, error) {
	return s.Reports.TopProducts(ctx, clamp(limit, 1, MaxTopProducts, 10))
}

// WriteSalesXLSX writes a two-sheet workbook: sales per status and the top
// products.
func (s *ReportService) WriteSalesXLSX(ctx context.Context, w io.Writer) error {
	sales, err := s.Sales(ctx)
	if err != nil {
		return err
	}
	top, err := s.TopProducts(ctx, MaxTopProducts)
	if err != nil {
		return err
	}

	wb := excelize.NewFile()
	defer wb.Close()

	const salesSheet, topSheet = "Sales", "Top products"
	if err := wb.SetSheetName(wb.GetSheetName(0), salesSheet); err != nil {
		return err
	}
	if _, err := wb.NewSheet(topSheet); err != nil {
		return err
	}

	rows := [][]any{{"status", "orders", "revenue"}}
	for _, r := range sales.ByStatus {
		rows = append(rows, []any{r.Status, r.Orders, r.Revenue})
	}
	rows = append(rows, []any{"total", sales.TotalOrders, sales.TotalRevenue})
	if err := writeRows(wb, salesSheet, rows); err != nil {
		return err
	}

	rows = [][]any{{"product_id", "sku", "name", "units", "revenue"}}
	for _, p := range top {
		rows = append(rows, []any{p.ProductID, p.SKU, p.Name, p.Units, p.Revenue})
	}
	if err := writeRows(wb, topSheet, rows); err != nil {
		return err
	}

	if _, err := wb.WriteTo(w); err != nil {
		return fmt.Errorf("write sales workbook: %w", err)
	}
	return nil
}

func writeRows(wb *excelize.File, sheet string, rows [][]any) error {
	for i, r := range rows {
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(sheet, ref, &r); err != nil {
			return err
		}
	}
	return nil
}
