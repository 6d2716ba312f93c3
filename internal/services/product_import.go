package services

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"storefront/internal/apperr"
)

// ImportRowError reports one spreadsheet row that was skipped.
type ImportRowError struct {
	Row    int    `json:"row"`
	Detail string `json:"detail"`
}

type ImportResult struct {
	Created []int64          `json:"created"`
	Errors  []ImportRowError `json:"errors"`
}

// importColumns is the header row an import sheet must start with.
var importColumns = []string{"name", "sku", "price", "online_stock", "description", "category_ids"}

// ImportProducts reads products from the first sheet of an xlsx workbook.
// Columns follow importColumns; category_ids is a comma separated list.
// Each row goes through CreateProduct, so a bad row is reported and skipped.
func (s *CatalogService) ImportProducts(ctx context.Context, r io.Reader, check func(any) error) (ImportResult, error) {
	res := ImportResult{Created: []int64{}, Errors: []ImportRowError{}}
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return res, apperr.Wrap(err, apperr.Validation, "Invalid Excel file")
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return res, apperr.New(apperr.Validation, "Workbook has no sheets")
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return res, apperr.Wrap(err, apperr.Validation, "Failed to read sheet")
	}
	if len(rows) == 0 || !headerMatches(rows[0]) {
		return res, apperr.Newf(apperr.Validation, "First row must be: %s", strings.Join(importColumns, ", "))
	}

	for i, row := range rows[1:] {
		line := i + 2
		if blank(row) {
			continue
		}
		in, err := parseImportRow(row)
		if err == nil && check != nil {
			err = check(in)
		}
		if err == nil {
			created, cerr := s.CreateProduct(ctx, in)
			if cerr == nil {
				res.Created = append(res.Created, created.ID)
				continue
			}
			if apperr.CodeOf(cerr) == apperr.Internal {
				return res, cerr
			}
			err = cerr
		}
		res.Errors = append(res.Errors, ImportRowError{Row: line, Detail: detailOf(err)})
	}
	return res, nil
}

func headerMatches(row []string) bool {
	if len(row) < len(importColumns) {
		return false
	}
	for i, want := range importColumns {
		if !strings.EqualFold(strings.TrimSpace(row[i]), want) {
			return false
		}
	}
	return true
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func parseImportRow(row []string) (ProductInput, error) {
	in := ProductInput{
		Name:        cell(row, 0),
		SKU:         cell(row, 1),
		Description: cell(row, 4),
	}
	price, err := strconv.ParseFloat(cell(row, 2), 64)
	if err != nil {
		return in, apperr.Newf(apperr.Validation, "price %q is not a number", cell(row, 2))
	}
	in.Price = price
	if v := cell(row, 3); v != "" {
		stock, err := strconv.Atoi(v)
		if err != nil {
			return in, apperr.Newf(apperr.Validation, "online_stock %q is not an integer", v)
		}
		in.OnlineStock = stock
	}
	if v := cell(row, 5); v != "" {
		for _, part := range strings.Split(v, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return in, apperr.Newf(apperr.Validation, "category id %q is not a number", part)
			}
			in.CategoryIDs = append(in.CategoryIDs, id)
		}
	}
	return in, nil
}

// ImportTemplate writes an empty workbook with the expected header row.
func ImportTemplate(w io.Writer) error {
	wb := excelize.NewFile()
	defer wb.Close()
	sheet := wb.GetSheetName(0)
	for i, col := range importColumns {
		ref, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := wb.SetCellValue(sheet, ref, col); err != nil {
			return err
		}
	}
	if _, err := wb.WriteTo(w); err != nil {
		return fmt.Errorf("write import template: %w", err)
	}
	return nil
}
