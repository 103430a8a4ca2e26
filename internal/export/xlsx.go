// Package export writes the derived views to an Excel workbook.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"logistics-dashboard/internal/models"
	"logistics-dashboard/internal/pipeline"
)

const columnWidth = 20

// Sheet is one view flattened to a header and rows of cell values.
type Sheet struct {
	Name   string
	Header []any
	Rows   [][]any
}

// SheetNames lists the sheets of an exported workbook in order.
func SheetNames() []string {
	return []string{
		"Summary",
		"Monthly",
		"ReviewByStatus",
		"ReviewByCategory",
		"FreightSatisfaction",
		"CustomerDelay",
		"SellerDensity",
		"TopDelayed",
		"TopSellers",
		"StatusDistribution",
	}
}

// Sheets flattens every view, in SheetNames order.
func Sheets(v *pipeline.DerivedViews) []Sheet {
	return []Sheet{
		summarySheet(v),
		monthlySheet(v.MonthlyComposition),
		reviewByStatusSheet(v.ReviewByStatus),
		reviewByCategorySheet(v.ReviewByCategory),
		freightSheet(v.FreightSatisfaction),
		customerDelaySheet("CustomerDelay", v.CustomerDelay.Rows),
		sellerSheet("SellerDensity", v.SellerDensity),
		customerDelaySheet("TopDelayed", v.TopDelayedRegions),
		sellerSheet("TopSellers", v.TopSellerRegions),
		distributionSheet(v.StatusDistribution),
	}
}

// Workbook builds one sheet per view plus a summary of the selection.
func Workbook(v *pipeline.DerivedViews) (*excelize.File, error) {
	sheets := Sheets(v)

	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDE6F0"}},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, s := range sheets {
		if i == 0 {
			err = f.SetSheetName("Sheet1", s.Name)
		} else {
			_, err = f.NewSheet(s.Name)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %s: %w", s.Name, err)
		}
		if err := writeSheet(f, s, bold); err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %s: %w", s.Name, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// Write streams the workbook for v to w.
func Write(w io.Writer, v *pipeline.DerivedViews) error {
	f, err := Workbook(v)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, s Sheet, headerStyle int) error {
	if err := f.SetSheetRow(s.Name, "A1", &s.Header); err != nil {
		return err
	}
	if err := f.SetRowStyle(s.Name, 1, 1, headerStyle); err != nil {
		return err
	}
	for i, row := range s.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.Name, cell, &row); err != nil {
			return err
		}
	}

	last, err := excelize.ColumnNumberToName(len(s.Header))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(s.Name, "A", last, columnWidth); err != nil {
		return err
	}
	return f.SetPanes(s.Name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func summarySheet(v *pipeline.DerivedViews) Sheet {
	f := v.Filters
	statuses := make([]string, len(f.Statuses))
	for i, s := range f.Statuses {
		statuses[i] = s.DisplayName()
	}
	return Sheet{
		Name:   "Summary",
		Header: []any{"Field", "Value"},
		Rows: [][]any{
			{"Start date", formatDate(f.Start)},
			{"End date", formatDate(f.End)},
			{"Statuses", strings.Join(statuses, ", ")},
			{"Freight ratio range", fmt.Sprintf("%d%% - %d%%", f.RatioLowPct, f.RatioHighPct)},
			{"Filtered order lines", v.FilteredOrderLineCount},
			{"Total orders", v.Health.TotalOrders},
			{"Delayed share", v.Health.DelayedShare},
			{"Average review score", v.Health.AvgReviewScore},
			{"Orders without customer state", v.CustomerDelay.UnmatchedOrders},
		},
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "open"
	}
	return t.Format(time.DateOnly)
}

// monthlySheet has one column per status seen in any month.
func monthlySheet(rows []models.MonthlyComposition) Sheet {
	seen := make(map[models.DeliveryStatus]struct{})
	var statuses []models.DeliveryStatus
	for _, r := range rows {
		for _, s := range r.Statuses() {
			if _, ok := seen[s]; !ok {
				seen[s] = struct{}{}
				statuses = append(statuses, s)
			}
		}
	}
	statuses = models.OrderedStatuses(statuses)

	s := Sheet{Name: "Monthly", Header: []any{"Month"}}
	for _, status := range statuses {
		s.Header = append(s.Header, status.DisplayName())
	}
	for _, r := range rows {
		row := []any{r.Month}
		for _, status := range statuses {
			row = append(row, r.Shares[status])
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

func reviewByStatusSheet(rows []models.StatusReview) Sheet {
	s := Sheet{Name: "ReviewByStatus", Header: []any{"Delivery status", "Average review", "Orders"}}
	for _, r := range rows {
		s.Rows = append(s.Rows, []any{r.DeliveryStatus.DisplayName(), r.AvgReviewScore, r.OrderCount})
	}
	return s
}

// reviewByCategorySheet flattens the grid to one row per existing cell.
func reviewByCategorySheet(rows []models.CategoryReview) Sheet {
	s := Sheet{Name: "ReviewByCategory", Header: []any{"Category", "Delivery status", "Average review", "Orders"}}
	for _, r := range rows {
		statuses := make([]models.DeliveryStatus, 0, len(r.Cells))
		for status := range r.Cells {
			statuses = append(statuses, status)
		}
		for _, status := range models.OrderedStatuses(statuses) {
			cell := r.Cells[status]
			s.Rows = append(s.Rows, []any{r.ProductCategory, status.DisplayName(), cell.AvgReviewScore, cell.OrderCount})
		}
	}
	return s
}

func freightSheet(rows []models.FreightSatisfaction) Sheet {
	s := Sheet{Name: "FreightSatisfaction", Header: []any{"Freight ratio bin", "Average review", "Orders"}}
	for _, r := range rows {
		s.Rows = append(s.Rows, []any{r.FreightRatioBin, r.AvgReviewScore, r.OrderCount})
	}
	return s
}

func customerDelaySheet(name string, rows []models.RegionDelay) Sheet {
	s := Sheet{Name: name, Header: []any{"Customer state", "Orders", "Delayed orders", "Average review", "Delayed rate"}}
	for _, r := range rows {
		s.Rows = append(s.Rows, []any{r.CustomerState, r.TotalOrders, r.DelayedOrders, r.AvgReviewScore, r.DelayedRate})
	}
	return s
}

func sellerSheet(name string, rows []models.SellerDensity) Sheet {
	s := Sheet{Name: name, Header: []any{"Seller state", "Sellers"}}
	for _, r := range rows {
		s.Rows = append(s.Rows, []any{r.SellerState, r.SellerCount})
	}
	return s
}

func distributionSheet(rows []models.StatusShare) Sheet {
	s := Sheet{Name: "StatusDistribution", Header: []any{"Delivery status", "Share", "Orders"}}
	for _, r := range rows {
		s.Rows = append(s.Rows, []any{r.DeliveryStatus.DisplayName(), r.Share, r.OrderCount})
	}
	return s
}
