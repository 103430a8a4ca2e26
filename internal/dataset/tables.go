package dataset

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"logistics-dashboard/internal/models"
)

// nullToken is what gota reports for a cell listed in NaNValues.
const nullToken = "NaN"

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// table is a CSV read with every column as a string.
type table struct {
	name  string
	frame dataframe.DataFrame
	cols  map[string][]string
}

func readTable(name string, r io.Reader) (*table, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{"", "NA", "NaN", "nan", "<nil>"}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("read %s table: %w", name, df.Err)
	}
	return &table{name: name, frame: df, cols: make(map[string][]string)}, nil
}

func (t *table) rows() int { return t.frame.Nrow() }

func (t *table) has(col string) bool {
	return slices.Contains(t.frame.Names(), col)
}

// require checks that every listed column exists.
func (t *table) require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !t.has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s table is missing columns: %s", t.name, strings.Join(missing, ", "))
	}
	return nil
}

// col returns the cells of a column with nulls as "". A column that does not
// exist reads as all nulls.
func (t *table) col(name string) []string {
	if cells, ok := t.cols[name]; ok {
		return cells
	}
	cells := make([]string, t.rows())
	if t.has(name) {
		for i, v := range t.frame.Col(name).Records() {
			if v != nullToken {
				cells[i] = strings.TrimSpace(v)
			}
		}
	}
	t.cols[name] = cells
	return cells
}

// firstCol returns the first of the candidate columns present in the table.
func (t *table) firstCol(candidates ...string) []string {
	for _, c := range candidates {
		if t.has(c) {
			return t.col(c)
		}
	}
	return t.col(candidates[0])
}

func parseTimestamp(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return &ts, nil
		}
	}
	return nil, fmt.Errorf("unrecognized timestamp %q", v)
}

// parseScore accepts integral scores written as floats ("4.0").
func parseScore(v string) (int, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("review score %q is not integral", v)
	}
	return int(f), nil
}

func parseRatio(v string) (float64, error) {
	if v == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(v, 64)
}

// ParseOrders converts the order fact table. Rows whose id, status,
// timestamp or review score cannot be read are skipped and counted.
func ParseOrders(r io.Reader) ([]models.Order, int, error) {
	t, err := readTable("orders", r)
	if err != nil {
		return nil, 0, err
	}
	if err := t.require("order_id", "customer_id", "delivery_status", "order_delivered_customer_date", "review_score", "freight_price_ratio"); err != nil {
		return nil, 0, err
	}

	ids := t.col("order_id")
	customers := t.col("customer_id")
	statuses := t.col("delivery_status")
	delivered := t.col("order_delivered_customer_date")
	reviews := t.col("review_score")
	ratios := t.col("freight_price_ratio")
	bins := t.col("freight_ratio_bin")
	categories := t.firstCol("product_category_name_english", "product_category")

	orders := make([]models.Order, 0, t.rows())
	skipped := 0
	for i := range t.rows() {
		status := models.ParseDeliveryStatus(statuses[i])
		if ids[i] == "" || reviews[i] == "" || status == "" {
			skipped++
			continue
		}
		ts, err := parseTimestamp(delivered[i])
		if err != nil {
			skipped++
			continue
		}
		score, err := parseScore(reviews[i])
		if err != nil {
			skipped++
			continue
		}
		ratio, err := parseRatio(ratios[i])
		if err != nil {
			skipped++
			continue
		}
		orders = append(orders, models.Order{
			OrderID:           ids[i],
			CustomerID:        customers[i],
			Status:            status,
			DeliveredAt:       ts,
			ReviewScore:       score,
			FreightPriceRatio: ratio,
			FreightRatioBin:   bins[i],
			ProductCategory:   categories[i],
		})
	}

	if len(orders) == 0 {
		return nil, skipped, fmt.Errorf("no valid order records found")
	}
	return orders, skipped, nil
}

func ParseCustomers(r io.Reader) ([]models.Customer, error) {
	t, err := readTable("customers", r)
	if err != nil {
		return nil, err
	}
	if err := t.require("customer_id", "customer_state"); err != nil {
		return nil, err
	}

	ids, states := t.col("customer_id"), t.col("customer_state")
	customers := make([]models.Customer, 0, t.rows())
	for i := range t.rows() {
		if ids[i] == "" {
			continue
		}
		customers = append(customers, models.Customer{CustomerID: ids[i], State: strings.ToUpper(states[i])})
	}
	return customers, nil
}

func ParseSellers(r io.Reader) ([]models.Seller, error) {
	t, err := readTable("sellers", r)
	if err != nil {
		return nil, err
	}
	if err := t.require("seller_id", "seller_state"); err != nil {
		return nil, err
	}

	ids, states := t.col("seller_id"), t.col("seller_state")
	sellers := make([]models.Seller, 0, t.rows())
	for i := range t.rows() {
		if ids[i] == "" {
			continue
		}
		sellers = append(sellers, models.Seller{SellerID: ids[i], State: strings.ToUpper(states[i])})
	}
	return sellers, nil
}
