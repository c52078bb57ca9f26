package invoices

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ClientSales sums sales of one client.
type ClientSales struct {
	ClientID   int64           `json:"client_id"`
	ClientCode string          `json:"client_code"`
	ClientName string          `json:"client_name"`
	Invoices   int             `json:"invoices"`
	Total      decimal.Decimal `json:"total"`
}

// ProductSales sums sales of one product.
type ProductSales struct {
	ProductID   int64           `json:"product_id"`
	ProductCode string          `json:"product_code"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Total       decimal.Decimal `json:"total"`
}

// SalesReport summarises counted invoices in a date range.
type SalesReport struct {
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	Invoices    int             `json:"invoices"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
	Average     decimal.Decimal `json:"average"`
	ByClient    []ClientSales   `json:"by_client"`
	TopProducts []ProductSales  `json:"top_products"`
}

// TopProductsLimit caps the product ranking.
const TopProductsLimit = 10

// BuildSalesReport aggregates invoices that carry lines. Drafts and voided
// invoices are skipped.
func BuildSalesReport(from, to time.Time, invoices []Invoice) SalesReport {
	report := SalesReport{From: from, To: to, ByClient: []ClientSales{}, TopProducts: []ProductSales{}}
	clients := map[int64]*ClientSales{}
	products := map[int64]*ProductSales{}
	for _, inv := range invoices {
		if !inv.Status.Counted() {
			continue
		}
		report.Invoices++
		report.Subtotal = report.Subtotal.Add(inv.Subtotal)
		report.Discount = report.Discount.Add(inv.Discount)
		report.Tax = report.Tax.Add(inv.Tax)
		report.Total = report.Total.Add(inv.Total)

		c, ok := clients[inv.ClientID]
		if !ok {
			c = &ClientSales{ClientID: inv.ClientID, ClientCode: inv.ClientCode, ClientName: inv.ClientName}
			clients[inv.ClientID] = c
		}
		c.Invoices++
		c.Total = c.Total.Add(inv.Total)

		for _, l := range inv.Lines {
			p, ok := products[l.ProductID]
			if !ok {
				p = &ProductSales{ProductID: l.ProductID, ProductCode: l.ProductCode, Description: l.Description}
				products[l.ProductID] = p
			}
			p.Quantity = p.Quantity.Add(l.Quantity)
			p.Total = p.Total.Add(l.Total)
		}
	}
	if report.Invoices > 0 {
		report.Average = report.Total.Div(decimal.NewFromInt(int64(report.Invoices))).Round(2)
	}
	for _, c := range clients {
		report.ByClient = append(report.ByClient, *c)
	}
	sort.Slice(report.ByClient, func(i, j int) bool {
		if !report.ByClient[i].Total.Equal(report.ByClient[j].Total) {
			return report.ByClient[i].Total.GreaterThan(report.ByClient[j].Total)
		}
		return report.ByClient[i].ClientCode < report.ByClient[j].ClientCode
	})
	for _, p := range products {
		report.TopProducts = append(report.TopProducts, *p)
	}
	sort.Slice(report.TopProducts, func(i, j int) bool {
		if !report.TopProducts[i].Total.Equal(report.TopProducts[j].Total) {
			return report.TopProducts[i].Total.GreaterThan(report.TopProducts[j].Total)
		}
		return report.TopProducts[i].ProductCode < report.TopProducts[j].ProductCode
	})
	if len(report.TopProducts) > TopProductsLimit {
		report.TopProducts = report.TopProducts[:TopProductsLimit]
	}
	return report
}

// Bucket labels an aging range.
type Bucket string

const (
	BucketCurrent Bucket = "current"
	Bucket30      Bucket = "1-30"
	Bucket60      Bucket = "31-60"
	Bucket90      Bucket = "61-90"
	BucketOver90  Bucket = "90+"
)

// AgingBuckets summarises outstanding totals by days past due.
type AgingBuckets struct {
	Current decimal.Decimal `json:"current"`
	Days30  decimal.Decimal `json:"days_1_30"`
	Days60  decimal.Decimal `json:"days_31_60"`
	Days90  decimal.Decimal `json:"days_61_90"`
	Over90  decimal.Decimal `json:"days_over_90"`
}

// Receivable is one outstanding invoice in the aging report.
type Receivable struct {
	InvoiceID   int64           `json:"invoice_id"`
	Number      string          `json:"number"`
	ClientID    int64           `json:"client_id"`
	ClientName  string          `json:"client_name"`
	IssueDate   time.Time       `json:"issue_date"`
	DueDate     time.Time       `json:"due_date"`
	Total       decimal.Decimal `json:"total"`
	DaysOverdue int             `json:"days_overdue"`
	Bucket      Bucket          `json:"bucket"`
}

// ReceivablesReport is the accounts receivable aging as of a date.
type ReceivablesReport struct {
	AsOf    time.Time       `json:"as_of"`
	Buckets AgingBuckets    `json:"buckets"`
	Total   decimal.Decimal `json:"total"`
	Items   []Receivable    `json:"items"`
}

// DaysBetween counts whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// BucketFor places a days-overdue count into its aging range.
func BucketFor(days int) Bucket {
	switch {
	case days <= 0:
		return BucketCurrent
	case days <= 30:
		return Bucket30
	case days <= 60:
		return Bucket60
	case days <= 90:
		return Bucket90
	default:
		return BucketOver90
	}
}

// BuildReceivables ages collectible invoices by due date.
func BuildReceivables(asOf time.Time, invoices []Invoice) ReceivablesReport {
	report := ReceivablesReport{AsOf: asOf, Items: []Receivable{}}
	for _, inv := range invoices {
		if !inv.Status.Collectible() {
			continue
		}
		days := DaysBetween(inv.DueDate, asOf)
		bucket := BucketFor(days)
		switch bucket {
		case BucketCurrent:
			report.Buckets.Current = report.Buckets.Current.Add(inv.Total)
		case Bucket30:
			report.Buckets.Days30 = report.Buckets.Days30.Add(inv.Total)
		case Bucket60:
			report.Buckets.Days60 = report.Buckets.Days60.Add(inv.Total)
		case Bucket90:
			report.Buckets.Days90 = report.Buckets.Days90.Add(inv.Total)
		default:
			report.Buckets.Over90 = report.Buckets.Over90.Add(inv.Total)
		}
		report.Total = report.Total.Add(inv.Total)
		if days < 0 {
			days = 0
		}
		report.Items = append(report.Items, Receivable{
			InvoiceID:   inv.ID,
			Number:      inv.Number,
			ClientID:    inv.ClientID,
			ClientName:  inv.ClientName,
			IssueDate:   inv.IssueDate,
			DueDate:     inv.DueDate,
			Total:       inv.Total,
			DaysOverdue: days,
			Bucket:      bucket,
		})
	}
	sort.Slice(report.Items, func(i, j int) bool {
		if report.Items[i].DaysOverdue != report.Items[j].DaysOverdue {
			return report.Items[i].DaysOverdue > report.Items[j].DaysOverdue
		}
		return report.Items[i].Number < report.Items[j].Number
	})
	return report
}
