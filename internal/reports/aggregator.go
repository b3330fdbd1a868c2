// Package reports computes read-only rollups over the repository. Totals
// are aggregated in Go with decimal arithmetic rather than SQL SUM, because
// monetary columns are stored as text and a SQL sum would go through
// floating point.
package reports

import (
	"fmt"
	"sort"
	"time"

	"github.com/mrobles/facturas/internal/models"
	"github.com/mrobles/facturas/internal/repository"
	"github.com/shopspring/decimal"
)

// GroupBy selects the rollup dimension.
type GroupBy string

const (
	ByClient GroupBy = "client"
	ByMonth  GroupBy = "month"
	ByStatus GroupBy = "status"
)

// Range bounds issue dates inclusively; zero endpoints are unbounded.
type Range struct {
	From time.Time
	To   time.Time
}

// AggregateRow is one computed summary row. Amounts in different currencies
// never mix: the grouping key is (Key, Currency).
type AggregateRow struct {
	Key      string // client name, YYYY-MM, or status
	Currency string
	Count    int
	Total    decimal.Decimal
}

// Summarize rolls invoice totals up by the requested dimension. Cancelled
// invoices are excluded from client and month rollups since they were never
// billed; the status rollup naturally includes them. An empty match is an
// empty slice, not an error.
func Summarize(repo *repository.Repository, rng Range, groupBy GroupBy) ([]AggregateRow, error) {
	switch groupBy {
	case ByClient, ByMonth, ByStatus:
	default:
		return nil, fmt.Errorf("unknown grouping %q", groupBy)
	}

	invoices, err := repo.ListInvoices(repository.InvoiceFilter{From: rng.From, To: rng.To})
	if err != nil {
		return nil, err
	}

	type key struct{ k, cur string }
	buckets := map[key]*AggregateRow{}
	for _, inv := range invoices {
		if groupBy != ByStatus && inv.Status == models.StatusCancelled {
			continue
		}
		var k string
		switch groupBy {
		case ByClient:
			k = inv.Client.Name
		case ByMonth:
			k = inv.IssueDate.Format("2006-01")
		case ByStatus:
			k = string(inv.Status)
		}
		b, ok := buckets[key{k, inv.Currency}]
		if !ok {
			b = &AggregateRow{Key: k, Currency: inv.Currency, Total: decimal.Zero}
			buckets[key{k, inv.Currency}] = b
		}
		b.Count++
		b.Total = b.Total.Add(inv.Total)
	}

	rows := make([]AggregateRow, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, *b)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Key != rows[j].Key {
			return rows[i].Key < rows[j].Key
		}
		return rows[i].Currency < rows[j].Currency
	})
	return rows, nil
}

// Annual is the month-by-month rollup for one calendar year. Months with no
// invoices produce no row.
func Annual(repo *repository.Repository, year int) ([]AggregateRow, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)
	return Summarize(repo, Range{From: from, To: to}, ByMonth)
}
