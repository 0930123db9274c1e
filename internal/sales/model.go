// Package sales provides read-only access to the sales transaction
// store: invoices, sales-team allocations, payment entries and
// opportunities. Nothing here writes; invoices are mastered by the
// billing side of the system.
package sales

import "time"

// InvoiceScope restricts a transaction read. A nil CompanyID means all
// companies. SalesPersonIDs semantics follow the attribution rules: nil
// means no person restriction, a non-nil empty slice matches nothing.
type InvoiceScope struct {
	CompanyID      *int64
	SalesPersonIDs []int64
	personScoped   bool
}

// AllCompanies is the unrestricted scope.
func AllCompanies() InvoiceScope {
	return InvoiceScope{}
}

// ForCompany scopes reads to one company's invoices.
func ForCompany(companyID int64) InvoiceScope {
	return InvoiceScope{CompanyID: &companyID}
}

// ForSalesPersons scopes reads to the allocation shares of the given
// sales people. An empty list matches nothing.
func ForSalesPersons(ids []int64) InvoiceScope {
	return InvoiceScope{SalesPersonIDs: ids, personScoped: true}
}

// PersonScoped reports whether the scope restricts by sales person.
func (s InvoiceScope) PersonScoped() bool {
	return s.personScoped
}

// RevenueSnapshot is the billed/collected/outstanding triple over a
// window, scoped like every other read.
type RevenueSnapshot struct {
	Revenue     float64 `json:"revenue"`
	Outstanding float64 `json:"outstanding"`
}

// OverdueInvoice feeds the payment-delay cost report.
type OverdueInvoice struct {
	InvoiceID    int64     `json:"invoice_id"`
	CustomerName string    `json:"customer_name"`
	DueDate      time.Time `json:"due_date"`
	Outstanding  float64   `json:"outstanding"`
}

// LeakageRow compares list pricing to billed pricing for one invoice,
// with the share attributable to the scoped sales people.
type LeakageRow struct {
	InvoiceID   int64   `json:"invoice_id"`
	ListTotal   float64 `json:"list_total"`
	BilledTotal float64 `json:"billed_total"`
	Share       float64 `json:"share"`
}

// PipelineRow is one open opportunity contributing to coverage.
type PipelineRow struct {
	OpportunityID int64   `json:"opportunity_id"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	Probability   float64 `json:"probability"`
}

// StatusCount buckets opportunities by normalized deal status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}
