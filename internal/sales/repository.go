package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Reader is the query surface consumed by the target aggregator and the
// dashboard reporters.
type Reader interface {
	CompanyInvoiceTotal(ctx context.Context, companyID *int64, from, to time.Time) (float64, error)
	AllocatedTotal(ctx context.Context, salesPersonIDs []int64, from, to time.Time) (float64, error)
	RevenueAndOutstanding(ctx context.Context, scope InvoiceScope, from, to time.Time) (RevenueSnapshot, error)
	OutstandingAtRisk(ctx context.Context, scope InvoiceScope, asOf, dueBy time.Time) (float64, error)
	OverdueInvoices(ctx context.Context, scope InvoiceScope, asOf time.Time) ([]OverdueInvoice, error)
	LeakageRows(ctx context.Context, scope InvoiceScope, from, to time.Time) ([]LeakageRow, error)
	CollectedBetween(ctx context.Context, scope InvoiceScope, from, to time.Time) (float64, error)
	OpenPipeline(ctx context.Context, scope InvoiceScope, closingFrom, closingTo time.Time) ([]PipelineRow, error)
	OpportunityStatusCounts(ctx context.Context, scope InvoiceScope) ([]StatusCount, error)
}

// Repository reads the transaction store through pgx. Every query
// filters to submitted documents; drafts and cancellations are never
// visible here.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CompanyInvoiceTotal sums grand totals of submitted invoices posted in
// [from, to], optionally for one company.
func (r *Repository) CompanyInvoiceTotal(ctx context.Context, companyID *int64, from, to time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(grand_total), 0)
		FROM sales_invoices
		WHERE docstatus = 1 AND posting_date BETWEEN $1 AND $2`
	args := []interface{}{from, to}
	if companyID != nil {
		query += ` AND company_id = $3`
		args = append(args, *companyID)
	}
	var total float64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sales: company invoice total: %w", err)
	}
	return total, nil
}

// AllocatedTotal sums the sales-team allocated amounts attributed to the
// given sales people on submitted invoices posted in [from, to].
func (r *Repository) AllocatedTotal(ctx context.Context, salesPersonIDs []int64, from, to time.Time) (float64, error) {
	if len(salesPersonIDs) == 0 {
		return 0, nil
	}
	var total float64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(st.allocated_amount), 0)
		FROM invoice_sales_team st
		JOIN sales_invoices si ON si.id = st.invoice_id
		WHERE si.docstatus = 1
		  AND si.posting_date BETWEEN $1 AND $2
		  AND st.sales_person_id = ANY($3)`,
		from, to, salesPersonIDs).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sales: allocated total: %w", err)
	}
	return total, nil
}

// RevenueAndOutstanding reports billed revenue and the still-open
// portion for invoices posted in the window. Person-scoped reads use
// allocation shares of both figures.
func (r *Repository) RevenueAndOutstanding(ctx context.Context, scope InvoiceScope, from, to time.Time) (RevenueSnapshot, error) {
	var snap RevenueSnapshot
	if scope.PersonScoped() {
		if len(scope.SalesPersonIDs) == 0 {
			return snap, nil
		}
		err := r.pool.QueryRow(ctx, `
			SELECT
				COALESCE(SUM(st.allocated_amount), 0),
				COALESCE(SUM(si.outstanding_amount * st.allocated_percentage / 100.0), 0)
			FROM invoice_sales_team st
			JOIN sales_invoices si ON si.id = st.invoice_id
			WHERE si.docstatus = 1
			  AND si.posting_date BETWEEN $1 AND $2
			  AND st.sales_person_id = ANY($3)`,
			from, to, scope.SalesPersonIDs).Scan(&snap.Revenue, &snap.Outstanding)
		if err != nil {
			return snap, fmt.Errorf("sales: revenue snapshot: %w", err)
		}
		return snap, nil
	}

	query := `
		SELECT COALESCE(SUM(grand_total), 0), COALESCE(SUM(outstanding_amount), 0)
		FROM sales_invoices
		WHERE docstatus = 1 AND posting_date BETWEEN $1 AND $2`
	args := []interface{}{from, to}
	if scope.CompanyID != nil {
		query += ` AND company_id = $3`
		args = append(args, *scope.CompanyID)
	}
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&snap.Revenue, &snap.Outstanding); err != nil {
		return snap, fmt.Errorf("sales: revenue snapshot: %w", err)
	}
	return snap, nil
}

// OutstandingAtRisk sums open amounts falling due in (asOf, dueBy]: not
// yet overdue, but inside the risk window.
func (r *Repository) OutstandingAtRisk(ctx context.Context, scope InvoiceScope, asOf, dueBy time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(outstanding_amount), 0)
		FROM sales_invoices
		WHERE docstatus = 1
		  AND outstanding_amount > 0
		  AND due_date > $1 AND due_date <= $2`
	args := []interface{}{asOf, dueBy}
	if scope.CompanyID != nil {
		query += ` AND company_id = $3`
		args = append(args, *scope.CompanyID)
	}
	var total float64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sales: outstanding at risk: %w", err)
	}
	return total, nil
}

// OverdueInvoices lists open invoices whose due date precedes asOf,
// largest debt first. Person scopes see only invoices their sales team
// is on; an empty team sees nothing.
func (r *Repository) OverdueInvoices(ctx context.Context, scope InvoiceScope, asOf time.Time) ([]OverdueInvoice, error) {
	if scope.PersonScoped() && len(scope.SalesPersonIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, customer_name, due_date, outstanding_amount
		FROM sales_invoices
		WHERE docstatus = 1
		  AND outstanding_amount > 0
		  AND due_date < $1`
	args := []interface{}{asOf}
	argPos := 2
	if scope.CompanyID != nil {
		query += fmt.Sprintf(` AND company_id = $%d`, argPos)
		args = append(args, *scope.CompanyID)
		argPos++
	}
	if scope.PersonScoped() {
		query += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM invoice_sales_team st
			WHERE st.invoice_id = sales_invoices.id
			  AND st.sales_person_id = ANY($%d))`, argPos)
		args = append(args, scope.SalesPersonIDs)
	}
	query += ` ORDER BY outstanding_amount DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sales: overdue invoices: %w", err)
	}
	defer rows.Close()

	var out []OverdueInvoice
	for rows.Next() {
		var inv OverdueInvoice
		if err := rows.Scan(&inv.InvoiceID, &inv.CustomerName, &inv.DueDate, &inv.Outstanding); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// LeakageRows returns per-invoice list versus billed totals for the
// window. Person-scoped reads carry the allocation share so leakage can
// be attributed per rep; unscoped reads report a share of 1.
func (r *Repository) LeakageRows(ctx context.Context, scope InvoiceScope, from, to time.Time) ([]LeakageRow, error) {
	if scope.PersonScoped() && len(scope.SalesPersonIDs) == 0 {
		return nil, nil
	}

	var query string
	var args []interface{}
	if scope.PersonScoped() {
		query = `
			SELECT si.id,
			       COALESCE(SUM(it.price_list_rate * it.qty), 0),
			       COALESCE(SUM(it.amount), 0),
			       st.allocated_percentage / 100.0
			FROM sales_invoices si
			JOIN sales_invoice_items it ON it.invoice_id = si.id
			JOIN invoice_sales_team st ON st.invoice_id = si.id
			WHERE si.docstatus = 1
			  AND si.posting_date BETWEEN $1 AND $2
			  AND st.sales_person_id = ANY($3)
			GROUP BY si.id, st.allocated_percentage`
		args = []interface{}{from, to, scope.SalesPersonIDs}
	} else {
		query = `
			SELECT si.id,
			       COALESCE(SUM(it.price_list_rate * it.qty), 0),
			       COALESCE(SUM(it.amount), 0),
			       1.0
			FROM sales_invoices si
			JOIN sales_invoice_items it ON it.invoice_id = si.id
			WHERE si.docstatus = 1
			  AND si.posting_date BETWEEN $1 AND $2`
		args = []interface{}{from, to}
		if scope.CompanyID != nil {
			query += ` AND si.company_id = $3`
			args = append(args, *scope.CompanyID)
		}
		query += ` GROUP BY si.id`
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sales: leakage rows: %w", err)
	}
	defer rows.Close()

	var out []LeakageRow
	for rows.Next() {
		var row LeakageRow
		if err := rows.Scan(&row.InvoiceID, &row.ListTotal, &row.BilledTotal, &row.Share); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// CollectedBetween sums money received in the window. Company scopes
// read submitted inbound payment entries; person scopes attribute the
// settled portion of invoices through allocation shares, since payment
// entries carry no sales team.
func (r *Repository) CollectedBetween(ctx context.Context, scope InvoiceScope, from, to time.Time) (float64, error) {
	if scope.PersonScoped() {
		if len(scope.SalesPersonIDs) == 0 {
			return 0, nil
		}
		var total float64
		err := r.pool.QueryRow(ctx, `
			SELECT COALESCE(SUM((si.grand_total - si.outstanding_amount) * st.allocated_percentage / 100.0), 0)
			FROM invoice_sales_team st
			JOIN sales_invoices si ON si.id = st.invoice_id
			WHERE si.docstatus = 1
			  AND si.posting_date BETWEEN $1 AND $2
			  AND st.sales_person_id = ANY($3)`,
			from, to, scope.SalesPersonIDs).Scan(&total)
		if err != nil {
			return 0, fmt.Errorf("sales: collected (allocated): %w", err)
		}
		return total, nil
	}

	query := `
		SELECT COALESCE(SUM(paid_amount), 0)
		FROM payment_entries
		WHERE docstatus = 1
		  AND payment_type = 'Receive'
		  AND posting_date BETWEEN $1 AND $2`
	args := []interface{}{from, to}
	if scope.CompanyID != nil {
		query += ` AND company_id = $3`
		args = append(args, *scope.CompanyID)
	}
	var total float64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sales: collected: %w", err)
	}
	return total, nil
}

// openStatuses are the deal states that still count toward pipeline.
var openStatuses = []string{"Open", "Replied", "Quotation", "Negotiation"}

// OpenPipeline lists open opportunities expected to close inside the
// window, with amount and probability for weighting.
func (r *Repository) OpenPipeline(ctx context.Context, scope InvoiceScope, closingFrom, closingTo time.Time) ([]PipelineRow, error) {
	query := `
		SELECT id, status, COALESCE(amount, 0), COALESCE(probability, 0)
		FROM opportunities
		WHERE status = ANY($1)
		  AND expected_closing BETWEEN $2 AND $3`
	args := []interface{}{openStatuses, closingFrom, closingTo}
	argPos := 4
	if scope.CompanyID != nil {
		query += fmt.Sprintf(` AND company_id = $%d`, argPos)
		args = append(args, *scope.CompanyID)
		argPos++
	}
	if scope.PersonScoped() {
		if len(scope.SalesPersonIDs) == 0 {
			return nil, nil
		}
		query += fmt.Sprintf(` AND sales_person_id = ANY($%d)`, argPos)
		args = append(args, scope.SalesPersonIDs)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sales: open pipeline: %w", err)
	}
	defer rows.Close()

	var out []PipelineRow
	for rows.Next() {
		var row PipelineRow
		if err := rows.Scan(&row.OpportunityID, &row.Status, &row.Amount, &row.Probability); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// OpportunityStatusCounts buckets all opportunities by raw status; the
// dashboard layer normalizes the labels.
func (r *Repository) OpportunityStatusCounts(ctx context.Context, scope InvoiceScope) ([]StatusCount, error) {
	query := `SELECT status, COUNT(*) FROM opportunities`
	var args []interface{}
	if scope.CompanyID != nil {
		query += ` WHERE company_id = $1`
		args = append(args, *scope.CompanyID)
	}
	query += ` GROUP BY status ORDER BY status`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sales: opportunity status counts: %w", err)
	}
	defer rows.Close()

	var out []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
