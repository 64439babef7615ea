package repositories

import (
	"context"
	"time"

	"paycore/internal/models"

	"github.com/google/uuid"
)

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Invoice, error)
	GetByProviderID(ctx context.Context, tenantID uuid.UUID, providerInvoiceID string) (*models.Invoice, error)
	// FindByProviderID has no tenant scope; inbound provider callbacks use it.
	FindByProviderID(ctx context.Context, providerInvoiceID string) (*models.Invoice, error)
	// MarkPaid moves a non-terminal invoice to paid. It reports false when the
	// invoice was already terminal.
	MarkPaid(ctx context.Context, tenantID, id uuid.UUID, paidAt time.Time, patch models.ProviderMetadata) (bool, error)
	// Void closes a non-terminal invoice without payment.
	Void(ctx context.Context, tenantID, id uuid.UUID, patch models.ProviderMetadata) (bool, error)
	UpdateMetadata(ctx context.Context, tenantID, id uuid.UUID, patch models.ProviderMetadata) error
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invoice, error)
}

const invoiceColumns = `id, tenant_id, subscription_id, customer_id, amount, status, due_date, paid_at, provider_invoice_id, payment_url, items, metadata, created_at, updated_at`

type invoiceRepo struct {
	db Database
}

func NewInvoiceRepo(db Database) InvoiceRepository {
	return &invoiceRepo{db: db}
}

func scanInvoice(row scanner) (*models.Invoice, error) {
	inv := &models.Invoice{}
	err := row.Scan(&inv.ID, &inv.TenantID, &inv.SubscriptionID, &inv.CustomerID, &inv.Amount, &inv.Status, &inv.DueDate, &inv.PaidAt, &inv.ProviderInvoiceID, &inv.PaymentURL, &inv.Items, &inv.Metadata, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return inv, nil
}

func (r *invoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	query := `
		INSERT INTO invoices (id, tenant_id, subscription_id, customer_id, amount, status, due_date, paid_at, provider_invoice_id, payment_url, items, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, invoice.ID, invoice.TenantID, invoice.SubscriptionID, invoice.CustomerID, invoice.Amount, invoice.Status, invoice.DueDate, invoice.PaidAt, invoice.ProviderInvoiceID, invoice.PaymentURL, invoice.Items, invoice.Metadata)
	return err
}

func (r *invoiceRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE tenant_id = $1 AND id = $2
	`
	return scanInvoice(r.db.QueryRow(ctx, query, tenantID, id))
}

func (r *invoiceRepo) GetByProviderID(ctx context.Context, tenantID uuid.UUID, providerInvoiceID string) (*models.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE tenant_id = $1 AND provider_invoice_id = $2
	`
	return scanInvoice(r.db.QueryRow(ctx, query, tenantID, providerInvoiceID))
}

func (r *invoiceRepo) FindByProviderID(ctx context.Context, providerInvoiceID string) (*models.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE provider_invoice_id = $1
	`
	return scanInvoice(r.db.QueryRow(ctx, query, providerInvoiceID))
}

func (r *invoiceRepo) MarkPaid(ctx context.Context, tenantID, id uuid.UUID, paidAt time.Time, patch models.ProviderMetadata) (bool, error) {
	query := `
		UPDATE invoices
		SET status = 'paid', paid_at = $1, metadata = ` + mergeMetadata("$2") + `, updated_at = NOW()
		WHERE tenant_id = $3 AND id = $4 AND status IN ('draft', 'open')
	`
	tag, err := r.db.Exec(ctx, query, paidAt, patch, tenantID, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *invoiceRepo) Void(ctx context.Context, tenantID, id uuid.UUID, patch models.ProviderMetadata) (bool, error) {
	query := `
		UPDATE invoices
		SET status = 'void', metadata = ` + mergeMetadata("$1") + `, updated_at = NOW()
		WHERE tenant_id = $2 AND id = $3 AND status IN ('draft', 'open')
	`
	tag, err := r.db.Exec(ctx, query, patch, tenantID, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *invoiceRepo) UpdateMetadata(ctx context.Context, tenantID, id uuid.UUID, patch models.ProviderMetadata) error {
	query := `
		UPDATE invoices
		SET metadata = ` + mergeMetadata("$1") + `, updated_at = NOW()
		WHERE tenant_id = $2 AND id = $3
	`
	tag, err := r.db.Exec(ctx, query, patch, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *invoiceRepo) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invoice, error) {
	limit, offset = pageBounds(limit, offset)
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}
