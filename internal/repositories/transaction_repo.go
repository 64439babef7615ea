package repositories

import (
	"context"

	"paycore/internal/models"

	"github.com/google/uuid"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Transaction, error)
	// FindByID looks a transaction up without a tenant scope. Only inbound
	// provider callbacks use it, since they carry no tenant.
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindByProviderTransactionID(ctx context.Context, providerTransactionID string) (*models.Transaction, error)
	// UpdateStatus writes status, metadata and paid_at only if the stored
	// status still equals from. It reports whether a row was updated.
	UpdateStatus(ctx context.Context, tx *models.Transaction, from models.TransactionStatus) (bool, error)
	// UpdateMetadata merges patch into the stored metadata without touching status.
	UpdateMetadata(ctx context.Context, tenantID, id uuid.UUID, patch models.ProviderMetadata) error
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Transaction, error)
}

const transactionColumns = `id, tenant_id, customer_id, amount, payment_method, status, description, metadata, paid_at, created_at, updated_at`

type transactionRepo struct {
	db Database
}

func NewTransactionRepo(db Database) TransactionRepository {
	return &transactionRepo{db: db}
}

func scanTransaction(row scanner) (*models.Transaction, error) {
	tx := &models.Transaction{}
	err := row.Scan(&tx.ID, &tx.TenantID, &tx.CustomerID, &tx.Amount, &tx.Method, &tx.Status, &tx.Description, &tx.Metadata, &tx.PaidAt, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return tx, nil
}

func (r *transactionRepo) Create(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, tenant_id, customer_id, amount, payment_method, status, description, metadata, paid_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, tx.ID, tx.TenantID, tx.CustomerID, tx.Amount, tx.Method, tx.Status, tx.Description, tx.Metadata, tx.PaidAt)
	return err
}

func (r *transactionRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE tenant_id = $1 AND id = $2
	`
	return scanTransaction(r.db.QueryRow(ctx, query, tenantID, id))
}

func (r *transactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1
	`
	return scanTransaction(r.db.QueryRow(ctx, query, id))
}

func (r *transactionRepo) FindByProviderTransactionID(ctx context.Context, providerTransactionID string) (*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE metadata->>'provider_transaction_id' = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanTransaction(r.db.QueryRow(ctx, query, providerTransactionID))
}

func (r *transactionRepo) UpdateStatus(ctx context.Context, tx *models.Transaction, from models.TransactionStatus) (bool, error) {
	query := `
		UPDATE transactions
		SET status = $1, metadata = ` + mergeMetadata("$2") + `, paid_at = $3, updated_at = NOW()
		WHERE tenant_id = $4 AND id = $5 AND status = $6
	`
	tag, err := r.db.Exec(ctx, query, tx.Status, tx.Metadata, tx.PaidAt, tx.TenantID, tx.ID, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *transactionRepo) UpdateMetadata(ctx context.Context, tenantID, id uuid.UUID, patch models.ProviderMetadata) error {
	query := `
		UPDATE transactions
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

func (r *transactionRepo) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Transaction, error) {
	limit, offset = pageBounds(limit, offset)
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}
