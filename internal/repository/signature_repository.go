package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/workorder-service/internal/domain"
)

// SignatureRepository reads closing signatures. Creation happens only through
// WorkOrderRepository.SaveClosure so it shares the transition transaction.
type SignatureRepository interface {
	GetByWorkOrder(ctx context.Context, workOrderID int64) (*domain.ComplianceSignature, error)
}

type signatureRepository struct {
	pool *pgxpool.Pool
}

// NewSignatureRepository builds repository.
func NewSignatureRepository(pool *pgxpool.Pool) SignatureRepository {
	return &signatureRepository{pool: pool}
}

func (r *signatureRepository) GetByWorkOrder(ctx context.Context, workOrderID int64) (*domain.ComplianceSignature, error) {
	const query = `
        SELECT id, work_order_id, firmante_id, firmante_nombre, payload, numero_registro, created_at
        FROM compliance_signatures WHERE work_order_id=$1`
	var sig domain.ComplianceSignature
	if err := r.pool.QueryRow(ctx, query, workOrderID).Scan(
		&sig.ID,
		&sig.WorkOrderID,
		&sig.FirmanteID,
		&sig.FirmanteNombre,
		&sig.Payload,
		&sig.NumeroRegistro,
		&sig.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &sig, nil
}
