package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/workorder-service/internal/domain"
)

// Sentinel errors surfaced to the service layer for taxonomy mapping.
var (
	// ErrRowLocked means another transaction holds the row lock; retryable.
	ErrRowLocked = errors.New("work order locked by concurrent transaction")
	// ErrStaleStage means the stage changed between read and write.
	ErrStaleStage = errors.New("work order stage changed concurrently")
	// ErrDuplicateSignature means the work order already carries a signature.
	ErrDuplicateSignature = errors.New("signature already exists")
)

const (
	pgCodeLockNotAvailable = "55P03"
	pgCodeUniqueViolation  = "23505"
)

// WorkOrderFilter captures listing parameters.
type WorkOrderFilter struct {
	Etapas       []domain.Etapa
	Prioridades  []domain.Prioridad
	TechnicianID *string
	Limit        int
	Offset       int
}

// WorkOrderRepository encapsulates work-order persistence. Transition and
// closure writes are atomic: the row update and its history entry (and
// signature, for closures) commit together or not at all.
type WorkOrderRepository interface {
	Create(ctx context.Context, wo *domain.WorkOrder) error
	GetByID(ctx context.Context, id int64) (*domain.WorkOrder, error)
	ListWithFilter(ctx context.Context, filter WorkOrderFilter) ([]domain.WorkOrder, error)
	// ListOpen returns all non-terminal work orders from one consistent snapshot.
	ListOpen(ctx context.Context) ([]domain.WorkOrder, error)
	SaveTransition(ctx context.Context, wo *domain.WorkOrder, entry *domain.StageHistoryEntry) error
	SaveClosure(ctx context.Context, wo *domain.WorkOrder, entry *domain.StageHistoryEntry, sig *domain.ComplianceSignature) error
	ListHistory(ctx context.Context, workOrderID int64) ([]domain.StageHistoryEntry, error)
}

type workOrderRepository struct {
	pool *pgxpool.Pool
}

// NewWorkOrderRepository instantiates repository.
func NewWorkOrderRepository(pool *pgxpool.Pool) WorkOrderRepository {
	return &workOrderRepository{pool: pool}
}

const workOrderColumns = `id, tipo_solicitud, titulo, descripcion, etapa, estado, prioridad, technician_id, created_at, updated_at`

func (r *workOrderRepository) Create(ctx context.Context, wo *domain.WorkOrder) error {
	const query = `
        INSERT INTO work_orders (tipo_solicitud, titulo, descripcion, etapa, estado, prioridad, technician_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		wo.TipoSolicitud,
		wo.Titulo,
		wo.Descripcion,
		wo.Etapa,
		wo.Estado,
		wo.Prioridad,
		wo.TechnicianID,
	).Scan(&wo.ID, &wo.CreatedAt, &wo.UpdatedAt)
}

func (r *workOrderRepository) GetByID(ctx context.Context, id int64) (*domain.WorkOrder, error) {
	query := `SELECT ` + workOrderColumns + ` FROM work_orders WHERE id=$1`
	var wo domain.WorkOrder
	if err := scanWorkOrder(r.pool.QueryRow(ctx, query, id), &wo); err != nil {
		return nil, err
	}
	return &wo, nil
}

func (r *workOrderRepository) ListWithFilter(ctx context.Context, filter WorkOrderFilter) ([]domain.WorkOrder, error) {
	base := `SELECT ` + workOrderColumns + ` FROM work_orders`
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Etapas) > 0 {
		placeholders := make([]string, len(filter.Etapas))
		for i, etapa := range filter.Etapas {
			args = append(args, etapa)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("etapa IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Prioridades) > 0 {
		placeholders := make([]string, len(filter.Prioridades))
		for i, pr := range filter.Prioridades {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("prioridad IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.TechnicianID != nil {
		args = append(args, *filter.TechnicianID)
		clauses = append(clauses, fmt.Sprintf("technician_id=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d",
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWorkOrders(rows)
}

// ListOpen reads inside a repeatable-read transaction so the digest job sees a
// single point-in-time snapshot even while transitions commit concurrently.
func (r *workOrderRepository) ListOpen(ctx context.Context) ([]domain.WorkOrder, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `SELECT ` + workOrderColumns + `
        FROM work_orders
        WHERE etapa NOT IN ($1,$2)
        ORDER BY created_at ASC`
	rows, err := tx.Query(ctx, query, domain.EtapaCompletada, domain.EtapaCancelada)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result, err := collectWorkOrders(rows)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *workOrderRepository) SaveTransition(ctx context.Context, wo *domain.WorkOrder, entry *domain.StageHistoryEntry) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := applyTransition(ctx, tx, wo, entry); err != nil {
			return err
		}
		return nil
	})
}

func (r *workOrderRepository) SaveClosure(ctx context.Context, wo *domain.WorkOrder, entry *domain.StageHistoryEntry, sig *domain.ComplianceSignature) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insertSig = `
            INSERT INTO compliance_signatures (work_order_id, firmante_id, firmante_nombre, payload, numero_registro)
            VALUES ($1,$2,$3,$4,$5)
            RETURNING id, created_at`
		if err := tx.QueryRow(ctx, insertSig,
			sig.WorkOrderID,
			sig.FirmanteID,
			sig.FirmanteNombre,
			sig.Payload,
			sig.NumeroRegistro,
		).Scan(&sig.ID, &sig.CreatedAt); err != nil {
			if isPgCode(err, pgCodeUniqueViolation) {
				return ErrDuplicateSignature
			}
			return err
		}
		return applyTransition(ctx, tx, wo, entry)
	})
}

// applyTransition locks the row, verifies the expected previous stage, updates
// the projection fields, and appends the history entry inside the caller's tx.
func applyTransition(ctx context.Context, tx pgx.Tx, wo *domain.WorkOrder, entry *domain.StageHistoryEntry) error {
	var current domain.Etapa
	err := tx.QueryRow(ctx, `SELECT etapa FROM work_orders WHERE id=$1 FOR UPDATE NOWAIT`, wo.ID).Scan(&current)
	if err != nil {
		if isPgCode(err, pgCodeLockNotAvailable) {
			return ErrRowLocked
		}
		return err
	}
	if current != entry.EtapaAnterior {
		return ErrStaleStage
	}

	const update = `
        UPDATE work_orders SET etapa=$1, estado=$2, technician_id=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	if err := tx.QueryRow(ctx, update,
		wo.Etapa,
		wo.Estado,
		wo.TechnicianID,
		wo.ID,
	).Scan(&wo.UpdatedAt); err != nil {
		return err
	}

	const insertHistory = `
        INSERT INTO stage_history (work_order_id, etapa_anterior, etapa_nueva, actor_id, actor_nombre, nota)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return tx.QueryRow(ctx, insertHistory,
		entry.WorkOrderID,
		entry.EtapaAnterior,
		entry.EtapaNueva,
		entry.ActorID,
		entry.ActorNombre,
		entry.Nota,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *workOrderRepository) ListHistory(ctx context.Context, workOrderID int64) ([]domain.StageHistoryEntry, error) {
	const query = `
        SELECT id, work_order_id, etapa_anterior, etapa_nueva, actor_id, actor_nombre, nota, created_at
        FROM stage_history WHERE work_order_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, workOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StageHistoryEntry
	for rows.Next() {
		var entry domain.StageHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.WorkOrderID,
			&entry.EtapaAnterior,
			&entry.EtapaNueva,
			&entry.ActorID,
			&entry.ActorNombre,
			&entry.Nota,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkOrder(row rowScanner, wo *domain.WorkOrder) error {
	return row.Scan(
		&wo.ID,
		&wo.TipoSolicitud,
		&wo.Titulo,
		&wo.Descripcion,
		&wo.Etapa,
		&wo.Estado,
		&wo.Prioridad,
		&wo.TechnicianID,
		&wo.CreatedAt,
		&wo.UpdatedAt,
	)
}

func collectWorkOrders(rows pgx.Rows) ([]domain.WorkOrder, error) {
	var result []domain.WorkOrder
	for rows.Next() {
		var wo domain.WorkOrder
		if err := scanWorkOrder(rows, &wo); err != nil {
			return nil, err
		}
		result = append(result, wo)
	}
	return result, rows.Err()
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
