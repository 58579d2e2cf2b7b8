package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/workorder-service/internal/domain"
)

// NoteRepository stores traceable notes. Append-only.
type NoteRepository interface {
	Create(ctx context.Context, note *domain.TraceableNote) error
	ListByWorkOrder(ctx context.Context, workOrderID int64) ([]domain.TraceableNote, error)
}

type noteRepository struct {
	pool *pgxpool.Pool
}

// NewNoteRepository builds repository.
func NewNoteRepository(pool *pgxpool.Pool) NoteRepository {
	return &noteRepository{pool: pool}
}

func (r *noteRepository) Create(ctx context.Context, note *domain.TraceableNote) error {
	const query = `
        INSERT INTO traceable_notes (work_order_id, autor_id, autor_nombre, texto)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		note.WorkOrderID,
		note.AutorID,
		note.AutorNombre,
		note.Texto,
	).Scan(&note.ID, &note.CreatedAt)
}

func (r *noteRepository) ListByWorkOrder(ctx context.Context, workOrderID int64) ([]domain.TraceableNote, error) {
	const query = `
        SELECT id, work_order_id, autor_id, autor_nombre, texto, created_at
        FROM traceable_notes WHERE work_order_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, workOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TraceableNote
	for rows.Next() {
		var note domain.TraceableNote
		if err := rows.Scan(
			&note.ID,
			&note.WorkOrderID,
			&note.AutorID,
			&note.AutorNombre,
			&note.Texto,
			&note.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, note)
	}
	return result, rows.Err()
}
