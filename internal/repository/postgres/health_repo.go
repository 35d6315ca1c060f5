package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/huddleapp/huddle/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type HealthRepo struct {
	pool *pgxpool.Pool
}

func NewHealthRepo(pool *pgxpool.Pool) *HealthRepo {
	return &HealthRepo{pool: pool}
}

func (r *HealthRepo) Create(ctx context.Context, rec *domain.HealthRecord) error {
	query := `
		INSERT INTO health_records (id, player_id, type, status, severity, title, notes,
			recorded_by, occurred_at, resolved_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.PlayerID, rec.Type, rec.Status, rec.Severity, rec.Title, rec.Notes,
		rec.RecordedBy, rec.OccurredAt, rec.ResolvedAt, rec.CreatedAt, rec.UpdatedAt,
	)
	return err
}

const healthSelect = `
	SELECT h.id, h.player_id, h.type, h.status, h.severity, h.title, h.notes,
		h.recorded_by, h.occurred_at, h.resolved_at, h.created_at, h.updated_at,
		u.username, u.display_name
	FROM health_records h
	JOIN users u ON h.player_id = u.id`

func scanHealthRecord(row pgx.Row) (*domain.HealthRecord, error) {
	var rec domain.HealthRecord
	err := row.Scan(
		&rec.ID, &rec.PlayerID, &rec.Type, &rec.Status, &rec.Severity, &rec.Title, &rec.Notes,
		&rec.RecordedBy, &rec.OccurredAt, &rec.ResolvedAt, &rec.CreatedAt, &rec.UpdatedAt,
		&rec.PlayerUsername, &rec.PlayerDisplayName,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *HealthRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.HealthRecord, error) {
	rec, err := scanHealthRecord(r.pool.QueryRow(ctx, healthSelect+` WHERE h.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (r *HealthRepo) ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]domain.HealthRecord, error) {
	query := healthSelect + ` WHERE h.player_id = $1 ORDER BY h.occurred_at DESC`
	rows, err := r.pool.Query(ctx, query, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.HealthRecord
	for rows.Next() {
		rec, err := scanHealthRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (r *HealthRepo) Update(ctx context.Context, rec *domain.HealthRecord) error {
	query := `
		UPDATE health_records
		SET status = $1, severity = $2, title = $3, notes = $4, resolved_at = $5, updated_at = $6
		WHERE id = $7`
	_, err := r.pool.Exec(ctx, query,
		rec.Status, rec.Severity, rec.Title, rec.Notes, rec.ResolvedAt, time.Now(), rec.ID,
	)
	return err
}

func (r *HealthRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM health_records WHERE id = $1`, id)
	return err
}
