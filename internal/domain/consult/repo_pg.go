package consult

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clindx/clindx/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type noteRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &noteRepoPG{pool: pool} }

func (r *noteRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const noteCols = `id, patient_id, author_id, body, status, bp_systolic, bp_diastolic,
	pulse_rate, temperature_c, spo2, respiratory_rate, finalized_at, created_at, updated_at`

func (r *noteRepoPG) scanNote(row pgx.Row) (*Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.PatientID, &n.AuthorID, &n.Body, &n.Status, &n.BPSystolic, &n.BPDiastolic,
		&n.PulseRate, &n.TemperatureC, &n.SpO2, &n.RespiratoryRate, &n.FinalizedAt, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &n, err
}

func (r *noteRepoPG) Create(ctx context.Context, n *Note) error {
	n.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO consult_note (id, patient_id, author_id, body, status, bp_systolic, bp_diastolic,
			pulse_rate, temperature_c, spo2, respiratory_rate)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		n.ID, n.PatientID, n.AuthorID, n.Body, n.Status, n.BPSystolic, n.BPDiastolic,
		n.PulseRate, n.TemperatureC, n.SpO2, n.RespiratoryRate)
	return err
}

func (r *noteRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Note, error) {
	return r.scanNote(r.conn(ctx).QueryRow(ctx, `SELECT `+noteCols+` FROM consult_note WHERE id = $1`, id))
}

func (r *noteRepoPG) Update(ctx context.Context, n *Note) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE consult_note SET body=$2, status=$3, bp_systolic=$4, bp_diastolic=$5,
			pulse_rate=$6, temperature_c=$7, spo2=$8, respiratory_rate=$9, finalized_at=$10, updated_at=NOW()
		WHERE id = $1`,
		n.ID, n.Body, n.Status, n.BPSystolic, n.BPDiastolic,
		n.PulseRate, n.TemperatureC, n.SpO2, n.RespiratoryRate, n.FinalizedAt)
	return err
}

func (r *noteRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM consult_note WHERE id = $1`, id)
	return err
}

func (r *noteRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Note, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM consult_note WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+noteCols+` FROM consult_note WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Note
	for rows.Next() {
		n, err := r.scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, nil
}
