package alerts

import (
	"context"
	"errors"
	"strconv"

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

type alertRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &alertRepoPG{pool: pool} }

func (r *alertRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

// Atomic opens a transaction and threads it through the context, so every
// repository call inside fn joins it. Already inside a transaction it just
// runs fn.
func (r *alertRepoPG) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if db.TxFromContext(ctx) != nil {
		return fn(ctx)
	}
	return db.InTx(ctx, r.pool, fn)
}

const alertCols = `id, patient_id, note_id, rule_id, urgency, matched_findings,
	recommended_action, time_critical_note, state, fired_at, displayed_at,
	acknowledged_at, ack_actor, ack_reason, created_at, updated_at`

func (r *alertRepoPG) scanAlert(row pgx.Row) (*AlertRecord, error) {
	var rec AlertRecord
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.NoteID, &rec.RuleID, &rec.Urgency, &rec.MatchedFindings,
		&rec.RecommendedAction, &rec.TimeCriticalNote, &rec.State, &rec.FiredAt, &rec.DisplayedAt,
		&rec.AcknowledgedAt, &rec.AckActor, &rec.AckReason, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &rec, err
}

func (r *alertRepoPG) Create(ctx context.Context, rec *AlertRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO alert_record (id, patient_id, note_id, rule_id, urgency, matched_findings,
			recommended_action, time_critical_note, state, fired_at, displayed_at,
			acknowledged_at, ack_actor, ack_reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		rec.ID, rec.PatientID, rec.NoteID, rec.RuleID, rec.Urgency, rec.MatchedFindings,
		rec.RecommendedAction, rec.TimeCriticalNote, rec.State, rec.FiredAt, rec.DisplayedAt,
		rec.AcknowledgedAt, rec.AckActor, rec.AckReason)
	return err
}

func (r *alertRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*AlertRecord, error) {
	return r.scanAlert(r.conn(ctx).QueryRow(ctx, `SELECT `+alertCols+` FROM alert_record WHERE id = $1`, id))
}

func (r *alertRepoPG) Update(ctx context.Context, rec *AlertRecord) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE alert_record SET state=$2, displayed_at=$3, acknowledged_at=$4, ack_actor=$5, ack_reason=$6, updated_at=NOW()
		WHERE id = $1`,
		rec.ID, rec.State, rec.DisplayedAt, rec.AcknowledgedAt, rec.AckActor, rec.AckReason)
	return err
}

func (r *alertRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, state string, limit, offset int) ([]*AlertRecord, int, error) {
	where := `WHERE patient_id = $1`
	args := []interface{}{patientID}
	if state != "" {
		where += ` AND state = $2`
		args = append(args, state)
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM alert_record `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	query := `SELECT ` + alertCols + ` FROM alert_record ` + where +
		` ORDER BY fired_at DESC LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*AlertRecord
	for rows.Next() {
		rec, err := r.scanAlert(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, nil
}

func (r *alertRepoPG) ListByNote(ctx context.Context, noteID uuid.UUID) ([]*AlertRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+alertCols+` FROM alert_record WHERE note_id = $1 ORDER BY fired_at DESC`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*AlertRecord
	for rows.Next() {
		rec, err := r.scanAlert(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, nil
}

func (r *alertRepoPG) AddAudit(ctx context.Context, entry *AlertAudit) error {
	entry.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO alert_audit (id, alert_id, action, actor, reason, at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		entry.ID, entry.AlertID, entry.Action, entry.Actor, entry.Reason, entry.At)
	return err
}

func (r *alertRepoPG) GetAudit(ctx context.Context, alertID uuid.UUID) ([]*AlertAudit, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, alert_id, action, actor, reason, at
		FROM alert_audit WHERE alert_id = $1 ORDER BY at`, alertID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*AlertAudit
	for rows.Next() {
		var entry AlertAudit
		if err := rows.Scan(&entry.ID, &entry.AlertID, &entry.Action, &entry.Actor, &entry.Reason, &entry.At); err != nil {
			return nil, err
		}
		items = append(items, &entry)
	}
	return items, nil
}
