// Package alerts persists fired red-flag alerts and the audit trail the
// core state machine hands back. The lifecycle rules live in the engine's
// redflag package; this domain stores state between requests and records
// who moved an alert forward and when.
package alerts

import (
	"time"

	"github.com/google/uuid"

	"github.com/clindx/clindx/internal/engine/redflag"
)

// Audit actions recorded against an alert.
const (
	ActionCreated      = "created"
	ActionDisplayed    = "displayed"
	ActionAcknowledged = "acknowledged"
)

// AlertRecord maps to the alert_record table: one fired red-flag rule for
// one patient, tracked from created through acknowledged.
type AlertRecord struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	PatientID         uuid.UUID  `db:"patient_id" json:"patient_id"`
	NoteID            *uuid.UUID `db:"note_id" json:"note_id,omitempty"`
	RuleID            string     `db:"rule_id" json:"rule_id"`
	Urgency           string     `db:"urgency" json:"urgency"`
	MatchedFindings   []string   `db:"matched_findings" json:"matched_findings"`
	RecommendedAction string     `db:"recommended_action" json:"recommended_action"`
	TimeCriticalNote  *string    `db:"time_critical_note" json:"time_critical_note,omitempty"`
	State             string     `db:"state" json:"state"`
	FiredAt           time.Time  `db:"fired_at" json:"fired_at"`
	DisplayedAt       *time.Time `db:"displayed_at" json:"displayed_at,omitempty"`
	AcknowledgedAt    *time.Time `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
	AckActor          *string    `db:"ack_actor" json:"ack_actor,omitempty"`
	AckReason         *string    `db:"ack_reason" json:"ack_reason,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// AlertAudit maps to the alert_audit table: one lifecycle action on one
// alert, with the acting user.
type AlertAudit struct {
	ID      uuid.UUID `db:"id" json:"id"`
	AlertID uuid.UUID `db:"alert_id" json:"alert_id"`
	Action  string    `db:"action" json:"action"`
	Actor   string    `db:"actor" json:"actor"`
	Reason  *string   `db:"reason" json:"reason,omitempty"`
	At      time.Time `db:"at" json:"at"`
}

// NewRecord builds a persistent record from a freshly detected core alert.
func NewRecord(patientID uuid.UUID, noteID *uuid.UUID, a redflag.Alert) *AlertRecord {
	rec := &AlertRecord{
		ID:                a.ID,
		PatientID:         patientID,
		NoteID:            noteID,
		RuleID:            a.RuleID,
		Urgency:           a.Urgency,
		MatchedFindings:   a.MatchedFindings,
		RecommendedAction: a.RecommendedAction,
		State:             a.State,
		FiredAt:           a.FiredAt,
	}
	if a.TimeCriticalNote != "" {
		note := a.TimeCriticalNote
		rec.TimeCriticalNote = &note
	}
	return rec
}

// toCore rebuilds the engine alert so its state machine enforces the
// transition being attempted.
func (r *AlertRecord) toCore() *redflag.Alert {
	a := &redflag.Alert{
		ID:                r.ID,
		RuleID:            r.RuleID,
		Urgency:           r.Urgency,
		MatchedFindings:   r.MatchedFindings,
		RecommendedAction: r.RecommendedAction,
		State:             r.State,
		FiredAt:           r.FiredAt,
		DisplayedAt:       r.DisplayedAt,
	}
	if r.TimeCriticalNote != nil {
		a.TimeCriticalNote = *r.TimeCriticalNote
	}
	if r.State == redflag.StateAcknowledged && r.AcknowledgedAt != nil && r.AckActor != nil {
		a.Acknowledgment = &redflag.Acknowledgment{At: *r.AcknowledgedAt, Actor: *r.AckActor}
		if r.AckReason != nil {
			a.Acknowledgment.Reason = *r.AckReason
		}
	}
	return a
}

// applyCore copies the outcome of a state machine transition back onto the
// record.
func (r *AlertRecord) applyCore(a *redflag.Alert) {
	r.State = a.State
	r.DisplayedAt = a.DisplayedAt
	if a.Acknowledgment != nil {
		at := a.Acknowledgment.At
		actor := a.Acknowledgment.Actor
		r.AcknowledgedAt = &at
		r.AckActor = &actor
		if a.Acknowledgment.Reason != "" {
			reason := a.Acknowledgment.Reason
			r.AckReason = &reason
		}
	}
}
