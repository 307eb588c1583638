// Package consult manages consultation notes: the free-text clinical
// narrative plus structured vitals captured at the bedside. Notes are the
// input surface for the decision engine; evaluating a note runs its text
// and vitals through the assist pipeline.
package consult

import (
	"time"

	"github.com/google/uuid"

	"github.com/clindx/clindx/internal/engine/extract"
)

// Note statuses.
const (
	StatusDraft = "draft"
	StatusFinal = "final"
)

// Note maps to the consult_note table.
type Note struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	AuthorID        string     `db:"author_id" json:"author_id"`
	Body            string     `db:"body" json:"body"`
	Status          string     `db:"status" json:"status"`
	BPSystolic      *int       `db:"bp_systolic" json:"bp_systolic,omitempty"`
	BPDiastolic     *int       `db:"bp_diastolic" json:"bp_diastolic,omitempty"`
	PulseRate       *int       `db:"pulse_rate" json:"pulse_rate,omitempty"`
	TemperatureC    *float64   `db:"temperature_c" json:"temperature_c,omitempty"`
	SpO2            *int       `db:"spo2" json:"spo2,omitempty"`
	RespiratoryRate *int       `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	FinalizedAt     *time.Time `db:"finalized_at" json:"finalized_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Vitals returns the structured measurements as an extraction hint, or nil
// when none were recorded. Structured vitals take precedence over values
// parsed out of the note text.
func (n *Note) Vitals() *extract.Vitals {
	if n.BPSystolic == nil && n.BPDiastolic == nil && n.PulseRate == nil &&
		n.TemperatureC == nil && n.SpO2 == nil && n.RespiratoryRate == nil {
		return nil
	}
	return &extract.Vitals{
		BPSystolic:      n.BPSystolic,
		BPDiastolic:     n.BPDiastolic,
		PulseRate:       n.PulseRate,
		TemperatureC:    n.TemperatureC,
		SpO2:            n.SpO2,
		RespiratoryRate: n.RespiratoryRate,
	}
}
