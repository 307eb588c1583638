// Package redflag screens finding sets against conjunctive safety rules
// and manages the resulting alerts through a forward-only lifecycle. Rules
// are deliberately key-based and independent of the ranking engine: a rule
// fires on its findings alone, whatever the differential says.
package redflag

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Alert lifecycle states. Transitions only move forward: created to
// displayed to acknowledged. Alerts never expire on their own.
const (
	StateCreated      = "created"
	StateDisplayed    = "displayed"
	StateAcknowledged = "acknowledged"
)

// ErrInvalidTransition is returned for any lifecycle move that would skip
// or rewind a state, such as acknowledging an alert that was never shown.
var ErrInvalidTransition = errors.New("redflag: invalid alert transition")

// Acknowledgment is the audit record captured when a clinician dismisses
// an alert.
type Acknowledgment struct {
	At     time.Time `json:"at"`
	Actor  string    `json:"actor"`
	Reason string    `json:"reason,omitempty"`
}

// Alert is one fired red-flag rule for one evaluation.
type Alert struct {
	ID                uuid.UUID       `json:"id"`
	RuleID            string          `json:"rule_id"`
	Urgency           string          `json:"urgency"`
	MatchedFindings   []string        `json:"matched_findings"`
	RecommendedAction string          `json:"recommended_action"`
	TimeCriticalNote  string          `json:"time_critical_note,omitempty"`
	State             string          `json:"state"`
	FiredAt           time.Time       `json:"fired_at"`
	DisplayedAt       *time.Time      `json:"displayed_at,omitempty"`
	Acknowledgment    *Acknowledgment `json:"acknowledgment,omitempty"`
}

// MarkDisplayed records that the alert reached a clinician's screen.
// Displaying an already-displayed alert is a no-op that keeps the first
// display time; any other repeat transition is rejected.
func (a *Alert) MarkDisplayed() error {
	switch a.State {
	case StateCreated:
		now := time.Now().UTC()
		a.State = StateDisplayed
		a.DisplayedAt = &now
		return nil
	case StateDisplayed:
		return nil
	default:
		return fmt.Errorf("redflag: mark displayed in state %q: %w", a.State, ErrInvalidTransition)
	}
}

// Acknowledge dismisses a displayed alert and returns the audit record.
// An alert that was never displayed cannot be acknowledged; there is no
// path back out of acknowledged.
func (a *Alert) Acknowledge(actor, reason string) (*Acknowledgment, error) {
	if actor == "" {
		return nil, fmt.Errorf("redflag: acknowledge alert %s: actor required", a.ID)
	}
	if a.State != StateDisplayed {
		return nil, fmt.Errorf("redflag: acknowledge in state %q: %w", a.State, ErrInvalidTransition)
	}
	ack := &Acknowledgment{At: time.Now().UTC(), Actor: actor, Reason: reason}
	a.State = StateAcknowledged
	a.Acknowledgment = ack
	return ack, nil
}
