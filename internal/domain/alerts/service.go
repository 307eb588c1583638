package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clindx/clindx/internal/engine/redflag"
	"github.com/clindx/clindx/internal/platform/telemetry"
)

type Service struct {
	repo    Repository
	metrics *telemetry.Provider
}

// NewService creates the alert lifecycle service. The metrics provider may
// be nil.
func NewService(repo Repository, metrics *telemetry.Provider) *Service {
	return &Service{repo: repo, metrics: metrics}
}

// RegisterFired persists freshly detected alerts for a patient, each with a
// created audit entry attributed to actor. Detection itself happens in the
// evaluation path; registration is the caller's explicit decision to track
// the alerts.
func (s *Service) RegisterFired(ctx context.Context, patientID uuid.UUID, noteID *uuid.UUID, actor string, fired []redflag.Alert) ([]*AlertRecord, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if actor == "" {
		return nil, fmt.Errorf("actor is required")
	}
	for _, a := range fired {
		if a.State != redflag.StateCreated {
			return nil, fmt.Errorf("alert %s is in state %q, only created alerts can be registered", a.ID, a.State)
		}
	}

	// The batch is all-or-nothing: no record may exist without its created
	// audit entry, and a failure halfway must not leave a partial batch.
	records := make([]*AlertRecord, 0, len(fired))
	err := s.repo.Atomic(ctx, func(ctx context.Context) error {
		for _, a := range fired {
			rec := NewRecord(patientID, noteID, a)
			if err := s.repo.Create(ctx, rec); err != nil {
				return fmt.Errorf("create alert record: %w", err)
			}
			audit := &AlertAudit{AlertID: rec.ID, Action: ActionCreated, Actor: actor, At: time.Now().UTC()}
			if err := s.repo.AddAudit(ctx, audit); err != nil {
				return fmt.Errorf("record alert audit: %w", err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		for _, rec := range records {
			s.metrics.AlertRegistered(rec.Urgency)
		}
	}
	return records, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*AlertRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, state string, limit, offset int) ([]*AlertRecord, int, error) {
	if patientID == uuid.Nil {
		return nil, 0, fmt.Errorf("patient_id is required")
	}
	return s.repo.ListByPatient(ctx, patientID, state, limit, offset)
}

func (s *Service) ListByNote(ctx context.Context, noteID uuid.UUID) ([]*AlertRecord, error) {
	if noteID == uuid.Nil {
		return nil, fmt.Errorf("note_id is required")
	}
	return s.repo.ListByNote(ctx, noteID)
}

// MarkDisplayed records that the alert reached a screen. Repeating the call
// on an already-displayed alert keeps the first display time and writes no
// second audit entry.
func (s *Service) MarkDisplayed(ctx context.Context, id uuid.UUID, actor string) (*AlertRecord, error) {
	if actor == "" {
		return nil, fmt.Errorf("actor is required")
	}
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	alreadyDisplayed := rec.State == redflag.StateDisplayed

	core := rec.toCore()
	if err := core.MarkDisplayed(); err != nil {
		return nil, err
	}
	rec.applyCore(core)
	if alreadyDisplayed {
		return rec, nil
	}
	err = s.repo.Atomic(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, rec); err != nil {
			return fmt.Errorf("update alert record: %w", err)
		}
		audit := &AlertAudit{AlertID: rec.ID, Action: ActionDisplayed, Actor: actor, At: *rec.DisplayedAt}
		if err := s.repo.AddAudit(ctx, audit); err != nil {
			return fmt.Errorf("record alert audit: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Acknowledge dismisses a displayed alert on behalf of actor, recording the
// reason in the audit trail. Transition errors from the state machine pass
// through unwrapped so callers can match redflag.ErrInvalidTransition.
func (s *Service) Acknowledge(ctx context.Context, id uuid.UUID, actor, reason string) (*AlertRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	core := rec.toCore()
	ack, err := core.Acknowledge(actor, reason)
	if err != nil {
		return nil, err
	}
	rec.applyCore(core)
	err = s.repo.Atomic(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, rec); err != nil {
			return fmt.Errorf("update alert record: %w", err)
		}
		audit := &AlertAudit{AlertID: rec.ID, Action: ActionAcknowledged, Actor: ack.Actor, At: ack.At}
		if reason != "" {
			audit.Reason = &reason
		}
		if err := s.repo.AddAudit(ctx, audit); err != nil {
			return fmt.Errorf("record alert audit: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) Audit(ctx context.Context, id uuid.UUID) ([]*AlertAudit, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetAudit(ctx, id)
}
