package consult

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clindx/clindx/internal/domain/assist"
	"github.com/clindx/clindx/internal/engine/patient"
)

var validStatuses = map[string]bool{
	StatusDraft: true, StatusFinal: true,
}

type Service struct {
	repo   Repository
	assist *assist.Service
}

func NewService(repo Repository, assistSvc *assist.Service) *Service {
	return &Service{repo: repo, assist: assistSvc}
}

func (s *Service) Create(ctx context.Context, n *Note) error {
	if n.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if n.AuthorID == "" {
		return fmt.Errorf("author_id is required")
	}
	if n.Body == "" {
		return fmt.Errorf("body is required")
	}
	if n.Status == "" {
		n.Status = StatusDraft
	}
	if !validStatuses[n.Status] {
		return fmt.Errorf("invalid status: %s", n.Status)
	}
	return s.repo.Create(ctx, n)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Note, error) {
	return s.repo.GetByID(ctx, id)
}

// Update revises a draft note. Final notes are immutable; the record of
// what the clinician signed must not drift afterwards.
func (s *Service) Update(ctx context.Context, n *Note) error {
	existing, err := s.repo.GetByID(ctx, n.ID)
	if err != nil {
		return err
	}
	if existing.Status == StatusFinal {
		return fmt.Errorf("note %s is final and cannot be modified", n.ID)
	}
	if n.Body == "" {
		return fmt.Errorf("body is required")
	}
	if n.Status == "" {
		n.Status = existing.Status
	}
	if !validStatuses[n.Status] {
		return fmt.Errorf("invalid status: %s", n.Status)
	}
	if n.Status == StatusFinal {
		now := time.Now().UTC()
		n.FinalizedAt = &now
	}
	return s.repo.Update(ctx, n)
}

// Finalize moves a draft note to final, stamping the finalization time.
func (s *Service) Finalize(ctx context.Context, id uuid.UUID) (*Note, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Status == StatusFinal {
		return nil, fmt.Errorf("note %s is already final", id)
	}
	now := time.Now().UTC()
	n.Status = StatusFinal
	n.FinalizedAt = &now
	if err := s.repo.Update(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.Status == StatusFinal {
		return fmt.Errorf("note %s is final and cannot be deleted", id)
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Note, int, error) {
	if patientID == uuid.Nil {
		return nil, 0, fmt.Errorf("patient_id is required")
	}
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// Evaluate runs a stored note through the decision pipeline. The caller
// supplies the patient context; structured vitals on the note are passed as
// extraction hints alongside the narrative.
func (s *Service) Evaluate(ctx context.Context, id uuid.UUID, pctx patient.Context, topN int) (*assist.Evaluation, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.assist.Evaluate(ctx, assist.EvaluationRequest{
		Text:    n.Body,
		Vitals:  n.Vitals(),
		Patient: pctx,
		TopN:    topN,
	})
}
