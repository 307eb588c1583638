package alerts

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an alert id does not exist.
var ErrNotFound = errors.New("alerts: not found")

// Repository persists alert records and their audit trail. Atomic runs fn
// as a single unit of work: a state change and its audit entry either both
// land or neither does.
type Repository interface {
	Atomic(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, rec *AlertRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*AlertRecord, error)
	Update(ctx context.Context, rec *AlertRecord) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, state string, limit, offset int) ([]*AlertRecord, int, error)
	ListByNote(ctx context.Context, noteID uuid.UUID) ([]*AlertRecord, error)
	AddAudit(ctx context.Context, entry *AlertAudit) error
	GetAudit(ctx context.Context, alertID uuid.UUID) ([]*AlertAudit, error)
}
