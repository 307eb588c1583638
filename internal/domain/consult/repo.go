package consult

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a note id does not exist.
var ErrNotFound = errors.New("consult: not found")

// Repository persists consultation notes.
type Repository interface {
	Create(ctx context.Context, n *Note) error
	GetByID(ctx context.Context, id uuid.UUID) (*Note, error)
	Update(ctx context.Context, n *Note) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Note, int, error)
}
