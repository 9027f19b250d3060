package connection

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines connection persistence operations
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Connection, error)
	Update(ctx context.Context, conn *Connection) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByOrganization returns every connection of the organization.
	ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]*Connection, error)

	// ListOrganizations returns the distinct organization ids that own at
	// least one connection; the scheduler fans out over this set.
	ListOrganizations(ctx context.Context) ([]uuid.UUID, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrConnectionNotFound indicates missing connection
type ErrConnectionNotFound struct {
	ConnectionID uuid.UUID
}

func (e ErrConnectionNotFound) Error() string {
	return "connection not found: " + e.ConnectionID.String()
}
