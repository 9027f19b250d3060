package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/matteobad/badget-sync/internal/domain/connection"
	"github.com/matteobad/badget-sync/internal/platform/persistence"
)

const connectionColumns = `id, organization_id, provider, status, reference_id, expires_at,
		error_details, error_retries, created_at, updated_at`

// ConnectionRepository implements the connection.Repository interface for PostgreSQL
type ConnectionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewConnectionRepository creates a new PostgreSQL connection repository
func NewConnectionRepository(logger *slog.Logger, db *persistence.PostgresDB) connection.Repository {
	return &ConnectionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx rebinds the repository to a transaction
func (r *ConnectionRepository) WithTx(tx pgx.Tx) connection.Repository {
	return &ConnectionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanConnection(row pgx.Row) (*connection.Connection, error) {
	var conn connection.Connection
	err := row.Scan(
		&conn.ID,
		&conn.OrganizationID,
		&conn.Provider,
		&conn.Status,
		&conn.ReferenceID,
		&conn.ExpiresAt,
		&conn.ErrorDetails,
		&conn.ErrorRetries,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// GetByID retrieves a connection by its ID
func (r *ConnectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*connection.Connection, error) {
	query := `
		SELECT ` + connectionColumns + `
		FROM connections
		WHERE id = $1
	`

	conn, err := scanConnection(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, connection.ErrConnectionNotFound{ConnectionID: id}
		}
		r.logger.Error("Failed to get connection", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	return conn, nil
}

// Update persists the connection's status and error bookkeeping
func (r *ConnectionRepository) Update(ctx context.Context, conn *connection.Connection) error {
	query := `
		UPDATE connections
		SET status = $1, expires_at = $2, error_details = $3, error_retries = $4, updated_at = NOW()
		WHERE id = $5
	`

	result, err := r.querier.Exec(ctx, query,
		conn.Status,
		conn.ExpiresAt,
		conn.ErrorDetails,
		conn.ErrorRetries,
		conn.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update connection", "id", conn.ID.String(), "error", err)
		return fmt.Errorf("failed to update connection: %w", err)
	}
	if result.RowsAffected() == 0 {
		return connection.ErrConnectionNotFound{ConnectionID: conn.ID}
	}

	return nil
}

// Delete removes a connection row
func (r *ConnectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.querier.Exec(ctx, `DELETE FROM connections WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete connection", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	if result.RowsAffected() == 0 {
		return connection.ErrConnectionNotFound{ConnectionID: id}
	}

	return nil
}

// ListByOrganization returns every connection of the organization
func (r *ConnectionRepository) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]*connection.Connection, error) {
	query := `
		SELECT ` + connectionColumns + `
		FROM connections
		WHERE organization_id = $1
		ORDER BY created_at
	`

	rows, err := r.querier.Query(ctx, query, organizationID)
	if err != nil {
		r.logger.Error("Failed to list connections", "organization_id", organizationID.String(), "error", err)
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	var conns []*connection.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection row: %w", err)
		}
		conns = append(conns, conn)
	}

	return conns, rows.Err()
}

// ListOrganizations returns the distinct organization ids owning connections
func (r *ConnectionRepository) ListOrganizations(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.querier.Query(ctx, `SELECT DISTINCT organization_id FROM connections`)
	if err != nil {
		r.logger.Error("Failed to list organizations", "error", err)
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan organization id: %w", err)
		}
		orgs = append(orgs, id)
	}

	return orgs, rows.Err()
}
