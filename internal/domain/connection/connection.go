package connection

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status defines the health of a bank connection
type Status string

const (
	StatusUnknown      Status = "unknown"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// Connection is an authenticated link to one bank-data provider, owning one
// or more synced accounts.
type Connection struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	Provider       string     `json:"provider"`
	Status         Status     `json:"status"`
	ReferenceID    string     `json:"reference_id"` // provider-side connection reference
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	ErrorDetails   *string    `json:"error_details,omitempty"`
	ErrorRetries   int        `json:"error_retries"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ErrInvalidTransition rejects a status change the state machine does not allow
type ErrInvalidTransition struct {
	From Status
	To   Status
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid connection status transition %s -> %s", e.From, e.To)
}

// canTransition encodes the allowed status moves: a probe can promote an
// unknown or re-authenticated connection to connected, and a connected
// connection can be demoted. Setting the current status again is a no-op.
func canTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusUnknown:
		return to == StatusConnected || to == StatusDisconnected
	case StatusConnected:
		return to == StatusDisconnected
	case StatusDisconnected:
		return to == StatusConnected // successful re-auth
	}
	return false
}

// TransitionTo moves the connection to the given status, enforcing the
// allowed transitions. Reaching connected clears error bookkeeping.
func (c *Connection) TransitionTo(to Status) error {
	if !canTransition(c.Status, to) {
		return ErrInvalidTransition{From: c.Status, To: to}
	}
	if to == StatusConnected {
		c.ErrorDetails = nil
		c.ErrorRetries = 0
	}
	c.Status = to
	c.UpdatedAt = time.Now()
	return nil
}

// Disconnect demotes the connection, keeping the reason for the user.
func (c *Connection) Disconnect(reason string) error {
	if err := c.TransitionTo(StatusDisconnected); err != nil {
		return err
	}
	if reason != "" {
		c.ErrorDetails = &reason
	}
	return nil
}
