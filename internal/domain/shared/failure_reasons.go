package shared

import "errors"

var (
	// ErrInvalidTransactionConnectedAccount rejects non-API writes dated after
	// t0 on a provider-synced account: live data on connected accounts may
	// only originate from sync or the explicit API source.
	ErrInvalidTransactionConnectedAccount = errors.New("INVALID_TRANSACTION_CONNECTED_ACCOUNT: connected account accepts only synced transactions after t0")

	// ErrOrganizationMismatch rejects cross-organization access to a resource.
	ErrOrganizationMismatch = errors.New("resource does not belong to the organization")
)

// FailureReason categorizes terminal sync task failures for the dead letter queue
type FailureReason string

const (
	FailureReasonAccountNotFound    FailureReason = "ACCOUNT_NOT_FOUND"
	FailureReasonConnectionNotFound FailureReason = "CONNECTION_NOT_FOUND"
	FailureReasonProviderUnknown    FailureReason = "PROVIDER_UNKNOWN"
	FailureReasonDisconnected       FailureReason = "PROVIDER_DISCONNECTED"
	FailureReasonInvalidPayload     FailureReason = "INVALID_PAYLOAD"
	FailureReasonMaxAttemptsReached FailureReason = "MAX_ATTEMPTS_REACHED"
	FailureReasonUnknownError       FailureReason = "UNKNOWN_ERROR"
)
