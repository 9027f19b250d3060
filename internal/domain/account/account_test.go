package account

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAccount_Connected(t *testing.T) {
	connID := uuid.New()

	tests := []struct {
		name     string
		account  Account
		expected bool
	}{
		{"synced account", Account{Manual: false, ConnectionID: &connID}, true},
		{"manual account", Account{Manual: true}, false},
		{"manual account with stale connection", Account{Manual: true, ConnectionID: &connID}, false},
		{"orphaned synced account", Account{Manual: false, ConnectionID: nil}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.account.Connected())
		})
	}
}

func TestAccount_FailureTracking(t *testing.T) {
	acc := &Account{}
	assert.False(t, acc.Unhealthy(), "fresh account is healthy")

	for i := 1; i < UnhealthyRetryThreshold; i++ {
		acc.RecordFailure()
		assert.False(t, acc.Unhealthy(), "account stays healthy below the threshold")
	}

	acc.RecordFailure()
	assert.True(t, acc.Unhealthy())

	acc.RecordSuccess()
	assert.Nil(t, acc.ErrorRetries)
	assert.False(t, acc.Unhealthy(), "any success heals the account")
}

func TestAccount_RecordFailureIncrements(t *testing.T) {
	acc := &Account{}

	acc.RecordFailure()
	assert.Equal(t, 1, *acc.ErrorRetries)

	acc.RecordFailure()
	assert.Equal(t, 2, *acc.ErrorRetries)
}
