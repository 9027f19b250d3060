package connection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnection_TransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"unknown to connected", StatusUnknown, StatusConnected, true},
		{"unknown to disconnected", StatusUnknown, StatusDisconnected, true},
		{"connected to disconnected", StatusConnected, StatusDisconnected, true},
		{"disconnected to connected after re-auth", StatusDisconnected, StatusConnected, true},
		{"same status is a no-op", StatusConnected, StatusConnected, true},
		{"connected to unknown", StatusConnected, StatusUnknown, false},
		{"disconnected to unknown", StatusDisconnected, StatusUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &Connection{Status: tt.from}
			err := conn.TransitionTo(tt.to)
			if tt.allowed {
				assert.NoError(t, err)
				assert.Equal(t, tt.to, conn.Status)
			} else {
				var invalid ErrInvalidTransition
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, tt.from, invalid.From)
				assert.Equal(t, tt.to, invalid.To)
				assert.Equal(t, tt.from, conn.Status, "status must not change on a rejected transition")
			}
		})
	}
}

func TestConnection_TransitionToConnectedClearsErrors(t *testing.T) {
	details := "token expired"
	conn := &Connection{
		Status:       StatusDisconnected,
		ErrorDetails: &details,
		ErrorRetries: 3,
	}

	require.NoError(t, conn.TransitionTo(StatusConnected))

	assert.Nil(t, conn.ErrorDetails)
	assert.Zero(t, conn.ErrorRetries)
}

func TestConnection_Disconnect(t *testing.T) {
	conn := &Connection{Status: StatusConnected}

	require.NoError(t, conn.Disconnect("provider reported the link as disconnected"))

	assert.Equal(t, StatusDisconnected, conn.Status)
	require.NotNil(t, conn.ErrorDetails)
	assert.Equal(t, "provider reported the link as disconnected", *conn.ErrorDetails)
}

func TestConnection_DisconnectWithoutReason(t *testing.T) {
	conn := &Connection{Status: StatusConnected}

	require.NoError(t, conn.Disconnect(""))

	assert.Equal(t, StatusDisconnected, conn.Status)
	assert.Nil(t, conn.ErrorDetails)
}
