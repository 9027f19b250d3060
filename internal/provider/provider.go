// Package provider defines the abstract boundary to external bank-data
// integrations. Concrete clients (GoCardless, Plaid, ...) live outside this
// module and are registered by name.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrDisconnected classifies provider failures caused by a broken or expired
// bank link. Callers translate it into account/connection health state; it
// is never retried as a transient error.
var ErrDisconnected = errors.New("provider link is disconnected")

// ErrUnknownProvider signals a connection referencing a provider no client
// was registered for; terminal until a deployment fixes the registry.
var ErrUnknownProvider = errors.New("unknown provider")

// ConnectionStatus is the provider's view of a bank link
type ConnectionStatus struct {
	Status string `json:"status"` // "connected" or "disconnected"
}

// Account describes an account as listed by the provider
type Account struct {
	ExternalID  string          `json:"external_id"`
	Name        string          `json:"name"`
	Currency    string          `json:"currency"`
	Balance     decimal.Decimal `json:"balance"`
	Institution string          `json:"institution"`
}

// Balance is the provider's current balance for one account
type Balance struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Transaction is a raw provider transaction row. Date and amount stay as the
// provider formatted them and go through the normalizer.
type Transaction struct {
	RawID        string `json:"raw_id"`
	Date         string `json:"date"`
	Name         string `json:"name"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	Counterparty string `json:"counterparty,omitempty"`
	Method       string `json:"method,omitempty"`
}

// Client is the contract every bank-data integration implements
type Client interface {
	GetConnectionStatus(ctx context.Context, referenceID string) (*ConnectionStatus, error)
	GetAccounts(ctx context.Context, referenceID string) ([]Account, error)
	GetAccountBalance(ctx context.Context, accountID string) (*Balance, error)
	// GetTransactions returns the account's transactions; latest restricts
	// the fetch to the provider's recent window instead of full history.
	GetTransactions(ctx context.Context, accountID string, latest bool) ([]Transaction, error)
	DeleteConnection(ctx context.Context, referenceID string) error
}

// Registry resolves provider clients by name
type Registry struct {
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// Register adds a named client. Later registrations replace earlier ones.
func (r *Registry) Register(name string, client Client) {
	r.clients[name] = client
}

// Get returns the client registered under name
func (r *Registry) Get(name string) (Client, error) {
	client, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return client, nil
}
