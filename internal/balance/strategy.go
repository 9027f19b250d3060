package balance

import "github.com/matteobad/badget-sync/internal/domain/account"

// AccumulationStrategy is the closed set of ways a daily closing balance is
// derived from the transaction set.
type AccumulationStrategy int

const (
	// Forward accumulates from the opening balance: the strategy for manual
	// accounts, where the user-entered ledger is the source of truth.
	Forward AccumulationStrategy = iota
	// Reverse walks backward from the provider's current balance by undoing
	// future transactions: the strategy for connected accounts, where the
	// provider's balance is the source of truth.
	Reverse
)

func (s AccumulationStrategy) String() string {
	if s == Forward {
		return "forward"
	}
	return "reverse"
}

// StrategyFor selects the accumulation strategy for an account
func StrategyFor(acc *account.Account) AccumulationStrategy {
	if acc.Manual {
		return Forward
	}
	return Reverse
}
