// Package token provides the balance ledger the pool engine settles
// against. The engine only needs balance reads and transfers; the in-memory
// implementation backs the simulator and tests.
package token

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ErrInsufficientBalance is returned when a transfer exceeds the sender's
// balance.
var ErrInsufficientBalance = errors.New("token: insufficient balance")

// Ledger is the engine's view of token balances. A failed transfer aborts
// the enclosing pool operation.
type Ledger interface {
	BalanceOf(token, account common.Address) *uint256.Int
	Transfer(token, from, to common.Address, amount *uint256.Int) error
}

type balanceKey struct {
	token   common.Address
	account common.Address
}

// MemLedger is an in-memory Ledger.
type MemLedger struct {
	balances map[balanceKey]*uint256.Int
}

func NewMemLedger() *MemLedger {
	return &MemLedger{balances: make(map[balanceKey]*uint256.Int)}
}

// Mint credits an account out of thin air. Simulator and test setup only.
func (l *MemLedger) Mint(token, account common.Address, amount *uint256.Int) {
	key := balanceKey{token, account}
	if bal, ok := l.balances[key]; ok {
		bal.Add(bal, amount)
		return
	}
	l.balances[key] = amount.Clone()
}

func (l *MemLedger) BalanceOf(token, account common.Address) *uint256.Int {
	if bal, ok := l.balances[balanceKey{token, account}]; ok {
		return bal.Clone()
	}
	return uint256.NewInt(0)
}

func (l *MemLedger) Transfer(token, from, to common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	fromKey := balanceKey{token, from}
	bal, ok := l.balances[fromKey]
	if !ok || bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	bal.Sub(bal, amount)

	toKey := balanceKey{token, to}
	if toBal, ok := l.balances[toKey]; ok {
		toBal.Add(toBal, amount)
	} else {
		l.balances[toKey] = amount.Clone()
	}
	return nil
}
