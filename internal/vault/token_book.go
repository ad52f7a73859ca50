package vault

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"rabbit-launchpad/internal/account"
)

// TokenBook tracks per-asset token balances. Mint and burn are restricted to
// the ledger by construction: nothing else holds a reference to the book.
type TokenBook struct {
	mu       sync.Mutex
	balances map[string]map[account.Address]*uint256.Int
}

// NewTokenBook returns an empty token book.
func NewTokenBook() *TokenBook {
	return &TokenBook{balances: make(map[string]map[account.Address]*uint256.Int)}
}

// Mint credits newly issued base units of asset to addr.
func (tb *TokenBook) Mint(asset string, to account.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()

	holders, ok := tb.balances[asset]
	if !ok {
		holders = make(map[account.Address]*uint256.Int)
		tb.balances[asset] = holders
	}
	if bal, ok := holders[to]; ok {
		bal.Add(bal, amount)
	} else {
		holders[to] = new(uint256.Int).Set(amount)
	}
	return nil
}

// Burn destroys base units of asset held by from.
func (tb *TokenBook) Burn(asset string, from account.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()

	bal, ok := tb.balances[asset][from]
	if !ok || bal.Lt(amount) {
		return fmt.Errorf("burn %s from %s: %w", asset, from, ErrInsufficientTokens)
	}
	bal.Sub(bal, amount)
	return nil
}

// Transfer moves base units of asset between holders.
func (tb *TokenBook) Transfer(asset string, from, to account.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()

	bal, ok := tb.balances[asset][from]
	if !ok || bal.Lt(amount) {
		return fmt.Errorf("token transfer %s -> %s: %w", from, to, ErrInsufficientTokens)
	}
	bal.Sub(bal, amount)

	holders := tb.balances[asset]
	if dst, ok := holders[to]; ok {
		dst.Add(dst, amount)
	} else {
		holders[to] = new(uint256.Int).Set(amount)
	}
	return nil
}

// Balance returns a copy of addr's balance for asset.
func (tb *TokenBook) Balance(asset string, addr account.Address) *uint256.Int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if bal, ok := tb.balances[asset][addr]; ok {
		return new(uint256.Int).Set(bal)
	}
	return new(uint256.Int)
}
