// Package vault holds the native-currency bank and the per-asset token book.
// Both are in-memory settlement primitives: balances never go negative,
// receiver hooks run outside the balance lock, and every failure is an error
// return rather than a panic.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"rabbit-launchpad/internal/account"
)

var (
	// ErrInsufficientBalance is returned when a debit exceeds the payer's
	// native balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientTokens is returned when a burn or token transfer
	// exceeds the holder's balance for that asset.
	ErrInsufficientTokens = errors.New("insufficient token balance")
	// ErrTransferRejected is returned when a receiver hook fails or times
	// out; the transfer is fully reverted before it is reported.
	ErrTransferRejected = errors.New("transfer rejected by receiver")
)

// Hook runs when an account receives native currency, after the balances
// have moved. A non-nil error reverts the transfer.
type Hook func(ctx context.Context, from, to account.Address, amount *uint256.Int) error

// Bank tracks native-currency balances for all accounts.
type Bank struct {
	mu       sync.Mutex
	balances map[account.Address]*uint256.Int
	hooks    map[account.Address]Hook

	hookTimeout time.Duration
	logger      *log.Logger
}

// NewBank returns an empty bank. Receiver hooks are bounded by hookTimeout;
// zero means one second.
func NewBank(hookTimeout time.Duration, logger *log.Logger) *Bank {
	if hookTimeout <= 0 {
		hookTimeout = time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Bank{
		balances:    make(map[account.Address]*uint256.Int),
		hooks:       make(map[account.Address]Hook),
		hookTimeout: hookTimeout,
		logger:      logger,
	}
}

// SetHook registers a receiver hook for addr. A nil hook removes it.
func (b *Bank) SetHook(addr account.Address, h Hook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if h == nil {
		delete(b.hooks, addr)
		return
	}
	b.hooks[addr] = h
}

// Deposit credits amount to addr unconditionally, used for funding accounts.
func (b *Bank) Deposit(addr account.Address, amount *uint256.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(addr, amount)
}

// Balance returns a copy of addr's native balance.
func (b *Bank) Balance(addr account.Address) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bal, ok := b.balances[addr]; ok {
		return new(uint256.Int).Set(bal)
	}
	return new(uint256.Int)
}

// Transfer moves amount from one account to another. Balances are updated
// first; the receiver hook, if any, runs afterwards outside the lock and a
// hook failure rolls the balances back before ErrTransferRejected is
// returned. A zero amount is a no-op.
func (b *Bank) Transfer(ctx context.Context, from, to account.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}

	b.mu.Lock()
	bal, ok := b.balances[from]
	if !ok || bal.Lt(amount) {
		b.mu.Unlock()
		return fmt.Errorf("transfer %s -> %s: %w", from, to, ErrInsufficientBalance)
	}
	bal.Sub(bal, amount)
	b.credit(to, amount)
	hook := b.hooks[to]
	b.mu.Unlock()

	if hook == nil {
		return nil
	}

	if err := b.runHook(ctx, hook, from, to, amount); err != nil {
		b.mu.Lock()
		// The hook ran outside the lock, so the receiver may have already
		// moved the funds on. Claw back only what is still there and refund
		// the payer that much; the rest sits wherever the hook sent it.
		recovered := new(uint256.Int).Set(amount)
		recv := b.balances[to]
		if recv == nil {
			recovered.Clear()
		} else if recv.Lt(amount) {
			recovered.Set(recv)
		}
		if recv != nil {
			recv.Sub(recv, recovered)
		}
		b.credit(from, recovered)
		b.mu.Unlock()
		if recovered.Lt(amount) {
			shortfall := new(uint256.Int).Sub(amount, recovered)
			b.logger.Printf("[vault] rollback shortfall: %s spent %s wei of a rejected transfer from %s",
				to, shortfall.Dec(), from)
		}
		return fmt.Errorf("transfer %s -> %s: %w: %v", from, to, ErrTransferRejected, err)
	}
	return nil
}

func (b *Bank) runHook(ctx context.Context, hook Hook, from, to account.Address, amount *uint256.Int) error {
	hookCtx, cancel := context.WithTimeout(ctx, b.hookTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- hook(hookCtx, from, to, new(uint256.Int).Set(amount))
	}()

	select {
	case err := <-done:
		return err
	case <-hookCtx.Done():
		b.logger.Printf("[vault] receiver hook for %s timed out after %s", to, b.hookTimeout)
		return hookCtx.Err()
	}
}

// credit must be called with b.mu held.
func (b *Bank) credit(addr account.Address, amount *uint256.Int) {
	if bal, ok := b.balances[addr]; ok {
		bal.Add(bal, amount)
		return
	}
	b.balances[addr] = new(uint256.Int).Set(amount)
}

// Leg is a single transfer within a batch.
type Leg struct {
	From   account.Address
	To     account.Address
	Amount *uint256.Int
	// Label names the leg in results and logs, e.g. "platform_fee".
	Label string
}

// Result reports the outcome of one batch leg.
type Result struct {
	Leg Leg
	Err error
}

// BatchTransfer executes the legs in order. Legs are independent: a failed
// leg is reported in its Result and the remaining legs still run.
func (b *Bank) BatchTransfer(ctx context.Context, legs []Leg) []Result {
	results := make([]Result, len(legs))
	for i, leg := range legs {
		err := b.Transfer(ctx, leg.From, leg.To, leg.Amount)
		if err != nil {
			b.logger.Printf("[vault] batch leg %q failed: %v", leg.Label, err)
		}
		results[i] = Result{Leg: leg, Err: err}
	}
	return results
}
