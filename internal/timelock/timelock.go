// Package timelock guards the administrative surface: destination address
// changes go through a propose/complete delay, and emergency withdrawals are
// rate limited and capped.
package timelock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"rabbit-launchpad/internal/account"
	"rabbit-launchpad/internal/vault"
)

// Delays and limits for the administrative operations.
const (
	TreasuryDelay     = 7 * 24 * time.Hour
	RouterDelay       = 24 * time.Hour
	EmergencyCooldown = 24 * time.Hour
)

// EmergencyCap is the maximum wei a single emergency withdrawal may move.
var EmergencyCap = uint256.MustFromDecimal("5000000000000000000")

var (
	// ErrTimelockNotExpired is returned when Complete* runs before the
	// delay has elapsed.
	ErrTimelockNotExpired = errors.New("timelock not expired")
	// ErrNoPendingUpdate is returned when Complete* runs without a prior
	// Initiate*.
	ErrNoPendingUpdate = errors.New("no pending update")
	// ErrAlreadyPending is returned when Initiate* runs while a change for
	// the same destination is already queued.
	ErrAlreadyPending = errors.New("update already pending")
	// ErrCooldownActive is returned when an emergency withdrawal runs
	// inside the cooldown window of the previous one.
	ErrCooldownActive = errors.New("emergency cooldown active")
	// ErrAmountExceedsCap is returned when an emergency withdrawal exceeds
	// the per-call cap.
	ErrAmountExceedsCap = errors.New("amount exceeds emergency cap")
	// ErrUnchangedValue is returned when Initiate* proposes the address
	// that is already active.
	ErrUnchangedValue = errors.New("value unchanged")
)

type pending struct {
	value      account.Address
	proposedAt time.Time
}

// Controller owns the mutable administrative parameters: the treasury that
// receives platform fees and the router that receives graduation liquidity.
type Controller struct {
	mu  sync.Mutex
	now func() time.Time

	treasury account.Address
	router   account.Address

	pendingTreasury *pending
	pendingRouter   *pending

	lastEmergency     time.Time
	emergencyInFlight bool

	bank   *vault.Bank
	pool   account.Address
	logger *log.Logger
}

// New returns a controller over the given bank and curve pool account.
func New(bank *vault.Bank, pool, treasury, router account.Address, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		now:      time.Now,
		treasury: treasury,
		router:   router,
		bank:     bank,
		pool:     pool,
		logger:   logger,
	}
}

// SetNowFunc overrides the clock, for tests.
func (c *Controller) SetNowFunc(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Treasury returns the active treasury address.
func (c *Controller) Treasury() account.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.treasury
}

// Router returns the active router address.
func (c *Controller) Router() account.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.router
}

// InitiateTreasuryUpdate queues a treasury change behind the 7-day delay.
func (c *Controller) InitiateTreasuryUpdate(next account.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if next == c.treasury {
		return fmt.Errorf("treasury update: %w", ErrUnchangedValue)
	}
	if c.pendingTreasury != nil {
		return fmt.Errorf("treasury update: %w", ErrAlreadyPending)
	}
	c.pendingTreasury = &pending{value: next, proposedAt: c.now()}
	c.logger.Printf("[timelock] treasury update queued: %s (effective after %s)", next, TreasuryDelay)
	return nil
}

// CompleteTreasuryUpdate applies the queued treasury change once the delay
// has elapsed.
func (c *Controller) CompleteTreasuryUpdate() (account.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingTreasury == nil {
		return account.Address{}, fmt.Errorf("treasury update: %w", ErrNoPendingUpdate)
	}
	if c.now().Sub(c.pendingTreasury.proposedAt) < TreasuryDelay {
		return account.Address{}, fmt.Errorf("treasury update: %w", ErrTimelockNotExpired)
	}
	c.treasury = c.pendingTreasury.value
	c.pendingTreasury = nil
	c.logger.Printf("[timelock] treasury updated: %s", c.treasury)
	return c.treasury, nil
}

// CancelTreasuryUpdate discards a queued treasury change.
func (c *Controller) CancelTreasuryUpdate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingTreasury == nil {
		return fmt.Errorf("treasury update: %w", ErrNoPendingUpdate)
	}
	c.pendingTreasury = nil
	return nil
}

// InitiateRouterUpdate queues a router change behind the 24-hour delay.
func (c *Controller) InitiateRouterUpdate(next account.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if next == c.router {
		return fmt.Errorf("router update: %w", ErrUnchangedValue)
	}
	if c.pendingRouter != nil {
		return fmt.Errorf("router update: %w", ErrAlreadyPending)
	}
	c.pendingRouter = &pending{value: next, proposedAt: c.now()}
	c.logger.Printf("[timelock] router update queued: %s (effective after %s)", next, RouterDelay)
	return nil
}

// CompleteRouterUpdate applies the queued router change once the delay has
// elapsed.
func (c *Controller) CompleteRouterUpdate() (account.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingRouter == nil {
		return account.Address{}, fmt.Errorf("router update: %w", ErrNoPendingUpdate)
	}
	if c.now().Sub(c.pendingRouter.proposedAt) < RouterDelay {
		return account.Address{}, fmt.Errorf("router update: %w", ErrTimelockNotExpired)
	}
	c.router = c.pendingRouter.value
	c.pendingRouter = nil
	c.logger.Printf("[timelock] router updated: %s", c.router)
	return c.router, nil
}

// CancelRouterUpdate discards a queued router change.
func (c *Controller) CancelRouterUpdate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingRouter == nil {
		return fmt.Errorf("router update: %w", ErrNoPendingUpdate)
	}
	c.pendingRouter = nil
	return nil
}

// EmergencyWithdraw moves up to EmergencyCap wei from the curve pool to the
// active treasury, at most once per cooldown window. At most one withdrawal
// is in flight at a time; overlapping calls are rejected like a cooldown.
func (c *Controller) EmergencyWithdraw(ctx context.Context, amount *uint256.Int) error {
	c.mu.Lock()
	if amount.Gt(EmergencyCap) {
		c.mu.Unlock()
		return fmt.Errorf("emergency withdraw %s: %w", amount.Dec(), ErrAmountExceedsCap)
	}
	now := c.now()
	if c.emergencyInFlight || (!c.lastEmergency.IsZero() && now.Sub(c.lastEmergency) < EmergencyCooldown) {
		c.mu.Unlock()
		return fmt.Errorf("emergency withdraw: %w", ErrCooldownActive)
	}
	c.emergencyInFlight = true
	treasury := c.treasury
	pool := c.pool
	c.mu.Unlock()

	err := c.bank.Transfer(ctx, pool, treasury, amount)

	c.mu.Lock()
	c.emergencyInFlight = false
	if err == nil {
		// A failed transfer does not start the cooldown.
		c.lastEmergency = now
	}
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("emergency withdraw: %w", err)
	}
	c.logger.Printf("[timelock] emergency withdrawal of %s wei to %s", amount.Dec(), treasury)
	return nil
}
