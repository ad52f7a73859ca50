// Package ledger is the market state machine: asset creation, curve trades,
// graduation and the admin-facing queries. All balance movement goes through
// the vault layer, all state changes land in the asset store before any
// funds leave the pool.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/holiman/uint256"

	"rabbit-launchpad/internal/account"
	"rabbit-launchpad/internal/assetid"
	"rabbit-launchpad/internal/curve"
	"rabbit-launchpad/internal/domain"
	"rabbit-launchpad/internal/observability"
	"rabbit-launchpad/internal/storage"
	"rabbit-launchpad/internal/vault"
)

const (
	maxNameLen   = 64
	maxSymbolLen = 16
)

// Bank moves native currency. Satisfied by vault.Bank.
type Bank interface {
	Transfer(ctx context.Context, from, to account.Address, amount *uint256.Int) error
	BatchTransfer(ctx context.Context, legs []vault.Leg) []vault.Result
	Balance(addr account.Address) *uint256.Int
}

// TokenBook mints, burns and reports asset token balances. Satisfied by
// vault.TokenBook.
type TokenBook interface {
	Mint(asset string, to account.Address, amount *uint256.Int) error
	Burn(asset string, from account.Address, amount *uint256.Int) error
	Balance(asset string, addr account.Address) *uint256.Int
}

// Admin resolves the current fee and liquidity destinations. Satisfied by
// timelock.Controller.
type Admin interface {
	Treasury() account.Address
	Router() account.Address
}

// Config wires a Ledger.
type Config struct {
	Params curve.Params
	Assets storage.AssetStore
	Bank   Bank
	Tokens TokenBook
	Admin  Admin

	// Sink receives domain events. Optional.
	Sink domain.EventSink
	// Trades receives analytics points for buys and sells. Optional.
	Trades storage.TradePointStore

	Logger *log.Logger
}

// Ledger owns all market mutations. One in-flight operation per asset:
// overlapping calls, including re-entry through receiver hooks, are
// rejected with ErrReentrantCall.
type Ledger struct {
	params curve.Params
	assets storage.AssetStore
	bank   Bank
	tokens TokenBook
	admin  Admin
	sink   domain.EventSink
	trades storage.TradePointStore
	logger *log.Logger

	pool account.Address
	now  func() int64 // Unix milliseconds

	mu      sync.Mutex
	markets map[string]*market
	seq     map[string]uint64 // per-creator creation sequence
}

type market struct {
	inflight atomic.Bool
}

// New creates a Ledger. Params, Assets, Bank, Tokens and Admin are required.
func New(cfg Config) (*Ledger, error) {
	if cfg.Assets == nil || cfg.Bank == nil || cfg.Tokens == nil || cfg.Admin == nil {
		return nil, fmt.Errorf("ledger config: missing required dependency")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Ledger{
		params:  cfg.Params,
		assets:  cfg.Assets,
		bank:    cfg.Bank,
		tokens:  cfg.Tokens,
		admin:   cfg.Admin,
		sink:    cfg.Sink,
		trades:  cfg.Trades,
		logger:  logger,
		pool:    account.Derive("curve-pool"),
		now:     func() int64 { return time.Now().UnixMilli() },
		markets: make(map[string]*market),
		seq:     make(map[string]uint64),
	}, nil
}

// Pool returns the internal account holding curve liquidity.
func (l *Ledger) Pool() account.Address {
	return l.pool
}

// SetNowFunc overrides the millisecond clock, for tests.
func (l *Ledger) SetNowFunc(now func() int64) {
	l.now = now
}

// enter acquires the per-asset operation slot. The returned release func
// must be called when the operation completes.
func (l *Ledger) enter(assetID string) (func(), error) {
	l.mu.Lock()
	m, ok := l.markets[assetID]
	if !ok {
		m = &market{}
		l.markets[assetID] = m
	}
	l.mu.Unlock()

	if !m.inflight.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("asset %s: %w", assetID, ErrReentrantCall)
	}
	return func() { m.inflight.Store(false) }, nil
}

func (l *Ledger) nextSeq(creator string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := l.seq[creator]
	l.seq[creator] = n + 1
	return n
}

// TradeReceipt reports a completed buy or sell.
type TradeReceipt struct {
	AssetID string
	Side    string

	// Payment is the gross wei paid in (buy) or the gross curve proceeds
	// before fees (sell).
	Payment     *uint256.Int
	Tokens      *uint256.Int
	PlatformFee *uint256.Int
	CreatorFee  *uint256.Int
	// NetAmount is the wei that reached the curve (buy) or the seller (sell).
	NetAmount *uint256.Int

	// NewPrice is the spot price after the trade, wei per whole token.
	NewPrice *uint256.Int

	// GraduationReady reports whether the raise target has been met.
	GraduationReady bool
}

// GraduationReceipt reports a completed graduation.
type GraduationReceipt struct {
	AssetID       string
	LiquidityWei  *uint256.Int
	ReserveTokens *uint256.Int
	GraduatedAt   int64
}

// Create launches a new asset market. The fee must equal the configured
// creation fee exactly and is transferred to the treasury up front.
func (l *Ledger) Create(ctx context.Context, creator account.Address, name, symbol string, fee *uint256.Int) (*domain.Asset, error) {
	if name == "" || len(name) > maxNameLen || symbol == "" || len(symbol) > maxSymbolLen {
		return nil, fmt.Errorf("create %q/%q: %w", name, symbol, ErrInvalidMetadata)
	}
	if fee == nil || !fee.Eq(l.params.CreateFee) {
		return nil, fmt.Errorf("create: %w: want %s", ErrInvalidFee, l.params.CreateFee.Dec())
	}

	treasury := l.admin.Treasury()
	if err := l.bank.Transfer(ctx, creator, treasury, fee); err != nil {
		return nil, fmt.Errorf("create: collect fee: %w", err)
	}

	id := assetid.New(name, symbol, creator.String(), l.nextSeq(creator.String()))
	asset := domain.NewAsset(id, name, symbol, creator.String(), l.now())

	if err := l.assets.Insert(ctx, asset); err != nil {
		if refundErr := l.bank.Transfer(ctx, treasury, creator, fee); refundErr != nil {
			l.logger.Printf("[ledger] create %s: fee refund failed: %v", id, refundErr)
		}
		return nil, fmt.Errorf("create %s: %w: %v", id, ErrSettlementFailed, err)
	}

	observability.RecordAssetCreated()
	observability.RecordFees("treasury", toFloat(fee))
	l.emit(ctx, domain.Event{
		Type:          domain.EventAssetCreated,
		AssetID:       id,
		Actor:         asset.Creator,
		PaymentAmount: fee.Dec(),
		Timestamp:     asset.CreatedAt,
	})
	l.logger.Printf("[ledger] asset created: %s (%s/%s) by %s", id, name, symbol, asset.Creator)
	return asset.Clone(), nil
}

// Buy purchases tokens from the curve. The full payment is pulled into the
// pool first, state is committed, tokens are minted, and only then do the
// fee legs run. A failed fee leg does not revert the trade.
func (l *Ledger) Buy(ctx context.Context, buyer account.Address, assetID string, payment *uint256.Int) (*TradeReceipt, error) {
	start := time.Now()
	release, err := l.enter(assetID)
	if err != nil {
		observability.RecordTradeError("buy", "reentrant")
		return nil, err
	}
	defer release()

	asset, err := l.loadAsset(ctx, assetID)
	if err != nil {
		observability.RecordTradeError("buy", "not_found")
		return nil, err
	}
	if asset.Graduated {
		observability.RecordTradeError("buy", "graduated")
		return nil, fmt.Errorf("buy %s: %w", assetID, ErrAlreadyGraduated)
	}
	if payment == nil || payment.IsZero() {
		observability.RecordTradeError("buy", "invalid_amount")
		return nil, fmt.Errorf("buy %s: %w", assetID, ErrInvalidAmount)
	}

	platformFee, creatorFee, net, err := l.params.FeeBreakdown(payment)
	if err != nil {
		return nil, fmt.Errorf("buy %s: fee breakdown: %w", assetID, err)
	}

	tokens, err := l.params.TokensForPayment(asset.SoldSupply, net)
	if err != nil {
		observability.RecordTradeError("buy", "curve")
		return nil, fmt.Errorf("buy %s: %w", assetID, err)
	}
	if tokens.IsZero() {
		observability.RecordTradeError("buy", "dust")
		return nil, fmt.Errorf("buy %s: %w", assetID, ErrInsufficientPurchase)
	}

	if err := l.bank.Transfer(ctx, buyer, l.pool, payment); err != nil {
		observability.RecordTradeError("buy", "payment")
		return nil, fmt.Errorf("buy %s: %w", assetID, err)
	}

	snapshot := asset.Clone()
	asset.SoldSupply.Add(asset.SoldSupply, tokens)
	asset.TotalRaised.Add(asset.TotalRaised, net)
	asset.TotalPlatformFees.Add(asset.TotalPlatformFees, platformFee)
	asset.TotalCreatorFees.Add(asset.TotalCreatorFees, creatorFee)

	if err := l.assets.Update(ctx, asset); err != nil {
		l.refund(ctx, assetID, buyer, payment)
		return nil, fmt.Errorf("buy %s: %w: %v", assetID, ErrSettlementFailed, err)
	}

	if err := l.tokens.Mint(assetID, buyer, tokens); err != nil {
		l.rollback(ctx, snapshot)
		l.refund(ctx, assetID, buyer, payment)
		return nil, fmt.Errorf("buy %s: mint: %w: %v", assetID, ErrSettlementFailed, err)
	}

	l.settleFees(ctx, asset, platformFee, creatorFee)

	newPrice := l.spotPrice(asset)
	receipt := &TradeReceipt{
		AssetID:         assetID,
		Side:            domain.TradeSideBuy,
		Payment:         new(uint256.Int).Set(payment),
		Tokens:          tokens,
		PlatformFee:     platformFee,
		CreatorFee:      creatorFee,
		NetAmount:       net,
		NewPrice:        newPrice,
		GraduationReady: !asset.TotalRaised.Lt(l.params.GrossRaiseTarget),
	}

	ts := l.now()
	observability.RecordTrade(domain.TradeSideBuy, toFloat(payment), time.Since(start).Seconds())
	observability.UpdatePoolBalance(toFloat(l.bank.Balance(l.pool)))
	l.emit(ctx, domain.Event{
		Type:          domain.EventTokensPurchased,
		AssetID:       assetID,
		Actor:         buyer.String(),
		PaymentAmount: payment.Dec(),
		TokenAmount:   tokens.Dec(),
		Timestamp:     ts,
	})
	l.recordTrade(ctx, assetID, ts, domain.TradeSideBuy, payment, tokens, newPrice)
	return receipt, nil
}

// Sell returns tokens to the curve. Tokens are burned and state committed
// before any wei leaves the pool; if the payout fails the burn and the
// state change are undone.
func (l *Ledger) Sell(ctx context.Context, seller account.Address, assetID string, tokens *uint256.Int) (*TradeReceipt, error) {
	start := time.Now()
	release, err := l.enter(assetID)
	if err != nil {
		observability.RecordTradeError("sell", "reentrant")
		return nil, err
	}
	defer release()

	asset, err := l.loadAsset(ctx, assetID)
	if err != nil {
		observability.RecordTradeError("sell", "not_found")
		return nil, err
	}
	if asset.Graduated {
		observability.RecordTradeError("sell", "graduated")
		return nil, fmt.Errorf("sell %s: %w", assetID, ErrAlreadyGraduated)
	}
	if tokens == nil || tokens.IsZero() || tokens.Gt(asset.SoldSupply) {
		observability.RecordTradeError("sell", "invalid_amount")
		return nil, fmt.Errorf("sell %s: %w", assetID, ErrInvalidAmount)
	}
	if l.tokens.Balance(assetID, seller).Lt(tokens) {
		observability.RecordTradeError("sell", "balance")
		return nil, fmt.Errorf("sell %s: %w", assetID, vault.ErrInsufficientTokens)
	}

	proceeds, err := l.params.SaleProceeds(asset.SoldSupply, tokens)
	if err != nil {
		observability.RecordTradeError("sell", "curve")
		return nil, fmt.Errorf("sell %s: %w", assetID, err)
	}
	platformFee, creatorFee, net, err := l.params.FeeBreakdown(proceeds)
	if err != nil {
		return nil, fmt.Errorf("sell %s: fee breakdown: %w", assetID, err)
	}
	if l.bank.Balance(l.pool).Lt(proceeds) {
		observability.RecordTradeError("sell", "liquidity")
		return nil, fmt.Errorf("sell %s: %w", assetID, ErrInsufficientLiquidity)
	}

	snapshot := asset.Clone()
	asset.SoldSupply.Sub(asset.SoldSupply, tokens)
	asset.TotalPlatformFees.Add(asset.TotalPlatformFees, platformFee)
	asset.TotalCreatorFees.Add(asset.TotalCreatorFees, creatorFee)

	if err := l.assets.Update(ctx, asset); err != nil {
		return nil, fmt.Errorf("sell %s: %w: %v", assetID, ErrSettlementFailed, err)
	}

	if err := l.tokens.Burn(assetID, seller, tokens); err != nil {
		l.rollback(ctx, snapshot)
		return nil, fmt.Errorf("sell %s: burn: %w: %v", assetID, ErrSettlementFailed, err)
	}

	if err := l.bank.Transfer(ctx, l.pool, seller, net); err != nil {
		if mintErr := l.tokens.Mint(assetID, seller, tokens); mintErr != nil {
			l.logger.Printf("[ledger] sell %s: compensating mint failed: %v", assetID, mintErr)
		}
		l.rollback(ctx, snapshot)
		return nil, fmt.Errorf("sell %s: payout: %w: %v", assetID, ErrSettlementFailed, err)
	}

	l.settleFees(ctx, asset, platformFee, creatorFee)

	newPrice := l.spotPrice(asset)
	receipt := &TradeReceipt{
		AssetID:         assetID,
		Side:            domain.TradeSideSell,
		Payment:         proceeds,
		Tokens:          new(uint256.Int).Set(tokens),
		PlatformFee:     platformFee,
		CreatorFee:      creatorFee,
		NetAmount:       net,
		NewPrice:        newPrice,
		GraduationReady: !asset.TotalRaised.Lt(l.params.GrossRaiseTarget),
	}

	ts := l.now()
	observability.RecordTrade(domain.TradeSideSell, toFloat(proceeds), time.Since(start).Seconds())
	observability.UpdatePoolBalance(toFloat(l.bank.Balance(l.pool)))
	l.emit(ctx, domain.Event{
		Type:          domain.EventTokensSold,
		AssetID:       assetID,
		Actor:         seller.String(),
		PaymentAmount: net.Dec(),
		TokenAmount:   tokens.Dec(),
		Timestamp:     ts,
	})
	l.recordTrade(ctx, assetID, ts, domain.TradeSideSell, proceeds, tokens, newPrice)
	return receipt, nil
}

// Graduate closes the curve once the raise target is met: the reserve
// supply is minted to the router and the raised liquidity moves from the
// pool to the router. Graduation is permanent and happens at most once.
func (l *Ledger) Graduate(ctx context.Context, assetID string) (*GraduationReceipt, error) {
	release, err := l.enter(assetID)
	if err != nil {
		observability.RecordTradeError("graduate", "reentrant")
		return nil, err
	}
	defer release()

	asset, err := l.loadAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset.Graduated {
		return nil, fmt.Errorf("graduate %s: %w", assetID, ErrAlreadyGraduated)
	}
	if asset.TotalRaised.Lt(l.params.GrossRaiseTarget) {
		return nil, fmt.Errorf("graduate %s: raised %s of %s: %w",
			assetID, asset.TotalRaised.Dec(), l.params.GrossRaiseTarget.Dec(), ErrGraduationNotReady)
	}

	liquidity := new(uint256.Int).Set(asset.TotalRaised)
	if l.bank.Balance(l.pool).Lt(liquidity) {
		return nil, fmt.Errorf("graduate %s: %w", assetID, ErrInsufficientLiquidity)
	}
	reserve := l.params.GraduationReserve()
	router := l.admin.Router()

	snapshot := asset.Clone()
	asset.Graduated = true
	asset.GraduatedAt = l.now()

	if err := l.assets.Update(ctx, asset); err != nil {
		return nil, fmt.Errorf("graduate %s: %w: %v", assetID, ErrSettlementFailed, err)
	}

	if err := l.tokens.Mint(assetID, router, reserve); err != nil {
		l.rollback(ctx, snapshot)
		return nil, fmt.Errorf("graduate %s: mint reserve: %w: %v", assetID, ErrSettlementFailed, err)
	}

	if err := l.bank.Transfer(ctx, l.pool, router, liquidity); err != nil {
		if burnErr := l.tokens.Burn(assetID, router, reserve); burnErr != nil {
			l.logger.Printf("[ledger] graduate %s: compensating burn failed: %v", assetID, burnErr)
		}
		l.rollback(ctx, snapshot)
		return nil, fmt.Errorf("graduate %s: move liquidity: %w: %v", assetID, ErrSettlementFailed, err)
	}

	observability.RecordAssetGraduated()
	observability.UpdatePoolBalance(toFloat(l.bank.Balance(l.pool)))
	l.emit(ctx, domain.Event{
		Type:        domain.EventAssetGraduated,
		AssetID:     assetID,
		Actor:       asset.Creator,
		TotalRaised: asset.TotalRaised.Dec(),
		TotalSold:   asset.SoldSupply.Dec(),
		Timestamp:   asset.GraduatedAt,
	})
	l.logger.Printf("[ledger] asset graduated: %s raised=%s wei", assetID, asset.TotalRaised.Dec())
	return &GraduationReceipt{
		AssetID:       assetID,
		LiquidityWei:  liquidity,
		ReserveTokens: reserve,
		GraduatedAt:   asset.GraduatedAt,
	}, nil
}

func (l *Ledger) loadAsset(ctx context.Context, assetID string) (*domain.Asset, error) {
	asset, err := l.assets.GetByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("asset %s: %w", assetID, ErrAssetNotFound)
		}
		return nil, fmt.Errorf("load asset %s: %w", assetID, err)
	}
	return asset, nil
}

// settleFees runs the non-critical fee legs. Failures are reported as
// security events and the fee wei stays in the pool.
func (l *Ledger) settleFees(ctx context.Context, asset *domain.Asset, platformFee, creatorFee *uint256.Int) {
	legs := make([]vault.Leg, 0, 2)
	if !platformFee.IsZero() {
		legs = append(legs, vault.Leg{
			From: l.pool, To: l.admin.Treasury(), Amount: platformFee, Label: "platform_fee",
		})
	}
	if !creatorFee.IsZero() {
		creator, err := account.Parse(asset.Creator)
		if err != nil {
			l.security(ctx, asset.ID, fmt.Sprintf("creator_fee: bad creator address %q", asset.Creator))
		} else {
			legs = append(legs, vault.Leg{
				From: l.pool, To: creator, Amount: creatorFee, Label: "creator_fee",
			})
		}
	}

	for _, res := range l.bank.BatchTransfer(ctx, legs) {
		if res.Err != nil {
			l.security(ctx, asset.ID, fmt.Sprintf("%s leg failed: %v", res.Leg.Label, res.Err))
			continue
		}
		observability.RecordFees(res.Leg.Label, toFloat(res.Leg.Amount))
	}
}

// refund returns a payment to the buyer after a failed settlement.
func (l *Ledger) refund(ctx context.Context, assetID string, to account.Address, amount *uint256.Int) {
	if err := l.bank.Transfer(ctx, l.pool, to, amount); err != nil {
		l.security(ctx, assetID, fmt.Sprintf("refund of %s wei failed: %v", amount.Dec(), err))
	}
}

// rollback restores a pre-trade snapshot in the asset store.
func (l *Ledger) rollback(ctx context.Context, snapshot *domain.Asset) {
	if err := l.assets.Update(ctx, snapshot); err != nil {
		l.security(ctx, snapshot.ID, fmt.Sprintf("state rollback failed: %v", err))
	}
}

// security emits a SECURITY_EVENT and logs it.
func (l *Ledger) security(ctx context.Context, assetID, detail string) {
	observability.RecordSecurityEvent("settlement")
	l.logger.Printf("[ledger] SECURITY asset=%s %s", assetID, detail)
	l.emit(ctx, domain.Event{
		Type:      domain.EventSecurity,
		AssetID:   assetID,
		Detail:    detail,
		Timestamp: l.now(),
	})
}

func (l *Ledger) emit(ctx context.Context, e domain.Event) {
	if l.sink == nil {
		return
	}
	if err := l.sink.Publish(ctx, e); err != nil {
		l.logger.Printf("[ledger] event publish failed: type=%s asset=%s err=%v", e.Type, e.AssetID, err)
	}
}

// spotPrice returns the current curve price, or nil when the supply sits
// outside the curve domain.
func (l *Ledger) spotPrice(asset *domain.Asset) *uint256.Int {
	price, err := l.params.Price(asset.SoldSupply)
	if err != nil {
		l.logger.Printf("[ledger] price unavailable for %s at supply %s: %v", asset.ID, asset.SoldSupply.Dec(), err)
		return nil
	}
	return price
}

// recordTrade stores an analytics point. Best effort, failures only log.
func (l *Ledger) recordTrade(ctx context.Context, assetID string, ts int64, side string, payment, tokens, price *uint256.Int) {
	if l.trades == nil {
		return
	}
	point := &domain.TradePoint{
		AssetID:     assetID,
		TimestampMs: ts,
		Side:        side,
		Payment:     toFloat(payment),
		Tokens:      toFloat(tokens),
	}
	if price != nil {
		point.Price = toFloat(price)
	}
	if err := l.trades.InsertBulk(ctx, []*domain.TradePoint{point}); err != nil {
		observability.RecordDBError("trade_points", "insert_bulk")
		l.logger.Printf("[ledger] trade point insert failed for %s: %v", assetID, err)
	}
}

func toFloat(v *uint256.Int) float64 {
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}
