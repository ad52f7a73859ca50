// Package main drives a deterministic in-memory market simulation: a set of
// traders buys and sells against a fresh asset until it graduates or the
// trade budget runs out. Useful for eyeballing curve behaviour and fee flow
// without any infrastructure.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/holiman/uint256"

	"rabbit-launchpad/internal/account"
	"rabbit-launchpad/internal/curve"
	"rabbit-launchpad/internal/ledger"
	"rabbit-launchpad/internal/storage/memory"
	"rabbit-launchpad/internal/vault"
)

type simAdmin struct {
	treasury account.Address
	router   account.Address
}

func (a simAdmin) Treasury() account.Address { return a.treasury }
func (a simAdmin) Router() account.Address   { return a.router }

type simResult struct {
	AssetID     string   `json:"asset_id"`
	Trades      int      `json:"trades"`
	Buys        int      `json:"buys"`
	Sells       int      `json:"sells"`
	Rejected    int      `json:"rejected"`
	FinalPrice  string   `json:"final_price"`
	SoldSupply  string   `json:"sold_supply"`
	TotalRaised string   `json:"total_raised"`
	ProgressBps uint64   `json:"progress_bps"`
	Graduated   bool     `json:"graduated"`
	Treasury    string   `json:"treasury_balance"`
	Creator     string   `json:"creator_balance"`
	PricePath   []string `json:"price_path,omitempty"`
}

func main() {
	trades := flag.Int("trades", 200, "Maximum number of trades to attempt")
	traders := flag.Int("traders", 5, "Number of trader accounts")
	seed := flag.Int64("seed", 42, "Random seed for reproducible runs")
	maxPayment := flag.String("max-payment", "1000000000000000000", "Largest single buy in wei")
	sellChance := flag.Float64("sell-chance", 0.3, "Probability a trader sells instead of buying")
	graduate := flag.Bool("graduate", true, "Graduate the asset once the raise target is hit")
	outputJSON := flag.Bool("json", false, "Output as JSON")
	tracePrices := flag.Bool("trace", false, "Record the spot price after every trade")

	flag.Parse()

	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)

	maxPay, err := uint256.FromDecimal(*maxPayment)
	if err != nil || maxPay.IsZero() {
		logger.Fatalf("invalid --max-payment %q", *maxPayment)
	}
	if *traders < 1 {
		logger.Fatal("--traders must be at least 1")
	}

	ctx := context.Background()
	rng := rand.New(rand.NewSource(*seed))

	params := curve.DefaultParams()
	bank := vault.NewBank(0, logger)
	tokens := vault.NewTokenBook()
	treasury := account.Derive("sim-treasury")
	creator := account.Derive("sim-creator")

	eng, err := ledger.New(ledger.Config{
		Params: params,
		Assets: memory.NewAssetStore(),
		Bank:   bank,
		Tokens: tokens,
		Admin: simAdmin{
			treasury: treasury,
			router:   account.Derive("sim-router"),
		},
		Trades: memory.NewTradePointStore(),
		Logger: logger,
	})
	if err != nil {
		logger.Fatalf("ledger: %v", err)
	}

	// Fund everyone generously so rejections come from the market, not from
	// empty wallets.
	funding := new(uint256.Int).Mul(params.GrossRaiseTarget, uint256.NewInt(10))
	bank.Deposit(creator, funding)
	accounts := make([]account.Address, *traders)
	for i := range accounts {
		accounts[i] = account.Derive(fmt.Sprintf("sim-trader-%d", i))
		bank.Deposit(accounts[i], funding)
	}

	asset, err := eng.Create(ctx, creator, "Simulated Token", "SIM", params.CreateFee)
	if err != nil {
		logger.Fatalf("create asset: %v", err)
	}
	logger.Printf("created asset %s", asset.ID)

	result := simResult{AssetID: asset.ID}
	for i := 0; i < *trades; i++ {
		trader := accounts[rng.Intn(len(accounts))]
		held := tokens.Balance(asset.ID, trader)

		var receipt *ledger.TradeReceipt
		if !held.IsZero() && rng.Float64() < *sellChance {
			// Sell a random slice of the position.
			portion := uint256.NewInt(uint64(rng.Intn(100) + 1))
			amount := new(uint256.Int).Div(new(uint256.Int).Mul(held, portion), uint256.NewInt(100))
			if amount.IsZero() {
				continue
			}
			receipt, err = eng.Sell(ctx, trader, asset.ID, amount)
			if err == nil {
				result.Sells++
			}
		} else {
			payment := randomAmount(rng, maxPay)
			receipt, err = eng.Buy(ctx, trader, asset.ID, payment)
			if err == nil {
				result.Buys++
			}
		}
		if err != nil {
			result.Rejected++
			logger.Printf("trade %d rejected: %v", i, err)
			continue
		}
		result.Trades++

		if *tracePrices && receipt.NewPrice != nil {
			result.PricePath = append(result.PricePath, receipt.NewPrice.Dec())
		}
		if receipt.GraduationReady {
			logger.Printf("raise target reached after %d trades", result.Trades)
			break
		}
	}

	info, err := eng.GetAssetInfo(ctx, asset.ID)
	if err != nil {
		logger.Fatalf("asset info: %v", err)
	}
	if *graduate && info.GraduationReady {
		gr, err := eng.Graduate(ctx, asset.ID)
		if err != nil {
			logger.Fatalf("graduate: %v", err)
		}
		logger.Printf("graduated: liquidity=%s wei, reserve=%s tokens", gr.LiquidityWei.Dec(), gr.ReserveTokens.Dec())
		info, err = eng.GetAssetInfo(ctx, asset.ID)
		if err != nil {
			logger.Fatalf("asset info: %v", err)
		}
	}

	result.SoldSupply = info.Asset.SoldSupply.Dec()
	result.TotalRaised = info.Asset.TotalRaised.Dec()
	result.ProgressBps = info.ProgressBps
	result.Graduated = info.Asset.Graduated
	result.Treasury = bank.Balance(treasury).Dec()
	result.Creator = bank.Balance(creator).Dec()
	if info.CurrentPrice != nil {
		result.FinalPrice = info.CurrentPrice.Dec()
	}

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			logger.Fatalf("encode result: %v", err)
		}
		return
	}

	fmt.Printf("asset:         %s\n", result.AssetID)
	fmt.Printf("trades:        %d (%d buys, %d sells, %d rejected)\n",
		result.Trades, result.Buys, result.Sells, result.Rejected)
	fmt.Printf("sold supply:   %s\n", result.SoldSupply)
	fmt.Printf("total raised:  %s wei (%d.%02d%% of target)\n",
		result.TotalRaised, result.ProgressBps/100, result.ProgressBps%100)
	fmt.Printf("graduated:     %v\n", result.Graduated)
	if result.FinalPrice != "" {
		fmt.Printf("final price:   %s wei/token\n", result.FinalPrice)
	}
	fmt.Printf("treasury:      %s wei\n", result.Treasury)
	fmt.Printf("creator:       %s wei\n", result.Creator)
}

// randomAmount picks a payment in [max/100, max].
func randomAmount(rng *rand.Rand, max *uint256.Int) *uint256.Int {
	pct := uint256.NewInt(uint64(rng.Intn(100) + 1))
	amount := new(uint256.Int).Div(new(uint256.Int).Mul(max, pct), uint256.NewInt(100))
	if amount.IsZero() {
		return new(uint256.Int).Set(max)
	}
	return amount
}
