package domain

// TradePoint is the analytics projection of a buy or sell: float64
// approximations sized for ClickHouse aggregation, not for accounting.
// Exact amounts live in the event journal.
type TradePoint struct {
	AssetID     string
	TimestampMs int64
	Side        string  // "buy" | "sell"
	Payment     float64 // wei
	Tokens      float64 // base units
	Price       float64 // wei per whole token after the trade
}

// Trade sides.
const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)
