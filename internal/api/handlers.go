package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/holiman/uint256"

	"rabbit-launchpad/internal/account"
	"rabbit-launchpad/internal/domain"
	"rabbit-launchpad/internal/ledger"
	"rabbit-launchpad/internal/storage"
	"rabbit-launchpad/internal/timelock"
)

// assetView is the wire form of an asset. Amounts are decimal strings.
type assetView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Creator string `json:"creator"`

	SoldSupply        string `json:"sold_supply"`
	TotalRaised       string `json:"total_raised"`
	TotalPlatformFees string `json:"total_platform_fees"`
	TotalCreatorFees  string `json:"total_creator_fees"`

	Graduated   bool  `json:"graduated"`
	CreatedAt   int64 `json:"created_at"`
	GraduatedAt int64 `json:"graduated_at,omitempty"`

	CurrentPrice    string `json:"current_price,omitempty"`
	MarketCap       string `json:"market_cap,omitempty"`
	ProgressBps     uint64 `json:"progress_bps"`
	GraduationReady bool   `json:"graduation_ready"`
}

func toAssetView(info *ledger.AssetInfo) assetView {
	a := info.Asset
	v := assetView{
		ID:                a.ID,
		Name:              a.Name,
		Symbol:            a.Symbol,
		Creator:           a.Creator,
		SoldSupply:        a.SoldSupply.Dec(),
		TotalRaised:       a.TotalRaised.Dec(),
		TotalPlatformFees: a.TotalPlatformFees.Dec(),
		TotalCreatorFees:  a.TotalCreatorFees.Dec(),
		Graduated:         a.Graduated,
		CreatedAt:         a.CreatedAt,
		GraduatedAt:       a.GraduatedAt,
		ProgressBps:       info.ProgressBps,
		GraduationReady:   info.GraduationReady,
	}
	if info.CurrentPrice != nil {
		v.CurrentPrice = info.CurrentPrice.Dec()
	}
	if info.MarketCap != nil {
		v.MarketCap = info.MarketCap.Dec()
	}
	return v
}

type tradeView struct {
	AssetID         string `json:"asset_id"`
	Side            string `json:"side"`
	Payment         string `json:"payment"`
	Tokens          string `json:"tokens"`
	PlatformFee     string `json:"platform_fee"`
	CreatorFee      string `json:"creator_fee"`
	NetAmount       string `json:"net_amount"`
	NewPrice        string `json:"new_price,omitempty"`
	GraduationReady bool   `json:"graduation_ready"`
}

func toTradeView(r *ledger.TradeReceipt) tradeView {
	v := tradeView{
		AssetID:         r.AssetID,
		Side:            r.Side,
		Payment:         r.Payment.Dec(),
		Tokens:          r.Tokens.Dec(),
		PlatformFee:     r.PlatformFee.Dec(),
		CreatorFee:      r.CreatorFee.Dec(),
		NetAmount:       r.NetAmount.Dec(),
		GraduationReady: r.GraduationReady,
	}
	if r.NewPrice != nil {
		v.NewPrice = r.NewPrice.Dec()
	}
	return v
}

// parseAmount parses a decimal wei/base-unit string.
func parseAmount(field, s string) (*uint256.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%s: %w", field, storage.ErrInvalidInput)
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, storage.ErrInvalidInput)
	}
	return v, nil
}

type createRequest struct {
	Creator string `json:"creator"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Fee     string `json:"fee"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("decode request: %w", storage.ErrInvalidInput))
		return
	}
	creator, err := account.Parse(req.Creator)
	if err != nil {
		s.writeError(w, err)
		return
	}
	fee, err := parseAmount("fee", req.Fee)
	if err != nil {
		s.writeError(w, err)
		return
	}

	asset, err := s.ledger.Create(r.Context(), creator, req.Name, req.Symbol, fee)
	if err != nil {
		s.writeError(w, err)
		return
	}

	info, err := s.ledger.GetAssetInfo(r.Context(), asset.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toAssetView(info))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	filter := storage.ListFilter{}
	q := r.URL.Query()

	if v := q.Get("graduated"); v != "" {
		graduated, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, fmt.Errorf("graduated: %w", storage.ErrInvalidInput))
			return
		}
		filter.Graduated = &graduated
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			s.writeError(w, fmt.Errorf("limit: %w", storage.ErrInvalidInput))
			return
		}
		filter.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			s.writeError(w, fmt.Errorf("offset: %w", storage.ErrInvalidInput))
			return
		}
		filter.Offset = offset
	}

	infos, err := s.ledger.ListAssets(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	total, err := s.ledger.CountAssets(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}

	views := make([]assetView, 0, len(infos))
	for _, info := range infos {
		views = append(views, toAssetView(info))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"assets": views,
		"total":  total,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	info, err := s.ledger.GetAssetInfo(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toAssetView(info))
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	price, err := s.ledger.GetPrice(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"asset_id": id,
		"price":    price.Dec(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, fmt.Errorf("limit: %w", storage.ErrInvalidInput))
			return
		}
		limit = n
	}

	events, err := s.events.GetByAsset(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

type buyRequest struct {
	Buyer   string `json:"buyer"`
	Payment string `json:"payment"`
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("decode request: %w", storage.ErrInvalidInput))
		return
	}
	buyer, err := account.Parse(req.Buyer)
	if err != nil {
		s.writeError(w, err)
		return
	}
	payment, err := parseAmount("payment", req.Payment)
	if err != nil {
		s.writeError(w, err)
		return
	}

	receipt, err := s.ledger.Buy(r.Context(), buyer, r.PathValue("id"), payment)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toTradeView(receipt))
}

type sellRequest struct {
	Seller string `json:"seller"`
	Tokens string `json:"tokens"`
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	var req sellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("decode request: %w", storage.ErrInvalidInput))
		return
	}
	seller, err := account.Parse(req.Seller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	tokens, err := parseAmount("tokens", req.Tokens)
	if err != nil {
		s.writeError(w, err)
		return
	}

	receipt, err := s.ledger.Sell(r.Context(), seller, r.PathValue("id"), tokens)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toTradeView(receipt))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UnixMilli(),
	}
	if total, err := s.ledger.CountAssets(r.Context(), storage.ListFilter{}); err == nil {
		status["assets"] = total
	}
	graduated := true
	if n, err := s.ledger.CountAssets(r.Context(), storage.ListFilter{Graduated: &graduated}); err == nil {
		status["graduated"] = n
	}
	if s.bank != nil {
		pool := s.ledger.Pool()
		status["pool"] = pool.String()
		status["pool_balance"] = s.bank.Balance(pool).Dec()
	}
	s.writeJSON(w, http.StatusOK, status)
}

type quoteView struct {
	AssetID     string `json:"asset_id"`
	Side        string `json:"side"`
	Payment     string `json:"payment"`
	Tokens      string `json:"tokens"`
	PlatformFee string `json:"platform_fee"`
	CreatorFee  string `json:"creator_fee"`
	NetAmount   string `json:"net_amount"`
	PriceAfter  string `json:"price_after,omitempty"`
}

func toQuoteView(q *ledger.Quote) quoteView {
	v := quoteView{
		AssetID:     q.AssetID,
		Side:        q.Side,
		Payment:     q.Payment.Dec(),
		Tokens:      q.Tokens.Dec(),
		PlatformFee: q.PlatformFee.Dec(),
		CreatorFee:  q.CreatorFee.Dec(),
		NetAmount:   q.NetAmount.Dec(),
	}
	if q.PriceAfter != nil {
		v.PriceAfter = q.PriceAfter.Dec()
	}
	return v
}

func (s *Server) handleQuoteBuy(w http.ResponseWriter, r *http.Request) {
	payment, err := parseAmount("payment", r.URL.Query().Get("payment"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	quote, err := s.ledger.QuoteBuy(r.Context(), r.PathValue("id"), payment)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toQuoteView(quote))
}

func (s *Server) handleQuoteSell(w http.ResponseWriter, r *http.Request) {
	tokens, err := parseAmount("tokens", r.URL.Query().Get("tokens"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	quote, err := s.ledger.QuoteSell(r.Context(), r.PathValue("id"), tokens)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toQuoteView(quote))
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := account.Parse(r.PathValue("address"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := map[string]string{
		"address": addr.String(),
		"balance": s.bank.Balance(addr).Dec(),
	}
	if asset := r.URL.Query().Get("asset"); asset != "" && s.tokens != nil {
		resp["asset"] = asset
		resp["token_balance"] = s.tokens.Balance(asset, addr).Dec()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type depositRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	addr, err := account.Parse(r.PathValue("address"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("decode request: %w", storage.ErrInvalidInput))
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.bank.Deposit(addr, amount)
	s.writeJSON(w, http.StatusOK, map[string]string{
		"address": addr.String(),
		"balance": s.bank.Balance(addr).Dec(),
	})
}

type adminAddressRequest struct {
	Address string `json:"address"`
}

func (s *Server) decodeAdminAddress(w http.ResponseWriter, r *http.Request) (account.Address, bool) {
	var req adminAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("decode request: %w", storage.ErrInvalidInput))
		return account.Address{}, false
	}
	addr, err := account.Parse(req.Address)
	if err != nil {
		s.writeError(w, err)
		return account.Address{}, false
	}
	return addr, true
}

func (s *Server) handleTreasuryInitiate(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.decodeAdminAddress(w, r)
	if !ok {
		return
	}
	if err := s.admin.InitiateTreasuryUpdate(addr); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"pending": addr.String(),
		"delay":   timelock.TreasuryDelay.String(),
	})
}

func (s *Server) handleTreasuryComplete(w http.ResponseWriter, r *http.Request) {
	addr, err := s.admin.CompleteTreasuryUpdate()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"treasury": addr.String()})
}

func (s *Server) handleTreasuryCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.CancelTreasuryUpdate(); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"treasury": s.admin.Treasury().String()})
}

func (s *Server) handleRouterInitiate(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.decodeAdminAddress(w, r)
	if !ok {
		return
	}
	if err := s.admin.InitiateRouterUpdate(addr); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"pending": addr.String(),
		"delay":   timelock.RouterDelay.String(),
	})
}

func (s *Server) handleRouterComplete(w http.ResponseWriter, r *http.Request) {
	addr, err := s.admin.CompleteRouterUpdate()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"router": addr.String()})
}

func (s *Server) handleRouterCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.CancelRouterUpdate(); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"router": s.admin.Router().String()})
}

type emergencyRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleEmergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	var req emergencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("decode request: %w", storage.ErrInvalidInput))
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.admin.EmergencyWithdraw(r.Context(), amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"withdrawn": amount.Dec(),
		"treasury":  s.admin.Treasury().String(),
	})
}

func (s *Server) handleGraduate(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.ledger.Graduate(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"asset_id":       receipt.AssetID,
		"liquidity_wei":  receipt.LiquidityWei.Dec(),
		"reserve_tokens": receipt.ReserveTokens.Dec(),
		"graduated_at":   receipt.GraduatedAt,
	})
}
