package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"rabbit-launchpad/internal/account"
	"rabbit-launchpad/internal/curve"
	"rabbit-launchpad/internal/ledger"
	"rabbit-launchpad/internal/storage/memory"
	"rabbit-launchpad/internal/timelock"
	"rabbit-launchpad/internal/vault"
)

type apiFixture struct {
	srv     *httptest.Server
	ledger  *ledger.Ledger
	bank    *vault.Bank
	tokens  *vault.TokenBook
	admin   *timelock.Controller
	clock   *time.Time
	params  curve.Params
	creator account.Address
	buyer   account.Address
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	now := time.Unix(1_700_000_000, 0)
	f := &apiFixture{
		bank:    vault.NewBank(0, nil),
		tokens:  vault.NewTokenBook(),
		clock:   &now,
		params:  curve.DefaultParams(),
		creator: account.Derive("api-creator"),
		buyer:   account.Derive("api-buyer"),
	}
	events := memory.NewEventStore()

	f.admin = timelock.New(f.bank, account.Derive("curve-pool"),
		account.Derive("api-treasury"), account.Derive("api-router"), nil)
	f.admin.SetNowFunc(func() time.Time { return *f.clock })

	l, err := ledger.New(ledger.Config{
		Params: f.params,
		Assets: memory.NewAssetStore(),
		Bank:   f.bank,
		Tokens: f.tokens,
		Admin:  f.admin,
		Sink:   ledger.NewStoreSink(events),
	})
	require.NoError(t, err)
	f.ledger = l

	funding := uint256.MustFromDecimal("100000000000000000000")
	f.bank.Deposit(f.creator, funding)
	f.bank.Deposit(f.buyer, funding)

	f.srv = httptest.NewServer(NewServer(Config{
		Ledger: l,
		Events: events,
		Bank:   f.bank,
		Tokens: f.tokens,
		Admin:  f.admin,
	}).Routes())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *apiFixture) post(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(f.srv.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (f *apiFixture) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (f *apiFixture) createAsset(t *testing.T) string {
	t.Helper()

	resp, body := f.post(t, "/api/v1/assets", map[string]string{
		"creator": f.creator.String(),
		"name":    "Rabbit",
		"symbol":  "RAB",
		"fee":     f.params.CreateFee.Dec(),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["id"].(string)
}

func TestAPI_CreateAsset(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.post(t, "/api/v1/assets", map[string]string{
		"creator": f.creator.String(),
		"name":    "Rabbit",
		"symbol":  "RAB",
		"fee":     f.params.CreateFee.Dec(),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, body["id"])
	require.Equal(t, "Rabbit", body["name"])
	require.Equal(t, "0", body["sold_supply"])
	require.Equal(t, false, body["graduated"])
	require.NotEmpty(t, body["current_price"])
}

func TestAPI_CreateAsset_BadRequests(t *testing.T) {
	f := newAPIFixture(t)

	resp, _ := f.post(t, "/api/v1/assets", map[string]string{
		"creator": "not-an-address-0",
		"name":    "Rabbit",
		"symbol":  "RAB",
		"fee":     f.params.CreateFee.Dec(),
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.post(t, "/api/v1/assets", map[string]string{
		"creator": f.creator.String(),
		"name":    "Rabbit",
		"symbol":  "RAB",
		"fee":     "1",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_BuyAndPrice(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createAsset(t)

	resp, body := f.post(t, fmt.Sprintf("/api/v1/assets/%s/buy", id), map[string]string{
		"buyer":   f.buyer.String(),
		"payment": "10000000000000000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "buy", body["side"])
	require.Equal(t, "100000000000000", body["platform_fee"])
	require.NotEmpty(t, body["tokens"])

	resp, body = f.get(t, fmt.Sprintf("/api/v1/assets/%s/price", id))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body["price"])
}

func TestAPI_BuyErrors(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createAsset(t)

	// Unknown asset.
	resp, _ := f.post(t, "/api/v1/assets/missing/buy", map[string]string{
		"buyer":   f.buyer.String(),
		"payment": "1000",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Zero payment.
	resp, _ = f.post(t, fmt.Sprintf("/api/v1/assets/%s/buy", id), map[string]string{
		"buyer":   f.buyer.String(),
		"payment": "0",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unfunded buyer.
	resp, _ = f.post(t, fmt.Sprintf("/api/v1/assets/%s/buy", id), map[string]string{
		"buyer":   account.Derive("api-broke").String(),
		"payment": "1000000000000000",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAPI_SellRoundTrip(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createAsset(t)

	resp, body := f.post(t, fmt.Sprintf("/api/v1/assets/%s/buy", id), map[string]string{
		"buyer":   f.buyer.String(),
		"payment": "50000000000000000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tokens := body["tokens"].(string)

	resp, body = f.post(t, fmt.Sprintf("/api/v1/assets/%s/sell", id), map[string]string{
		"seller": f.buyer.String(),
		"tokens": tokens,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "sell", body["side"])

	resp, body = f.get(t, fmt.Sprintf("/api/v1/assets/%s", id))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "0", body["sold_supply"])
}

func TestAPI_Quotes(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createAsset(t)

	resp, body := f.get(t, fmt.Sprintf("/api/v1/assets/%s/quote/buy?payment=10000000000000000", id))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "buy", body["side"])
	require.Equal(t, "100000000000000", body["platform_fee"])
	quoted := body["tokens"].(string)

	// The quote matches the actual trade against the same state.
	resp, body = f.post(t, fmt.Sprintf("/api/v1/assets/%s/buy", id), map[string]string{
		"buyer":   f.buyer.String(),
		"payment": "10000000000000000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, quoted, body["tokens"])

	resp, body = f.get(t, fmt.Sprintf("/api/v1/assets/%s/quote/sell?tokens=%s", id, quoted))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "sell", body["side"])
	require.NotEmpty(t, body["net_amount"])

	// Quoting never mutates state.
	resp, body = f.get(t, fmt.Sprintf("/api/v1/assets/%s", id))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, quoted, body["sold_supply"])

	resp, _ = f.get(t, fmt.Sprintf("/api/v1/assets/%s/quote/buy?payment=0", id))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_Accounts(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createAsset(t)

	fresh := account.Derive("api-fresh")
	resp, body := f.get(t, "/api/v1/accounts/"+fresh.String())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "0", body["balance"])

	resp, body = f.post(t, fmt.Sprintf("/api/v1/accounts/%s/deposit", fresh.String()), map[string]string{
		"amount": "2500000000000000000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "2500000000000000000", body["balance"])

	resp, body = f.get(t, fmt.Sprintf("/api/v1/accounts/%s?asset=%s", fresh.String(), id))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "0", body["token_balance"])

	resp, _ = f.get(t, "/api/v1/accounts/not-an-address-0")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_AdminTimelock(t *testing.T) {
	f := newAPIFixture(t)
	next := account.Derive("api-next-treasury")

	resp, _ := f.post(t, "/api/v1/admin/treasury", map[string]string{
		"address": next.String(),
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	// Completing before the delay elapses is rejected as too early.
	resp, _ = f.post(t, "/api/v1/admin/treasury/complete", map[string]string{})
	require.Equal(t, http.StatusTooEarly, resp.StatusCode)

	*f.clock = f.clock.Add(timelock.TreasuryDelay + time.Minute)
	resp, body := f.post(t, "/api/v1/admin/treasury/complete", map[string]string{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, next.String(), body["treasury"])

	// No pending update left to cancel.
	resp, _ = f.post(t, "/api/v1/admin/treasury/cancel", map[string]string{})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_AdminEmergencyWithdraw(t *testing.T) {
	f := newAPIFixture(t)

	// Over the per-call cap.
	over := new(uint256.Int).AddUint64(timelock.EmergencyCap, 1)
	resp, _ := f.post(t, "/api/v1/admin/emergency-withdraw", map[string]string{
		"amount": over.Dec(),
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Fund the pool through a buy, then drain a slice of it.
	id := f.createAsset(t)
	resp, _ = f.post(t, fmt.Sprintf("/api/v1/assets/%s/buy", id), map[string]string{
		"buyer":   f.buyer.String(),
		"payment": "1000000000000000000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := f.post(t, "/api/v1/admin/emergency-withdraw", map[string]string{
		"amount": "100000000000000000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "100000000000000000", body["withdrawn"])

	// Cooldown blocks an immediate second withdrawal.
	resp, _ = f.post(t, "/api/v1/admin/emergency-withdraw", map[string]string{
		"amount": "1",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_ListAndEvents(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createAsset(t)
	f.createAsset(t)

	resp, body := f.get(t, "/api/v1/assets?limit=10")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 2, body["total"])
	require.Len(t, body["assets"], 2)

	resp, body = f.get(t, fmt.Sprintf("/api/v1/assets/%s/events", id))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	events := body["events"].([]any)
	require.Len(t, events, 1)
}

func TestAPI_GraduateNotReady(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createAsset(t)

	resp, _ := f.post(t, fmt.Sprintf("/api/v1/assets/%s/graduate", id), map[string]string{})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_HealthAndStatus(t *testing.T) {
	f := newAPIFixture(t)
	f.createAsset(t)

	resp, err := http.Get(f.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, body := f.get(t, "/status")
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	require.Equal(t, "ok", body["status"])
	require.EqualValues(t, 1, body["assets"])
	require.NotEmpty(t, body["pool"])
}