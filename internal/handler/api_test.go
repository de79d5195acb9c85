package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cardvault-api/internal/app"
	"cardvault-api/internal/config"
	"cardvault-api/internal/handler"
	"cardvault-api/internal/middleware"
	"cardvault-api/internal/model"
	"cardvault-api/internal/repository"
	"cardvault-api/internal/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userKey  = "user-key"
	adminKey = "admin-key"
)

var (
	aria   = model.ItemKey{Category: "Students", Name: "Aria"}
	mentor = model.ItemKey{Category: "Teachers", Name: "Mentor"}
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type server struct {
	app *app.App
	h   http.Handler
}

func newServer(t *testing.T) *server {
	t.Helper()
	cfg := &config.Config{
		App:   config.AppConfig{Version: "test"},
		Cache: config.CacheConfig{Type: "memory", TTL: time.Minute},
		Store: config.StoreConfig{Type: "memory"},
		Economy: config.EconomyConfig{
			Timezone:        "Europe/Rome",
			CatalogFile:     "../../configs/catalog.yaml",
			LedgerCacheTTL:  time.Minute,
			TradeTTL:        24 * time.Hour,
			WeeklyExchanges: 3,
			DailyDraws:      1,
			SacrificeReward: 3,
		},
	}
	a, err := app.Assemble(cfg, repository.NewMemoryTableStore())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	auth := middleware.AuthConfig{APIKeys: []string{userKey}, AdminKeys: []string{adminKey}}
	h := router.New(router.Config{
		Handler:         handler.New(cfg.App.Version, a.Service),
		EconomyHandler:  handler.NewEconomyHandler(a.Service),
		AdminHandler:    handler.NewAdminHandler(a.Service, cfg.Store.Type),
		AuthMiddleware:  middleware.NewAuthMiddleware(auth),
		AdminMiddleware: middleware.NewAdminMiddleware(auth),
	})
	return &server{app: a, h: h}
}

func (s *server) give(t *testing.T, owner string, key model.ItemKey, n int) {
	t.Helper()
	cards := s.app.Ledger.Cards()
	cards.Lock()
	defer cards.Unlock()
	require.NoError(t, cards.Add(context.Background(), key, owner, n))
}

func (s *server) do(t *testing.T, method, path, key string, body interface{}) (int, envelope) {
	t.Helper()
	return s.doAs(t, method, path, key, "", body)
}

// doAs sends the request with a display name header when name is set.
func (s *server) doAs(t *testing.T, method, path, key, name string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	if name != "" {
		req.Header.Set(handler.DisplayNameHeader, name)
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestAuth_KeysAndPublicRoutes(t *testing.T) {
	s := newServer(t)

	code, _ := s.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env := s.do(t, http.MethodGet, "/api/v1/ready", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, _ = s.do(t, http.MethodGet, "/api/v1/users/u1/collection", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/users/u1/collection", "wrong", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/users/u1/collection", userKey, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/admin/stats", userKey, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/admin/stats", adminKey, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestDrawDaily_SecondCallIsLimited(t *testing.T) {
	s := newServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/users/u1/draws/daily", userKey, nil)
	require.Equal(t, http.StatusCreated, code)
	var res struct {
		Items []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Len(t, res.Items, 1)

	code, env = s.do(t, http.MethodPost, "/api/v1/users/u1/draws/daily", userKey, nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "DAILY_DRAW_TAKEN", env.Error.Code)
}

func TestTrades_ProposeAcceptAndErrors(t *testing.T) {
	s := newServer(t)
	s.give(t, "u1", aria, 1)
	s.give(t, "u2", mentor, 1)

	code, env := s.do(t, http.MethodPost, "/api/v1/trades", userKey, map[string]interface{}{
		"requester_id": "u1",
		"target_id":    "u2",
		"offered":      aria,
		"requested":    mentor,
	})
	require.Equal(t, http.StatusCreated, code, env)
	var tr model.TradeRequest
	require.NoError(t, json.Unmarshal(env.Data, &tr))
	assert.Equal(t, model.TradePending, tr.Status)

	code, env = s.do(t, http.MethodPost, "/api/v1/trades/"+tr.ID+"/decline", userKey, map[string]string{"user_id": "u3"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "NOT_PARTICIPANT", env.Error.Code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/trades/"+tr.ID+"/accept", userKey, map[string]string{"user_id": "u2"})
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodPost, "/api/v1/trades/"+tr.ID+"/accept", userKey, map[string]string{"user_id": "u2"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "TRADE_CLOSED", env.Error.Code)

	code, env = s.do(t, http.MethodPost, "/api/v1/trades/missing/cancel", userKey, map[string]string{"user_id": "u1"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "TRADE_NOT_FOUND", env.Error.Code)

	code, env = s.do(t, http.MethodGet, "/api/v1/users/u1/collection", userKey, nil)
	require.Equal(t, http.StatusOK, code)
	var col struct {
		Items []model.OwnedItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &col))
	require.Len(t, col.Items, 1)
	assert.Equal(t, "Mentor", col.Items[0].Name)
}

func TestBoard_DepositListAccept(t *testing.T) {
	s := newServer(t)
	s.give(t, "seller", aria, 1)
	s.give(t, "buyer", mentor, 1)

	code, env := s.do(t, http.MethodPost, "/api/v1/users/seller/vault/deposit", userKey, aria)
	require.Equal(t, http.StatusOK, code, env)
	code, env = s.do(t, http.MethodPost, "/api/v1/users/buyer/vault/deposit", userKey, mentor)
	require.Equal(t, http.StatusOK, code, env)

	code, env = s.do(t, http.MethodPost, "/api/v1/board", userKey, map[string]interface{}{
		"user_id": "seller",
		"item":    aria,
		"comment": "looking for teachers",
	})
	require.Equal(t, http.StatusCreated, code, env)
	var offer model.BoardOffer
	require.NoError(t, json.Unmarshal(env.Data, &offer))

	code, env = s.do(t, http.MethodGet, "/api/v1/board", userKey, nil)
	require.Equal(t, http.StatusOK, code)
	var offers []model.BoardOffer
	require.NoError(t, json.Unmarshal(env.Data, &offers))
	assert.Len(t, offers, 1)

	path := fmt.Sprintf("/api/v1/board/%d/accept", offer.ID)
	code, env = s.do(t, http.MethodPost, path, userKey, map[string]interface{}{"user_id": "seller", "item": mentor})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "OWN_OFFER", env.Error.Code)

	code, _ = s.do(t, http.MethodPost, path, userKey, map[string]interface{}{"user_id": "buyer", "item": mentor})
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodPost, path, userKey, map[string]interface{}{"user_id": "buyer", "item": mentor})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "OFFER_UNAVAILABLE", env.Error.Code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/board/abc/withdraw", userKey, map[string]string{"user_id": "seller"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRequests_RejectMalformedInput(t *testing.T) {
	s := newServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/users/u1/vault/deposit", userKey, model.ItemKey{Category: "Students", Name: "Nobody"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "UNKNOWN_ITEM", env.Error.Code)

	code, env = s.do(t, http.MethodPost, "/api/v1/trades", userKey, map[string]string{"bogus": "x"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/discoveries?limit=-1", userKey, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAdmin_GrantBonusAndExpire(t *testing.T) {
	s := newServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/admin/users/u1/bonus", adminKey, map[string]int{"credits": 2})
	require.Equal(t, http.StatusOK, code, env)
	assert.JSONEq(t, `{"bonus_credits":2}`, string(env.Data))

	code, _ = s.do(t, http.MethodPost, "/api/v1/admin/users/u1/bonus", adminKey, map[string]int{"credits": 0})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/users/u1/draws/bonus", userKey, nil)
	assert.Equal(t, http.StatusCreated, code)

	code, env = s.do(t, http.MethodPost, "/api/v1/admin/trades/expire", adminKey, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"expired":0}`, string(env.Data))
}

func TestDisplayNameHeader_NamesDiscoveriesAndOffers(t *testing.T) {
	s := newServer(t)

	code, _ := s.doAs(t, http.MethodPost, "/api/v1/users/u1/draws/daily", userKey, "Ally", nil)
	require.Equal(t, http.StatusCreated, code)

	code, env := s.do(t, http.MethodGet, "/api/v1/discoveries", userKey, nil)
	require.Equal(t, http.StatusOK, code)
	var list []model.Discovery
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "u1", list[0].DiscovererID)
	assert.Equal(t, "Ally", list[0].DiscovererName)

	s.give(t, "u2", aria, 1)
	code, _ = s.do(t, http.MethodPost, "/api/v1/users/u2/vault/deposit", userKey, aria)
	require.Equal(t, http.StatusOK, code)
	code, env = s.doAs(t, http.MethodPost, "/api/v1/board", userKey, "Bea", map[string]interface{}{
		"user_id": "u2",
		"item":    aria,
	})
	require.Equal(t, http.StatusCreated, code)
	var offer model.BoardOffer
	require.NoError(t, json.Unmarshal(env.Data, &offer))
	assert.Equal(t, "Bea", offer.OwnerName)
}

func TestAdmin_ReloadLedgerPicksUpStoreEdits(t *testing.T) {
	s := newServer(t)

	code, env := s.do(t, http.MethodGet, "/api/v1/users/u1/collection", userKey, nil)
	require.Equal(t, http.StatusOK, code)

	require.NoError(t, s.app.Store.ApplyBatch(context.Background(), "cards", repository.Batch{
		Upserts: []repository.Row{{Key: "Students\x1fAria", Cells: []string{"Students", "Aria", "u1:2"}}},
	}))

	code, _ = s.do(t, http.MethodPost, "/api/v1/admin/ledger/reload", userKey, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodPost, "/api/v1/admin/ledger/reload", adminKey, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodGet, "/api/v1/users/u1/collection", userKey, nil)
	require.Equal(t, http.StatusOK, code)
	var col struct {
		Items []model.OwnedItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &col))
	require.Len(t, col.Items, 1)
	assert.Equal(t, 2, col.Items[0].Count)
}
