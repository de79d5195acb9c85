package handler

import (
	"net/http"
	"strconv"
	"strings"

	"cardvault-api/internal/model"
	"cardvault-api/internal/service"
	"cardvault-api/pkg/apierror"
	"cardvault-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

const (
	defaultDiscoveryLimit = 50
	maxDisplayNameLen     = 64

	// DisplayNameHeader optionally carries the caller's display name.
	DisplayNameHeader = "X-Display-Name"
)

// EconomyHandler exposes the economy operations over HTTP.
type EconomyHandler struct {
	svc *service.EconomyService
}

// NewEconomyHandler creates a new economy handler.
func NewEconomyHandler(svc *service.EconomyService) *EconomyHandler {
	return &EconomyHandler{svc: svc}
}

type itemRequest struct {
	Category string `json:"category"`
	Name     string `json:"name"`
}

func (i itemRequest) key() model.ItemKey {
	return model.ItemKey{Category: i.Category, Name: i.Name}
}

type userRequest struct {
	UserID string `json:"user_id"`
}

type proposeRequest struct {
	RequesterID string      `json:"requester_id"`
	TargetID    string      `json:"target_id"`
	Offered     itemRequest `json:"offered"`
	Requested   itemRequest `json:"requested"`
}

type boardDepositRequest struct {
	UserID  string      `json:"user_id"`
	Item    itemRequest `json:"item"`
	Comment string      `json:"comment"`
}

type boardAcceptRequest struct {
	UserID string      `json:"user_id"`
	Item   itemRequest `json:"item"`
}

// RememberCaller is middleware for user-scoped routes: a display name sent in
// DisplayNameHeader is recorded for the user in the path.
func (h *EconomyHandler) RememberCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.remember(r, userParam(r))
		next.ServeHTTP(w, r)
	})
}

func (h *EconomyHandler) remember(r *http.Request, userID string) {
	name := strings.TrimSpace(r.Header.Get(DisplayNameHeader))
	if name == "" || userID == "" {
		return
	}
	if runes := []rune(name); len(runes) > maxDisplayNameLen {
		name = string(runes[:maxDisplayNameLen])
	}
	h.svc.RememberName(r.Context(), userID, name)
}

func userParam(r *http.Request) string {
	return chi.URLParam(r, "user_id")
}

func offerParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "offer_id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, apierror.BadRequest("offer_id must be a positive integer"))
		return 0, false
	}
	return id, true
}

// GetCollection handles GET /api/v1/users/{user_id}/collection
func (h *EconomyHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCollection(r.Context(), userParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, c)
}

// GetStats handles GET /api/v1/users/{user_id}/stats
func (h *EconomyHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.GetStats(r.Context(), userParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, st)
}

// DrawDaily handles POST /api/v1/users/{user_id}/draws/daily
func (h *EconomyHandler) DrawDaily(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.DrawDaily(r.Context(), userParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, res)
}

// DrawBonus handles POST /api/v1/users/{user_id}/draws/bonus
func (h *EconomyHandler) DrawBonus(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.DrawBonus(r.Context(), userParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, res)
}

// DrawSacrificial handles POST /api/v1/users/{user_id}/draws/sacrifice
func (h *EconomyHandler) DrawSacrificial(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.DrawSacrificial(r.Context(), userParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, res)
}

// PreviewSacrifice handles GET /api/v1/users/{user_id}/sacrifice
func (h *EconomyHandler) PreviewSacrifice(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.PreviewSacrifice(r.Context(), userParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, p)
}

// ListTrades handles GET /api/v1/users/{user_id}/trades?pending=true
func (h *EconomyHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	pendingOnly, _ := strconv.ParseBool(r.URL.Query().Get("pending"))
	trades, err := h.svc.ListTrades(r.Context(), userParam(r), pendingOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.List(w, trades, len(trades), 0)
}

// DepositToVault handles POST /api/v1/users/{user_id}/vault/deposit
func (h *EconomyHandler) DepositToVault(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.DepositToVault(r.Context(), userParam(r), req.key())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, res)
}

// WithdrawFromVault handles POST /api/v1/users/{user_id}/vault/withdraw
func (h *EconomyHandler) WithdrawFromVault(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.WithdrawFromVault(r.Context(), userParam(r), req.key())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, res)
}

// ProposeTrade handles POST /api/v1/trades
func (h *EconomyHandler) ProposeTrade(w http.ResponseWriter, r *http.Request) {
	var req proposeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tr, err := h.svc.ProposeTrade(r.Context(), req.RequesterID, req.TargetID, req.Offered.key(), req.Requested.key())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, tr)
}

// AcceptTrade handles POST /api/v1/trades/{trade_id}/accept
func (h *EconomyHandler) AcceptTrade(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.svc.AcceptTrade(r.Context(), chi.URLParam(r, "trade_id"), req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, out)
}

// DeclineTrade handles POST /api/v1/trades/{trade_id}/decline
func (h *EconomyHandler) DeclineTrade(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tr, err := h.svc.DeclineTrade(r.Context(), chi.URLParam(r, "trade_id"), req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, tr)
}

// CancelTrade handles POST /api/v1/trades/{trade_id}/cancel
func (h *EconomyHandler) CancelTrade(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tr, err := h.svc.CancelTrade(r.Context(), chi.URLParam(r, "trade_id"), req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, tr)
}

// ListBoard handles GET /api/v1/board
func (h *EconomyHandler) ListBoard(w http.ResponseWriter, r *http.Request) {
	offers, err := h.svc.ListBoard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.List(w, offers, len(offers), 0)
}

// DepositToBoard handles POST /api/v1/board
func (h *EconomyHandler) DepositToBoard(w http.ResponseWriter, r *http.Request) {
	var req boardDepositRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.remember(r, req.UserID)
	offer, err := h.svc.DepositToBoard(r.Context(), req.UserID, req.Item.key(), req.Comment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, offer)
}

// WithdrawFromBoard handles POST /api/v1/board/{offer_id}/withdraw
func (h *EconomyHandler) WithdrawFromBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := offerParam(w, r)
	if !ok {
		return
	}
	var req userRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	offer, err := h.svc.WithdrawFromBoard(r.Context(), req.UserID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, offer)
}

// AcceptBoardOffer handles POST /api/v1/board/{offer_id}/accept
func (h *EconomyHandler) AcceptBoardOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := offerParam(w, r)
	if !ok {
		return
	}
	var req boardAcceptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	trade, err := h.svc.AcceptBoardOffer(r.Context(), req.UserID, id, req.Item.key())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, trade)
}

// GetDiscoveries handles GET /api/v1/discoveries?limit=50
func (h *EconomyHandler) GetDiscoveries(w http.ResponseWriter, r *http.Request) {
	limit := defaultDiscoveryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.Error(w, apierror.BadRequest("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	list, err := h.svc.GetDiscoveries(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.List(w, list, len(list), limit)
}
