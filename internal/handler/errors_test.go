package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"cardvault-api/internal/model"
	"cardvault-api/pkg/apierror"

	"github.com/stretchr/testify/assert"
)

func TestToAPIError_MapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{model.Wrap(model.ErrUnknownItem, "Students/Nobody", nil), http.StatusBadRequest, "UNKNOWN_ITEM"},
		{model.ErrTradeNotFound, http.StatusNotFound, "TRADE_NOT_FOUND"},
		{model.ErrNotOfferOwner, http.StatusForbidden, "NOT_OFFER_OWNER"},
		{fmt.Errorf("draw: %w", model.ErrDailyDrawTaken), http.StatusTooManyRequests, "DAILY_DRAW_TAKEN"},
		{model.ErrOfferUnavailable, http.StatusConflict, "OFFER_UNAVAILABLE"},
		{model.Wrap(model.ErrPersistence, "cards", errors.New("disk full")), http.StatusServiceUnavailable, "PERSISTENCE_FAILURE"},
		{model.ErrExchangeVerification, http.StatusInternalServerError, "EXCHANGE_VERIFICATION"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{apierror.BadRequest("bad"), http.StatusBadRequest, "BAD_REQUEST"},
	}
	for _, tc := range cases {
		got := toAPIError(tc.err)
		assert.Equal(t, tc.status, got.StatusCode, tc.err.Error())
		assert.Equal(t, tc.code, got.Code, tc.err.Error())
	}
}

func TestToAPIError_HidesInternalDetail(t *testing.T) {
	got := toAPIError(model.Wrap(model.ErrPersistence, "cards", errors.New("dial tcp 10.0.0.1:5432")))
	assert.NotContains(t, got.Message, "10.0.0.1")
}
