package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies economy failures for adapters.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindNotFound    ErrorKind = "not_found"
	KindForbidden   ErrorKind = "forbidden"
	KindLimit       ErrorKind = "limit"
	KindUnavailable ErrorKind = "unavailable"
	KindPersistence ErrorKind = "persistence"
	KindInvariant   ErrorKind = "invariant"
	KindInternal    ErrorKind = "internal"
)

// Error is a domain error carrying a kind and a stable code.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors with the same code, so wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Common errors
var (
	ErrUnknownItem          = &Error{Kind: KindValidation, Code: "UNKNOWN_ITEM", Message: "item does not exist"}
	ErrInsufficientItems    = &Error{Kind: KindValidation, Code: "INSUFFICIENT_ITEMS", Message: "not enough copies of item"}
	ErrUpgradedNotAllowed   = &Error{Kind: KindValidation, Code: "UPGRADED_NOT_ALLOWED", Message: "upgraded items cannot be moved there"}
	ErrSelfTrade            = &Error{Kind: KindValidation, Code: "SELF_TRADE", Message: "cannot trade with yourself"}
	ErrInvalidInput         = &Error{Kind: KindValidation, Code: "INVALID_INPUT", Message: "invalid input"}
	ErrNotEnoughCandidates  = &Error{Kind: KindValidation, Code: "NOT_ENOUGH_CANDIDATES", Message: "not enough distinct items to sacrifice"}
	ErrTradeNotFound        = &Error{Kind: KindNotFound, Code: "TRADE_NOT_FOUND", Message: "trade request not found"}
	ErrOfferNotFound        = &Error{Kind: KindNotFound, Code: "OFFER_NOT_FOUND", Message: "board offer not found"}
	ErrNotTradeParticipant  = &Error{Kind: KindForbidden, Code: "NOT_PARTICIPANT", Message: "user cannot act on this trade"}
	ErrNotOfferOwner        = &Error{Kind: KindForbidden, Code: "NOT_OFFER_OWNER", Message: "only the owner can withdraw this offer"}
	ErrOwnOffer             = &Error{Kind: KindValidation, Code: "OWN_OFFER", Message: "cannot accept your own offer"}
	ErrTradeClosed          = &Error{Kind: KindUnavailable, Code: "TRADE_CLOSED", Message: "trade request is no longer pending"}
	ErrOfferUnavailable     = &Error{Kind: KindUnavailable, Code: "OFFER_UNAVAILABLE", Message: "offer no longer available"}
	ErrDailyDrawTaken       = &Error{Kind: KindLimit, Code: "DAILY_DRAW_TAKEN", Message: "daily draw already taken today"}
	ErrSacrificeTaken       = &Error{Kind: KindLimit, Code: "SACRIFICE_TAKEN", Message: "sacrificial draw already taken today"}
	ErrNoBonusCredits       = &Error{Kind: KindLimit, Code: "NO_BONUS_CREDITS", Message: "no bonus draws available"}
	ErrWeeklyExchangeLimit  = &Error{Kind: KindLimit, Code: "WEEKLY_EXCHANGE_LIMIT", Message: "weekly exchange limit reached"}
	ErrEmptyCatalog         = &Error{Kind: KindInternal, Code: "EMPTY_CATALOG", Message: "no drawable items configured"}
	ErrPersistence          = &Error{Kind: KindPersistence, Code: "PERSISTENCE_FAILURE", Message: "storage unavailable"}
	ErrExchangeVerification = &Error{Kind: KindInvariant, Code: "EXCHANGE_VERIFICATION", Message: "exchange verification failed, rolled back"}
	ErrRollbackFailed       = &Error{Kind: KindInvariant, Code: "ROLLBACK_FAILED", Message: "rollback incomplete"}
)

// Wrap returns a copy of a sentinel with extra context and an optional cause.
func Wrap(base *Error, detail string, cause error) *Error {
	msg := base.Message
	if detail != "" {
		msg = base.Message + ": " + detail
	}
	return &Error{Kind: base.Kind, Code: base.Code, Message: msg, Err: cause}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
