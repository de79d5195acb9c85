// Package audit keeps an append-only trail of committed economy events.
package audit

import (
	"log"
	"time"

	"cardvault-api/internal/model"
)

// EventType names a committed economy event.
type EventType string

const (
	EventDraw          EventType = "draw"
	EventSacrifice     EventType = "sacrifice"
	EventUpgrade       EventType = "upgrade"
	EventDiscovery     EventType = "discovery"
	EventVaultDeposit  EventType = "vault_deposit"
	EventVaultWithdraw EventType = "vault_withdraw"
	EventBoardDeposit  EventType = "board_deposit"
	EventBoardWithdraw EventType = "board_withdraw"
	EventBoardTrade    EventType = "board_trade"
	EventTradeProposed EventType = "trade_proposed"
	EventTradeResolved EventType = "trade_resolved"
	EventBonusGranted  EventType = "bonus_granted"
)

// Event is one line of the audit trail.
type Event struct {
	Time         time.Time       `json:"time"`
	Type         EventType       `json:"type"`
	UserID       string          `json:"user_id"`
	Counterparty string          `json:"counterparty,omitempty"`
	Gave         []model.ItemKey `json:"gave,omitempty"`
	Got          []model.ItemKey `json:"got,omitempty"`
	Ref          string          `json:"ref,omitempty"`
	Detail       string          `json:"detail,omitempty"`
}

// Recorder receives committed events. Recording happens after the commit, so
// a failure is logged and never undoes the mutation.
type Recorder interface {
	Record(ev Event)
	Close() error
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(Event) {}
func (Nop) Close() error { return nil }

// Trail writes events to hourly JSONL.zst files.
type Trail struct {
	w *JSONLZstdWriter
}

// NewTrail writes audit files into dir with the "economy" prefix.
func NewTrail(dir string) *Trail {
	return &Trail{w: NewJSONLZstdWriter(dir, "economy")}
}

func (t *Trail) Record(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = t.w.now().UTC()
	}
	if err := t.w.Write(ev); err != nil {
		log.Printf("[Audit] Failed to record %s for %s: %v", ev.Type, ev.UserID, err)
	}
}

func (t *Trail) Close() error { return t.w.Close() }

// Open returns a Trail when dir is set and a Nop otherwise.
func Open(dir string) Recorder {
	if dir == "" {
		return Nop{}
	}
	return NewTrail(dir)
}
