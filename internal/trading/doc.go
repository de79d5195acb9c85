// Package trading implements the atomic exchange protocol of the economy:
// direct two-party swaps, vault escrow, the public offer board, bazaar trade
// requests, and the daily/weekly gates.
//
// Every multi-step mutation follows validate → debit → debit → credit → credit
// → verify. Completed steps are recorded on an unwinder and undone in reverse
// order when a later step fails, so an operation either lands completely or
// leaves the ledger as it found it.
//
// Lock order follows ledger.LockOrder: cards → vault → board → trades →
// discoveries → counters. Go mutexes are not reentrant; helpers suffixed
// Locked expect the caller to hold the relevant locks.
package trading
