package xrpl

import (
	"time"

	"github.com/brojonat/memofeed/service/memo"
)

// Transaction types referenced by the feed.
const (
	TransactionTypePayment = "Payment"
)

// RippleEpochOffset is the number of seconds between the Unix epoch and the
// ledger epoch (2000-01-01T00:00:00Z).
const RippleEpochOffset int64 = 946684800

// NativeSymbol is the display symbol for native amounts.
const NativeSymbol = "XRP"

// DropsPerXRP is the number of drops in one XRP.
const DropsPerXRP int64 = 1_000_000

// Transaction is a raw ledger transaction record as returned by account_tx.
// Records are read-only once fetched.
type Transaction struct {
	Account         string        `json:"Account"`
	Destination     string        `json:"Destination,omitempty"`
	DestinationTag  *uint32       `json:"DestinationTag,omitempty"`
	TransactionType string        `json:"TransactionType"`
	Amount          Amount        `json:"Amount"`
	Date            int64         `json:"date"`
	Hash            string        `json:"hash"`
	LedgerIndex     uint32        `json:"ledger_index,omitempty"`
	Memos           []MemoWrapper `json:"Memos,omitempty"`
}

// MemoWrapper mirrors the ledger's {"Memo": {...}} envelope.
type MemoWrapper struct {
	Memo Memo `json:"Memo"`
}

// Memo is a single memo entry. All fields are hex encoded.
type Memo struct {
	MemoData   string `json:"MemoData,omitempty"`
	MemoType   string `json:"MemoType,omitempty"`
	MemoFormat string `json:"MemoFormat,omitempty"`
}

// HasDestinationTag reports whether the transaction carries the given tag.
func (t *Transaction) HasDestinationTag(tag uint32) bool {
	return t.DestinationTag != nil && *t.DestinationTag == tag
}

// HasMemo reports whether the transaction carries at least one memo.
func (t *Transaction) HasMemo() bool {
	return len(t.Memos) > 0
}

// FirstMemo returns the decoded text of the first memo.
// ok is false when the transaction has no memos.
func (t *Transaction) FirstMemo() (text string, ok bool) {
	if len(t.Memos) == 0 {
		return "", false
	}
	return memo.Decode(t.Memos[0].Memo.MemoData), true
}

// Time returns the transaction's close time.
func (t *Transaction) Time() time.Time {
	return Time(t.Date)
}

// Time converts a ledger date (seconds since 2000-01-01T00:00:00Z) to UTC time.
func Time(date int64) time.Time {
	return time.Unix(date+RippleEpochOffset, 0).UTC()
}
