package xrpl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AmountKind distinguishes native from issued-currency amounts.
type AmountKind int

const (
	// AmountUnset is the zero value for transactions without an Amount field.
	AmountUnset AmountKind = iota
	// AmountNative is an amount of drops.
	AmountNative
	// AmountIssued is an issued-currency amount.
	AmountIssued
)

// Amount is the ledger's Amount field, resolved once at decode time.
// The wire format is either a string of drops or an object with value,
// currency and issuer.
type Amount struct {
	Kind     AmountKind
	Drops    int64
	Value    string
	Currency string
	Issuer   string
}

// Native returns a native amount of drops.
func Native(drops int64) Amount {
	return Amount{Kind: AmountNative, Drops: drops}
}

// Issued returns an issued-currency amount.
func Issued(value, currency, issuer string) Amount {
	return Amount{Kind: AmountIssued, Value: value, Currency: currency, Issuer: issuer}
}

type issuedAmountJSON struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
	Issuer   string `json:"issuer,omitempty"`
}

// UnmarshalJSON decodes either representation of a ledger amount.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}

	if data[0] == '{' {
		var issued issuedAmountJSON
		if err := json.Unmarshal(data, &issued); err != nil {
			return fmt.Errorf("invalid issued amount: %w", err)
		}
		*a = Issued(issued.Value, issued.Currency, issued.Issuer)
		return nil
	}

	var raw string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("invalid native amount: %w", err)
		}
	} else {
		raw = string(data)
	}

	drops, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid native amount %q: %w", raw, err)
	}
	if drops < 0 {
		return fmt.Errorf("invalid native amount %q: negative drops", raw)
	}
	*a = Native(drops)
	return nil
}

// MarshalJSON encodes the amount in the ledger wire format.
func (a Amount) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AmountNative:
		return json.Marshal(strconv.FormatInt(a.Drops, 10))
	case AmountIssued:
		return json.Marshal(issuedAmountJSON{Value: a.Value, Currency: a.Currency, Issuer: a.Issuer})
	default:
		return []byte("null"), nil
	}
}

// Display renders the amount for the feed: "1.5 XRP" or "5 USD".
func (a Amount) Display() string {
	switch a.Kind {
	case AmountNative:
		return formatDrops(a.Drops) + " " + NativeSymbol
	case AmountIssued:
		return a.Value + " " + a.Currency
	default:
		return ""
	}
}

// formatDrops renders drops as a decimal XRP value without trailing zeros.
func formatDrops(drops int64) string {
	sign := ""
	mag := uint64(drops)
	if drops < 0 {
		sign = "-"
		mag = uint64(-(drops + 1)) + 1
	}

	whole := mag / uint64(DropsPerXRP)
	frac := mag % uint64(DropsPerXRP)
	if frac == 0 {
		return sign + strconv.FormatUint(whole, 10)
	}

	fracStr := strings.TrimRight(fmt.Sprintf("%06d", frac), "0")
	return sign + strconv.FormatUint(whole, 10) + "." + fracStr
}
