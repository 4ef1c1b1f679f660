package feed

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/brojonat/memofeed/service/xrpl"
)

// PostRecord is the feed representation of a post, comment or like.
// JSON field names are part of the public API.
type PostRecord struct {
	Account     string    `json:"account"`
	Amount      string    `json:"amount"`
	Date        time.Time `json:"date"`
	Hash        string    `json:"hash"`
	Content     string    `json:"memoData"`
	Username    *string   `json:"username,omitempty"`
	GravatarURL string    `json:"gravatarURL"`
}

// Extract derives the content fields of a record. Identity fields are left
// empty for the enricher.
//
// Comment content drops the leading post reference and the delimiter that
// follows it.
func Extract(txn *xrpl.Transaction, kind Kind) (PostRecord, error) {
	text, ok := txn.FirstMemo()
	if !ok {
		return PostRecord{}, fmt.Errorf("%w: %s %s has no memo", ErrMalformedRecord, kind, txn.Hash)
	}

	if kind == KindComment {
		text = commentText(text)
	}

	return PostRecord{
		Account: txn.Account,
		Amount:  txn.Amount.Display(),
		Date:    txn.Time(),
		Hash:    txn.Hash,
		Content: text,
	}, nil
}

// commentText returns the memo after the post reference and one delimiter
// rune. A multi-byte delimiter is skipped whole.
func commentText(memo string) string {
	if len(memo) <= PostRefLength {
		return ""
	}
	rest := memo[PostRefLength:]
	_, size := utf8.DecodeRuneInString(rest)
	return rest[size:]
}
