package feed

import (
	"strings"

	"github.com/brojonat/memofeed/service/xrpl"
)

// Destination tags used as content-type discriminators.
const (
	PostDestinationTag    uint32 = 99
	CommentDestinationTag uint32 = 100
	LikeDestinationTag    uint32 = 101
)

// PostRefLength is the width of the post reference at the start of
// comment and like memos.
const PostRefLength = 64

// Kind is the feed role of a classified transaction.
type Kind int

const (
	KindPost Kind = iota
	KindComment
	KindLike
)

func (k Kind) String() string {
	switch k {
	case KindPost:
		return "post"
	case KindComment:
		return "comment"
	case KindLike:
		return "like"
	default:
		return "unknown"
	}
}

// ClassifierOptions tunes classification rules.
type ClassifierOptions struct {
	// BlacklistLikes applies the blacklist to likes as well as posts and comments.
	BlacklistLikes bool
}

// Classifier partitions raw ledger records into feed candidates.
// All methods are stable filters: output order matches input order.
type Classifier struct {
	overrides OverrideStore
	opts      ClassifierOptions
}

// NewClassifier creates a classifier. A nil override store means no overrides.
func NewClassifier(overrides OverrideStore, opts ClassifierOptions) *Classifier {
	if overrides == nil {
		overrides = NewOverrides(nil, nil)
	}
	return &Classifier{overrides: overrides, opts: opts}
}

// IsPost reports whether txn is a post: a payment with a memo that carries the
// post tag or is whitelisted, and is not blacklisted.
func (c *Classifier) IsPost(txn *xrpl.Transaction) bool {
	if c.overrides.IsBlacklisted(txn.Hash) {
		return false
	}
	if txn.TransactionType != xrpl.TransactionTypePayment || !txn.HasMemo() {
		return false
	}
	return txn.HasDestinationTag(PostDestinationTag) || c.overrides.IsWhitelisted(txn.Hash)
}

// IsComment reports whether txn is a comment on postID.
func (c *Classifier) IsComment(txn *xrpl.Transaction, postID string) bool {
	if c.overrides.IsBlacklisted(txn.Hash) || !txn.HasDestinationTag(CommentDestinationTag) {
		return false
	}
	text, ok := txn.FirstMemo()
	if !ok || len(text) < PostRefLength {
		return false
	}
	return text[:PostRefLength] == postID
}

// IsLike reports whether txn is a like of postID.
func (c *Classifier) IsLike(txn *xrpl.Transaction, postID string) bool {
	if c.opts.BlacklistLikes && c.overrides.IsBlacklisted(txn.Hash) {
		return false
	}
	if !txn.HasDestinationTag(LikeDestinationTag) {
		return false
	}
	text, ok := txn.FirstMemo()
	if !ok {
		return false
	}
	return postRef(text) == postID
}

// Posts returns the post candidates in records.
func (c *Classifier) Posts(records []*xrpl.Transaction) []*xrpl.Transaction {
	return filter(records, c.IsPost)
}

// PostsByAccount returns the post candidates authored by account.
func (c *Classifier) PostsByAccount(records []*xrpl.Transaction, account string) []*xrpl.Transaction {
	return filter(records, func(txn *xrpl.Transaction) bool {
		return txn.Account == account && c.IsPost(txn)
	})
}

// Post returns the post candidate with the given hash, ignoring case.
func (c *Classifier) Post(records []*xrpl.Transaction, id string) (*xrpl.Transaction, bool) {
	for _, txn := range records {
		if strings.EqualFold(txn.Hash, id) && c.IsPost(txn) {
			return txn, true
		}
	}
	return nil, false
}

// Comments returns the comments on postID.
func (c *Classifier) Comments(records []*xrpl.Transaction, postID string) []*xrpl.Transaction {
	return filter(records, func(txn *xrpl.Transaction) bool {
		return c.IsComment(txn, postID)
	})
}

// Likes returns the likes of postID.
func (c *Classifier) Likes(records []*xrpl.Transaction, postID string) []*xrpl.Transaction {
	return filter(records, func(txn *xrpl.Transaction) bool {
		return c.IsLike(txn, postID)
	})
}

// postRef returns the leading post reference of a decoded memo, or the whole
// memo when it is shorter than a reference.
func postRef(text string) string {
	if len(text) < PostRefLength {
		return text
	}
	return text[:PostRefLength]
}

func filter(records []*xrpl.Transaction, keep func(*xrpl.Transaction) bool) []*xrpl.Transaction {
	out := make([]*xrpl.Transaction, 0, len(records))
	for _, txn := range records {
		if keep(txn) {
			out = append(out, txn)
		}
	}
	return out
}
