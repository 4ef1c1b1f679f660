package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/brojonat/memofeed/service/identity"
	"github.com/brojonat/memofeed/service/memo"
	"github.com/brojonat/memofeed/service/xrpl"
)

// hashN returns a deterministic 64-character transaction hash.
func hashN(n int) string {
	return fmt.Sprintf("%064X", n)
}

func tag(v uint32) *uint32 {
	return &v
}

func memos(text string) []xrpl.MemoWrapper {
	return []xrpl.MemoWrapper{{Memo: xrpl.Memo{MemoData: memo.Encode(text)}}}
}

func post(n int, account, text string) *xrpl.Transaction {
	return &xrpl.Transaction{
		Account:         account,
		DestinationTag:  tag(PostDestinationTag),
		TransactionType: xrpl.TransactionTypePayment,
		Amount:          xrpl.Native(1000000),
		Date:            int64(n),
		Hash:            hashN(n),
		Memos:           memos(text),
	}
}

func comment(n int, account, postID, text string) *xrpl.Transaction {
	return &xrpl.Transaction{
		Account:         account,
		DestinationTag:  tag(CommentDestinationTag),
		TransactionType: xrpl.TransactionTypePayment,
		Amount:          xrpl.Native(1),
		Date:            int64(n),
		Hash:            hashN(n),
		Memos:           memos(postID + "|" + text),
	}
}

func like(n int, account, postID string) *xrpl.Transaction {
	return &xrpl.Transaction{
		Account:         account,
		DestinationTag:  tag(LikeDestinationTag),
		TransactionType: xrpl.TransactionTypePayment,
		Amount:          xrpl.Native(1),
		Date:            int64(n),
		Hash:            hashN(n),
		Memos:           memos(postID),
	}
}

func hashes(txns []*xrpl.Transaction) []string {
	out := make([]string, len(txns))
	for i, txn := range txns {
		out[i] = txn.Hash
	}
	return out
}

// fakeSource serves a fixed history.
type fakeSource struct {
	records []*xrpl.Transaction
	err     error
	calls   int
}

func (f *fakeSource) AccountTransactions(ctx context.Context, account string) ([]*xrpl.Transaction, error) {
	f.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

// fakeEnricher names every account "user-<account>" except those listed in
// anonymous, and counts lookups.
type fakeEnricher struct {
	mu        sync.Mutex
	anonymous map[string]bool
	lookups   int
	inFlight  int
	maxFlight int
	block     chan struct{}
}

func (f *fakeEnricher) resolve(ctx context.Context, account string, size int) identity.Identity {
	f.mu.Lock()
	f.lookups++
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	id := identity.Identity{
		Account:     account,
		GravatarURL: identity.GravatarURL(strings.ToLower(account), size),
	}
	if !f.anonymous[account] {
		name := "user-" + account
		id.Username = &name
	}
	return id
}

func (f *fakeEnricher) Feed(ctx context.Context, account string) identity.Identity {
	return f.resolve(ctx, account, 40)
}

func (f *fakeEnricher) Profile(ctx context.Context, account string) identity.Identity {
	return f.resolve(ctx, account, 80)
}
