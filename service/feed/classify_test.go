package feed

import (
	"strings"
	"testing"

	"github.com/brojonat/memofeed/service/xrpl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifier_Posts(t *testing.T) {
	target := hashN(1)

	noMemo := post(2, "rA", "x")
	noMemo.Memos = nil

	notPayment := post(3, "rA", "x")
	notPayment.TransactionType = "AccountSet"

	untagged := post(4, "rA", "x")
	untagged.DestinationTag = nil

	records := []*xrpl.Transaction{
		post(1, "rA", "first"),
		noMemo,
		notPayment,
		untagged,
		comment(5, "rB", target, "nice"),
		like(6, "rC", target),
		post(7, "rB", "second"),
	}

	c := NewClassifier(nil, ClassifierOptions{})
	assert.Equal(t, []string{hashN(1), hashN(7)}, hashes(c.Posts(records)))
}

func TestClassifier_Overrides(t *testing.T) {
	untagged := post(1, "rA", "tagged by mistake")
	untagged.DestinationTag = tag(0)
	records := []*xrpl.Transaction{untagged, post(2, "rA", "spam")}

	t.Run("whitelist admits untagged payment", func(t *testing.T) {
		c := NewClassifier(NewOverrides(nil, []string{hashN(1)}), ClassifierOptions{})
		assert.Equal(t, []string{hashN(1), hashN(2)}, hashes(c.Posts(records)))
	})

	t.Run("blacklist excludes tagged post", func(t *testing.T) {
		c := NewClassifier(NewOverrides([]string{hashN(2)}, nil), ClassifierOptions{})
		assert.Empty(t, c.Posts(records))
	})

	t.Run("blacklist wins over whitelist", func(t *testing.T) {
		c := NewClassifier(NewOverrides([]string{hashN(1)}, []string{hashN(1)}), ClassifierOptions{})
		assert.Equal(t, []string{hashN(2)}, hashes(c.Posts(records)))
	})

	t.Run("hash lookups ignore case", func(t *testing.T) {
		c := NewClassifier(NewOverrides([]string{strings.ToLower(hashN(2))}, nil), ClassifierOptions{})
		assert.Empty(t, c.Posts(records[1:]))
	})

	t.Run("whitelist does not admit non-payments", func(t *testing.T) {
		txn := post(3, "rA", "x")
		txn.TransactionType = "TrustSet"
		c := NewClassifier(NewOverrides(nil, []string{hashN(3)}), ClassifierOptions{})
		assert.Empty(t, c.Posts([]*xrpl.Transaction{txn}))
	})
}

func TestClassifier_BlacklistNeverYieldsPosts(t *testing.T) {
	var records []*xrpl.Transaction
	var all []string
	for i := 1; i <= 20; i++ {
		txn := post(i, "rA", "x")
		if i%3 == 0 {
			txn.DestinationTag = nil
		}
		records = append(records, txn)
		all = append(all, txn.Hash)
	}

	blacklist := all[:10]
	c := NewClassifier(NewOverrides(blacklist, all), ClassifierOptions{})

	for _, txn := range c.Posts(records) {
		assert.NotContains(t, blacklist, txn.Hash)
	}
	assert.Len(t, c.Posts(records), 10)
}

func TestClassifier_PostsByAccount(t *testing.T) {
	records := []*xrpl.Transaction{
		post(1, "rA", "a1"),
		post(2, "rB", "b1"),
		post(3, "rA", "a2"),
	}
	c := NewClassifier(nil, ClassifierOptions{})

	assert.Equal(t, []string{hashN(1), hashN(3)}, hashes(c.PostsByAccount(records, "rA")))
	assert.Empty(t, c.PostsByAccount(records, "rZ"))
}

func TestClassifier_Post(t *testing.T) {
	c := NewClassifier(nil, ClassifierOptions{})
	target := hashN(1)
	records := []*xrpl.Transaction{post(1, "rA", "hi"), comment(2, "rB", target, "yo")}

	txn, ok := c.Post(records, target)
	require.True(t, ok)
	assert.Equal(t, target, txn.Hash)

	// Only post candidates can be found.
	_, ok = c.Post(records, hashN(2))
	assert.False(t, ok)

	_, ok = c.Post(records, hashN(99))
	assert.False(t, ok)
}

func TestClassifier_PostIgnoresCase(t *testing.T) {
	c := NewClassifier(nil, ClassifierOptions{})
	target := hashN(0xBEEF)
	records := []*xrpl.Transaction{post(0xBEEF, "rA", "hi")}

	txn, ok := c.Post(records, strings.ToLower(target))
	require.True(t, ok)
	assert.Equal(t, target, txn.Hash)
}

func TestClassifier_Comments(t *testing.T) {
	target := hashN(1)
	other := hashN(2)

	short := comment(6, "rB", target, "x")
	short.Memos = memos(target[:63])

	noMemo := comment(7, "rB", target, "x")
	noMemo.Memos = nil

	records := []*xrpl.Transaction{
		post(1, "rA", "hello"),
		comment(3, "rB", target, "first!"),
		comment(4, "rC", other, "wrong post"),
		comment(5, "rD", target, "second"),
		short,
		noMemo,
		like(8, "rE", target),
	}

	t.Run("matches target and keeps order", func(t *testing.T) {
		c := NewClassifier(nil, ClassifierOptions{})
		assert.Equal(t, []string{hashN(3), hashN(5)}, hashes(c.Comments(records, target)))
	})

	t.Run("blacklisted comments are dropped", func(t *testing.T) {
		c := NewClassifier(NewOverrides([]string{hashN(3)}, nil), ClassifierOptions{})
		assert.Equal(t, []string{hashN(5)}, hashes(c.Comments(records, target)))
	})

	t.Run("bare reference without text is a comment", func(t *testing.T) {
		bare := comment(9, "rB", target, "")
		bare.Memos = memos(target)
		c := NewClassifier(nil, ClassifierOptions{})
		assert.Len(t, c.Comments([]*xrpl.Transaction{bare}, target), 1)
	})
}

func TestClassifier_Likes(t *testing.T) {
	target := hashN(1)
	records := []*xrpl.Transaction{
		post(1, "rA", "hello"),
		like(2, "rB", target),
		like(3, "rC", hashN(9)),
		comment(4, "rD", target, "not a like"),
		like(5, "rE", target),
	}

	t.Run("matches target", func(t *testing.T) {
		c := NewClassifier(nil, ClassifierOptions{})
		assert.Equal(t, []string{hashN(2), hashN(5)}, hashes(c.Likes(records, target)))
	})

	t.Run("blacklist ignored by default", func(t *testing.T) {
		c := NewClassifier(NewOverrides([]string{hashN(2)}, nil), ClassifierOptions{})
		assert.Equal(t, []string{hashN(2), hashN(5)}, hashes(c.Likes(records, target)))
	})

	t.Run("blacklist applied when enabled", func(t *testing.T) {
		c := NewClassifier(NewOverrides([]string{hashN(2)}, nil), ClassifierOptions{BlacklistLikes: true})
		assert.Equal(t, []string{hashN(5)}, hashes(c.Likes(records, target)))
	})

	t.Run("like memo may carry trailing data", func(t *testing.T) {
		txn := like(6, "rF", target)
		txn.Memos = memos(target + "|extra")
		c := NewClassifier(nil, ClassifierOptions{})
		assert.Len(t, c.Likes([]*xrpl.Transaction{txn}, target), 1)
	})
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "post", KindPost.String())
	assert.Equal(t, "comment", KindComment.String())
	assert.Equal(t, "like", KindLike.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
