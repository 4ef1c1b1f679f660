package feed

import (
	"context"
	"fmt"

	"github.com/brojonat/memofeed/service/metrics"
	"github.com/brojonat/memofeed/service/xrpl"
)

// Source supplies the raw transaction history of the feed account.
// Both the ledger client and the Postgres archive implement it.
type Source interface {
	AccountTransactions(ctx context.Context, account string) ([]*xrpl.Transaction, error)
}

// CandidateSet is a classified view over one snapshot of the feed history.
type CandidateSet interface {
	Posts() []*xrpl.Transaction
	PostsByAccount(account string) []*xrpl.Transaction
	Post(id string) (*xrpl.Transaction, bool)
	Comments(postID string) []*xrpl.Transaction
	Likes(postID string) []*xrpl.Transaction
}

// CandidateProvider produces a CandidateSet for a read operation.
// The scanning implementation reclassifies the full history on every call;
// an incremental index can replace it without changing Service.
type CandidateProvider interface {
	Candidates(ctx context.Context) (CandidateSet, error)
}

// ScanProvider fetches the complete history from a Source and classifies it
// per call. Nothing is retained between calls.
type ScanProvider struct {
	source     Source
	account    string
	classifier *Classifier
	metrics    *metrics.Metrics
}

// NewScanProvider creates a provider over the history of account.
func NewScanProvider(source Source, account string, classifier *Classifier, m *metrics.Metrics) *ScanProvider {
	return &ScanProvider{
		source:     source,
		account:    account,
		classifier: classifier,
		metrics:    m,
	}
}

// Candidates fetches the history. Fetch failures, including cancellation,
// are wrapped with ErrUnavailable.
func (p *ScanProvider) Candidates(ctx context.Context) (CandidateSet, error) {
	records, err := p.source.AccountTransactions(ctx, p.account)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return &scanSet{records: records, classifier: p.classifier, metrics: p.metrics}, nil
}

type scanSet struct {
	records    []*xrpl.Transaction
	classifier *Classifier
	metrics    *metrics.Metrics
}

func (s *scanSet) Posts() []*xrpl.Transaction {
	return s.record(KindPost, s.classifier.Posts(s.records))
}

func (s *scanSet) PostsByAccount(account string) []*xrpl.Transaction {
	return s.record(KindPost, s.classifier.PostsByAccount(s.records, account))
}

func (s *scanSet) Post(id string) (*xrpl.Transaction, bool) {
	return s.classifier.Post(s.records, id)
}

func (s *scanSet) Comments(postID string) []*xrpl.Transaction {
	return s.record(KindComment, s.classifier.Comments(s.records, postID))
}

func (s *scanSet) Likes(postID string) []*xrpl.Transaction {
	return s.record(KindLike, s.classifier.Likes(s.records, postID))
}

func (s *scanSet) record(kind Kind, txns []*xrpl.Transaction) []*xrpl.Transaction {
	s.metrics.RecordCandidates(kind.String(), len(txns))
	return txns
}
