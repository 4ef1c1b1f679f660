package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brojonat/memofeed/service/identity"
	"github.com/brojonat/memofeed/service/metrics"
	"github.com/brojonat/memofeed/service/xrpl"
)

// Enricher resolves display identities. Implementations must not fail;
// lookup problems degrade to absent fields.
type Enricher interface {
	Feed(ctx context.Context, account string) identity.Identity
	Profile(ctx context.Context, account string) identity.Identity
}

// Thread is a post together with its comments and likes.
type Thread struct {
	Post     PostRecord   `json:"post"`
	Comments []PostRecord `json:"comments"`
	Likes    []PostRecord `json:"likes"`
}

// Service assembles feed read operations from candidates and identities.
type Service struct {
	candidates CandidateProvider
	enricher   Enricher
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewService creates a feed service.
func NewService(candidates CandidateProvider, enricher Enricher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		candidates: candidates,
		enricher:   enricher,
		metrics:    m,
		logger:     logger,
	}
}

// GetFeed returns the page of posts starting at cursor.
func (s *Service) GetFeed(ctx context.Context, cursor int) (result PageResult, err error) {
	defer s.observe("feed", time.Now(), &err)

	if cursor < 0 {
		return PageResult{}, fmt.Errorf("%w: %d", ErrInvalidCursor, cursor)
	}

	set, err := s.candidates.Candidates(ctx)
	if err != nil {
		return PageResult{}, err
	}

	return s.page(ctx, set.Posts(), cursor)
}

// GetFeedByAccount returns the page of posts authored by account starting at cursor.
func (s *Service) GetFeedByAccount(ctx context.Context, account string, cursor int) (result PageResult, err error) {
	defer s.observe("feed_by_account", time.Now(), &err)

	if cursor < 0 {
		return PageResult{}, fmt.Errorf("%w: %d", ErrInvalidCursor, cursor)
	}

	set, err := s.candidates.Candidates(ctx)
	if err != nil {
		return PageResult{}, err
	}

	return s.page(ctx, set.PostsByAccount(account), cursor)
}

// GetPost returns a single post. Post ids are matched case-insensitively.
func (s *Service) GetPost(ctx context.Context, id string) (post PostRecord, err error) {
	defer s.observe("post", time.Now(), &err)
	id = normalizeHash(id)

	set, err := s.candidates.Candidates(ctx)
	if err != nil {
		return PostRecord{}, err
	}

	return s.post(ctx, set, id)
}

// GetPostComments returns every comment on post id, in history order.
func (s *Service) GetPostComments(ctx context.Context, id string) (comments []PostRecord, err error) {
	defer s.observe("comments", time.Now(), &err)
	id = normalizeHash(id)

	set, err := s.candidates.Candidates(ctx)
	if err != nil {
		return nil, err
	}

	return s.materialize(ctx, set.Comments(id), KindComment)
}

// GetPostLikes returns every like of post id, in history order.
func (s *Service) GetPostLikes(ctx context.Context, id string) (likes []PostRecord, err error) {
	defer s.observe("likes", time.Now(), &err)
	id = normalizeHash(id)

	set, err := s.candidates.Candidates(ctx)
	if err != nil {
		return nil, err
	}

	return s.materialize(ctx, set.Likes(id), KindLike)
}

// GetPostThread returns a post with its comments and likes, all read from a
// single snapshot of the history.
func (s *Service) GetPostThread(ctx context.Context, id string) (thread Thread, err error) {
	defer s.observe("thread", time.Now(), &err)
	id = normalizeHash(id)

	set, err := s.candidates.Candidates(ctx)
	if err != nil {
		return Thread{}, err
	}

	post, err := s.post(ctx, set, id)
	if err != nil {
		return Thread{}, err
	}

	comments, err := s.materialize(ctx, set.Comments(id), KindComment)
	if err != nil {
		return Thread{}, err
	}

	likes, err := s.materialize(ctx, set.Likes(id), KindLike)
	if err != nil {
		return Thread{}, err
	}

	return Thread{Post: post, Comments: comments, Likes: likes}, nil
}

// GetUserInfo returns the profile identity of account.
func (s *Service) GetUserInfo(ctx context.Context, account string) (identity.Identity, error) {
	var err error
	defer s.observe("user_info", time.Now(), &err)

	if err = ctx.Err(); err != nil {
		return identity.Identity{}, err
	}
	return s.enricher.Profile(ctx, account), nil
}

func (s *Service) post(ctx context.Context, set CandidateSet, id string) (PostRecord, error) {
	txn, ok := set.Post(id)
	if !ok {
		return PostRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	records, err := s.materialize(ctx, []*xrpl.Transaction{txn}, KindPost)
	if err != nil {
		return PostRecord{}, err
	}
	return records[0], nil
}

func (s *Service) page(ctx context.Context, posts []*xrpl.Transaction, cursor int) (PageResult, error) {
	batch, next := Paginate(posts, cursor)

	items, err := s.materialize(ctx, batch, KindPost)
	if err != nil {
		return PageResult{}, err
	}

	s.logger.DebugContext(ctx, "assembled feed page",
		"cursor", cursor,
		"candidates", len(posts),
		"items", len(items),
		"has_next", next != nil,
	)

	return PageResult{Items: items, NextCursor: next}, nil
}

// materialize extracts every transaction, then enriches the records
// concurrently with at most PageSize lookups in flight. Output order matches
// input order. Enrichment never fails; extraction failures and cancellation
// fail the whole call.
func (s *Service) materialize(ctx context.Context, txns []*xrpl.Transaction, kind Kind) ([]PostRecord, error) {
	records := make([]PostRecord, len(txns))
	for i, txn := range txns {
		record, err := Extract(txn, kind)
		if err != nil {
			return nil, err
		}
		records[i] = record
	}

	var g errgroup.Group
	g.SetLimit(PageSize)

	for i := range records {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			id := s.enricher.Feed(ctx, records[i].Account)
			records[i].Username = id.Username
			records[i].GravatarURL = id.GravatarURL
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func (s *Service) observe(operation string, start time.Time, err *error) {
	s.metrics.RecordFeedOperation(operation, *err, time.Since(start).Seconds())
	if *err != nil {
		s.logger.Debug("feed operation failed", "operation", operation, "error", *err)
	}
}
