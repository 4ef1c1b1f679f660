package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/brojonat/memofeed/service/feed"
	"github.com/brojonat/memofeed/service/identity"
)

const maxAddressLength = 100 // classic addresses are at most 35 chars

var (
	// Classic addresses: "r" followed by base58 in the ledger alphabet (no 0, O, I, l).
	validAddressRegex = regexp.MustCompile(`^r[1-9A-HJ-NP-Za-km-z]{24,34}$`)
	validHashRegex    = regexp.MustCompile(`^[0-9A-Fa-f]{64}$`)
)

// FeedReader is the read side of the feed consumed by the HTTP layer.
type FeedReader interface {
	GetFeed(ctx context.Context, cursor int) (feed.PageResult, error)
	GetFeedByAccount(ctx context.Context, account string, cursor int) (feed.PageResult, error)
	GetPost(ctx context.Context, id string) (feed.PostRecord, error)
	GetPostComments(ctx context.Context, id string) ([]feed.PostRecord, error)
	GetPostLikes(ctx context.Context, id string) ([]feed.PostRecord, error)
	GetPostThread(ctx context.Context, id string) (feed.Thread, error)
	GetUserInfo(ctx context.Context, account string) (identity.Identity, error)
}

// handleGetFeed returns a handler for the global feed.
// GET /api/posts?cursor=N
func handleGetFeed(reader FeedReader, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cursor, err := parseCursor(r)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		page, err := reader.GetFeed(r.Context(), cursor)
		if err != nil {
			writeFeedError(w, r, logger, "failed to get feed", err)
			return
		}

		logger.Debug("feed page served", "cursor", cursor, "count", len(page.Items))
		writeJSON(w, page, http.StatusOK)
	})
}

// handleGetFeedByAccount returns a handler for the posts of one author.
// GET /api/accounts/{account}/posts?cursor=N
func handleGetFeedByAccount(reader FeedReader, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := r.PathValue("account")
		if err := validateAddress(account); err != nil {
			logger.Debug("invalid address", "address", account, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		cursor, err := parseCursor(r)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		page, err := reader.GetFeedByAccount(r.Context(), account, cursor)
		if err != nil {
			writeFeedError(w, r, logger, "failed to get account feed", err)
			return
		}

		writeJSON(w, page, http.StatusOK)
	})
}

// handleGetPost returns a handler for a single post.
// GET /api/posts/{id}
func handleGetPost(reader FeedReader, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := parseHash(r)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		post, err := reader.GetPost(r.Context(), id)
		if err != nil {
			writeFeedError(w, r, logger, "failed to get post", err)
			return
		}

		writeJSON(w, map[string]interface{}{
			"post": post,
		}, http.StatusOK)
	})
}

// handleGetPostComments returns a handler for the comments on a post.
// GET /api/posts/{id}/comments
func handleGetPostComments(reader FeedReader, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := parseHash(r)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		comments, err := reader.GetPostComments(r.Context(), id)
		if err != nil {
			writeFeedError(w, r, logger, "failed to get comments", err)
			return
		}

		writeJSON(w, map[string]interface{}{
			"comments": comments,
		}, http.StatusOK)
	})
}

// handleGetPostLikes returns a handler for the likes of a post.
// GET /api/posts/{id}/likes
func handleGetPostLikes(reader FeedReader, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := parseHash(r)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		likes, err := reader.GetPostLikes(r.Context(), id)
		if err != nil {
			writeFeedError(w, r, logger, "failed to get likes", err)
			return
		}

		writeJSON(w, map[string]interface{}{
			"likes": likes,
		}, http.StatusOK)
	})
}

// handleGetPostThread returns a handler for a post with its comments and likes.
// GET /api/posts/{id}/thread
func handleGetPostThread(reader FeedReader, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := parseHash(r)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		thread, err := reader.GetPostThread(r.Context(), id)
		if err != nil {
			writeFeedError(w, r, logger, "failed to get thread", err)
			return
		}

		writeJSON(w, thread, http.StatusOK)
	})
}

// handleGetUserInfo returns a handler for the profile identity of an account.
// GET /api/user/info?account=ADDRESS
func handleGetUserInfo(reader FeedReader, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := r.URL.Query().Get("account")
		if account == "" {
			writeError(w, "account query parameter is required", http.StatusBadRequest)
			return
		}
		if err := validateAddress(account); err != nil {
			logger.Debug("invalid address", "address", account, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		info, err := reader.GetUserInfo(r.Context(), account)
		if err != nil {
			writeFeedError(w, r, logger, "failed to get user info", err)
			return
		}

		writeJSON(w, info, http.StatusOK)
	})
}

// writeFeedError maps feed errors to HTTP status codes.
func writeFeedError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, msg string, err error) {
	switch {
	case errors.Is(err, feed.ErrNotFound):
		writeError(w, "post not found", http.StatusNotFound)
	case errors.Is(err, feed.ErrInvalidCursor):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, feed.ErrUnavailable):
		logger.WarnContext(r.Context(), msg, "path", r.URL.Path, "error", err)
		writeError(w, "ledger history unavailable", http.StatusServiceUnavailable)
	default:
		logger.ErrorContext(r.Context(), msg, "path", r.URL.Path, "error", err)
		writeError(w, "internal server error", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// parseCursor reads the cursor query parameter. A missing cursor is 0.
func parseCursor(r *http.Request) (int, error) {
	value := r.URL.Query().Get("cursor")
	if value == "" {
		return 0, nil
	}
	cursor, err := strconv.Atoi(value)
	if err != nil {
		return 0, errorf("invalid cursor parameter: must be an integer")
	}
	if cursor < 0 {
		return 0, errorf("cursor cannot be negative")
	}
	return cursor, nil
}

// validateAddress validates an account address for security and format.
func validateAddress(address string) error {
	if address == "" {
		return errorf("address is required")
	}

	if len(address) > maxAddressLength {
		return errorf("address too long: maximum length is %d characters", maxAddressLength)
	}

	for _, r := range address {
		if r == 0 || unicode.IsControl(r) {
			return errorf("invalid characters in address: control characters not allowed")
		}
	}

	if !validAddressRegex.MatchString(address) {
		return errorf("invalid address format: must be a classic ledger address")
	}

	return nil
}

// parseHash reads and validates the post id path value. Ledger hashes are
// uppercase hex.
func parseHash(r *http.Request) (string, error) {
	id := r.PathValue("id")
	if err := validateHash(id); err != nil {
		return "", err
	}
	return strings.ToUpper(id), nil
}

// validateHash validates a transaction hash.
func validateHash(hash string) error {
	if hash == "" {
		return errorf("post id is required")
	}
	if !validHashRegex.MatchString(hash) {
		return errorf("invalid post id: must be a 64-character hex transaction hash")
	}
	return nil
}

// errorf is a helper to format error strings.
func errorf(format string, args ...interface{}) error {
	return &validationError{msg: strings.TrimSpace(fmt.Sprintf(format, args...))}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string {
	return e.msg
}
