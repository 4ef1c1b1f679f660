package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Post is a post, comment or like as served by the feed API.
type Post struct {
	Account     string    `json:"account"`
	Amount      string    `json:"amount"`
	Date        time.Time `json:"date"`
	Hash        string    `json:"hash"`
	Content     string    `json:"memoData"`
	Username    *string   `json:"username,omitempty"`
	GravatarURL string    `json:"gravatarURL"`
}

// Page is one page of the feed. NextCursor is nil on the last page.
type Page struct {
	Posts      []Post `json:"posts"`
	NextCursor *int   `json:"nextCursor"`
}

// Thread is a post with its comments and likes.
type Thread struct {
	Post     Post   `json:"post"`
	Comments []Post `json:"comments"`
	Likes    []Post `json:"likes"`
}

// UserInfo is the profile identity of an account.
type UserInfo struct {
	Account     string  `json:"account"`
	Username    *string `json:"username,omitempty"`
	GravatarURL string  `json:"gravatarURL"`
}

// APIError is a non-success response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed: %s", e.Message)
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client is the HTTP client for the memofeed API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new feed API client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// GetFeed retrieves the page of the global feed starting at cursor.
func (c *Client) GetFeed(ctx context.Context, cursor int) (*Page, error) {
	var page Page
	if err := c.get(ctx, "/api/posts", cursorQuery(cursor), &page); err != nil {
		return nil, err
	}
	c.logger.Debug("feed page retrieved", "cursor", cursor, "count", len(page.Posts))
	return &page, nil
}

// GetFeedByAccount retrieves the page of posts authored by account.
func (c *Client) GetFeedByAccount(ctx context.Context, account string, cursor int) (*Page, error) {
	var page Page
	path := fmt.Sprintf("/api/accounts/%s/posts", url.PathEscape(account))
	if err := c.get(ctx, path, cursorQuery(cursor), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetPost retrieves a single post by transaction hash.
func (c *Client) GetPost(ctx context.Context, id string) (*Post, error) {
	var resp struct {
		Post Post `json:"post"`
	}
	if err := c.get(ctx, "/api/posts/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Post, nil
}

// GetComments retrieves the comments on a post.
func (c *Client) GetComments(ctx context.Context, id string) ([]Post, error) {
	var resp struct {
		Comments []Post `json:"comments"`
	}
	if err := c.get(ctx, "/api/posts/"+url.PathEscape(id)+"/comments", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Comments, nil
}

// GetLikes retrieves the likes of a post.
func (c *Client) GetLikes(ctx context.Context, id string) ([]Post, error) {
	var resp struct {
		Likes []Post `json:"likes"`
	}
	if err := c.get(ctx, "/api/posts/"+url.PathEscape(id)+"/likes", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Likes, nil
}

// GetThread retrieves a post with its comments and likes.
func (c *Client) GetThread(ctx context.Context, id string) (*Thread, error) {
	var thread Thread
	if err := c.get(ctx, "/api/posts/"+url.PathEscape(id)+"/thread", nil, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

// GetUserInfo retrieves the profile identity of account.
func (c *Client) GetUserInfo(ctx context.Context, account string) (*UserInfo, error) {
	var info UserInfo
	if err := c.get(ctx, "/api/user/info", url.Values{"account": {account}}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func cursorQuery(cursor int) url.Values {
	if cursor == 0 {
		return nil
	}
	return url.Values{"cursor": {strconv.Itoa(cursor)}}
}

// parseErrorResponse attempts to parse an error response from the server.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)),
		}
	}

	return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
}
