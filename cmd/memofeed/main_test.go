package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI with args and returns what it wrote to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"memofeed"}, args...))
	return out.String(), err
}

// feedServer serves three pages of two, two and one post.
func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/posts":
			cursor := r.URL.Query().Get("cursor")
			switch cursor {
			case "":
				fmt.Fprint(w, `{"posts": [{"hash": "A", "memoData": "one"}, {"hash": "B", "memoData": "two"}], "nextCursor": 4}`)
			case "4":
				fmt.Fprint(w, `{"posts": [{"hash": "C", "memoData": "three"}, {"hash": "D", "memoData": "four"}], "nextCursor": 8}`)
			case "8":
				fmt.Fprint(w, `{"posts": [{"hash": "E", "memoData": "five"}], "nextCursor": null}`)
			default:
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"error": "bad cursor"}`)
			}
		case r.URL.Path == "/api/accounts/rAlice/posts":
			fmt.Fprint(w, `{"posts": [{"account": "rAlice", "memoData": "mine"}], "nextCursor": null}`)
		case strings.HasPrefix(r.URL.Path, "/api/posts/"):
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error": "post not found"}`)
		case r.URL.Path == "/api/user/info":
			fmt.Fprintf(w, `{"account": %q, "username": "alice", "gravatarURL": "g"}`, r.URL.Query().Get("account"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestFeedCommand(t *testing.T) {
	server := feedServer(t)
	defer server.Close()

	out, err := run(t, "--server-url", server.URL, "feed")
	require.NoError(t, err)

	var page struct {
		Posts      []map[string]interface{} `json:"posts"`
		NextCursor *int                     `json:"nextCursor"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Len(t, page.Posts, 2)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, 4, *page.NextCursor)
}

func TestFeedCommand_AllWithJQ(t *testing.T) {
	server := feedServer(t)
	defer server.Close()

	out, err := run(t, "--server-url", server.URL, "--jq", ".[].memoData", "feed", "--all")
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree\nfour\nfive\n", out)
}

func TestFeedCommand_Account(t *testing.T) {
	server := feedServer(t)
	defer server.Close()

	out, err := run(t, "--server-url", server.URL, "--jq", ".posts | length", "feed", "--account", "rAlice")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

func TestPostCommand_NotFound(t *testing.T) {
	server := feedServer(t)
	defer server.Close()

	_, err := run(t, "--server-url", server.URL, "post", strings.Repeat("A", 64))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "post not found")

	_, err = run(t, "--server-url", server.URL, "post")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one argument")
}

func TestUserCommand(t *testing.T) {
	server := feedServer(t)
	defer server.Close()

	out, err := run(t, "--server-url", server.URL, "--jq", ".username", "user", "rAlice")
	require.NoError(t, err)
	assert.Equal(t, "alice\n", out)
}

func TestMemoCommands(t *testing.T) {
	out, err := run(t, "memo", "encode", "hello", "world")
	require.NoError(t, err)
	assert.Equal(t, "68656c6c6f20776f726c64\n", out)

	out, err = run(t, "memo", "decode", "68656c6c6f20776f726c64")
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", out)

	_, err = run(t, "memo", "encode")
	assert.Error(t, err)
}

func TestInvalidJQFilter(t *testing.T) {
	out, err := run(t, "--jq", ".[", "memo", "decode", "00")
	// memo commands ignore --jq; the filter is only compiled for JSON output.
	require.NoError(t, err)
	assert.Equal(t, "\n", out)

	server := feedServer(t)
	defer server.Close()

	_, err = run(t, "--server-url", server.URL, "--jq", ".[", "feed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse jq filter")
}

func TestOverrideCommands_Validation(t *testing.T) {
	_, err := run(t, "db", "override", "add", "--list", "graylist", "ABC")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid override list")

	t.Setenv("DATABASE_URL", "")
	_, err = run(t, "db", "override", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database-url is required")
}

func TestTemporalScheduleCommands_Validation(t *testing.T) {
	t.Setenv("FEED_ACCOUNT", "")
	t.Setenv("SYNC_INTERVAL", "")

	_, err := run(t, "temporal", "schedule", "create", "--account", "rFeed", "--interval", "0s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval must be positive")

	_, err = run(t, "temporal", "schedule", "delete")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"account"`)

	_, err = run(t, "temporal", "sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"account"`)
}

func TestHealthCommand(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Write([]byte("OK"))
	}))
	defer healthy.Close()

	out, err := run(t, "--server-url", healthy.URL, "server", "health")
	require.NoError(t, err)
	assert.Contains(t, out, "Server is healthy")

	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer unhealthy.Close()

	_, err = run(t, "--server-url", unhealthy.URL, "server", "health")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unhealthy status: 500")
}

func TestRunJQ(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		input  interface{}
		want   []interface{}
	}{
		{"identity", ".", map[string]int{"a": 1}, []interface{}{map[string]interface{}{"a": float64(1)}}},
		{"select", `.[] | select(.n > 1) | .n`, []map[string]int{{"n": 1}, {"n": 2}, {"n": 3}}, []interface{}{float64(2), float64(3)}},
		{"no results", `empty`, 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := compileJQ(tt.filter)
			require.NoError(t, err)
			got, err := runJQ(code, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	code, err := compileJQ(`error("boom")`)
	require.NoError(t, err)
	_, err = runJQ(code, 1)
	assert.Error(t, err)
}
