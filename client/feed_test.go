package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const postID = "7E1D2B9C43F1A1E6D0B1C4A3A0F8C5E2B7D9E1F3A5C7B9D1E3F5A7C9B1D3E5F7"

func TestGetFeed_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/api/posts", r.URL.Path)
		assert.Equal(t, "4", r.URL.Query().Get("cursor"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"posts": [
				{"account": "rAlice", "amount": "1 XRP", "date": "2023-01-01T00:00:00Z", "hash": "H1", "memoData": "hello", "username": "alice", "gravatarURL": "https://www.gravatar.com/avatar/x?s=40&d=retro"},
				{"account": "rBob", "amount": "2 XRP", "date": "2023-01-02T00:00:00Z", "hash": "H2", "memoData": "world", "gravatarURL": "https://www.gravatar.com/avatar/y?s=40&d=retro"}
			],
			"nextCursor": 8
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	page, err := client.GetFeed(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, page.Posts, 2)

	assert.Equal(t, "hello", page.Posts[0].Content)
	require.NotNil(t, page.Posts[0].Username)
	assert.Equal(t, "alice", *page.Posts[0].Username)
	assert.Nil(t, page.Posts[1].Username)
	assert.Equal(t, 2023, page.Posts[0].Date.Year())
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, 8, *page.NextCursor)
}

func TestGetFeed_FirstPageOmitsCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		w.Write([]byte(`{"posts": [], "nextCursor": null}`))
	}))
	defer server.Close()

	page, err := NewClient(server.URL, nil, nil).GetFeed(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, page.Posts)
	assert.Nil(t, page.NextCursor)
}

func TestGetFeedByAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/accounts/rAlice/posts", r.URL.Path)
		w.Write([]byte(`{"posts": [{"account": "rAlice", "memoData": "hi"}], "nextCursor": null}`))
	}))
	defer server.Close()

	page, err := NewClient(server.URL, nil, nil).GetFeedByAccount(context.Background(), "rAlice", 0)
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "rAlice", page.Posts[0].Account)
}

func TestGetPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/posts/"+postID, r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"post": map[string]string{"hash": postID, "memoData": "a post"},
		})
	}))
	defer server.Close()

	post, err := NewClient(server.URL, nil, nil).GetPost(context.Background(), postID)
	require.NoError(t, err)
	assert.Equal(t, postID, post.Hash)
	assert.Equal(t, "a post", post.Content)
}

func TestGetPost_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "post not found"})
	}))
	defer server.Close()

	_, err := NewClient(server.URL, nil, nil).GetPost(context.Background(), postID)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "post not found")
}

func TestGetCommentsAndLikes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/posts/" + postID + "/comments":
			w.Write([]byte(`{"comments": [{"memoData": "nice"}, {"memoData": "agreed"}]}`))
		case "/api/posts/" + postID + "/likes":
			w.Write([]byte(`{"likes": [{"account": "rBob"}]}`))
		case "/api/posts/" + postID + "/thread":
			w.Write([]byte(`{"post": {"hash": "` + postID + `"}, "comments": [{"memoData": "nice"}], "likes": []}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	ctx := context.Background()

	comments, err := client.GetComments(ctx, postID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "agreed", comments[1].Content)

	likes, err := client.GetLikes(ctx, postID)
	require.NoError(t, err)
	require.Len(t, likes, 1)
	assert.Equal(t, "rBob", likes[0].Account)

	thread, err := client.GetThread(ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, postID, thread.Post.Hash)
	assert.Len(t, thread.Comments, 1)
	assert.Empty(t, thread.Likes)
}

func TestGetUserInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/user/info", r.URL.Path)
		assert.Equal(t, "rAlice", r.URL.Query().Get("account"))
		w.Write([]byte(`{"account": "rAlice", "username": "alice", "gravatarURL": "https://www.gravatar.com/avatar/z?s=80&d=retro"}`))
	}))
	defer server.Close()

	info, err := NewClient(server.URL, nil, nil).GetUserInfo(context.Background(), "rAlice")
	require.NoError(t, err)
	assert.Equal(t, "rAlice", info.Account)
	require.NotNil(t, info.Username)
	assert.Equal(t, "alice", *info.Username)
}

func TestServerErrorWithoutJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, nil, nil).GetFeed(context.Background(), 0)
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "status 502")
	assert.Contains(t, err.Error(), "upstream down")
}
