package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lazypandaa/connect/api/middleware"
	"github.com/lazypandaa/connect/db"
	"github.com/lazypandaa/connect/services"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiUser struct {
	ID    int64
	Token string
	Email string
}

func setupAPI(t *testing.T, limiter *middleware.IPRateLimiter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	_, err := db.ConnectMemory()
	require.NoError(t, err)
	services.InitTokens("test-secret", time.Hour)
	t.Cleanup(func() { _ = db.Close() })

	router := gin.New()
	PublicApi(router, limiter)
	return router
}

func call(t *testing.T, r *gin.Engine, method, path string, body interface{}, headers ...string) (int, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w.Code, resp
}

func register(t *testing.T, r *gin.Engine, fullname string) apiUser {
	t.Helper()
	email := fmt.Sprintf("%s%s@example.com", gofakeit.Username(), gofakeit.Numerify("####"))
	code, resp := call(t, r, http.MethodPost, "/users/signup", gin.H{
		"fullname": fullname,
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, code, resp)

	code, resp = call(t, r, http.MethodPost, "/users/signin", gin.H{"email": email, "password": "password123"})
	require.Equal(t, http.StatusOK, code, resp)
	return apiUser{
		ID:    int64(resp["user_id"].(float64)),
		Token: resp["token"].(string),
		Email: email,
	}
}

// with добавляет csrid к телу запроса
func with(u apiUser, body gin.H) gin.H {
	if body == nil {
		body = gin.H{}
	}
	body["csrid"] = u.Token
	return body
}

func TestAuthFlow(t *testing.T) {
	r := setupAPI(t, nil)
	alice := register(t, r, "Alice Smith")

	code, resp := call(t, r, http.MethodPost, "/users/getuserid", with(alice, nil))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(alice.ID), resp["user_id"])

	code, resp = call(t, r, http.MethodPost, "/users/getfullname", with(alice, nil))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Alice Smith", resp["fullname"])

	// тот же токен в заголовке
	code, resp = call(t, r, http.MethodGet, "/users/all", nil, "Authorization", "Bearer "+alice.Token)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp["users"], 1)

	code, _ = call(t, r, http.MethodPost, "/users/signout", with(alice, nil))
	require.Equal(t, http.StatusOK, code)

	code, resp = call(t, r, http.MethodPost, "/users/getuserid", with(alice, nil))
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, "Invalid or expired token", resp["message"])
}

func TestSignUpErrors(t *testing.T) {
	r := setupAPI(t, nil)
	alice := register(t, r, "Alice")

	code, resp := call(t, r, http.MethodPost, "/users/signup", gin.H{
		"fullname": "Copy", "email": alice.Email, "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Email already exists. Please use a different email.", resp["message"])

	code, _ = call(t, r, http.MethodPost, "/users/signup", gin.H{"fullname": "No Email"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = call(t, r, http.MethodPost, "/users/signin", gin.H{"email": alice.Email, "password": "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "error", resp["status"])

	code, _ = call(t, r, http.MethodPost, "/friends/get-friends", gin.H{})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestFriendshipFlow(t *testing.T) {
	r := setupAPI(t, nil)
	alice, bob := register(t, r, "Alice"), register(t, r, "Bob")

	// id можно передать строкой
	code, resp := call(t, r, http.MethodPost, "/friends/send-request",
		with(alice, gin.H{"receiverId": fmt.Sprint(bob.ID)}))
	require.Equal(t, http.StatusOK, code, resp)
	assert.Equal(t, "pending", resp["friendshipStatus"])
	requestID := resp["requestId"]

	code, _ = call(t, r, http.MethodPost, "/friends/send-request", with(alice, gin.H{"receiverId": bob.ID}))
	assert.Equal(t, http.StatusConflict, code)

	code, resp = call(t, r, http.MethodPost, "/friends/pending-requests", with(bob, nil))
	require.Equal(t, http.StatusOK, code)
	requests := resp["requests"].([]interface{})
	require.Len(t, requests, 1)

	code, _ = call(t, r, http.MethodPost, "/friends/accept-request", with(alice, gin.H{"requestId": requestID}))
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = call(t, r, http.MethodPost, "/friends/accept-request", with(bob, gin.H{"requestId": requestID}))
	require.Equal(t, http.StatusOK, code)

	code, resp = call(t, r, http.MethodPost, "/friends/get-friends", with(alice, nil))
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp["friends"], 1)

	code, resp = call(t, r, http.MethodPost, "/friends/check-status", with(bob, gin.H{"otherUserId": alice.ID}))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "accepted", resp["friendshipStatus"])

	code, _ = call(t, r, http.MethodPost, "/api/chat/send", with(bob, gin.H{"receiverId": alice.ID, "messageText": "hi"}))
	require.Equal(t, http.StatusOK, code)

	code, _ = call(t, r, http.MethodPost, "/friends/block-user", with(alice, gin.H{"userId": bob.ID}))
	require.Equal(t, http.StatusOK, code)

	code, resp = call(t, r, http.MethodPost, "/api/chat/send", with(bob, gin.H{"receiverId": alice.ID, "messageText": "hi again"}))
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "error", resp["status"])

	code, _ = call(t, r, http.MethodPost, "/friends/unblock-user", with(bob, gin.H{"userId": alice.ID}))
	assert.Equal(t, http.StatusConflict, code)
	code, _ = call(t, r, http.MethodPost, "/friends/unblock-user", with(alice, gin.H{"userId": bob.ID}))
	assert.Equal(t, http.StatusOK, code)

	code, _ = call(t, r, http.MethodPost, "/friends/remove-friend", with(alice, gin.H{"friendId": bob.ID}))
	assert.Equal(t, http.StatusConflict, code)

	code, _ = call(t, r, http.MethodPost, "/friends/send-request", with(alice, gin.H{"receiverId": 9999}))
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = call(t, r, http.MethodPost, "/friends/send-request", with(alice, gin.H{}))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestChatEndpoints(t *testing.T) {
	r := setupAPI(t, nil)
	alice, bob := register(t, r, "Alice"), register(t, r, "Bob")

	for _, text := range []string{"one", "two"} {
		code, resp := call(t, r, http.MethodPost, "/api/chat/send", with(bob, gin.H{"receiverId": alice.ID, "messageText": text}))
		require.Equal(t, http.StatusOK, code, resp)
		assert.NotNil(t, resp["messageId"])
	}

	code, resp := call(t, r, http.MethodPost, "/api/chat/unread", with(alice, nil))
	require.Equal(t, http.StatusOK, code)
	unread := resp["unreadCounts"].([]interface{})
	require.Len(t, unread, 1)
	assert.Equal(t, float64(2), unread[0].(map[string]interface{})["unread_count"])

	code, resp = call(t, r, http.MethodPost, "/api/chat/messages", with(alice, gin.H{"friendId": bob.ID}))
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp["messages"], 2)

	code, resp = call(t, r, http.MethodPost, "/api/chat/statistics", with(alice, nil))
	require.Equal(t, http.StatusOK, code)
	stats := resp["statistics"].(map[string]interface{})
	assert.Equal(t, float64(0), stats["unreadMessages"])
	assert.Equal(t, float64(1), stats["conversationsCount"])

	code, resp = call(t, r, http.MethodPost, "/api/chat/read", with(alice, gin.H{"senderId": bob.ID}))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), resp["updatedCount"])

	code, resp = call(t, r, http.MethodPost, "/api/chat/last", with(bob, nil))
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp["lastMessages"], 1)

	code, _ = call(t, r, http.MethodPost, "/api/chat/send", with(bob, gin.H{"receiverId": alice.ID, "messageText": "  "}))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLegacyChatRoutes(t *testing.T) {
	r := setupAPI(t, nil)
	alice, bob, eve := register(t, r, "Alice"), register(t, r, "Bob"), register(t, r, "Eve")

	// sender_id из тела не подменяет владельца токена
	code, resp := call(t, r, http.MethodPost, "/api/send-message", with(bob, gin.H{
		"receiver_id":  alice.ID,
		"sender_id":    eve.ID,
		"message_text": "hello",
		"read_status":  0,
	}))
	require.Equal(t, http.StatusOK, code, resp)

	code, resp = call(t, r, http.MethodPost, "/api/messages", with(alice, gin.H{"userId": eve.ID, "friendId": bob.ID}))
	require.Equal(t, http.StatusOK, code, resp)
	messages := resp["messages"].([]interface{})
	require.Len(t, messages, 1)
	assert.Equal(t, float64(bob.ID), messages[0].(map[string]interface{})["sender_id"])

	code, resp = call(t, r, http.MethodPost, "/api/send-message", with(bob, gin.H{"receiver_id": alice.ID, "message_text": "again"}))
	require.Equal(t, http.StatusOK, code, resp)

	code, resp = call(t, r, http.MethodPost, "/api/mark-messages-read", with(alice, gin.H{"receiver_id": eve.ID, "sender_id": bob.ID}))
	require.Equal(t, http.StatusOK, code, resp)
	assert.Equal(t, float64(1), resp["updatedCount"])

	code, _ = call(t, r, http.MethodPost, "/api/send-message", gin.H{"receiver_id": alice.ID, "message_text": "x"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestPostEndpoints(t *testing.T) {
	r := setupAPI(t, nil)
	alice, bob := register(t, r, "Alice"), register(t, r, "Bob")

	code, resp := call(t, r, http.MethodGet, "/api/posts/test", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "API is running", resp["message"])

	code, resp = call(t, r, http.MethodPost, "/api/posts/create", with(alice, gin.H{"caption": "hello", "visibility": "public"}))
	require.Equal(t, http.StatusCreated, code, resp)
	postID := resp["postId"]

	code, _ = call(t, r, http.MethodPost, "/api/posts/create", with(alice, gin.H{"caption": "secret", "visibility": "friends"}))
	require.Equal(t, http.StatusCreated, code)

	code, _ = call(t, r, http.MethodPost, "/api/posts/create", with(alice, gin.H{"caption": "x", "visibility": "nobody"}))
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = call(t, r, http.MethodPost, "/api/posts/feed", with(bob, nil))
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp["posts"], 1)
	assert.Equal(t, false, resp["hasMore"])

	code, resp = call(t, r, http.MethodPost, "/api/posts/user", with(bob, gin.H{"userId": alice.ID}))
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp["posts"], 1)

	code, resp = call(t, r, http.MethodPost, "/api/posts/user", with(alice, nil))
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp["posts"], 2)

	code, resp = call(t, r, http.MethodPost, "/api/posts/like", with(bob, gin.H{"postId": postID}))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), resp["likesCount"])

	code, resp = call(t, r, http.MethodPost, "/api/posts/like", with(bob, gin.H{"postId": postID}))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), resp["likesCount"])

	code, resp = call(t, r, http.MethodPost, "/api/posts/unlike", with(bob, gin.H{"postId": postID}))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), resp["likesCount"])

	code, _ = call(t, r, http.MethodPost, "/api/posts/like", with(bob, gin.H{"postId": 9999}))
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSearchEndpoints(t *testing.T) {
	r := setupAPI(t, nil)
	alice := register(t, r, "Alice Searcher")
	register(t, r, "Zed Target")

	code, resp := call(t, r, http.MethodPost, "/api/search/users", with(alice, gin.H{"query": "zed target"}))
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp["users"], 1)

	code, resp = call(t, r, http.MethodPost, "/friends/search-users", with(alice, gin.H{"query": "target"}))
	require.Equal(t, http.StatusOK, code)
	users := resp["users"].([]interface{})
	require.Len(t, users, 1)
	assert.Equal(t, false, users[0].(map[string]interface{})["requestSent"])

	code, resp = call(t, r, http.MethodPost, "/friends/suggestions", with(alice, nil))
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp["suggestions"])
}

func TestSignInRateLimited(t *testing.T) {
	r := setupAPI(t, middleware.NewIPRateLimiter(0.001, 1))

	code, _ := call(t, r, http.MethodPost, "/users/signin", gin.H{"email": "a@example.com", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, resp := call(t, r, http.MethodPost, "/users/signin", gin.H{"email": "a@example.com", "password": "x"})
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "error", resp["status"])
}

func TestHealth(t *testing.T) {
	r := setupAPI(t, nil)
	code, resp := call(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", resp["status"])
}
