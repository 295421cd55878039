package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keychat/internal/app/conversation"
	"keychat/internal/app/group"
	"keychat/internal/app/identity"
	"keychat/internal/configs"
	"keychat/internal/pkg/errs"
	"keychat/internal/store/memstore"
)

func newTestRouter() http.Handler {
	store := memstore.New()
	deps := &AppDeps{
		Config: &configs.AppConfig{
			Environment:    "development",
			Port:           8080,
			AllowedOrigins: []string{},
		},
		Store:         store,
		Identity:      identity.NewDirectory(store),
		Conversations: conversation.NewRegistry(store),
		Groups:        group.NewRegistry(store),
	}
	return Router(deps)
}

// unreachableStore simulates a store whose connectivity check fails.
type unreachableStore struct {
	*memstore.MemStore
}

func (unreachableStore) Ping(ctx context.Context) error {
	return errors.New("server selection timeout")
}

func newUnreachableRouter() http.Handler {
	store := unreachableStore{memstore.New()}
	deps := &AppDeps{
		Config: &configs.AppConfig{
			Environment:    "development",
			Port:           8080,
			AllowedOrigins: []string{},
		},
		Store:         store,
		Identity:      identity.NewDirectory(store),
		Conversations: conversation.NewRegistry(store),
		Groups:        group.NewRegistry(store),
	}
	return Router(deps)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (int, map[string]json.RawMessage) {
	t.Helper()

	var envelope struct {
		Code    int                        `json:"code"`
		Message string                     `json:"message"`
		Data    map[string]json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Code, envelope.Data
}

func registerUser(t *testing.T, router http.Handler, email, name string) string {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/api/users", map[string]string{
		"email":      email,
		"name":       name,
		"credential": "s3cret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	code, data := decodeEnvelope(t, rec)
	require.Equal(t, 0, code)

	var user struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(data["user"], &user))
	require.NotEmpty(t, user.ID)
	return user.ID
}

func TestHealth(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	code, data := decodeEnvelope(t, rec)
	assert.Equal(t, 0, code)
	assert.JSONEq(t, `"ok"`, string(data["status"]))
}

func TestUnreachableStoreReportsServiceUnavailable(t *testing.T) {
	router := newUnreachableRouter()

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	code, _ := decodeEnvelope(t, rec)
	assert.Equal(t, errs.ErrStoreUnavailable, code)

	// Logical operations fail the same way instead of swallowing the outage.
	rec = doJSON(t, router, http.MethodPost, "/api/chats", map[string]string{
		"userA": "alice", "userB": "bob",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	code, _ = decodeEnvelope(t, rec)
	assert.Equal(t, errs.ErrStoreUnavailable, code)
}

func TestRegisterLoginAndChatFlow(t *testing.T) {
	router := newTestRouter()

	aliceID := registerUser(t, router, "alice@example.com", "Alice")
	bobID := registerUser(t, router, "bob@example.com", "Bob")

	// Login with the registered credential.
	rec := doJSON(t, router, http.MethodPost, "/api/loginUser", map[string]string{
		"email":      "alice@example.com",
		"credential": "s3cret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Both participant orders resolve to the same conversation.
	rec = doJSON(t, router, http.MethodPost, "/api/chats", map[string]string{
		"userA": aliceID, "userB": bobID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	_, data := decodeEnvelope(t, rec)
	var chat struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(data["chat"], &chat))

	rec = doJSON(t, router, http.MethodPost, "/api/chats", map[string]string{
		"userA": bobID, "userB": aliceID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	_, data = decodeEnvelope(t, rec)
	var sameChat struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(data["chat"], &sameChat))
	assert.Equal(t, chat.ID, sameChat.ID)

	// Append two messages and read them back in insertion order.
	rec = doJSON(t, router, http.MethodPost, "/api/chats/"+chat.ID+"/messages", map[string]string{
		"message": "hi", "sender": aliceID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = doJSON(t, router, http.MethodPost, "/api/chats/"+chat.ID+"/messages", map[string]string{
		"message": "hey", "sender": bobID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/chats/%s/%s", bobID, aliceID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	_, data = decodeEnvelope(t, rec)
	var fetched struct {
		ID       string `json:"id"`
		Messages []struct {
			Text   string `json:"text"`
			Sender string `json:"sender"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(data["chat"], &fetched))
	assert.Equal(t, chat.ID, fetched.ID)
	require.Len(t, fetched.Messages, 2)
	assert.Equal(t, "hi", fetched.Messages[0].Text)
	assert.Equal(t, aliceID, fetched.Messages[0].Sender)
	assert.Equal(t, "hey", fetched.Messages[1].Text)
	assert.Equal(t, bobID, fetched.Messages[1].Sender)
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	router := newTestRouter()

	registerUser(t, router, "alice@example.com", "Alice")

	rec := doJSON(t, router, http.MethodPost, "/api/users", map[string]string{
		"email":      "alice@example.com",
		"name":       "Impostor",
		"credential": "other",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	code, _ := decodeEnvelope(t, rec)
	assert.Equal(t, errs.ErrEmailTaken, code)
}

func TestGetUnknownUser(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/api/users/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	code, _ := decodeEnvelope(t, rec)
	assert.Equal(t, errs.ErrUserNotFound, code)
}

func TestCredentialNeverLeavesTheServer(t *testing.T) {
	router := newTestRouter()

	aliceID := registerUser(t, router, "alice@example.com", "Alice")

	rec := doJSON(t, router, http.MethodGet, "/api/users/"+aliceID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "credential")
	assert.NotContains(t, rec.Body.String(), "s3cret")
}

func TestSetPresenceAndListOnline(t *testing.T) {
	router := newTestRouter()

	aliceID := registerUser(t, router, "alice@example.com", "Alice")
	registerUser(t, router, "bob@example.com", "Bob")

	rec := doJSON(t, router, http.MethodPut, "/api/users/"+aliceID, map[string]bool{"online": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, data := decodeEnvelope(t, rec)
	var users []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(data["users"], &users))
	require.Len(t, users, 1)
	assert.Equal(t, aliceID, users[0].ID)
}

func TestSetPresenceRequiresOnlineField(t *testing.T) {
	router := newTestRouter()

	aliceID := registerUser(t, router, "alice@example.com", "Alice")

	rec := doJSON(t, router, http.MethodPut, "/api/users/"+aliceID, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	code, _ := decodeEnvelope(t, rec)
	assert.Equal(t, errs.ErrInvalidParams, code)
}

func TestSetPublicKey(t *testing.T) {
	router := newTestRouter()

	aliceID := registerUser(t, router, "alice@example.com", "Alice")

	rec := doJSON(t, router, http.MethodPut, "/api/users/"+aliceID+"/pub_key", map[string]string{
		"p": "23", "g": "5", "e": "6",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, data := decodeEnvelope(t, rec)
	var user struct {
		PubKey struct {
			P string `json:"p"`
			G string `json:"g"`
			E string `json:"e"`
		} `json:"pubKey"`
	}
	require.NoError(t, json.Unmarshal(data["user"], &user))
	assert.Equal(t, "23", user.PubKey.P)
	assert.Equal(t, "5", user.PubKey.G)
	assert.Equal(t, "6", user.PubKey.E)
}

func TestGroupFlow(t *testing.T) {
	router := newTestRouter()

	aliceID := registerUser(t, router, "alice@example.com", "Alice")
	bobID := registerUser(t, router, "bob@example.com", "Bob")

	rec := doJSON(t, router, http.MethodPost, "/api/chatGroups", map[string]any{
		"userIds": []string{bobID, aliceID},
		"name":    "book-club",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	_, data := decodeEnvelope(t, rec)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(data["chatGroup"], &created))

	rec = doJSON(t, router, http.MethodPost, "/api/chatGroups/"+created.ID+"/messages", map[string]string{
		"message": "ciphertext", "sender": aliceID, "receiver": bobID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/chatGroups/"+created.ID+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, data = decodeEnvelope(t, rec)
	var messages []struct {
		Text     string `json:"text"`
		Sender   string `json:"sender"`
		Receiver string `json:"receiver"`
	}
	require.NoError(t, json.Unmarshal(data["messages"], &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "ciphertext", messages[0].Text)

	// Groups are listed per member, named groups by name.
	rec = doJSON(t, router, http.MethodGet, "/api/chatGroups/user/"+aliceID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	_, data = decodeEnvelope(t, rec)
	var groupIDs []string
	require.NoError(t, json.Unmarshal(data["groupIds"], &groupIDs))
	assert.Equal(t, []string{"book-club"}, groupIDs)

	// Removing a member keeps the group alive.
	rec = doJSON(t, router, http.MethodDelete, "/api/chatGroups/"+created.ID+"/"+aliceID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/chatGroups/"+created.ID+"/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, data = decodeEnvelope(t, rec)
	var members []string
	require.NoError(t, json.Unmarshal(data["userIds"], &members))
	assert.Equal(t, []string{bobID}, members)
}

func TestDeleteAbsentChat(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodDelete, "/api/chats/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	code, _ := decodeEnvelope(t, rec)
	assert.Equal(t, errs.ErrChatNotFound, code)
}

func TestRegisterRejectsNonJSONBody(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewBufferString("email=alice"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	code, _ := decodeEnvelope(t, rec)
	assert.Equal(t, errs.ErrUnsupportedMediaType, code)
}

func TestRegisterRejectsUnknownFields(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/users", map[string]string{
		"email":      "alice@example.com",
		"name":       "Alice",
		"credential": "s3cret",
		"admin":      "true",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	code, _ := decodeEnvelope(t, rec)
	assert.Equal(t, errs.ErrInvalidJSONFormat, code)
}

func TestRegisterRateLimited(t *testing.T) {
	router := newTestRouter()

	var lastStatus int
	for i := 0; i < RegisterBurst+1; i++ {
		rec := doJSON(t, router, http.MethodPost, "/api/users", map[string]string{
			"email":      fmt.Sprintf("user%d@example.com", i),
			"name":       fmt.Sprintf("User %d", i),
			"credential": "s3cret",
		})
		lastStatus = rec.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, lastStatus)
}
