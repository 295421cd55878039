package mongostore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"keychat/internal/app/db"
	"keychat/internal/models"
	"keychat/internal/store"
)

// setupStore starts a disposable MongoDB container and returns a MongoStore
// with its indexes in place. Requires Docker; skipped in -short runs.
func setupStore(t *testing.T) *MongoStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed store test in short mode")
	}

	ctx := context.Background()
	container, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("terminate mongodb container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := db.Connect(uri)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := db.Disconnect(client); err != nil {
			t.Errorf("disconnect mongodb client: %v", err)
		}
	})

	s := New(client, "keychat_test")
	require.NoError(t, s.EnsureIndexes(ctx))
	return s
}

func newUser(email string) *models.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      "Test User",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestUserStore(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	t.Run("insert and get", func(t *testing.T) {
		user := newUser("alice@example.com")
		require.NoError(t, s.InsertUser(ctx, user))

		got, err := s.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, got.Email)

		got, err = s.GetUserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("duplicate email hits the unique index", func(t *testing.T) {
		err := s.InsertUser(ctx, newUser("alice@example.com"))
		assert.ErrorIs(t, err, store.ErrDuplicateKey)
	})

	t.Run("get missing user", func(t *testing.T) {
		_, err := s.GetUser(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("patch updates only set fields", func(t *testing.T) {
		user := newUser("bob@example.com")
		require.NoError(t, s.InsertUser(ctx, user))

		online := true
		key := models.PublicKey{P: "23", G: "5", E: "6"}
		updated, err := s.UpdateUser(ctx, user.ID, models.UserPatch{
			Online:    &online,
			PublicKey: &key,
		})
		require.NoError(t, err)
		assert.True(t, updated.Online)
		require.NotNil(t, updated.PublicKey)
		assert.Equal(t, key, *updated.PublicKey)
		assert.Equal(t, "Test User", updated.Name)
	})

	t.Run("patch missing user", func(t *testing.T) {
		online := true
		_, err := s.UpdateUser(ctx, "missing", models.UserPatch{Online: &online})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("list online users", func(t *testing.T) {
		user := newUser("carol@example.com")
		require.NoError(t, s.InsertUser(ctx, user))

		online := true
		_, err := s.UpdateUser(ctx, user.ID, models.UserPatch{Online: &online})
		require.NoError(t, err)

		users, err := s.ListOnlineUsers(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, users)
		for _, u := range users {
			assert.True(t, u.Online)
		}
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		user := newUser("dave@example.com")
		require.NoError(t, s.InsertUser(ctx, user))

		require.NoError(t, s.DeleteUser(ctx, user.ID))
		require.NoError(t, s.DeleteUser(ctx, user.ID))

		_, err := s.GetUser(ctx, user.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func newConversation(userA, userB string) *models.Conversation {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Conversation{
		ID:           uuid.NewString(),
		UserA:        userA,
		UserB:        userB,
		PairKey:      models.PairKey(userA, userB),
		Messages:     []models.ChatMessage{},
		LastActivity: now,
		CreatedAt:    now,
	}
}

func TestConversationStore(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	t.Run("insert and find by pair", func(t *testing.T) {
		conv := newConversation("alice", "bob")
		require.NoError(t, s.InsertConversation(ctx, conv))

		got, err := s.FindConversationByPair(ctx, models.PairKey("bob", "alice"))
		require.NoError(t, err)
		assert.Equal(t, conv.ID, got.ID)
	})

	t.Run("duplicate pair hits the unique index", func(t *testing.T) {
		err := s.InsertConversation(ctx, newConversation("bob", "alice"))
		assert.ErrorIs(t, err, store.ErrDuplicateKey)
	})

	t.Run("append preserves insertion order", func(t *testing.T) {
		conv := newConversation("carol", "dave")
		require.NoError(t, s.InsertConversation(ctx, conv))

		_, err := s.AppendConversationMessage(ctx, conv.ID,
			models.ChatMessage{Text: "hi", Sender: "carol"}, time.Now().UTC())
		require.NoError(t, err)
		updated, err := s.AppendConversationMessage(ctx, conv.ID,
			models.ChatMessage{Text: "hey", Sender: "dave"}, time.Now().UTC())
		require.NoError(t, err)

		require.Len(t, updated.Messages, 2)
		assert.Equal(t, "hi", updated.Messages[0].Text)
		assert.Equal(t, "hey", updated.Messages[1].Text)
		assert.False(t, updated.LastActivity.Before(conv.LastActivity))
	})

	t.Run("append to missing conversation", func(t *testing.T) {
		_, err := s.AppendConversationMessage(ctx, "missing",
			models.ChatMessage{Text: "hi", Sender: "carol"}, time.Now().UTC())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete reports whether a record existed", func(t *testing.T) {
		conv := newConversation("erin", "frank")
		require.NoError(t, s.InsertConversation(ctx, conv))

		deleted, err := s.DeleteConversation(ctx, conv.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = s.DeleteConversation(ctx, conv.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func newGroup(name string, members []string) *models.Group {
	now := time.Now().UTC().Truncate(time.Millisecond)
	canonical := models.CanonicalMembers(members)
	key := ""
	if name == "" {
		key = models.MemberKey(canonical)
	}
	return &models.Group{
		ID:           uuid.NewString(),
		Name:         name,
		CanonicalKey: key,
		Members:      canonical,
		Messages:     []models.GroupMessage{},
		LastActivity: now,
		CreatedAt:    now,
	}
}

func TestGroupStore(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	t.Run("insert and find unnamed group by canonical key", func(t *testing.T) {
		group := newGroup("", []string{"bob", "alice"})
		require.NoError(t, s.InsertGroup(ctx, group))

		got, err := s.FindGroupByCanonicalKey(ctx, models.MemberKey([]string{"alice", "bob"}))
		require.NoError(t, err)
		assert.Equal(t, group.ID, got.ID)
	})

	t.Run("duplicate canonical key hits the unique index", func(t *testing.T) {
		err := s.InsertGroup(ctx, newGroup("", []string{"alice", "bob"}))
		assert.ErrorIs(t, err, store.ErrDuplicateKey)
	})

	t.Run("named group is found by name", func(t *testing.T) {
		group := newGroup("book-club", []string{"alice", "bob"})
		require.NoError(t, s.InsertGroup(ctx, group))

		got, err := s.FindGroupByName(ctx, "book-club")
		require.NoError(t, err)
		assert.Equal(t, group.ID, got.ID)

		err = s.InsertGroup(ctx, newGroup("book-club", []string{"carol"}))
		assert.ErrorIs(t, err, store.ErrDuplicateKey)
	})

	t.Run("sparse name index ignores unnamed groups", func(t *testing.T) {
		// Multiple unnamed groups coexist; the unique name index only
		// applies to documents that carry the field.
		first := newGroup("", []string{"erin", "frank"})
		second := newGroup("", []string{"grace", "heidi"})
		require.NoError(t, s.InsertGroup(ctx, first))
		require.NoError(t, s.InsertGroup(ctx, second))
	})

	t.Run("named groups with equal members coexist", func(t *testing.T) {
		// Named groups carry no canonical_key, so the sparse unique index
		// does not collide them.
		require.NoError(t, s.InsertGroup(ctx, newGroup("team-a", []string{"ivan", "judy"})))
		require.NoError(t, s.InsertGroup(ctx, newGroup("team-b", []string{"ivan", "judy"})))
	})

	t.Run("list groups by member", func(t *testing.T) {
		groups, err := s.ListGroupsByMember(ctx, "ivan")
		require.NoError(t, err)
		assert.Len(t, groups, 2)

		groups, err = s.ListGroupsByMember(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, groups)
	})

	t.Run("append message and set members", func(t *testing.T) {
		group := newGroup("", []string{"kim", "leo"})
		require.NoError(t, s.InsertGroup(ctx, group))

		updated, err := s.AppendGroupMessage(ctx, group.ID,
			models.GroupMessage{Text: "ciphertext", Sender: "kim", Receiver: "leo"}, time.Now().UTC())
		require.NoError(t, err)
		require.Len(t, updated.Messages, 1)

		updated, err = s.SetGroupMembers(ctx, group.ID, []string{"leo"})
		require.NoError(t, err)
		assert.Equal(t, []string{"leo"}, updated.Members)

		updated, err = s.SetGroupMembers(ctx, group.ID, []string{})
		require.NoError(t, err)
		assert.Empty(t, updated.Members)
	})

	t.Run("delete reports whether a record existed", func(t *testing.T) {
		group := newGroup("", []string{"mallory", "oscar"})
		require.NoError(t, s.InsertGroup(ctx, group))

		deleted, err := s.DeleteGroup(ctx, group.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = s.DeleteGroup(ctx, group.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}
