/*
Package memstore implements the store.Store interface in process memory.

It mirrors the uniqueness and atomic-append guarantees of the MongoDB
implementation behind a single mutex, which makes it suitable for service and
handler tests that need real store semantics without a running database.
*/
package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"keychat/internal/models"
	"keychat/internal/store"
)

// MemStore is an in-memory store.Store implementation. All operations are
// serialized by a single mutex; returned records are copies.
type MemStore struct {
	mu     sync.Mutex
	users  map[string]*models.User
	chats  map[string]*models.Conversation
	groups map[string]*models.Group
}

// New returns an empty MemStore.
func New() *MemStore {
	return &MemStore{
		users:  make(map[string]*models.User),
		chats:  make(map[string]*models.Conversation),
		groups: make(map[string]*models.Group),
	}
}

// Ping always succeeds; memory is never unreachable.
func (s *MemStore) Ping(ctx context.Context) error {
	return nil
}

func copyUser(u *models.User) *models.User {
	out := *u
	if u.PublicKey != nil {
		key := *u.PublicKey
		out.PublicKey = &key
	}
	return &out
}

func copyConversation(c *models.Conversation) *models.Conversation {
	out := *c
	out.Messages = slices.Clone(c.Messages)
	return &out
}

func copyGroup(g *models.Group) *models.Group {
	out := *g
	out.Members = slices.Clone(g.Members)
	out.Messages = slices.Clone(g.Messages)
	return &out
}

// --- Users ---

func (s *MemStore) InsertUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return store.ErrDuplicateKey
		}
	}
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *MemStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyUser(user), nil
}

func (s *MemStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == email {
			return copyUser(user), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *MemStore) ListOnlineUsers(ctx context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var online []models.User
	for _, user := range s.users {
		if user.Online {
			online = append(online, *copyUser(user))
		}
	}
	return online, nil
}

func (s *MemStore) UpdateUser(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Credential != nil {
		user.Credential = *patch.Credential
	}
	if patch.PublicKey != nil {
		key := *patch.PublicKey
		user.PublicKey = &key
	}
	if patch.AddresseeID != nil {
		user.AddresseeID = *patch.AddresseeID
	}
	if patch.GroupID != nil {
		user.GroupID = *patch.GroupID
	}
	if patch.Online != nil {
		user.Online = *patch.Online
	}
	user.UpdatedAt = time.Now().UTC()

	return copyUser(user), nil
}

func (s *MemStore) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, id)
	return nil
}

// --- Conversations ---

func (s *MemStore) InsertConversation(ctx context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.chats {
		if existing.PairKey == conv.PairKey {
			return store.ErrDuplicateKey
		}
	}
	s.chats[conv.ID] = copyConversation(conv)
	return nil
}

func (s *MemStore) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.chats[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyConversation(conv), nil
}

func (s *MemStore) FindConversationByPair(ctx context.Context, pairKey string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, conv := range s.chats {
		if conv.PairKey == pairKey {
			return copyConversation(conv), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *MemStore) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Conversation, 0, len(s.chats))
	for _, conv := range s.chats {
		out = append(out, *copyConversation(conv))
	}
	return out, nil
}

func (s *MemStore) AppendConversationMessage(ctx context.Context, id string, msg models.ChatMessage, at time.Time) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.chats[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	conv.Messages = append(conv.Messages, msg)
	conv.LastActivity = at
	return copyConversation(conv), nil
}

func (s *MemStore) DeleteConversation(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[id]; !ok {
		return false, nil
	}
	delete(s.chats, id)
	return true, nil
}

// --- Groups ---

func (s *MemStore) InsertGroup(ctx context.Context, group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.groups {
		if group.Name != "" && existing.Name == group.Name {
			return store.ErrDuplicateKey
		}
		if group.CanonicalKey != "" && existing.CanonicalKey == group.CanonicalKey {
			return store.ErrDuplicateKey
		}
	}
	s.groups[group.ID] = copyGroup(group)
	return nil
}

func (s *MemStore) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.groups[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyGroup(group), nil
}

func (s *MemStore) FindGroupByName(ctx context.Context, name string) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, group := range s.groups {
		if group.Name != "" && group.Name == name {
			return copyGroup(group), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *MemStore) FindGroupByCanonicalKey(ctx context.Context, key string) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, group := range s.groups {
		if group.CanonicalKey != "" && group.CanonicalKey == key {
			return copyGroup(group), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *MemStore) ListGroupsByMember(ctx context.Context, userID string) ([]models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Group
	for _, group := range s.groups {
		if slices.Contains(group.Members, userID) {
			out = append(out, *copyGroup(group))
		}
	}
	return out, nil
}

func (s *MemStore) AppendGroupMessage(ctx context.Context, id string, msg models.GroupMessage, at time.Time) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.groups[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	group.Messages = append(group.Messages, msg)
	group.LastActivity = at
	return copyGroup(group), nil
}

func (s *MemStore) SetGroupMembers(ctx context.Context, id string, members []string) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.groups[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	group.Members = slices.Clone(members)
	return copyGroup(group), nil
}

func (s *MemStore) DeleteGroup(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[id]; !ok {
		return false, nil
	}
	delete(s.groups, id)
	return true, nil
}
