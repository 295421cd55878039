/*
Package store defines the document persistence collaborator consumed by the
identity directory and the conversation/group registries.

Implementations live in mongostore (production) and memstore (tests). Lookup
misses are reported with ErrNotFound and unique-key conflicts with
ErrDuplicateKey; any other error is an infrastructure failure and is passed
upward untouched for the caller to classify.
*/
package store

import (
	"context"
	"errors"
	"time"

	"keychat/internal/models"
)

// ErrNotFound is returned when no document matches the given id or key.
var ErrNotFound = errors.New("store: document not found")

// ErrDuplicateKey is returned when an insert violates a unique key
// (user email, conversation pair key, group name or canonical key).
var ErrDuplicateKey = errors.New("store: duplicate key")

// UserStore holds the user identity records.
type UserStore interface {
	// InsertUser stores a new user. ErrDuplicateKey on an email conflict.
	InsertUser(ctx context.Context, user *models.User) error

	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// ListOnlineUsers returns a snapshot of users whose online flag is set.
	// Order is unspecified.
	ListOnlineUsers(ctx context.Context) ([]models.User, error)

	// UpdateUser applies the non-nil fields of patch and returns the updated
	// record. ErrNotFound if the user does not exist.
	UpdateUser(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)

	// DeleteUser removes the record. Deleting an absent user is not an error.
	DeleteUser(ctx context.Context, id string) error
}

// ConversationStore holds the pairwise conversations.
type ConversationStore interface {
	// InsertConversation stores a new conversation. ErrDuplicateKey when a
	// conversation with the same pair key already exists.
	InsertConversation(ctx context.Context, conv *models.Conversation) error

	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	FindConversationByPair(ctx context.Context, pairKey string) (*models.Conversation, error)
	ListConversations(ctx context.Context) ([]models.Conversation, error)

	// AppendConversationMessage atomically appends msg to the tail of the
	// message log and bumps last_activity. Appends to the same conversation
	// serialize; appends to different conversations are independent.
	AppendConversationMessage(ctx context.Context, id string, msg models.ChatMessage, at time.Time) (*models.Conversation, error)

	// DeleteConversation reports whether a document existed and was removed.
	DeleteConversation(ctx context.Context, id string) (bool, error)
}

// GroupStore holds the group conversations.
type GroupStore interface {
	// InsertGroup stores a new group. ErrDuplicateKey when the name or, for
	// unnamed groups, the canonical member key is already taken.
	InsertGroup(ctx context.Context, group *models.Group) error

	GetGroup(ctx context.Context, id string) (*models.Group, error)
	FindGroupByName(ctx context.Context, name string) (*models.Group, error)
	FindGroupByCanonicalKey(ctx context.Context, key string) (*models.Group, error)

	// ListGroupsByMember returns every group whose member set contains userID.
	ListGroupsByMember(ctx context.Context, userID string) ([]models.Group, error)

	// AppendGroupMessage atomically appends msg to the tail of the message log
	// and bumps last_activity.
	AppendGroupMessage(ctx context.Context, id string, msg models.GroupMessage, at time.Time) (*models.Group, error)

	// SetGroupMembers replaces the member set. The creation-time canonical
	// key is left as is; group identity does not change with membership.
	SetGroupMembers(ctx context.Context, id string, members []string) (*models.Group, error)

	// DeleteGroup reports whether a document existed and was removed.
	DeleteGroup(ctx context.Context, id string) (bool, error)
}

// Store is the full persistence collaborator.
type Store interface {
	UserStore
	ConversationStore
	GroupStore

	// Ping checks connectivity to the backing store.
	Ping(ctx context.Context) error
}
