/*
Package conversation contains the core logic for pairwise (1:1) chats.

This file defines the Registry struct, which owns every Conversation record.
A conversation's identity is the unordered pair of its participants: for any
two user ids, at most one conversation exists, regardless of the argument
order at creation time.
*/
package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"keychat/internal/models"
	"keychat/internal/pkg/errs"
	"keychat/internal/pkg/keymutex"
	"keychat/internal/pkg/logx"
	"keychat/internal/store"
)

// MaxMessageLen is the maximum accepted message length in runes.
const MaxMessageLen = 4096

// Store is the slice of the persistence collaborator the registry needs.
type Store interface {
	store.ConversationStore

	Ping(ctx context.Context) error
}

// Registry owns the pairwise conversation records.
type Registry struct {
	store Store

	// locks serializes check-then-create per canonical pair key.
	locks *keymutex.KeyMutex

	logger zerolog.Logger
}

// NewRegistry constructs a Registry on top of the given store.
func NewRegistry(s Store) *Registry {
	return &Registry{
		store:  s,
		locks:  keymutex.New(),
		logger: logx.Component("ConversationRegistry"),
	}
}

func (r *Registry) checkStore(ctx context.Context) *errs.CustomError {
	if err := r.store.Ping(ctx); err != nil {
		r.logger.Error().Err(err).Msg("Document store unreachable.")
		return errs.NewError(errs.ErrStoreUnavailable)
	}
	return nil
}

// CreateOrGet resolves the conversation for the unordered pair {userA, userB},
// creating it with an empty message log on first use. The check and the
// create form one atomic step per canonical pair: two concurrent calls for
// the same pair always resolve to a single record.
func (r *Registry) CreateOrGet(ctx context.Context, userA, userB string) (*models.Conversation, *errs.CustomError) {
	if userA == "" || userB == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	if customErr := r.checkStore(ctx); customErr != nil {
		return nil, customErr
	}

	pairKey := models.PairKey(userA, userB)

	r.locks.Lock(pairKey)
	defer r.locks.Unlock(pairKey)

	conv, err := r.store.FindConversationByPair(ctx, pairKey)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		r.logger.Error().Err(err).Msg("Pair lookup failed.")
		return nil, errs.NewError(errs.ErrUnknown)
	}

	now := time.Now().UTC()
	conv = &models.Conversation{
		ID:           uuid.NewString(),
		UserA:        userA,
		UserB:        userB,
		PairKey:      pairKey,
		Messages:     []models.ChatMessage{},
		LastActivity: now,
		CreatedAt:    now,
	}

	if err := r.store.InsertConversation(ctx, conv); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			// Lost the race against another process; the winner's record is
			// the canonical one.
			return r.refetch(ctx, pairKey)
		}
		r.logger.Error().Err(err).Msg("Failed to insert conversation.")
		return nil, errs.NewError(errs.ErrUnknown)
	}

	r.logger.Info().Str("chat_id", conv.ID).Msg("Conversation created.")
	return conv, nil
}

func (r *Registry) refetch(ctx context.Context, pairKey string) (*models.Conversation, *errs.CustomError) {
	conv, err := r.store.FindConversationByPair(ctx, pairKey)
	if err != nil {
		r.logger.Error().Err(err).Msg("Refetch after duplicate-key conflict failed.")
		return nil, errs.NewError(errs.ErrUnknown)
	}
	return conv, nil
}

// FindByUsers resolves the conversation for the unordered pair without
// creating one.
func (r *Registry) FindByUsers(ctx context.Context, userA, userB string) (*models.Conversation, *errs.CustomError) {
	if customErr := r.checkStore(ctx); customErr != nil {
		return nil, customErr
	}

	conv, err := r.store.FindConversationByPair(ctx, models.PairKey(userA, userB))
	if err != nil {
		return nil, r.classify(err)
	}
	return conv, nil
}

// FindByID retrieves a conversation by id.
func (r *Registry) FindByID(ctx context.Context, id string) (*models.Conversation, *errs.CustomError) {
	if customErr := r.checkStore(ctx); customErr != nil {
		return nil, customErr
	}

	conv, err := r.store.GetConversation(ctx, id)
	if err != nil {
		return nil, r.classify(err)
	}
	return conv, nil
}

// ListAll returns every conversation.
func (r *Registry) ListAll(ctx context.Context) ([]models.Conversation, *errs.CustomError) {
	if customErr := r.checkStore(ctx); customErr != nil {
		return nil, customErr
	}

	convs, err := r.store.ListConversations(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to list conversations.")
		return nil, errs.NewError(errs.ErrUnknown)
	}
	return convs, nil
}

// AppendMessage appends {text, sender} to the tail of the conversation's
// message log and updates its last activity. The store's atomic append keeps
// insertion order stable under concurrent appenders.
func (r *Registry) AppendMessage(ctx context.Context, id, text, sender string) (*models.Conversation, *errs.CustomError) {
	if text == "" || sender == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}
	if len([]rune(text)) > MaxMessageLen {
		return nil, errs.NewError(errs.ErrMessageTooLong)
	}

	if customErr := r.checkStore(ctx); customErr != nil {
		return nil, customErr
	}

	msg := models.ChatMessage{Text: text, Sender: sender}
	conv, err := r.store.AppendConversationMessage(ctx, id, msg, time.Now().UTC())
	if err != nil {
		return nil, r.classify(err)
	}
	return conv, nil
}

// Delete removes the conversation and reports whether a record existed.
// Deleting an absent conversation is safe and returns false.
func (r *Registry) Delete(ctx context.Context, id string) (bool, *errs.CustomError) {
	if customErr := r.checkStore(ctx); customErr != nil {
		return false, customErr
	}

	deleted, err := r.store.DeleteConversation(ctx, id)
	if err != nil {
		r.logger.Error().Err(err).Str("chat_id", id).Msg("Failed to delete conversation.")
		return false, errs.NewError(errs.ErrUnknown)
	}

	if deleted {
		r.logger.Info().Str("chat_id", id).Msg("Conversation deleted.")
	}
	return deleted, nil
}

// classify maps a store error to the matching business error.
func (r *Registry) classify(err error) *errs.CustomError {
	if errors.Is(err, store.ErrNotFound) {
		return errs.NewError(errs.ErrChatNotFound)
	}
	r.logger.Error().Err(err).Msg("Store operation failed.")
	return errs.NewError(errs.ErrUnknown)
}
