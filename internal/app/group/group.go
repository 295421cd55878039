/*
Package group contains the core logic for group chats.

This file defines the Registry struct, which owns every Group record. An
unnamed group is identified by its canonical (sorted) member-id set, so two
create calls with the same members in different orders resolve to the same
group. A named group is identified by its name alone: an existing group with
that name is returned unchanged even when the requested member set differs.
*/
package group

import (
	"context"
	"errors"
	"slices"
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
	store.GroupStore

	Ping(ctx context.Context) error
}

// Registry owns the group chat records.
type Registry struct {
	store Store

	// locks serializes check-then-create per identity key and
	// read-modify-write membership updates per group id.
	locks *keymutex.KeyMutex

	logger zerolog.Logger
}

// NewRegistry constructs a Registry on top of the given store.
func NewRegistry(s Store) *Registry {
	return &Registry{
		store:  s,
		locks:  keymutex.New(),
		logger: logx.Component("GroupRegistry"),
	}
}

func (r *Registry) checkStore(ctx context.Context) *errs.CustomError {
	if err := r.store.Ping(ctx); err != nil {
		r.logger.Error().Err(err).Msg("Document store unreachable.")
		return errs.NewError(errs.ErrStoreUnavailable)
	}
	return nil
}

// CreateOrGet resolves the group for the given member set, creating it with
// an empty message log on first use. Identity is the name when one is
// supplied and the canonical member set otherwise; either way the check and
// the create form one atomic step per identity key.
func (r *Registry) CreateOrGet(ctx context.Context, memberIDs []string, name string) (*models.Group, *errs.CustomError) {
	members := models.CanonicalMembers(memberIDs)
	if len(members) == 0 {
		return nil, errs.NewError(errs.ErrEmptyMemberSet)
	}

	if customErr := r.checkStore(ctx); customErr != nil {
		return nil, customErr
	}

	var lockKey string
	var find func(context.Context) (*models.Group, error)
	canonicalKey := ""

	if name != "" {
		lockKey = "name:" + name
		find = func(ctx context.Context) (*models.Group, error) {
			return r.store.FindGroupByName(ctx, name)
		}
	} else {
		canonicalKey = models.MemberKey(members)
		lockKey = "members:" + canonicalKey
		find = func(ctx context.Context) (*models.Group, error) {
			return r.store.FindGroupByCanonicalKey(ctx, canonicalKey)
		}
	}

	r.locks.Lock(lockKey)
	defer r.locks.Unlock(lockKey)

	group, err := find(ctx)
	if err == nil {
		return group, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		r.logger.Error().Err(err).Msg("Group lookup failed.")
		return nil, errs.NewError(errs.ErrUnknown)
	}

	now := time.Now().UTC()
	group = &models.Group{
		ID:           uuid.NewString(),
		Name:         name,
		CanonicalKey: canonicalKey,
		Members:      members,
		Messages:     []models.GroupMessage{},
		LastActivity: now,
		CreatedAt:    now,
	}

	if err := r.store.InsertGroup(ctx, group); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			// Lost the race against another process; return the winner.
			group, err = find(ctx)
			if err != nil {
				r.logger.Error().Err(err).Msg("Refetch after duplicate-key conflict failed.")
				return nil, errs.NewError(errs.ErrUnknown)
			}
			return group, nil
		}
		r.logger.Error().Err(err).Msg("Failed to insert group.")
		return nil, errs.NewError(errs.ErrUnknown)
	}

	r.logger.Info().Str("group_id", group.ID).Int("members", len(members)).Msg("Group created.")
	return group, nil
}

// FindByID retrieves a group by id.
func (r *Registry) FindByID(ctx context.Context, id string) (*models.Group, *errs.CustomError) {
	if customErr := r.checkStore(ctx); customErr != nil {
		return nil, customErr
	}

	group, err := r.store.GetGroup(ctx, id)
	if err != nil {
		return nil, r.classify(err)
	}
	return group, nil
}

// AddMessage appends {text, sender, receiver} to the tail of the group's
// message log and updates its last activity.
func (r *Registry) AddMessage(ctx context.Context, id, text, sender, receiver string) (*models.Group, *errs.CustomError) {
	if text == "" || sender == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}
	if len([]rune(text)) > MaxMessageLen {
		return nil, errs.NewError(errs.ErrMessageTooLong)
	}

	if customErr := r.checkStore(ctx); customErr != nil {
		return nil, customErr
	}

	msg := models.GroupMessage{Text: text, Sender: sender, Receiver: receiver}
	group, err := r.store.AppendGroupMessage(ctx, id, msg, time.Now().UTC())
	if err != nil {
		return nil, r.classify(err)
	}
	return group, nil
}

// GetMessages returns the group's message log in insertion order.
func (r *Registry) GetMessages(ctx context.Context, id string) ([]models.GroupMessage, *errs.CustomError) {
	group, customErr := r.FindByID(ctx, id)
	if customErr != nil {
		return nil, customErr
	}
	return group.Messages, nil
}

// GetMembers returns the group's member-id set.
func (r *Registry) GetMembers(ctx context.Context, id string) ([]string, *errs.CustomError) {
	group, customErr := r.FindByID(ctx, id)
	if customErr != nil {
		return nil, customErr
	}
	return group.Members, nil
}

// ListGroupsForUser returns the identity key (name when set, id otherwise)
// of every group whose member set contains userID. A user with no groups is
// reported as not found.
func (r *Registry) ListGroupsForUser(ctx context.Context, userID string) ([]string, *errs.CustomError) {
	if customErr := r.checkStore(ctx); customErr != nil {
		return nil, customErr
	}

	groups, err := r.store.ListGroupsByMember(ctx, userID)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to list groups by member.")
		return nil, errs.NewError(errs.ErrUnknown)
	}
	if len(groups) == 0 {
		return nil, errs.NewError(errs.ErrGroupNotFound)
	}

	keys := make([]string, 0, len(groups))
	for _, g := range groups {
		if g.Name != "" {
			keys = append(keys, g.Name)
		} else {
			keys = append(keys, g.ID)
		}
	}
	return keys, nil
}

// RemoveMember removes userID from the group's member set. The group is kept
// even when the member set becomes empty.
func (r *Registry) RemoveMember(ctx context.Context, id, userID string) (*models.Group, *errs.CustomError) {
	if customErr := r.checkStore(ctx); customErr != nil {
		return nil, customErr
	}

	// Read-modify-write on the member set; serialized per group id so
	// concurrent removals do not resurrect each other's members.
	r.locks.Lock("group:" + id)
	defer r.locks.Unlock("group:" + id)

	group, err := r.store.GetGroup(ctx, id)
	if err != nil {
		return nil, r.classify(err)
	}

	members := slices.DeleteFunc(slices.Clone(group.Members), func(m string) bool {
		return m == userID
	})

	group, err = r.store.SetGroupMembers(ctx, id, members)
	if err != nil {
		return nil, r.classify(err)
	}

	r.logger.Info().Str("group_id", id).Str("user_id", userID).Msg("Member removed from group.")
	return group, nil
}

// Delete removes the group and reports whether a record existed.
func (r *Registry) Delete(ctx context.Context, id string) (bool, *errs.CustomError) {
	if customErr := r.checkStore(ctx); customErr != nil {
		return false, customErr
	}

	deleted, err := r.store.DeleteGroup(ctx, id)
	if err != nil {
		r.logger.Error().Err(err).Str("group_id", id).Msg("Failed to delete group.")
		return false, errs.NewError(errs.ErrUnknown)
	}

	if deleted {
		r.logger.Info().Str("group_id", id).Msg("Group deleted.")
	}
	return deleted, nil
}

// classify maps a store error to the matching business error.
func (r *Registry) classify(err error) *errs.CustomError {
	if errors.Is(err, store.ErrNotFound) {
		return errs.NewError(errs.ErrGroupNotFound)
	}
	r.logger.Error().Err(err).Msg("Store operation failed.")
	return errs.NewError(errs.ErrUnknown)
}
