/*
Package identity contains the core logic for user identity records: registration,
lookup, presence, key material, and addressee pointers.

This file defines the Directory struct, which owns every User record and the
embedded public-key material used to bootstrap end-to-end encrypted messaging.
*/
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"keychat/internal/models"
	"keychat/internal/pkg/errs"
	"keychat/internal/pkg/keymutex"
	"keychat/internal/pkg/logx"
	"keychat/internal/store"
)

// Store is the slice of the persistence collaborator the directory needs.
type Store interface {
	store.UserStore

	Ping(ctx context.Context) error
}

// Directory owns the user identity records.
type Directory struct {
	store Store

	// locks serializes check-then-create registration per email.
	locks *keymutex.KeyMutex

	logger zerolog.Logger
}

// NewDirectory constructs a Directory on top of the given store.
func NewDirectory(s Store) *Directory {
	return &Directory{
		store:  s,
		locks:  keymutex.New(),
		logger: logx.Component("IdentityDirectory"),
	}
}

// checkStore verifies the persistence collaborator is reachable before a
// logical operation. An unreachable store is fatal to the current request.
func (d *Directory) checkStore(ctx context.Context) *errs.CustomError {
	if err := d.store.Ping(ctx); err != nil {
		d.logger.Error().Err(err).Msg("Document store unreachable.")
		return errs.NewError(errs.ErrStoreUnavailable)
	}
	return nil
}

// Register creates a new user with the given email, display name, and
// credential. The credential is stored as a bcrypt hash, never as supplied.
// A user with the same email must not already exist; the email-uniqueness
// check and the insert are atomic with respect to concurrent registrations.
func (d *Directory) Register(ctx context.Context, email, name, credential string) (*models.User, *errs.CustomError) {
	if email == "" || name == "" || credential == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	if customErr := d.checkStore(ctx); customErr != nil {
		return nil, customErr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to hash credential.")
		return nil, errs.NewError(errs.ErrUnknown)
	}

	d.locks.Lock(email)
	defer d.locks.Unlock(email)

	_, err = d.store.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, errs.NewError(errs.ErrEmailTaken)
	}
	if !errors.Is(err, store.ErrNotFound) {
		d.logger.Error().Err(err).Msg("Email lookup failed during registration.")
		return nil, errs.NewError(errs.ErrUnknown)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:         uuid.NewString(),
		Email:      email,
		Name:       name,
		Credential: string(hash),
		Online:     false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := d.store.InsertUser(ctx, user); err != nil {
		// Another writer (e.g. a second process) won the race; the unique
		// index on email is the backstop behind the per-email lock.
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, errs.NewError(errs.ErrEmailTaken)
		}
		d.logger.Error().Err(err).Msg("Failed to insert user.")
		return nil, errs.NewError(errs.ErrUnknown)
	}

	d.logger.Info().Str("user_id", user.ID).Msg("User registered.")
	return user, nil
}

// Login resolves a user by email and verifies the supplied credential
// against the stored hash. Misses and mismatches are reported identically.
func (d *Directory) Login(ctx context.Context, email, credential string) (*models.User, *errs.CustomError) {
	if email == "" || credential == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	if customErr := d.checkStore(ctx); customErr != nil {
		return nil, customErr
	}

	user, err := d.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errs.NewError(errs.ErrInvalidCredentials)
		}
		d.logger.Error().Err(err).Msg("Email lookup failed during login.")
		return nil, errs.NewError(errs.ErrUnknown)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Credential), []byte(credential)); err != nil {
		return nil, errs.NewError(errs.ErrInvalidCredentials)
	}

	return user, nil
}

// FindByID retrieves a user by id.
func (d *Directory) FindByID(ctx context.Context, id string) (*models.User, *errs.CustomError) {
	if customErr := d.checkStore(ctx); customErr != nil {
		return nil, customErr
	}

	user, err := d.store.GetUser(ctx, id)
	if err != nil {
		return nil, d.classify(err)
	}
	return user, nil
}

// FindByEmail retrieves a user by email.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*models.User, *errs.CustomError) {
	if customErr := d.checkStore(ctx); customErr != nil {
		return nil, customErr
	}

	user, err := d.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, d.classify(err)
	}
	return user, nil
}

// ListOnline returns a snapshot of all users currently marked online.
func (d *Directory) ListOnline(ctx context.Context) ([]models.User, *errs.CustomError) {
	if customErr := d.checkStore(ctx); customErr != nil {
		return nil, customErr
	}

	users, err := d.store.ListOnlineUsers(ctx)
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to list online users.")
		return nil, errs.NewError(errs.ErrUnknown)
	}
	return users, nil
}

// SetPresence sets the online flag. Setting the same value twice is a no-op
// observably.
func (d *Directory) SetPresence(ctx context.Context, id string, online bool) (*models.User, *errs.CustomError) {
	if customErr := d.checkStore(ctx); customErr != nil {
		return nil, customErr
	}

	user, err := d.store.UpdateUser(ctx, id, models.UserPatch{Online: &online})
	if err != nil {
		return nil, d.classify(err)
	}
	return user, nil
}

// SetPublicKey replaces the user's public-key material wholesale. A prior
// key is never merged with the new one.
func (d *Directory) SetPublicKey(ctx context.Context, id string, key models.PublicKey) (*models.User, *errs.CustomError) {
	if key.P == "" || key.G == "" || key.E == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	if customErr := d.checkStore(ctx); customErr != nil {
		return nil, customErr
	}

	user, err := d.store.UpdateUser(ctx, id, models.UserPatch{PublicKey: &key})
	if err != nil {
		return nil, d.classify(err)
	}

	d.logger.Info().Str("user_id", id).Msg("Public key replaced.")
	return user, nil
}

// SetAddressee points the user at the peer it is currently addressing.
// The addressee id is not validated against existing users; that looseness
// is the caller's responsibility.
func (d *Directory) SetAddressee(ctx context.Context, id, addresseeID string) (*models.User, *errs.CustomError) {
	if customErr := d.checkStore(ctx); customErr != nil {
		return nil, customErr
	}

	user, err := d.store.UpdateUser(ctx, id, models.UserPatch{AddresseeID: &addresseeID})
	if err != nil {
		return nil, d.classify(err)
	}
	return user, nil
}

// SetGroup points the user at its current group. Like the addressee pointer,
// the group id is not validated.
func (d *Directory) SetGroup(ctx context.Context, id, groupID string) (*models.User, *errs.CustomError) {
	if customErr := d.checkStore(ctx); customErr != nil {
		return nil, customErr
	}

	user, err := d.store.UpdateUser(ctx, id, models.UserPatch{GroupID: &groupID})
	if err != nil {
		return nil, d.classify(err)
	}
	return user, nil
}

// Delete removes the user record. Conversations and groups that reference
// the id are left untouched; their references dangle by design.
func (d *Directory) Delete(ctx context.Context, id string) *errs.CustomError {
	if customErr := d.checkStore(ctx); customErr != nil {
		return customErr
	}

	if err := d.store.DeleteUser(ctx, id); err != nil {
		d.logger.Error().Err(err).Str("user_id", id).Msg("Failed to delete user.")
		return errs.NewError(errs.ErrUnknown)
	}

	d.logger.Info().Str("user_id", id).Msg("User deleted.")
	return nil
}

// classify maps a store error to the matching business error.
func (d *Directory) classify(err error) *errs.CustomError {
	if errors.Is(err, store.ErrNotFound) {
		return errs.NewError(errs.ErrUserNotFound)
	}
	d.logger.Error().Err(err).Msg("Store operation failed.")
	return errs.NewError(errs.ErrUnknown)
}
