package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"keychat/internal/app/db"
	"keychat/internal/models"
	"keychat/internal/store"
)

// InsertUser stores a new user document. The unique index on email turns a
// concurrent duplicate registration into store.ErrDuplicateKey.
func (s *MongoStore) InsertUser(ctx context.Context, user *models.User) error {
	_, err := s.users().InsertOne(ctx, user)
	if err != nil {
		if db.IsDuplicateKey(err) {
			return store.ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.users().FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if db.IsNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.users().FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if db.IsNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

func (s *MongoStore) ListOnlineUsers(ctx context.Context) ([]models.User, error) {
	cursor, err := s.users().Find(ctx, bson.M{"online": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list online users: %w", err)
	}

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode online users: %w", err)
	}
	return users, nil
}

// UpdateUser applies the non-nil patch fields with a single $set and returns
// the updated document.
func (s *MongoStore) UpdateUser(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Credential != nil {
		set["credential"] = *patch.Credential
	}
	if patch.PublicKey != nil {
		set["pub_key"] = *patch.PublicKey
	}
	if patch.AddresseeID != nil {
		set["id_addressee"] = *patch.AddresseeID
	}
	if patch.GroupID != nil {
		set["id_group"] = *patch.GroupID
	}
	if patch.Online != nil {
		set["online"] = *patch.Online
	}

	var user models.User
	err := s.users().FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		if db.IsNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &user, nil
}

func (s *MongoStore) DeleteUser(ctx context.Context, id string) error {
	_, err := s.users().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
