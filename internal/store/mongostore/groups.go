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

// InsertGroup stores a new group document. The sparse unique indexes on name
// and canonical_key report concurrent creates for the same identity as
// store.ErrDuplicateKey.
func (s *MongoStore) InsertGroup(ctx context.Context, group *models.Group) error {
	_, err := s.groups().InsertOne(ctx, group)
	if err != nil {
		if db.IsDuplicateKey(err) {
			return store.ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert group: %w", err)
	}
	return nil
}

func (s *MongoStore) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	var group models.Group
	err := s.groups().FindOne(ctx, bson.M{"_id": id}).Decode(&group)
	if err != nil {
		if db.IsNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return &group, nil
}

func (s *MongoStore) FindGroupByName(ctx context.Context, name string) (*models.Group, error) {
	var group models.Group
	err := s.groups().FindOne(ctx, bson.M{"name": name}).Decode(&group)
	if err != nil {
		if db.IsNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find group by name: %w", err)
	}
	return &group, nil
}

func (s *MongoStore) FindGroupByCanonicalKey(ctx context.Context, key string) (*models.Group, error) {
	var group models.Group
	err := s.groups().FindOne(ctx, bson.M{"canonical_key": key}).Decode(&group)
	if err != nil {
		if db.IsNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find group by canonical key: %w", err)
	}
	return &group, nil
}

func (s *MongoStore) ListGroupsByMember(ctx context.Context, userID string) ([]models.Group, error) {
	cursor, err := s.groups().Find(ctx, bson.M{"members": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list groups by member: %w", err)
	}

	var groups []models.Group
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode groups: %w", err)
	}
	return groups, nil
}

// AppendGroupMessage pushes msg onto the tail of the message log in a single
// atomic update and returns the updated document.
func (s *MongoStore) AppendGroupMessage(ctx context.Context, id string, msg models.GroupMessage, at time.Time) (*models.Group, error) {
	var group models.Group
	err := s.groups().FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{"messages": msg},
			"$set":  bson.M{"last_activity": at},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&group)
	if err != nil {
		if db.IsNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to append group message: %w", err)
	}
	return &group, nil
}

// SetGroupMembers replaces the member set. The creation-time canonical key
// stays as is; membership changes do not change identity.
func (s *MongoStore) SetGroupMembers(ctx context.Context, id string, members []string) (*models.Group, error) {
	var group models.Group
	err := s.groups().FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"members": members}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&group)
	if err != nil {
		if db.IsNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to set group members: %w", err)
	}
	return &group, nil
}

func (s *MongoStore) DeleteGroup(ctx context.Context, id string) (bool, error) {
	result, err := s.groups().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete group: %w", err)
	}
	return result.DeletedCount > 0, nil
}
