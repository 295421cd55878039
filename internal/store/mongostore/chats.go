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

// InsertConversation stores a new conversation document. The unique index on
// pair_key reports a concurrent create for the same pair as
// store.ErrDuplicateKey.
func (s *MongoStore) InsertConversation(ctx context.Context, conv *models.Conversation) error {
	_, err := s.chats().InsertOne(ctx, conv)
	if err != nil {
		if db.IsDuplicateKey(err) {
			return store.ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

func (s *MongoStore) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.chats().FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if err != nil {
		if db.IsNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

func (s *MongoStore) FindConversationByPair(ctx context.Context, pairKey string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.chats().FindOne(ctx, bson.M{"pair_key": pairKey}).Decode(&conv)
	if err != nil {
		if db.IsNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find conversation by pair: %w", err)
	}
	return &conv, nil
}

func (s *MongoStore) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	cursor, err := s.chats().Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	var convs []models.Conversation
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}
	return convs, nil
}

// AppendConversationMessage pushes msg onto the tail of the message log in a
// single atomic update and returns the updated document.
func (s *MongoStore) AppendConversationMessage(ctx context.Context, id string, msg models.ChatMessage, at time.Time) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.chats().FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{"messages": msg},
			"$set":  bson.M{"last_activity": at},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&conv)
	if err != nil {
		if db.IsNoDocuments(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to append conversation message: %w", err)
	}
	return &conv, nil
}

func (s *MongoStore) DeleteConversation(ctx context.Context, id string) (bool, error) {
	result, err := s.chats().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete conversation: %w", err)
	}
	return result.DeletedCount > 0, nil
}
