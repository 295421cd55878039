/*
Package mongostore implements the store.Store interface on MongoDB.

Canonical identities are enforced with unique indexes, so a concurrent
check-then-create that loses the race surfaces as store.ErrDuplicateKey and
the caller refetches the winner. Message appends use $push, MongoDB's atomic
append-to-tail, which serializes appends per document while leaving appends
to different documents fully parallel.
*/
package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	usersCollection  = "users"
	chatsCollection  = "chats"
	groupsCollection = "chat_groups"
)

// MongoStore implements store.Store on a MongoDB database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// New wraps the given client and database name in a MongoStore.
func New(client *mongo.Client, dbName string) *MongoStore {
	return &MongoStore{
		client: client,
		db:     client.Database(dbName),
	}
}

func (s *MongoStore) users() *mongo.Collection  { return s.db.Collection(usersCollection) }
func (s *MongoStore) chats() *mongo.Collection  { return s.db.Collection(chatsCollection) }
func (s *MongoStore) groups() *mongo.Collection { return s.db.Collection(groupsCollection) }

// Ping verifies connectivity to the MongoDB deployment.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// EnsureIndexes creates the unique indexes backing the canonical identity
// keys. It is idempotent and runs once at startup.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	collections := map[string][]mongo.IndexModel{
		usersCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "online", Value: 1}}},
		},
		chatsCollection: {
			{
				Keys:    bson.D{{Key: "pair_key", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		groupsCollection: {
			// Named groups are identified by name alone; canonical_key is
			// only present on unnamed groups, hence both indexes are sparse.
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
			{
				Keys:    bson.D{{Key: "canonical_key", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
			{Keys: bson.D{{Key: "members", Value: 1}}},
		},
	}

	for name, indexes := range collections {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("failed to create indexes for %s: %w", name, err)
		}
	}

	return nil
}
