package sessionstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo is a Store backed by a MongoDB collection, for gateways that run
// more than one node and need a shared session registry.
type Mongo struct {
	collection *mongo.Collection
}

// NewMongo wraps an existing collection handle (caller owns the client's
// lifecycle — connect/disconnect is outside this package's concern).
func NewMongo(collection *mongo.Collection) *Mongo {
	return &Mongo{collection: collection}
}

func (s *Mongo) Create(ctx context.Context, rec Record) error {
	filter := bson.M{"session_id": rec.SessionID}
	opts := options.Replace().SetUpsert(true)
	_, err := s.collection.ReplaceOne(ctx, filter, rec, opts)
	return err
}

func (s *Mongo) Get(ctx context.Context, sessionID string) (Record, error) {
	var rec Record
	err := s.collection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return Record{}, notFound(sessionID)
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *Mongo) Update(ctx context.Context, sessionID string, mutate func(*Record)) error {
	rec, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	mutate(&rec)
	_, err = s.collection.ReplaceOne(ctx, bson.M{"session_id": sessionID}, rec)
	return err
}

func (s *Mongo) Delete(ctx context.Context, sessionID string) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return notFound(sessionID)
	}
	return nil
}

func (s *Mongo) Touch(ctx context.Context, sessionID string, at time.Time) error {
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{"last_accessed_at": at}},
	)
	return err
}

func (s *Mongo) List(ctx context.Context, userID string) ([]Record, error) {
	cur, err := s.collection.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Record
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
