package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is a MongoDB implementation of DocumentStore. Each collection
// maps to a Mongo collection and the document ID is stored as _id.
type MongoStore struct {
	db  *mongo.Database
	hub *ChangeHub
}

func NewMongoStore(db *mongo.Database, hub *ChangeHub) *MongoStore {
	if hub == nil {
		hub = NewChangeHub()
	}
	return &MongoStore{db: db, hub: hub}
}

func mongoFilter(q Query) bson.M {
	filter := bson.M{}
	for _, f := range q.Where {
		if f.Field == FieldID {
			filter["_id"] = f.Value
			continue
		}
		filter[f.Field] = f.Value
	}
	return filter
}

func fromBSON(raw bson.M) Record {
	id := fmt.Sprint(raw["_id"])
	doc := make(Document, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		doc[k] = normalizeBSON(v)
	}
	return Record{ID: id, Data: doc}
}

func normalizeBSON(v any) any {
	switch t := v.(type) {
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeBSON(e)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeBSON(e)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	default:
		return v
	}
}

func toBSON(id string, doc Document) bson.M {
	out := bson.M{"_id": id}
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (Record, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Record{}, notFound(collection, id)
		}
		return Record{}, fmt.Errorf("failed to get document by ID %s: %w", id, err)
	}
	return fromBSON(raw), nil
}

func (s *MongoStore) Query(ctx context.Context, collection string, q Query) ([]Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cur, err := s.db.Collection(collection).Find(ctx, mongoFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	var raws []bson.M
	if err := cur.All(ctx, &raws); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", collection, err)
	}
	records := make([]Record, 0, len(raws))
	for _, raw := range raws {
		records = append(records, fromBSON(raw))
	}
	return records, nil
}

func (s *MongoStore) Add(ctx context.Context, collection string, doc Document) (string, error) {
	id := uuid.New().String()
	if _, err := s.db.Collection(collection).InsertOne(ctx, toBSON(id, doc)); err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}
	s.hub.Notify(collection)
	return id, nil
}

func (s *MongoStore) Set(ctx context.Context, collection, id string, doc Document) error {
	_, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, toBSON(id, doc), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to set document %s: %w", id, err)
	}
	s.hub.Notify(collection)
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if res.DeletedCount == 0 {
		return notFound(collection, id)
	}
	s.hub.Notify(collection)
	return nil
}

func (s *MongoStore) Subscribe(ctx context.Context, collection string, q Query, listener Listener) (Unsubscribe, error) {
	return s.hub.Subscribe(ctx, s, collection, q, listener)
}
