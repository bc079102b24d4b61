// Package mongostore implements docstore.Store on MongoDB.
//
// Collection ids map directly to Mongo collections. The system attributes
// $id, $createdAt and $updatedAt are stored as _id, createdAt and updatedAt.
// Store also implements docstore.Incrementer with a single upserting
// findOneAndUpdate, which removes the lost-update race of read-modify-write
// counters.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/s0up4200/reelbox/docstore"
)

const (
	mongoID        = "_id"
	mongoCreatedAt = "createdAt"
	mongoUpdatedAt = "updatedAt"
)

// Store is a MongoDB-backed document store
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger zerolog.Logger
	now    func() time.Time
}

// Connect opens a client, verifies it with a ping and selects database
func Connect(ctx context.Context, uri, database string, logger zerolog.Logger) (*Store, error) {
	if uri == "" || database == "" {
		return nil, fmt.Errorf("%w: mongo uri and database are required", docstore.ErrInvalidConfig)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logger.Debug().Str("database", database).Msg("Connected to MongoDB")

	return &Store{
		client: client,
		db:     client.Database(database),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close disconnects the client
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// List implements docstore.Store
func (s *Store) List(ctx context.Context, collection string, queries ...docstore.Query) ([]docstore.Document, error) {
	filter, opts, err := translate(queries)
	if err != nil {
		return nil, err
	}

	cur, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		s.logger.Error().Err(err).Str("collection", collection).Msg("Failed to list documents")
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	var out []docstore.Document
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		out = append(out, fromBSON(raw))
	}
	return out, cur.Err()
}

// Create implements docstore.Store
func (s *Store) Create(ctx context.Context, collection string, data map[string]any) (docstore.Document, error) {
	now := s.now()
	raw := bson.M{}
	for k, v := range data {
		raw[toField(k)] = v
	}
	raw[mongoID] = uuid.NewString()
	raw[mongoCreatedAt] = now
	raw[mongoUpdatedAt] = now

	if _, err := s.db.Collection(collection).InsertOne(ctx, raw); err != nil {
		s.logger.Error().Err(err).Str("collection", collection).Msg("Failed to create document")
		return nil, fmt.Errorf("failed to create document in %s: %w", collection, err)
	}
	return fromBSON(raw), nil
}

// Update implements docstore.Store
func (s *Store) Update(ctx context.Context, collection, id string, data map[string]any) (docstore.Document, error) {
	set := bson.M{mongoUpdatedAt: s.now()}
	for k, v := range data {
		set[toField(k)] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var raw bson.M
	err := s.db.Collection(collection).
		FindOneAndUpdate(ctx, bson.M{mongoID: id}, bson.M{"$set": set}, opts).
		Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, id)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("collection", collection).Str("id", id).Msg("Failed to update document")
		return nil, fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	return fromBSON(raw), nil
}

// Delete implements docstore.Store
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{mongoID: id})
	if err != nil {
		s.logger.Error().Err(err).Str("collection", collection).Str("id", id).Msg("Failed to delete document")
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, id)
	}
	return nil
}

// Increment implements docstore.Incrementer
func (s *Store) Increment(ctx context.Context, collection string, match docstore.Query, field string, delta int64, defaults map[string]any) (docstore.Document, error) {
	filter, update, err := incrementUpdate(match, field, delta, defaults, uuid.NewString(), s.now())
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var raw bson.M
	if err := s.db.Collection(collection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&raw); err != nil {
		s.logger.Error().Err(err).Str("collection", collection).Str("field", field).Msg("Failed to increment document")
		return nil, fmt.Errorf("failed to increment %s in %s: %w", field, collection, err)
	}
	return fromBSON(raw), nil
}

// translate converts docstore queries into a Mongo filter and find options
func translate(queries []docstore.Query) (bson.D, *options.FindOptions, error) {
	filter := bson.D{}
	opts := options.Find()
	var sort bson.D

	for _, q := range queries {
		if err := q.Validate(); err != nil {
			return nil, nil, err
		}
		switch q.Method {
		case docstore.MethodEqual:
			if len(q.Values) == 1 {
				filter = append(filter, bson.E{Key: toField(q.Attribute), Value: q.Values[0]})
			} else {
				filter = append(filter, bson.E{Key: toField(q.Attribute), Value: bson.M{"$in": q.Values}})
			}
		case docstore.MethodOrderDesc:
			sort = append(sort, bson.E{Key: toField(q.Attribute), Value: -1})
		case docstore.MethodOrderAsc:
			sort = append(sort, bson.E{Key: toField(q.Attribute), Value: 1})
		case docstore.MethodLimit:
			n, _ := q.LimitValue()
			opts.SetLimit(int64(n))
		case docstore.MethodOffset:
			n, _ := q.OffsetValue()
			opts.SetSkip(int64(n))
		}
	}

	if len(sort) > 0 {
		opts.SetSort(sort)
	}
	return filter, opts, nil
}

// incrementUpdate builds the upsert filter and update document
func incrementUpdate(match docstore.Query, field string, delta int64, defaults map[string]any, id string, now time.Time) (bson.D, bson.M, error) {
	if match.Method != docstore.MethodEqual || len(match.Values) != 1 {
		return nil, nil, fmt.Errorf("%w: increment needs a single-value equal match", docstore.ErrInvalidQuery)
	}
	if field == "" {
		return nil, nil, fmt.Errorf("%w: increment field is required", docstore.ErrInvalidQuery)
	}

	onInsert := bson.M{
		mongoID:        id,
		mongoCreatedAt: now,
	}
	for k, v := range defaults {
		if k == field || k == match.Attribute {
			continue
		}
		onInsert[toField(k)] = v
	}

	filter := bson.D{{Key: toField(match.Attribute), Value: match.Values[0]}}
	update := bson.M{
		"$inc":         bson.M{toField(field): delta},
		"$set":         bson.M{mongoUpdatedAt: now},
		"$setOnInsert": onInsert,
	}
	return filter, update, nil
}

func toField(attr string) string {
	switch attr {
	case docstore.FieldID:
		return mongoID
	case docstore.FieldCreatedAt:
		return mongoCreatedAt
	case docstore.FieldUpdatedAt:
		return mongoUpdatedAt
	default:
		return attr
	}
}

// fromBSON maps a raw Mongo document onto docstore conventions
func fromBSON(raw bson.M) docstore.Document {
	doc := make(docstore.Document, len(raw))
	for k, v := range raw {
		switch k {
		case mongoID:
			k = docstore.FieldID
		case mongoCreatedAt:
			k = docstore.FieldCreatedAt
		case mongoUpdatedAt:
			k = docstore.FieldUpdatedAt
		}

		switch val := v.(type) {
		case primitive.DateTime:
			v = val.Time().UTC().Format(time.RFC3339Nano)
		case time.Time:
			v = val.UTC().Format(time.RFC3339Nano)
		case primitive.ObjectID:
			v = val.Hex()
		}
		doc[k] = v
	}
	return doc
}

var (
	_ docstore.Store       = (*Store)(nil)
	_ docstore.Incrementer = (*Store)(nil)
)
