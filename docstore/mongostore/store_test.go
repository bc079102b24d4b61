package mongostore

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/s0up4200/reelbox/docstore"
)

func TestTranslate(t *testing.T) {
	filter, opts, err := translate([]docstore.Query{
		docstore.Equal("movie_id", int64(438631)),
		docstore.Equal("user_id", "u1", "u2"),
		docstore.OrderDesc(docstore.FieldCreatedAt),
		docstore.Limit(1),
		docstore.Offset(25),
	})
	require.NoError(t, err)

	assert.Equal(t, bson.D{
		{Key: "movie_id", Value: int64(438631)},
		{Key: "user_id", Value: bson.M{"$in": []any{"u1", "u2"}}},
	}, filter)
	require.NotNil(t, opts.Limit)
	assert.Equal(t, int64(1), *opts.Limit)
	require.NotNil(t, opts.Skip)
	assert.Equal(t, int64(25), *opts.Skip)
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}}, opts.Sort)
}

func TestTranslateInvalid(t *testing.T) {
	_, _, err := translate([]docstore.Query{{Method: "between"}})
	assert.ErrorIs(t, err, docstore.ErrInvalidQuery)
}

func TestIncrementUpdate(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	filter, update, err := incrementUpdate(
		docstore.Equal("searchTerm", "dune"),
		"count", 1,
		map[string]any{"searchTerm": "dune", "count": 1, "title": "Dune", "movie_id": int64(438631)},
		"generated-id", now,
	)
	require.NoError(t, err)

	assert.Equal(t, bson.D{{Key: "searchTerm", Value: "dune"}}, filter)
	assert.Equal(t, bson.M{"count": int64(1)}, update["$inc"])
	assert.Equal(t, bson.M{
		"_id":       "generated-id",
		"createdAt": now,
		"title":     "Dune",
		"movie_id":  int64(438631),
	}, update["$setOnInsert"])

	_, _, err = incrementUpdate(docstore.Limit(1), "count", 1, nil, "id", now)
	assert.ErrorIs(t, err, docstore.ErrInvalidQuery)
}

func TestFromBSON(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	oid := primitive.NewObjectID()

	doc := fromBSON(bson.M{
		"_id":       "abc",
		"createdAt": primitive.NewDateTimeFromTime(created),
		"owner":     oid,
		"count":     int32(4),
	})

	assert.Equal(t, "abc", doc.ID())
	assert.True(t, created.Equal(doc.CreatedAt()))
	assert.Equal(t, oid.Hex(), doc.String("owner"))
	assert.Equal(t, int64(4), doc.Int("count"))
}

func TestConnectRequiresConfig(t *testing.T) {
	_, err := Connect(context.Background(), "", "reelbox", zerolog.Nop())
	assert.ErrorIs(t, err, docstore.ErrInvalidConfig)
}
