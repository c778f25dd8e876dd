package counter

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/Protyush1995/Docto-friend/apperr"
)

const CollectionName = "id_counters"

// MongoStore increments counters with a single upserting findAndModify per
// call, so concurrent callers on any number of instances never observe the
// same value.
type MongoStore struct {
	coll    *mongo.Collection
	timeout time.Duration
	logger  *zap.Logger
}

func NewMongoStore(db *mongo.Database, timeout time.Duration, logger *zap.Logger) *MongoStore {
	return &MongoStore{
		coll:    db.Collection(CollectionName),
		timeout: timeout,
		logger:  logger,
	}
}

type counterDoc struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}

func (s *MongoStore) Increment(ctx context.Context, scope, key string) (int64, error) {
	id, err := compositeKey(scope, key)
	if err != nil {
		return 0, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	filter := bson.M{"_id": id}
	update := bson.M{"$inc": bson.M{"value": int64(1)}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc counterDoc
	err = s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		// Two first-time upserts raced on the same _id; the loser retries
		// against the now existing document.
		err = s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	}
	if err != nil {
		s.logger.Error("Counter increment failed",
			zap.String("counter", id),
			zap.Error(err))
		return 0, apperr.Unavailable("counter increment", err)
	}
	return doc.Value, nil
}
