package essay

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/admitlens/core/internal/models"
)

// Repository is the durable-storage port for feedback sessions. The store is
// append-only: no update or delete is exposed.
type Repository interface {
	Insert(ctx context.Context, doc *models.FeedbackSession) (string, error)
	FindByHash(ctx context.Context, essayHash string) (*models.FeedbackSession, error)
	ListRecentByUser(ctx context.Context, userID string, limit int) ([]models.FeedbackSession, error)
	EnsureIndexes(ctx context.Context) error
}

// MongoRepository stores sessions in the feedback_sessions collection.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{col: db.Collection(models.FeedbackSession{}.CollectionName())}
}

func (r *MongoRepository) Insert(ctx context.Context, doc *models.FeedbackSession) (string, error) {
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("insert feedback session: %w", err)
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return id.Hex(), nil
}

func (r *MongoRepository) FindByHash(ctx context.Context, essayHash string) (*models.FeedbackSession, error) {
	var doc models.FeedbackSession
	err := r.col.FindOne(ctx, bson.M{"essayHash": essayHash}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find feedback session by hash: %w", err)
	}
	return &doc, nil
}

func (r *MongoRepository) ListRecentByUser(ctx context.Context, userID string, limit int) ([]models.FeedbackSession, error) {
	opts := options.Find().
		SetProjection(bson.M{"essayText": 0}).
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list feedback sessions: %w", err)
	}
	defer cursor.Close(ctx)

	items := []models.FeedbackSession{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode feedback sessions: %w", err)
	}
	return items, nil
}

// EnsureIndexes builds the lookup indexes; idempotent, safe to call on every
// startup.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "essayHash", Value: 1}},
			Options: options.Index().SetName("by_essayHash"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("by_user_recent"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("by_createdAt_desc"),
		},
	})
	if err != nil {
		return fmt.Errorf("ensure feedback session indexes: %w", err)
	}
	return nil
}
