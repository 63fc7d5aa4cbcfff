package repository

import (
	"context"
	"time"

	"github.com/example/foodcart/pkg/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoRepository(cfg *config.MongoDBConfig) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	return &MongoRepository{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// AuditLog is one change made to an order or restaurant.
type AuditLog struct {
	ID         string    `bson:"_id,omitempty" json:"id,omitempty"`
	Service    string    `bson:"service" json:"service"`
	Action     string    `bson:"action" json:"action"`
	EntityType string    `bson:"entity_type" json:"entity_type"`
	EntityID   uint      `bson:"entity_id" json:"entity_id"`
	Data       bson.M    `bson:"data" json:"data"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

func (m *MongoRepository) CreateAuditLog(ctx context.Context, entry *AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := m.collection.InsertOne(ctx, entry)
	return err
}

// GetAuditLogs returns up to limit entries for one entity, newest first.
func (m *MongoRepository) GetAuditLogs(ctx context.Context, entityType string, entityID uint, limit int64) ([]*AuditLog, error) {
	filter := bson.M{"entity_type": entityType, "entity_id": entityID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []*AuditLog
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}
