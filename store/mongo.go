package store

import (
	"context"
	"fmt"

	"gramaalert-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoBackend stores issues in a collection and follows it with a change
// stream. Change streams need a replica set (a single-node one is enough).
type MongoBackend struct {
	col *mongo.Collection
	log *zap.Logger
}

func NewMongoBackend(col *mongo.Collection, log *zap.Logger) *MongoBackend {
	return &MongoBackend{col: col, log: log}
}

func (m *MongoBackend) Insert(ctx context.Context, issue models.Issue) (string, error) {
	issue.ID = primitive.NewObjectID().Hex()
	if _, err := m.col.InsertOne(ctx, issue); err != nil {
		return "", fmt.Errorf("insert issue: %w", err)
	}
	return issue.ID, nil
}

func (m *MongoBackend) UpdateStatus(ctx context.Context, id string, upd models.StatusUpdate) error {
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":         upd.Status,
		"resolutionNote": upd.ResolutionNote,
		"updatedAt":      upd.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update issue %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type changeEvent struct {
	OperationType string       `bson:"operationType"`
	FullDocument  models.Issue `bson:"fullDocument"`
}

// Subscribe opens the change stream before reading the snapshot so that no
// write between the two is missed; a change already in the snapshot is
// simply applied twice.
func (m *MongoBackend) Subscribe(ctx context.Context) (<-chan Event, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"operationType": bson.M{"$in": bson.A{"insert", "update", "replace"}}}}},
	}
	stream, err := m.col.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, fmt.Errorf("watch issues: %w", err)
	}

	cursor, err := m.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "reportedAt", Value: -1}}))
	if err != nil {
		_ = stream.Close(context.Background())
		return nil, fmt.Errorf("load issues: %w", err)
	}
	var snapshot []models.Issue
	if err := cursor.All(ctx, &snapshot); err != nil {
		_ = stream.Close(context.Background())
		return nil, fmt.Errorf("decode issues: %w", err)
	}

	ch := make(chan Event, 16)
	ch <- Event{Reset: true, Issues: snapshot}

	go func() {
		defer close(ch)
		defer stream.Close(context.Background())
		for stream.Next(ctx) {
			var ev changeEvent
			if err := stream.Decode(&ev); err != nil {
				m.log.Error("decode change event", zap.Error(err))
				continue
			}
			if ev.FullDocument.ID == "" {
				continue
			}
			select {
			case ch <- Event{Issues: []models.Issue{ev.FullDocument}}:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			m.log.Error("issue change stream stopped", zap.Error(err))
		}
	}()
	return ch, nil
}
