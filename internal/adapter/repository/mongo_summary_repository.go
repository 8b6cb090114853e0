package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/datatypes"

	"github.com/johnquangdev/meeting-digest/internal/domain/entities"
	"github.com/johnquangdev/meeting-digest/internal/domain/repositories"
)

// summaryDocument is the stored shape of a summary in MongoDB
type summaryDocument struct {
	ID                 string                `bson:"_id"`
	PublicID           string                `bson:"public_id"`
	OriginalTranscript string                `bson:"original_transcript"`
	Overview           string                `bson:"overview"`
	KeyDecisions       []string              `bson:"key_decisions"`
	ActionItems        []entities.ActionItem `bson:"action_items"`
	CreatedAt          time.Time             `bson:"created_at"`
}

func newSummaryDocument(s *entities.MeetingSummary) summaryDocument {
	return summaryDocument{
		ID:                 s.ID,
		PublicID:           s.PublicID,
		OriginalTranscript: s.OriginalTranscript,
		Overview:           s.Overview,
		KeyDecisions:       append([]string{}, s.KeyDecisions...),
		ActionItems:        append([]entities.ActionItem{}, s.ActionItems...),
		CreatedAt:          s.CreatedAt,
	}
}

func (d summaryDocument) toEntity() *entities.MeetingSummary {
	return &entities.MeetingSummary{
		ID:                 d.ID,
		PublicID:           d.PublicID,
		OriginalTranscript: d.OriginalTranscript,
		Overview:           d.Overview,
		KeyDecisions:       append(datatypes.JSONSlice[string]{}, d.KeyDecisions...),
		ActionItems:        append(datatypes.JSONSlice[entities.ActionItem]{}, d.ActionItems...),
		CreatedAt:          d.CreatedAt,
	}
}

// mongoSummaryRepository implements SummaryRepository on a MongoDB collection
type mongoSummaryRepository struct {
	collection *mongo.Collection
}

// NewMongoSummaryRepository creates a summary repository backed by a collection
func NewMongoSummaryRepository(collection *mongo.Collection) repositories.SummaryRepository {
	return &mongoSummaryRepository{collection: collection}
}

// EnsureSummaryIndexes creates the public_id unique index and the listing index
func EnsureSummaryIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "public_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("public_id_unique"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("created_at_desc"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create summary indexes: %w", err)
	}
	return nil
}

func (r *mongoSummaryRepository) Save(ctx context.Context, s *entities.MeetingSummary) error {
	if s.ID == "" {
		s.ID = primitive.NewObjectID().Hex()
	}
	if _, err := r.collection.InsertOne(ctx, newSummaryDocument(s)); err != nil {
		return fmt.Errorf("failed to insert summary: %w", err)
	}
	return nil
}

func (r *mongoSummaryRepository) FindAll(ctx context.Context) ([]*entities.MeetingSummary, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer cursor.Close(ctx)

	summaries := make([]*entities.MeetingSummary, 0)
	for cursor.Next(ctx) {
		var doc summaryDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode summary: %w", err)
		}
		summaries = append(summaries, doc.toEntity())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return summaries, nil
}

func (r *mongoSummaryRepository) FindByID(ctx context.Context, id string) (*entities.MeetingSummary, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoSummaryRepository) FindByPublicID(ctx context.Context, publicID string) (*entities.MeetingSummary, error) {
	return r.findOne(ctx, bson.M{"public_id": publicID})
}

func (r *mongoSummaryRepository) findOne(ctx context.Context, filter bson.M) (*entities.MeetingSummary, error) {
	var doc summaryDocument
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find summary: %w", err)
	}
	return doc.toEntity(), nil
}
