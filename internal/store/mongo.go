package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/layout-library/backend/internal/apperr"
	"github.com/ayush/layout-library/backend/internal/models"
)

// MongoLayoutStore handles layout CRUD in MongoDB.
type MongoLayoutStore struct {
	col *mongo.Collection
}

func NewMongoLayoutStore(db *mongo.Database) *MongoLayoutStore {
	return &MongoLayoutStore{col: db.Collection("layouts")}
}

// Migrate creates the indexes used by the listing queries.
func (s *MongoLayoutStore) Migrate(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "archived", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "archived", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo layout indexes: %w", err)
	}
	return nil
}

func (s *MongoLayoutStore) Insert(ctx context.Context, l *models.Layout) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	if l.TechStack == nil {
		l.TechStack = []string{}
	}
	res, err := s.col.InsertOne(ctx, l)
	if err != nil {
		return fmt.Errorf("mongo insert: %w", err)
	}
	l.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *MongoLayoutStore) List(ctx context.Context, f models.LayoutFilter) ([]models.Layout, error) {
	query := bson.M{"archived": f.Archived}
	if f.Type != "" {
		query["type"] = f.Type
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.col.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	defer cur.Close(ctx)

	var layouts []models.Layout
	if err := cur.All(ctx, &layouts); err != nil {
		return nil, fmt.Errorf("mongo decode: %w", err)
	}
	return layouts, nil
}

func (s *MongoLayoutStore) GetByID(ctx context.Context, id string) (*models.Layout, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	var l models.Layout
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&l); err != nil {
		return nil, mongoErr(err)
	}
	return &l, nil
}

func (s *MongoLayoutStore) Update(ctx context.Context, id string, upd models.LayoutUpdate) (*models.Layout, error) {
	techStack := upd.TechStack
	if techStack == nil {
		techStack = []string{}
	}
	set := bson.M{
		"title":       upd.Title,
		"type":        upd.Type,
		"description": upd.Description,
		"category":    upd.Category,
		"techStack":   techStack,
	}
	if upd.Thumbnail != nil {
		set["thumbnail"] = *upd.Thumbnail
	}
	if upd.File != nil {
		set["file"] = upd.File
	}
	return s.findAndSet(ctx, id, set)
}

func (s *MongoLayoutStore) SetArchived(ctx context.Context, id string, archived bool) (*models.Layout, error) {
	return s.findAndSet(ctx, id, bson.M{"archived": archived})
}

func (s *MongoLayoutStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.ErrNotFound
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// AssignMissingOwner sets createdBy on every layout that lacks it and
// returns the number of modified documents.
func (s *MongoLayoutStore) AssignMissingOwner(ctx context.Context, ownerID string) (int64, error) {
	res, err := s.col.UpdateMany(ctx,
		bson.M{"$or": bson.A{
			bson.M{"createdBy": bson.M{"$exists": false}},
			bson.M{"createdBy": ""},
			bson.M{"createdBy": nil},
		}},
		bson.M{"$set": bson.M{"createdBy": ownerID}},
	)
	if err != nil {
		return 0, fmt.Errorf("mongo update many: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *MongoLayoutStore) findAndSet(ctx context.Context, id string, set bson.M) (*models.Layout, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var l models.Layout
	err = s.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&l)
	if err != nil {
		return nil, mongoErr(err)
	}
	return &l, nil
}

func mongoErr(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", apperr.ErrConflict, err)
	default:
		return fmt.Errorf("mongo: %w", err)
	}
}
