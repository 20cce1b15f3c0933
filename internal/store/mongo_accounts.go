package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/layout-library/backend/internal/apperr"
	"github.com/ayush/layout-library/backend/internal/models"
)

type accountDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Username  string             `bson:"username"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password,omitempty"`
	Role      string             `bson:"role"`
	IsActive  bool               `bson:"isActive"`
	LastLogin *time.Time         `bson:"lastLogin"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d *accountDoc) model() *models.Account {
	return &models.Account{
		ID:        d.ID.Hex(),
		Username:  d.Username,
		Email:     d.Email,
		Password:  d.Password,
		Role:      models.Role(d.Role),
		IsActive:  d.IsActive,
		LastLogin: d.LastLogin,
		CreatedAt: d.CreatedAt,
	}
}

var withoutPassword = bson.M{"password": 0}

// MongoAccountStore keeps accounts in the "users" collection.
type MongoAccountStore struct {
	col *mongo.Collection
}

func NewMongoAccountStore(db *mongo.Database) *MongoAccountStore {
	return &MongoAccountStore{col: db.Collection("users")}
}

// Migrate creates the unique username and email indexes.
func (s *MongoAccountStore) Migrate(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("mongo user indexes: %w", err)
	}
	return nil
}

func (s *MongoAccountStore) Create(ctx context.Context, acc *models.Account) error {
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now()
	}
	doc := accountDoc{
		Username:  acc.Username,
		Email:     acc.Email,
		Password:  acc.Password,
		Role:      string(acc.Role),
		IsActive:  acc.IsActive,
		LastLogin: acc.LastLogin,
		CreatedAt: acc.CreatedAt,
	}
	res, err := s.col.InsertOne(ctx, doc)
	if err != nil {
		return mongoErr(err)
	}
	acc.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (s *MongoAccountStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid}, options.FindOne().SetProjection(withoutPassword))
}

func (s *MongoAccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"email": email}, options.FindOne())
}

func (s *MongoAccountStore) FindByRole(ctx context.Context, role models.Role) (*models.Account, error) {
	opts := options.FindOne().
		SetProjection(withoutPassword).
		SetSort(bson.D{{Key: "createdAt", Value: 1}})
	return s.findOne(ctx, bson.M{"role": string(role)}, opts)
}

func (s *MongoAccountStore) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	n, err := s.col.CountDocuments(ctx,
		bson.M{"$or": bson.A{bson.M{"email": email}, bson.M{"username": username}}},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("mongo count: %w", err)
	}
	return n > 0, nil
}

func (s *MongoAccountStore) List(ctx context.Context) ([]models.Account, error) {
	opts := options.Find().
		SetProjection(withoutPassword).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	defer cur.Close(ctx)

	var docs []accountDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode: %w", err)
	}
	accounts := make([]models.Account, 0, len(docs))
	for i := range docs {
		accounts = append(accounts, *docs[i].model())
	}
	return accounts, nil
}

func (s *MongoAccountStore) Update(ctx context.Context, id string, upd models.AccountUpdate) (*models.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	set := bson.M{}
	if upd.Username != nil {
		set["username"] = *upd.Username
	}
	if upd.Email != nil {
		set["email"] = *upd.Email
	}
	if upd.Password != nil {
		set["password"] = *upd.Password
	}
	if upd.Role != nil {
		set["role"] = string(*upd.Role)
	}
	if upd.IsActive != nil {
		set["isActive"] = *upd.IsActive
	}
	if len(set) == 0 {
		return s.FindByID(ctx, id)
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutPassword)
	var doc accountDoc
	if err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		return nil, mongoErr(err)
	}
	return doc.model(), nil
}

func (s *MongoAccountStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.ErrNotFound
	}
	res, err := s.col.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"lastLogin": at}})
	if err != nil {
		return fmt.Errorf("mongo update: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *MongoAccountStore) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*models.Account, error) {
	var doc accountDoc
	if err := s.col.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		return nil, mongoErr(err)
	}
	return doc.model(), nil
}
