package repository

import (
	"context"
	"time"

	"github.com/codespacehq/codespace-backend/internal/codespace"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo implements a MongoDB-backed repository for codespaces. Documents
// are keyed by the application-level "uuid" field rather than ObjectIDs so
// identifiers stay opaque strings across stores.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	// ensure a unique index on "uuid" for fast lookups
	idxModel := mongo.IndexModel{Keys: bson.D{{Key: "uuid", Value: 1}}, Options: options.Index().SetUnique(true)}
	col.Indexes().CreateOne(context.Background(), idxModel)
	return &MongoRepo{col: col}
}

func (m *MongoRepo) Create(ctx context.Context, cs *codespace.Codespace) error {
	if cs.UUID == "" {
		cs.UUID = codespace.NewUUID()
	}
	now := time.Now().UTC()
	cs.CreatedAt = now
	cs.UpdatedAt = now
	_, err := m.col.InsertOne(ctx, cs)
	return err
}

func (m *MongoRepo) Get(ctx context.Context, uuid string) (*codespace.Codespace, error) {
	var cs codespace.Codespace
	err := m.col.FindOne(ctx, bson.M{"uuid": uuid}).Decode(&cs)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cs, nil
}

func (m *MongoRepo) ListByOwner(ctx context.Context, createdBy string) ([]*codespace.Codespace, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := m.col.Find(ctx, bson.M{"createdBy": createdBy}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*codespace.Codespace{}
	for cur.Next(ctx) {
		var cs codespace.Codespace
		if err := cur.Decode(&cs); err != nil {
			return nil, err
		}
		out = append(out, &cs)
	}
	return out, cur.Err()
}

// bsonKey maps domain field names onto the Mongo column names.
func bsonKey(field string) string {
	switch field {
	case codespace.FieldCreatedBy:
		return "createdBy"
	case codespace.FieldCreatedAt:
		return "createdAt"
	default:
		return field
	}
}

func (m *MongoRepo) Update(ctx context.Context, uuid string, fields map[string]interface{}) error {
	set := bson.M{"updatedAt": time.Now().UTC()}
	for f, v := range fields {
		set[bsonKey(f)] = v
	}
	res, err := m.col.UpdateOne(ctx, bson.M{"uuid": uuid}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) Delete(ctx context.Context, uuid string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"uuid": uuid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
