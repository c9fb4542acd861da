package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"blocknotes/internal/domain"
)

const mongoCollection = "blocks"

// mongoDoc is the stored shape. Data stays a JSON string so the document
// mirrors the SQL row and decodes through the same path.
type mongoDoc struct {
	ID        string    `bson:"_id"`
	Type      string    `bson:"type"`
	DataJSON  string    `bson:"data_json"`
	CreatedAt time.Time `bson:"created_at,omitempty"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d mongoDoc) unit() (domain.Unit, error) {
	return domain.UnitFromFields(d.ID, domain.BlockType(d.Type), d.DataJSON)
}

// MongoStore implements domain.UnitRepository over a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// OpenMongo connects to uri and verifies the connection.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		return nil, errors.New("open mongo: database name required")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return NewMongoStore(client, database), nil
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(mongoCollection),
	}
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Put(ctx context.Context, u domain.Unit) (domain.Unit, error) {
	if err := checkUnit(u); err != nil {
		return domain.Unit{}, err
	}
	data, err := u.DataJSON()
	if err != nil {
		return domain.Unit{}, err
	}
	_, err = s.coll.UpdateOne(ctx, bson.M{"_id": u.ID}, upsertUpdate(u, data, time.Now().UTC()),
		options.UpdateOne().SetUpsert(true))
	if err != nil {
		return domain.Unit{}, fmt.Errorf("put block %s: %w", u.ID, err)
	}
	return u.Clone(), nil
}

// upsertUpdate sets the mutable fields and stamps created_at only on insert.
func upsertUpdate(u domain.Unit, data string, now time.Time) bson.M {
	return bson.M{
		"$set": bson.M{
			"type":       string(u.Type),
			"data_json":  data,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
}

func (s *MongoStore) Get(ctx context.Context, id string) (domain.Unit, error) {
	var doc mongoDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Unit{}, notFound(id)
	}
	if err != nil {
		return domain.Unit{}, fmt.Errorf("get block: %w", err)
	}
	return doc.unit()
}

func (s *MongoStore) List(ctx context.Context) ([]domain.Unit, error) {
	cur, err := s.coll.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	var docs []mongoDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	units := make([]domain.Unit, 0, len(docs))
	for _, d := range docs {
		u, err := d.unit()
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	if res.DeletedCount == 0 {
		return notFound(id)
	}
	return nil
}
