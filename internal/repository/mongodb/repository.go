package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/guardops/internal/domain/models"
	"github.com/mamadbah2/guardops/internal/repository"
)

const snapshotCollection = "monthly_snapshots"

// SnapshotRepository stores the monthly ledger snapshots.
type SnapshotRepository interface {
	SaveMonthlySnapshot(ctx context.Context, snapshot models.MonthlySnapshot) error
}

// MongoDBRepository keeps one collection per table, keyed by the record id.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{client: client, dbName: dbName}, nil
}

func (r *MongoDBRepository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

// List returns every document of the table's collection.
func (r *MongoDBRepository) List(ctx context.Context, table repository.Table) ([]repository.Record, error) {
	cursor, err := r.collection(string(table)).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer cursor.Close(ctx)

	var out []repository.Record
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s document: %w", table, err)
		}
		out = append(out, fromDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", table, err)
	}
	return out, nil
}

// Upsert replaces the document with the same id, inserting it when absent.
func (r *MongoDBRepository) Upsert(ctx context.Context, table repository.Table, record repository.Record) error {
	id := record.ID()
	if id == "" {
		return fmt.Errorf("upsert into %s: %w", table, repository.ErrMissingID)
	}

	doc := toDocument(record)
	_, err := r.collection(string(table)).ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", table, err)
	}
	return nil
}

// toDocument keys the record by its id.
func toDocument(record repository.Record) bson.M {
	doc := bson.M{"_id": record.ID()}
	for k, v := range record {
		doc[k] = v
	}
	return doc
}

// fromDocument drops the mongo key and turns nested bson values back into
// plain maps and slices.
func fromDocument(doc bson.M) repository.Record {
	delete(doc, "_id")
	rec := make(repository.Record, len(doc))
	for k, v := range doc {
		rec[k] = plain(v)
	}
	return rec
}

func plain(v any) any {
	switch val := v.(type) {
	case bson.M:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = plain(inner)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(val))
		for _, e := range val {
			out[e.Key] = plain(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = plain(inner)
		}
		return out
	default:
		return v
	}
}

// Delete removes the document with the given id.
func (r *MongoDBRepository) Delete(ctx context.Context, table repository.Table, id string) error {
	if _, err := r.collection(string(table)).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// SaveMonthlySnapshot saves a monthly snapshot to the database.
func (r *MongoDBRepository) SaveMonthlySnapshot(ctx context.Context, snapshot models.MonthlySnapshot) error {
	_, err := r.collection(snapshotCollection).InsertOne(ctx, snapshot)
	if err != nil {
		return fmt.Errorf("failed to insert monthly snapshot: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
