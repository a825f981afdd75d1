package movies

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// disconnectTimeout bounds Close so a dead server cannot hang shutdown.
const disconnectTimeout = 5 * time.Second

// MongoConfig holds connection parameters for the MongoDB source.
type MongoConfig struct {
	// URI is the MongoDB connection string.
	URI string
	// Database is the database name (e.g. "sample_mflix").
	Database string
	// Collection is the collection name (e.g. "embedded_movies").
	Collection string
}

// MongoSource implements Source over a MongoDB collection.
type MongoSource struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// movieDoc is the projected shape of a source document. _id is decoded raw
// because sample datasets mix ObjectID and string keys.
type movieDoc struct {
	ID    bson.RawValue `bson:"_id"`
	Title string        `bson:"title"`
	Plot  string        `bson:"plot"`
}

// NewMongoSource connects to MongoDB. The driver connects lazily, so an
// unreachable server surfaces on the first Fetch or Ping rather than here.
func NewMongoSource(ctx context.Context, cfg MongoConfig) (*MongoSource, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo: uri must be set")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	return &MongoSource{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Fetch runs an unfiltered find limited to limit documents, projecting only
// the fields moviechat uses.
func (m *MongoSource) Fetch(ctx context.Context, limit int) ([]Movie, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetProjection(bson.D{{Key: "_id", Value: 1}, {Key: "title", Value: 1}, {Key: "plot", Value: 1}})

	cur, err := m.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: find: %w", err)
	}
	defer cur.Close(ctx)

	var out []Movie
	for cur.Next(ctx) {
		var doc movieDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decode: %w", err)
		}
		out = append(out, Movie{ID: rawID(doc.ID), Title: doc.Title, Plot: doc.Plot})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo: cursor: %w", err)
	}
	return out, nil
}

// rawID renders a document key as a string.
func rawID(v bson.RawValue) string {
	switch v.Type {
	case bsontype.ObjectID:
		return v.ObjectID().Hex()
	case bsontype.String:
		return v.StringValue()
	default:
		return v.String()
	}
}

// Ping checks that the primary is reachable.
func (m *MongoSource) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo: ping: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (m *MongoSource) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo: disconnect: %w", err)
	}
	return nil
}
