// Package mongo stores credential blobs in a MongoDB collection, one document
// per id. Only ciphertext blobs leave the host.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/ericfisherdev/passhost/internal/domain/model"
	"github.com/ericfisherdev/passhost/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SecureStorage = (*Store)(nil)

const pingTimeout = 5 * time.Second

// Store is the MongoDB implementation of the SecureStorage port.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type secretDoc struct {
	ID   string `bson:"_id"`
	Data []byte `bson:"data"`
}

// NewStore connects to uri and verifies the server answers before returning.
func NewStore(ctx context.Context, uri, database, collection string) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: mongo uri is empty", model.ErrStorage)
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: mongo connect: %w", model.ErrStorage, err)
	}

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: mongo ping: %w", model.ErrStorage, err)
	}

	return &Store{client: client, coll: client.Database(database).Collection(collection)}, nil
}

// Save upserts the blob for id.
func (s *Store) Save(ctx context.Context, id string, data []byte) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", model.ErrStorage)
	}
	if data == nil {
		data = []byte{}
	}

	now := time.Now().UTC()
	_, err := s.coll.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$set":         bson.M{"data": data, "updatedAt": now},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%w: mongo save: %w", model.ErrStorage, err)
	}
	return nil
}

// Load returns the blob stored for id.
func (s *Store) Load(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", model.ErrStorage)
	}

	var doc secretDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("mongo load: %w", model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: mongo load: %w", model.ErrStorage, err)
	}
	if doc.Data == nil {
		doc.Data = []byte{}
	}
	return doc.Data, nil
}

// Delete removes the document for id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", model.ErrStorage)
	}

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("%w: mongo delete: %w", model.ErrStorage, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("mongo delete: %w", model.ErrNotFound)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
