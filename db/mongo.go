// Package db provides the MongoDB storage layer for the billing backend,
// holding panel users, recharge orders and gateway settings.
package db

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.vocdoni.io/dvote/log"
)

// MongoStorage uses an external MongoDB service for storing users, recharge
// orders and the persisted gateway settings.
type MongoStorage struct {
	client   *mongo.Client
	database string
	keysLock sync.RWMutex

	users    *mongo.Collection
	orders   *mongo.Collection
	settings *mongo.Collection
}

// New connects to the MongoDB server and initializes the collections and
// indexes. If the BILLING_MONGO_RESET_DB environment variable is set, the
// database documents are dropped and the indexes recreated.
func New(url, database string) (*MongoStorage, error) {
	ms := &MongoStorage{}
	if url == "" {
		return nil, fmt.Errorf("mongo URL is not defined")
	}
	if database == "" {
		return nil, fmt.Errorf("mongo database is not defined")
	}
	log.Infow("connecting to mongodb", "url", url, "database", database)
	// preparing connection
	opts := options.Client()
	opts.ApplyURI(url)
	opts.SetMaxConnecting(200)
	timeout := time.Second * 10
	opts.ConnectTimeout = &timeout
	// create a new client with the connection options
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to mongodb: %w", err)
	}
	// check if the connection is successful
	ctx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("cannot connect to mongodb: %w", err)
	}
	// init the collections
	ms.client = client
	ms.database = database
	ms.users = client.Database(database).Collection("users")
	ms.orders = client.Database(database).Collection("orders")
	ms.settings = client.Database(database).Collection("settings")
	// if reset flag is enabled, Reset drops the database documents and
	// recreates indexes, else just create the indexes
	if reset := os.Getenv("BILLING_MONGO_RESET_DB"); reset != "" {
		if err := ms.Reset(); err != nil {
			return nil, err
		}
	} else {
		if err := ms.createIndexes(); err != nil {
			return nil, err
		}
	}
	return ms, nil
}

func (ms *MongoStorage) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ms.client.Disconnect(ctx); err != nil {
		log.Warn(err)
	}
}

// Reset drops all the collections and recreates the indexes.
func (ms *MongoStorage) Reset() error {
	log.Infof("resetting database")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, collection := range []*mongo.Collection{ms.users, ms.orders, ms.settings} {
		if err := collection.Drop(ctx); err != nil {
			return err
		}
	}
	return ms.createIndexes()
}

// createIndexes creates the indexes for the collections, currently only the
// unique index over the user email. Orders and settings use their natural
// keys (trade reference and setting key) as _id.
func (ms *MongoStorage) createIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	userEmailIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := ms.users.Indexes().CreateOne(ctx, userEmailIndex); err != nil {
		return fmt.Errorf("failed to create users email index: %w", err)
	}
	orderUserIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}},
	}
	if _, err := ms.orders.Indexes().CreateOne(ctx, orderUserIndex); err != nil {
		return fmt.Errorf("failed to create orders user index: %w", err)
	}
	return nil
}
