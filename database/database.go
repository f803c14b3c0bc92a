// database/database.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"assethub/config"
)

var Client *mongo.Client

func Connect() error {
	clientOptions := options.Client().
		ApplyURI(config.MongoURI).
		SetConnectTimeout(20 * time.Second).
		SetServerSelectionTimeout(15 * time.Second).
		SetSocketTimeout(20 * time.Second).
		SetMaxPoolSize(50)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	Client, err = mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to create MongoDB client: %w", err)
	}

	// Verify actual connection with ping
	ctxPing, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelPing()

	if err = Client.Ping(ctxPing, readpref.Primary()); err != nil {
		_ = Client.Disconnect(context.Background()) // cleanup on failure
		return fmt.Errorf("failed to ping MongoDB (connection/auth/network issue): %w", err)
	}

	logrus.Info("Successfully connected to MongoDB")
	return nil
}

// DB returns the configured application database.
func DB() *mongo.Database {
	return Client.Database(config.DatabaseName)
}

// EnsureIndexes creates the indexes correctness depends on. The unique
// compound index on affiliations is what makes insert-if-absent safe under
// concurrent first-time approvals for the same (employee, HR) pair.
func EnsureIndexes(ctx context.Context) error {
	db := DB()

	_, err := db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating users.email index: %w", err)
	}

	_, err = db.Collection("affiliations").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "employeeEmail", Value: 1}, {Key: "hrEmail", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating affiliations pair index: %w", err)
	}

	_, err = db.Collection("requests").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "hrEmail", Value: 1}, {Key: "requestStatus", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("creating requests index: %w", err)
	}

	_, err = db.Collection("assets").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "hrEmail", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("creating assets index: %w", err)
	}

	_, err = db.Collection("assignments").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "requestId", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("creating assignments index: %w", err)
	}

	logrus.Info("MongoDB indexes ensured")
	return nil
}

func Disconnect() {
	if Client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := Client.Disconnect(ctx); err != nil {
		logrus.Warnf("MongoDB disconnect warning: %v", err)
	}
}
