package persistence

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// The driver exposes concrete types only, so without a live server we can
// just assert the accessor hands back the database it was built with.
func TestMongoDB_Database(t *testing.T) {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://localhost:27017"))
	assert.NoError(t, err)
	database := client.Database("snapshots_test")

	mdb := &MongoDB{
		logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
		client:   client,
		database: database,
	}

	assert.Equal(t, database, mdb.Database())
}
