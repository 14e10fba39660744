// Package mongo binds the destination contract to a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/TFMV/stevedore/pkg/destinations"
	stevederrors "github.com/TFMV/stevedore/pkg/errors"
	"github.com/TFMV/stevedore/pkg/models"
)

const defaultConnectTimeout = 10 * time.Second

// Config describes a MongoDB destination.
type Config struct {
	// URI is the full connection string. When empty it is assembled from
	// Host and Port.
	URI        string
	Host       string
	Port       int
	Database   string
	Collection string
	// ConnectTimeout bounds connection and ping. Zero means 10s.
	ConnectTimeout time.Duration
}

func (c Config) uri() string {
	if c.URI != "" {
		return c.URI
	}
	return fmt.Sprintf("mongodb://%s:%d", c.Host, c.Port)
}

// Destination writes batches into one MongoDB collection.
type Destination struct {
	client     *mongo.Client
	collection *mongo.Collection
	database   string
	logger     zerolog.Logger
}

// Connect opens a client, pings the server, and returns a destination
// bound to the configured collection.
func Connect(ctx context.Context, cfg Config, logger zerolog.Logger) (*Destination, error) {
	if cfg.Database == "" || cfg.Collection == "" {
		return nil, stevederrors.New(stevederrors.CodeInvalidRequest, "database and collection are required")
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.uri()).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, stevederrors.Wrap(err, stevederrors.CodeConnectionFailed, "failed to connect to MongoDB")
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, stevederrors.Wrap(err, stevederrors.CodeConnectionFailed, "failed to ping MongoDB")
	}

	logger.Info().
		Str("database", cfg.Database).
		Str("collection", cfg.Collection).
		Msg("connected to MongoDB")

	return &Destination{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		database:   cfg.Database,
		logger:     logger,
	}, nil
}

// BulkInsert writes the rows with an unordered InsertMany so one rejected
// document does not stop the rest of the batch, and normalizes the
// driver's bulk-write error into the three-way result shape.
func (d *Destination) BulkInsert(ctx context.Context, rows []models.Row) models.BulkResult {
	docs := make([]interface{}, len(rows))
	for i, row := range rows {
		docs[i] = row
	}

	_, err := d.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return models.AllOk(len(rows))
	}
	return normalizeBulkError(err, len(rows))
}

// normalizeBulkError maps a driver error into a BulkResult. A
// BulkWriteException carries per-document detail and becomes a
// PartialFailure; anything else (connection loss, marshal fault) fails the
// batch as a whole.
func normalizeBulkError(err error, batchLen int) models.BulkResult {
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) && len(bwe.WriteErrors) > 0 {
		rowErrors := make([]models.RowError, 0, len(bwe.WriteErrors))
		for _, we := range bwe.WriteErrors {
			rowErrors = append(rowErrors, models.RowError{
				IndexInBatch: we.Index,
				Message:      we.Message,
			})
		}
		return models.PartialFailure(batchLen-len(rowErrors), rowErrors)
	}
	return models.TotalFailure(err.Error())
}

// collStats is the shape of the collStats command reply we care about.
type collStats struct {
	Count       int64   `bson:"count"`
	Size        int64   `bson:"size"`
	AvgObjSize  float64 `bson:"avgObjSize"`
	StorageSize int64   `bson:"storageSize"`
	NIndexes    int64   `bson:"nindexes"`
}

// Stats runs collStats against the bound collection.
func (d *Destination) Stats(ctx context.Context) (models.DestinationStats, error) {
	var stats collStats
	err := d.client.Database(d.database).
		RunCommand(ctx, bson.D{{Key: "collStats", Value: d.collection.Name()}}).
		Decode(&stats)
	if err != nil {
		return models.DestinationStats{}, stevederrors.Wrap(err, stevederrors.CodeConnectionFailed, "failed to get collection stats")
	}
	return models.DestinationStats{
		Count:         stats.Count,
		SizeBytes:     stats.Size,
		AvgRecordSize: stats.AvgObjSize,
		StorageSize:   stats.StorageSize,
		IndexCount:    stats.NIndexes,
	}, nil
}

// Constraints returns MongoDB's field-naming rules: no leading "$", no
// embedded ".".
func (d *Destination) Constraints() destinations.Constraints {
	return destinations.Constraints{
		ReservedNamePrefixes: []string{"$"},
		ReservedNameChars:    []string{"."},
	}
}

// Close disconnects the underlying client.
func (d *Destination) Close(ctx context.Context) error {
	if err := d.client.Disconnect(ctx); err != nil {
		return stevederrors.Wrap(err, stevederrors.CodeConnectionFailed, "failed to disconnect from MongoDB")
	}
	d.logger.Info().Msg("MongoDB connection closed")
	return nil
}
