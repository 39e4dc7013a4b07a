// Package store persists analysis results to MongoDB. The sink is
// optional: runs work entirely in memory unless a store is configured, and
// the document shapes reuse the bson-tagged result types from pkg/una.
package store

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/urbanweave/streetscope/pkg/errors"
	"github.com/urbanweave/streetscope/pkg/una"
)

// Collection names within the configured database.
const (
	collAccessibility = "accessibility"
	collBetweenness   = "betweenness"
	collServiceAreas  = "service_areas"
)

// Config configures the MongoDB connection.
type Config struct {
	// URI is the MongoDB connection string.
	URI string

	// Database is the database name. Defaults to "streetscope".
	Database string

	// ConnectTimeout bounds the initial connection. Defaults to 10s.
	ConnectTimeout time.Duration
}

// Store is a MongoDB-backed result sink.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect opens the MongoDB connection and verifies it with a ping.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "store URI cannot be empty")
	}
	if cfg.Database == "" {
		cfg.Database = "streetscope"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, err, "connect to %s", cfg.URI)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, err, "ping %s", cfg.URI)
	}
	return &Store{client: client, db: client.Database(cfg.Database)}, nil
}

// Close releases the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// accessibilityDoc is one stored accessibility row.
type accessibilityDoc struct {
	RunID            string    `bson:"run_id"`
	CreatedAt        time.Time `bson:"created_at"`
	una.OriginAccess `bson:",inline"`
}

// SaveAccessibility stores one accessibility result under a run ID, one
// document per origin.
func (s *Store) SaveAccessibility(ctx context.Context, runID string, res *una.AccessibilityResult) error {
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(res.Rows))
	for _, origin := range sortedKeys(res.Rows) {
		docs = append(docs, accessibilityDoc{
			RunID:        runID,
			CreatedAt:    now,
			OriginAccess: *res.Rows[origin],
		})
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := s.db.Collection(collAccessibility).InsertMany(ctx, docs); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "insert accessibility rows for run %s", runID)
	}
	return nil
}

// betweennessDoc is one stored street-edge flow value.
type betweennessDoc struct {
	RunID     string    `bson:"run_id"`
	CreatedAt time.Time `bson:"created_at"`
	Edge      int       `bson:"edge"`
	Flow      float64   `bson:"flow"`
}

// SaveBetweenness stores one betweenness result under a run ID, one
// document per street edge.
func (s *Store) SaveBetweenness(ctx context.Context, runID string, res *una.BetweennessResult) error {
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(res.Flow))
	for _, edge := range sortedKeys(res.Flow) {
		docs = append(docs, betweennessDoc{
			RunID:     runID,
			CreatedAt: now,
			Edge:      edge,
			Flow:      res.Flow[edge],
		})
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := s.db.Collection(collBetweenness).InsertMany(ctx, docs); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "insert betweenness rows for run %s", runID)
	}
	return nil
}

// serviceAreaDoc is one stored service area.
type serviceAreaDoc struct {
	RunID                 string    `bson:"run_id"`
	CreatedAt             time.Time `bson:"created_at"`
	una.OriginServiceArea `bson:",inline"`
}

// SaveServiceAreas stores per-origin service areas under a run ID.
func (s *Store) SaveServiceAreas(ctx context.Context, runID string, areas map[int]*una.OriginServiceArea) error {
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(areas))
	for _, origin := range sortedKeys(areas) {
		docs = append(docs, serviceAreaDoc{
			RunID:             runID,
			CreatedAt:         now,
			OriginServiceArea: *areas[origin],
		})
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := s.db.Collection(collServiceAreas).InsertMany(ctx, docs); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "insert service areas for run %s", runID)
	}
	return nil
}

// sortedKeys returns the map's int keys in ascending order so document
// insertion order is deterministic.
func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
