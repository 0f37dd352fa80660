// Package export pushes reduced-dimension embeddings into a vector store
// so downstream retrieval benchmarks can compare them against the full
// model.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/rs/zerolog/log"

	"github.com/objones25/winnow/internal/monitor"
)

const (
	defaultBatchSize = 2000
	defaultTimeout   = 30 * time.Second
	idMaxLength      = "256"
	ivfNlist         = 1024
)

// Config holds Milvus export configuration
type Config struct {
	Host           string
	Port           int
	CollectionName string
	Dimension      int // reduced embedding width
	BatchSize      int
}

// Milvus exports vectors into a Milvus collection.
type Milvus struct {
	conn       client.Client
	collection string
	dimension  int
	batchSize  int
}

// NewMilvus connects to Milvus and ensures the target collection exists
// with the reduced dimensionality.
func NewMilvus(ctx context.Context, cfg Config) (*Milvus, error) {
	if cfg.CollectionName == "" {
		return nil, fmt.Errorf("collection name cannot be empty")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", cfg.Dimension)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	connCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	conn, err := client.NewGrpcClient(connCtx, fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus: %w", err)
	}

	m := &Milvus{
		conn:       conn,
		collection: cfg.CollectionName,
		dimension:  cfg.Dimension,
		batchSize:  cfg.BatchSize,
	}
	if err := m.ensureCollection(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return m, nil
}

func (m *Milvus) ensureCollection(ctx context.Context) error {
	exists, err := m.conn.HasCollection(ctx, m.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.collection,
		Description:    "Reduced projection embeddings",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				TypeParams: map[string]string{
					"max_length": idMaxLength,
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.dimension),
				},
			},
		},
	}

	if err := m.conn.CreateCollection(ctx, schema, 2); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.IP, ivfNlist)
	if err != nil {
		return fmt.Errorf("failed to build index definition: %w", err)
	}
	if err := m.conn.CreateIndex(ctx, m.collection, "vector", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	log.Info().Str("collection", m.collection).Int("dim", m.dimension).Msg("created Milvus collection")
	return nil
}

// Export inserts the given vectors in batches and flushes the collection.
// ids and vectors must align; every vector must match the collection
// dimension.
func (m *Milvus) Export(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != m.dimension {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), m.dimension)
		}
	}

	for start := 0; start < len(ids); start += m.batchSize {
		end := start + m.batchSize
		if end > len(ids) {
			end = len(ids)
		}

		columns := []entity.Column{
			entity.NewColumnVarChar("id", ids[start:end]),
			entity.NewColumnFloatVector("vector", m.dimension, vectors[start:end]),
		}
		if _, err := m.conn.Insert(ctx, m.collection, "", columns...); err != nil {
			monitor.ExportBatches.WithLabelValues("error").Inc()
			return fmt.Errorf("failed to insert batch [%d:%d]: %w", start, end, err)
		}
		monitor.ExportBatches.WithLabelValues("success").Inc()
		monitor.ExportedVectors.Add(float64(end - start))
	}

	if err := m.conn.Flush(ctx, m.collection, false); err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}

	log.Debug().Int("count", len(ids)).Str("collection", m.collection).Msg("exported reduced vectors")
	return nil
}

// Close releases the Milvus connection.
func (m *Milvus) Close() error {
	return m.conn.Close()
}
