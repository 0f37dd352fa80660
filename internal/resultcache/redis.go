// Package resultcache persists pruning results keyed by weight-matrix
// fingerprint and pruning parameters, so repeated runs over the same
// checkpoint are free.
package resultcache

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/objones25/winnow/internal/monitor"
	"github.com/objones25/winnow/internal/prune"
)

var (
	ErrEmptyKey      = fmt.Errorf("key cannot be empty")
	ErrNilResult     = fmt.Errorf("result cannot be nil")
	ErrCompression   = fmt.Errorf("compression failed")
	ErrDecompression = fmt.Errorf("decompression failed")
)

const (
	defaultCompressionThreshold = 1024 // Compress payloads larger than 1KB
	defaultMaxRetries           = 3
	defaultPoolSize             = 10
	defaultMinIdleConns         = 5
)

// Config holds Redis cache configuration
type Config struct {
	Host                 string
	Port                 string
	Password             string
	DB                   int
	DefaultTTL           time.Duration
	PoolSize             int
	MinIdleConns         int
	MaxRetries           int
	CompressionThreshold int
}

// Redis caches pruning results in a Redis instance.
type Redis struct {
	client               *redis.Client
	defaultTTL           time.Duration
	compressionThreshold int
}

// Key derives the cache key for one matrix/parameter combination.
func Key(fingerprint string, cfg prune.Config) string {
	return fmt.Sprintf("winnow:result:%s:%d:%d", fingerprint, cfg.TopK, cfg.DropNumber)
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(cfg Config) (*Redis, error) {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultPoolSize
	}
	if cfg.MinIdleConns <= 0 {
		cfg.MinIdleConns = defaultMinIdleConns
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.CompressionThreshold <= 0 {
		cfg.CompressionThreshold = defaultCompressionThreshold
	}
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = 24 * time.Hour
	}

	if cfg.Host == "" {
		return nil, fmt.Errorf("host cannot be empty")
	}
	if cfg.Port == "" {
		return nil, fmt.Errorf("port cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Host + ":" + cfg.Port,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{
		client:               client,
		defaultTTL:           cfg.DefaultTTL,
		compressionThreshold: cfg.CompressionThreshold,
	}, nil
}

// Set stores a pruning result under the given matrix fingerprint.
func (r *Redis) Set(ctx context.Context, fingerprint string, cfg prune.Config, res *prune.Result) error {
	start := time.Now()
	defer func() {
		monitor.CacheLatency.WithLabelValues("set").Observe(time.Since(start).Seconds())
	}()

	if fingerprint == "" {
		return ErrEmptyKey
	}
	if res == nil {
		return ErrNilResult
	}

	data, err := json.Marshal(res)
	if err != nil {
		monitor.CacheOperations.WithLabelValues("set", "error").Inc()
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	key := Key(fingerprint, cfg)
	if len(data) > r.compressionThreshold {
		compressed, err := compress(data)
		if err != nil {
			monitor.CacheOperations.WithLabelValues("set", "error").Inc()
			return err
		}
		data = compressed
		key = "compressed:" + key
	}

	if err := r.client.Set(ctx, key, data, r.defaultTTL).Err(); err != nil {
		monitor.CacheOperations.WithLabelValues("set", "error").Inc()
		return err
	}
	monitor.CacheOperations.WithLabelValues("set", "success").Inc()
	return nil
}

// Get retrieves a cached pruning result. A miss returns (nil, nil).
func (r *Redis) Get(ctx context.Context, fingerprint string, cfg prune.Config) (*prune.Result, error) {
	start := time.Now()
	defer func() {
		monitor.CacheLatency.WithLabelValues("get").Observe(time.Since(start).Seconds())
	}()

	if fingerprint == "" {
		return nil, ErrEmptyKey
	}

	key := Key(fingerprint, cfg)

	// Compressed variant first, then plain.
	data, err := r.client.Get(ctx, "compressed:"+key).Bytes()
	if err == nil {
		data, err = decompress(data)
		if err != nil {
			monitor.CacheOperations.WithLabelValues("get", "error").Inc()
			return nil, err
		}
	} else {
		data, err = r.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			monitor.CacheOperations.WithLabelValues("get", "miss").Inc()
			return nil, nil
		}
		if err != nil {
			monitor.CacheOperations.WithLabelValues("get", "error").Inc()
			return nil, err
		}
	}

	var res prune.Result
	if err := json.Unmarshal(data, &res); err != nil {
		monitor.CacheOperations.WithLabelValues("get", "error").Inc()
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	monitor.CacheOperations.WithLabelValues("get", "hit").Inc()
	return &res, nil
}

// Delete removes a cached result.
func (r *Redis) Delete(ctx context.Context, fingerprint string, cfg prune.Config) error {
	if fingerprint == "" {
		return ErrEmptyKey
	}
	key := Key(fingerprint, cfg)
	return r.client.Del(ctx, key, "compressed:"+key).Err()
}

// Close releases the Redis connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

// compress compresses data using gzip
func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)

	if _, err := gz.Write(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}
	return buf.Bytes(), nil
}

// decompress decompresses gzipped data
func decompress(data []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	defer gz.Close()

	decompressed, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	return decompressed, nil
}
