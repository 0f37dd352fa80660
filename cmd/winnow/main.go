package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"

	"github.com/objones25/winnow/internal/export"
	"github.com/objones25/winnow/internal/prune"
	"github.com/objones25/winnow/internal/resultcache"
	"github.com/objones25/winnow/internal/validate"
	"github.com/objones25/winnow/internal/weights"
)

// envConfig holds optional infrastructure settings read from the
// environment (or a .env file next to the binary).
type envConfig struct {
	RedisHost        string
	RedisPort        string
	MilvusHost       string
	MilvusPort       int
	MilvusCollection string
}

func loadEnv() envConfig {
	// A missing .env file is fine, plain environment variables still apply.
	_ = godotenv.Load()

	cfg := envConfig{
		RedisHost:        os.Getenv("REDIS_HOST"),
		RedisPort:        os.Getenv("REDIS_PORT"),
		MilvusHost:       os.Getenv("MILVUS_HOST"),
		MilvusCollection: os.Getenv("MILVUS_COLLECTION"),
	}
	if cfg.MilvusCollection == "" {
		cfg.MilvusCollection = "winnow_reduced"
	}
	if p := os.Getenv("MILVUS_PORT"); p != "" {
		if port, err := strconv.Atoi(p); err == nil {
			cfg.MilvusPort = port
		}
	}
	if cfg.MilvusPort == 0 {
		cfg.MilvusPort = 19530
	}
	return cfg
}

func main() {
	var (
		weightsPath = flag.String("weights", "", "safetensors file holding the projection weights")
		tensorName  = flag.String("tensor", "linear.weight", "tensor name inside the safetensors file")
		transpose   = flag.Bool("transpose", false, "weights are stored [out, in] and must be transposed")
		topK        = flag.Int("top-k", prune.DefaultConfig().TopK, "input features defining an output feature's influence set")
		dropNumber  = flag.Int("drop", prune.DefaultConfig().DropNumber, "maximum number of output features to drop")
		outPath     = flag.String("out", "", "where to write the reduced weights (optional)")
		indicesPath = flag.String("indices", "", "where to write the kept-index list as JSON (optional)")
		samplesPath = flag.String("samples", "", "safetensors file of sample vectors for retrieval validation (optional)")
		samplesName = flag.String("samples-tensor", "samples", "tensor name inside the samples file")
		neighbors   = flag.Int("neighbors", validate.DefaultConfig().Neighbors, "neighborhood size for retrieval validation")
	)
	flag.Parse()

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	if level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && level != zerolog.NoLevel {
		zerolog.SetGlobalLevel(level)
	}

	if *weightsPath == "" {
		log.Fatal().Msg("-weights is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := loadEnv()

	matrix, err := weights.Load(*weightsPath, *tensorName)
	if err != nil {
		log.Fatal().Err(err).Str("path", *weightsPath).Msg("Failed to load projection weights")
	}
	if *transpose {
		matrix = matrix.Transpose()
	}
	log.Info().
		Int("input_dim", matrix.Rows).
		Int("output_dim", matrix.Cols).
		Int("top_k", *topK).
		Int("drop", *dropNumber).
		Msg("loaded projection weights")

	cfg := prune.Config{TopK: *topK, DropNumber: *dropNumber}
	fingerprint := matrix.Fingerprint()

	var cache *resultcache.Redis
	if env.RedisHost != "" && env.RedisPort != "" {
		cache, err = resultcache.NewRedis(resultcache.Config{
			Host: env.RedisHost,
			Port: env.RedisPort,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Result cache unavailable, continuing without it")
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	var res *prune.Result
	if cache != nil {
		res, err = cache.Get(ctx, fingerprint, cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Result cache lookup failed")
		} else if res != nil {
			log.Info().Msg("reusing cached pruning result")
		}
	}

	if res == nil {
		res, err = prune.Prune(ctx, matrix.RowSlices(), cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Pruning failed")
		}
		if cache != nil {
			if err := cache.Set(ctx, fingerprint, cfg, res); err != nil {
				log.Warn().Err(err).Msg("Failed to cache pruning result")
			}
		}
	}

	log.Info().
		Int("dropped", len(res.DropOrder)).
		Int("kept", len(res.Kept)).
		Msg("pruning finished")

	if *indicesPath != "" {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to encode result")
		}
		if err := os.WriteFile(*indicesPath, data, 0o644); err != nil {
			log.Fatal().Err(err).Str("path", *indicesPath).Msg("Failed to write kept-index list")
		}
	}

	if len(res.Kept) == 0 {
		log.Warn().Msg("no features kept, skipping reduced-layer output")
		return
	}

	reduced, err := matrix.KeepColumns(res.Kept)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to slice reduced layer")
	}
	if *outPath != "" {
		if err := weights.Save(*outPath, *tensorName, reduced); err != nil {
			log.Fatal().Err(err).Str("path", *outPath).Msg("Failed to write reduced weights")
		}
		log.Info().Str("path", *outPath).Int("output_dim", reduced.Cols).Msg("wrote reduced weights")
	}

	if *samplesPath == "" {
		return
	}

	samplesMat, err := weights.Load(*samplesPath, *samplesName)
	if err != nil {
		log.Fatal().Err(err).Str("path", *samplesPath).Msg("Failed to load sample vectors")
	}
	samples := samplesMat.RowSlices()

	report, err := validate.Overlap(ctx, matrix, reduced, samples, validate.Config{Neighbors: *neighbors})
	if err != nil {
		log.Fatal().Err(err).Msg("Validation failed")
	}
	fmt.Printf("Retrieval overlap: %.4f mean recall over %d samples (top-%d neighbors)\n",
		report.MeanRecall, report.Samples, report.Neighbors)

	if env.MilvusHost == "" {
		return
	}

	exporter, err := export.NewMilvus(ctx, export.Config{
		Host:           env.MilvusHost,
		Port:           env.MilvusPort,
		CollectionName: env.MilvusCollection,
		Dimension:      reduced.Cols,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Milvus")
	}
	defer exporter.Close()

	ids := make([]string, len(samples))
	vectors := make([][]float32, len(samples))
	var emb mat.Dense
	emb.Mul(samplesMat.Dense(), reduced.Dense())
	for i := range samples {
		ids[i] = fmt.Sprintf("sample-%d", i)
		row := mat.Row(nil, i, &emb)
		vec := make([]float32, len(row))
		for j, v := range row {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}

	if err := exporter.Export(ctx, ids, vectors); err != nil {
		log.Fatal().Err(err).Msg("Failed to export reduced embeddings")
	}
	log.Info().Int("count", len(ids)).Msg("exported reduced embeddings for benchmarking")
}
