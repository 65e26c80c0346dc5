package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/graphsim/internal/config"
	"github.com/RishiKendai/graphsim/internal/configs/env"
	"github.com/RishiKendai/graphsim/internal/evaluation"
	"github.com/RishiKendai/graphsim/internal/logger"
	"github.com/RishiKendai/graphsim/internal/plagiarism"
)

func main() {
	envErr := env.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	dataset := flag.String("dataset", cfg.DatasetPath, "dataset directory (one folder per case)")
	thresholds := flag.String("thresholds", joinFloats(cfg.SimilarityThresholds), "comma separated candidate thresholds")
	ext := flag.String("ext", cfg.DatasetExtension, "source file extension")
	dim := flag.Int("dim", cfg.EmbedDim, "embedding dimension")
	workers := flag.Int("workers", cfg.WorkerCount, "scoring workers (0 picks from CPU count)")
	cacheSize := flag.Int("cache", cfg.EmbeddingCacheSize, "embedding cache entries (0 disables)")
	asJSON := flag.Bool("json", false, "print the full report as JSON")
	flag.Parse()

	logger.Init(cfg.LogLevel, "console")
	if envErr != nil {
		log.Warn().Err(envErr).Msg("Failed to load .env file, continuing with system environment variables")
	}

	cfg.DatasetPath = *dataset
	cfg.DatasetExtension = *ext
	cfg.EmbedDim = *dim
	cfg.SimilarityThresholds, err = parseFloats(*thresholds)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -thresholds")
	}
	if err := cfg.ValidateEvaluation(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scorer, err := plagiarism.NewScorer(
		plagiarism.NewEmbedder(cfg.ProNE()),
		plagiarism.WithEmbeddingCache(*cacheSize),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scorer")
	}

	pool := plagiarism.NewWorkerPool(ctx, *workers)
	defer pool.Close()

	ds, err := evaluation.LoadDataset(ctx, os.DirFS(cfg.DatasetPath), cfg.DatasetExtension)
	if err != nil {
		log.Fatal().Err(err).Str("dataset", cfg.DatasetPath).Msg("Failed to load dataset")
	}

	report, err := evaluation.NewRunner(scorer, pool, cfg.EmbedDim).Run(ctx, ds, cfg.SimilarityThresholds)
	if err != nil {
		log.Fatal().Err(err).Msg("Evaluation failed")
	}
	report.DatasetPath = cfg.DatasetPath

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode report")
		}
		return
	}

	fmt.Println(evaluation.FormatSummary(filepath.Base(filepath.Clean(cfg.DatasetPath)), report))
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("bad threshold %q: %w", part, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func joinFloats(fs []float64) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
