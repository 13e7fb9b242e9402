// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/recall"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/contextbuild"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/embedjob"
	"github.com/poiesic/recall/ingest"
)

func main() {
	app := &cli.App{
		Name:  "recall",
		Usage: "Semantic retrieval and context assembly for activity records",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest activity records from a JSON file",
				ArgsUsage: "FILE (use - for stdin)",
				Action:    ingestCommand,
				Flags: append(storageFlags(),
					&cli.DurationFlag{
						Name:  "stale-after",
						Usage: "Skip ingest when the newest record is younger than this (0 disables the check)",
					},
				),
			},
			{
				Name:   "embed",
				Usage:  "Generate embeddings for records without vectors",
				Action: embedCommand,
				Flags: append(append(storageFlags(), embeddingFlags()...),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process in each batch",
						Value: 50,
					},
					&cli.IntFlag{
						Name:  "max",
						Usage: "Maximum number of records to embed this run (0 = all)",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Clear existing vectors and regenerate everything",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 50,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed embedding calls",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				),
			},
			{
				Name:   "status",
				Usage:  "Show embedding completion for an owner",
				Action: statusCommand,
				Flags: append(storageFlags(),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Batch size used to estimate remaining work",
						Value: 50,
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Search an owner's records by semantic similarity",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: append(append(storageFlags(), embeddingFlags()...),
					&cli.Float64Flag{
						Name:  "min-similarity",
						Usage: "Minimum cosine similarity for a hit",
						Value: 0.5,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of hits",
						Value: 5,
					},
				),
			},
			{
				Name:      "context",
				Usage:     "Assemble grounding context for a generation prompt",
				ArgsUsage: "PROMPT",
				Action:    contextCommand,
				Flags: append(append(storageFlags(), embeddingFlags()...),
					&cli.IntFlag{
						Name:  "max-items",
						Usage: "Maximum ranked plus recent items in the bundle",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "no-recent",
						Usage: "Do not top up sparse results with recent records",
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// storageFlags are shared by every command: backend selection plus the
// owner whose corpus is addressed.
func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory",
		},
		&cli.StringFlag{
			Name:  "dsn",
			Usage: "Postgres connection string (takes precedence over --db)",
		},
		&cli.StringFlag{
			Name:     "owner",
			Aliases:  []string{"o"},
			Usage:    "Owner whose records are addressed",
			Required: true,
		},
	}
}

// embeddingFlags configure the embedding provider for commands that call
// it.
func embeddingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:  "api-token",
			Usage: "API token for the embedding service",
			Value: "none",
		},
		&cli.IntFlag{
			Name:  "dimensions",
			Usage: "Embedding dimensionality",
			Value: 768,
		},
	}
}

func openService(c *cli.Context) (*recall.Service, error) {
	cfg := ai.DefaultConfig()
	if host := c.String("embedding-host"); host != "" {
		cfg.EmbeddingHost = host
	}
	if model := c.String("embedding-model"); model != "" {
		cfg.EmbeddingModel = model
	}
	if token := c.String("api-token"); token != "" {
		cfg.APIToken = token
	}
	if dim := c.Int("dimensions"); dim > 0 {
		cfg.Dimensions = dim
	}

	if dsn := c.String("dsn"); dsn != "" {
		return recall.NewPostgresService(c.Context, dsn, recall.WithAIConfig(cfg))
	}
	dbPath := c.String("db")
	if dbPath == "" {
		return nil, fmt.Errorf("either --db or --dsn is required")
	}
	return recall.NewService(dbPath, recall.WithAIConfig(cfg))
}

// recordInput is the intake shape for the ingest command.
type recordInput struct {
	Text      string    `json:"text"`
	Category  string    `json:"category"`
	SourceRef string    `json:"source_ref"`
	CreatedAt time.Time `json:"created_at"`
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("input file is required (use - for stdin)")
	}

	inputs, err := readRecordInputs(path)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	svc, err := openService(c)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer svc.Close()

	owner := c.String("owner")

	if threshold := c.Duration("stale-after"); threshold > 0 {
		check, err := refreshCheck(ctx, svc, owner, threshold)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, check.Reason)
		if !check.ShouldRefresh {
			return nil
		}
	}

	records := make([]*core.Record, 0, len(inputs))
	for _, in := range inputs {
		records = append(records, &core.Record{
			Text:      in.Text,
			Category:  in.Category,
			SourceRef: in.SourceRef,
			CreatedAt: in.CreatedAt,
		})
	}

	recorder, err := svc.NewRecorder()
	if err != nil {
		return err
	}

	result, err := recorder.Ingest(ctx, owner, records)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Inserted: %d  Skipped: %d  Invalid: %d\n",
		result.Inserted, result.Skipped, result.Invalid)
	return nil
}

func readRecordInputs(path string) ([]recordInput, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var inputs []recordInput
	if err := json.NewDecoder(r).Decode(&inputs); err != nil {
		return nil, err
	}
	return inputs, nil
}

// refreshCheck derives the owner's last-fetch time from their newest
// record. An owner with no records always recommends a refresh.
func refreshCheck(ctx context.Context, svc *recall.Service, owner string, threshold time.Duration) (ingest.RefreshCheck, error) {
	newest, err := svc.RecordStore().GetRecent(ctx, owner, time.Time{}, 1)
	if err != nil {
		return ingest.RefreshCheck{}, fmt.Errorf("failed to check corpus age: %w", err)
	}
	var lastFetch time.Time
	if len(newest) > 0 {
		lastFetch = newest[0].CreatedAt
	}
	return ingest.CheckRefresh(lastFetch, threshold, time.Now()), nil
}

func embedCommand(c *cli.Context) error {
	ctx := context.Background()

	svc, err := openService(c)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer svc.Close()

	config := &embedjob.Config{
		BatchSize:      c.Int("batch-size"),
		MaxRecords:     c.Int("max"),
		Regenerate:     c.Bool("force"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	runner := svc.NewRunner(config, os.Stderr)

	summary, err := runner.Run(ctx, c.String("owner"))
	if err != nil {
		return fmt.Errorf("embedding run failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Processed: %d  Generated: %d  Failed: %d  Batches: %d\n",
		summary.TotalProcessed, summary.EmbeddingsGenerated, summary.Failed, summary.BatchesProcessed)
	return nil
}

func statusCommand(c *cli.Context) error {
	ctx := context.Background()

	svc, err := openService(c)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer svc.Close()

	progress, err := svc.RecordStore().EmbeddingStats(ctx, c.String("owner"))
	if err != nil {
		return fmt.Errorf("failed to read embedding stats: %w", err)
	}

	status := embedjob.StatusFor(progress, c.Int("batch-size"))
	fmt.Printf("%s\n", status.StatusMessage)
	fmt.Printf("Total: %d  With vector: %d  Missing: %d  Complete: %.1f%%\n",
		progress.TotalRecords, progress.RecordsWithVector,
		progress.RecordsWithoutVector, progress.PercentComplete)
	if status.EstimatedBatchesRemaining > 0 {
		fmt.Printf("Estimated batches remaining: %d\n", status.EstimatedBatchesRemaining)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	query := strings.TrimSpace(c.Args().First())
	if query == "" {
		return fmt.Errorf("search query is required")
	}

	svc, err := openService(c)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer svc.Close()

	engine, err := svc.NewEngine()
	if err != nil {
		return fmt.Errorf("failed to create search engine: %w", err)
	}
	defer engine.Close()

	hits, err := engine.SearchText(ctx, c.String("owner"), query,
		float32(c.Float64("min-similarity")), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(hits) == 0 {
		fmt.Println("No matches.")
		return nil
	}
	for _, hit := range hits {
		fmt.Printf("%.3f  [%s]  %s\n", hit.Similarity, hit.Record.Category, hit.Record.Text)
	}
	return nil
}

func contextCommand(c *cli.Context) error {
	ctx := context.Background()

	prompt := strings.TrimSpace(c.Args().First())
	if prompt == "" {
		return fmt.Errorf("prompt is required")
	}

	svc, err := openService(c)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer svc.Close()

	engine, err := svc.NewEngine()
	if err != nil {
		return fmt.Errorf("failed to create search engine: %w", err)
	}
	defer engine.Close()

	builder, err := svc.NewBuilder(engine)
	if err != nil {
		return fmt.Errorf("failed to create context builder: %w", err)
	}

	bundle := builder.Build(ctx, c.String("owner"), prompt, &contextbuild.Options{
		MaxItems:      c.Int("max-items"),
		IncludeRecent: !c.Bool("no-recent"),
	})

	if bundle.FormattedText == "" {
		fmt.Fprintln(os.Stderr, "No context available for this owner.")
		return nil
	}
	fmt.Print(bundle.FormattedText)
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
