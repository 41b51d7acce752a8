// Copyright 2025 Energinet DataHub A/S
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
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/Energinet-DataHub/geh-message-archive/config"
	"github.com/Energinet-DataHub/geh-message-archive/core"
	"github.com/Energinet-DataHub/geh-message-archive/ingestion"
	"github.com/Energinet-DataHub/geh-message-archive/search"
	"github.com/Energinet-DataHub/geh-message-archive/storage/badger"
	"github.com/Energinet-DataHub/geh-message-archive/storage/s3"
)

func main() {
	app := &cli.App{
		Name:  "msgarchive",
		Usage: "Market message archive: ingest, search and fetch archived messages",
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
				Name:   "ingest",
				Usage:  "Run the ingestion loop until interrupted",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "once",
						Usage: "Process a single page of blobs and exit",
					},
				},
			},
			{
				Name:   "search",
				Usage:  "Search archived messages and print matching records as JSON",
				Action: searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "message-id",
						Usage: "Filter by message id",
					},
					&cli.StringFlag{
						Name:  "message-type",
						Usage: "Filter by message type",
					},
					&cli.StringSliceFlag{
						Name:  "process-type",
						Usage: "Filter by process type (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "rsm-name",
						Usage: "Filter by RSM name (repeatable)",
					},
					&cli.StringFlag{
						Name:  "sender-id",
						Usage: "Filter by sender id",
					},
					&cli.StringFlag{
						Name:  "receiver-id",
						Usage: "Filter by receiver id",
					},
					&cli.StringFlag{
						Name:  "sender-role",
						Usage: "Filter by sender role type",
					},
					&cli.StringFlag{
						Name:  "receiver-role",
						Usage: "Filter by receiver role type",
					},
					&cli.StringFlag{
						Name:  "business-sector",
						Usage: "Filter by business sector type",
					},
					&cli.StringFlag{
						Name:  "reason-code",
						Usage: "Filter by reason code",
					},
					&cli.StringFlag{
						Name:  "invocation-id",
						Usage: "Filter by invocation id",
					},
					&cli.StringFlag{
						Name:  "function-name",
						Usage: "Filter by function name",
					},
					&cli.StringFlag{
						Name:  "trace-id",
						Usage: "Filter by trace id",
					},
					&cli.StringFlag{
						Name:  "from",
						Usage: "Start of the created date range (RFC3339 or yyyy-mm-dd)",
					},
					&cli.StringFlag{
						Name:  "to",
						Usage: "End of the created date range (RFC3339 or yyyy-mm-dd)",
					},
					&cli.BoolFlag{
						Name:  "include-related",
						Usage: "Expand the result with related request/response records",
					},
					&cli.StringFlag{
						Name:  "continuation-token",
						Usage: "Resume a previous search from its continuation token",
					},
					&cli.IntFlag{
						Name:  "max-items",
						Usage: "Maximum number of records per page",
						Value: 100,
					},
				},
			},
			{
				Name:      "fetch",
				Usage:     "Fetch one archived blob body and write it to stdout",
				Action:    fetchCommand,
				ArgsUsage: "<blob-name>",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func ingestCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	archive, err := s3.New(ctx, s3.Config{
		Region:        cfg.AWSRegion,
		SourceBucket:  cfg.SourceBucket,
		ArchiveBucket: cfg.ArchiveBucket,
		Retries:       cfg.S3Retries,
		Timeout:       cfg.S3Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create archive store: %w", err)
	}

	records, err := badger.NewRecordStore(cfg.RecordDBPath)
	if err != nil {
		return fmt.Errorf("failed to open record store: %w", err)
	}
	defer records.Close()

	pipeline, err := ingestion.NewPipeline(archive, records,
		ingestion.WithPageSize(cfg.ListPageSize),
		ingestion.WithPoolSize(cfg.DownloadPoolSize),
		ingestion.WithMetrics(ingestion.NewMetrics(prometheus.DefaultRegisterer)),
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	if c.Bool("once") {
		return pipeline.RunOnce(ctx)
	}

	slog.Info("ingestion loop started",
		"source", cfg.SourceBucket,
		"archive", cfg.ArchiveBucket,
		"interval", cfg.IngestInterval)

	ticker := time.NewTicker(cfg.IngestInterval)
	defer ticker.Stop()

	for {
		if err := pipeline.RunOnce(ctx); err != nil {
			// Aborted pages are retried on the next tick; the source
			// container still holds everything not yet archived.
			slog.Error("ingestion run failed", "err", err)
		}

		select {
		case <-ctx.Done():
			slog.Info("ingestion loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	records, err := badger.NewRecordStore(cfg.RecordDBPath)
	if err != nil {
		return fmt.Errorf("failed to open record store: %w", err)
	}
	defer records.Close()

	engine, err := search.NewEngine(records)
	if err != nil {
		return fmt.Errorf("failed to create search engine: %w", err)
	}

	criteria := &core.SearchCriteria{
		MessageID:          c.String("message-id"),
		MessageType:        c.String("message-type"),
		ProcessTypes:       c.StringSlice("process-type"),
		RsmNames:           c.StringSlice("rsm-name"),
		SenderID:           c.String("sender-id"),
		ReceiverID:         c.String("receiver-id"),
		SenderRoleType:     c.String("sender-role"),
		ReceiverRoleType:   c.String("receiver-role"),
		BusinessSectorType: c.String("business-sector"),
		ReasonCode:         c.String("reason-code"),
		InvocationID:       c.String("invocation-id"),
		FunctionName:       c.String("function-name"),
		TraceID:            c.String("trace-id"),
		DateTimeFrom:       c.String("from"),
		DateTimeTo:         c.String("to"),
		IncludeRelated:     c.Bool("include-related"),
		ContinuationToken:  c.String("continuation-token"),
		MaxItemCount:       c.Int("max-items"),
	}

	results, validation, err := engine.Search(ctx, criteria)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if !validation.Valid {
		return cli.Exit(validation.Message, 1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	return nil
}

func fetchCommand(c *cli.Context) error {
	ctx := context.Background()

	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("blob name is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	archive, err := s3.New(ctx, s3.Config{
		Region:        cfg.AWSRegion,
		SourceBucket:  cfg.SourceBucket,
		ArchiveBucket: cfg.ArchiveBucket,
		Retries:       cfg.S3Retries,
		Timeout:       cfg.S3Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create archive store: %w", err)
	}

	body, err := archive.ReadByName(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to read blob %s: %w", name, err)
	}
	if body == nil {
		fmt.Fprintf(os.Stderr, "blob %s not found\n", name)
		return nil
	}
	defer body.Close()

	if _, err := io.Copy(os.Stdout, body); err != nil {
		return fmt.Errorf("failed to write blob body: %w", err)
	}

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
