// Package main replays a stream of indexer events into daily snapshots.
//
// Events are read as JSON lines, one service.EventInput per line, and applied
// in order. The final state of every snapshot touched is printed as JSON.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/indexer-snapshots/internal/config"
	apperrors "github.com/indexer-snapshots/internal/errors"
	"github.com/indexer-snapshots/internal/logging"
	"github.com/indexer-snapshots/internal/models"
	"github.com/indexer-snapshots/internal/retry"
	"github.com/indexer-snapshots/internal/service"
	"github.com/indexer-snapshots/internal/snapshot"
	"github.com/indexer-snapshots/internal/storage"
)

func main() {
	if err := run(); err != nil {
		logging.GetGlobalLogger().WithError(err).Error("Replay failed")
		os.Exit(1)
	}
}

// snapshotOverrides holds the snapshot flags given on the command line.
// A nil field was not set and keeps the environment value.
type snapshotOverrides struct {
	genesis     *int64
	dayLength   *int64
	rollingMode *string
}

func run() error {
	var (
		input       = flag.String("input", "-", "JSON-lines event file, - for stdin")
		usePostgres = flag.Bool("postgres", false, "Persist snapshots to Postgres instead of memory")
		genesis     = flag.Int64("genesis", 0, "Genesis timestamp, overrides SNAPSHOT_GENESIS_TIMESTAMP")
		dayLength   = flag.Int64("day-length", 0, "Seconds per day, overrides SNAPSHOT_DAY_LENGTH")
		rollingMode = flag.String("rolling-mode", "", "reset or additive, overrides SNAPSHOT_ROLLING_MODE")
		verbose     = flag.Bool("v", false, "Log every applied event")
	)
	flag.Parse()

	var overrides snapshotOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "genesis":
			overrides.genesis = genesis
		case "day-length":
			overrides.dayLength = dayLength
		case "rolling-mode":
			overrides.rollingMode = rollingMode
		}
	})

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Logs go to stderr so stdout carries only the snapshots
	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	logger.SetOutput(os.Stderr)
	if *verbose {
		logger.SetLevel(logging.LevelDebug)
	}

	snapshotCfg, err := snapshot.ConfigFromSnapshotConfig(overrides.apply(cfg.Snapshot))
	if err != nil {
		return fmt.Errorf("invalid snapshot configuration: %w", err)
	}

	ctx := logging.WithLogger(context.Background(), logger)

	var svc *service.IndexerService
	if *usePostgres {
		postgres, err := storage.NewPostgresDB(ctx, &cfg.Database.Postgres)
		if err != nil {
			return fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		defer postgres.Close()
		svc = service.NewIndexerService(storage.NewSnapshotRepository(postgres), storage.NewIndexerRepository(postgres), snapshotCfg)
	} else {
		svc = service.NewIndexerService(storage.NewMemorySnapshotStore(), storage.NewMemoryIndexerRepository(), snapshotCfg)
	}

	var r io.Reader = os.Stdin
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	snaps, err := replay(ctx, svc, r, eventRetryConfig())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snaps); err != nil {
		return fmt.Errorf("failed to write snapshots: %w", err)
	}

	logger.WithField("snapshots", len(snaps)).Info("Replay complete")
	return nil
}

// apply sets every overridden value on c
func (o snapshotOverrides) apply(c config.SnapshotConfig) config.SnapshotConfig {
	if o.genesis != nil {
		c.GenesisTimestamp = *o.genesis
	}
	if o.dayLength != nil {
		c.DayLength = *o.dayLength
	}
	if o.rollingMode != nil {
		c.RollingMode = *o.rollingMode
	}
	return c
}

// eventRetryConfig retries events that failed on storage, never rejected input
func eventRetryConfig() *retry.RetryConfig {
	cfg := retry.DefaultRetryConfig()
	cfg.MaxAttempts = 3
	cfg.Retryable = apperrors.IsRetryable
	return cfg
}

// replay applies every event in r and returns the last state of each snapshot
// it touched, ordered by indexer and day.
func replay(ctx context.Context, svc *service.IndexerService, r io.Reader, retryCfg *retry.RetryConfig) ([]*models.IndexerSnapshot, error) {
	logger := logging.FromContext(ctx)
	latest := make(map[string]*models.IndexerSnapshot)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var event service.EventInput
		dec := json.NewDecoder(strings.NewReader(text))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&event); err != nil {
			return nil, fmt.Errorf("line %d: invalid event: %w", line, err)
		}

		var result *service.EventResult
		err := retry.Do(ctx, retryCfg, func(ctx context.Context, attempt int) error {
			if attempt > 1 {
				logger.Warnf("Retrying event on line %d, attempt %d", line, attempt)
			}
			var applyErr error
			result, applyErr = svc.ApplyEvent(ctx, &event)
			return applyErr
		})
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		logger.WithField("line", line).Debug("Applied event")
		latest[result.Snapshot.ID] = result.Snapshot
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	snaps := make([]*models.IndexerSnapshot, 0, len(latest))
	for _, snap := range latest {
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].Indexer != snaps[j].Indexer {
			return snaps[i].Indexer < snaps[j].Indexer
		}
		return snaps[i].DayIndex < snaps[j].DayIndex
	})

	return snaps, nil
}
