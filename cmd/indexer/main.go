// Command indexer runs one full reindex: it normalizes a raw source
// directory, builds the location tree, replaces the search indices and
// reports the outcome.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/openfpp/registry-api-go/broker"
	"github.com/openfpp/registry-api-go/config"
	"github.com/openfpp/registry-api-go/indexer"
	"github.com/openfpp/registry-api-go/locations"
	"github.com/openfpp/registry-api-go/normalizer"
	log "github.com/openfpp/registry-api-go/pkg/logger"
	"github.com/openfpp/registry-api-go/repository"
	"github.com/openfpp/registry-api-go/search"
	"go.uber.org/zap"
)

func main() {
	var (
		sourceKind   = flag.String("source", "", "source kind: survey, spreadsheet or standard")
		sourceDir    = flag.String("dir", "", "directory holding the raw source files")
		settingsPath = flag.String("settings", "settings.yml", "settings file")
	)
	flag.Parse()

	logger := log.Logger()
	if *sourceKind == "" || *sourceDir == "" {
		fmt.Fprintln(os.Stderr, "usage: indexer -source <kind> -dir <path> [-settings <file>]")
		os.Exit(2)
	}

	settings, err := config.Load(*settingsPath)
	if err != nil {
		logger.Warn("settings file not loaded, using defaults", zap.String("path", *settingsPath), zap.Error(err))
		settings = config.Default()
	}
	locales := settings.LocaleCodes()

	ctx := context.Background()
	startedAt := time.Now()

	norm, err := normalizer.FromDir(normalizer.Kind(*sourceKind), *sourceDir, locales, settings.DefaultLocale, settings.OpeningHours)
	if err != nil {
		logger.Fatal("could not open source", zap.String("dir", *sourceDir), zap.Error(err))
	}

	set, err := norm.Normalize()
	if err != nil {
		logger.Fatal("normalization failed", zap.Error(err))
	}
	if set.SkippedNoPosition > 0 {
		logger.Warn("facilities dropped for missing coordinates", zap.Int("count", set.SkippedNoPosition))
	}

	tree, err := locations.Build(set.Locations)
	if err != nil {
		logger.Fatal("location tree build failed", zap.Error(err))
	}

	svc := search.NewService(settings.Elasticsearch.URL, settings.Elasticsearch.IndexPrefix, locales)

	// Full reindex: the previous dataset is superseded wholesale.
	if err := svc.DropIndices(ctx); err != nil {
		logger.Warn("dropping indices failed, continuing", zap.Error(err))
	}
	if err := svc.Setup(ctx); err != nil {
		logger.Fatal("index setup failed", zap.Error(err))
	}

	engine := indexer.New(svc, locales, settings.Indexing.BatchSize)
	report, runErr := engine.Run(ctx, set, tree)
	if runErr != nil {
		logger.Error("indexing run failed", zap.Error(runErr))
	} else if err := svc.RefreshIndices(ctx); err != nil {
		logger.Warn("index refresh failed", zap.Error(err))
	}

	status := repository.StatusSucceeded
	errText := ""
	if runErr != nil {
		status = repository.StatusFailed
		errText = runErr.Error()
	}

	saveReport(ctx, repository.RunReport{
		Source:             *sourceKind,
		StartedAt:          startedAt,
		FinishedAt:         time.Now(),
		ImportedFacilities: report.ImportedFacilities,
		ImportedCategories: report.ImportedCategories,
		ImportedLocations:  report.ImportedLocations,
		SkippedNoPosition:  set.SkippedNoPosition,
		Skipped:            report.Skipped,
		Status:             status,
	}, errText)

	publishRunEvent(*sourceKind, settings.Kafka.RunsTopic, report, status)

	if runErr != nil {
		os.Exit(1)
	}
}

// saveReport persists the run when a database is configured; a reindex is
// still valid without one.
func saveReport(ctx context.Context, report repository.RunReport, errText string) {
	if os.Getenv("DB_CONN_STR") == "" {
		return
	}
	report.Error = errText

	repo := repository.New()
	defer repo.Close()

	id, err := repo.SaveRunReport(ctx, report)
	if err != nil {
		log.Logger().Error("could not save run report", zap.Error(err))
		return
	}
	log.Logger().Info("run report saved", zap.Int64("id", id))
}

func publishRunEvent(source, topic string, report indexer.Report, status string) {
	if os.Getenv("KAFKA_BROKERS") == "" {
		return
	}

	producer, err := broker.NewProducer()
	if err != nil {
		log.Logger().Error("failed to init kafka producer", zap.Error(err))
		return
	}
	defer producer.Close()

	err = broker.PublishRunCompleted(producer, topic, broker.RunCompletedEvent{
		Source:             source,
		FinishedAt:         time.Now(),
		ImportedFacilities: report.ImportedFacilities,
		ImportedCategories: report.ImportedCategories,
		ImportedLocations:  report.ImportedLocations,
		Skipped:            report.Skipped,
		Status:             status,
	})
	if err != nil {
		log.Logger().Error("failed to publish run event", zap.Error(err))
	}
}
