// Package repository persists indexing run reports so operators can review
// past runs after the fact.
package repository

import (
	"context"
	"fmt"
	"os"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// RunReport is one indexing run's outcome. Skipped holds the per-field
// counts of facilities dropped during validation.
type RunReport struct {
	ID                 int64          `json:"id"`
	Source             string         `json:"source"`
	StartedAt          time.Time      `json:"started_at"`
	FinishedAt         time.Time      `json:"finished_at"`
	ImportedFacilities int            `json:"imported_facilities"`
	ImportedCategories int            `json:"imported_categories"`
	ImportedLocations  int            `json:"imported_locations"`
	SkippedNoPosition  int            `json:"skipped_no_position"`
	Skipped            map[string]int `json:"skipped"`
	Status             string         `json:"status"`
	Error              string         `json:"error,omitempty"`
}

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New() *Repository {
	dbUrl := os.Getenv("DB_CONN_STR")
	pool, err := pgxpool.New(context.Background(), dbUrl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}

	return &Repository{
		pool: pool,
	}
}

func (repo *Repository) Close() {
	repo.pool.Close()
}

// SaveRunReport inserts the report and returns its id.
func (repo *Repository) SaveRunReport(ctx context.Context, report RunReport) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	skipped, err := jsoniter.Marshal(report.Skipped)
	if err != nil {
		return 0, fmt.Errorf("could not encode skip counts: %w", err)
	}

	q, args, err := insertRunReport(report, skipped).ToSql()
	if err != nil {
		return 0, fmt.Errorf("could not build run report insert: %w", err)
	}

	var id int64
	if err := repo.pool.QueryRow(ctx, q, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("could not insert run report: %w", err)
	}
	return id, nil
}

// ListRunReports returns the most recent runs, newest first.
func (repo *Repository) ListRunReports(ctx context.Context, limit int) ([]RunReport, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	q, args, err := selectRunReports(limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("could not build run report query: %w", err)
	}

	rows, err := repo.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query run reports: %w", err)
	}
	defer rows.Close()

	var reports []RunReport
	for rows.Next() {
		var report RunReport
		var skipped []byte

		err := rows.Scan(&report.ID,
			&report.Source,
			&report.StartedAt,
			&report.FinishedAt,
			&report.ImportedFacilities,
			&report.ImportedCategories,
			&report.ImportedLocations,
			&report.SkippedNoPosition,
			&skipped,
			&report.Status,
			&report.Error)
		if err != nil {
			continue
		}

		if len(skipped) > 0 {
			jsoniter.Unmarshal(skipped, &report.Skipped)
		}
		reports = append(reports, report)
	}

	return reports, nil
}

func insertRunReport(report RunReport, skipped []byte) sq.InsertBuilder {
	return psql.Insert("run_reports").
		Columns("source", "started_at", "finished_at",
			"imported_facilities", "imported_categories", "imported_locations",
			"skipped_no_position", "skipped", "status", "error").
		Values(report.Source, report.StartedAt, report.FinishedAt,
			report.ImportedFacilities, report.ImportedCategories, report.ImportedLocations,
			report.SkippedNoPosition, skipped, report.Status, report.Error).
		Suffix("RETURNING id")
}

func selectRunReports(limit int) sq.SelectBuilder {
	return psql.Select("id", "source", "started_at", "finished_at",
		"imported_facilities", "imported_categories", "imported_locations",
		"skipped_no_position", "skipped", "status", "error").
		From("run_reports").
		OrderBy("started_at DESC").
		Limit(uint64(limit))
}
