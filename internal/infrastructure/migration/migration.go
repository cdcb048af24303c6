package migration

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

// Migration represents a database migration
type Migration struct {
	Name string
	Up   func(ctx context.Context, pool *pgxpool.Pool) error
}

// RunMigrations executes all necessary database migrations on startup
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	migrations := []Migration{
		{Name: "create_jobs_table", Up: createJobsTable},
		{Name: "create_analyses_table", Up: createAnalysesTable},
	}

	for _, m := range migrations {
		if err := m.Up(ctx, pool); err != nil {
			logger.Error("migration failed", zap.String("name", m.Name), zap.Error(err))
			return err
		}
		logger.Info("migration completed", zap.String("name", m.Name))
	}

	return nil
}

func createJobsTable(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS jobs (
			id UUID PRIMARY KEY,
			submitter_id UUID NOT NULL,
			source_type TEXT NOT NULL,
			source_url TEXT NOT NULL DEFAULT '',
			file_paths JSONB NOT NULL DEFAULT '[]'::jsonb,
			title TEXT NOT NULL DEFAULT '',
			candidate_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			retry_count INT NOT NULL DEFAULT 0,
			failure_reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs (status);
		CREATE INDEX IF NOT EXISTS idx_jobs_submitter ON jobs (submitter_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_jobs_stale ON jobs (updated_at) WHERE status = 'processing';
	`
	_, err := pool.Exec(ctx, query)
	return err
}

func createAnalysesTable(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS analyses (
			job_id UUID PRIMARY KEY REFERENCES jobs (id) ON DELETE CASCADE,
			visual_score INT NOT NULL,
			ux_score INT NOT NULL,
			communication_score INT NOT NULL,
			hireability_score INT NOT NULL,
			overall_score INT NOT NULL,
			keywords JSONB NOT NULL DEFAULT '[]'::jsonb,
			strengths JSONB NOT NULL DEFAULT '[]'::jsonb,
			weaknesses JSONB NOT NULL DEFAULT '[]'::jsonb,
			recommendations JSONB NOT NULL DEFAULT '[]'::jsonb,
			verdict TEXT NOT NULL,
			seniority TEXT NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL
		);
	`
	_, err := pool.Exec(ctx, query)
	return err
}
