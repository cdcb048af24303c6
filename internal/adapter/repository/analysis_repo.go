package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"portlens/internal/domain"
)

// GetResult returns the analysis for a completed job. Anything short of a
// committed completion reads as not found; partial results are never
// observable because Complete writes status and result in one transaction.
func (r *JobsRepo) GetResult(ctx context.Context, id uuid.UUID) (*domain.AnalysisResult, error) {
	row := r.pool.QueryRow(ctx, `SELECT a.job_id, a.visual_score, a.ux_score,
			a.communication_score, a.hireability_score, a.overall_score,
			a.keywords, a.strengths, a.weaknesses, a.recommendations,
			a.verdict, a.seniority, a.completed_at
		FROM analyses a
		JOIN jobs j ON j.id = a.job_id
		WHERE a.job_id = $1 AND j.status = $2`, id, domain.StatusCompleted)

	var res domain.AnalysisResult
	var keywords, strengths, weaknesses, recommendations []byte
	err := row.Scan(&res.JobID, &res.VisualScore, &res.UXScore,
		&res.CommunicationScore, &res.HireabilityScore, &res.OverallScore,
		&keywords, &strengths, &weaknesses, &recommendations,
		&res.Verdict, &res.Seniority, &res.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	_ = json.Unmarshal(keywords, &res.Keywords)
	_ = json.Unmarshal(strengths, &res.Strengths)
	_ = json.Unmarshal(weaknesses, &res.Weaknesses)
	_ = json.Unmarshal(recommendations, &res.Recommendations)
	return &res, nil
}

// SaveCompleted persists a previewed analysis as an already-completed job.
// Job row and analysis row commit together.
func (r *JobsRepo) SaveCompleted(ctx context.Context, j *domain.Job, res *domain.AnalysisResult) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback(ctx)

	paths, _ := json.Marshal(j.FilePaths)
	_, err = tx.Exec(ctx, `INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		j.ID, j.SubmitterID, j.SourceType, j.SourceURL, paths, j.Title,
		j.CandidateName, domain.StatusCompleted, 0, "", j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert completed job: %w", err)
	}

	if err := insertAnalysis(ctx, tx, j.ID, res); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertAnalysis(ctx context.Context, tx pgx.Tx, id uuid.UUID, res *domain.AnalysisResult) error {
	keywords, _ := json.Marshal(res.Keywords)
	strengths, _ := json.Marshal(res.Strengths)
	weaknesses, _ := json.Marshal(res.Weaknesses)
	recommendations, _ := json.Marshal(res.Recommendations)

	_, err := tx.Exec(ctx, `INSERT INTO analyses (job_id, visual_score, ux_score,
			communication_score, hireability_score, overall_score, keywords,
			strengths, weaknesses, recommendations, verdict, seniority, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (job_id) DO UPDATE SET
			visual_score = EXCLUDED.visual_score,
			ux_score = EXCLUDED.ux_score,
			communication_score = EXCLUDED.communication_score,
			hireability_score = EXCLUDED.hireability_score,
			overall_score = EXCLUDED.overall_score,
			keywords = EXCLUDED.keywords,
			strengths = EXCLUDED.strengths,
			weaknesses = EXCLUDED.weaknesses,
			recommendations = EXCLUDED.recommendations,
			verdict = EXCLUDED.verdict,
			seniority = EXCLUDED.seniority,
			completed_at = EXCLUDED.completed_at`,
		id, res.VisualScore, res.UXScore, res.CommunicationScore,
		res.HireabilityScore, res.OverallScore, keywords, strengths,
		weaknesses, recommendations, res.Verdict, res.Seniority, res.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}
