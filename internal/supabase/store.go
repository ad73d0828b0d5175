// Package supabase is the secondary candidate store, a Postgres table with
// snake_case columns.
package supabase

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "candidate-portal/internal/common/errors"
	"candidate-portal/internal/models"

	"github.com/lib/pq"
)

// Store is the secondary store surface used by the data service.
type Store interface {
	Select(ctx context.Context) ([]models.Candidate, error)
	Upsert(ctx context.Context, c models.Candidate) error
	Delete(ctx context.Context, id string) error
}

type PostgresStore struct {
	db    *sql.DB
	table string
}

func NewPostgresStore(db *sql.DB, table string) *PostgresStore {
	return &PostgresStore{db: db, table: table}
}

const columns = `candidate_id, headline, sectors, tags, resume_url, resume_text, category,
	job_title, summary, location, relocation_preference, notable_employers`

func (s *PostgresStore) Select(ctx context.Context) ([]models.Candidate, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY updated_at DESC`, columns, s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewStoreFailedError("supabase select", err)
	}
	defer rows.Close()

	var out []models.Candidate
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(
			&c.ID,
			&c.Headline,
			pq.Array(&c.Sectors),
			pq.Array(&c.Tags),
			&c.ResumeURL,
			&c.ResumeText,
			&c.Category,
			&c.Title,
			&c.Summary,
			&c.Location,
			&c.RelocationPreference,
			&c.NotableEmployers,
		); err != nil {
			return nil, apperrors.NewStoreFailedError("supabase scan", err)
		}
		if c.Sectors == nil {
			c.Sectors = []string{}
		}
		if c.Tags == nil {
			c.Tags = []string{}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreFailedError("supabase select", err)
	}
	return out, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, c models.Candidate) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (candidate_id) DO UPDATE
			SET headline = EXCLUDED.headline,
				sectors = EXCLUDED.sectors,
				tags = EXCLUDED.tags,
				resume_url = EXCLUDED.resume_url,
				resume_text = EXCLUDED.resume_text,
				category = EXCLUDED.category,
				job_title = EXCLUDED.job_title,
				summary = EXCLUDED.summary,
				location = EXCLUDED.location,
				relocation_preference = EXCLUDED.relocation_preference,
				notable_employers = EXCLUDED.notable_employers,
				updated_at = NOW()`, s.table, columns)

	_, err := s.db.ExecContext(ctx, query,
		c.ID,
		c.Headline,
		pq.Array(nonNil(c.Sectors)),
		pq.Array(nonNil(c.Tags)),
		c.ResumeURL,
		c.ResumeText,
		c.Category,
		c.Title,
		c.Summary,
		c.Location,
		c.RelocationPreference,
		c.NotableEmployers,
	)
	if err != nil {
		return apperrors.NewStoreFailedError("supabase upsert", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE candidate_id = $1`, s.table), id)
	if err != nil {
		return apperrors.NewStoreFailedError("supabase delete", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewNotFoundError("candidate", id)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
