package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search queries petitions using plainto_tsquery and ts_rank, with
// ts_headline for story snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, `
		SELECT count(*)
		FROM petitions
		WHERE fts @@ plainto_tsquery('english', $1)`, q.Text).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, title,
			ts_headline('english', coalesce(story, ''), plainto_tsquery('english', $1), 'MaxFragments=1,MaxWords=30') AS snippet,
			goal, signature_count
		FROM petitions
		WHERE fts @@ plainto_tsquery('english', $1)
		ORDER BY ts_rank(fts, plainto_tsquery('english', $1)) DESC
		LIMIT %d OFFSET %d`, limit, offset), q.Text)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Title, &r.Snippet, &r.Goal, &r.SignatureCount); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all petitions for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]PetitionRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, title, story, goal, signature_count
		FROM petitions
	`)
	if err != nil {
		return nil, fmt.Errorf("load petitions: %w", err)
	}
	defer rows.Close()

	petitions := make([]PetitionRecord, 0)
	for rows.Next() {
		var rec PetitionRecord
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Story, &rec.Goal, &rec.SignatureCount); err != nil {
			return nil, fmt.Errorf("scan petition: %w", err)
		}
		petitions = append(petitions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate petitions: %w", err)
	}

	return petitions, nil
}
