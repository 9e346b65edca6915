package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mlender/goalplan/internal/models"
	"github.com/mlender/goalplan/internal/repository"
)

type seriesStore struct {
	db *sql.DB
}

func NewSeriesStore(db *sql.DB) repository.SeriesStore {
	return &seriesStore{db: db}
}

func (r *seriesStore) Create(ctx context.Context, series *models.Series) (*models.Series, error) {
	template, rule, err := encodeSeries(series)
	if err != nil {
		return nil, err
	}
	query := `INSERT INTO series (id, user_id, template, rule, start_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query,
		series.ID, series.UserID, template, rule, series.StartDate, time.Now(),
	).Scan(&series.CreatedAt, &series.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create series: %w", err)
	}
	return series, nil
}

func (r *seriesStore) GetByID(ctx context.Context, id string) (*models.Series, error) {
	query := `SELECT id, user_id, template, rule, start_date, created_at, updated_at
		FROM series WHERE id = $1`
	series, err := scanSeries(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get series: %w", err)
	}
	return series, nil
}

func (r *seriesStore) ListByUser(ctx context.Context, userID string) ([]*models.Series, error) {
	query := `SELECT id, user_id, template, rule, start_date, created_at, updated_at
		FROM series WHERE user_id = $1 ORDER BY start_date, id`
	return r.querySeries(ctx, query, userID)
}

func (r *seriesStore) All(ctx context.Context) ([]*models.Series, error) {
	query := `SELECT id, user_id, template, rule, start_date, created_at, updated_at
		FROM series ORDER BY user_id, start_date, id`
	return r.querySeries(ctx, query)
}

func (r *seriesStore) Update(ctx context.Context, series *models.Series) (*models.Series, error) {
	template, rule, err := encodeSeries(series)
	if err != nil {
		return nil, err
	}
	query := `UPDATE series SET template = $2, rule = $3, updated_at = $4
		WHERE id = $1 RETURNING updated_at`
	err = r.db.QueryRowContext(ctx, query, series.ID, template, rule, time.Now()).
		Scan(&series.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &models.NotFoundError{Resource: "series", ID: series.ID}
		}
		return nil, fmt.Errorf("failed to update series: %w", err)
	}
	return series, nil
}

func (r *seriesStore) querySeries(ctx context.Context, query string, args ...interface{}) ([]*models.Series, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query series: %w", err)
	}
	defer rows.Close()

	var out []*models.Series
	for rows.Next() {
		series, err := scanSeries(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan series: %w", err)
		}
		out = append(out, series)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSeries(row rowScanner) (*models.Series, error) {
	series := &models.Series{}
	var template, rule []byte
	err := row.Scan(&series.ID, &series.UserID, &template, &rule,
		&series.StartDate, &series.CreatedAt, &series.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(template, &series.Template); err != nil {
		return nil, fmt.Errorf("failed to decode series template: %w", err)
	}
	if err := json.Unmarshal(rule, &series.Rule); err != nil {
		return nil, fmt.Errorf("failed to decode series rule: %w", err)
	}
	return series, nil
}

func encodeSeries(series *models.Series) (template, rule []byte, err error) {
	template, err = json.Marshal(series.Template)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode series template: %w", err)
	}
	rule, err = json.Marshal(series.Rule)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode series rule: %w", err)
	}
	return template, rule, nil
}
