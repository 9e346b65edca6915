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

type scheduleStore struct {
	db *sql.DB
}

func NewScheduleStore(db *sql.DB) repository.ScheduleStore {
	return &scheduleStore{db: db}
}

func (r *scheduleStore) Get(ctx context.Context, userID, date string) (*models.Schedule, error) {
	query := `SELECT user_id, date, instances, created_at, updated_at
		FROM schedules WHERE user_id = $1 AND date = $2`
	var (
		doc models.Schedule
		raw []byte
	)
	err := r.db.QueryRowContext(ctx, query, userID, date).Scan(
		&doc.UserID, &doc.Date, &raw, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	if err := json.Unmarshal(raw, &doc.Instances); err != nil {
		return nil, fmt.Errorf("failed to decode schedule instances: %w", err)
	}
	return &doc, nil
}

func (r *scheduleStore) Upsert(ctx context.Context, userID, date string, instances []models.BlockInstance) (*models.Schedule, error) {
	if instances == nil {
		instances = []models.BlockInstance{}
	}
	raw, err := json.Marshal(instances)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schedule instances: %w", err)
	}

	query := `INSERT INTO schedules (user_id, date, instances, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id, date)
		DO UPDATE SET instances = EXCLUDED.instances, updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at`
	doc := &models.Schedule{UserID: userID, Date: date, Instances: instances}
	err = r.db.QueryRowContext(ctx, query, userID, date, raw, time.Now()).
		Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert schedule: %w", err)
	}
	return doc, nil
}

func (r *scheduleStore) ListByUser(ctx context.Context, userID string) ([]*models.Schedule, error) {
	query := `SELECT user_id, date, instances, created_at, updated_at
		FROM schedules WHERE user_id = $1 ORDER BY date`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	var docs []*models.Schedule
	for rows.Next() {
		doc := &models.Schedule{}
		var raw []byte
		if err := rows.Scan(&doc.UserID, &doc.Date, &raw, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		if err := json.Unmarshal(raw, &doc.Instances); err != nil {
			return nil, fmt.Errorf("failed to decode schedule instances: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
