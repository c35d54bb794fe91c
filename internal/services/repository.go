package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// SQLCatalog reads services and promotions from Postgres.
type SQLCatalog struct {
	db *sql.DB
}

func NewSQLCatalog(db *sql.DB) *SQLCatalog {
	return &SQLCatalog{db: db}
}

func (c *SQLCatalog) Service(ctx context.Context, id string) (Service, bool, error) {
	var svc Service
	err := c.db.QueryRowContext(ctx, `
		SELECT id, name, duration
		FROM services WHERE id = $1`, id).Scan(&svc.ID, &svc.Name, &svc.Duration)
	if errors.Is(err, sql.ErrNoRows) {
		return Service{}, false, nil
	}
	if err != nil {
		return Service{}, false, fmt.Errorf("services: get service: %w", err)
	}
	return svc, true, nil
}

func (c *SQLCatalog) Promotion(ctx context.Context, id string) (Promotion, bool, error) {
	var (
		p        Promotion
		duration sql.NullInt64
	)
	err := c.db.QueryRowContext(ctx, `
		SELECT id, name, duration_minutes, service_ids, active
		FROM promotions WHERE id = $1`, id).Scan(
		&p.ID, &p.Name, &duration, pq.Array(&p.ServiceIDs), &p.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return Promotion{}, false, nil
	}
	if err != nil {
		return Promotion{}, false, fmt.Errorf("services: get promotion: %w", err)
	}
	if duration.Valid {
		p.DurationMinutes = int(duration.Int64)
	}
	if p.ServiceIDs == nil {
		p.ServiceIDs = []string{}
	}
	return p, true, nil
}
