package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSource reads alert/entity records from PostgreSQL. The tables are
// written by the ingestion pipeline; PGSource never mutates them.
type PGSource struct {
	pool *pgxpool.Pool
}

// NewPGSource creates a PostgreSQL-backed source.
func NewPGSource(ctx context.Context, databaseURL string) (*PGSource, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pooling configuration
	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	return &PGSource{pool: pool}, nil
}

// Ping checks database connectivity.
func (s *PGSource) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *PGSource) Close() {
	s.pool.Close()
}

// AlertByID returns the alert with the given id.
func (s *PGSource) AlertByID(ctx context.Context, id string) (*AlertRecord, error) {
	var rec AlertRecord
	err := s.pool.QueryRow(ctx, `
		SELECT id, org_key, title, severity, device_id, create_time
		FROM alerts
		WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.OrgKey, &rec.Title, &rec.Severity, &rec.DeviceID, &rec.CreateTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("query alert %s: %w", id, err)
	}
	return &rec, nil
}

// AlertsInWindow returns all alerts created within [from, to].
func (s *PGSource) AlertsInWindow(ctx context.Context, from, to time.Time) ([]*AlertRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, org_key, title, severity, device_id, create_time
		FROM alerts
		WHERE create_time BETWEEN $1 AND $2
		ORDER BY create_time, id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query alerts in window: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// AlertsByOrg returns the org's alerts created within [from, to].
func (s *PGSource) AlertsByOrg(ctx context.Context, orgKey string, from, to time.Time) ([]*AlertRecord, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM alerts WHERE org_key = $1)`, orgKey,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("query org %s: %w", orgKey, err)
	}
	if !exists {
		return nil, fmt.Errorf("org %s: %w", orgKey, ErrNotFound)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, org_key, title, severity, device_id, create_time
		FROM alerts
		WHERE org_key = $1 AND create_time BETWEEN $2 AND $3
		ORDER BY create_time, id`, orgKey, from, to)
	if err != nil {
		return nil, fmt.Errorf("query alerts for org %s: %w", orgKey, err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// DeviceByID returns the device with the given id.
func (s *PGSource) DeviceByID(ctx context.Context, id string) (*DeviceRecord, error) {
	var rec DeviceRecord
	err := s.pool.QueryRow(ctx, `
		SELECT id, hostname, ip, os
		FROM devices
		WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.Hostname, &rec.IP, &rec.OS)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("device %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("query device %s: %w", id, err)
	}
	return &rec, nil
}

// ProcessesForAlert returns the processes observed on an alert.
func (s *PGSource) ProcessesForAlert(ctx context.Context, alertID string) ([]*ProcessRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, alert_id, COALESCE(parent_id, ''), pid, name, hash
		FROM processes
		WHERE alert_id = $1
		ORDER BY id`, alertID)
	if err != nil {
		return nil, fmt.Errorf("query processes for alert %s: %w", alertID, err)
	}
	defer rows.Close()

	var out []*ProcessRecord
	for rows.Next() {
		var rec ProcessRecord
		if err := rows.Scan(&rec.ID, &rec.AlertID, &rec.ParentID, &rec.PID, &rec.Name, &rec.Hash); err != nil {
			return nil, fmt.Errorf("scan process row: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// IOCsForAlert returns the IOCs attached to an alert.
func (s *PGSource) IOCsForAlert(ctx context.Context, alertID string) ([]*IOCRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, alert_id, value, kind, threat_score
		FROM iocs
		WHERE alert_id = $1
		ORDER BY id`, alertID)
	if err != nil {
		return nil, fmt.Errorf("query iocs for alert %s: %w", alertID, err)
	}
	defer rows.Close()

	var out []*IOCRecord
	for rows.Next() {
		var rec IOCRecord
		if err := rows.Scan(&rec.ID, &rec.AlertID, &rec.Value, &rec.Kind, &rec.ThreatScore); err != nil {
			return nil, fmt.Errorf("scan ioc row: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func scanAlerts(rows pgx.Rows) ([]*AlertRecord, error) {
	var out []*AlertRecord
	for rows.Next() {
		var rec AlertRecord
		if err := rows.Scan(&rec.ID, &rec.OrgKey, &rec.Title, &rec.Severity, &rec.DeviceID, &rec.CreateTime); err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
