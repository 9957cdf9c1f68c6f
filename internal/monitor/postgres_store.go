package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresStore persists scan results in PostgreSQL. The full result is
// stored as JSONB with the query columns denormalized for indexing.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed scan store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the scans table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scans (
			id              VARCHAR(64) PRIMARY KEY,
			bridge_address  VARCHAR(64) NOT NULL,
			network         VARCHAR(32) NOT NULL,
			risk_score      NUMERIC(4,2) NOT NULL CHECK (risk_score >= 0 AND risk_score <= 10),
			risk_level      VARCHAR(10) NOT NULL CHECK (risk_level IN ('low', 'medium', 'high', 'critical')),
			result          JSONB NOT NULL,
			started_at      TIMESTAMPTZ NOT NULL,
			completed_at    TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_scans_bridge
			ON scans (bridge_address, completed_at DESC);

		CREATE INDEX IF NOT EXISTS idx_scans_critical
			ON scans (completed_at DESC) WHERE risk_level = 'critical';

		CREATE TABLE IF NOT EXISTS scan_alerts (
			id               VARCHAR(64) PRIMARY KEY,
			scan_id          VARCHAR(64) NOT NULL REFERENCES scans (id) ON DELETE CASCADE,
			alert_type       VARCHAR(40) NOT NULL,
			severity         VARCHAR(10) NOT NULL CHECK (severity IN ('low', 'medium', 'high', 'critical')),
			message          TEXT NOT NULL,
			bridge_address   VARCHAR(64) NOT NULL,
			transaction_hash VARCHAR(80),
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_scan_alerts_bridge
			ON scan_alerts (bridge_address, created_at DESC);
	`)
	return err
}

func (s *PostgresStore) RecordScan(ctx context.Context, result *ScanResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal scan result: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scans (id, bridge_address, network, risk_score, risk_level, result, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		result.ID,
		result.BridgeAddress,
		result.Network,
		result.OverallRiskScore,
		string(result.RiskLevel),
		resultJSON,
		result.StartedAt,
		result.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record scan: %w", err)
	}

	for _, alert := range result.Alerts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO scan_alerts (id, scan_id, alert_type, severity, message, bridge_address, transaction_hash, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
		`, alert.ID, alert.ScanID, alert.Type, alert.Severity, alert.Message, alert.BridgeAddress, alert.TransactionHash, alert.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to record alert: %w", err)
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) GetScan(ctx context.Context, id string) (*ScanResult, error) {
	var resultJSON []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT result FROM scans WHERE id = $1
	`, id).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}

	var result ScanResult
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scan result: %w", err)
	}
	return &result, nil
}

func (s *PostgresStore) ListByBridge(ctx context.Context, bridgeAddress string, limit int) ([]*ScanResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT result FROM scans
		WHERE bridge_address = $1
		ORDER BY completed_at DESC
		LIMIT $2
	`, bridgeAddress, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*ScanResult
	for rows.Next() {
		var resultJSON []byte
		if err := rows.Scan(&resultJSON); err != nil {
			continue
		}
		var result ScanResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			continue
		}
		results = append(results, &result)
	}
	return results, rows.Err()
}

func (s *PostgresStore) ListAlerts(ctx context.Context, bridgeAddress string, limit int) ([]*Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scan_id, alert_type, severity, message, bridge_address, COALESCE(transaction_hash, ''), created_at
		FROM scan_alerts
		WHERE bridge_address = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, bridgeAddress, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var alerts []*Alert
	for rows.Next() {
		a := &Alert{}
		if err := rows.Scan(&a.ID, &a.ScanID, &a.Type, &a.Severity, &a.Message, &a.BridgeAddress, &a.TransactionHash, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
