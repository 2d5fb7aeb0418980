package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	// DefaultAlertLimit caps ListNew when the caller passes no limit.
	DefaultAlertLimit = 100
)

var alertSchema = map[string]string{
	DialectPostgres: `
		CREATE TABLE IF NOT EXISTS fraud_alerts (
			id BIGSERIAL PRIMARY KEY,
			alert_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			facility_id TEXT NOT NULL,
			facility_name TEXT,
			description TEXT,
			metrics JSONB,
			status TEXT NOT NULL DEFAULT 'new',
			detected_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			investigated_by TEXT,
			notes TEXT,
			UNIQUE (alert_type, facility_id)
		)`,
	DialectSQLite: `
		CREATE TABLE IF NOT EXISTS fraud_alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			alert_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			facility_id TEXT NOT NULL,
			facility_name TEXT,
			description TEXT,
			metrics TEXT,
			status TEXT NOT NULL DEFAULT 'new',
			detected_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			investigated_by TEXT,
			notes TEXT,
			UNIQUE (alert_type, facility_id)
		)`,
}

// AlertRepository persists FraudAlerts. The same SQL runs against Postgres
// and SQLite; only placeholders and the schema differ.
type AlertRepository struct {
	db      *sql.DB
	dialect string
}

func NewAlertRepository(db *sql.DB, dialect string) *AlertRepository {
	if dialect != DialectSQLite {
		dialect = DialectPostgres
	}
	return &AlertRepository{db: db, dialect: dialect}
}

func (r *AlertRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, alertSchema[r.dialect]); err != nil {
		return fmt.Errorf("create fraud_alerts: %w", err)
	}
	return nil
}

// ReplaceNew deletes every alert still in status "new" and inserts alerts
// in one transaction. Alerts whose (type, facility) pair already exists in a
// reviewed state are skipped. It returns the number of rows inserted.
func (r *AlertRepository) ReplaceNew(ctx context.Context, alerts []domain.FraudAlert) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %v", domain.ErrAlertSink, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM fraud_alerts WHERE status = ?`), string(domain.AlertStatusNew)); err != nil {
		return 0, fmt.Errorf("%w: clear new alerts: %v", domain.ErrAlertSink, err)
	}

	insert := r.rebind(`
		INSERT INTO fraud_alerts (alert_type, severity, facility_id, facility_name, description, metrics, status, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (alert_type, facility_id) DO NOTHING`)

	inserted := 0
	now := time.Now().UTC()
	for _, a := range alerts {
		metrics := []byte("{}")
		if a.Metrics != nil {
			b, err := json.Marshal(a.Metrics)
			if err != nil {
				return 0, fmt.Errorf("%w: encode metrics %s/%s: %v", domain.ErrAlertSink, a.AlertType, a.FacilityID, err)
			}
			metrics = b
		}
		status := a.Status
		if status == "" {
			status = domain.AlertStatusNew
		}
		detected := a.DetectedAt
		if detected.IsZero() {
			detected = now
		}

		res, err := tx.ExecContext(ctx, insert,
			string(a.AlertType),
			string(a.Severity),
			a.FacilityID,
			a.FacilityName,
			a.Description,
			string(metrics),
			string(status),
			detected,
		)
		if err != nil {
			return 0, fmt.Errorf("%w: insert %s/%s: %v", domain.ErrAlertSink, a.AlertType, a.FacilityID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", domain.ErrAlertSink, err)
	}
	return inserted, nil
}

// ListNew returns unreviewed alerts, high severity first, newest first.
func (r *AlertRepository) ListNew(ctx context.Context, limit int) ([]domain.FraudAlert, error) {
	if limit <= 0 {
		limit = DefaultAlertLimit
	}
	rows, err := r.db.QueryContext(ctx, r.rebind(`
		SELECT id, alert_type, severity, facility_id, facility_name, description, metrics, status, detected_at
		FROM fraud_alerts
		WHERE status = ?
		ORDER BY severity ASC, detected_at DESC, id ASC
		LIMIT ?`), string(domain.AlertStatusNew), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	out := []domain.FraudAlert{}
	for rows.Next() {
		var a domain.FraudAlert
		var alertType, severity, status string
		var name, desc, metrics sql.NullString
		if err := rows.Scan(&a.ID, &alertType, &severity, &a.FacilityID, &name, &desc, &metrics, &status, &a.DetectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.AlertType = domain.AlertType(alertType)
		a.Severity = domain.Severity(severity)
		a.Status = domain.AlertStatus(status)
		a.FacilityName = name.String
		a.Description = desc.String
		a.Metrics = domain.Attrs{}
		if metrics.Valid && metrics.String != "" {
			if err := json.Unmarshal([]byte(metrics.String), &a.Metrics); err != nil {
				a.Metrics = domain.Attrs{}
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// rebind turns ? placeholders into $n for Postgres.
func (r *AlertRepository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
