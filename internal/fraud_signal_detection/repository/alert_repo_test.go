package repository

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
)

func setupAlertRepo(t *testing.T) (*AlertRepository, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewAlertRepository(db, DialectPostgres), mock, db
}

func sampleAlerts() []domain.FraudAlert {
	return []domain.FraudAlert{
		{
			AlertType:    domain.AlertHighRevenuePerVisit,
			Severity:     domain.SeverityHigh,
			FacilityID:   "F1",
			FacilityName: "Alpha",
			Description:  "Revenue per visit: $900.00 (Z-score: 3.40)",
			Metrics:      domain.Attrs{"z_score": 3.4},
		},
		{
			AlertType:    domain.AlertExtremeProfitMargin,
			Severity:     domain.SeverityMedium,
			FacilityID:   "F2",
			FacilityName: "Beta",
			Description:  "Profit margin: 55.0%",
		},
	}
}

func TestAlertRepository_ReplaceNew(t *testing.T) {
	repo, mock, db := setupAlertRepo(t)
	defer db.Close()

	t.Run("clears new alerts and inserts in one transaction", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM fraud_alerts WHERE status = \$1`).
			WithArgs("new").
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec(`INSERT INTO fraud_alerts`).
			WithArgs("high_revenue_per_visit", "high", "F1", "Alpha", sqlmock.AnyArg(), `{"z_score":3.4}`, "new", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		// already reviewed: ON CONFLICT DO NOTHING affects no rows
		mock.ExpectExec(`INSERT INTO fraud_alerts`).
			WithArgs("extreme_profit_margin", "medium", "F2", "Beta", sqlmock.AnyArg(), "{}", "new", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		n, err := repo.ReplaceNew(context.Background(), sampleAlerts())
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on insert failure", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM fraud_alerts`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO fraud_alerts`).WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		_, err := repo.ReplaceNew(context.Background(), sampleAlerts())
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrAlertSink))
		assert.Contains(t, err.Error(), "disk full")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unencodable metrics roll back", func(t *testing.T) {
		bad := sampleAlerts()
		bad[0].Metrics = domain.Attrs{"z_score": math.Inf(1)}

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM fraud_alerts`).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectRollback()

		_, err := repo.ReplaceNew(context.Background(), bad)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrAlertSink))
		assert.Contains(t, err.Error(), "encode metrics high_revenue_per_visit/F1")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		mock.ExpectBegin().WillReturnError(errors.New("conn refused"))

		_, err := repo.ReplaceNew(context.Background(), nil)
		assert.True(t, errors.Is(err, domain.ErrAlertSink))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAlertRepository_ListNew(t *testing.T) {
	repo, mock, db := setupAlertRepo(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, alert_type, severity`).
		WithArgs("new", DefaultAlertLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "alert_type", "severity", "facility_id", "facility_name", "description", "metrics", "status", "detected_at"}).
			AddRow(int64(1), "high_revenue_per_visit", "high", "F1", "Alpha", "desc", `{"z_score":3.4}`, "new", now).
			AddRow(int64(2), "extreme_profit_margin", "medium", "F2", nil, nil, nil, "new", now))

	alerts, err := repo.ListNew(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, domain.AlertHighRevenuePerVisit, alerts[0].AlertType)
	assert.Equal(t, 3.4, alerts[0].Metrics["z_score"])
	assert.Equal(t, "", alerts[1].FacilityName)
	assert.Empty(t, alerts[1].Metrics)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRepository_Rebind(t *testing.T) {
	pg := NewAlertRepository(nil, DialectPostgres)
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))

	lite := NewAlertRepository(nil, DialectSQLite)
	assert.Equal(t, "a = ? AND b = ?", lite.rebind("a = ? AND b = ?"))

	assert.Equal(t, DialectPostgres, NewAlertRepository(nil, "").dialect)
}

func TestAlertRepository_SQLitePreservesReviewedAlerts(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	ctx := context.Background()
	repo := NewAlertRepository(db, DialectSQLite)
	require.NoError(t, repo.EnsureSchema(ctx))

	n, err := repo.ReplaceNew(ctx, sampleAlerts())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// an analyst picks up F1
	_, err = db.Exec(`UPDATE fraud_alerts SET status = 'investigating' WHERE facility_id = 'F1'`)
	require.NoError(t, err)

	n, err = repo.ReplaceNew(ctx, sampleAlerts())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	alerts, err := repo.ListNew(ctx, 10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "F2", alerts[0].FacilityID)

	var total int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM fraud_alerts`).Scan(&total))
	assert.Equal(t, 2, total)
}
