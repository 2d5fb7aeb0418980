package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
)

// Querier is the subset of *pgxpool.Pool the snapshot loader needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const (
	facilitiesQuery = `
		SELECT id, COALESCE(name, ''), COALESCE(category, ''), COALESCE(address, ''),
		       COALESCE(city, ''), COALESCE(zip, ''), COALESCE(county, ''), COALESCE(phone, ''),
		       COALESCE(owner_name, ''), COALESCE(admin_name, ''), COALESCE(admin_email, ''),
		       COALESCE(license_number, ''), COALESCE(capacity, 0), COALESCE(in_service, false)
		FROM facilities
		ORDER BY id
	`

	financialsQuery = `
		SELECT COALESCE(facility_number, ''), COALESCE(license_number, ''), COALESCE(year, 0),
		       total_revenue, total_expenses, net_income, total_visits, total_patients
		FROM financials
		ORDER BY facility_number, year
	`
)

// SnapshotRepository loads the facilities and financials tables.
type SnapshotRepository struct {
	db Querier
}

func NewSnapshotRepository(db Querier) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Load reads the full snapshot. A failing financials query is reported as
// domain.ErrFinancialJoinUnavailable.
func (r *SnapshotRepository) Load(ctx context.Context) (*domain.Snapshot, error) {
	facilities, err := r.facilities(ctx)
	if err != nil {
		return nil, err
	}
	financials, err := r.financials(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFinancialJoinUnavailable, err)
	}
	return &domain.Snapshot{Facilities: facilities, Financials: financials}, nil
}

func (r *SnapshotRepository) facilities(ctx context.Context) ([]domain.Facility, error) {
	rows, err := r.db.Query(ctx, facilitiesQuery)
	if err != nil {
		return nil, fmt.Errorf("query facilities: %w", err)
	}
	defer rows.Close()

	var out []domain.Facility
	for rows.Next() {
		var f domain.Facility
		if err := rows.Scan(&f.ID, &f.Name, &f.Category, &f.Address, &f.City, &f.Zip, &f.County,
			&f.Phone, &f.OwnerName, &f.AdminName, &f.AdminEmail, &f.LicenseNumber, &f.Capacity, &f.InService); err != nil {
			return nil, fmt.Errorf("scan facility: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read facilities: %w", err)
	}
	return out, nil
}

func (r *SnapshotRepository) financials(ctx context.Context) ([]domain.FinancialRecord, error) {
	rows, err := r.db.Query(ctx, financialsQuery)
	if err != nil {
		return nil, fmt.Errorf("query financials: %w", err)
	}
	defer rows.Close()

	var out []domain.FinancialRecord
	for rows.Next() {
		var fr domain.FinancialRecord
		if err := rows.Scan(&fr.FacilityNumber, &fr.LicenseNumber, &fr.Year,
			&fr.TotalRevenue, &fr.TotalExpenses, &fr.NetIncome, &fr.TotalVisits, &fr.TotalPatients); err != nil {
			return nil, fmt.Errorf("scan financial: %w", err)
		}
		out = append(out, fr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read financials: %w", err)
	}
	return out, nil
}
