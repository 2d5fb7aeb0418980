package domain

import "strings"

// Facility is one licensed facility as delivered by storage. It is read-only
// for the duration of a run.
type Facility struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name,omitempty" yaml:"name,omitempty"`
	Category      string `json:"category,omitempty" yaml:"category,omitempty"`
	Address       string `json:"address,omitempty" yaml:"address,omitempty"`
	City          string `json:"city,omitempty" yaml:"city,omitempty"`
	Zip           string `json:"zip,omitempty" yaml:"zip,omitempty"`
	County        string `json:"county,omitempty" yaml:"county,omitempty"`
	Phone         string `json:"phone,omitempty" yaml:"phone,omitempty"`
	OwnerName     string `json:"owner_name,omitempty" yaml:"owner_name,omitempty"`
	AdminName     string `json:"admin_name,omitempty" yaml:"admin_name,omitempty"`
	AdminEmail    string `json:"admin_email,omitempty" yaml:"admin_email,omitempty"`
	LicenseNumber string `json:"license_number,omitempty" yaml:"license_number,omitempty"`
	Capacity      int    `json:"capacity,omitempty" yaml:"capacity,omitempty" validate:"gte=0"`
	InService     bool   `json:"in_service,omitempty" yaml:"in_service,omitempty"`
}

// HasID reports whether f carries a usable id. Whitespace-only ids count as
// missing.
func (f Facility) HasID() bool { return strings.TrimSpace(f.ID) != "" }

// FinancialRecord is the annual filing joined to a facility. Nil numeric
// fields were not reported.
type FinancialRecord struct {
	FacilityNumber string   `json:"facility_number,omitempty" yaml:"facility_number,omitempty"`
	LicenseNumber  string   `json:"license_number,omitempty" yaml:"license_number,omitempty"`
	Year           int      `json:"year,omitempty" yaml:"year,omitempty"`
	TotalRevenue   *float64 `json:"total_revenue" yaml:"total_revenue"`
	TotalExpenses  *float64 `json:"total_expenses" yaml:"total_expenses"`
	NetIncome      *float64 `json:"net_income" yaml:"net_income"`
	TotalVisits    *float64 `json:"total_visits" yaml:"total_visits"`
	TotalPatients  *float64 `json:"total_patients" yaml:"total_patients"`
}

// Snapshot is the full input of one analysis run.
type Snapshot struct {
	Facilities []Facility        `json:"facilities" yaml:"facilities" validate:"dive"`
	Financials []FinancialRecord `json:"financials" yaml:"financials"`
}

// F returns a pointer to v, for building records in code.
func F(v float64) *float64 { return &v }

// Val dereferences p, treating nil as 0.
func Val(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// FinancialIndex resolves a facility's financial record by facility number,
// falling back to license number.
type FinancialIndex struct {
	byFacility map[string]*FinancialRecord
	byLicense  map[string]*FinancialRecord
	size       int
	unkeyed    []int
}

// NewFinancialIndex indexes records. When a key repeats, the most recent
// year wins; equal years keep the later record. Records with neither key
// cannot be joined and are only remembered by position.
func NewFinancialIndex(records []FinancialRecord) *FinancialIndex {
	ix := &FinancialIndex{
		byFacility: map[string]*FinancialRecord{},
		byLicense:  map[string]*FinancialRecord{},
		size:       len(records),
	}
	for i := range records {
		r := &records[i]
		facility, license := strings.TrimSpace(r.FacilityNumber), strings.TrimSpace(r.LicenseNumber)
		if facility == "" && license == "" {
			ix.unkeyed = append(ix.unkeyed, i)
			continue
		}
		if facility != "" {
			put(ix.byFacility, facility, r)
		}
		if license != "" {
			put(ix.byLicense, license, r)
		}
	}
	return ix
}

func put(m map[string]*FinancialRecord, key string, r *FinancialRecord) {
	if cur, ok := m[key]; ok && cur.Year > r.Year {
		return
	}
	m[key] = r
}

// Lookup returns the record for f, if any.
func (ix *FinancialIndex) Lookup(f Facility) (*FinancialRecord, bool) {
	if ix == nil {
		return nil, false
	}
	if id := strings.TrimSpace(f.ID); id != "" {
		if r, ok := ix.byFacility[id]; ok {
			return r, true
		}
	}
	if lic := strings.TrimSpace(f.LicenseNumber); lic != "" {
		if r, ok := ix.byLicense[lic]; ok {
			return r, true
		}
	}
	return nil, false
}

// Unkeyed returns the positions of records that have neither a facility
// nor a license number.
func (ix *FinancialIndex) Unkeyed() []int {
	if ix == nil {
		return nil
	}
	return append([]int(nil), ix.unkeyed...)
}

func (ix *FinancialIndex) Len() int {
	if ix == nil {
		return 0
	}
	return ix.size
}
