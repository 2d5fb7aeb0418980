package domain

import "time"

type Attrs map[string]any

// FraudAlert is a row of the persisted alert table. Rows still in status
// "new" are replaced by every run; reviewed rows are left alone.
type FraudAlert struct {
	ID           int64       `json:"id,omitempty"`
	AlertType    AlertType   `json:"alert_type"`
	Severity     Severity    `json:"severity"`
	FacilityID   string      `json:"facility_id"`
	FacilityName string      `json:"facility_name"`
	Description  string      `json:"description"`
	Metrics      Attrs       `json:"metrics"`
	Status       AlertStatus `json:"status"`
	DetectedAt   time.Time   `json:"detected_at"`
}
