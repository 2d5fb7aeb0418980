package domain

type NodeKind string

const (
	NodeFacility NodeKind = "facility"
	NodeOwner    NodeKind = "owner"
	NodeAdmin    NodeKind = "admin"
	NodePhone    NodeKind = "phone"
	NodeAddress  NodeKind = "address"
)

// AttributeType is the kind of identifying value two facilities can share.
type AttributeType string

const (
	AttrOwner   AttributeType = "owner"
	AttrAdmin   AttributeType = "admin"
	AttrPhone   AttributeType = "phone"
	AttrAddress AttributeType = "address"
)

// AttributeTypes lists the linkage attributes in a fixed order.
var AttributeTypes = []AttributeType{AttrOwner, AttrAdmin, AttrPhone, AttrAddress}

type Severity string

const (
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Metric string

const (
	MetricRevenuePerVisit Metric = "revenue_per_visit"
	MetricProfitMargin    Metric = "profit_margin"
)

type AlertType string

const (
	AlertHighRevenuePerVisit   AlertType = "high_revenue_per_visit"
	AlertExtremeProfitMargin   AlertType = "extreme_profit_margin"
	AlertSharedIdentityCluster AlertType = "shared_identity_cluster"
	AlertEnsembleAnomaly       AlertType = "ensemble_anomaly"
)

type AlertStatus string

const (
	AlertStatusNew           AlertStatus = "new"
	AlertStatusInvestigating AlertStatus = "investigating"
	AlertStatusDismissed     AlertStatus = "dismissed"
	AlertStatusConfirmed     AlertStatus = "confirmed"
)
