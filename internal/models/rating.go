package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ReportStatus is the lifecycle state of an issued credit report.
type ReportStatus string

const (
	ReportEffectiveness ReportStatus = "effectiveness"
	ReportProcessing    ReportStatus = "processing"
	ReportExpiration    ReportStatus = "expiration"
	ReportCancelled     ReportStatus = "cancelled"
)

// CreditRating is an issued assessment record with grade, validity window and
// financial detail. Owned by a user; soft-hidden via IsActive.
type CreditRating struct {
	RatingID uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID   uuid.UUID `gorm:"type:char(36);not null;index" json:"user_id"`

	CompanyName string `gorm:"size:200;not null" json:"company_name"`
	Grade       string `gorm:"size:10;not null" json:"credit_rating"`

	ApplicationDate datatypes.Date `json:"application_date"`
	SettlementDate  datatypes.Date `json:"settlement_date"`
	EvaluationDate  datatypes.Date `json:"evaluation_date"`
	ExpirationDate  datatypes.Date `json:"expiration_date"`

	ReportStatus ReportStatus `gorm:"size:20;not null;default:processing" json:"report_status"`

	SubmissionOffice string `gorm:"size:200;not null;default:'View the main building'" json:"submission_office"`
	ReportFile       string `gorm:"size:512" json:"report_file"`

	AnnualRevenue *decimal.Decimal `gorm:"type:decimal(15,2)" json:"annual_revenue"`
	AssetsValue   *decimal.Decimal `gorm:"type:decimal(15,2)" json:"assets_value"`
	Liabilities   *decimal.Decimal `gorm:"type:decimal(15,2)" json:"liabilities"`

	RatingRationale string `gorm:"type:text" json:"rating_rationale"`
	KeyStrengths    string `gorm:"type:text" json:"key_strengths"`
	KeyConcerns     string `gorm:"type:text" json:"key_concerns"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsActive  bool      `gorm:"not null;default:true;index" json:"is_active"`
}

// TableName overrides the table name for CreditRating
func (CreditRating) TableName() string {
	return "credit_ratings"
}

// Today returns the current UTC date truncated to midnight. Date columns are
// compared against this value so a report expiring today is still valid.
func Today() time.Time {
	y, m, d := time.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsExpired reports whether the validity window has passed. Boundary: an
// expiration date equal to today is not expired.
func (r *CreditRating) IsExpired() bool {
	return dateOnly(time.Time(r.ExpirationDate)).Before(Today())
}

// DaysUntilExpiration returns whole days until expiry; negative once expired.
func (r *CreditRating) DaysUntilExpiration() int {
	delta := dateOnly(time.Time(r.ExpirationDate)).Sub(Today())
	return int(delta.Hours() / 24)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ActivityType values recorded in the dashboard activity log.
const (
	ActivityLogin             = "login"
	ActivityLogout            = "logout"
	ActivityViewDashboard     = "view_dashboard"
	ActivityViewReport        = "view_report"
	ActivityDownloadReport    = "download_report"
	ActivityPrintInvoice      = "print_invoice"
	ActivityUpdateProfile     = "update_profile"
	ActivitySubmitApplication = "submit_application"
)

// DashboardActivity is an append-only log of user actions. Write-only from
// the application's perspective; read back for display and audit.
type DashboardActivity struct {
	ActivityID   uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uuid.UUID `gorm:"type:char(36);not null;index" json:"user_id"`
	ActivityType string    `gorm:"size:20;not null" json:"activity_type"`
	Description  string    `gorm:"size:200;not null" json:"description"`
	IPAddress    string    `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent    string    `gorm:"type:text" json:"user_agent,omitempty"`
	Metadata     JSON      `gorm:"type:json" json:"metadata,omitempty"`

	RelatedCreditRatingID *uint64       `json:"related_credit_rating,omitempty"`
	RelatedCreditRating   *CreditRating `gorm:"foreignKey:RelatedCreditRatingID;constraint:OnDelete:SET NULL" json:"-"`

	CreatedAt time.Time `gorm:"index" json:"timestamp"`
}

// TableName overrides the table name for DashboardActivity
func (DashboardActivity) TableName() string {
	return "dashboard_activities"
}

// AccessType values for report access grants.
const (
	AccessView     = "view"
	AccessDownload = "download"
	AccessPrint    = "print"
	AccessShare    = "share"
)

// ReportAccess records how and when a user last accessed a credit rating's
// report. Unique per (user, rating); each access event overwrites the row
// instead of inserting a duplicate.
type ReportAccess struct {
	AccessID       uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uuid.UUID  `gorm:"type:char(36);not null;index:idx_user_rating,unique" json:"user_id"`
	CreditRatingID uint64     `gorm:"not null;index:idx_user_rating,unique" json:"credit_rating"`
	AccessType     string     `gorm:"size:20;not null;default:view" json:"access_type"`
	AccessedAt     time.Time  `json:"accessed_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	IsActive       bool       `gorm:"not null;default:true" json:"is_active"`
}

// TableName overrides the table name for ReportAccess
func (ReportAccess) TableName() string {
	return "report_access"
}
