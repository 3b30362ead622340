package models

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus is the flat status enum for a company application.
type ApplicationStatus string

const (
	StatusPending      ApplicationStatus = "pending"
	StatusUnderReview  ApplicationStatus = "under_review"
	StatusApproved     ApplicationStatus = "approved"
	StatusRejected     ApplicationStatus = "rejected"
	StatusRequiresInfo ApplicationStatus = "requires_info"
)

// Editable reports whether an application in this status may still be
// modified by its owner.
func (s ApplicationStatus) Editable() bool {
	return s == StatusPending || s == StatusRequiresInfo
}

// OpenStatuses are the statuses that count as an in-flight application for
// the one-active-application-per-user guard.
var OpenStatuses = []ApplicationStatus{StatusPending, StatusUnderReview}

// AssignmentType values for the intake form.
const (
	AssignmentPurchase = "Purchase"
	AssignmentSale     = "Sale"
	AssignmentBoth     = "Both"
)

// CompanyApplication stores a company registration application from the
// multi-step intake form. Applications are never deleted; their lifecycle is
// the status field.
type CompanyApplication struct {
	ApplicationID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	// Step 1: company information
	CompanyName        string `gorm:"size:200;not null" json:"company_name"`
	BusinessType       string `gorm:"size:100;not null" json:"business_type"`
	RegistrationNumber string `gorm:"size:50;not null;uniqueIndex" json:"registration_number"`
	EstablishedYear    int    `gorm:"not null" json:"established_year"`

	AddressLine1 string `gorm:"size:200;not null" json:"address_line_1"`
	AddressLine2 string `gorm:"size:200" json:"address_line_2"`
	City         string `gorm:"size:100;not null" json:"city"`
	State        string `gorm:"size:100;not null" json:"state"`
	PostalCode   string `gorm:"size:20;not null" json:"postal_code"`
	Country      string `gorm:"size:100;not null;default:India" json:"country"`

	PhoneNumber           string `gorm:"size:17;not null" json:"phone_number"`
	Email                 string `gorm:"size:255;not null" json:"email"`
	Website               string `gorm:"size:255" json:"website"`
	PersonInCharge        string `gorm:"size:200" json:"person_in_charge"`
	PersonalContactNumber string `gorm:"size:17" json:"personal_contact_number"`
	AssignmentType        string `gorm:"size:20;not null;default:Purchase" json:"assignment_type"`

	// Step 2: business search
	SelectedBusinessCategory string `gorm:"size:100;not null" json:"selected_business_category"`
	BusinessSubcategory      string `gorm:"size:100" json:"business_subcategory"`
	AnnualRevenue            string `gorm:"size:50" json:"annual_revenue"`
	EmployeeCount            string `gorm:"size:50" json:"employee_count"`

	// Step 3: business code
	BusinessVerificationCode string `gorm:"size:100;not null" json:"business_verification_code"`

	// Step 4: terms and conditions
	TermsAccepted         bool `gorm:"not null;default:false" json:"terms_accepted"`
	PrivacyPolicyAccepted bool `gorm:"not null;default:false" json:"privacy_policy_accepted"`
	MarketingConsent      bool `gorm:"not null;default:false" json:"marketing_consent"`

	// Owner is optional: unauthenticated submission is allowed.
	UserID *uuid.UUID        `gorm:"type:char(36);index" json:"user_id,omitempty"`
	Status ApplicationStatus `gorm:"size:20;not null;default:pending;index" json:"application_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Review metadata, set by reviewers only.
	ReviewedByID *uuid.UUID `gorm:"type:char(36)" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	ReviewNotes  string     `gorm:"type:text" json:"review_notes"`

	Documents     []ApplicationDocument      `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"documents,omitempty"`
	StatusHistory []ApplicationStatusHistory `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"status_history,omitempty"`
}

// TableName overrides the table name for CompanyApplication
func (CompanyApplication) TableName() string {
	return "company_applications"
}

// DocumentType values for application attachments.
const (
	DocumentBusinessLicense    = "business_license"
	DocumentTaxCertificate     = "tax_certificate"
	DocumentIncorporationCert  = "incorporation_cert"
	DocumentFinancialStatement = "financial_statement"
	DocumentOther              = "other"
)

// ApplicationDocument is a typed attachment on an application. Immutable
// after upload; the file itself lives in blob storage, only the reference is
// kept here.
type ApplicationDocument struct {
	DocumentID    uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ApplicationID uint64    `gorm:"not null;index" json:"application"`
	DocumentType  string    `gorm:"size:50;not null" json:"document_type"`
	DocumentName  string    `gorm:"size:200;not null" json:"document_name"`
	DocumentFile  string    `gorm:"size:512;not null" json:"document_file"`
	UploadedAt    time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

// TableName overrides the table name for ApplicationDocument
func (ApplicationDocument) TableName() string {
	return "application_documents"
}

// ApplicationStatusHistory is the append-only audit ledger of status
// transitions. Rows are never edited or deleted; the first row of every
// application has OldStatus == "".
type ApplicationStatusHistory struct {
	HistoryID     uint64            `gorm:"primaryKey;autoIncrement" json:"id"`
	ApplicationID uint64            `gorm:"not null;index" json:"application"`
	OldStatus     ApplicationStatus `gorm:"size:20" json:"old_status"`
	NewStatus     ApplicationStatus `gorm:"size:20;not null" json:"new_status"`
	ChangedByID   *uuid.UUID        `gorm:"type:char(36)" json:"changed_by,omitempty"`
	ChangeReason  string            `gorm:"type:text" json:"change_reason"`
	ChangedAt     time.Time         `gorm:"autoCreateTime" json:"changed_at"`
}

// TableName overrides the table name for ApplicationStatusHistory
func (ApplicationStatusHistory) TableName() string {
	return "application_status_history"
}
