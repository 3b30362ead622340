package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a platform account. Credentials are stored locally; tokens are
// issued by the auth service.
type User struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	FirstName    string    `gorm:"size:100" json:"first_name"`
	LastName     string    `gorm:"size:100" json:"last_name"`
	PasswordHash []byte    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Applications  []CompanyApplication `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CreditRatings []CreditRating       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Profile       *UserProfile         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns a UUID primary key when none was set.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// FullName returns "First Last" with missing parts elided.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// DashboardView values accepted for UserProfile.DefaultDashboardView.
const (
	DashboardViewOverview = "overview"
	DashboardViewReports  = "reports"
	DashboardViewHistory  = "history"
)

// UserProfile holds per-user dashboard preferences and notification flags.
// Created lazily on first dashboard access.
type UserProfile struct {
	ProfileID uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uuid.UUID `gorm:"type:char(36);not null;uniqueIndex" json:"user_id"`

	PrimaryCompanyName string `gorm:"size:200" json:"primary_company_name"`
	JobTitle           string `gorm:"size:100" json:"job_title"`
	PhoneNumber        string `gorm:"size:20" json:"phone_number"`

	EmailNotifications bool `gorm:"not null;default:true" json:"email_notifications"`
	SMSNotifications   bool `gorm:"not null;default:false" json:"sms_notifications"`
	MarketingEmails    bool `gorm:"not null;default:false" json:"marketing_emails"`

	DefaultDashboardView string `gorm:"size:20;not null;default:overview" json:"default_dashboard_view"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name for UserProfile
func (UserProfile) TableName() string {
	return "user_profiles"
}

// RefreshToken stores a hashed refresh token for session rotation and
// revocation. The raw token never touches the database.
type RefreshToken struct {
	TokenID   uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    uuid.UUID `gorm:"type:char(36);not null;index"`
	TokenHash string    `gorm:"size:128;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null;index"`
	Revoked   bool      `gorm:"not null;default:false"`
	UserAgent string    `gorm:"size:512"`
	IP        string    `gorm:"size:45"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the table name for RefreshToken
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}
