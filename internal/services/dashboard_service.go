package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/vcredible/vcredible-api/internal/models"
	"github.com/vcredible/vcredible-api/internal/types"
	"github.com/vcredible/vcredible-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/hints"
)

// OverviewResult is the dashboard landing payload.
type OverviewResult struct {
	User struct {
		Name      string `json:"name"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"user"`
	Profile          *models.UserProfile        `json:"profile"`
	Stats            map[string]interface{}     `json:"stats"`
	RecentRatings    []RatingOutput             `json:"recent_credit_ratings"`
	RecentActivities []models.DashboardActivity `json:"recent_activities"`
}

// ProfileUpdateInput patches the actor's profile; nil fields are untouched.
type ProfileUpdateInput struct {
	PrimaryCompanyName   *string `json:"primary_company_name" validate:"omitempty,max=200"`
	JobTitle             *string `json:"job_title" validate:"omitempty,max=100"`
	PhoneNumber          *string `json:"phone_number" validate:"omitempty,phone"`
	EmailNotifications   *bool   `json:"email_notifications"`
	SMSNotifications     *bool   `json:"sms_notifications"`
	MarketingEmails      *bool   `json:"marketing_emails"`
	DefaultDashboardView *string `json:"default_dashboard_view" validate:"omitempty,oneof=overview reports history"`
}

// EnsureProfile fetches the actor's profile, creating it with defaults on
// first access.
func EnsureProfile(db *gorm.DB, userID uuid.UUID) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := db.Where(models.UserProfile{UserID: userID}).
		Attrs(models.UserProfile{
			EmailNotifications:   true,
			DefaultDashboardView: models.DashboardViewOverview,
		}).
		FirstOrCreate(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Overview assembles the profile, the dashboard stats, the most recently
// created active ratings and the activity feed for the actor, and records the
// visit. Activity logging failure never fails the overview itself.
func Overview(db *gorm.DB, actor *types.Principal, ip, userAgent string) (*OverviewResult, error) {
	profile, err := EnsureProfile(db, actor.ID)
	if err != nil {
		return nil, err
	}

	user, err := GetUser(db, actor)
	if err != nil {
		return nil, err
	}

	stats, err := overviewStats(db, actor)
	if err != nil {
		return nil, err
	}

	var ratings []models.CreditRating
	err = db.Where("user_id = ? AND is_active = ?", actor.ID, true).
		Order("created_at DESC, rating_id DESC").Limit(5).
		Find(&ratings).Error
	if err != nil {
		return nil, err
	}

	var activities []models.DashboardActivity
	err = db.Where("user_id = ?", actor.ID).
		Order("created_at DESC").Limit(10).
		Find(&activities).Error
	if err != nil {
		return nil, err
	}

	RecordActivity(db, actor.ID, models.ActivityViewDashboard, "Viewed dashboard", nil, ip, userAgent)

	result := &OverviewResult{
		Profile:          profile,
		Stats:            stats,
		RecentRatings:    wrapRatings(ratings),
		RecentActivities: activities,
	}
	result.User.Name = user.FullName()
	result.User.Email = user.Email
	result.User.FirstName = user.FirstName
	result.User.LastName = user.LastName
	return result, nil
}

// overviewStats computes the headline counters. A report counts as active
// only while effective and not yet past its expiration date; the expired
// bucket folds date-expired and status-expired reports into one query so a
// report in both states is counted once.
func overviewStats(db *gorm.DB, actor *types.Principal) (map[string]interface{}, error) {
	today := models.Today()

	var totalApplications, pendingApplications, approvedApplications int64
	err := db.Model(&models.CompanyApplication{}).
		Clauses(hints.Comment("select", "dashboard stats")).
		Where("user_id = ?", actor.ID).
		Count(&totalApplications).Error
	if err != nil {
		return nil, err
	}
	err = db.Model(&models.CompanyApplication{}).
		Where("user_id = ? AND status = ?", actor.ID, models.StatusPending).
		Count(&pendingApplications).Error
	if err != nil {
		return nil, err
	}
	err = db.Model(&models.CompanyApplication{}).
		Where("user_id = ? AND status = ?", actor.ID, models.StatusApproved).
		Count(&approvedApplications).Error
	if err != nil {
		return nil, err
	}

	var totalReports, activeReports, expiredReports int64
	err = db.Model(&models.CreditRating{}).
		Where("user_id = ? AND is_active = ?", actor.ID, true).
		Count(&totalReports).Error
	if err != nil {
		return nil, err
	}
	err = db.Model(&models.CreditRating{}).
		Where("user_id = ? AND is_active = ? AND report_status = ? AND expiration_date >= ?",
			actor.ID, true, models.ReportEffectiveness, today).
		Count(&activeReports).Error
	if err != nil {
		return nil, err
	}
	err = db.Model(&models.CreditRating{}).
		Where("user_id = ? AND is_active = ? AND (expiration_date < ? OR report_status = ?)",
			actor.ID, true, today, models.ReportExpiration).
		Count(&expiredReports).Error
	if err != nil {
		return nil, err
	}

	latestGrade := "N/A"
	var latest models.CreditRating
	err = db.Where("user_id = ? AND is_active = ?", actor.ID, true).
		Order("created_at DESC, rating_id DESC").
		First(&latest).Error
	if err == nil {
		latestGrade = latest.Grade
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return map[string]interface{}{
		"total_applications":    totalApplications,
		"pending_applications":  pendingApplications,
		"approved_applications": approvedApplications,
		"total_reports":         totalReports,
		"active_reports":        activeReports,
		"expired_reports":       expiredReports,
		"latest_credit_rating":  latestGrade,
	}, nil
}

// GetProfile returns the actor's profile, creating it on first access.
func GetProfile(db *gorm.DB, actor *types.Principal) (*models.UserProfile, error) {
	return EnsureProfile(db, actor.ID)
}

// UpdateProfile applies a partial patch to the actor's profile and logs the
// change to the activity feed.
func UpdateProfile(db *gorm.DB, actor *types.Principal, patch ProfileUpdateInput, ip, userAgent string) (*models.UserProfile, error) {
	if verr := utils.ValidateStruct(patch); verr != nil {
		return nil, verr
	}

	profile, err := EnsureProfile(db, actor.ID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.PrimaryCompanyName != nil {
		updates["primary_company_name"] = *patch.PrimaryCompanyName
	}
	if patch.JobTitle != nil {
		updates["job_title"] = *patch.JobTitle
	}
	if patch.PhoneNumber != nil {
		updates["phone_number"] = *patch.PhoneNumber
	}
	if patch.EmailNotifications != nil {
		updates["email_notifications"] = *patch.EmailNotifications
	}
	if patch.SMSNotifications != nil {
		updates["sms_notifications"] = *patch.SMSNotifications
	}
	if patch.MarketingEmails != nil {
		updates["marketing_emails"] = *patch.MarketingEmails
	}
	if patch.DefaultDashboardView != nil {
		updates["default_dashboard_view"] = *patch.DefaultDashboardView
	}

	if len(updates) > 0 {
		if err := db.Model(profile).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	RecordActivity(db, actor.ID, models.ActivityUpdateProfile, "Updated profile", nil, ip, userAgent)
	return profile, nil
}

// RecentActivities returns the actor's latest activity rows, newest first.
func RecentActivities(db *gorm.DB, actor *types.Principal, limit int) ([]models.DashboardActivity, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var activities []models.DashboardActivity
	err := db.Where("user_id = ?", actor.ID).
		Order("created_at DESC").Limit(limit).
		Find(&activities).Error
	if err != nil {
		return nil, err
	}
	return activities, nil
}
