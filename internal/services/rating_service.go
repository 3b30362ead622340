package services

import (
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/vcredible/vcredible-api/data"
	"github.com/vcredible/vcredible-api/internal/models"
	"github.com/vcredible/vcredible-api/internal/types"
	"gorm.io/gorm"
)

// RatingOutput decorates a credit rating with the derived expiration fields
// clients render next to the grade.
type RatingOutput struct {
	models.CreditRating
	IsExpired           bool `json:"is_expired"`
	DaysUntilExpiration int  `json:"days_until_expiration"`
}

// ReportFileResult points the handler at the stored report document.
type ReportFileResult struct {
	RatingID    uint64 `json:"rating_id"`
	CompanyName string `json:"company_name"`
	ReportFile  string `json:"report_file"`
}

func wrapRating(rating models.CreditRating) RatingOutput {
	return RatingOutput{
		CreditRating:        rating,
		IsExpired:           rating.IsExpired(),
		DaysUntilExpiration: rating.DaysUntilExpiration(),
	}
}

func wrapRatings(ratings []models.CreditRating) []RatingOutput {
	out := make([]RatingOutput, 0, len(ratings))
	for _, rating := range ratings {
		out = append(out, wrapRating(rating))
	}
	return out
}

// findRating resolves one active rating owned by the actor. Missing, foreign
// and deactivated ratings all come back as the same NotFoundError.
func findRating(db *gorm.DB, ratingID uint64, actor *types.Principal) (*models.CreditRating, error) {
	var rating models.CreditRating
	err := db.Where("rating_id = ? AND user_id = ? AND is_active = ?", ratingID, actor.ID, true).
		First(&rating).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("rating lookup miss: id=%d user=%s", ratingID, actor.ID)
		return nil, &types.NotFoundError{Resource: "credit rating"}
	}
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

// ListActiveRatings returns every active rating owned by the actor, most
// recently created first.
func ListActiveRatings(db *gorm.DB, actor *types.Principal) ([]RatingOutput, error) {
	var ratings []models.CreditRating
	err := db.Where("user_id = ? AND is_active = ?", actor.ID, true).
		Order("created_at DESC, rating_id DESC").
		Find(&ratings).Error
	if err != nil {
		return nil, err
	}
	return wrapRatings(ratings), nil
}

// RatingDetail returns one rating and records the view, both in the activity
// feed and in the access ledger.
func RatingDetail(db *gorm.DB, ratingID uint64, actor *types.Principal, ip, userAgent string) (*RatingOutput, error) {
	rating, err := findRating(db, ratingID, actor)
	if err != nil {
		return nil, err
	}

	RecordActivity(db, actor.ID, models.ActivityViewReport,
		"Viewed report for "+rating.CompanyName, &rating.RatingID, ip, userAgent)
	GrantAccess(db, actor.ID, rating.RatingID, models.AccessView)

	out := wrapRating(*rating)
	return &out, nil
}

// ActiveReports lists ratings currently in effect: effective status and an
// expiration date that has not passed. A report expiring today still counts.
func ActiveReports(db *gorm.DB, actor *types.Principal) ([]RatingOutput, error) {
	var ratings []models.CreditRating
	err := db.Where("user_id = ? AND is_active = ? AND report_status = ? AND expiration_date >= ?",
		actor.ID, true, models.ReportEffectiveness, models.Today()).
		Order("created_at DESC, rating_id DESC").
		Find(&ratings).Error
	if err != nil {
		return nil, err
	}
	return wrapRatings(ratings), nil
}

// ReportHistory lists every active rating issued to the actor regardless of
// report status, most recently created first. Deactivated ratings stay out.
func ReportHistory(db *gorm.DB, actor *types.Principal) ([]RatingOutput, error) {
	var ratings []models.CreditRating
	err := db.Where("user_id = ? AND is_active = ?", actor.ID, true).
		Order("created_at DESC, rating_id DESC").
		Find(&ratings).Error
	if err != nil {
		return nil, err
	}
	return wrapRatings(ratings), nil
}

// DownloadReport resolves the stored report file for an owned rating and
// records the download.
func DownloadReport(db *gorm.DB, ratingID uint64, actor *types.Principal, ip, userAgent string) (*ReportFileResult, error) {
	rating, err := findRating(db, ratingID, actor)
	if err != nil {
		return nil, err
	}

	RecordActivity(db, actor.ID, models.ActivityDownloadReport,
		"Downloaded report for "+rating.CompanyName, &rating.RatingID, ip, userAgent)
	GrantAccess(db, actor.ID, rating.RatingID, models.AccessDownload)

	return &ReportFileResult{
		RatingID:    rating.RatingID,
		CompanyName: rating.CompanyName,
		ReportFile:  rating.ReportFile,
	}, nil
}

// PrintInvoice records an invoice print. With a rating id the rating must be
// owned by the actor and the print is added to the access ledger; without one
// only a generic activity row is written.
func PrintInvoice(db *gorm.DB, ratingID *uint64, actor *types.Principal, ip, userAgent string) error {
	if ratingID == nil {
		RecordActivity(db, actor.ID, models.ActivityPrintInvoice, "Printed invoice", nil, ip, userAgent)
		return nil
	}

	rating, err := findRating(db, *ratingID, actor)
	if err != nil {
		return err
	}

	RecordActivity(db, actor.ID, models.ActivityPrintInvoice,
		"Printed invoice for "+rating.CompanyName, &rating.RatingID, ip, userAgent)
	GrantAccess(db, actor.ID, rating.RatingID, models.AccessPrint)
	return nil
}

// RatingGrade is one entry of the embedded grade scale.
type RatingGrade struct {
	Grade       string `json:"grade"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

var (
	gradeScale     []RatingGrade
	gradeScaleOnce sync.Once
)

// RatingGrades returns the grade scale, best to worst. The embedded file is
// decoded once.
func RatingGrades() []RatingGrade {
	gradeScaleOnce.Do(func() {
		if err := json.Unmarshal(data.RatingGradesJSON, &gradeScale); err != nil {
			log.Printf("grade scale decode failed: %v", err)
		}
	})
	return gradeScale
}
