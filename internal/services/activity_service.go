package services

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/vcredible/vcredible-api/internal/models"
	"gorm.io/gorm"
)

// RecordActivity appends a row to the dashboard activity log. Log-and-continue
// semantics: a failed write is reported for operational visibility but never
// propagated, so bookkeeping can't abort a caller's primary operation.
func RecordActivity(db *gorm.DB, userID uuid.UUID, activityType, description string, relatedRatingID *uint64, ip, userAgent string) {
	activity := models.DashboardActivity{
		UserID:                userID,
		ActivityType:          activityType,
		Description:           description,
		IPAddress:             ip,
		UserAgent:             userAgent,
		RelatedCreditRatingID: relatedRatingID,
	}

	if err := db.Create(&activity).Error; err != nil {
		log.Printf("activity log write failed: user=%s type=%s: %v", userID, activityType, err)
	}
}

// GrantAccess upserts the report access grant for (user, rating). One active
// grant per pair: each access event overwrites the access type and timestamp
// and reactivates the grant instead of inserting a duplicate row. Failures
// are swallowed like activity writes.
func GrantAccess(db *gorm.DB, userID uuid.UUID, ratingID uint64, accessType string) {
	access := models.ReportAccess{
		UserID:         userID,
		CreditRatingID: ratingID,
	}

	err := db.Where("user_id = ? AND credit_rating_id = ?", userID, ratingID).
		Assign(map[string]interface{}{
			"access_type": accessType,
			"accessed_at": time.Now().UTC(),
			"is_active":   true,
		}).
		FirstOrCreate(&access).Error
	if err != nil {
		log.Printf("report access upsert failed: user=%s rating=%d: %v", userID, ratingID, err)
	}
}
