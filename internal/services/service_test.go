package services_test

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/vcredible/vcredible-api/internal/models"
	"github.com/vcredible/vcredible-api/internal/services"
	"github.com/vcredible/vcredible-api/internal/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	// Auto-migrate models
	err = db.AutoMigrate(
		&models.User{},
		&models.UserProfile{},
		&models.RefreshToken{},
		&models.CompanyApplication{},
		&models.ApplicationDocument{},
		&models.ApplicationStatusHistory{},
		&models.CreditRating{},
		&models.DashboardActivity{},
		&models.ReportAccess{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// createTestUser inserts a user and returns the matching principal
func createTestUser(t *testing.T, db *gorm.DB, email string) (*models.User, *types.Principal) {
	user := models.User{
		Email:     email,
		FirstName: "Test",
		LastName:  "User",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return &user, &types.Principal{ID: user.ID, Email: user.Email, Name: user.FullName()}
}

// createTestRating inserts a rating owned by the user
func createTestRating(t *testing.T, db *gorm.DB, userID uuid.UUID, grade string, status models.ReportStatus, expiration time.Time) *models.CreditRating {
	rating := models.CreditRating{
		UserID:         userID,
		CompanyName:    "Acme Industries",
		Grade:          grade,
		ReportStatus:   status,
		ExpirationDate: dateOf(expiration),
		EvaluationDate: dateOf(time.Now().UTC()),
		IsActive:       true,
	}
	if err := db.Create(&rating).Error; err != nil {
		t.Fatalf("Failed to create test rating: %v", err)
	}
	return &rating
}

func dateOf(t time.Time) datatypes.Date {
	return datatypes.Date(t)
}

// validApplicationInput returns a payload that passes every form check
func validApplicationInput(registration string) services.ApplicationInput {
	return services.ApplicationInput{
		CompanyName:              "Acme Industries",
		BusinessType:             "Manufacturing",
		RegistrationNumber:       registration,
		EstablishedYear:          types.FlexUint64(2010),
		AddressLine1:             "12 Industrial Estate",
		City:                     "Pune",
		State:                    "Maharashtra",
		PostalCode:               "411001",
		PhoneNumber:              "+919876543210",
		Email:                    "contact@acme.example",
		SelectedBusinessCategory: "Manufacturing",
		BusinessVerificationCode: "BVC-1001",
		TermsAccepted:            true,
		PrivacyPolicyAccepted:    true,
	}
}
