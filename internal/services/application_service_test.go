package services_test

import (
	"errors"
	"testing"

	"github.com/vcredible/vcredible-api/internal/models"
	"github.com/vcredible/vcredible-api/internal/services"
	"github.com/vcredible/vcredible-api/internal/types"
)

// TestSubmitApplicationCreatesHistory verifies the application and its first
// status history row land together
func TestSubmitApplicationCreatesHistory(t *testing.T) {
	db := setupTestDB(t)
	_, actor := createTestUser(t, db, "alice@example.com")

	application, err := services.SubmitApplication(db, actor, validApplicationInput("REG-100"))
	if err != nil {
		t.Fatalf("Failed to submit application: %v", err)
	}

	if application.Status != models.StatusPending {
		t.Errorf("Expected status pending, got %s", application.Status)
	}

	var history []models.ApplicationStatusHistory
	if err := db.Where("application_id = ?", application.ApplicationID).Find(&history).Error; err != nil {
		t.Fatalf("Failed to load history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("Expected 1 history row, got %d", len(history))
	}
	if history[0].OldStatus != "" {
		t.Errorf("Expected empty old_status on first row, got %q", history[0].OldStatus)
	}
	if history[0].NewStatus != models.StatusPending {
		t.Errorf("Expected new_status pending, got %s", history[0].NewStatus)
	}
	if history[0].ChangeReason != "Application submitted" {
		t.Errorf("Unexpected change reason: %q", history[0].ChangeReason)
	}
}

// TestSubmitApplicationRejectsUnacceptedTerms verifies consent checks fail
// field by field and write nothing
func TestSubmitApplicationRejectsUnacceptedTerms(t *testing.T) {
	db := setupTestDB(t)
	_, actor := createTestUser(t, db, "alice@example.com")

	input := validApplicationInput("REG-100")
	input.TermsAccepted = false
	input.PrivacyPolicyAccepted = false

	_, err := services.SubmitApplication(db, actor, input)
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if verr.Fields["terms_accepted"] == "" {
		t.Error("Expected a terms_accepted field error")
	}
	if verr.Fields["privacy_policy_accepted"] == "" {
		t.Error("Expected a privacy_policy_accepted field error")
	}

	var count int64
	db.Model(&models.CompanyApplication{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected no applications written, found %d", count)
	}
}

// TestSubmitApplicationDuplicateConflict verifies a second open application
// is refused with the existing id
func TestSubmitApplicationDuplicateConflict(t *testing.T) {
	db := setupTestDB(t)
	_, actor := createTestUser(t, db, "alice@example.com")

	first, err := services.SubmitApplication(db, actor, validApplicationInput("REG-100"))
	if err != nil {
		t.Fatalf("Failed to submit first application: %v", err)
	}

	_, err = services.SubmitApplication(db, actor, validApplicationInput("REG-200"))
	var cerr *types.ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("Expected ConflictError, got %v", err)
	}
	if cerr.ExistingApplicationID != first.ApplicationID {
		t.Errorf("Expected existing id %d, got %d", first.ApplicationID, cerr.ExistingApplicationID)
	}
}

// TestSubmitApplicationAfterRejection verifies a decided application does not
// block a new submission
func TestSubmitApplicationAfterRejection(t *testing.T) {
	db := setupTestDB(t)
	_, actor := createTestUser(t, db, "alice@example.com")

	first, err := services.SubmitApplication(db, actor, validApplicationInput("REG-100"))
	if err != nil {
		t.Fatalf("Failed to submit first application: %v", err)
	}
	if err := db.Model(first).Update("status", models.StatusRejected).Error; err != nil {
		t.Fatalf("Failed to reject application: %v", err)
	}

	if _, err := services.SubmitApplication(db, actor, validApplicationInput("REG-200")); err != nil {
		t.Fatalf("Expected resubmission to succeed, got %v", err)
	}
}

// TestSubmitApplicationAnonymous verifies anonymous submissions work without
// a duplicate check
func TestSubmitApplicationAnonymous(t *testing.T) {
	db := setupTestDB(t)

	application, err := services.SubmitApplication(db, nil, validApplicationInput("REG-100"))
	if err != nil {
		t.Fatalf("Failed to submit anonymous application: %v", err)
	}
	if application.UserID != nil {
		t.Error("Expected anonymous application to have no user")
	}
}

// TestUpdateApplicationEditableOnly verifies the editable-status scope and
// the not-found conflation for decided applications
func TestUpdateApplicationEditableOnly(t *testing.T) {
	db := setupTestDB(t)
	_, actor := createTestUser(t, db, "alice@example.com")

	application, err := services.SubmitApplication(db, actor, validApplicationInput("REG-100"))
	if err != nil {
		t.Fatalf("Failed to submit application: %v", err)
	}

	city := "Mumbai"
	updated, err := services.UpdateApplication(db, application.ApplicationID, actor, services.ApplicationUpdateInput{City: &city})
	if err != nil {
		t.Fatalf("Failed to update pending application: %v", err)
	}
	if updated.ApplicationID != application.ApplicationID {
		t.Errorf("Unexpected application id %d", updated.ApplicationID)
	}

	var reloaded models.CompanyApplication
	db.First(&reloaded, application.ApplicationID)
	if reloaded.City != "Mumbai" {
		t.Errorf("Expected city Mumbai, got %s", reloaded.City)
	}

	if err := db.Model(&reloaded).Update("status", models.StatusApproved).Error; err != nil {
		t.Fatalf("Failed to approve application: %v", err)
	}

	_, err = services.UpdateApplication(db, application.ApplicationID, actor, services.ApplicationUpdateInput{City: &city})
	if !types.IsNotFound(err) {
		t.Fatalf("Expected NotFoundError for approved application, got %v", err)
	}
}

// TestUpdateApplicationForeignOwner verifies another user's application is
// indistinguishable from a missing one
func TestUpdateApplicationForeignOwner(t *testing.T) {
	db := setupTestDB(t)
	_, alice := createTestUser(t, db, "alice@example.com")
	_, bob := createTestUser(t, db, "bob@example.com")

	application, err := services.SubmitApplication(db, alice, validApplicationInput("REG-100"))
	if err != nil {
		t.Fatalf("Failed to submit application: %v", err)
	}

	city := "Mumbai"
	_, err = services.UpdateApplication(db, application.ApplicationID, bob, services.ApplicationUpdateInput{City: &city})
	if !types.IsNotFound(err) {
		t.Fatalf("Expected NotFoundError for foreign application, got %v", err)
	}
}

// TestUpdateApplicationStatusChangeAppendsHistory verifies a status change
// writes a second ledger row
func TestUpdateApplicationStatusChangeAppendsHistory(t *testing.T) {
	db := setupTestDB(t)
	_, actor := createTestUser(t, db, "alice@example.com")

	application, err := services.SubmitApplication(db, actor, validApplicationInput("REG-100"))
	if err != nil {
		t.Fatalf("Failed to submit application: %v", err)
	}

	status := models.StatusRequiresInfo
	if _, err := services.UpdateApplication(db, application.ApplicationID, actor, services.ApplicationUpdateInput{Status: &status}); err != nil {
		t.Fatalf("Failed to change status: %v", err)
	}

	var history []models.ApplicationStatusHistory
	db.Where("application_id = ?", application.ApplicationID).Order("history_id").Find(&history)
	if len(history) != 2 {
		t.Fatalf("Expected 2 history rows, got %d", len(history))
	}
	if history[1].OldStatus != models.StatusPending || history[1].NewStatus != models.StatusRequiresInfo {
		t.Errorf("Unexpected transition %s -> %s", history[1].OldStatus, history[1].NewStatus)
	}
}

// TestAttachDocumentsOwnership verifies documents only attach to owned
// applications
func TestAttachDocumentsOwnership(t *testing.T) {
	db := setupTestDB(t)
	_, alice := createTestUser(t, db, "alice@example.com")
	_, bob := createTestUser(t, db, "bob@example.com")

	application, err := services.SubmitApplication(db, alice, validApplicationInput("REG-100"))
	if err != nil {
		t.Fatalf("Failed to submit application: %v", err)
	}

	docs := []services.DocumentInput{{
		DocumentType: models.DocumentBusinessLicense,
		DocumentName: "license.pdf",
		DocumentFile: "uploads/license.pdf",
	}}

	created, err := services.AttachDocuments(db, application.ApplicationID, alice, docs)
	if err != nil {
		t.Fatalf("Failed to attach documents: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("Expected 1 document, got %d", len(created))
	}

	_, err = services.AttachDocuments(db, application.ApplicationID, bob, docs)
	if !types.IsNotFound(err) {
		t.Fatalf("Expected NotFoundError for foreign application, got %v", err)
	}
}

// TestApplicationSummaryCounts verifies per-status counts and the recent list
func TestApplicationSummaryCounts(t *testing.T) {
	db := setupTestDB(t)
	user, actor := createTestUser(t, db, "alice@example.com")

	statuses := []models.ApplicationStatus{
		models.StatusPending, models.StatusApproved, models.StatusApproved,
		models.StatusRejected, models.StatusUnderReview, models.StatusRequiresInfo,
	}
	for i, status := range statuses {
		input := validApplicationInput("REG-" + string(rune('A'+i)))
		application := models.CompanyApplication{
			CompanyName:              input.CompanyName,
			BusinessType:             input.BusinessType,
			RegistrationNumber:       input.RegistrationNumber,
			EstablishedYear:          2010,
			AddressLine1:             input.AddressLine1,
			City:                     input.City,
			State:                    input.State,
			PostalCode:               input.PostalCode,
			PhoneNumber:              input.PhoneNumber,
			Email:                    input.Email,
			SelectedBusinessCategory: input.SelectedBusinessCategory,
			BusinessVerificationCode: input.BusinessVerificationCode,
			TermsAccepted:            true,
			PrivacyPolicyAccepted:    true,
			UserID:                   &user.ID,
			Status:                   status,
		}
		if err := db.Create(&application).Error; err != nil {
			t.Fatalf("Failed to seed application: %v", err)
		}
	}

	result, err := services.ApplicationSummary(db, actor)
	if err != nil {
		t.Fatalf("Failed to build summary: %v", err)
	}

	if result.Summary["total_applications"] != 6 {
		t.Errorf("Expected 6 total, got %d", result.Summary["total_applications"])
	}
	if result.Summary["approved"] != 2 {
		t.Errorf("Expected 2 approved, got %d", result.Summary["approved"])
	}
	if result.Summary["pending"] != 1 {
		t.Errorf("Expected 1 pending, got %d", result.Summary["pending"])
	}
	if len(result.RecentApplications) != 5 {
		t.Errorf("Expected 5 recent applications, got %d", len(result.RecentApplications))
	}
}

// TestApplicationStatusCheck verifies the can_edit flag tracks the status
func TestApplicationStatusCheck(t *testing.T) {
	db := setupTestDB(t)
	_, actor := createTestUser(t, db, "alice@example.com")

	application, err := services.SubmitApplication(db, actor, validApplicationInput("REG-100"))
	if err != nil {
		t.Fatalf("Failed to submit application: %v", err)
	}

	result, err := services.ApplicationStatus(db, application.ApplicationID, actor)
	if err != nil {
		t.Fatalf("Failed to check status: %v", err)
	}
	if !result.CanEdit {
		t.Error("Expected pending application to be editable")
	}

	db.Model(&models.CompanyApplication{}).
		Where("application_id = ?", application.ApplicationID).
		Update("status", models.StatusUnderReview)

	result, err = services.ApplicationStatus(db, application.ApplicationID, actor)
	if err != nil {
		t.Fatalf("Failed to check status: %v", err)
	}
	if result.CanEdit {
		t.Error("Expected under_review application to not be editable")
	}
	if result.CurrentStatus != models.StatusUnderReview {
		t.Errorf("Expected under_review, got %s", result.CurrentStatus)
	}
}
