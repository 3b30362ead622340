package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/vcredible/vcredible-api/internal/models"
	"github.com/vcredible/vcredible-api/internal/types"
	"github.com/vcredible/vcredible-api/internal/utils"
	"gorm.io/gorm"
)

// ApplicationInput carries the full multi-step intake form payload.
type ApplicationInput struct {
	// Step 1: company information
	CompanyName        string           `json:"company_name" validate:"required,max=200"`
	BusinessType       string           `json:"business_type" validate:"required,max=100"`
	RegistrationNumber string           `json:"registration_number" validate:"required,max=50"`
	EstablishedYear    types.FlexUint64 `json:"established_year" validate:"required"`

	AddressLine1 string `json:"address_line_1" validate:"required,max=200"`
	AddressLine2 string `json:"address_line_2" validate:"omitempty,max=200"`
	City         string `json:"city" validate:"required,max=100"`
	State        string `json:"state" validate:"required,max=100"`
	PostalCode   string `json:"postal_code" validate:"required,max=20"`
	Country      string `json:"country" validate:"omitempty,max=100"`

	PhoneNumber           string `json:"phone_number" validate:"required,phone"`
	Email                 string `json:"email" validate:"required,email"`
	Website               string `json:"website" validate:"omitempty,url"`
	PersonInCharge        string `json:"person_in_charge" validate:"omitempty,max=200"`
	PersonalContactNumber string `json:"personal_contact_number" validate:"omitempty,max=17"`
	AssignmentType        string `json:"assignment_type" validate:"omitempty,oneof=Purchase Sale Both"`

	// Step 2: business search
	SelectedBusinessCategory string `json:"selected_business_category" validate:"required,max=100"`
	BusinessSubcategory      string `json:"business_subcategory" validate:"omitempty,max=100"`
	AnnualRevenue            string `json:"annual_revenue" validate:"omitempty,max=50"`
	EmployeeCount            string `json:"employee_count" validate:"omitempty,max=50"`

	// Step 3: business code
	BusinessVerificationCode string `json:"business_verification_code" validate:"required,max=100"`

	// Step 4: terms and conditions
	TermsAccepted         bool `json:"terms_accepted"`
	PrivacyPolicyAccepted bool `json:"privacy_policy_accepted"`
	MarketingConsent      bool `json:"marketing_consent"`
}

// ApplicationUpdateInput is a partial patch; nil fields are left untouched.
type ApplicationUpdateInput struct {
	CompanyName        *string           `json:"company_name" validate:"omitempty,max=200"`
	BusinessType       *string           `json:"business_type" validate:"omitempty,max=100"`
	EstablishedYear    *types.FlexUint64 `json:"established_year"`
	AddressLine1       *string           `json:"address_line_1" validate:"omitempty,max=200"`
	AddressLine2       *string           `json:"address_line_2" validate:"omitempty,max=200"`
	City               *string           `json:"city" validate:"omitempty,max=100"`
	State              *string           `json:"state" validate:"omitempty,max=100"`
	PostalCode         *string           `json:"postal_code" validate:"omitempty,max=20"`
	Country            *string           `json:"country" validate:"omitempty,max=100"`
	PhoneNumber        *string           `json:"phone_number" validate:"omitempty,phone"`
	Email              *string           `json:"email" validate:"omitempty,email"`
	Website            *string           `json:"website" validate:"omitempty,url"`
	PersonInCharge     *string           `json:"person_in_charge" validate:"omitempty,max=200"`
	AssignmentType     *string           `json:"assignment_type" validate:"omitempty,oneof=Purchase Sale Both"`
	BusinessSubcategory *string          `json:"business_subcategory" validate:"omitempty,max=100"`
	AnnualRevenue      *string           `json:"annual_revenue" validate:"omitempty,max=50"`
	EmployeeCount      *string           `json:"employee_count" validate:"omitempty,max=50"`
	MarketingConsent   *bool             `json:"marketing_consent"`

	Status *models.ApplicationStatus `json:"application_status" validate:"omitempty,oneof=pending under_review approved rejected requires_info"`
}

// DocumentInput describes one attachment. DocumentFile is the blob storage
// reference returned by the upload step.
type DocumentInput struct {
	DocumentType string `json:"document_type" validate:"required,oneof=business_license tax_certificate incorporation_cert financial_statement other"`
	DocumentName string `json:"document_name" validate:"required,max=200"`
	DocumentFile string `json:"document_file" validate:"required,max=512"`
}

// StatusCheckResult is the response shape of the status check operation.
type StatusCheckResult struct {
	Application   *models.CompanyApplication `json:"application"`
	CurrentStatus models.ApplicationStatus   `json:"current_status"`
	CanEdit       bool                       `json:"can_edit"`
}

// SummaryResult aggregates a user's applications by status.
type SummaryResult struct {
	Summary            map[string]int64            `json:"summary"`
	RecentApplications []models.CompanyApplication `json:"recent_applications"`
}

// SubmitApplication validates and persists a new company application.
// Authenticated submitters with an application still in an open status get a
// ConflictError carrying the existing id; nothing is written in that case.
// The application row and its initial status-history row are created in one
// transaction so a crash between the two can't orphan the application.
func SubmitApplication(db *gorm.DB, actor *types.Principal, input ApplicationInput) (*models.CompanyApplication, error) {
	if verr := validateSubmission(input); verr != nil {
		return nil, verr
	}

	if actor != nil {
		// Advisory duplicate guard; registration_number uniqueness is the
		// storage-level backstop against concurrent submitters.
		var existing models.CompanyApplication
		err := db.Where("user_id = ? AND status IN ?", actor.ID, models.OpenStatuses).
			First(&existing).Error
		if err == nil {
			return nil, &types.ConflictError{
				Message:               "You already have a pending application. Please wait for it to be processed.",
				ExistingApplicationID: existing.ApplicationID,
			}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	application := applicationFromInput(input)
	if actor != nil {
		id := actor.ID
		application.UserID = &id
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&application).Error; err != nil {
			return err
		}

		history := models.ApplicationStatusHistory{
			ApplicationID: application.ApplicationID,
			OldStatus:     "",
			NewStatus:     models.StatusPending,
			ChangeReason:  "Application submitted",
		}
		if actor != nil {
			id := actor.ID
			history.ChangedByID = &id
		}
		return tx.Create(&history).Error
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, types.NewValidationError("registration_number",
				"An application with this registration number already exists.")
		}
		return nil, err
	}

	if actor != nil {
		RecordActivity(db, actor.ID, models.ActivitySubmitApplication,
			"Submitted application for "+application.CompanyName, nil, "", "")
	}

	return &application, nil
}

// UpdateApplication applies a partial patch to an application the actor owns,
// provided it is still editable (pending or requires_info). Any other
// application — nonexistent, foreign, or already decided — yields the same
// NotFoundError; the scoped lookup hides which it was. A status change
// appends a history row in the same transaction as the update.
func UpdateApplication(db *gorm.DB, applicationID uint64, actor *types.Principal, patch ApplicationUpdateInput) (*models.CompanyApplication, error) {
	if verr := utils.ValidateStruct(patch); verr != nil {
		return nil, verr
	}

	var application models.CompanyApplication
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("application_id = ? AND user_id = ? AND status IN ?",
			applicationID, actor.ID, []models.ApplicationStatus{models.StatusPending, models.StatusRequiresInfo}).
			First(&application).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Internal distinction only; the response stays a plain 404.
			log.Printf("application update miss: id=%d user=%s", applicationID, actor.ID)
			return &types.NotFoundError{Resource: "application"}
		}
		if err != nil {
			return err
		}

		oldStatus := application.Status
		updates := patchUpdates(patch)
		if len(updates) > 0 {
			if err := tx.Model(&application).Updates(updates).Error; err != nil {
				if isUniqueConstraintError(err) {
					return types.NewValidationError("registration_number",
						"An application with this registration number already exists.")
				}
				return err
			}
		}

		if patch.Status != nil && *patch.Status != oldStatus {
			id := actor.ID
			history := models.ApplicationStatusHistory{
				ApplicationID: application.ApplicationID,
				OldStatus:     oldStatus,
				NewStatus:     *patch.Status,
				ChangedByID:   &id,
				ChangeReason:  "Status updated by user",
			}
			if err := tx.Create(&history).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &application, nil
}

// AttachDocuments adds one or more typed attachments to an application owned
// by the actor. There is no status restriction on uploads.
func AttachDocuments(db *gorm.DB, applicationID uint64, actor *types.Principal, docs []DocumentInput) ([]models.ApplicationDocument, error) {
	for _, doc := range docs {
		if verr := utils.ValidateStruct(doc); verr != nil {
			return nil, verr
		}
	}

	var application models.CompanyApplication
	err := db.Where("application_id = ? AND user_id = ?", applicationID, actor.ID).
		First(&application).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("document upload miss: application=%d user=%s", applicationID, actor.ID)
		return nil, &types.NotFoundError{Resource: "application"}
	}
	if err != nil {
		return nil, err
	}

	created := make([]models.ApplicationDocument, 0, len(docs))
	for _, doc := range docs {
		record := models.ApplicationDocument{
			ApplicationID: application.ApplicationID,
			DocumentType:  doc.DocumentType,
			DocumentName:  doc.DocumentName,
			DocumentFile:  doc.DocumentFile,
		}
		if err := db.Create(&record).Error; err != nil {
			return nil, err
		}
		created = append(created, record)
	}

	return created, nil
}

// GetApplication returns one application owned by the actor with documents
// and status history preloaded.
func GetApplication(db *gorm.DB, applicationID uint64, actor *types.Principal) (*models.CompanyApplication, error) {
	var application models.CompanyApplication
	err := db.Preload("Documents").Preload("StatusHistory").
		Where("application_id = ? AND user_id = ?", applicationID, actor.ID).
		First(&application).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &types.NotFoundError{Resource: "application"}
	}
	if err != nil {
		return nil, err
	}
	return &application, nil
}

// ListApplications returns all applications owned by the actor, newest first.
func ListApplications(db *gorm.DB, actor *types.Principal) ([]models.CompanyApplication, error) {
	var applications []models.CompanyApplication
	err := db.Where("user_id = ?", actor.ID).
		Order("created_at DESC").
		Find(&applications).Error
	if err != nil {
		return nil, err
	}
	return applications, nil
}

// ApplicationStatus reports the current status of an owned application and
// whether it may still be edited.
func ApplicationStatus(db *gorm.DB, applicationID uint64, actor *types.Principal) (*StatusCheckResult, error) {
	application, err := GetApplication(db, applicationID, actor)
	if err != nil {
		return nil, err
	}
	return &StatusCheckResult{
		Application:   application,
		CurrentStatus: application.Status,
		CanEdit:       application.Status.Editable(),
	}, nil
}

// ApplicationSummary returns per-status counts and the five most recent
// applications for the actor.
func ApplicationSummary(db *gorm.DB, actor *types.Principal) (*SummaryResult, error) {
	summary := map[string]int64{}

	var total int64
	if err := db.Model(&models.CompanyApplication{}).
		Where("user_id = ?", actor.ID).Count(&total).Error; err != nil {
		return nil, err
	}
	summary["total_applications"] = total

	statuses := []models.ApplicationStatus{
		models.StatusPending, models.StatusUnderReview, models.StatusApproved,
		models.StatusRejected, models.StatusRequiresInfo,
	}
	for _, status := range statuses {
		var count int64
		if err := db.Model(&models.CompanyApplication{}).
			Where("user_id = ? AND status = ?", actor.ID, status).
			Count(&count).Error; err != nil {
			return nil, err
		}
		summary[string(status)] = count
	}

	var recent []models.CompanyApplication
	if err := db.Where("user_id = ?", actor.ID).
		Order("created_at DESC").Limit(5).
		Find(&recent).Error; err != nil {
		return nil, err
	}

	return &SummaryResult{Summary: summary, RecentApplications: recent}, nil
}

// validateSubmission combines struct validation with the consent checks the
// form enforces field by field.
func validateSubmission(input ApplicationInput) *types.ValidationError {
	fields := make(map[string]string)
	if verr := utils.ValidateStruct(input); verr != nil {
		fields = verr.Fields
	}
	if !input.TermsAccepted {
		fields["terms_accepted"] = "You must accept the terms and conditions."
	}
	if !input.PrivacyPolicyAccepted {
		fields["privacy_policy_accepted"] = "You must accept the privacy policy."
	}
	if len(fields) > 0 {
		return &types.ValidationError{Fields: fields}
	}
	return nil
}

func applicationFromInput(input ApplicationInput) models.CompanyApplication {
	country := input.Country
	if country == "" {
		country = "India"
	}
	assignment := input.AssignmentType
	if assignment == "" {
		assignment = models.AssignmentPurchase
	}

	return models.CompanyApplication{
		CompanyName:              input.CompanyName,
		BusinessType:             input.BusinessType,
		RegistrationNumber:       input.RegistrationNumber,
		EstablishedYear:          int(input.EstablishedYear.Uint64()),
		AddressLine1:             input.AddressLine1,
		AddressLine2:             input.AddressLine2,
		City:                     input.City,
		State:                    input.State,
		PostalCode:               input.PostalCode,
		Country:                  country,
		PhoneNumber:              input.PhoneNumber,
		Email:                    input.Email,
		Website:                  input.Website,
		PersonInCharge:           input.PersonInCharge,
		PersonalContactNumber:    input.PersonalContactNumber,
		AssignmentType:           assignment,
		SelectedBusinessCategory: input.SelectedBusinessCategory,
		BusinessSubcategory:      input.BusinessSubcategory,
		AnnualRevenue:            input.AnnualRevenue,
		EmployeeCount:            input.EmployeeCount,
		BusinessVerificationCode: input.BusinessVerificationCode,
		TermsAccepted:            input.TermsAccepted,
		PrivacyPolicyAccepted:    input.PrivacyPolicyAccepted,
		MarketingConsent:         input.MarketingConsent,
		Status:                   models.StatusPending,
	}
}

func patchUpdates(patch ApplicationUpdateInput) map[string]interface{} {
	updates := map[string]interface{}{}
	setString := func(column string, value *string) {
		if value != nil {
			updates[column] = *value
		}
	}

	setString("company_name", patch.CompanyName)
	setString("business_type", patch.BusinessType)
	setString("address_line1", patch.AddressLine1)
	setString("address_line2", patch.AddressLine2)
	setString("city", patch.City)
	setString("state", patch.State)
	setString("postal_code", patch.PostalCode)
	setString("country", patch.Country)
	setString("phone_number", patch.PhoneNumber)
	setString("email", patch.Email)
	setString("website", patch.Website)
	setString("person_in_charge", patch.PersonInCharge)
	setString("assignment_type", patch.AssignmentType)
	setString("business_subcategory", patch.BusinessSubcategory)
	setString("annual_revenue", patch.AnnualRevenue)
	setString("employee_count", patch.EmployeeCount)

	if patch.EstablishedYear != nil {
		updates["established_year"] = int(patch.EstablishedYear.Uint64())
	}
	if patch.MarketingConsent != nil {
		updates["marketing_consent"] = *patch.MarketingConsent
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if len(updates) > 0 {
		updates["updated_at"] = time.Now().UTC()
	}

	return updates
}

// isUniqueConstraintError sniffs driver-specific duplicate key errors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "duplicate key") ||
		strings.Contains(s, "unique constraint") ||
		strings.Contains(s, "duplicate entry") ||
		strings.Contains(s, "unique failed")
}
