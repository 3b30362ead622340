package services_test

import (
	"testing"

	"github.com/vcredible/vcredible-api/internal/models"
	"github.com/vcredible/vcredible-api/internal/services"
	"github.com/vcredible/vcredible-api/internal/types"
)

// TestRatingDetailRecordsView verifies a detail view writes the activity row
// and the access ledger entry
func TestRatingDetailRecordsView(t *testing.T) {
	db := setupTestDB(t)
	user, actor := createTestUser(t, db, "alice@example.com")
	rating := createTestRating(t, db, user.ID, "AA", models.ReportEffectiveness, models.Today().AddDate(1, 0, 0))

	result, err := services.RatingDetail(db, rating.RatingID, actor, "10.0.0.1", "go-test")
	if err != nil {
		t.Fatalf("Failed to fetch rating detail: %v", err)
	}
	if result.Grade != "AA" {
		t.Errorf("Expected grade AA, got %s", result.Grade)
	}
	if result.IsExpired {
		t.Error("Expected unexpired rating")
	}

	var activityCount int64
	db.Model(&models.DashboardActivity{}).
		Where("user_id = ? AND activity_type = ?", user.ID, models.ActivityViewReport).
		Count(&activityCount)
	if activityCount != 1 {
		t.Errorf("Expected 1 view_report activity, got %d", activityCount)
	}

	var access models.ReportAccess
	if err := db.Where("user_id = ? AND credit_rating_id = ?", user.ID, rating.RatingID).First(&access).Error; err != nil {
		t.Fatalf("Expected an access row: %v", err)
	}
	if access.AccessType != models.AccessView {
		t.Errorf("Expected view access, got %s", access.AccessType)
	}
}

// TestGrantAccessUpserts verifies repeated grants keep a single row per
// user and rating, updating the access type
func TestGrantAccessUpserts(t *testing.T) {
	db := setupTestDB(t)
	user, _ := createTestUser(t, db, "alice@example.com")
	rating := createTestRating(t, db, user.ID, "AA", models.ReportEffectiveness, models.Today().AddDate(1, 0, 0))

	services.GrantAccess(db, user.ID, rating.RatingID, models.AccessView)
	services.GrantAccess(db, user.ID, rating.RatingID, models.AccessDownload)
	services.GrantAccess(db, user.ID, rating.RatingID, models.AccessPrint)

	var rows []models.ReportAccess
	db.Where("user_id = ? AND credit_rating_id = ?", user.ID, rating.RatingID).Find(&rows)
	if len(rows) != 1 {
		t.Fatalf("Expected 1 access row, got %d", len(rows))
	}
	if rows[0].AccessType != models.AccessPrint {
		t.Errorf("Expected last access type print, got %s", rows[0].AccessType)
	}
}

// TestActiveReportsBoundary verifies a report expiring today is still active
// and date-expired reports are excluded
func TestActiveReportsBoundary(t *testing.T) {
	db := setupTestDB(t)
	user, actor := createTestUser(t, db, "alice@example.com")

	today := models.Today()
	onBoundary := createTestRating(t, db, user.ID, "A", models.ReportEffectiveness, today)
	createTestRating(t, db, user.ID, "BBB", models.ReportEffectiveness, today.AddDate(0, 0, -1))
	createTestRating(t, db, user.ID, "B", models.ReportProcessing, today.AddDate(1, 0, 0))

	reports, err := services.ActiveReports(db, actor)
	if err != nil {
		t.Fatalf("Failed to list active reports: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("Expected 1 active report, got %d", len(reports))
	}
	if reports[0].RatingID != onBoundary.RatingID {
		t.Errorf("Expected boundary rating %d, got %d", onBoundary.RatingID, reports[0].RatingID)
	}
	if reports[0].IsExpired {
		t.Error("Expected boundary report to not be expired")
	}
}

// TestReportHistorySpansStatusesNotDeactivation verifies history keeps
// expired ratings but never deactivated ones
func TestReportHistorySpansStatusesNotDeactivation(t *testing.T) {
	db := setupTestDB(t)
	user, actor := createTestUser(t, db, "alice@example.com")

	createTestRating(t, db, user.ID, "AA", models.ReportEffectiveness, models.Today().AddDate(1, 0, 0))
	createTestRating(t, db, user.ID, "BB", models.ReportExpiration, models.Today().AddDate(-1, 0, 0))
	gone := createTestRating(t, db, user.ID, "CC", models.ReportEffectiveness, models.Today().AddDate(1, 0, 0))
	db.Model(gone).Update("is_active", false)

	history, err := services.ReportHistory(db, actor)
	if err != nil {
		t.Fatalf("Failed to list history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 ratings in history, got %d", len(history))
	}
	for _, entry := range history {
		if entry.Grade == "CC" {
			t.Error("Expected deactivated rating to be excluded from history")
		}
	}

	reports, err := services.ActiveReports(db, actor)
	if err != nil {
		t.Fatalf("Failed to list active reports: %v", err)
	}
	if len(reports) != 1 || reports[0].Grade != "AA" {
		t.Errorf("Expected only the effective rating among active reports, got %d", len(reports))
	}
}

// TestDownloadReportForeignRating verifies a cross-user download is refused
// with no trace in the activity feed
func TestDownloadReportForeignRating(t *testing.T) {
	db := setupTestDB(t)
	alice, _ := createTestUser(t, db, "alice@example.com")
	bob, bobActor := createTestUser(t, db, "bob@example.com")

	rating := createTestRating(t, db, alice.ID, "AA", models.ReportEffectiveness, models.Today().AddDate(1, 0, 0))

	_, err := services.DownloadReport(db, rating.RatingID, bobActor, "", "")
	if !types.IsNotFound(err) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}

	var count int64
	db.Model(&models.DashboardActivity{}).Where("user_id = ?", bob.ID).Count(&count)
	if count != 0 {
		t.Errorf("Expected no activity rows for refused download, got %d", count)
	}
}

// TestDownloadReportResolvesFile verifies the stored file reference comes
// back and the download is recorded
func TestDownloadReportResolvesFile(t *testing.T) {
	db := setupTestDB(t)
	user, actor := createTestUser(t, db, "alice@example.com")

	rating := createTestRating(t, db, user.ID, "AA", models.ReportEffectiveness, models.Today().AddDate(1, 0, 0))
	db.Model(rating).Update("report_file", "reports/acme-2026.pdf")

	result, err := services.DownloadReport(db, rating.RatingID, actor, "", "")
	if err != nil {
		t.Fatalf("Failed to download report: %v", err)
	}
	if result.ReportFile != "reports/acme-2026.pdf" {
		t.Errorf("Unexpected report file %q", result.ReportFile)
	}

	var access models.ReportAccess
	if err := db.Where("user_id = ? AND credit_rating_id = ?", user.ID, rating.RatingID).First(&access).Error; err != nil {
		t.Fatalf("Expected an access row: %v", err)
	}
	if access.AccessType != models.AccessDownload {
		t.Errorf("Expected download access, got %s", access.AccessType)
	}
}

// TestPrintInvoiceWithoutRating verifies the generic print path writes only
// an activity row
func TestPrintInvoiceWithoutRating(t *testing.T) {
	db := setupTestDB(t)
	user, actor := createTestUser(t, db, "alice@example.com")

	if err := services.PrintInvoice(db, nil, actor, "", ""); err != nil {
		t.Fatalf("Failed to print invoice: %v", err)
	}

	var count int64
	db.Model(&models.DashboardActivity{}).
		Where("user_id = ? AND activity_type = ?", user.ID, models.ActivityPrintInvoice).
		Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 print_invoice activity, got %d", count)
	}

	var accessCount int64
	db.Model(&models.ReportAccess{}).Where("user_id = ?", user.ID).Count(&accessCount)
	if accessCount != 0 {
		t.Errorf("Expected no access rows, got %d", accessCount)
	}
}

// TestRatingGradesScale verifies the embedded grade scale decodes and is
// ordered best to worst
func TestRatingGradesScale(t *testing.T) {
	grades := services.RatingGrades()
	if len(grades) != 10 {
		t.Fatalf("Expected 10 grades, got %d", len(grades))
	}
	if grades[0].Grade != "AAA" {
		t.Errorf("Expected AAA first, got %s", grades[0].Grade)
	}
	if grades[len(grades)-1].Grade != "D" {
		t.Errorf("Expected D last, got %s", grades[len(grades)-1].Grade)
	}
}
