package repository

import (
	"testing"
	"time"

	"github.com/ecoplant/plant-rewards/internal/models"
)

func TestSubmissionRepository_Aggregates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	user := createTestUser(t, db, "alice", "Almaty")
	other := createTestUser(t, db, "bob", "Almaty")

	createTestSubmission(t, db, user.ID, "Oak", models.SubmissionApproved)
	createTestSubmission(t, db, user.ID, "Oak", models.SubmissionApproved)
	createTestSubmission(t, db, user.ID, "Pine", models.SubmissionApproved)
	createTestSubmission(t, db, user.ID, "Birch", models.SubmissionDeclined)
	createTestSubmission(t, db, user.ID, "Maple", models.SubmissionPending)
	createTestSubmission(t, db, other.ID, "Cedar", models.SubmissionApproved)

	count, err := repo.CountApproved(user.ID)
	if err != nil {
		t.Fatalf("CountApproved() failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 approved, got %d", count)
	}

	types, err := repo.DistinctPlantTypes(user.ID)
	if err != nil {
		t.Fatalf("DistinctPlantTypes() failed: %v", err)
	}
	if len(types) != 2 || types[0] != "Oak" || types[1] != "Pine" {
		t.Errorf("Expected [Oak Pine], got %v", types)
	}

	earned, _ := repo.SumAwardedPoints(user.ID)
	if earned != 3000 {
		t.Errorf("Expected 3000 awarded points, got %d", earned)
	}

	byStatus, _ := repo.CountByUserAndStatus(user.ID)
	if byStatus[models.SubmissionApproved] != 3 || byStatus[models.SubmissionDeclined] != 1 || byStatus[models.SubmissionPending] != 1 {
		t.Errorf("Unexpected status counts %v", byStatus)
	}

	pending, _ := repo.CountByStatus(models.SubmissionPending)
	if pending != 1 {
		t.Errorf("Expected 1 pending, got %d", pending)
	}

	recent, _ := repo.CountApprovedSince(user.ID, time.Now().Add(-time.Hour))
	if recent != 3 {
		t.Errorf("Expected 3 recent approvals, got %d", recent)
	}

	stamps, _ := repo.ApprovedCreatedSince(user.ID, time.Now().AddDate(0, -6, 0))
	if len(stamps) != 3 {
		t.Errorf("Expected 3 approval timestamps, got %d", len(stamps))
	}

	ids, _ := repo.ListUserIDsWithApprovals()
	if len(ids) != 2 {
		t.Errorf("Expected 2 users with approvals, got %v", ids)
	}
}

func TestSubmissionRepository_ListPagination(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	user := createTestUser(t, db, "alice", "Almaty")

	for i := 0; i < 5; i++ {
		createTestSubmission(t, db, user.ID, "Oak", models.SubmissionPending)
	}
	createTestSubmission(t, db, user.ID, "Oak", models.SubmissionApproved)

	page, total, err := repo.List(SubmissionFilter{Status: models.SubmissionPending, Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if total != 5 {
		t.Errorf("Expected total 5, got %d", total)
	}
	if len(page) != 2 {
		t.Errorf("Expected page of 2, got %d", len(page))
	}
	if page[0].User == nil || page[0].User.Name != "alice" {
		t.Error("Expected author to be preloaded")
	}

	mine, _ := repo.ListByUser(user.ID)
	if len(mine) != 6 {
		t.Errorf("Expected 6 submissions, got %d", len(mine))
	}
}

func TestSubmissionRepository_MapPlantings(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	user := createTestUser(t, db, "alice", "Almaty")

	lat, lng := 43.25, 76.95
	withCoords := &models.Submission{
		UserID: user.ID, Title: "Elm", PlantType: "Elm",
		Status: models.SubmissionApproved, Latitude: &lat, Longitude: &lng,
	}
	if err := repo.Create(withCoords); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	createTestSubmission(t, db, user.ID, "Oak", models.SubmissionApproved)
	pendingWithCoords := &models.Submission{
		UserID: user.ID, Title: "Ash", PlantType: "Ash",
		Status: models.SubmissionPending, Latitude: &lat, Longitude: &lng,
	}
	if err := repo.Create(pendingWithCoords); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	plantings, err := repo.ListMapPlantings(0)
	if err != nil {
		t.Fatalf("ListMapPlantings() failed: %v", err)
	}
	if len(plantings) != 1 {
		t.Fatalf("Expected 1 planting, got %d", len(plantings))
	}
	if plantings[0].UserName != "alice" || plantings[0].Latitude != lat {
		t.Errorf("Unexpected planting %+v", plantings[0])
	}
}
