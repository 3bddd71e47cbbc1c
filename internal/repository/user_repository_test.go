package repository

import (
	"testing"
	"time"

	"github.com/ecoplant/plant-rewards/internal/models"
)

func TestUserRepository_CreateAndLookup(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	user := createTestUser(t, db, "alice", "")

	if user.ID == 0 {
		t.Fatal("Expected user ID to be set after creation")
	}
	if user.City != models.DefaultCity {
		t.Errorf("Expected default city %q, got %q", models.DefaultCity, user.City)
	}
	if user.TrustRating != models.DefaultTrustRating || user.Level != 1 {
		t.Errorf("Expected trust 5 and level 1, got %d and %d", user.TrustRating, user.Level)
	}

	byPhone, err := repo.GetByPhone(user.Phone)
	if err != nil {
		t.Fatalf("GetByPhone() failed: %v", err)
	}
	if byPhone.ID != user.ID {
		t.Errorf("Expected id %d, got %d", user.ID, byPhone.ID)
	}

	exists, err := repo.ExistsByPhone(user.Phone)
	if err != nil || !exists {
		t.Errorf("ExistsByPhone() = %v, %v; want true", exists, err)
	}
	exists, _ = repo.ExistsByPhone("+000")
	if exists {
		t.Error("Expected unknown phone not to exist")
	}
}

func TestUserRepository_DuplicatePhone(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	first := createTestUser(t, db, "alice", "Almaty")
	dup := models.NewUser("eve", first.Phone, "hash", "Astana", first.CreatedAt)

	if err := repo.Create(dup); err == nil {
		t.Error("Expected unique violation for duplicate phone")
	}
}

func TestUserRepository_ListRankable(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	createTestUser(t, db, "alice", "Almaty")
	createTestUser(t, db, "bob", "Astana")
	admin := createTestUser(t, db, "root", "Almaty")
	admin.Role = models.RoleAdmin
	if err := repo.Update(admin); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	all, err := repo.ListRankable("")
	if err != nil {
		t.Fatalf("ListRankable() failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 rankable users, got %d", len(all))
	}

	almaty, _ := repo.ListRankable("Almaty")
	if len(almaty) != 1 || almaty[0].Name != "alice" {
		t.Errorf("Expected only alice in Almaty, got %+v", almaty)
	}

	hasAdmin, err := repo.HasAdmin()
	if err != nil || !hasAdmin {
		t.Errorf("HasAdmin() = %v, %v; want true", hasAdmin, err)
	}

	ids, _ := repo.ListIDsByRole(models.RoleUser)
	if len(ids) != 2 {
		t.Errorf("Expected 2 user ids, got %v", ids)
	}

	admins, _ := repo.List(models.RoleAdmin)
	if len(admins) != 1 {
		t.Errorf("Expected 1 admin, got %d", len(admins))
	}
}

func TestUserRepository_UpdateTrustKeepsOtherColumns(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	user := createTestUser(t, db, "alice", "Almaty")
	stale, err := repo.GetByID(user.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}

	// Points are credited after the stale copy was read.
	fresh, _ := repo.GetByID(user.ID)
	fresh.Points = 1500
	if err := repo.Update(fresh); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	stale.TrustRating = models.DefaultTrustRating + 1
	stale.LastTrustRecovery = stale.LastTrustRecovery.Add(time.Hour)
	saved, err := repo.UpdateTrust(stale, models.DefaultTrustRating)
	if err != nil || !saved {
		t.Fatalf("UpdateTrust() = %v, %v; want true", saved, err)
	}

	got, _ := repo.GetByID(user.ID)
	if got.Points != 1500 {
		t.Errorf("Expected points 1500 to survive, got %d", got.Points)
	}
	if got.TrustRating != models.DefaultTrustRating+1 {
		t.Errorf("Expected trust %d, got %d", models.DefaultTrustRating+1, got.TrustRating)
	}

	// The stored rating no longer matches, so a second stale write is refused.
	saved, err = repo.UpdateTrust(stale, models.DefaultTrustRating)
	if err != nil || saved {
		t.Errorf("UpdateTrust() = %v, %v; want false", saved, err)
	}
}
