package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ecoplant/plant-rewards/internal/models"
)

// setupTestDB creates an in-memory SQLite database with every table migrated.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	// Each connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)

	gdb.Exec("PRAGMA foreign_keys = ON")

	db := Wrap(gdb)
	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}
	return db
}

var phoneSeq int

// createTestUser creates a regular user in the given city.
func createTestUser(t *testing.T, db *DB, name, city string) *models.User {
	t.Helper()

	phoneSeq++
	user := models.NewUser(name, fmt.Sprintf("+1555%07d", phoneSeq), "hash", city, time.Now())
	if err := NewUserRepository(db).Create(user); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func createTestSubmission(t *testing.T, db *DB, userID uint, plantType, status string) *models.Submission {
	t.Helper()

	sub := &models.Submission{
		UserID:    userID,
		Title:     "Oak by the river",
		PlantType: plantType,
		Status:    status,
	}
	if status == models.SubmissionApproved {
		sub.PointsAwarded = 1000
	}
	if err := NewSubmissionRepository(db).Create(sub); err != nil {
		t.Fatalf("Failed to create test submission: %v", err)
	}
	return sub
}

func TestDB_Transaction_Commit(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice", "Almaty")

	err := db.Transaction(func(tx *DB) error {
		users := NewUserRepository(tx)
		locked, err := users.GetByIDForUpdate(user.ID)
		if err != nil {
			return err
		}
		locked.Points += 250
		return users.Update(locked)
	})
	if err != nil {
		t.Fatalf("Transaction() failed: %v", err)
	}

	got, err := NewUserRepository(db).GetByID(user.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if got.Points != 250 {
		t.Errorf("Expected 250 points after commit, got %d", got.Points)
	}
}

func TestDB_Transaction_Rollback(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "bob", "Almaty")
	boom := errors.New("boom")

	err := db.Transaction(func(tx *DB) error {
		users := NewUserRepository(tx)
		locked, err := users.GetByIDForUpdate(user.ID)
		if err != nil {
			return err
		}
		locked.Points = 999
		if err := users.Update(locked); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom error, got %v", err)
	}

	got, _ := NewUserRepository(db).GetByID(user.ID)
	if got.Points != 0 {
		t.Errorf("Expected rollback to keep 0 points, got %d", got.Points)
	}
}

func TestDB_DriverAndHealth(t *testing.T) {
	db := setupTestDB(t)

	if db.Driver() != "sqlite" {
		t.Errorf("Expected sqlite driver, got %q", db.Driver())
	}
	if err := db.Health(); err != nil {
		t.Errorf("Health() failed: %v", err)
	}
	// Migrate falls back to AutoMigrate off Postgres.
	if err := db.Migrate(); err != nil {
		t.Errorf("Migrate() failed: %v", err)
	}
}

func TestIsNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := NewUserRepository(db).GetByID(404)
	if !IsNotFound(err) {
		t.Errorf("Expected not-found error, got %v", err)
	}
	if IsNotFound(errors.New("other")) {
		t.Error("Expected unrelated error not to match")
	}
}
