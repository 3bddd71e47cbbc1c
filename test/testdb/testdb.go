// Package testdb opens migrated in-memory SQLite databases for service tests.
package testdb

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ecoplant/plant-rewards/internal/models"
	"github.com/ecoplant/plant-rewards/internal/repository"
)

var phoneSeq atomic.Int64

// New returns an empty, migrated in-memory database closed at test cleanup.
func New(t *testing.T) *repository.DB {
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
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb.Exec("PRAGMA foreign_keys = ON")

	db := repository.Wrap(gdb)
	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}
	return db
}

// CreateUser inserts a regular user with default progression.
func CreateUser(t *testing.T, db *repository.DB, name, city string) *models.User {
	t.Helper()

	phone := fmt.Sprintf("+7700%07d", phoneSeq.Add(1))
	user := models.NewUser(name, phone, "hash", city, time.Now())
	if err := repository.NewUserRepository(db).Create(user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

// CreateAdmin inserts an administrator.
func CreateAdmin(t *testing.T, db *repository.DB, name string) *models.User {
	t.Helper()

	user := CreateUser(t, db, name, "")
	user.Role = models.RoleAdmin
	if err := repository.NewUserRepository(db).Update(user); err != nil {
		t.Fatalf("Failed to promote admin: %v", err)
	}
	return user
}

// SetUser overwrites a user's progression fields.
func SetUser(t *testing.T, db *repository.DB, user *models.User) {
	t.Helper()

	if err := repository.NewUserRepository(db).Update(user); err != nil {
		t.Fatalf("Failed to update user: %v", err)
	}
}

// CreateSubmission inserts a submission in the given status.
func CreateSubmission(t *testing.T, db *repository.DB, userID uint, plantType, status string) *models.Submission {
	t.Helper()

	sub := &models.Submission{
		UserID:    userID,
		Title:     plantType + " planting",
		PlantType: plantType,
		Status:    status,
	}
	if err := repository.NewSubmissionRepository(db).Create(sub); err != nil {
		t.Fatalf("Failed to create submission: %v", err)
	}
	return sub
}

// CreateProduct inserts a product.
func CreateProduct(t *testing.T, db *repository.DB, title string, price, quantity int) *models.Product {
	t.Helper()

	p := &models.Product{
		Title:        title,
		Price:        price,
		Quantity:     quantity,
		ValidDays:    models.DefaultValidDays,
		Category:     models.DefaultProductCategory,
		Organization: "Green Co",
	}
	if err := repository.NewProductRepository(db).Create(p); err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}
	return p
}

// ReloadUser reads a user back from the database.
func ReloadUser(t *testing.T, db *repository.DB, id uint) *models.User {
	t.Helper()

	user, err := repository.NewUserRepository(db).GetByID(id)
	if err != nil {
		t.Fatalf("Failed to reload user %d: %v", id, err)
	}
	return user
}

// SeedAchievements upserts a catalog.
func SeedAchievements(t *testing.T, db *repository.DB, catalog []models.Achievement) {
	t.Helper()

	if err := repository.NewAchievementRepository(db).Upsert(catalog); err != nil {
		t.Fatalf("Failed to seed achievements: %v", err)
	}
}
