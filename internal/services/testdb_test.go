package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"matri-go/internal/models"
	"matri-go/internal/storage"
)

// newTestDB opens an isolated in-memory SQLite database migrated with the
// application schema. One shared-cache database per test keeps the pool's
// connections on the same data.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("getting sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := storage.AutoMigrateTables(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

// seedUser inserts a user and returns it.
func seedUser(t *testing.T, repo storage.UserRepository, fullName, email string) *models.User {
	t.Helper()
	user := &models.User{
		FullName:   fullName,
		Email:      &email,
		Registered: true,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("seeding user %s: %v", fullName, err)
	}
	return user
}
