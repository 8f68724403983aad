package repository

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"todo-planner/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestUser(t *testing.T, db *gorm.DB, telegramID int64) *model.User {
	t.Helper()
	user, err := NewUserRepository(db).UpsertFromTelegram(context.Background(), telegramID, "Ada", "Lovelace", "ada")
	if err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	return user
}

func TestEnsureDirForSQLite(t *testing.T) {
	dir := t.TempDir()
	if err := ensureDirForSQLite("file:" + dir + "/nested/planner.db?_busy_timeout=5000"); err != nil {
		t.Fatalf("ensureDirForSQLite error: %v", err)
	}
	if err := ensureDirForSQLite(":memory:"); err != nil {
		t.Fatalf("memory dsn: %v", err)
	}
}

func TestUserUpsertFromTelegram(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first, err := repo.UpsertFromTelegram(ctx, 77, "Grace", "", "grace")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := repo.UpsertFromTelegram(ctx, 77, "Grace", "Hopper", "grace")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("upsert created a second user: %d vs %d", first.ID, second.ID)
	}
	got, err := repo.FindByTelegramID(ctx, 77)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.LastName != "Hopper" {
		t.Fatalf("LastName = %q, want Hopper", got.LastName)
	}
}
