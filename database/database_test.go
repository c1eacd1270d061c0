//go:build fts5

// msgboard/database/database_test.go
package database

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"msgboard/models"
	"msgboard/utils"
)

// setupTestDB creates a new SQLite database in a temp dir for testing.
func setupTestDB(t *testing.T) *DatabaseService {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	dir, err := os.MkdirTemp("", "msgboard_test_db")
	if err != nil {
		t.Fatalf("Failed to create temp dir for test DB: %v", err)
	}
	dbPath := filepath.Join(dir, "test.db?_journal_mode=WAL&_foreign_keys=on")

	ds, err := InitDB(dbPath, logger)
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	t.Cleanup(func() {
		ds.DB.Close()
		os.RemoveAll(dir)
	})

	return ds
}

func createTestUser(t *testing.T, ds *DatabaseService, login string) *models.User {
	t.Helper()
	u, err := ds.CreateUser(models.RegisterInput{Login: login, Email: login + "@example.com", Password: "password123"}, "participant")
	if err != nil {
		t.Fatalf("Failed to create user %s: %v", login, err)
	}
	return u
}

// TestInitDB checks if the database is seeded with default data correctly.
func TestInitDB(t *testing.T) {
	ds := setupTestDB(t)

	forumID := ds.DefaultForumID()
	if forumID == 0 {
		t.Fatal("Expected default forum option to be set")
	}
	forum, err := ds.GetTypedItem(forumID, models.TypeForum)
	if err != nil {
		t.Fatalf("Failed to load default forum: %v", err)
	}
	if forum.Title != "General" || forum.Slug != "general" || forum.Status != models.StatusOpen {
		t.Errorf("Unexpected default forum: %+v", forum)
	}
	forumType, _, _ := ds.GetMeta(forumID, models.MetaForumType)
	if forumType != models.ForumTypeForum {
		t.Errorf("Expected forum type 'forum', got %q", forumType)
	}
}

// TestMigrations verifies that our schema migrations run successfully.
func TestMigrations(t *testing.T) {
	ds := setupTestDB(t)

	var version int
	if err := ds.DB.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		t.Fatalf("Failed to read schema version: %v", err)
	}
	if version != len(allMigrations) {
		t.Errorf("Expected schema version %d, got %d", len(allMigrations), version)
	}

	// The unique slug index from migration 1 rejects duplicates.
	_, err := ds.DB.Exec(`INSERT INTO content_items (item_type, status, slug, created, modified) VALUES ('forum', 'open', 'general', datetime('now'), datetime('now'))`)
	if err == nil {
		t.Error("Expected duplicate forum slug to be rejected")
	}
}

func TestUniqueSlug(t *testing.T) {
	ds := setupTestDB(t)

	s, err := ds.UniqueSlug(models.TypeForum, "General", 0)
	if err != nil {
		t.Fatalf("UniqueSlug failed: %v", err)
	}
	if s != "general-2" {
		t.Errorf("Expected 'general-2', got %q", s)
	}
	s, _ = ds.UniqueSlug(models.TypeForum, "General", ds.DefaultForumID())
	if s != "general" {
		t.Errorf("Expected excluding the owner to keep 'general', got %q", s)
	}
	s, _ = ds.UniqueSlug(models.TypeTopic, "!!!", 0)
	if s != "topic" {
		t.Errorf("Expected fallback slug 'topic', got %q", s)
	}
}

func TestItemCacheInvalidation(t *testing.T) {
	ds := setupTestDB(t)
	forum, _ := ds.GetItem(ds.DefaultForumID())

	forum.Title = "Renamed"
	if err := ds.UpdateItem(forum); err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
	again, err := ds.GetItem(forum.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.Title != "Renamed" {
		t.Errorf("Expected cache to be invalidated, got title %q", again.Title)
	}

	if _, err := ds.GetItem(9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := ds.GetTypedItem(forum.ID, models.TypeTopic); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected type mismatch to be ErrNotFound, got %v", err)
	}
}

func TestUsers(t *testing.T) {
	ds := setupTestDB(t)
	u := createTestUser(t, ds, "Alice")

	if u.Nicename != "alice" {
		t.Errorf("Expected nicename 'alice', got %q", u.Nicename)
	}
	if _, err := ds.CreateUser(models.RegisterInput{Login: "alice", Email: "x@example.com", Password: "password123"}, "participant"); !errors.Is(err, ErrUserExists) {
		t.Errorf("Expected ErrUserExists, got %v", err)
	}

	got, err := ds.Authenticate("alice", "password123")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("Authenticated the wrong user: %d", got.ID)
	}
	if _, err := ds.Authenticate("alice", "nope"); !errors.Is(err, ErrInvalidLogin) {
		t.Errorf("Expected ErrInvalidLogin for bad password, got %v", err)
	}
	if _, err := ds.Authenticate("bob", "password123"); !errors.Is(err, ErrInvalidLogin) {
		t.Errorf("Expected ErrInvalidLogin for unknown user, got %v", err)
	}

	if err := ds.SetUserRole(0, u.ID, "moderator"); err != nil {
		t.Fatal(err)
	}
	count, _ := ds.CountUsers("moderator")
	if count != 1 {
		t.Errorf("Expected 1 moderator, got %d", count)
	}
	if err := ds.SetUserRole(0, 9999, "moderator"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for an unknown user, got %v", err)
	}

	changed, err := ds.EnsureUserRole("Alice", "keymaster")
	if err != nil || !changed {
		t.Fatalf("Expected the role to change, got %v, %v", changed, err)
	}
	if changed, _ := ds.EnsureUserRole("Alice", "keymaster"); changed {
		t.Error("Expected no change when the role is already held")
	}
	if _, err := ds.EnsureUserRole("nobody", "keymaster"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for an unknown login, got %v", err)
	}
	if actions, _ := ds.GetModActions(10); len(actions) != 0 {
		t.Errorf("Expected role changes without an actor to go unlogged, got %+v", actions)
	}
}

func TestSearchItems(t *testing.T) {
	ds := setupTestDB(t)
	u := createTestUser(t, ds, "searcher")
	forumID := ds.DefaultForumID()

	topic, err := ds.CreateTopic(u.ID, models.NewTopicInput{Title: "Gardening tips", Content: "Tomatoes need sun", ForumID: forumID})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ds.CreateReply(u.ID, models.NewReplyInput{Content: "Basil likes tomatoes too", TopicID: topic.ID}); err != nil {
		t.Fatal(err)
	}

	results, err := ds.SearchItems("tomatoes", "", 10)
	if err != nil {
		t.Fatalf("SearchItems failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 results, got %d", len(results))
	}

	if _, err := ds.SetItemStatus(u.ID, topic.ID, models.StatusTrash); err != nil {
		t.Fatal(err)
	}
	results, _ = ds.SearchItems("tomatoes", models.TypeTopic, 10)
	if len(results) != 0 {
		t.Errorf("Expected trashed topic to be hidden from search, got %d", len(results))
	}

	// FTS syntax in user input is treated literally.
	if _, err := ds.SearchItems(`"unbalanced OR`, "", 10); err != nil {
		t.Errorf("Expected quoted search to succeed, got %v", err)
	}
}

func TestBackupDatabase(t *testing.T) {
	ds := setupTestDB(t)
	utils.BackupDir = t.TempDir()
	defer func() { utils.BackupDir = "" }()

	path, err := ds.BackupDatabase()
	if err != nil {
		t.Fatalf("BackupDatabase failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected backup file at %s: %v", path, err)
	}

	// Snapshots are named by the second, so use a fresh directory.
	utils.BackupDir = t.TempDir()
	ds.Storage = &utils.LocalStorage{UploadDir: t.TempDir()}
	location, err := ds.BackupDatabase()
	if err != nil {
		t.Fatalf("BackupDatabase with storage failed: %v", err)
	}
	if filepath.Dir(location) != "/uploads/backups" {
		t.Errorf("Expected uploaded backup location, got %s", location)
	}
}

func TestModActions(t *testing.T) {
	ds := setupTestDB(t)
	if err := ds.RecordModAction(7, "test_action", 3, "details"); err != nil {
		t.Fatal(err)
	}
	actions, err := ds.GetModActions(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(actions) != 1 || actions[0].ActorID != 7 || actions[0].Action != "test_action" {
		t.Errorf("Unexpected mod log: %+v", actions)
	}
}
