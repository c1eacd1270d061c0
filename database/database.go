// msgboard/database/database.go
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"msgboard/models"
	"msgboard/utils"

	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUserExists   = errors.New("a user with that login already exists")
	ErrInvalidLogin = errors.New("invalid login or password")
	ErrDefaultForum = errors.New("the default forum cannot be trashed")
	ErrForumCycle   = errors.New("a forum cannot be moved below itself")
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// DatabaseService is the central struct for all database operations.
type DatabaseService struct {
	DB      *sql.DB
	Storage models.StorageService
	logger  *slog.Logger

	itemCache       map[int64]models.Item
	subscriberCache map[int64][]int64
	bookmarkerCache map[int64][]int64
	cacheMu         sync.RWMutex
}

// InitDB connects to the database, runs migrations, and seeds default data.
func InitDB(dataSourceName string, logger *slog.Logger) (*DatabaseService, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}

	// Run the base schema to ensure all tables exist.
	if _, err = db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to execute base schema: %w", err)
	}

	// Run versioned migrations
	if err := runMigrations(db, logger); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	ds := &DatabaseService{
		DB:              db,
		logger:          logger,
		itemCache:       make(map[int64]models.Item),
		subscriberCache: make(map[int64][]int64),
		bookmarkerCache: make(map[int64][]int64),
	}

	// Seed the default forum if the board is empty
	var forumCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM content_items WHERE item_type = ?", models.TypeForum).Scan(&forumCount); err == nil && forumCount == 0 {
		forumID, err := ds.CreateForum(0, models.ForumInput{
			Title:     "General",
			Content:   "General discussion.",
			ForumType: models.ForumTypeForum,
			Status:    string(models.StatusOpen),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to seed default forum: %w", err)
		}
		if err := ds.SetOption(models.OptionDefaultForumID, strconv.FormatInt(forumID, 10)); err != nil {
			return nil, fmt.Errorf("failed to record default forum: %w", err)
		}
	}

	// One-time rebuild of the FTS index if it is empty but items exist
	var ftsCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM items_fts").Scan(&ftsCount); err == nil && ftsCount == 0 {
		var itemCount int
		if err := db.QueryRow("SELECT COUNT(*) FROM content_items").Scan(&itemCount); err == nil && itemCount > 0 {
			logger.Info("FTS table is empty, rebuilding index for existing items...")
			if _, err := db.Exec(`INSERT INTO items_fts(items_fts) VALUES('rebuild')`); err != nil {
				logger.Error("CRITICAL: Failed to rebuild FTS index", "error", err)
			} else {
				logger.Info("FTS index rebuild complete.")
			}
		}
	}

	logger.Info("Database initialized and cache ready.")
	return ds, nil
}

// Close releases the underlying connection pool.
func (ds *DatabaseService) Close() error {
	return ds.DB.Close()
}

// BackupDatabase performs an online backup of the live SQLite database using VACUUM INTO.
// When a storage service is configured the snapshot is also uploaded; the
// returned location is the uploaded path in that case.
func (ds *DatabaseService) BackupDatabase() (string, error) {
	if utils.BackupDir == "" {
		return "", fmt.Errorf("backup directory is not configured")
	}
	if err := os.MkdirAll(utils.BackupDir, 0755); err != nil {
		return "", fmt.Errorf("could not create backup directory %s: %w", utils.BackupDir, err)
	}

	timestamp := time.Now().UTC().Format("2006-01-02_15-04-05")
	backupFilename := fmt.Sprintf("msgboard_backup_%s.db", timestamp)
	backupPath := filepath.Join(utils.BackupDir, backupFilename)

	ds.logger.Info("Starting database backup", "destination", backupPath)

	if _, err := ds.DB.Exec("VACUUM INTO ?", backupPath); err != nil {
		// If backup fails, attempt to remove the potentially incomplete file
		if removeErr := os.Remove(backupPath); removeErr != nil && !os.IsNotExist(removeErr) {
			ds.logger.Error("Failed to remove incomplete backup file", "path", backupPath, "error", removeErr)
		}
		return "", fmt.Errorf("VACUUM INTO command failed: %w", err)
	}

	if ds.Storage == nil {
		return backupPath, nil
	}

	data, err := os.ReadFile(backupPath)
	if err != nil {
		return backupPath, fmt.Errorf("could not read backup for upload: %w", err)
	}
	location, err := ds.Storage.SaveFile("backups/"+backupFilename, data, "application/vnd.sqlite3")
	if err != nil {
		return backupPath, fmt.Errorf("backup upload failed: %w", err)
	}
	ds.logger.Info("Backup uploaded", "location", location)
	return location, nil
}

// runMigrations applies all un-applied migrations.
func runMigrations(db *sql.DB, logger *slog.Logger) error {
	var latestVersion uint
	err := db.QueryRow("SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1").Scan(&latestVersion)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("could not get db version: %w", err)
	}

	logger.Info("Current database schema version", "version", latestVersion)

	for _, m := range allMigrations {
		if m.Version <= latestVersion {
			continue
		}
		logger.Info("Applying migration", "version", m.Version)
		tx, err := db.Begin()
		if err != nil {
			return err
		}

		if _, err := tx.Exec(m.Query); err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				logger.Error("Failed to rollback migration", "version", m.Version, "error", rerr)
			}
			return fmt.Errorf("failed to apply migration v%d: %w", m.Version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", m.Version, utils.GetSQLTime()); err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				logger.Error("Failed to rollback migration record", "version", m.Version, "error", rerr)
			}
			return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration v%d: %w", m.Version, err)
		}
		logger.Info("Successfully applied migration", "version", m.Version)
	}
	return nil
}

// LogModAction records a moderator's action to the database.
func LogModAction(tx *sql.Tx, actorID int64, action string, targetID int64, details string) error {
	stmt, err := tx.Prepare("INSERT INTO mod_actions (timestamp, actor_id, action, target_id, details) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare mod action statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			slog.Default().Error("Failed to close statement in LogModAction", "error", err)
		}
	}()

	if _, err = stmt.Exec(utils.GetSQLTime(), actorID, action, targetID, details); err != nil {
		return fmt.Errorf("failed to execute mod action log: %w", err)
	}
	return nil
}

// RecordModAction logs a single action in its own transaction.
func (ds *DatabaseService) RecordModAction(actorID int64, action string, targetID int64, details string) error {
	tx, err := ds.DB.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			ds.logger.Error("Failed to rollback transaction in RecordModAction", "error", rerr)
		}
	}()
	if err := LogModAction(tx, actorID, action, targetID, details); err != nil {
		return err
	}
	return tx.Commit()
}

// GetModActions returns the most recent moderation log entries.
func (ds *DatabaseService) GetModActions(limit int) ([]models.ModAction, error) {
	rows, err := ds.DB.Query("SELECT id, timestamp, actor_id, action, target_id, details FROM mod_actions ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			ds.logger.Error("Failed to close rows in GetModActions", "error", err)
		}
	}()

	var actions []models.ModAction
	for rows.Next() {
		var a models.ModAction
		var target sql.NullInt64
		var details sql.NullString
		if err := rows.Scan(&a.ID, &a.Timestamp, &a.ActorID, &a.Action, &target, &details); err != nil {
			ds.logger.Error("Failed to scan mod action row", "error", err)
			continue
		}
		a.TargetID, a.Details = target.Int64, details.String
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// --- Cache Management ---
func (ds *DatabaseService) clearItemCache(ids ...int64) {
	ds.cacheMu.Lock()
	for _, id := range ids {
		delete(ds.itemCache, id)
	}
	ds.cacheMu.Unlock()
}
