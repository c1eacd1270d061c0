package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"msgboard/models"
	"msgboard/utils"
)

// metaTimeFormat is the layout of activity datetimes stored as meta.
const metaTimeFormat = "2006-01-02 15:04:05"

// --- Item Meta ---

// GetMeta returns an item attribute and whether it was set.
func (ds *DatabaseService) GetMeta(itemID int64, key string) (string, bool, error) {
	var v string
	err := ds.DB.QueryRow("SELECT meta_value FROM item_meta WHERE item_id = ? AND meta_key = ?", itemID, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("db error reading meta %s for item %d: %w", key, itemID, err)
	}
	return v, true, nil
}

// GetMetaInt reads an integer attribute. Missing or malformed values read as 0.
func (ds *DatabaseService) GetMetaInt(itemID int64, key string) (int64, error) {
	v, ok, err := ds.GetMeta(itemID, key)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// GetMetaTime reads an activity datetime attribute.
func (ds *DatabaseService) GetMetaTime(itemID int64, key string) (time.Time, bool, error) {
	v, ok, err := ds.GetMeta(itemID, key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, err := time.ParseInLocation(metaTimeFormat, v, time.UTC)
	if err != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// GetMetaIDs reads a comma-separated ID list attribute.
func (ds *DatabaseService) GetMetaIDs(itemID int64, key string) ([]int64, error) {
	v, _, err := ds.GetMeta(itemID, key)
	if err != nil {
		return nil, err
	}
	return utils.ParseIDList(v), nil
}

func (ds *DatabaseService) SetMeta(itemID int64, key, value string) error {
	_, err := ds.DB.Exec(`INSERT INTO item_meta (item_id, meta_key, meta_value) VALUES (?, ?, ?)
		ON CONFLICT(item_id, meta_key) DO UPDATE SET meta_value = excluded.meta_value`, itemID, key, value)
	if err != nil {
		return fmt.Errorf("failed to set meta %s for item %d: %w", key, itemID, err)
	}
	return nil
}

func (ds *DatabaseService) SetMetaInt(itemID int64, key string, value int64) error {
	return ds.SetMeta(itemID, key, strconv.FormatInt(value, 10))
}

func (ds *DatabaseService) setMetaTime(itemID int64, key, epochKey string, t time.Time) error {
	if err := ds.SetMeta(itemID, key, t.UTC().Format(metaTimeFormat)); err != nil {
		return err
	}
	return ds.SetMetaInt(itemID, epochKey, t.Unix())
}

func (ds *DatabaseService) DeleteMeta(itemID int64, key string) error {
	if _, err := ds.DB.Exec("DELETE FROM item_meta WHERE item_id = ? AND meta_key = ?", itemID, key); err != nil {
		return fmt.Errorf("failed to delete meta %s for item %d: %w", key, itemID, err)
	}
	return nil
}

// --- User Meta ---

func (ds *DatabaseService) GetUserMeta(userID int64, key string) (string, error) {
	var v string
	err := ds.DB.QueryRow("SELECT meta_value FROM user_meta WHERE user_id = ? AND meta_key = ?", userID, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("db error reading user meta %s for user %d: %w", key, userID, err)
	}
	return v, nil
}

func (ds *DatabaseService) GetUserMetaInt(userID int64, key string) (int64, error) {
	v, err := ds.GetUserMeta(userID, key)
	if err != nil || v == "" {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (ds *DatabaseService) SetUserMeta(userID int64, key, value string) error {
	_, err := ds.DB.Exec(`INSERT INTO user_meta (user_id, meta_key, meta_value) VALUES (?, ?, ?)
		ON CONFLICT(user_id, meta_key) DO UPDATE SET meta_value = excluded.meta_value`, userID, key, value)
	if err != nil {
		return fmt.Errorf("failed to set user meta %s for user %d: %w", key, userID, err)
	}
	return nil
}

func (ds *DatabaseService) DeleteUserMeta(userID int64, key string) error {
	if _, err := ds.DB.Exec("DELETE FROM user_meta WHERE user_id = ? AND meta_key = ?", userID, key); err != nil {
		return fmt.Errorf("failed to delete user meta %s for user %d: %w", key, userID, err)
	}
	return nil
}

// GetUserIDList reads a comma-separated ID list stored as user meta.
func (ds *DatabaseService) GetUserIDList(userID int64, key string) ([]int64, error) {
	v, err := ds.GetUserMeta(userID, key)
	if err != nil {
		return nil, err
	}
	return utils.ParseIDList(v), nil
}

// --- Options ---

func (ds *DatabaseService) GetOption(name string) (string, error) {
	var v string
	err := ds.DB.QueryRow("SELECT value FROM options WHERE name = ?", name).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("db error reading option %s: %w", name, err)
	}
	return v, nil
}

func (ds *DatabaseService) SetOption(name, value string) error {
	_, err := ds.DB.Exec(`INSERT INTO options (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value`, name, value)
	if err != nil {
		return fmt.Errorf("failed to set option %s: %w", name, err)
	}
	return nil
}

func (ds *DatabaseService) GetOptionIDs(name string) ([]int64, error) {
	v, err := ds.GetOption(name)
	if err != nil {
		return nil, err
	}
	return utils.ParseIDList(v), nil
}

func (ds *DatabaseService) SetOptionIDs(name string, ids []int64) error {
	return ds.SetOption(name, utils.JoinIDList(ids))
}

// DefaultForumID returns the ID of the forum new topics fall back to.
func (ds *DatabaseService) DefaultForumID() int64 {
	v, err := ds.GetOption(models.OptionDefaultForumID)
	if err != nil {
		ds.logger.Error("Failed to read default forum option", "error", err)
		return 0
	}
	id, _ := strconv.ParseInt(v, 10, 64)
	return id
}
