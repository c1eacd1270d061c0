package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"msgboard/models"
	"msgboard/utils"

	"github.com/gosimple/slug"
	sqlite3 "github.com/mattn/go-sqlite3"
)

const userColumns = "id, login, nicename, display_name, email, password_hash, role, avatar_path, registered"

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Login, &u.Nicename, &u.DisplayName, &u.Email, &u.PasswordHash, &u.Role, &u.AvatarPath, &u.Registered); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser registers a new account with a bcrypt password hash.
func (ds *DatabaseService) CreateUser(in models.RegisterInput, role string) (*models.User, error) {
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	nicename := slug.Make(in.Login)
	if nicename == "" {
		nicename = "user"
	}
	base := nicename
	for n := 2; ; n++ {
		var exists int
		if err := ds.DB.QueryRow("SELECT COUNT(*) FROM users WHERE nicename = ?", nicename).Scan(&exists); err != nil {
			return nil, err
		}
		if exists == 0 {
			break
		}
		nicename = base + "-" + strconv.Itoa(n)
	}

	u := &models.User{
		Login:        in.Login,
		Nicename:     nicename,
		DisplayName:  in.Login,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		Registered:   utils.GetSQLTime(),
	}
	res, err := ds.DB.Exec(`INSERT INTO users (login, nicename, display_name, email, password_hash, role, registered) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Login, u.Nicename, u.DisplayName, u.Email, u.PasswordHash, u.Role, u.Registered)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks a login/password pair.
func (ds *DatabaseService) Authenticate(login, password string) (*models.User, error) {
	u, err := ds.GetUserByLogin(login)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidLogin
		}
		return nil, err
	}
	if err := utils.CheckPasswordHash(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidLogin
	}
	return u, nil
}

func (ds *DatabaseService) getUserWhere(clause string, arg any) (*models.User, error) {
	u, err := scanUser(ds.DB.QueryRow("SELECT "+userColumns+" FROM users WHERE "+clause, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error getting user: %w", err)
	}
	return u, nil
}

func (ds *DatabaseService) GetUser(id int64) (*models.User, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}
	return ds.getUserWhere("id = ?", id)
}

func (ds *DatabaseService) GetUserByLogin(login string) (*models.User, error) {
	return ds.getUserWhere("login = ?", strings.TrimSpace(login))
}

func (ds *DatabaseService) GetUserByNicename(nicename string) (*models.User, error) {
	return ds.getUserWhere("nicename = ?", nicename)
}

// ListUsers returns a page of users, optionally restricted to one role.
func (ds *DatabaseService) ListUsers(role string, limit, offset int) ([]models.User, error) {
	query := "SELECT " + userColumns + " FROM users"
	var args []any
	if role != "" {
		query += " WHERE role = ?"
		args = append(args, role)
	}
	query += " ORDER BY login COLLATE NOCASE ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := ds.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			ds.logger.Error("Failed to close rows in ListUsers", "error", err)
		}
	}()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			ds.logger.Error("Failed to scan user row", "error", err)
			continue
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (ds *DatabaseService) CountUsers(role string) (int64, error) {
	var n int64
	var err error
	if role == "" {
		err = ds.DB.QueryRow("SELECT COUNT(*) FROM users").Scan(&n)
	} else {
		err = ds.DB.QueryRow("SELECT COUNT(*) FROM users WHERE role = ?", role).Scan(&n)
	}
	return n, err
}

// SetUserRole changes a user's role. Changes made by an actor are logged.
func (ds *DatabaseService) SetUserRole(actorID, userID int64, role string) error {
	tx, err := ds.DB.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			ds.logger.Error("Failed to rollback transaction in SetUserRole", "error", rerr)
		}
	}()

	res, err := tx.Exec("UPDATE users SET role = ? WHERE id = ?", role, userID)
	if err != nil {
		return fmt.Errorf("failed to set role for user %d: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if actorID > 0 {
		if err := LogModAction(tx, actorID, "set_role", userID, role); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// EnsureUserRole gives the user with login the role unless they already
// hold it. It reports whether the role changed.
func (ds *DatabaseService) EnsureUserRole(login, role string) (bool, error) {
	u, err := ds.GetUserByLogin(login)
	if err != nil {
		return false, err
	}
	if u.Role == role {
		return false, nil
	}
	if err := ds.SetUserRole(0, u.ID, role); err != nil {
		return false, err
	}
	return true, nil
}

// SetUserAvatar stores the new avatar path and returns the previous one.
func (ds *DatabaseService) SetUserAvatar(userID int64, path string) (string, error) {
	var old string
	if err := ds.DB.QueryRow("SELECT avatar_path FROM users WHERE id = ?", userID).Scan(&old); err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", err
	}
	if _, err := ds.DB.Exec("UPDATE users SET avatar_path = ? WHERE id = ?", path, userID); err != nil {
		return "", fmt.Errorf("failed to set avatar for user %d: %w", userID, err)
	}
	return old, nil
}
