// msgboard/handlers/users.go

package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"msgboard/board"
	"msgboard/caps"
	"msgboard/config"
	"msgboard/database"
	"msgboard/models"
	"msgboard/urls"

	"github.com/go-chi/chi/v5"
)

func userViews(b *board.Board, users []models.User) []*board.UserView {
	views := make([]*board.UserView, 0, len(users))
	for i := range users {
		views = append(views, b.UserViewOf(&users[i]))
	}
	return views
}

// HandleUsers lists all users.
func HandleUsers(w http.ResponseWriter, r *http.Request, app App) {
	listUsers(w, r, app, "", app.Board().Paths.UsersURL)
}

// HandleRole lists the users holding one role.
func HandleRole(w http.ResponseWriter, r *http.Request, app App) {
	role := chi.URLParam(r, "role")
	if !caps.RoleExists(role) {
		respondNotFound(w, app)
		return
	}
	listUsers(w, r, app, role, func(n int) string { return app.Board().Paths.RoleURL(role, n) })
}

func listUsers(w http.ResponseWriter, r *http.Request, app App, role string, pageURL func(int) string) {
	logger := app.Logger().With("handler", "listUsers", "role", role)
	page := pageParam(r)
	total, err := app.DB().CountUsers(role)
	if err != nil {
		logger.Error("Failed to count users", "error", err)
		respondError(w, http.StatusInternalServerError, "Database error loading users.", app)
		return
	}
	users, err := app.DB().ListUsers(role, config.UsersPerPage, offsetFor(page, config.UsersPerPage))
	if err != nil {
		logger.Error("Failed to list users", "error", err)
		respondError(w, http.StatusInternalServerError, "Database error loading users.", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"role":       role,
		"users":      userViews(app.Board(), users),
		"pagination": newPagination(page, total, config.UsersPerPage, pageURL),
	}, app)
}

// RoleView summarizes one role on the roles page.
type RoleView struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	URL         string `json:"url"`
	Users       int64  `json:"users"`
}

// HandleRoles lists the assignable roles with their member counts.
func HandleRoles(w http.ResponseWriter, r *http.Request, app App) {
	b := app.Board()
	roles := []RoleView{}
	for _, role := range caps.AssignableRoles() {
		n, err := app.DB().CountUsers(role.Name)
		if err != nil {
			app.Logger().Error("Failed to count role members", "handler", "HandleRoles", "role", role.Name, "error", err)
		}
		roles = append(roles, RoleView{
			Name:        role.Name,
			DisplayName: role.DisplayName,
			URL:         b.Paths.RoleURL(role.Name, 1),
			Users:       n,
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"roles": roles}, app)
}

// privateUserPages are only shown to the profile owner and to managers.
var privateUserPages = map[string]bool{
	"bookmarks":           true,
	"topic-subscriptions": true,
	"forum-subscriptions": true,
}

func lookupUser(w http.ResponseWriter, r *http.Request, app App) *models.User {
	user, err := app.DB().GetUserByNicename(chi.URLParam(r, "nicename"))
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			app.Logger().Error("Failed to load user", "nicename", chi.URLParam(r, "nicename"), "error", err)
		}
		respondNotFound(w, app)
		return nil
	}
	return user
}

// canManageUser reports whether the viewer is the user or a manager.
func canManageUser(app App, v board.Viewer, user *models.User) bool {
	return v.UserID() == user.ID || app.Board().Can(v, caps.ManageForums)
}

// HandleUser serves a user's profile.
func HandleUser(w http.ResponseWriter, r *http.Request, app App) {
	user := lookupUser(w, r, app)
	if user == nil {
		return
	}
	b := app.Board()
	v := viewerFor(r)
	pages := map[string]string{}
	for _, p := range urls.UserPages {
		if privateUserPages[p] && !canManageUser(app, v, user) {
			continue
		}
		pages[p] = b.Paths.UserPageURL(user.Nicename, p, 1)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user":  b.UserViewOf(user),
		"pages": pages,
	}, app)
}

// HandleUserPage serves a profile sub-page: the user's forums, topics,
// replies, bookmarks or subscriptions.
func HandleUserPage(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleUserPage")
	user := lookupUser(w, r, app)
	if user == nil {
		return
	}
	userPage := chi.URLParam(r, "userPage")
	b := app.Board()
	v := viewerFor(r)
	if !urls.IsUserPage(userPage) || (privateUserPages[userPage] && !canManageUser(app, v, user)) {
		respondNotFound(w, app)
		return
	}
	page := pageParam(r)

	var (
		q   database.ItemQuery
		ids []int64
		err error
	)
	switch userPage {
	case "topics":
		q = database.ItemQuery{Type: models.TypeTopic, AuthorID: user.ID, Statuses: visibleTopicStatuses(b, v), OrderBy: database.OrderMenuOrderDesc}
	case "replies":
		q = database.ItemQuery{Type: models.TypeReply, AuthorID: user.ID, Statuses: visibleReplyStatuses(b, v), OrderBy: database.OrderCreatedDesc}
	case "forums":
		ids, err = forumsPostedIn(app, user.ID)
		q = database.ItemQuery{Type: models.TypeForum, IDs: idSet(ids), Statuses: visibleForumStatuses(b, v), OrderBy: database.OrderTitleAsc}
	case "bookmarks":
		ids, err = app.DB().GetUserBookmarks(user.ID)
		q = database.ItemQuery{Type: models.TypeTopic, IDs: idSet(ids), Statuses: visibleTopicStatuses(b, v), OrderBy: database.OrderMenuOrderDesc}
	case "topic-subscriptions":
		ids, err = app.DB().GetUserSubscriptions(user.ID)
		q = database.ItemQuery{Type: models.TypeTopic, IDs: idSet(ids), Statuses: visibleTopicStatuses(b, v), OrderBy: database.OrderMenuOrderDesc}
	case "forum-subscriptions":
		ids, err = app.DB().GetUserForumSubscriptions(user.ID)
		q = database.ItemQuery{Type: models.TypeForum, IDs: idSet(ids), Statuses: visibleForumStatuses(b, v), OrderBy: database.OrderTitleAsc}
	}
	if err != nil {
		logger.Error("Failed to load user list", "user_id", user.ID, "page", userPage, "error", err)
		respondError(w, http.StatusInternalServerError, "Database error.", app)
		return
	}

	total, err := app.DB().CountItems(q)
	if err != nil {
		logger.Error("Failed to count items", "user_id", user.ID, "page", userPage, "error", err)
		respondError(w, http.StatusInternalServerError, "Database error.", app)
		return
	}
	q.Limit, q.Offset = config.TopicsPerPage, offsetFor(page, config.TopicsPerPage)
	items, err := app.DB().ListItems(q)
	if err != nil {
		logger.Error("Failed to list items", "user_id", user.ID, "page", userPage, "error", err)
		respondError(w, http.StatusInternalServerError, "Database error.", app)
		return
	}

	payload := map[string]interface{}{
		"user": b.UserViewOf(user),
		"page": userPage,
		"pagination": newPagination(page, total, config.TopicsPerPage, func(n int) string {
			return b.Paths.UserPageURL(user.Nicename, userPage, n)
		}),
	}
	switch q.Type {
	case models.TypeTopic:
		payload["topics"] = topicViews(app, v, items)
	case models.TypeReply:
		payload["replies"] = replyViews(app, v, items)
	case models.TypeForum:
		views := []board.ForumView{}
		for i := range items {
			if b.Can(v, caps.ForumCaps.ReadPost, items[i].ID) {
				views = append(views, b.ForumView(v, &items[i]))
			}
		}
		payload["forums"] = views
	}
	respondJSON(w, http.StatusOK, payload, app)
}

// idSet makes an empty list match nothing instead of everything.
func idSet(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

// forumsPostedIn returns the IDs of the forums holding the user's topics.
func forumsPostedIn(app App, userID int64) ([]int64, error) {
	topics, err := app.DB().ListItems(database.ItemQuery{Type: models.TypeTopic, AuthorID: userID})
	if err != nil {
		return nil, err
	}
	seen := map[int64]bool{}
	ids := []int64{}
	for _, t := range topics {
		if t.ParentID > 0 && !seen[t.ParentID] {
			seen[t.ParentID] = true
			ids = append(ids, t.ParentID)
		}
	}
	return ids, nil
}

// HandleAvatarUpload replaces a user's avatar with a resized copy of the
// uploaded image.
func HandleAvatarUpload(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleAvatarUpload")
	v := viewerFor(r)
	if !v.LoggedIn() {
		respondError(w, http.StatusUnauthorized, "You must be logged in.", app)
		return
	}
	user := lookupUser(w, r, app)
	if user == nil {
		return
	}
	if !canManageUser(app, v, user) {
		respondError(w, http.StatusForbidden, "You cannot change this avatar.", app)
		return
	}

	if err := r.ParseMultipartForm(config.MaxAvatarSize + 1024); err != nil {
		logger.Warn("Form parsing error", "error", err)
		respondError(w, http.StatusBadRequest, "Form parsing error: "+err.Error(), app)
		return
	}
	file, _, err := r.FormFile("avatar")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No avatar file uploaded.", app)
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Error("Failed to close upload file", "error", err)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(file, config.MaxAvatarSize+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Could not read file data.", app)
		return
	}
	resized, hash, err := board.ProcessAvatar(data)
	if err != nil {
		if errors.Is(err, board.ErrAvatarInvalid) {
			respondError(w, http.StatusBadRequest, err.Error(), app)
			return
		}
		logger.Error("Avatar processing failed", "user_id", user.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Avatar processing failed.", app)
		return
	}

	path, err := app.Storage().SaveFile(fmt.Sprintf("avatars/%d_%s.jpg", user.ID, hash), resized, "image/jpeg")
	if err != nil {
		logger.Error("Failed to store avatar", "user_id", user.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to store avatar.", app)
		return
	}
	old, err := app.DB().SetUserAvatar(user.ID, path)
	if err != nil {
		logger.Error("Failed to save avatar path", "user_id", user.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Database error.", app)
		return
	}
	if old != "" && old != path {
		if err := app.Storage().DeleteFile(old); err != nil {
			logger.Warn("Failed to delete old avatar", "path", old, "error", err)
		}
	}

	logger.Info("Avatar updated", "user_id", user.ID, "path", path)
	respondJSON(w, http.StatusOK, map[string]string{"avatar_url": path}, app)
}

// HandleSetUserRole assigns a role to a user. It sits behind
// RequireCapability(manage_forums).
func HandleSetUserRole(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleSetUserRole")
	user := lookupUser(w, r, app)
	if user == nil {
		return
	}
	role := r.FormValue("role")
	if !caps.RoleExists(role) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Unknown role %q.", role), app)
		return
	}
	actor := currentUser(r)
	if actor.ID == user.ID {
		respondError(w, http.StatusForbidden, "You cannot change your own role.", app)
		return
	}

	if err := app.DB().SetUserRole(actor.ID, user.ID, role); err != nil {
		logger.Error("Failed to set user role", "user_id", user.ID, "role", role, "error", err)
		respondError(w, http.StatusInternalServerError, "Database error.", app)
		return
	}
	logger.Info("User role changed", "user_id", user.ID, "from", user.Role, "to", role, "actor_id", actor.ID)
	user.Role = role
	respondJSON(w, http.StatusOK, map[string]interface{}{"user": app.Board().UserViewOf(user)}, app)
}
