// msgboard/handlers/moderation.go

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"msgboard/caps"
	"msgboard/database"
	"msgboard/models"
)

// Every handler in this file sits behind RequireCapability(manage_forums).

func forumInputFromForm(r *http.Request, current *models.Item, currentType string) models.ForumInput {
	in := models.ForumInput{}
	if current != nil {
		in = models.ForumInput{
			Title:     current.Title,
			Content:   current.Content,
			ForumType: currentType,
			Status:    string(current.Status),
			ParentID:  current.ParentID,
			MenuOrder: current.MenuOrder,
		}
	}
	in.Title = formValueOr(r, "title", in.Title)
	in.Content = formValueOr(r, "content", in.Content)
	in.ForumType = formValueOr(r, "forum_type", in.ForumType)
	in.Status = formValueOr(r, "status", in.Status)
	if _, ok := r.Form["parent_id"]; ok {
		in.ParentID = formInt64(r, "parent_id")
	}
	if _, ok := r.Form["menu_order"]; ok {
		in.MenuOrder = formInt64(r, "menu_order")
	}
	return in
}

// HandleCreateForum adds a forum or category.
func HandleCreateForum(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleCreateForum")
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "Form parsing error.", app)
		return
	}
	in := forumInputFromForm(r, nil, "")
	if err := in.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, models.ValidationMessage(err), app)
		return
	}

	user := currentUser(r)
	id, err := app.DB().CreateForum(user.ID, in)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusBadRequest, "Parent forum not found.", app)
			return
		}
		logger.Error("Failed to create forum", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create forum.", app)
		return
	}
	forum, err := app.DB().GetItem(id)
	if err != nil {
		logger.Error("Failed to reload forum", "forum_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Database error.", app)
		return
	}

	logger.Info("Forum created", "forum_id", id, "title", forum.Title, "user_id", user.ID)
	b := app.Board()
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"forum":    b.ForumView(viewerFor(r), forum),
		"redirect": b.Paths.ForumURL(forum.Slug, 1),
	}, app)
}

// HandleEditForum changes a forum's title, description, type, status,
// parent or order. Fields that are not submitted keep their value.
func HandleEditForum(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleEditForum")
	forum := lookupItem(w, r, app, models.TypeForum, logger)
	if forum == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "Form parsing error.", app)
		return
	}
	b := app.Board()
	in := forumInputFromForm(r, forum, b.ForumType(forum.ID))
	if err := in.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, models.ValidationMessage(err), app)
		return
	}
	if models.Status(in.Status) == models.StatusTrash && forum.Status != models.StatusTrash &&
		!b.Can(viewerFor(r), caps.ForumCaps.DeletePost, forum.ID) {
		respondError(w, http.StatusForbidden, "You cannot delete this forum.", app)
		return
	}

	if err := app.DB().UpdateForum(currentUser(r).ID, forum.ID, in); err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			respondError(w, http.StatusBadRequest, "Parent forum not found.", app)
			return
		case errors.Is(err, database.ErrDefaultForum):
			respondError(w, http.StatusForbidden, "You cannot delete this forum.", app)
			return
		}
		logger.Warn("Failed to update forum", "forum_id", forum.ID, "error", err)
		respondError(w, http.StatusBadRequest, "Failed to update forum: "+err.Error(), app)
		return
	}
	updated, err := app.DB().GetItem(forum.ID)
	if err != nil {
		logger.Error("Failed to reload forum", "forum_id", forum.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Database error.", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"forum":    b.ForumView(viewerFor(r), updated),
		"redirect": b.Paths.ForumURL(updated.Slug, 1),
	}, app)
}

// HandleTopicType makes a topic normal, sticky or super sticky.
func HandleTopicType(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleTopicType")
	topic := lookupItem(w, r, app, models.TypeTopic, logger)
	if topic == nil {
		return
	}
	topicType := r.FormValue("type")
	switch topicType {
	case models.TopicTypeNormal, models.TopicTypeSticky, models.TopicTypeSuper:
	default:
		respondError(w, http.StatusBadRequest, "Unknown topic type.", app)
		return
	}

	b := app.Board()
	if err := b.SetTopicType(currentUser(r).ID, topic.ID, topicType); err != nil {
		logger.Error("Failed to set topic type", "topic_id", topic.ID, "type", topicType, "error", err)
		respondError(w, http.StatusInternalServerError, "Database error.", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"topic": b.TopicView(viewerFor(r), topic, false, ""),
	}, app)
}

// HandleMoveTopic moves a topic into another forum.
func HandleMoveTopic(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleMoveTopic")
	topic := lookupItem(w, r, app, models.TypeTopic, logger)
	if topic == nil {
		return
	}
	b := app.Board()
	forumID := formInt64(r, "forum_id")
	if _, err := app.DB().GetTypedItem(forumID, models.TypeForum); err != nil {
		respondError(w, http.StatusBadRequest, "Forum not found.", app)
		return
	}
	if !b.ForumTypeAllowsTopics(forumID) {
		respondError(w, http.StatusBadRequest, "Categories cannot hold topics.", app)
		return
	}

	moved, err := app.DB().MoveTopic(currentUser(r).ID, topic.ID, forumID)
	if err != nil {
		logger.Error("Failed to move topic", "topic_id", topic.ID, "forum_id", forumID, "error", err)
		respondError(w, http.StatusInternalServerError, "Database error.", app)
		return
	}
	logger.Info("Topic moved", "topic_id", topic.ID, "from", topic.ParentID, "to", forumID)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"topic": b.TopicView(viewerFor(r), moved, false, ""),
	}, app)
}

// HandleModLog lists the most recent moderation actions.
func HandleModLog(w http.ResponseWriter, r *http.Request, app App) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 500 {
		limit = 100
	}
	logs, err := app.DB().GetModActions(limit)
	if err != nil {
		app.Logger().Error("Failed to retrieve mod log", "handler", "HandleModLog", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to retrieve log.", app)
		return
	}
	if logs == nil {
		logs = []models.ModAction{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"actions": logs}, app)
}

// HandleDatabaseBackup snapshots the database.
func HandleDatabaseBackup(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleDatabaseBackup")
	backupPath, err := app.DB().BackupDatabase()
	if err != nil {
		logger.Error("Failed to create database backup", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create database backup.", app)
		return
	}
	logger.Info("Database backup created successfully", "path", backupPath)
	if err := app.DB().RecordModAction(currentUser(r).ID, "database_backup", 0, backupPath); err != nil {
		logger.Error("Failed to log backup", "error", err)
		respondError(w, http.StatusInternalServerError, "Database error logging action.", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"backup": backupPath}, app)
}
