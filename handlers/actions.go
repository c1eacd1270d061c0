// msgboard/handlers/actions.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"msgboard/board"
	"msgboard/caps"
	"msgboard/database"
	"msgboard/models"
	"msgboard/urls"
	"msgboard/utils"

	"github.com/go-chi/chi/v5"
)

// HandleBoardPost is the POST endpoint of the board index. It runs the
// new-topic and new-reply forms (?message-board=) and the item actions
// (?action=).
func HandleBoardPost(w http.ResponseWriter, r *http.Request, app App) {
	if form := r.URL.Query().Get("message-board"); form != "" {
		switch form {
		case urls.FormNewTopic:
			HandleNewTopic(w, r, app)
		case urls.FormNewReply:
			HandleNewReply(w, r, app)
		default:
			respondError(w, http.StatusBadRequest, "Unknown form.", app)
		}
		return
	}
	HandleAction(w, r, app)
}

// throttled reports whether user must wait before posting again.
func throttled(app App, v board.Viewer) bool {
	if app.Board().Can(v, caps.BypassThrottle) {
		return false
	}
	return !app.RateLimiter().Allow("user:" + strconv.FormatInt(v.UserID(), 10))
}

// HandleNewTopic creates a topic from the new-topic form.
func HandleNewTopic(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleNewTopic")
	b := app.Board()
	v := viewerFor(r)
	if !v.LoggedIn() {
		respondError(w, http.StatusUnauthorized, "You must be logged in to create new topics.", app)
		return
	}

	in := models.NewTopicInput{
		Title:     r.FormValue("title"),
		Content:   r.FormValue("content"),
		ForumID:   formInt64(r, "forum_id"),
		Subscribe: formBool(r, "subscribe"),
	}
	if in.ForumID == 0 {
		in.ForumID = app.DB().DefaultForumID()
	}
	if err := in.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, models.ValidationMessage(err), app)
		return
	}
	if !b.Can(v, caps.CreateTopics, in.ForumID) {
		respondError(w, http.StatusForbidden, "You cannot create new topics in this forum.", app)
		return
	}
	if throttled(app, v) {
		logger.Warn("Posting throttled", "user_id", v.UserID())
		respondError(w, http.StatusTooManyRequests, "Slow down; you move too fast.", app)
		return
	}

	topic, err := app.DB().CreateTopic(v.UserID(), in)
	if err != nil {
		logger.Error("Failed to create topic", "user_id", v.UserID(), "forum_id", in.ForumID, "error", err)
		respondError(w, http.StatusInternalServerError, "Database error creating topic.", app)
		return
	}

	logger.Info("New topic created", "topic_id", topic.ID, "forum_id", topic.ParentID)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"redirect": b.Paths.TopicURL(topic.Slug),
		"topic":    b.TopicView(v, topic, true, ""),
	}, app)
}

// HandleNewReply creates a reply from the new-reply form and notifies the
// topic's subscribers in the background.
func HandleNewReply(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleNewReply")
	b := app.Board()
	v := viewerFor(r)
	if !v.LoggedIn() {
		respondError(w, http.StatusUnauthorized, "You must be logged in to reply.", app)
		return
	}

	in := models.NewReplyInput{
		Content:   r.FormValue("content"),
		TopicID:   formInt64(r, "topic_id"),
		Subscribe: formBool(r, "subscribe"),
	}
	if err := in.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, models.ValidationMessage(err), app)
		return
	}
	if _, err := app.DB().GetTypedItem(in.TopicID, models.TypeTopic); err != nil || !b.Can(v, caps.TopicCaps.ReadPost, in.TopicID) {
		respondError(w, http.StatusNotFound, "Topic not found.", app)
		return
	}
	if !b.Can(v, caps.CreateReplies, in.TopicID) {
		respondError(w, http.StatusForbidden, "This topic is closed to new replies.", app)
		return
	}
	if throttled(app, v) {
		logger.Warn("Posting throttled", "user_id", v.UserID())
		respondError(w, http.StatusTooManyRequests, "Slow down; you move too fast.", app)
		return
	}

	reply, err := app.DB().CreateReply(v.UserID(), in)
	if err != nil {
		logger.Error("Failed to create reply", "user_id", v.UserID(), "topic_id", in.TopicID, "error", err)
		respondError(w, http.StatusInternalServerError, "Database error creating reply.", app)
		return
	}

	go func(topicID, replyID int64) {
		if _, err := b.NotifyTopicSubscribers(topicID, replyID); err != nil {
			logger.Error("Failed to notify subscribers", "topic_id", topicID, "reply_id", replyID, "error", err)
		}
	}(in.TopicID, reply.ID)

	logger.Info("New reply created", "reply_id", reply.ID, "topic_id", in.TopicID)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"redirect": b.ReplyURL(reply.ID),
		"reply":    b.ReplyView(v, reply, ""),
	}, app)
}

// statusChange maps moderation actions onto the status they set.
var statusChange = map[string]models.Status{
	urls.ActionClose:   models.StatusClose,
	urls.ActionOpen:    models.StatusOpen,
	urls.ActionSpam:    models.StatusSpam,
	urls.ActionUnspam:  models.StatusOpen,
	urls.ActionTrash:   models.StatusTrash,
	urls.ActionUntrash: models.StatusOpen,
}

// actionCap returns the capability an action on it requires, or "" when
// the action does not apply to items of that type.
func actionCap(action string, it *models.Item) string {
	tc := caps.CapsFor(it.Type)
	switch action {
	case urls.ActionClose:
		if it.IsTopic() {
			return tc.ClosePost
		}
	case urls.ActionOpen:
		if it.IsTopic() {
			return tc.OpenPost
		}
	case urls.ActionSpam, urls.ActionUnspam:
		return tc.SpamPost
	case urls.ActionTrash, urls.ActionUntrash:
		return tc.DeletePost
	case urls.ActionSubscribe, urls.ActionUnsubscribe:
		if it.IsTopic() || it.IsForum() {
			return tc.ReadPost
		}
	case urls.ActionBookmark, urls.ActionUnbookmark:
		if it.IsTopic() {
			return tc.ReadPost
		}
	}
	return ""
}

// HandleAction performs one ?action= on an item and redirects back.
func HandleAction(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleAction")
	b := app.Board()
	v := viewerFor(r)
	action := r.URL.Query().Get("action")
	if action == "" {
		action = r.FormValue("action")
	}
	if action == "" {
		respondError(w, http.StatusBadRequest, "No action given.", app)
		return
	}
	if !v.LoggedIn() {
		respondError(w, http.StatusUnauthorized, "You must be logged in.", app)
		return
	}

	itemID := formInt64(r, "topic_id")
	item, err := app.DB().GetItem(itemID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondNotFound(w, app)
			return
		}
		logger.Error("Failed to load item", "item_id", itemID, "error", err)
		respondError(w, http.StatusInternalServerError, "Database error.", app)
		return
	}
	capName := actionCap(action, item)
	if capName == "" {
		respondError(w, http.StatusBadRequest, "Unknown action.", app)
		return
	}
	if !b.Can(v, capName, item.ID) {
		logger.Warn("Action denied", "user_id", v.UserID(), "action", action, "item_id", item.ID)
		respondError(w, http.StatusForbidden, "You do not have permission to do that.", app)
		return
	}

	userID := v.UserID()
	if status, ok := statusChange[action]; ok {
		_, err = app.DB().SetItemStatus(userID, item.ID, status)
	} else {
		switch {
		case action == urls.ActionSubscribe && item.IsForum():
			_, err = app.DB().AddUserForumSubscription(userID, item.ID)
		case action == urls.ActionUnsubscribe && item.IsForum():
			_, err = app.DB().RemoveUserForumSubscription(userID, item.ID)
		case action == urls.ActionSubscribe:
			_, err = app.DB().AddUserSubscription(userID, item.ID)
		case action == urls.ActionUnsubscribe:
			_, err = app.DB().RemoveUserSubscription(userID, item.ID)
		case action == urls.ActionBookmark:
			_, err = app.DB().AddUserBookmark(userID, item.ID)
		case action == urls.ActionUnbookmark:
			_, err = app.DB().RemoveUserBookmark(userID, item.ID)
		}
	}
	if err != nil {
		logger.Error("Action failed", "action", action, "item_id", item.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Database error.", app)
		return
	}

	logger.Info("Action performed", "user_id", userID, "action", action, "item_id", item.ID)
	http.Redirect(w, r, utils.SafeRedirect(r.FormValue("redirect"), fallbackURL(b, item)), http.StatusSeeOther)
}

// fallbackURL is where an action returns to when no redirect was given.
func fallbackURL(b *board.Board, it *models.Item) string {
	switch it.Type {
	case models.TypeForum:
		return b.Paths.ForumURL(it.Slug, 1)
	case models.TypeTopic:
		return b.Paths.TopicURL(it.Slug)
	case models.TypeReply:
		if u := b.ReplyURL(it.ID); u != "" {
			return u
		}
	}
	return b.Paths.IndexURL()
}

// editPost applies an edit form to it after checking editCap.
func editPost(w http.ResponseWriter, r *http.Request, app App, it *models.Item, editCap string) *models.Item {
	logger := app.Logger().With("handler", "editPost")
	v := viewerFor(r)
	if !v.LoggedIn() {
		respondError(w, http.StatusUnauthorized, "You must be logged in.", app)
		return nil
	}
	if !app.Board().Can(v, editCap, it.ID) {
		respondError(w, http.StatusForbidden, "You do not have permission to edit this.", app)
		return nil
	}
	in := models.EditPostInput{Title: r.FormValue("title"), Content: r.FormValue("content")}
	if it.IsTopic() && in.Title == "" {
		in.Title = it.Title
	}
	if err := in.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, models.ValidationMessage(err), app)
		return nil
	}
	updated, err := app.DB().EditPost(v.UserID(), it.ID, in)
	if err != nil {
		logger.Error("Failed to edit post", "item_id", it.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Database error saving changes.", app)
		return nil
	}
	return updated
}

// HandleEditTopic updates a topic's title and content.
func HandleEditTopic(w http.ResponseWriter, r *http.Request, app App) {
	topic := lookupItem(w, r, app, models.TypeTopic, app.Logger().With("handler", "HandleEditTopic"))
	if topic == nil {
		return
	}
	updated := editPost(w, r, app, topic, caps.TopicCaps.EditPost)
	if updated == nil {
		return
	}
	b := app.Board()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"redirect": b.Paths.TopicURL(updated.Slug),
		"topic":    b.TopicView(viewerFor(r), updated, true, ""),
	}, app)
}

// HandleEditReply updates a reply's content.
func HandleEditReply(w http.ResponseWriter, r *http.Request, app App) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	b := app.Board()
	reply, err := app.DB().GetTypedItem(id, models.TypeReply)
	if err != nil || !b.Can(viewerFor(r), caps.ReplyCaps.ReadPost, id) {
		respondNotFound(w, app)
		return
	}
	updated := editPost(w, r, app, reply, caps.ReplyCaps.EditPost)
	if updated == nil {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"redirect": b.ReplyURL(updated.ID),
		"reply":    b.ReplyView(viewerFor(r), updated, ""),
	}, app)
}
