// msgboard/handlers/pages.go

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"msgboard/board"
	"msgboard/caps"
	"msgboard/config"
	"msgboard/database"
	"msgboard/models"

	"github.com/go-chi/chi/v5"
)

func visibleForumStatuses(b *board.Board, v board.Viewer) []models.Status {
	statuses := []models.Status{models.StatusOpen, models.StatusClose}
	if b.Can(v, caps.ReadPrivateForums) {
		statuses = append(statuses, models.StatusPrivate)
	}
	if b.Can(v, caps.ReadHiddenForums) {
		statuses = append(statuses, models.StatusHidden)
	}
	if b.Can(v, caps.ModerateForums) {
		statuses = append(statuses, models.StatusTrash)
	}
	return statuses
}

// forumViews lists the readable forums under parentID, descending depth
// levels into sub-forums.
func forumViews(app App, v board.Viewer, q database.ItemQuery, depth int) ([]board.ForumView, error) {
	b := app.Board()
	q.Type = models.TypeForum
	q.Statuses = visibleForumStatuses(b, v)
	if q.OrderBy == "" {
		q.OrderBy = database.OrderMenuOrderAsc
	}
	forums, err := app.DB().ListItems(q)
	if err != nil {
		return nil, err
	}

	views := []board.ForumView{}
	for i := range forums {
		f := &forums[i]
		if !b.Can(v, caps.ForumCaps.ReadPost, f.ID) {
			continue
		}
		fv := b.ForumView(v, f)
		if depth > 0 {
			fv.SubForums, err = forumViews(app, v, database.ItemQuery{ParentIDs: []int64{f.ID}}, depth-1)
			if err != nil {
				return nil, err
			}
		}
		views = append(views, fv)
	}
	return views, nil
}

// topicViews renders the readable topics in items.
func topicViews(app App, v board.Viewer, items []models.Item) []board.TopicView {
	b := app.Board()
	views := []board.TopicView{}
	for i := range items {
		t := &items[i]
		if !b.Can(v, caps.TopicCaps.ReadPost, t.ID) {
			continue
		}
		views = append(views, b.TopicView(v, t, false, ""))
	}
	return views
}

func replyViews(app App, v board.Viewer, items []models.Item) []board.ReplyView {
	b := app.Board()
	views := []board.ReplyView{}
	for i := range items {
		reply := &items[i]
		if !b.Can(v, caps.ReplyCaps.ReadPost, reply.ID) {
			continue
		}
		views = append(views, b.ReplyView(v, reply, ""))
	}
	return views
}

// stickyTopics loads the topics stored in a sticky option list, limited
// to parentIDs when given.
func stickyTopics(app App, v board.Viewer, option string, parentIDs []int64) ([]models.Item, error) {
	ids, err := app.DB().GetOptionIDs(option)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	return app.DB().ListItems(database.ItemQuery{
		Type:      models.TypeTopic,
		IDs:       ids,
		ParentIDs: parentIDs,
		Statuses:  visibleTopicStatuses(app.Board(), v),
		OrderBy:   database.OrderMenuOrderDesc,
	})
}

func itemIDs(items []models.Item) []int64 {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

// lookupItem resolves a slug route parameter. It writes a 404 or 500 and
// returns nil when the item is missing or unreadable.
func lookupItem(w http.ResponseWriter, r *http.Request, app App, t models.ItemType, logger *slog.Logger) *models.Item {
	it, err := app.DB().GetItemBySlug(t, chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondNotFound(w, app)
			return nil
		}
		logger.Error("DB error resolving slug", "type", t, "error", err)
		respondError(w, http.StatusInternalServerError, "Database error.", app)
		return nil
	}
	if !app.Board().Can(viewerFor(r), caps.ReadPost, it.ID) {
		respondNotFound(w, app)
		return nil
	}
	return it
}

// HandleIndex serves the board front page: the forum tree and the super
// sticky topics.
func HandleIndex(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleIndex")
	b := app.Board()
	v := viewerFor(r)

	forums, err := forumViews(app, v, database.ItemQuery{ParentIDs: []int64{0}}, 1)
	if err != nil {
		logger.Error("Failed to load forums", "error", err)
		respondError(w, http.StatusInternalServerError, "Database error loading forums.", app)
		return
	}
	supers, err := stickyTopics(app, v, models.OptionSuperStickyTopics, nil)
	if err != nil {
		logger.Error("Failed to load super sticky topics", "error", err)
	}

	payload := map[string]interface{}{
		"title":          config.SiteName,
		"version":        config.AppVersion,
		"forums":         forums,
		"super_stickies": topicViews(app, v, supers),
		"links": map[string]string{
			"forums": b.Paths.ForumsURL(1),
			"topics": b.Paths.TopicsURL(1),
			"users":  b.Paths.UsersURL(1),
			"roles":  b.Paths.RolesURL(),
			"search": b.Paths.SearchURL(""),
			"login":  b.Paths.LoginURL(),
		},
	}
	if u := currentUser(r); u != nil {
		payload["user"] = b.UserViewOf(u)
	}
	respondJSON(w, http.StatusOK, payload, app)
}

// HandleForums lists the top-level forums.
func HandleForums(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleForums")
	b := app.Board()
	v := viewerFor(r)
	page := pageParam(r)

	q := database.ItemQuery{
		Type:      models.TypeForum,
		ParentIDs: []int64{0},
		Statuses:  visibleForumStatuses(b, v),
	}
	total, err := app.DB().CountItems(q)
	if err != nil {
		logger.Error("Failed to count forums", "error", err)
		respondError(w, http.StatusInternalServerError, "Database error loading forums.", app)
		return
	}
	q.Limit, q.Offset = config.TopicsPerPage, offsetFor(page, config.TopicsPerPage)
	forums, err := forumViews(app, v, q, 1)
	if err != nil {
		logger.Error("Failed to load forums", "error", err)
		respondError(w, http.StatusInternalServerError, "Database error loading forums.", app)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"forums":     forums,
		"pagination": newPagination(page, total, config.TopicsPerPage, b.Paths.ForumsURL),
	}, app)
}

// HandleForum serves a forum with its sub-forums and a page of topics.
// Sticky topics lead the first page.
func HandleForum(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleForum")
	forum := lookupItem(w, r, app, models.TypeForum, logger)
	if forum == nil {
		return
	}
	b := app.Board()
	v := viewerFor(r)
	page := pageParam(r)

	fv := b.ForumView(v, forum)
	subForums, err := forumViews(app, v, database.ItemQuery{ParentIDs: []int64{forum.ID}}, 0)
	if err != nil {
		logger.Error("Failed to load sub-forums", "forum_id", forum.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Database error loading forum.", app)
		return
	}
	fv.SubForums = subForums

	supers, err := stickyTopics(app, v, models.OptionSuperStickyTopics, nil)
	if err != nil {
		logger.Error("Failed to load super sticky topics", "error", err)
	}
	stickies, err := stickyTopics(app, v, models.OptionStickyTopics, []int64{forum.ID})
	if err != nil {
		logger.Error("Failed to load sticky topics", "forum_id", forum.ID, "error", err)
	}
	pinned := append(supers, stickies...)

	q := database.ItemQuery{
		Type:      models.TypeTopic,
		ParentIDs: []int64{forum.ID},
		Statuses:  visibleTopicStatuses(b, v),
		ExcludeID: itemIDs(pinned),
	}
	total, err := app.DB().CountItems(q)
	if err != nil {
		logger.Error("Failed to count topics", "forum_id", forum.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Database error loading topics.", app)
		return
	}
	q.OrderBy = database.OrderMenuOrderDesc
	q.Limit, q.Offset = config.TopicsPerPage, offsetFor(page, config.TopicsPerPage)
	topics, err := app.DB().ListItems(q)
	if err != nil {
		logger.Error("Failed to load topics", "forum_id", forum.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Database error loading topics.", app)
		return
	}

	payload := map[string]interface{}{
		"forum":  fv,
		"topics": topicViews(app, v, topics),
		"pagination": newPagination(page, total, config.TopicsPerPage, func(n int) string {
			return b.Paths.ForumURL(forum.Slug, n)
		}),
	}
	if page == 1 {
		payload["sticky_topics"] = topicViews(app, v, pinned)
	}
	respondJSON(w, http.StatusOK, payload, app)
}

// HandleTopics lists topics across all forums, most recently active first.
func HandleTopics(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleTopics")
	b := app.Board()
	v := viewerFor(r)
	page := pageParam(r)

	supers, err := stickyTopics(app, v, models.OptionSuperStickyTopics, nil)
	if err != nil {
		logger.Error("Failed to load super sticky topics", "error", err)
	}
	q := database.ItemQuery{
		Type:      models.TypeTopic,
		Statuses:  visibleTopicStatuses(b, v),
		ExcludeID: itemIDs(supers),
	}
	total, err := app.DB().CountItems(q)
	if err != nil {
		logger.Error("Failed to count topics", "error", err)
		respondError(w, http.StatusInternalServerError, "Database error loading topics.", app)
		return
	}
	q.OrderBy = database.OrderMenuOrderDesc
	q.Limit, q.Offset = config.TopicsPerPage, offsetFor(page, config.TopicsPerPage)
	topics, err := app.DB().ListItems(q)
	if err != nil {
		logger.Error("Failed to load topics", "error", err)
		respondError(w, http.StatusInternalServerError, "Database error loading topics.", app)
		return
	}

	payload := map[string]interface{}{
		"topics":     topicViews(app, v, topics),
		"pagination": newPagination(page, total, config.TopicsPerPage, b.Paths.TopicsURL),
	}
	if page == 1 {
		payload["sticky_topics"] = topicViews(app, v, supers)
	}
	respondJSON(w, http.StatusOK, payload, app)
}

// HandleTopic serves a topic and one page of its replies.
func HandleTopic(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleTopic")
	topic := lookupItem(w, r, app, models.TypeTopic, logger)
	if topic == nil {
		return
	}
	b := app.Board()
	v := viewerFor(r)
	page := pageParam(r)

	q := database.ItemQuery{
		Type:      models.TypeReply,
		ParentIDs: []int64{topic.ID},
		Statuses:  visibleReplyStatuses(b, v),
	}
	total, err := app.DB().CountItems(q)
	if err != nil {
		logger.Error("Failed to count replies", "topic_id", topic.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Database error loading replies.", app)
		return
	}
	q.OrderBy = database.OrderCreatedAsc
	q.Limit, q.Offset = config.RepliesPerPage, offsetFor(page, config.RepliesPerPage)
	replies, err := app.DB().ListItems(q)
	if err != nil {
		logger.Error("Failed to load replies", "topic_id", topic.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Database error loading replies.", app)
		return
	}

	payload := map[string]interface{}{
		"topic":   b.TopicView(v, topic, true, ""),
		"replies": replyViews(app, v, replies),
		"pagination": newPagination(page, total, config.RepliesPerPage, func(n int) string {
			return b.Paths.TopicPageURL(topic.Slug, n)
		}),
	}
	if forum, err := app.DB().GetTypedItem(topic.ParentID, models.TypeForum); err == nil {
		payload["forum"] = map[string]string{"title": forum.Title, "url": b.Paths.ForumURL(forum.Slug, 1)}
	}
	respondJSON(w, http.StatusOK, payload, app)
}

// HandleTopicFeed serves a topic's replies as RSS or Atom.
func HandleTopicFeed(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleTopicFeed")
	topic := lookupItem(w, r, app, models.TypeTopic, logger)
	if topic == nil {
		return
	}
	feed, err := app.Board().TopicFeed(viewerFor(r), topic, baseURL(r))
	if err != nil {
		logger.Error("Failed to build feed", "topic_id", topic.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to build feed.", app)
		return
	}
	if !renderFeed(w, feed, chi.URLParam(r, "kind"), app) {
		respondNotFound(w, app)
	}
}

// HandleReply redirects a reply permalink to its page on the topic.
func HandleReply(w http.ResponseWriter, r *http.Request, app App) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondNotFound(w, app)
		return
	}
	b := app.Board()
	if _, err := app.DB().GetTypedItem(id, models.TypeReply); err != nil || !b.Can(viewerFor(r), caps.ReplyCaps.ReadPost, id) {
		respondNotFound(w, app)
		return
	}
	http.Redirect(w, r, b.ReplyURL(id), http.StatusFound)
}

// SearchResult is one readable search hit.
type SearchResult struct {
	ID      int64           `json:"id"`
	Type    models.ItemType `json:"type"`
	Title   string          `json:"title"`
	URL     string          `json:"url"`
	Excerpt string          `json:"excerpt"`
}

// HandleSearch runs a full-text search over topics and replies.
func HandleSearch(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleSearch")
	b := app.Board()
	v := viewerFor(r)
	query := strings.TrimSpace(r.URL.Query().Get("s"))

	results := []SearchResult{}
	if query != "" {
		items, err := app.DB().SearchItems(query, models.ItemType(r.URL.Query().Get("type")), config.SearchLimit)
		if err != nil {
			logger.Warn("Search failed", "query", query, "error", err)
		}
		for _, it := range items {
			if !b.Can(v, caps.ReadPost, it.ID) {
				continue
			}
			res := SearchResult{ID: it.ID, Type: it.Type, Title: it.Title, Excerpt: board.Excerpt(it.Content, 160)}
			if it.IsTopic() {
				res.URL = b.Paths.TopicURL(it.Slug)
			} else {
				res.URL = b.ReplyURL(it.ID)
			}
			results = append(results, res)
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"results": results,
	}, app)
}

// baseURL returns the scheme and host the request arrived on.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
