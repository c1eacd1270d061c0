// msgboard/handlers/handlers.go

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"msgboard/board"
	"msgboard/caps"
	"msgboard/database"
	"msgboard/models"
	"msgboard/urls"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
)

// App is an interface that defines the dependencies our handlers need.
type App interface {
	DB() *database.DatabaseService
	Board() *board.Board
	RateLimiter() *models.RateLimiter
	RegLimiter() *models.RateLimiter
	Challenges() *models.ChallengeStore
	Sessions() *scs.SessionManager
	Storage() models.StorageService
	Logger() *slog.Logger
	UploadDir() string
}

// MakeHandler adapts a handler taking App into an http.HandlerFunc.
func MakeHandler(app App, fn func(http.ResponseWriter, *http.Request, App)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(w, r, app)
	}
}

// HandleNewChallenge generates a new challenge and returns it as JSON.
func HandleNewChallenge(w http.ResponseWriter, r *http.Request, app App) {
	token, question := app.Challenges().GenerateChallenge()
	payload := map[string]string{
		"token":    token,
		"question": question,
	}
	respondJSON(w, http.StatusOK, payload, app)
}

// currentUser returns the logged-in user, or nil for guests.
func currentUser(r *http.Request) *models.User {
	u, _ := r.Context().Value(UserKey).(*models.User)
	return u
}

func viewerFor(r *http.Request) board.Viewer {
	return board.NewViewer(currentUser(r))
}

// pageParam reads the {page} route parameter, defaulting to 1.
func pageParam(r *http.Request) int {
	return urls.ParsePage(chi.URLParam(r, "page"))
}

func formInt64(r *http.Request, key string) int64 {
	n, _ := strconv.ParseInt(r.FormValue(key), 10, 64)
	return n
}

func formBool(r *http.Request, key string) bool {
	switch r.FormValue(key) {
	case "1", "on", "true", "yes":
		return true
	}
	return false
}

// formValueOr returns the submitted value of key, or fallback when the
// field was not sent at all.
func formValueOr(r *http.Request, key, fallback string) string {
	if _, ok := r.Form[key]; ok {
		return r.FormValue(key)
	}
	return fallback
}

// visibleTopicStatuses lists the topic statuses v may see in listings.
// Individual items are still filtered through read_topic.
func visibleTopicStatuses(b *board.Board, v board.Viewer) []models.Status {
	statuses := append([]models.Status{}, models.PublicTopicStatuses...)
	if b.Can(v, caps.ReadPrivateTopics) {
		statuses = append(statuses, models.StatusPrivate)
	}
	if b.Can(v, caps.ReadHiddenTopics) {
		statuses = append(statuses, models.StatusHidden)
	}
	if b.Can(v, caps.ModerateTopics) {
		statuses = append(statuses, models.StatusSpam, models.StatusTrash)
	}
	return statuses
}

func visibleReplyStatuses(b *board.Board, v board.Viewer) []models.Status {
	statuses := append([]models.Status{}, models.CountedReplyStatuses...)
	if b.Can(v, caps.ModerateReplies) {
		statuses = append(statuses, models.StatusSpam, models.StatusTrash)
	}
	return statuses
}

// Page represents a single link in the pagination control.
type Page struct {
	Number     int    `json:"number,omitempty"`
	URL        string `json:"url,omitempty"`
	IsCurrent  bool   `json:"current,omitempty"`
	IsEllipsis bool   `json:"ellipsis,omitempty"`
}

// Pagination is attached to every paged listing.
type Pagination struct {
	Page       int    `json:"page"`
	TotalPages int    `json:"total_pages"`
	Total      int64  `json:"total"`
	Links      []Page `json:"links,omitempty"`
}

// newPagination builds the pagination block. pageURL maps a page number
// to its link.
func newPagination(page int, total int64, perPage int, pageURL func(int) string) Pagination {
	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	if totalPages < 1 {
		totalPages = 1
	}
	links := generatePagination(page, totalPages)
	for i := range links {
		if !links[i].IsEllipsis {
			links[i].URL = pageURL(links[i].Number)
		}
	}
	return Pagination{Page: page, TotalPages: totalPages, Total: total, Links: links}
}

func offsetFor(page, perPage int) int {
	return (page - 1) * perPage
}

// generatePagination creates the list of page links for the UI.
func generatePagination(currentPage, totalPages int) []Page {
	if totalPages <= 1 {
		return nil
	}

	const pagesToShow = 2

	var pages []Page

	start := currentPage - pagesToShow
	end := currentPage + pagesToShow

	if start < 1 {
		end += (1 - start)
		start = 1
	}

	if end > totalPages {
		start -= (end - totalPages)
		end = totalPages
	}

	if start < 1 {
		start = 1
	}

	if start > 1 {
		pages = append(pages, Page{Number: 1})
		if start > 2 {
			pages = append(pages, Page{IsEllipsis: true})
		}
	}

	for i := start; i <= end; i++ {
		pages = append(pages, Page{Number: i, IsCurrent: i == currentPage})
	}

	if end < totalPages {
		if end < totalPages-1 {
			pages = append(pages, Page{IsEllipsis: true})
		}
		pages = append(pages, Page{Number: totalPages})
	}

	return pages
}
