//go:build fts5

package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"msgboard/board"
	"msgboard/database"
	"msgboard/models"
	"msgboard/utils"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
)

// MockApplication holds dependencies for handler tests.
type MockApplication struct {
	db          *database.DatabaseService
	board       *board.Board
	rateLimiter *models.RateLimiter
	regLimiter  *models.RateLimiter
	challenges  *models.ChallengeStore
	sessions    *scs.SessionManager
	storage     models.StorageService
	uploadDir   string
	logger      *slog.Logger
}

func (a *MockApplication) DB() *database.DatabaseService      { return a.db }
func (a *MockApplication) Board() *board.Board                { return a.board }
func (a *MockApplication) RateLimiter() *models.RateLimiter   { return a.rateLimiter }
func (a *MockApplication) RegLimiter() *models.RateLimiter    { return a.regLimiter }
func (a *MockApplication) Challenges() *models.ChallengeStore { return a.challenges }
func (a *MockApplication) Sessions() *scs.SessionManager      { return a.sessions }
func (a *MockApplication) Storage() models.StorageService     { return a.storage }
func (a *MockApplication) Logger() *slog.Logger               { return a.logger }
func (a *MockApplication) UploadDir() string                  { return a.uploadDir }

// setupTestApp creates a full application stack with a test database for integration testing.
func setupTestApp(t *testing.T) *MockApplication {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	dbPath := filepath.Join(t.TempDir(), "test.db?_journal_mode=WAL&_foreign_keys=on")
	dbService, err := database.InitDB(dbPath, logger)
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	uploadDir := t.TempDir()
	storage := &utils.LocalStorage{UploadDir: uploadDir}

	app := &MockApplication{
		db:          dbService,
		board:       board.New(dbService, &board.LogNotifier{Logger: logger}, logger),
		rateLimiter: models.NewRateLimiter(30*time.Second, 3, 1*time.Hour, 24*time.Hour),
		regLimiter:  models.NewRateLimiter(time.Minute, 5, 1*time.Hour, 24*time.Hour),
		challenges:  models.NewChallengeStore(),
		sessions:    scs.New(),
		storage:     storage,
		uploadDir:   uploadDir,
		logger:      logger,
	}

	utils.IPSalt = "test-salt"
	utils.BackupDir = t.TempDir()

	t.Cleanup(func() {
		app.db.DB.Close()
		utils.IPSalt = ""
		utils.BackupDir = ""
	})

	return app
}

func createTestUser(t *testing.T, app *MockApplication, login, role string) *models.User {
	t.Helper()
	u, err := app.db.CreateUser(models.RegisterInput{Login: login, Email: login + "@example.com", Password: "password123"}, role)
	if err != nil {
		t.Fatalf("Failed to create user %s: %v", login, err)
	}
	return u
}

func createTestTopic(t *testing.T, app *MockApplication, author *models.User, title string) *models.Item {
	t.Helper()
	topic, err := app.db.CreateTopic(author.ID, models.NewTopicInput{Title: title, Content: "Body of " + title, ForumID: app.db.DefaultForumID()})
	if err != nil {
		t.Fatalf("Failed to create topic: %v", err)
	}
	return topic
}

func solveChallenge(cs *models.ChallengeStore) (string, string) {
	token, question := cs.GenerateChallenge()
	parts := strings.Fields(question)
	num1, _ := strconv.Atoi(parts[2])
	num2Str := strings.TrimSuffix(parts[4], "?")
	num2, _ := strconv.Atoi(num2Str)
	answer := strconv.Itoa(num1 + num2)
	return token, answer
}

// newTestRequest builds a request acting as user (nil for a guest).
func newTestRequest(_ *testing.T, method, path string, body io.Reader, user *models.User) *http.Request {
	req := httptest.NewRequest(method, path, body)
	if method == http.MethodPost && body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if user != nil {
		req = req.WithContext(context.WithValue(req.Context(), UserKey, user))
	}
	return req
}

func newFormRequest(t *testing.T, path string, form url.Values, user *models.User) *http.Request {
	return newTestRequest(t, http.MethodPost, path, strings.NewReader(form.Encode()), user)
}

// withURLParams attaches chi route parameters to a request served without
// the router.
func withURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func serve(app *MockApplication, fn func(http.ResponseWriter, *http.Request, App), req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	MakeHandler(app, fn).ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode JSON response %q: %v", rr.Body.String(), err)
	}
	return resp
}

// setupTestServer serves the full router behind the same outer middleware
// main uses.
func setupTestServer(t *testing.T, app *MockApplication) *httptest.Server {
	mux := SetupRouter(app)
	server := httptest.NewServer(CSRFMiddleware(NewSecurityHeadersMiddleware("")(mux)))
	t.Cleanup(server.Close)
	return server
}

// newTestClient returns a client with a cookie jar that does not follow
// redirects, along with the CSRF token issued on the first request.
func newTestClient(t *testing.T, serverURL string) (*http.Client, string) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("Failed to create cookie jar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(serverURL + "/board/")
	if err != nil {
		t.Fatalf("Failed to make initial request for CSRF token: %v", err)
	}
	resp.Body.Close()

	u, _ := url.Parse(serverURL)
	for _, cookie := range jar.Cookies(u) {
		if cookie.Name == "csrf_token" {
			return client, cookie.Value
		}
	}
	t.Fatal("CSRF token cookie not found in jar")
	return nil, ""
}

func postForm(t *testing.T, client *http.Client, target, csrfToken string, form url.Values) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRF-Token", csrfToken)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("POST %s failed: %v", target, err)
	}
	return resp
}

// loginClient logs login in through the router and returns a client
// carrying the session cookie.
func loginClient(t *testing.T, serverURL, login string) (*http.Client, string) {
	t.Helper()
	client, token := newTestClient(t, serverURL)
	resp := postForm(t, client, serverURL+"/board/login/", token, url.Values{"login": {login}, "password": {"password123"}})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Login as %s failed with %d: %s", login, resp.StatusCode, body)
	}
	return client, token
}
