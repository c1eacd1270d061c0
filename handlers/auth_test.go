//go:build fts5

package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"msgboard/caps"
)

// fetchChallenge asks the server for a challenge and answers it.
func fetchChallenge(t *testing.T, client *http.Client, serverURL string) (string, string) {
	t.Helper()
	_, body := getJSON(t, client, serverURL+"/board/challenge/")
	token, _ := body["token"].(string)
	question, _ := body["question"].(string)
	parts := strings.Fields(question)
	if token == "" || len(parts) != 5 {
		t.Fatalf("Unexpected challenge %v", body)
	}
	a, _ := strconv.Atoi(parts[2])
	b, _ := strconv.Atoi(strings.TrimSuffix(parts[4], "?"))
	return token, strconv.Itoa(a + b)
}

func TestRegisterAndSession(t *testing.T) {
	app := setupTestApp(t)
	server := setupTestServer(t, app)
	client, csrf := newTestClient(t, server.URL)

	t.Run("Wrong challenge answer", func(t *testing.T) {
		token, _ := fetchChallenge(t, client, server.URL)
		resp := postForm(t, client, server.URL+"/board/register/", csrf, url.Values{
			"login": {"newbie"}, "email": {"newbie@example.com"}, "password": {"longpassword"},
			"challenge_token": {token}, "challenge_answer": {"-1"},
		})
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("Expected status 403, got %d", resp.StatusCode)
		}
		body := decodeResponse(t, resp)
		newToken, _ := body["newToken"].(string)
		newQuestion, _ := body["newQuestion"].(string)
		if newToken == "" || newQuestion == "" {
			t.Errorf("Expected a fresh challenge in the response, got %v", body)
		}
	})

	t.Run("Invalid email", func(t *testing.T) {
		token, answer := fetchChallenge(t, client, server.URL)
		resp := postForm(t, client, server.URL+"/board/register/", csrf, url.Values{
			"login": {"newbie"}, "email": {"not-an-email"}, "password": {"longpassword"},
			"challenge_token": {token}, "challenge_answer": {answer},
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", resp.StatusCode)
		}
	})

	t.Run("Success logs in", func(t *testing.T) {
		token, answer := fetchChallenge(t, client, server.URL)
		resp := postForm(t, client, server.URL+"/board/register/", csrf, url.Values{
			"login": {"newbie"}, "email": {"newbie@example.com"}, "password": {"longpassword"},
			"challenge_token": {token}, "challenge_answer": {answer},
		})
		if resp.StatusCode != http.StatusCreated {
			resp.Body.Close()
			t.Fatalf("Expected status 201, got %d", resp.StatusCode)
		}
		body := decodeResponse(t, resp)
		if body["redirect"] != "/board/users/newbie/" {
			t.Errorf("Expected redirect to the profile, got %v", body["redirect"])
		}

		user, err := app.db.GetUserByLogin("newbie")
		if err != nil {
			t.Fatalf("Expected user to exist: %v", err)
		}
		if user.Role != caps.RoleParticipant {
			t.Errorf("Expected role %s, got %s", caps.RoleParticipant, user.Role)
		}

		_, index := getJSON(t, client, server.URL+"/board/")
		if u, _ := index["user"].(map[string]interface{}); u["nicename"] != "newbie" {
			t.Errorf("Expected the session to carry the new user, got %v", index["user"])
		}
	})

	t.Run("Duplicate login", func(t *testing.T) {
		other, otherCSRF := newTestClient(t, server.URL)
		token, answer := fetchChallenge(t, other, server.URL)
		resp := postForm(t, other, server.URL+"/board/register/", otherCSRF, url.Values{
			"login": {"newbie"}, "email": {"second@example.com"}, "password": {"longpassword"},
			"challenge_token": {token}, "challenge_answer": {answer},
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("Expected status 409, got %d", resp.StatusCode)
		}
	})

	t.Run("Logout", func(t *testing.T) {
		resp := postForm(t, client, server.URL+"/board/logout/", csrf, url.Values{})
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.StatusCode)
		}
		_, index := getJSON(t, client, server.URL+"/board/")
		if _, ok := index["user"]; ok {
			t.Error("Expected no user after logout")
		}
	})
}

func TestRegistrationRateLimit(t *testing.T) {
	app := setupTestApp(t)
	server := setupTestServer(t, app)
	client, csrf := newTestClient(t, server.URL)

	var last int
	for i := 0; i < 6; i++ {
		resp := postForm(t, client, server.URL+"/board/register/", csrf, url.Values{"login": {"spammer" + strconv.Itoa(i)}})
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("Expected the sixth attempt to be rate limited, got %d", last)
	}
}

func TestHandleLogin(t *testing.T) {
	app := setupTestApp(t)
	server := setupTestServer(t, app)
	createTestUser(t, app, "alice", caps.RoleParticipant)

	testCases := []struct {
		name           string
		form           url.Values
		expectedStatus int
	}{
		{"Wrong password", url.Values{"login": {"alice"}, "password": {"nope-nope"}}, http.StatusUnauthorized},
		{"Unknown user", url.Values{"login": {"ghost"}, "password": {"password123"}}, http.StatusUnauthorized},
		{"Missing password", url.Values{"login": {"alice"}}, http.StatusBadRequest},
		{"Success", url.Values{"login": {"alice"}, "password": {"password123"}, "redirect": {"/board/topics/"}}, http.StatusOK},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client, csrf := newTestClient(t, server.URL)
			resp := postForm(t, client, server.URL+"/board/login/", csrf, tc.form)
			body := decodeResponse(t, resp)
			if resp.StatusCode != tc.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %v", tc.expectedStatus, resp.StatusCode, body)
			}
			if tc.expectedStatus == http.StatusOK && body["redirect"] != "/board/topics/" {
				t.Errorf("Expected redirect /board/topics/, got %v", body["redirect"])
			}
		})
	}
}

func TestCurrentUserMiddlewareDropsMissingUser(t *testing.T) {
	app := setupTestApp(t)
	server := setupTestServer(t, app)
	u := createTestUser(t, app, "temp", caps.RoleParticipant)
	client, _ := loginClient(t, server.URL, "temp")

	if _, err := app.db.DB.Exec("DELETE FROM users WHERE id = ?", u.ID); err != nil {
		t.Fatalf("Failed to delete user: %v", err)
	}
	code, index := getJSON(t, client, server.URL+"/board/")
	if code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", code)
	}
	if _, ok := index["user"]; ok {
		t.Error("Expected a deleted user to be treated as a guest")
	}
}

func TestCSRFMiddleware(t *testing.T) {
	app := setupTestApp(t)
	server := setupTestServer(t, app)
	client, _ := newTestClient(t, server.URL)

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/board/login/", strings.NewReader("login=a&password=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected status 403 without a CSRF token, got %d", resp.StatusCode)
	}
}
