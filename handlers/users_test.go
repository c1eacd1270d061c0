//go:build fts5

package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"msgboard/caps"
)

func TestUserPages(t *testing.T) {
	app := setupTestApp(t)
	server := setupTestServer(t, app)
	alice := createTestUser(t, app, "alice", caps.RoleParticipant)
	createTestUser(t, app, "bob", caps.RoleParticipant)
	topic := createTestTopic(t, app, alice, "Alice writes")
	if _, err := app.db.AddUserBookmark(alice.ID, topic.ID); err != nil {
		t.Fatalf("Failed to bookmark: %v", err)
	}

	guest, _ := newTestClient(t, server.URL)
	aliceClient, _ := loginClient(t, server.URL, "alice")
	bobClient, _ := loginClient(t, server.URL, "bob")

	t.Run("Users and roles", func(t *testing.T) {
		if code, body := getJSON(t, guest, server.URL+"/board/users/"); code != http.StatusOK || listLen(body["users"]) != 2 {
			t.Errorf("Expected 2 users, got %d %v", code, body["users"])
		}
		if code, body := getJSON(t, guest, server.URL+"/board/users/roles/"); code != http.StatusOK || listLen(body["roles"]) == 0 {
			t.Errorf("Expected roles listing, got %d %v", code, body)
		}
		if code, body := getJSON(t, guest, server.URL+"/board/users/roles/participant/"); code != http.StatusOK || listLen(body["users"]) != 2 {
			t.Errorf("Expected 2 participants, got %d %v", code, body["users"])
		}
		if code, _ := getJSON(t, guest, server.URL+"/board/users/roles/emperor/"); code != http.StatusNotFound {
			t.Errorf("Expected 404 for an unknown role, got %d", code)
		}
	})

	t.Run("Profile hides private pages", func(t *testing.T) {
		_, body := getJSON(t, guest, server.URL+"/board/users/alice/")
		pages, _ := body["pages"].(map[string]interface{})
		if _, ok := pages["bookmarks"]; ok {
			t.Error("Expected guests not to see the bookmarks link")
		}
		if _, ok := pages["topics"]; !ok {
			t.Error("Expected the topics link")
		}
		_, body = getJSON(t, aliceClient, server.URL+"/board/users/alice/")
		pages, _ = body["pages"].(map[string]interface{})
		if _, ok := pages["bookmarks"]; !ok {
			t.Error("Expected the owner to see the bookmarks link")
		}
	})

	t.Run("Public sub-pages", func(t *testing.T) {
		if code, body := getJSON(t, guest, server.URL+"/board/users/alice/topics/"); code != http.StatusOK || listLen(body["topics"]) != 1 {
			t.Errorf("Expected 1 topic, got %d %v", code, body["topics"])
		}
		if code, body := getJSON(t, guest, server.URL+"/board/users/alice/forums/"); code != http.StatusOK || listLen(body["forums"]) != 1 {
			t.Errorf("Expected 1 forum, got %d %v", code, body["forums"])
		}
		if code, body := getJSON(t, guest, server.URL+"/board/users/bob/forums/"); code != http.StatusOK || listLen(body["forums"]) != 0 {
			t.Errorf("Expected no forums for bob, got %d %v", code, body["forums"])
		}
		if code, _ := getJSON(t, guest, server.URL+"/board/users/alice/bogus/"); code != http.StatusNotFound {
			t.Errorf("Expected 404 for an unknown page, got %d", code)
		}
		if code, _ := getJSON(t, guest, server.URL+"/board/users/nobody/"); code != http.StatusNotFound {
			t.Errorf("Expected 404 for an unknown user, got %d", code)
		}
	})

	t.Run("Private sub-pages", func(t *testing.T) {
		if code, _ := getJSON(t, bobClient, server.URL+"/board/users/alice/bookmarks/"); code != http.StatusNotFound {
			t.Errorf("Expected 404 for another user's bookmarks, got %d", code)
		}
		code, body := getJSON(t, aliceClient, server.URL+"/board/users/alice/bookmarks/")
		if code != http.StatusOK || listLen(body["topics"]) != 1 {
			t.Errorf("Expected 1 bookmark for the owner, got %d %v", code, body["topics"])
		}
		code, body = getJSON(t, aliceClient, server.URL+"/board/users/alice/topic-subscriptions/")
		if code != http.StatusOK || listLen(body["topics"]) != 0 {
			t.Errorf("Expected no subscriptions, got %d %v", code, body["topics"])
		}
	})
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

func uploadAvatar(t *testing.T, client *http.Client, target, csrfToken string, data []byte) *http.Response {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("avatar", "avatar.png")
	part.Write(data)
	writer.Close()

	req, _ := http.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-CSRF-Token", csrfToken)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Avatar upload failed: %v", err)
	}
	return resp
}

func TestHandleAvatarUpload(t *testing.T) {
	app := setupTestApp(t)
	server := setupTestServer(t, app)
	alice := createTestUser(t, app, "alice", caps.RoleParticipant)
	createTestUser(t, app, "bob", caps.RoleParticipant)
	target := server.URL + "/board/users/alice/avatar/"

	t.Run("Owner uploads", func(t *testing.T) {
		client, token := loginClient(t, server.URL, "alice")
		resp := uploadAvatar(t, client, target, token, testPNG(t, 200, 120))
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.StatusCode)
		}
		var out map[string]string
		json.NewDecoder(resp.Body).Decode(&out)
		if !strings.HasPrefix(out["avatar_url"], "/uploads/avatars/") {
			t.Fatalf("Expected local avatar path, got %q", out["avatar_url"])
		}
		onDisk := filepath.Join(app.uploadDir, filepath.FromSlash(strings.TrimPrefix(out["avatar_url"], "/uploads/")))
		if _, err := os.Stat(onDisk); err != nil {
			t.Errorf("Expected avatar file on disk: %v", err)
		}
		user, _ := app.db.GetUser(alice.ID)
		if user.AvatarPath != out["avatar_url"] {
			t.Errorf("Expected avatar path %q to be stored, got %q", out["avatar_url"], user.AvatarPath)
		}

		served, err := client.Get(server.URL + out["avatar_url"])
		if err != nil {
			t.Fatal(err)
		}
		served.Body.Close()
		if served.StatusCode != http.StatusOK {
			t.Errorf("Expected the avatar to be served, got %d", served.StatusCode)
		}

		// A second upload replaces the first file.
		resp2 := uploadAvatar(t, client, target, token, testPNG(t, 64, 64))
		resp2.Body.Close()
		if _, err := os.Stat(onDisk); !os.IsNotExist(err) {
			t.Errorf("Expected the old avatar to be deleted, stat err: %v", err)
		}
	})

	t.Run("Not an image", func(t *testing.T) {
		client, token := loginClient(t, server.URL, "alice")
		resp := uploadAvatar(t, client, target, token, []byte("definitely not an image"))
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", resp.StatusCode)
		}
	})

	t.Run("Another user", func(t *testing.T) {
		client, token := loginClient(t, server.URL, "bob")
		resp := uploadAvatar(t, client, target, token, testPNG(t, 32, 32))
		resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("Expected status 403, got %d", resp.StatusCode)
		}
	})

	t.Run("Missing CSRF token", func(t *testing.T) {
		client, _ := loginClient(t, server.URL, "alice")
		resp := uploadAvatar(t, client, target, "wrong", testPNG(t, 32, 32))
		resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("Expected status 403, got %d", resp.StatusCode)
		}
	})
}
