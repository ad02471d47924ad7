package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pastelfeed/internal/app"
	"pastelfeed/internal/config"
	"pastelfeed/internal/logging"
)

const cookieName = "pastelfeed.sid"

type testEnv struct {
	app       *fiber.App
	uploadDir string
}

// setupApp builds the full application over a private in-memory SQLite
// database with SQL-backed sessions and a temporary upload root.
func setupApp(t *testing.T) *testEnv {
	t.Helper()

	webDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(webDir, "index.html"), []byte("<html>home</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(webDir, "feed.html"), []byte("<html>feed</html>"), 0o644))

	cfg := config.Default()
	cfg.DatabaseDSN = fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	cfg.SessionStore = "sql"
	cfg.RabbitMQURL = ""
	cfg.UploadDir = t.TempDir()
	cfg.WebDir = webDir

	a, err := app.New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { a.Shutdown(context.Background()) })

	return &testEnv{app: a.Fiber, uploadDir: cfg.UploadDir}
}

func (e *testEnv) do(t *testing.T, req *http.Request, cookie *http.Cookie) *http.Response {
	t.Helper()
	if cookie != nil {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) doJSON(t *testing.T, method, path string, body interface{}, cookie *http.Cookie) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := e.do(t, req, cookie)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == cookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("response carries no %s cookie", cookieName)
	return nil
}

func (e *testEnv) register(t *testing.T, username string) *http.Cookie {
	t.Helper()
	resp, body := e.doJSON(t, http.MethodPost, "/api/register", map[string]string{
		"username": username,
		"password": "password123",
		"email":    username + "@example.com",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	return sessionCookie(t, resp)
}

// jpegOfSize returns a decodable JPEG padded after its end marker to n bytes.
func jpegOfSize(t *testing.T, n int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8)), nil))
	data := buf.Bytes()
	if len(data) < n {
		data = append(data, make([]byte, n-len(data))...)
	}
	return data
}

func multipartRequest(t *testing.T, path, field, filename, contentType string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestAuthRegisterAndLogin(t *testing.T) {
	env := setupApp(t)

	resp, body := env.doJSON(t, http.MethodPost, "/api/register", map[string]string{
		"username": "testuser",
		"email":    "test@example.com",
		"password": "password123",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "testuser", user["username"])
	assert.Equal(t, "testuser", user["displayName"])
	assert.NotContains(t, user, "password")

	// Registration logs the user in.
	cookie := sessionCookie(t, resp)
	assert.True(t, cookie.HttpOnly)
	resp, body = env.doJSON(t, http.MethodGet, "/api/session", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["loggedIn"])
	assert.NotEmpty(t, body["sessionID"])

	for _, dup := range []map[string]string{
		{"username": "testuser", "email": "other@example.com", "password": "x"},
		{"username": "other", "email": "test@example.com", "password": "x"},
	} {
		resp, body = env.doJSON(t, http.MethodPost, "/api/register", dup, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.NotEmpty(t, body["error"])
	}

	resp, body = env.doJSON(t, http.MethodPost, "/api/login", map[string]string{
		"username": "testuser",
		"password": "password123",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["sessionID"])
	loginCookie := sessionCookie(t, resp)
	assert.Equal(t, body["sessionID"], loginCookie.Value)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	env := setupApp(t)
	env.register(t, "alice")

	wrongResp, wrongBody := env.doJSON(t, http.MethodPost, "/api/login", map[string]string{
		"username": "alice", "password": "nope",
	}, nil)
	missingResp, missingBody := env.doJSON(t, http.MethodPost, "/api/login", map[string]string{
		"username": "nobody", "password": "password123",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, wrongResp.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, missingResp.StatusCode)
	assert.Equal(t, wrongBody, missingBody)
}

func TestSessionAndLogout(t *testing.T) {
	env := setupApp(t)

	resp, body := env.doJSON(t, http.MethodGet, "/api/session", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, body["loggedIn"])

	// Logout without a session still succeeds.
	resp, body = env.doJSON(t, http.MethodGet, "/api/logout", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	cookie := env.register(t, "alice")
	resp, _ = env.doJSON(t, http.MethodGet, "/api/logout", nil, cookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.doJSON(t, http.MethodGet, "/api/session", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, body = env.doJSON(t, http.MethodGet, "/api/messages", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized", body["error"])
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	env := setupApp(t)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/profile"},
		{http.MethodPost, "/api/profile/photo"},
		{http.MethodGet, "/api/messages"},
		{http.MethodPost, "/api/messages"},
		{http.MethodGet, "/api/saved-items"},
		{http.MethodPost, "/api/saved-items"},
		{http.MethodDelete, "/api/saved-items/1"},
		{http.MethodGet, "/api/letter"},
		{http.MethodPost, "/api/letter/save"},
		{http.MethodGet, "/api/letter/user"},
		{http.MethodPost, "/api/upload/image"},
		{http.MethodGet, "/api/user/feed-image"},
	}
	for _, r := range routes {
		resp, body := env.doJSON(t, r.method, r.path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, r.path)
		assert.Equal(t, "Unauthorized", body["error"], r.path)
	}
}

func TestUnknownRoutes(t *testing.T) {
	env := setupApp(t)

	resp, body := env.doJSON(t, http.MethodGet, "/api/does-not-exist", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
	assert.Equal(t, "/api/does-not-exist", body["path"])

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/somewhere/else", nil), nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/feed.html", nil), nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/feed", resp.Header.Get("Location"))

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/feed", nil), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMessages(t *testing.T) {
	env := setupApp(t)
	cookie := env.register(t, "alice")

	resp, body := env.doJSON(t, http.MethodPost, "/api/profile", map[string]string{"displayName": "Alice"}, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Alice", body["displayName"])

	resp, body = env.doJSON(t, http.MethodPost, "/api/messages", map[string]string{"message": "   "}, cookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["error"])

	resp, _ = env.doJSON(t, http.MethodPost, "/api/messages", map[string]string{"message": "first"}, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = env.doJSON(t, http.MethodPost, "/api/messages", map[string]string{"message": "hello"}, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	id := body["id"]

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/messages", nil), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var wall []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&wall))
	resp.Body.Close()

	require.Len(t, wall, 2)
	assert.Equal(t, "hello", wall[0]["message"])
	assert.Equal(t, id, wall[0]["id"])
	assert.Equal(t, "Alice", wall[0]["displayName"])
	assert.Equal(t, "first", wall[1]["message"])
}

func TestLetterSavedTwiceKeepsOne(t *testing.T) {
	env := setupApp(t)
	cookie := env.register(t, "alice")

	resp, body := env.doJSON(t, http.MethodGet, "/api/letter", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "letter")
	assert.Nil(t, body["letter"])

	resp, _ = env.doJSON(t, http.MethodPost, "/api/letter/save", map[string]string{"content": " "}, cookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, first := env.doJSON(t, http.MethodPost, "/api/letter/save", map[string]string{"content": "one"}, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, before := env.doJSON(t, http.MethodGet, "/api/letter", nil, cookie)
	firstLetter := before["letter"].(map[string]interface{})
	assert.Equal(t, "Untitled", firstLetter["title"])

	resp, second := env.doJSON(t, http.MethodPost, "/api/letter/save", map[string]string{"title": "Dear", "content": "two"}, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, first["id"], second["id"])

	_, body = env.doJSON(t, http.MethodGet, "/api/letter", nil, cookie)
	letter := body["letter"].(map[string]interface{})
	assert.Equal(t, "two", letter["content"])
	assert.Equal(t, "Dear", letter["title"])
	firstUpdated, err := time.Parse(time.RFC3339Nano, firstLetter["updatedAt"].(string))
	require.NoError(t, err)
	secondUpdated, err := time.Parse(time.RFC3339Nano, letter["updatedAt"].(string))
	require.NoError(t, err)
	assert.False(t, secondUpdated.Before(firstUpdated))

	resp, body = env.doJSON(t, http.MethodGet, "/api/letter/user", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "alice", user["displayName"])
	assert.NotContains(t, user, "email")
}

func TestSavedItemsOwnership(t *testing.T) {
	env := setupApp(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	item := map[string]interface{}{
		"itemType":    "photo",
		"itemId":      12,
		"title":       "Sunset",
		"description": "Pink sky",
		"imageUrl":    "/uploads/feed/1/x.png",
	}
	resp, body := env.doJSON(t, http.MethodPost, "/api/saved-items", item, alice)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id := int(body["id"].(float64))

	resp, _ = env.doJSON(t, http.MethodPost, "/api/saved-items", map[string]string{"title": "no type"}, alice)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.doJSON(t, http.MethodGet, "/api/saved-items", nil, alice)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	got := items[0].(map[string]interface{})
	assert.Equal(t, "Sunset", got["title"])
	assert.Equal(t, "Pink sky", got["description"])
	assert.Equal(t, "/uploads/feed/1/x.png", got["imageUrl"])
	assert.Equal(t, "photo", got["itemType"])

	path := fmt.Sprintf("/api/saved-items/%d", id)
	resp, _ = env.doJSON(t, http.MethodDelete, path, nil, bob)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body = env.doJSON(t, http.MethodGet, "/api/saved-items", nil, alice)
	assert.Len(t, body["items"].([]interface{}), 1)

	resp, body = env.doJSON(t, http.MethodDelete, path, nil, alice)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	_, body = env.doJSON(t, http.MethodGet, "/api/saved-items", nil, alice)
	assert.Empty(t, body["items"])
}

func TestProfilePhotoUpload(t *testing.T) {
	env := setupApp(t)
	cookie := env.register(t, "alice")

	tooBig := jpegOfSize(t, 6*1024*1024)
	resp := env.do(t, multipartRequest(t, "/api/profile/photo", "photo", "big.jpg", "image/jpeg", tooBig, nil), cookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, decode(t, resp)["error"])

	_, body := env.doJSON(t, http.MethodGet, "/api/session", nil, cookie)
	assert.Nil(t, body["user"].(map[string]interface{})["photoUrl"])

	resp = env.do(t, multipartRequest(t, "/api/profile/photo", "photo", "notes.txt", "text/plain", []byte("hello"), nil), cookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	photo := jpegOfSize(t, 1024*1024)
	resp = env.do(t, multipartRequest(t, "/api/profile/photo", "photo", "me.jpg", "image/jpeg", photo, nil), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decode(t, resp)
	photoURL := body["photoUrl"].(string)
	assert.True(t, strings.HasPrefix(photoURL, "/uploads/profile_photos/profile-"))
	assert.True(t, strings.HasSuffix(photoURL, ".jpg"))
	assert.NotEmpty(t, body["fileName"])

	_, body = env.doJSON(t, http.MethodGet, "/api/session", nil, cookie)
	assert.Equal(t, photoURL, body["user"].(map[string]interface{})["photoUrl"])

	resp = env.do(t, httptest.NewRequest(http.MethodGet, photoURL, nil), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	served, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, len(photo), len(served))
}

func TestFeedImageLatestWins(t *testing.T) {
	env := setupApp(t)
	cookie := env.register(t, "alice")

	resp, body := env.doJSON(t, http.MethodGet, "/api/user/feed-image", nil, cookie)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, body["error"])

	img := jpegOfSize(t, 2048)
	resp = env.do(t, multipartRequest(t, "/api/upload/image", "image", "a.jpg", "image/jpeg", img, nil), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode(t, resp)
	firstURL := first["imageUrl"].(string)
	assert.True(t, strings.HasPrefix(firstURL, "/uploads/feed/"))

	resp = env.do(t, multipartRequest(t, "/api/upload/image", "image", "b.jpg", "image/jpeg", img, map[string]string{"type": "feed"}), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decode(t, resp)
	secondURL := second["imageUrl"].(string)
	assert.NotEqual(t, firstURL, secondURL)

	_, body = env.doJSON(t, http.MethodGet, "/api/user/feed-image", nil, cookie)
	assert.Equal(t, secondURL, body["imageUrl"])

	oldPath := filepath.Join(env.uploadDir, filepath.FromSlash(strings.TrimPrefix(firstURL, "/uploads/")))
	newPath := filepath.Join(env.uploadDir, filepath.FromSlash(strings.TrimPrefix(secondURL, "/uploads/")))
	assert.NoFileExists(t, oldPath)
	assert.FileExists(t, newPath)

	resp = env.do(t, multipartRequest(t, "/api/upload/image", "image", "x.svg", "image/svg+xml", []byte("<svg/>"), nil), cookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	env := setupApp(t)

	resp, body := env.doJSON(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "connected", body["database"])

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "pastelfeed_http_requests_total")
}
