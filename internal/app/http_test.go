package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(fs *fakeStore) (*Service, http.Handler) {
	svc := newTestService(fs)
	return svc, NewHTTPServer(svc, "http://localhost:5173").Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	payload := map[string]any{}
	if recorder.Body.Len() > 0 {
		_ = json.Unmarshal(recorder.Body.Bytes(), &payload)
	}
	return recorder, payload
}

func TestHealthEndpoint(t *testing.T) {
	_, handler := newTestServer(newFakeStore())
	recorder, payload := doJSON(t, handler, http.MethodGet, "/api/health", "", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if payload["ok"] != true {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestReadyEndpoint(t *testing.T) {
	_, handler := newTestServer(newFakeStore())
	recorder, payload := doJSON(t, handler, http.MethodGet, "/api/ready", "", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if payload["status"] != "ready" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestRequestsWithoutSessionAreRejected(t *testing.T) {
	_, handler := newTestServer(newFakeStore())
	for _, path := range []string{"/api/posts", "/api/notifications", "/api/search?q=x", "/api/tags"} {
		recorder, payload := doJSON(t, handler, http.MethodGet, path, "", "")
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("GET %s status = %d, want 401", path, recorder.Code)
		}
		if payload["code"] != "UNAUTHORIZED" {
			t.Fatalf("GET %s code = %v", path, payload["code"])
		}
	}
}

func TestAuthSignUpVerifySignInFlow(t *testing.T) {
	fs := newFakeStore()
	_, handler := newTestServer(fs)

	recorder, payload := doJSON(t, handler, http.MethodPost, "/api/auth/signup", "",
		`{"name":"maya","email":"maya@example.com","password":"hunter2hunter2"}`)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("signup status = %d: %v", recorder.Code, payload)
	}
	// SMTP is unconfigured in tests so the code comes back in the response.
	code, _ := payload["devVerificationCode"].(string)
	if len(code) != 6 {
		t.Fatalf("expected 6-digit dev verification code, got %q", code)
	}

	recorder, payload = doJSON(t, handler, http.MethodPost, "/api/auth/signin", "",
		`{"email":"maya@example.com","password":"hunter2hunter2"}`)
	if recorder.Code != http.StatusForbidden || payload["code"] != "EMAIL_NOT_VERIFIED" {
		t.Fatalf("pre-verification signin = %d %v", recorder.Code, payload)
	}

	recorder, _ = doJSON(t, handler, http.MethodPost, "/api/auth/verify-email", "", `{"code":"`+code+`"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("verify status = %d", recorder.Code)
	}

	recorder, payload = doJSON(t, handler, http.MethodPost, "/api/auth/signin", "",
		`{"email":"maya@example.com","password":"hunter2hunter2"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("signin status = %d: %v", recorder.Code, payload)
	}
	token, _ := payload["accessToken"].(string)
	if token == "" {
		t.Fatal("expected access token")
	}
	if payload["role"] != "reader" {
		t.Fatalf("role = %v, want reader", payload["role"])
	}

	recorder, payload = doJSON(t, handler, http.MethodGet, "/api/session", token, "")
	if recorder.Code != http.StatusOK || payload["authenticated"] != true {
		t.Fatalf("session check = %d %v", recorder.Code, payload)
	}
	if payload["userName"] != "maya" {
		t.Fatalf("userName = %v", payload["userName"])
	}
}

func TestAuthSignUpDuplicateEmail(t *testing.T) {
	fs := newFakeStore()
	fs.addUser("usr_1", "maya", "reader")
	_, handler := newTestServer(fs)

	recorder, payload := doJSON(t, handler, http.MethodPost, "/api/auth/signup", "",
		`{"name":"other","email":"maya@example.com","password":"hunter2hunter2"}`)
	if recorder.Code != http.StatusConflict || payload["code"] != "EMAIL_EXISTS" {
		t.Fatalf("duplicate signup = %d %v", recorder.Code, payload)
	}
}

func TestCommentFlowOverHTTP(t *testing.T) {
	fs := newFakeStore()
	bob := fs.addUser("usr_bob", "bob", "author")
	alice := fs.addUser("usr_alice", "alice", "reader")
	fs.addPost("pst_1", "first-post", bob.ID)

	svc, handler := newTestServer(fs)
	aliceSession, err := svc.CreateSession(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	bobSession, err := svc.CreateSession(context.Background(), bob.ID)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	recorder, payload := doJSON(t, handler, http.MethodPost, "/api/posts/first-post/comments", aliceSession.Token,
		`{"body":"great read"}`)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create comment status = %d: %v", recorder.Code, payload)
	}
	rootID, _ := payload["id"].(string)
	if rootID == "" {
		t.Fatal("expected comment id")
	}

	recorder, payload = doJSON(t, handler, http.MethodPost, "/api/posts/first-post/comments", bobSession.Token,
		`{"body":"thanks!","parentId":"`+rootID+`"}`)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create reply status = %d: %v", recorder.Code, payload)
	}

	recorder, payload = doJSON(t, handler, http.MethodGet, "/api/posts/first-post/comments", aliceSession.Token, "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("list comments status = %d", recorder.Code)
	}
	comments, _ := payload["comments"].([]any)
	if len(comments) != 1 {
		t.Fatalf("expected 1 root comment, got %d", len(comments))
	}
	root, _ := comments[0].(map[string]any)
	replies, _ := root["replies"].([]any)
	if len(replies) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(replies))
	}
	reply, _ := replies[0].(map[string]any)
	if reply["depth"] != float64(1) || reply["parentAuthorName"] != "alice" {
		t.Fatalf("unexpected reply node: %v", reply)
	}

	// Alice commented on Bob's post, Bob replied to Alice: one
	// notification each way.
	recorder, payload = doJSON(t, handler, http.MethodGet, "/api/notifications", bobSession.Token, "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("notifications status = %d", recorder.Code)
	}
	bobNotifications, _ := payload["notifications"].([]any)
	if len(bobNotifications) != 1 {
		t.Fatalf("bob expected 1 notification, got %d", len(bobNotifications))
	}
	first, _ := bobNotifications[0].(map[string]any)
	if first["message"] != "alice commented on your post." {
		t.Fatalf("unexpected message: %v", first["message"])
	}

	recorder, payload = doJSON(t, handler, http.MethodGet, "/api/notifications", aliceSession.Token, "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("notifications status = %d", recorder.Code)
	}
	aliceNotifications, _ := payload["notifications"].([]any)
	if len(aliceNotifications) != 1 {
		t.Fatalf("alice expected 1 notification, got %d", len(aliceNotifications))
	}
	first, _ = aliceNotifications[0].(map[string]any)
	if first["message"] != "bob replied to your comment." {
		t.Fatalf("unexpected message: %v", first["message"])
	}

	recorder, payload = doJSON(t, handler, http.MethodPost, "/api/notifications/read-all", bobSession.Token, "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("read-all status = %d", recorder.Code)
	}
	if payload["modifiedCount"] != float64(1) {
		t.Fatalf("modifiedCount = %v, want 1", payload["modifiedCount"])
	}
}

func TestFlatCommentEndpointRejectsImpersonation(t *testing.T) {
	fs := newFakeStore()
	bob := fs.addUser("usr_bob", "bob", "author")
	alice := fs.addUser("usr_alice", "alice", "reader")
	fs.addPost("pst_1", "first-post", bob.ID)

	svc, handler := newTestServer(fs)
	session, _ := svc.CreateSession(context.Background(), alice.ID)

	recorder, payload := doJSON(t, handler, http.MethodPost, "/api/comments", session.Token,
		`{"text":"hi","postId":"pst_1","userId":"usr_bob"}`)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("impersonation status = %d: %v", recorder.Code, payload)
	}

	recorder, payload = doJSON(t, handler, http.MethodPost, "/api/comments", session.Token,
		`{"text":"hi","postId":"pst_1"}`)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %v", recorder.Code, payload)
	}
	if payload["authorId"] != alice.ID {
		t.Fatalf("authorId = %v, want %s", payload["authorId"], alice.ID)
	}
}

func TestUserScopedNotificationRoutes(t *testing.T) {
	fs := newFakeStore()
	bob := fs.addUser("usr_bob", "bob", "author")
	alice := fs.addUser("usr_alice", "alice", "reader")
	fs.addPost("pst_1", "first-post", bob.ID)

	svc, handler := newTestServer(fs)
	aliceSession, _ := svc.CreateSession(context.Background(), alice.ID)
	bobSession, _ := svc.CreateSession(context.Background(), bob.ID)

	recorder, payload := doJSON(t, handler, http.MethodPost, "/api/comments", aliceSession.Token,
		`{"text":"hello","postId":"pst_1"}`)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %v", recorder.Code, payload)
	}

	recorder, payload = doJSON(t, handler, http.MethodGet, "/api/users/usr_bob/notifications", bobSession.Token, "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("notifications status = %d", recorder.Code)
	}
	items, _ := payload["notifications"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(items))
	}

	// Reading someone else's notifications is forbidden.
	recorder, _ = doJSON(t, handler, http.MethodGet, "/api/users/usr_bob/notifications", aliceSession.Token, "")
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("cross-user read status = %d, want 403", recorder.Code)
	}

	recorder, payload = doJSON(t, handler, http.MethodPatch, "/api/users/usr_bob/notifications/read", bobSession.Token, "")
	if recorder.Code != http.StatusOK || payload["modifiedCount"] != float64(1) {
		t.Fatalf("mark read = %d %v", recorder.Code, payload)
	}
}

func TestPostCRUDOverHTTP(t *testing.T) {
	fs := newFakeStore()
	bob := fs.addUser("usr_bob", "bob", "author")

	svc, handler := newTestServer(fs)
	session, err := svc.CreateSession(context.Background(), bob.ID)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	recorder, payload := doJSON(t, handler, http.MethodPost, "/api/posts", session.Token,
		`{"title":"Hello World","body":"first!","tags":["intro"]}`)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %v", recorder.Code, payload)
	}
	if payload["slug"] != "hello-world" {
		t.Fatalf("slug = %v", payload["slug"])
	}

	recorder, payload = doJSON(t, handler, http.MethodGet, "/api/posts/hello-world", session.Token, "")
	if recorder.Code != http.StatusOK || payload["body"] != "first!" {
		t.Fatalf("get = %d %v", recorder.Code, payload)
	}

	recorder, payload = doJSON(t, handler, http.MethodPost, "/api/posts/hello-world/like", session.Token, "")
	if recorder.Code != http.StatusOK || payload["liked"] != true {
		t.Fatalf("like = %d %v", recorder.Code, payload)
	}

	recorder, _ = doJSON(t, handler, http.MethodDelete, "/api/posts/hello-world", session.Token, "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("delete status = %d", recorder.Code)
	}

	recorder, _ = doJSON(t, handler, http.MethodGet, "/api/posts/hello-world", session.Token, "")
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", recorder.Code)
	}
}

func TestTagManagementRequiresAdmin(t *testing.T) {
	fs := newFakeStore()
	bob := fs.addUser("usr_bob", "bob", "author")
	admin := fs.addUser("usr_admin", "root", "admin")

	svc, handler := newTestServer(fs)
	bobSession, _ := svc.CreateSession(context.Background(), bob.ID)
	adminSession, _ := svc.CreateSession(context.Background(), admin.ID)

	recorder, payload := doJSON(t, handler, http.MethodPost, "/api/tags", bobSession.Token, `{"name":"go"}`)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("author tag create status = %d: %v", recorder.Code, payload)
	}

	recorder, payload = doJSON(t, handler, http.MethodPost, "/api/tags", adminSession.Token, `{"name":"go"}`)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("admin tag create status = %d: %v", recorder.Code, payload)
	}
	tagID, _ := payload["id"].(string)

	recorder, _ = doJSON(t, handler, http.MethodDelete, "/api/tags/"+tagID, bobSession.Token, "")
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("author tag delete status = %d", recorder.Code)
	}
	recorder, _ = doJSON(t, handler, http.MethodDelete, "/api/tags/"+tagID, adminSession.Token, "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("admin tag delete status = %d", recorder.Code)
	}
}

func TestSearchRejectsBadLimit(t *testing.T) {
	fs := newFakeStore()
	bob := fs.addUser("usr_bob", "bob", "author")

	svc, handler := newTestServer(fs)
	session, _ := svc.CreateSession(context.Background(), bob.ID)

	recorder, payload := doJSON(t, handler, http.MethodGet, "/api/search?q=go&limit=abc", session.Token, "")
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d: %v", recorder.Code, payload)
	}
}

func TestSessionRefreshRotation(t *testing.T) {
	fs := newFakeStore()
	bob := fs.addUser("usr_bob", "bob", "author")

	svc, handler := newTestServer(fs)
	session, err := svc.CreateSession(context.Background(), bob.ID)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	recorder, payload := doJSON(t, handler, http.MethodPost, "/api/session/refresh", "",
		`{"refreshToken":"`+session.RefreshToken+`"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("refresh status = %d: %v", recorder.Code, payload)
	}
	if payload["refreshToken"] == session.RefreshToken {
		t.Fatal("refresh token should rotate")
	}

	recorder, payload = doJSON(t, handler, http.MethodPost, "/api/session/refresh", "",
		`{"refreshToken":"`+session.RefreshToken+`"}`)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh status = %d: %v", recorder.Code, payload)
	}
}
