package server

import (
	"net/http"
	"testing"
)

func TestProtectedRoutesRejectMissingSession(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.request(t, http.MethodGet, "/api/switches", nil, nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
}

func TestProtectedRoutesRejectForgedSession(t *testing.T) {
	env := newTestEnv(t)

	cookie := &http.Cookie{Name: testCookieName, Value: "not-a-token"}
	recorder := env.request(t, http.MethodGet, "/api/switches", nil, cookie)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := newTestEnv(t)

	regular := env.sessionCookie(t, "user-1")
	recorder := env.request(t, http.MethodGet, "/api/admin/master-switches/pending", nil, regular)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a regular user, got %d", recorder.Code)
	}

	admin := env.sessionCookie(t, "admin-1", "admin")
	recorder = env.request(t, http.MethodGet, "/api/admin/master-switches/pending", nil, admin)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 for an admin, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestDevLoginMintsUsableSession(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.request(t, http.MethodPost, "/auth/dev-login", map[string]interface{}{
		"userId":      "dev-user",
		"email":       "dev@example.com",
		"displayName": "Dev User",
	}, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("dev login failed: %d %s", recorder.Code, recorder.Body.String())
	}

	var session *http.Cookie
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == testCookieName {
			session = cookie
		}
	}
	if session == nil {
		t.Fatal("expected a session cookie")
	}

	recorder = env.request(t, http.MethodGet, "/api/switches", nil, session)
	if recorder.Code != http.StatusOK {
		t.Fatalf("minted session rejected: %d %s", recorder.Code, recorder.Body.String())
	}
}

func TestPublicRoutesNeedNoSession(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.request(t, http.MethodGet, "/api/master-switches", nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = env.request(t, http.MethodGet, "/api/materials", nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
}
