package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

const testToken = "s3cret-admin-token"

func TestRequireToken_NoHeader_Returns401(t *testing.T) {
	mw := RequireToken(testToken)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	})

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("expected WWW-Authenticate header")
	}
}

func TestRequireToken_WrongToken_Returns401(t *testing.T) {
	mw := RequireToken(testToken)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	})

	for _, header := range []string{"Bearer wrong", "Basic " + testToken, testToken, "Bearer "} {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		mw(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestRequireToken_ValidToken_CallsNextWithUserID(t *testing.T) {
	mw := RequireToken(testToken)

	var gotUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "bearer "+testToken)
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if gotUserID != AdminUserID {
		t.Errorf("expected userID=%s, got %q", AdminUserID, gotUserID)
	}
}

func TestRequireToken_EmptyConfiguredTokenRejectsEverything(t *testing.T) {
	mw := RequireToken("")
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	})
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestDevAuth_SetsDevUserID(t *testing.T) {
	var gotUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = UserIDFromContext(r.Context())
	})

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	DevAuth(next).ServeHTTP(rec, req)

	if gotUserID != DevUserID {
		t.Errorf("expected userID=%s, got %q", DevUserID, gotUserID)
	}
}
