package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFirebaseSignIn(t *testing.T) {
	var gotBody identityCredentialRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/accounts:signInWithPassword", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "api-key" {
			t.Errorf("missing api key in query %q", r.URL.RawQuery)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{
			"localId": "user-1",
			"email": "a@b.c",
			"idToken": "id-token",
			"refreshToken": "refresh-token"
		}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewFirebaseWithBaseURLs(server.URL, server.URL, "api-key")
	session, err := c.SignIn(context.Background(), "a@b.c", "secret")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	if !gotBody.ReturnSecureToken || gotBody.Email != "a@b.c" {
		t.Errorf("unexpected request body: %+v", gotBody)
	}
	if session.Identity.UID != "user-1" || session.Identity.Email != "a@b.c" {
		t.Errorf("unexpected identity: %+v", session.Identity)
	}
	if session.AccessToken != "id-token" || session.RefreshToken != "refresh-token" {
		t.Errorf("unexpected tokens: %+v", session)
	}
}

func TestFirebaseSignInWrongPassword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 400, "message": "INVALID_PASSWORD"}}`, http.StatusBadRequest)
	}))
	defer server.Close()

	c := NewFirebaseWithBaseURLs(server.URL, server.URL, "api-key")
	_, err := c.SignIn(context.Background(), "a@b.c", "wrong")

	var authErr *Error
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if authErr.Code != "INVALID_PASSWORD" {
		t.Errorf("code = %q", authErr.Code)
	}
	if authErr.Message != "Incorrect password. Please try again." {
		t.Errorf("message = %q", authErr.Message)
	}
}

func TestFirebaseErrorCodeWithSuffix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(
			w,
			`{"error": {"message": "WEAK_PASSWORD : Password should be at least 6 characters"}}`,
			http.StatusBadRequest,
		)
	}))
	defer server.Close()

	c := NewFirebaseWithBaseURLs(server.URL, server.URL, "api-key")
	_, err := c.SignUp(context.Background(), "a@b.c", "x")

	var authErr *Error
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if authErr.Code != "WEAK_PASSWORD" {
		t.Errorf("suffix not stripped from code: %q", authErr.Code)
	}
}

func TestFirebaseRefresh(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "refresh_token" {
			t.Errorf("grant_type = %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("refresh_token") != "old-refresh" {
			t.Errorf("refresh_token = %q", r.PostForm.Get("refresh_token"))
		}
		w.Write([]byte(`{
			"user_id": "user-1",
			"id_token": "new-id-token",
			"refresh_token": "new-refresh"
		}`))
	})
	mux.HandleFunc("/accounts:lookup", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"users": [{"email": "a@b.c"}]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewFirebaseWithBaseURLs(server.URL, server.URL, "api-key")
	session, err := c.Refresh(context.Background(), "old-refresh")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if session.Identity.UID != "user-1" || session.Identity.Email != "a@b.c" {
		t.Errorf("unexpected identity: %+v", session.Identity)
	}
	if session.AccessToken != "new-id-token" || session.RefreshToken != "new-refresh" {
		t.Errorf("unexpected tokens: %+v", session)
	}
}
