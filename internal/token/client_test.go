package token

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getToken" {
			t.Errorf("path = %q, want /getToken", r.URL.Path)
		}
		if got := r.URL.Query().Get("name"); got != "Pat Smith" {
			t.Errorf("name = %q, want %q", got, "Pat Smith")
		}
		w.Write([]byte(`{"token":"jwt-abc","room":"session-1a2b3c"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	cred, err := c.Fetch(context.Background(), "Pat Smith")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if cred.Token != "jwt-abc" {
		t.Errorf("Token = %q, want jwt-abc", cred.Token)
	}
	if cred.Room != "session-1a2b3c" {
		t.Errorf("Room = %q, want session-1a2b3c", cred.Room)
	}
}

func TestClient_FetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := New(srv.URL).Fetch(context.Background(), "x"); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestClient_FetchIncompleteCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"jwt-abc"}`))
	}))
	defer srv.Close()

	if _, err := New(srv.URL).Fetch(context.Background(), "x"); err == nil {
		t.Error("expected error for credential without room")
	}
}
