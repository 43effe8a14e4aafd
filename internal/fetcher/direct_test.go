package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
)

func TestDirectFetcher_PostsForm(t *testing.T) {
	var gotURL, gotToken, gotUA, gotContentType, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotUA = r.Header.Get("User-Agent")
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotURL = r.PostForm.Get("url")
		gotToken = r.PostForm.Get("token")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"clip"}`))
	}))
	defer srv.Close()

	f := NewDirect(srv.Client(), srv.URL+"/wp-json/aio-dl/video-data/")
	res, err := f.Fetch(context.Background(), "https://example.com/video/1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotURL != "https://example.com/video/1" {
		t.Errorf("url field = %q", gotURL)
	}
	if !regexp.MustCompile(`^[0-9a-z]{8}$`).MatchString(gotToken) {
		t.Errorf("token field = %q", gotToken)
	}
	if !strings.HasPrefix(gotUA, "Mozilla/5.0 (Linux; Android ") {
		t.Errorf("user agent = %q", gotUA)
	}
	if res.Status != http.StatusOK {
		t.Errorf("status = %d", res.Status)
	}
	if string(res.Data) != `{"title":"clip"}` {
		t.Errorf("data = %s", res.Data)
	}
}

func TestDirectFetcher_PassesThroughUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("<html>challenge</html>"))
	}))
	defer srv.Close()

	res, err := NewDirect(srv.Client(), srv.URL).Fetch(context.Background(), "https://example.com/v")
	if err != nil {
		t.Fatalf("non-2xx must not be an error: %v", err)
	}
	if res.Status != http.StatusForbidden {
		t.Errorf("status = %d, want 403", res.Status)
	}
	if string(res.Data) != `{"raw":"<html>challenge</html>"}` {
		t.Errorf("data = %s", res.Data)
	}
}

func TestDirectFetcher_Errors(t *testing.T) {
	t.Run("empty target", func(t *testing.T) {
		_, err := NewDirect(nil, "http://127.0.0.1:1").Fetch(context.Background(), "   ")
		if !errors.Is(err, ErrEmptyTarget) {
			t.Errorf("expected ErrEmptyTarget, got %v", err)
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		_, err := NewDirect(nil, "http://127.0.0.1:1").Fetch(context.Background(), "https://example.com/v")
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "upstream request failed") {
			t.Errorf("unexpected error %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewDirect(srv.Client(), srv.URL).Fetch(ctx, "https://example.com/v")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
