package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"health-companion-backend/internal/config"
)

func newTestStore(t *testing.T, endpoint string) *S3Store {
	t.Helper()

	store, err := NewS3Store(context.Background(), config.AWSConfig{
		Region:    "us-east-1",
		S3Bucket:  "exports",
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "secret",
		Endpoint:  endpoint,
	})
	if err != nil {
		t.Fatalf("NewS3Store() error = %v", err)
	}
	return store
}

func TestS3Store_PresignGet(t *testing.T) {
	store := newTestStore(t, "http://localhost:9000")

	raw, err := store.PresignGet(context.Background(), "exports/p1/e1.csv", 10*time.Minute)
	if err != nil {
		t.Fatalf("PresignGet() error = %v", err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("presigned URL %q does not parse: %v", raw, err)
	}
	if u.Host != "localhost:9000" {
		t.Errorf("host = %q, want localhost:9000", u.Host)
	}
	if u.Path != "/exports/exports/p1/e1.csv" {
		t.Errorf("path = %q, want path-style bucket/key", u.Path)
	}
	if got := u.Query().Get("X-Amz-Expires"); got != "600" {
		t.Errorf("X-Amz-Expires = %q, want 600", got)
	}
	if u.Query().Get("X-Amz-Signature") == "" {
		t.Error("presigned URL has no signature")
	}
}

func TestS3Store_Put(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotMethod, gotPath, gotBody = r.Method, r.URL.Path, string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := newTestStore(t, srv.URL)
	csv := "category,date\nglucose,2024-01-15\n"
	if err := store.Put(context.Background(), "exports/p1/e1.csv", "text/csv", []byte(csv)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("method = %s, want PUT", gotMethod)
	}
	if gotPath != "/exports/exports/p1/e1.csv" {
		t.Errorf("path = %q, want /exports/exports/p1/e1.csv", gotPath)
	}
	if !strings.Contains(gotBody, "glucose,2024-01-15") {
		t.Errorf("body = %q, want it to contain the CSV", gotBody)
	}
}
