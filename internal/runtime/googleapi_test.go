package runtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	gc "github.com/joshsymonds/chronocadence/internal/gmail"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) gc.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	svc, err := gmail.NewService(
		context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewGoogleAPIClient(svc)
}

func TestGoogleClientList(t *testing.T) {
	var gotQuery, gotToken string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotToken = r.URL.Query().Get("pageToken")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"messages":      []map[string]string{{"id": "a"}, {"id": "b"}},
			"nextPageToken": "next",
		})
	})

	page, err := client.List(context.Background(), gc.SenderQuery("news@example.com"), "tok", 50)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if gotQuery != "from:news@example.com" || gotToken != "tok" {
		t.Fatalf("unexpected request q=%q token=%q", gotQuery, gotToken)
	}
	if len(page.IDs) != 2 || page.IDs[1] != "b" || page.NextPageToken != "next" {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestGoogleClientGetMetadata(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "metadata" {
			t.Errorf("expected metadata format, got %q", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":           "a",
			"internalDate": "1700000000000",
			"payload": map[string]any{
				"headers": []map[string]string{
					{"name": "Date", "value": "Tue, 14 Nov 2023 22:13:20 +0000"},
					{"name": "Subject", "value": "Weekly digest"},
				},
			},
		})
	})

	meta, err := client.GetMetadata(context.Background(), "a", []string{"Date", "Subject"})
	if err != nil {
		t.Fatalf("get metadata: %v", err)
	}
	if meta.Headers["Subject"] != "Weekly digest" || meta.Headers["Date"] == "" {
		t.Fatalf("unexpected headers: %+v", meta.Headers)
	}
	if !meta.InternalDate.Equal(time.UnixMilli(1_700_000_000_000)) {
		t.Fatalf("unexpected internal date: %s", meta.InternalDate)
	}
}
