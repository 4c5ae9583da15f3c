package bitbucket

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type item struct {
	ID int `json:"id"`
}

func TestListAllFollowsNextLinks(t *testing.T) {
	// The next link is an absolute URL carrying its own query parameters.
	pageTwoServed := false
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			pageTwoServed = true
			fmt.Fprint(w, `{"page": 2, "pagelen": 2, "size": 4, "values": [{"id": 3}, {"id": 4}]}`)
			return
		}
		fmt.Fprintf(w, `{"page": 1, "pagelen": 2, "size": 4, "next": %q, "values": [{"id": 1}, {"id": 2}]}`, srv.URL+"/items?page=2")
	}))
	defer srv.Close()

	client := NewClient("a", "b", WithBaseURL(srv.URL), WithTimeout(time.Second))

	items, err := ListAll[item](context.Background(), client, "items", nil, 0)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}

	if !pageTwoServed {
		t.Error("second page was never fetched")
	}
	if len(items) != 4 {
		t.Fatalf("len(items) = %d, want 4", len(items))
	}
	for i, it := range items {
		if it.ID != i+1 {
			t.Errorf("items[%d].ID = %d, want %d (server order must be preserved)", i, it.ID, i+1)
		}
	}
}

func TestListAllStopsAtMaxPages(t *testing.T) {
	// Every page links to itself: without the page bound this would loop
	// forever.
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"page": 1, "pagelen": 1, "size": 1, "next": %q, "values": [{"id": 1}]}`, srv.URL+"/loop")
	}))
	defer srv.Close()

	client := NewClient("a", "b", WithBaseURL(srv.URL), WithTimeout(time.Second))

	items, err := ListAll[item](context.Background(), client, "loop", nil, 3)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(items) != 3 {
		t.Errorf("len(items) = %d, want exactly 3", len(items))
	}
}

func TestListAllDefaultMaxPages(t *testing.T) {
	var srv *httptest.Server
	requests := 0
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"next": %q, "values": [{"id": 1}]}`, srv.URL+"/loop")
	}))
	defer srv.Close()

	client := NewClient("a", "b", WithBaseURL(srv.URL), WithTimeout(time.Second))

	items, err := ListAll[item](context.Background(), client, "loop", nil, 0)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if requests != DefaultMaxPages {
		t.Errorf("requests = %d, want %d", requests, DefaultMaxPages)
	}
	if len(items) != DefaultMaxPages {
		t.Errorf("len(items) = %d, want %d", len(items), DefaultMaxPages)
	}
}

func TestListAllFailsFastWithoutPartialResults(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"next": %q, "values": [{"id": 1}]}`, srv.URL+"/items?page=2")
	}))
	defer srv.Close()

	client := NewClient("a", "b", WithBaseURL(srv.URL), WithTimeout(time.Second))

	items, err := ListAll[item](context.Background(), client, "items", nil, 0)
	if err == nil {
		t.Fatal("expected error when a mid-sequence page fails")
	}
	if items != nil {
		t.Errorf("items = %v, want nil on failure", items)
	}

	apiErr, ok := IsAPIError(err)
	if !ok || apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("error = %v, want APIError with status 502", err)
	}
}

func TestListAllFirstPageQueryParams(t *testing.T) {
	var rawQuery string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"values": []}`)
	})

	_, err := ListAll[item](context.Background(), client, "items", map[string]string{"state": "OPEN", "q": ""}, 0)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if rawQuery != "state=OPEN" {
		t.Errorf("query = %q, want state=OPEN only", rawQuery)
	}
}
