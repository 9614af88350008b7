package epc

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	t.Setenv("EPC_EMAIL", "test@example.com")
	t.Setenv("EPC_API_KEY", "secret")
	t.Setenv("EPC_BASE_URL", server.URL)
	t.Setenv("EPC_REQUEST_DELAY_MS", "0")
	t.Setenv("EPC_BACKOFF_MS", "1")

	client, err := NewClient(cache, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return client, server
}

func rowsResponse(rows ...apiRow) []byte {
	data, _ := json.Marshal(apiResponse{Rows: rows})
	return data
}

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Setenv("EPC_EMAIL", "")
	t.Setenv("EPC_API_KEY", "")

	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewClient(cache, testLogger()); err == nil {
		t.Error("NewClient() succeeded without credentials")
	}
}

func TestRecordsCachesAcrossCalls(t *testing.T) {
	requests := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if auth := r.Header.Get("Authorization"); auth == "" {
			t.Error("request missing Authorization header")
		}
		w.Write(rowsResponse(apiRow{
			Address1:       "10 HIGH STREET",
			Postcode:       "AB1 2CD",
			TotalFloorArea: "82.5",
			HabitableRooms: "4",
			EnergyRating:   "C",
			LodgementDate:  "2020-01-01",
		}))
	}))

	first, fromCache, err := client.Records(context.Background(), "AB1 2CD")
	if err != nil {
		t.Fatal(err)
	}
	if fromCache {
		t.Error("first lookup reported a cache hit")
	}
	if len(first) != 1 || first[0].FloorArea != 82.5 || first[0].Rooms != 4 {
		t.Fatalf("unexpected records: %+v", first)
	}

	second, fromCache, err := client.Records(context.Background(), "AB1 2CD")
	if err != nil {
		t.Fatal(err)
	}
	if !fromCache {
		t.Error("second lookup missed the cache")
	}
	if requests != 1 {
		t.Errorf("server saw %d requests, want 1 (second run must be free)", requests)
	}
	if len(second) != 1 || second[0] != first[0] {
		t.Errorf("cached records differ from fetched: %+v vs %+v", second, first)
	}
}

func TestRecordsRetriesOn429(t *testing.T) {
	requests := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(rowsResponse(apiRow{Address1: "1 MILL LANE", Postcode: "AB1 2CD"}))
	}))

	records, _, err := client.Records(context.Background(), "AB1 2CD")
	if err != nil {
		t.Fatal(err)
	}
	if requests != 3 {
		t.Errorf("server saw %d requests, want 3 (two 429s then success)", requests)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}

func TestRecordsRetryExhaustionFails(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	client.maxRetries = 2

	if _, _, err := client.Records(context.Background(), "AB1 2CD"); err == nil {
		t.Error("Records() succeeded despite persistent rate limiting")
	}
}

func TestRecordsNonSuccessCachedAsEmpty(t *testing.T) {
	requests := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusNotFound)
	}))

	records, _, err := client.Records(context.Background(), "AB1 2CD")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}

	// The empty result is cached: the failure is not retried.
	if _, fromCache, _ := client.Records(context.Background(), "AB1 2CD"); !fromCache {
		t.Error("empty result was not cached")
	}
	if requests != 1 {
		t.Errorf("server saw %d requests, want 1", requests)
	}
}
