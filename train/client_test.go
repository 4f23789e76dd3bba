package train

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nickdesi/BusTrainGerzat-sub000/timeutil"
)

const sampleDepartures = `{
  "departures": [
    {
      "display_informations": {
        "direction": "Clermont-Ferrand (Clermont-Ferrand)",
        "network": "TER",
        "trip_short_name": "873412"
      },
      "stop_date_time": {
        "arrival_date_time": "20250115T081500",
        "departure_date_time": "20250115T081700",
        "data_freshness": "realtime"
      },
      "stop_point": {"name": "Gerzat", "platform_code": "1"},
      "links": [
        {"type": "line", "id": "line:SNCF:X"},
        {"type": "vehicle_journey", "id": "vehicle_journey:SNCF:2025-01-15:873412"}
      ]
    },
    {
      "display_informations": {
        "direction": "Riom",
        "network": "TER",
        "trip_short_name": "873414",
        "status": "deleted"
      },
      "stop_date_time": {
        "arrival_date_time": "20250115T090000",
        "departure_date_time": "20250115T090200",
        "data_freshness": "realtime"
      },
      "stop_point": {"name": "Gerzat"},
      "links": []
    }
  ]
}`

func TestClientParsesDepartures(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Query().Get("data_freshness") != FreshnessRealtime {
			t.Errorf("data_freshness = %q", r.URL.Query().Get("data_freshness"))
		}
		_, _ = w.Write([]byte(sampleDepartures))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "stop_area:SNCF:87734004", "secret", 10, 5*time.Second)
	deps, err := c.Departures(context.Background(), FreshnessRealtime)
	if err != nil {
		t.Fatalf("Departures: %v", err)
	}
	if len(deps) != 2 {
		t.Fatalf("got %d departures", len(deps))
	}

	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("secret:"))
	if gotAuth != wantAuth {
		t.Errorf("auth header = %q", gotAuth)
	}

	first := deps[0]
	if first.JourneyID != "vehicle_journey:SNCF:2025-01-15:873412" {
		t.Errorf("journey id = %q", first.JourneyID)
	}
	if first.Platform != "1" || first.Network != "TER" || first.Number != "873412" {
		t.Errorf("fields wrong: %+v", first)
	}
	wantDep := timeutil.ParseLocalTime("20250115T081700")
	if first.Departure != wantDep {
		t.Errorf("departure = %d, want %d", first.Departure, wantDep)
	}

	if !deps[1].Cancelled {
		t.Error("status=deleted must mark the departure cancelled")
	}
	if deps[1].JourneyID != "" {
		t.Errorf("journey id without link = %q", deps[1].JourneyID)
	}
}

func TestClientRateLimited(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "st", "key", 10, time.Second)
	_, err := c.Departures(context.Background(), FreshnessBase)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (429 must not be retried)", calls)
	}
}

func TestClientRejectsSchemaMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message": "no departures key"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "st", "key", 10, time.Second)
	if _, err := c.Departures(context.Background(), FreshnessBase); err == nil {
		t.Fatal("expected error for response without departures array")
	}
}

func TestClientRetriesServerError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"departures": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "st", "key", 10, time.Second)
	deps, err := c.Departures(context.Background(), FreshnessBase)
	if err != nil {
		t.Fatalf("Departures: %v", err)
	}
	if deps == nil || len(deps) != 0 {
		t.Errorf("deps = %v, want empty slice", deps)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestCacheTTL(t *testing.T) {
	c := NewCache(time.Minute)
	t0 := time.Unix(now, 0)
	if _, ok := c.Get(t0, false); ok {
		t.Fatal("empty cache returned a value")
	}
	c.Put(t0, Result{Timestamp: now})
	if _, ok := c.Get(t0.Add(30*time.Second), false); !ok {
		t.Error("fresh entry not served")
	}
	if _, ok := c.Get(t0.Add(2*time.Minute), false); ok {
		t.Error("expired entry served without allowStale")
	}
	if _, ok := c.Get(t0.Add(2*time.Minute), true); !ok {
		t.Error("expired entry must be served with allowStale")
	}
}
