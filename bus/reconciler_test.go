package bus

import (
	"testing"

	"github.com/nickdesi/BusTrainGerzat-sub000/config"
	"github.com/nickdesi/BusTrainGerzat-sub000/gtfsrt"
	"github.com/nickdesi/BusTrainGerzat-sub000/schedule"
	"github.com/nickdesi/BusTrainGerzat-sub000/stops"
)

const now = int64(1_700_000_000)

func testReconciler() *Reconciler {
	resolver := stops.NewResolver(config.StopGroupsConfig{
		"all":     {"GERZA1", "GERZA2", "PATUR1"},
		"gerzat":  {"GERZA1", "GERZA2"},
		"patural": {"PATUR1"},
	})
	return NewReconciler(resolver, Config{
		MatchWindowHours: 12,
		HubName:          "Gerzat",
		TerminusName:     "Clermont-Ferrand",
		PaturalGroup:     "patural",
	}, nil)
}

func entry(tripID string, arrival int64, direction int) schedule.Entry {
	return schedule.Entry{
		TripID:    tripID,
		StopID:    "GERZA1",
		Date:      "20250101",
		Arrival:   arrival,
		Departure: arrival + 10,
		Headsign:  "Clermont-Ferrand",
		Direction: direction,
	}
}

func tripUpdate(tripID string, stop string, su gtfsrt.StopTimeUpdate) *gtfsrt.TripUpdate {
	return &gtfsrt.TripUpdate{
		TripID:      tripID,
		StopUpdates: map[string]gtfsrt.StopTimeUpdate{stop: su},
		StopOrder:   []string{stop},
	}
}

func TestScheduledFallbackWithoutRealtime(t *testing.T) {
	r := testReconciler()
	out, _ := r.Reconcile([]schedule.Entry{entry("A", now+300, 0)}, nil, now)
	if len(out) != 1 {
		t.Fatalf("got %d updates, want 1", len(out))
	}
	u := out[0]
	if u.IsRealtime || u.IsCancelled {
		t.Errorf("expected plain scheduled entry: %+v", u)
	}
	if u.Arrival != now+300 || u.Departure != now+310 {
		t.Errorf("times not taken from schedule: %+v", u)
	}
}

func TestRealtimeMatchAdoptsPredictedTimes(t *testing.T) {
	r := testReconciler()
	e := entry("A", now+300, 0)
	updates := map[string]*gtfsrt.TripUpdate{
		"A": tripUpdate("A", "GERZA1", gtfsrt.StopTimeUpdate{
			Arrival:       now + 420,
			Departure:     now + 440,
			PredictedTime: now + 420,
			Delay:         120,
		}),
	}
	out, _ := r.Reconcile([]schedule.Entry{e}, updates, now)
	u := out[0]
	if !u.IsRealtime {
		t.Fatal("expected realtime match")
	}
	if u.Arrival != now+420 || u.Departure != now+440 || u.Delay != 120 {
		t.Errorf("unexpected merge result: %+v", u)
	}
}

func TestDwellPreservedWhenDepartureMissing(t *testing.T) {
	r := testReconciler()
	e := schedule.Entry{
		TripID: "A", StopID: "GERZA1", Date: "20250101",
		Arrival: now + 300, Departure: now + 360, Direction: 0, Headsign: "H",
	}
	updates := map[string]*gtfsrt.TripUpdate{
		"A": tripUpdate("A", "GERZA1", gtfsrt.StopTimeUpdate{
			Arrival:       now + 400,
			PredictedTime: now + 400,
			Delay:         100,
		}),
	}
	out, _ := r.Reconcile([]schedule.Entry{e}, updates, now)
	if out[0].Departure != now+400+60 {
		t.Errorf("departure = %d, want arrival + 60s dwell", out[0].Departure)
	}
}

func TestDelayCorrectionOverridesZero(t *testing.T) {
	r := testReconciler()
	e := entry("A", now+300, 0)
	updates := map[string]*gtfsrt.TripUpdate{
		"A": tripUpdate("A", "GERZA1", gtfsrt.StopTimeUpdate{
			Arrival:       now + 600, // 300s past schedule, feed claims delay=0
			PredictedTime: now + 600,
		}),
	}
	out, _ := r.Reconcile([]schedule.Entry{e}, updates, now)
	if out[0].Delay != 300 {
		t.Errorf("delay = %d, want computed 300", out[0].Delay)
	}
}

func TestSmallShiftKeepsReportedDelay(t *testing.T) {
	r := testReconciler()
	e := entry("A", now+300, 0)
	updates := map[string]*gtfsrt.TripUpdate{
		"A": tripUpdate("A", "GERZA1", gtfsrt.StopTimeUpdate{
			Arrival:       now + 330, // 30s shift, below the override threshold
			PredictedTime: now + 330,
		}),
	}
	out, _ := r.Reconcile([]schedule.Entry{e}, updates, now)
	if out[0].Delay != 0 {
		t.Errorf("delay = %d, want 0", out[0].Delay)
	}
}

func TestStopGroupFallbackMarksRealtime(t *testing.T) {
	r := testReconciler()
	e := entry("A", now+300, 0) // schedule says GERZA1
	updates := map[string]*gtfsrt.TripUpdate{
		"A": tripUpdate("A", "GERZA2", gtfsrt.StopTimeUpdate{ // feed says GERZA2
			Arrival:       now + 360,
			PredictedTime: now + 360,
			Delay:         60,
		}),
	}
	out, _ := r.Reconcile([]schedule.Entry{e}, updates, now)
	u := out[0]
	if !u.IsRealtime {
		t.Fatal("group member data must mark the entry realtime")
	}
	if u.Arrival != now+360 {
		t.Errorf("arrival = %d, want group member's prediction", u.Arrival)
	}
}

func TestCancelledTripWithoutStopUpdates(t *testing.T) {
	r := testReconciler()
	e := schedule.Entry{
		TripID: "A", StopID: "GERZA1", Date: "20250101",
		Arrival: now + 1000, Departure: now + 1010, Direction: 0, Headsign: "H",
	}
	updates := map[string]*gtfsrt.TripUpdate{
		"A": {TripID: "A", Relationship: gtfsrt.RelCanceled, IsCancelled: true,
			StopUpdates: map[string]gtfsrt.StopTimeUpdate{}},
	}
	out, _ := r.Reconcile([]schedule.Entry{e}, updates, now)
	if len(out) != 1 {
		t.Fatalf("got %d updates", len(out))
	}
	u := out[0]
	if !u.IsCancelled || u.IsRealtime {
		t.Errorf("want cancelled, not realtime: %+v", u)
	}
	if u.Arrival != now+1000 {
		t.Errorf("arrival = %d, want scheduled fallback", u.Arrival)
	}
}

func TestSkippedStopForcesCancelled(t *testing.T) {
	r := testReconciler()
	e := entry("A", now+300, 0)
	updates := map[string]*gtfsrt.TripUpdate{
		"A": tripUpdate("A", "GERZA1", gtfsrt.StopTimeUpdate{
			Arrival:       now + 300,
			PredictedTime: now + 300,
			Skipped:       true,
		}),
	}
	out, _ := r.Reconcile([]schedule.Entry{e}, updates, now)
	if !out[0].IsCancelled {
		t.Error("skipped stop must force cancellation")
	}
}

func TestFuzzyTripMatchStripsServiceID(t *testing.T) {
	r := testReconciler()
	e := schedule.Entry{
		TripID: "4503_STATIC_07h10", StopID: "GERZA1",
		Arrival: now + 300, Departure: now + 310, Direction: 0, Headsign: "H",
	}
	updates := map[string]*gtfsrt.TripUpdate{
		"4503_RT99_07h10": tripUpdate("4503_RT99_07h10", "GERZA1", gtfsrt.StopTimeUpdate{
			Arrival:       now + 350,
			PredictedTime: now + 350,
			Delay:         50,
		}),
	}
	out, _ := r.Reconcile([]schedule.Entry{e}, updates, now)
	u := out[0]
	if !u.IsRealtime || u.Arrival != now+350 {
		t.Errorf("fuzzy match failed: %+v", u)
	}
}

func TestFuzzyMatchRejectsWrongDayPrediction(t *testing.T) {
	r := testReconciler()
	e := schedule.Entry{
		TripID: "4503_STATIC_07h10", StopID: "GERZA1",
		Arrival: now + 300, Departure: now + 310, Direction: 0, Headsign: "H",
	}
	updates := map[string]*gtfsrt.TripUpdate{
		// Prediction 20h away: a reused trip id from another day.
		"4503_RT99_07h10": tripUpdate("4503_RT99_07h10", "GERZA1", gtfsrt.StopTimeUpdate{
			Arrival:       now + 20*3600,
			PredictedTime: now + 20*3600,
		}),
	}
	out, _ := r.Reconcile([]schedule.Entry{e}, updates, now)
	if out[0].IsRealtime {
		t.Error("prediction outside the 12h window must not validate the match")
	}
}

func TestStartDateMismatchRejectsMatch(t *testing.T) {
	r := testReconciler()
	e := entry("A", now+300, 0) // date 20250101
	u := tripUpdate("A", "GERZA1", gtfsrt.StopTimeUpdate{
		Arrival:       now + 350,
		PredictedTime: now + 350,
	})
	u.StartDate = "20250102"
	out, _ := r.Reconcile([]schedule.Entry{e}, map[string]*gtfsrt.TripUpdate{"A": u}, now)
	if out[0].IsRealtime {
		t.Error("start date mismatch must reject the match")
	}
}

func TestStripServiceID(t *testing.T) {
	cases := []struct{ in, want string }{
		{"4503_A123_07h10", "4503_07h10"},
		{"4503_A123_07h10_x", "4503_07h10_x"},
		{"plain", "plain"},
		{"one_underscore", "one_underscore"},
	}
	for _, c := range cases {
		if got := StripServiceID(c.in); got != c.want {
			t.Errorf("StripServiceID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestAddedTripSynthesis(t *testing.T) {
	r := testReconciler()
	outbound := &gtfsrt.TripUpdate{
		TripID: "ADD0", DirectionID: 0, IsAdded: true,
		StopUpdates: map[string]gtfsrt.StopTimeUpdate{
			"GERZA1": {Arrival: now + 120, PredictedTime: now + 120},
			"END":    {Arrival: now + 900, PredictedTime: now + 900},
		},
		StopOrder: []string{"GERZA1", "END"},
	}
	inbound := &gtfsrt.TripUpdate{
		TripID: "ADD1", DirectionID: 1, IsAdded: true,
		StopUpdates: map[string]gtfsrt.StopTimeUpdate{
			"START":  {Arrival: now + 60, PredictedTime: now + 60},
			"GERZA1": {Arrival: now + 600, PredictedTime: now + 600},
		},
		StopOrder: []string{"START", "GERZA1"},
	}
	out, _ := r.Reconcile(nil, map[string]*gtfsrt.TripUpdate{"ADD0": outbound, "ADD1": inbound}, now)
	if len(out) != 2 {
		t.Fatalf("got %d updates, want 2", len(out))
	}
	// Sorted by arrival: ADD0 (hub = first stop) then ADD1 (hub = last stop).
	if out[0].TripID != "ADD0" || out[0].Arrival != now+120 || out[0].Headsign != "Clermont-Ferrand" {
		t.Errorf("outbound added trip: %+v", out[0])
	}
	if out[1].TripID != "ADD1" || out[1].Arrival != now+600 || out[1].Headsign != "Gerzat" {
		t.Errorf("inbound added trip: %+v", out[1])
	}
	if !out[0].IsRealtime || !out[1].IsRealtime {
		t.Error("added trips must be realtime")
	}
}

func TestCancellationDedupByReplacement(t *testing.T) {
	r := testReconciler()
	base := now + 1000
	cancelled := schedule.Entry{
		TripID: "C", StopID: "GERZA1", Date: "20250101",
		Arrival: base, Departure: base + 10, Direction: 0, Headsign: "H",
	}
	updates := map[string]*gtfsrt.TripUpdate{
		"C": {TripID: "C", IsCancelled: true, StopUpdates: map[string]gtfsrt.StopTimeUpdate{}},
	}

	t.Run("replacement within window suppresses cancellation", func(t *testing.T) {
		replacement := entry("R", base+600, 0)
		out, _ := r.Reconcile([]schedule.Entry{cancelled, replacement}, updates, now)
		if len(out) != 1 || out[0].TripID != "R" {
			t.Errorf("want only replacement R, got %+v", out)
		}
	})

	t.Run("replacement in other direction keeps cancellation", func(t *testing.T) {
		replacement := entry("R", base+600, 1)
		out, _ := r.Reconcile([]schedule.Entry{cancelled, replacement}, updates, now)
		if len(out) != 2 {
			t.Errorf("want both entries, got %+v", out)
		}
	})

	t.Run("replacement beyond window keeps cancellation", func(t *testing.T) {
		replacement := entry("R", base+1400, 0)
		out, _ := r.Reconcile([]schedule.Entry{cancelled, replacement}, updates, now)
		if len(out) != 2 {
			t.Errorf("want both entries, got %+v", out)
		}
	})
}

func TestPaturalRule(t *testing.T) {
	r := testReconciler()
	mk := func(direction int, headsign string) schedule.Entry {
		return schedule.Entry{
			TripID: "P", StopID: "PATUR1", Date: "20250101",
			Arrival: now + 300, Departure: now + 310,
			Direction: direction, Headsign: headsign,
		}
	}
	cases := []struct {
		name  string
		entry schedule.Entry
		keep  bool
	}{
		{"outbound kept", mk(0, "Clermont-Ferrand"), true},
		{"inbound with Patural headsign kept", mk(1, "Gerzat Patural"), true},
		{"inbound noise dropped", mk(1, "Clermont-Ferrand"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, _ := r.Reconcile([]schedule.Entry{tc.entry}, nil, now)
			if got := len(out) == 1; got != tc.keep {
				t.Errorf("kept=%v, want %v", got, tc.keep)
			}
		})
	}
}

func TestHorizonAndCap(t *testing.T) {
	r := testReconciler()
	var entries []schedule.Entry
	entries = append(entries, entry("OLD", now-700, 0)) // beyond lookback
	for i := 0; i < 25; i++ {
		entries = append(entries, entry(string(rune('a'+i)), now+int64(100*(i+1)), 0))
	}
	out, _ := r.Reconcile(entries, nil, now)
	if len(out) != 20 {
		t.Fatalf("got %d entries, want cap of 20", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].Arrival < out[i-1].Arrival {
			t.Fatal("output not sorted by arrival")
		}
	}
	for _, u := range out {
		if u.TripID == "OLD" {
			t.Error("entry beyond the horizon lookback survived")
		}
	}
}

func TestNextDayEntriesMatchOnHorizonOnly(t *testing.T) {
	r := testReconciler()
	// Next-day entry: different service date, but within the horizon.
	e := schedule.Entry{
		TripID: "N", StopID: "GERZA1", Date: "20250102",
		Arrival: now + 3600, Departure: now + 3610, Direction: 0, Headsign: "H",
	}
	out, _ := r.Reconcile([]schedule.Entry{e}, nil, now)
	if len(out) != 1 {
		t.Errorf("next-day entry must be retained on time horizon alone")
	}
}
