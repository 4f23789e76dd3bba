package gtfsrt

// ScheduleRelationship mirrors the GTFS-RT TripDescriptor enum.
type ScheduleRelationship int32

const (
	RelScheduled   ScheduleRelationship = 0
	RelAdded       ScheduleRelationship = 1
	RelUnscheduled ScheduleRelationship = 2
	RelCanceled    ScheduleRelationship = 3
)

// Stop-level schedule_relationship values.
const (
	stopRelScheduled = 0
	stopRelSkipped   = 1
	stopRelNoData    = 2
)

// StopTimeUpdate is the live prediction for one stop of a trip. Times are
// Unix seconds and zero when the feed did not provide them.
type StopTimeUpdate struct {
	Arrival       int64
	Departure     int64
	PredictedTime int64 // arrival when present, else departure
	Delay         int32
	Skipped       bool
}

// TripUpdate is the decoded realtime state of one trip, rebuilt from
// scratch on every feed cycle and never mutated in place.
type TripUpdate struct {
	TripID       string
	RouteID      string
	DirectionID  int
	StartDate    string // YYYYMMDD, empty when absent from the feed
	Relationship ScheduleRelationship
	IsAdded      bool
	IsCancelled  bool
	Delay        int32 // last non-zero delay seen across stop updates
	StopUpdates  map[string]StopTimeUpdate
	StopOrder    []string // stop ids in feed order
}

// FirstStop returns the first stop update in feed order.
func (tu *TripUpdate) FirstStop() (StopTimeUpdate, bool) {
	if len(tu.StopOrder) == 0 {
		return StopTimeUpdate{}, false
	}
	u, ok := tu.StopUpdates[tu.StopOrder[0]]
	return u, ok
}

// LastStop returns the last stop update in feed order.
func (tu *TripUpdate) LastStop() (StopTimeUpdate, bool) {
	if len(tu.StopOrder) == 0 {
		return StopTimeUpdate{}, false
	}
	u, ok := tu.StopUpdates[tu.StopOrder[len(tu.StopOrder)-1]]
	return u, ok
}

// VehiclePosition is one live vehicle location from the positions feed.
type VehiclePosition struct {
	TripID    string  `json:"tripId"`
	RouteID   string  `json:"routeId"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Bearing   float64 `json:"bearing"`
	Timestamp int64   `json:"timestamp"`
}
