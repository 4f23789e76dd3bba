package train

// ErrorCode identifies why a reconciliation pass returned no live data.
type ErrorCode string

const (
	CodeNone               ErrorCode = ""
	CodeCredentialsMissing ErrorCode = "CREDENTIALS_MISSING"
	CodeFetchFailed        ErrorCode = "FETCH_FAILED"
	CodeRateLimited        ErrorCode = "RATE_LIMITED"
)

// Departure is one train departure as returned by the SNCF API, already
// normalized to Unix timestamps.
type Departure struct {
	JourneyID   string
	Number      string
	Network     string
	Destination string
	Platform    string
	Arrival     int64
	Departure   int64
	Cancelled   bool
}

// Update is one reconciled train departure.
type Update struct {
	JourneyID     string `json:"journeyId"`
	Number        string `json:"number"`
	Network       string `json:"network"`
	Destination   string `json:"destination"`
	Platform      string `json:"platform"`
	Arrival       int64  `json:"arrival"`
	Departure     int64  `json:"departure"`
	BaseArrival   int64  `json:"baseArrival"`
	BaseDeparture int64  `json:"baseDeparture"`
	Delay         int64  `json:"delay"`
	IsRealtime    bool   `json:"isRealtime"`
	IsCancelled   bool   `json:"isCancelled"`
}

// Result is the outcome of one train reconciliation pass. An empty
// update list with a non-empty Code means the source was unavailable;
// Degraded marks data served from an expired cache after a rate limit.
type Result struct {
	Updates   []Update  `json:"updates"`
	Timestamp int64     `json:"timestamp"`
	Code      ErrorCode `json:"error,omitempty"`
	Degraded  bool      `json:"degraded,omitempty"`
}

// Wire types for the SNCF (navitia) departures endpoint. Validation is
// deliberately strict at this boundary: a response without a departures
// array is treated as "source unavailable".

type apiResponse struct {
	Departures []apiDeparture `json:"departures"`
}

type apiDeparture struct {
	DisplayInfo  apiDisplayInfo  `json:"display_informations"`
	StopDateTime apiStopDateTime `json:"stop_date_time"`
	StopPoint    apiStopPoint    `json:"stop_point"`
	Links        []apiLink       `json:"links"`
}

type apiDisplayInfo struct {
	Direction     string `json:"direction"`
	Network       string `json:"network"`
	TripShortName string `json:"trip_short_name"`
	Status        string `json:"status"` // "", "cancelled" or "deleted"
}

type apiStopDateTime struct {
	ArrivalDateTime   string `json:"arrival_date_time"`
	DepartureDateTime string `json:"departure_date_time"`
	DataFreshness     string `json:"data_freshness"`
}

type apiStopPoint struct {
	Name         string `json:"name"`
	PlatformCode string `json:"platform_code"`
}

type apiLink struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func (d apiDeparture) journeyID() string {
	for _, l := range d.Links {
		if l.Type == "vehicle_journey" {
			return l.ID
		}
	}
	return ""
}

func (d apiDeparture) cancelled() bool {
	return d.DisplayInfo.Status == "cancelled" || d.DisplayInfo.Status == "deleted"
}
