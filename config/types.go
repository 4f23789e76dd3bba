package config

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port           int      `yaml:"port" validate:"gt=0"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// BusConfig describes the GTFS-RT bus feeds and the static schedule table.
type BusConfig struct {
	TripUpdatesURL      string   `yaml:"tripUpdatesURL" validate:"omitempty,url"`
	VehiclePositionsURL string   `yaml:"vehiclePositionsURL" validate:"omitempty,url"`
	RouteIDs            []string `yaml:"routeIDs"`
	SchedulePath        string   `yaml:"schedulePath"`
	ReadIntervalMS      int      `yaml:"readIntervalMS" validate:"gte=0"`
	TimeoutMS           int      `yaml:"timeoutMS" validate:"gte=0"`
}

// TrainConfig describes the SNCF departures API.
// The API key is read from the SNCF_API_KEY environment variable, never
// from the config file.
type TrainConfig struct {
	BaseURL     string `yaml:"baseURL" validate:"omitempty,url"`
	StationID   string `yaml:"stationID"`
	Count       int    `yaml:"count" validate:"gte=0"`
	CacheTTLSec int    `yaml:"cacheTTLSeconds" validate:"gte=0"`
	TimeoutMS   int    `yaml:"timeoutMS" validate:"gte=0"`
	APIKey      string `yaml:"-"`
}

// ReconcileConfig carries the tunable reconciliation heuristics.
type ReconcileConfig struct {
	// MatchWindowHours bounds how far a predicted time may drift from the
	// scheduled arrival before a date-less trip match is rejected.
	MatchWindowHours int `yaml:"matchWindowHours" validate:"gte=0"`
	// HubName and TerminusName feed the headsign synthesis for added
	// trips (direction 1 points at the hub, direction 0 at the terminus).
	HubName      string `yaml:"hubName"`
	TerminusName string `yaml:"terminusName"`
	// PaturalGroup names the stop group covered by the directional
	// express pattern filter.
	PaturalGroup string `yaml:"paturalGroup"`
}

// StopGroupsConfig maps a group name to the stop ids considered the same
// physical location. The "all" key lists every stop of interest.
type StopGroupsConfig map[string][]string

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server" validate:"required"`
	Bus        BusConfig        `yaml:"bus"`
	Train      TrainConfig      `yaml:"train"`
	Reconcile  ReconcileConfig  `yaml:"reconcile"`
	StopGroups StopGroupsConfig `yaml:"stopGroups"`
}
