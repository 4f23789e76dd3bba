package gerzat

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status           string `json:"status"`
	Time             int64  `json:"time"`
	ScheduleEntries  int    `json:"scheduleEntries"`
	TrainCredentials bool   `json:"trainCredentials"`
	TripUpdatesURL   bool   `json:"tripUpdatesConfigured"`
	VehiclePositions bool   `json:"vehiclePositionsConfigured"`
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:           "ok",
		Time:             time.Now().Unix(),
		ScheduleEntries:  a.Schedule.Len(),
		TrainCredentials: a.Cfg.Train.APIKey != "",
		TripUpdatesURL:   a.Cfg.Bus.TripUpdatesURL != "",
		VehiclePositions: a.Cfg.Bus.VehiclePositionsURL != "",
	}
	if resp.ScheduleEntries == 0 {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}
