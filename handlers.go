package gerzat

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nickdesi/BusTrainGerzat-sub000/bus"
	"github.com/nickdesi/BusTrainGerzat-sub000/gtfsrt"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[http] encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type busResponse struct {
	Updates   []bus.Update `json:"updates"`
	Timestamp int64        `json:"timestamp"`
}

func (a *App) handleBus(w http.ResponseWriter, r *http.Request) {
	updates, ts := a.BusBoard(r.Context())
	if updates == nil {
		updates = []bus.Update{}
	}
	writeJSON(w, http.StatusOK, busResponse{Updates: updates, Timestamp: ts})
}

func (a *App) handleBusTrip(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")
	u, ok := a.TripLookup(r.Context(), tripID)
	if !ok {
		writeError(w, http.StatusNotFound, "trip not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *App) handleTrain(w http.ResponseWriter, r *http.Request) {
	res := a.TrainBoard(r.Context())
	writeJSON(w, http.StatusOK, res)
}

func (a *App) handleBoardDepartures(w http.ResponseWriter, r *http.Request) {
	b := a.FullBoard(r.Context())
	writeJSON(w, http.StatusOK, b.Departures)
}

func (a *App) handleBoardArrivals(w http.ResponseWriter, r *http.Request) {
	b := a.FullBoard(r.Context())
	writeJSON(w, http.StatusOK, b.Arrivals)
}

func (a *App) handleVehicles(w http.ResponseWriter, r *http.Request) {
	positions, err := a.Vehicles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "vehicle positions unavailable")
		return
	}
	if positions == nil {
		positions = []gtfsrt.VehiclePosition{}
	}
	writeJSON(w, http.StatusOK, positions)
}
