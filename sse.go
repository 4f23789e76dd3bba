package gerzat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const streamInterval = 120 * time.Second

// handleStream pushes the combined board over server-sent events. A
// snapshot goes out immediately, then one every two minutes until the
// client disconnects.
func (a *App) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	a.Metrics.StreamClients.Inc()
	defer a.Metrics.StreamClients.Dec()

	ctx := r.Context()
	if err := a.pushBoard(ctx, w, flusher); err != nil {
		return
	}

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.pushBoard(ctx, w, flusher); err != nil {
				log.Printf("[stream] client dropped: %v", err)
				return
			}
		}
	}
}

func (a *App) pushBoard(ctx context.Context, w http.ResponseWriter, flusher http.Flusher) error {
	b := a.FullBoard(ctx)
	payload, err := json.Marshal(b)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: board\ndata: %s\n\n", payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
