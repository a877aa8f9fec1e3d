package order_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"pos-core/internal/eventbus"
	"pos-core/internal/logger"
)

// SSEHandler streams change notifications to connected terminals. Events
// are refresh hints only; clients re-fetch the entity class that changed.
type SSEHandler struct {
	Logger *logger.Logger
	Bus    *eventbus.Bus
}

func NewSSEHandler(log *logger.Logger, bus *eventbus.Bus) *SSEHandler {
	return &SSEHandler{
		Logger: log,
		Bus:    bus,
	}
}

// HandleEvents streams every bus event to the client until it disconnects.
func (h *SSEHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	h.setupSSEHeaders(w)

	ctx := r.Context()

	// Buffered so a slow client drops hints instead of blocking publishers.
	events := make(chan eventbus.Event, 64)
	sub := h.Bus.Subscribe(func(ev eventbus.Event) {
		select {
		case events <- ev:
		default:
		}
	})
	defer sub.Cancel()

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()

	h.Logger.Info("SSE", "Client connected to change stream")

	for {
		select {
		case ev := <-events:
			jsonData, err := json.Marshal(ev)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize event: %v", err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, jsonData)
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", "Client disconnected from change stream")
			return
		}
	}
}

func (h *SSEHandler) setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
