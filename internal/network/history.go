// Package network - history.go
// Lifecycle history endpoints: the in-memory event feed and per-crew recaps.
package network

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/MRamiBalles/CrewAging/server/internal/domain/calendar"
	"github.com/MRamiBalles/CrewAging/server/internal/events"
	"github.com/MRamiBalles/CrewAging/server/internal/infra/storage"
	"github.com/MRamiBalles/CrewAging/server/internal/platform/logger"
)

// RecapSource produces a readable history of one crew member from durable storage.
type RecapSource interface {
	Recap(ctx context.Context, slot, crewName string) ([]storage.RecapEvent, error)
}

// HistoryHandler serves lifecycle history.
type HistoryHandler struct {
	eventLog *events.EventLog
	recaps   RecapSource
	slot     string
	logger   *logger.Logger
}

// NewHistoryHandler creates a new history handler. recaps may be nil when
// nothing is persisted; recaps then fall back to the in-memory log.
func NewHistoryHandler(el *events.EventLog, recaps RecapSource, slot string, log *logger.Logger) *HistoryHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &HistoryHandler{
		eventLog: el,
		recaps:   recaps,
		slot:     slot,
		logger:   log,
	}
}

// HistoryEvent is an event as served over the API.
type HistoryEvent struct {
	ID        string  `json:"id"`
	Timestamp string  `json:"timestamp"`
	UT        float64 `json:"ut"`
	Date      string  `json:"date"`
	Type      string  `json:"type"`
	Crew      string  `json:"crew,omitempty"`
	Actor     string  `json:"actor"`
	Payload   any     `json:"payload,omitempty"`
}

// HistoryResponse is the API response for the event feed.
type HistoryResponse struct {
	Slot        string         `json:"slot"`
	TotalEvents int            `json:"total_events"`
	GeneratedAt string         `json:"generated_at"`
	Events      []HistoryEvent `json:"events"`
}

// HandleEvents returns the session's lifecycle events.
// GET /api/events?crew=Jeb&type=CREW_DIED&since_ut=1000
func (hh *HistoryHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	crewName := q.Get("crew")
	eventType := q.Get("type")

	var sinceUT float64
	if raw := q.Get("since_ut"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			jsonError(w, "since_ut must be a number", http.StatusBadRequest)
			return
		}
		sinceUT = v
	}

	var source []events.LifecycleEvent
	if crewName != "" {
		source = hh.eventLog.GetByCrew(crewName)
	} else {
		source = hh.eventLog.Replay()
	}

	out := make([]HistoryEvent, 0, len(source))
	for _, e := range source {
		if eventType != "" && string(e.Type) != eventType {
			continue
		}
		if e.UT < sinceUT {
			continue
		}
		out = append(out, toHistoryEvent(e))
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		Slot:        hh.slot,
		TotalEvents: len(out),
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      out,
	})
}

// HandleStats returns per-type event counts.
// GET /api/events/stats
func (hh *HistoryHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	all := hh.eventLog.Replay()
	stats := map[string]int{"total_events": len(all)}
	for _, e := range all {
		stats[string(e.Type)]++
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"generated_at": time.Now().Format(time.RFC3339),
		"stats":        stats,
	})
}

// HandleRecap returns the readable history of one crew member.
// GET /api/records/{name}/history
func (hh *HistoryHandler) HandleRecap(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if hh.recaps == nil {
		recap := make([]storage.RecapEvent, 0)
		for _, e := range hh.eventLog.GetByCrew(name) {
			recap = append(recap, storage.RecapEvent{
				Date:    dateOf(e.UT),
				Type:    string(e.Type),
				Summary: string(e.Type),
			})
		}
		writeJSON(w, http.StatusOK, recap)
		return
	}

	recap, err := hh.recaps.Recap(r.Context(), hh.slot, name)
	if err != nil {
		hh.logger.Error("failed to build recap", "crew", name, "error", err)
		jsonError(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if recap == nil {
		recap = []storage.RecapEvent{}
	}
	writeJSON(w, http.StatusOK, recap)
}

// RegisterRoutes sets up the history routes.
func (hh *HistoryHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/events", hh.HandleEvents).Methods(http.MethodGet)
	r.HandleFunc("/api/events/stats", hh.HandleStats).Methods(http.MethodGet)
	r.HandleFunc("/api/records/{name}/history", hh.HandleRecap).Methods(http.MethodGet)
}

func toHistoryEvent(e events.LifecycleEvent) HistoryEvent {
	return HistoryEvent{
		ID:        e.ID,
		Timestamp: e.Timestamp.Format(time.RFC3339),
		UT:        e.UT,
		Date:      dateOf(e.UT),
		Type:      string(e.Type),
		Crew:      e.CrewName,
		Actor:     e.ActorID,
		Payload:   e.Payload,
	}
}

func dateOf(ut float64) string {
	return calendar.DateOf(max(ut, 0)).String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
