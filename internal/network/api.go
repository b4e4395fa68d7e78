// Package network - api.go
// Operator API over the aging ledger: record queries, roster and clock feeds,
// settings and the debug overrides. Every engine call runs on the ticker's
// worker so it never interleaves with a tick.
package network

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MRamiBalles/CrewAging/server/internal/domain/crew"
	"github.com/MRamiBalles/CrewAging/server/internal/engine"
	"github.com/MRamiBalles/CrewAging/server/internal/ledger"
	"github.com/MRamiBalles/CrewAging/server/internal/platform/logger"
)

// RosterFeed is the host-facing side of the roster.
type RosterFeed interface {
	engine.Roster
	Upsert(member crew.Member) (prev crew.Status, existed bool)
	Delete(name string) bool
}

// ClockSetter accepts UT pushed by the host. Absent when the clock runs on its own.
type ClockSetter interface {
	Set(ut float64)
}

// Freezer edits the suspension set.
type Freezer interface {
	engine.SuspensionSet
	Frozen(ctx context.Context) ([]string, error)
	Freeze(ctx context.Context, name string) error
	Thaw(ctx context.Context, name string) error
}

// APIDeps wires the API to the running server.
type APIDeps struct {
	Ticker   *engine.Ticker
	Roster   RosterFeed
	Clock    ClockSetter // nil rejects clock pushes
	Freezer  Freezer     // nil disables freeze tracking
	History  *HistoryHandler
	Hub      *Hub
	Gatherer prometheus.Gatherer // nil omits /metrics
	Logger   *logger.Logger
}

// API handles operator requests.
type API struct {
	ticker  *engine.Ticker
	roster  RosterFeed
	clock   ClockSetter
	freezer Freezer
	hub     *Hub
	logger  *logger.Logger
}

// NewRouter builds the HTTP surface of the server.
func NewRouter(d APIDeps) *mux.Router {
	log := d.Logger
	if log == nil {
		log = logger.Discard()
	}
	api := &API{
		ticker:  d.Ticker,
		roster:  d.Roster,
		clock:   d.Clock,
		freezer: d.Freezer,
		hub:     d.Hub,
		logger:  log,
	}

	r := mux.NewRouter()
	api.RegisterRoutes(r)
	if d.History != nil {
		d.History.RegisterRoutes(r)
	}
	if d.Hub != nil {
		r.HandleFunc("/ws", api.serveWs)
	}
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// RegisterRoutes sets up the operator routes.
func (a *API) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/records", a.HandleRecords).Methods(http.MethodGet)
	r.HandleFunc("/api/records/{name}", a.HandleRecord).Methods(http.MethodGet)
	r.HandleFunc("/api/roster/{name}", a.HandleRosterPut).Methods(http.MethodPut)
	r.HandleFunc("/api/roster/{name}", a.HandleRosterDelete).Methods(http.MethodDelete)
	r.HandleFunc("/api/clock", a.HandleClock).Methods(http.MethodPut)
	r.HandleFunc("/api/tick", a.HandleTick).Methods(http.MethodPost)
	r.HandleFunc("/api/settings", a.HandleSettings).Methods(http.MethodGet)
	r.HandleFunc("/api/settings/ranges", a.HandleRanges).Methods(http.MethodPut)
	r.HandleFunc("/api/settings/lock", a.HandleLock).Methods(http.MethodPost)
	r.HandleFunc("/api/frozen", a.HandleFrozenList).Methods(http.MethodGet)
	r.HandleFunc("/api/frozen/{name}", a.HandleFreeze).Methods(http.MethodPut, http.MethodDelete)
	r.HandleFunc("/api/debug/{name}/{op}", a.HandleDebug).Methods(http.MethodPost)
}

// RecordView is a ledger record joined with its roster entry for display.
type RecordView struct {
	crew.Record
	Trait     string `json:"trait,omitempty"`
	Placement string `json:"placement,omitempty"`
	Status    string `json:"status,omitempty"`
	Frozen    bool   `json:"frozen"`
	YearsLeft *int   `json:"years_left,omitempty"` // nil for the dead and the immortal
	Born      string `json:"born"`
	Died      string `json:"died,omitempty"`
}

// RecordsResponse is the API response for a ledger query.
type RecordsResponse struct {
	UT      float64      `json:"ut"`
	Date    string       `json:"date"`
	Sort    string       `json:"sort"`
	Alive   int          `json:"alive"`
	Dead    int          `json:"dead"`
	Records []RecordView `json:"records"`
}

// HandleRecords returns the filtered, sorted ledger.
// GET /api/records?state=alive&sort=youngest&q=jeb&trait=Pilot&placement=Kerbal+X&frozen=true
func (a *API) HandleRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := ledger.SortMode(q.Get("sort"))
	if mode == "" {
		mode = ledger.SortOldestFirst
	}

	preds := []ledger.Predicate{ledger.NameContains(q.Get("q"))}
	switch q.Get("state") {
	case "", "all":
	case "alive":
		preds = append(preds, ledger.Alive())
	case "dead":
		preds = append(preds, ledger.Dead())
	default:
		jsonError(w, "state must be alive, dead or all", http.StatusBadRequest)
		return
	}

	members, err := a.members(r.Context())
	if err != nil {
		a.logger.Error("failed to read roster", "error", err)
		jsonError(w, "roster unavailable", http.StatusServiceUnavailable)
		return
	}
	frozen := a.frozenSet(r.Context())

	trait, placement := q.Get("trait"), q.Get("placement")
	if trait != "" || placement != "" || q.Get("frozen") != "" {
		wantFrozen := q.Get("frozen") == "true"
		names := make(map[string]bool)
		for name, m := range members {
			if trait != "" && !strings.EqualFold(m.Trait, trait) {
				continue
			}
			if placement != "" && m.Placement != placement {
				continue
			}
			if q.Get("frozen") != "" && frozen[name] != wantFrozen {
				continue
			}
			names[name] = true
		}
		preds = append(preds, ledger.NameIn(names))
	}

	var resp RecordsResponse
	var records []crew.Record
	err = a.ticker.Do(r.Context(), func(e *engine.Engine) {
		records = e.Records(mode.Comparator(), preds...)
		resp.UT = e.Now()
		resp.Alive, resp.Dead = e.Counts()
	})
	if err != nil {
		jsonError(w, "request cancelled", http.StatusServiceUnavailable)
		return
	}

	resp.Date = dateOf(resp.UT)
	resp.Sort = mode.Label()
	resp.Records = make([]RecordView, 0, len(records))
	for _, rec := range records {
		resp.Records = append(resp.Records, toRecordView(rec, members[rec.Name], frozen[rec.Name]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleRecord returns one record.
// GET /api/records/{name}
func (a *API) HandleRecord(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var rec crew.Record
	var ok bool
	if err := a.ticker.Do(r.Context(), func(e *engine.Engine) { rec, ok = e.Record(name) }); err != nil {
		jsonError(w, "request cancelled", http.StatusServiceUnavailable)
		return
	}
	if !ok {
		jsonError(w, "crew member is not tracked", http.StatusNotFound)
		return
	}

	member, _, err := a.roster.Lookup(r.Context(), name)
	if err != nil {
		a.logger.Warn("roster lookup failed", "crew", name, "error", err)
	}
	writeJSON(w, http.StatusOK, toRecordView(rec, member, a.frozenSet(r.Context())[name]))
}

// RosterRequest is the host's description of one roster entry.
type RosterRequest struct {
	Trait     string `json:"trait"`
	Category  string `json:"category"`
	Status    string `json:"status"`
	Placement string `json:"placement"`
}

// HandleRosterPut adds or updates a roster entry. A change to Dead is
// forwarded to the engine at once so the death time is recorded.
// PUT /api/roster/{name}
func (a *API) HandleRosterPut(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req RosterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	category, ok := crew.ParseCategory(req.Category)
	if !ok {
		jsonError(w, "unknown category "+req.Category, http.StatusBadRequest)
		return
	}
	status := crew.StatusAvailable
	if req.Status != "" {
		if status, ok = crew.ParseStatus(req.Status); !ok {
			jsonError(w, "unknown status "+req.Status, http.StatusBadRequest)
			return
		}
	}

	prev, existed := a.roster.Upsert(crew.Member{
		Name:      name,
		Trait:     req.Trait,
		Category:  category,
		Status:    status,
		Placement: req.Placement,
	})
	if existed && prev != status {
		err := a.ticker.Do(r.Context(), func(e *engine.Engine) {
			e.OnExternalStatusChanged(r.Context(), name, prev, status)
		})
		if err != nil {
			jsonError(w, "request cancelled", http.StatusServiceUnavailable)
			return
		}
	}

	a.logger.Debug("roster entry updated", "crew", name, "status", status, "existed", existed)
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "status": status, "created": !existed})
}

// HandleRosterDelete drops a roster entry. The ledger keeps its record.
// DELETE /api/roster/{name}
func (a *API) HandleRosterDelete(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !a.roster.Delete(name) {
		jsonError(w, "not on the roster", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClockRequest carries the host's universal time.
type ClockRequest struct {
	UT float64 `json:"ut"`
}

// HandleClock accepts a UT push from the host.
// PUT /api/clock
func (a *API) HandleClock(w http.ResponseWriter, r *http.Request) {
	if a.clock == nil {
		jsonError(w, "clock is not host driven", http.StatusConflict)
		return
	}
	var req ClockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	a.clock.Set(req.UT)
	writeJSON(w, http.StatusOK, map[string]any{"ut": req.UT, "date": dateOf(req.UT)})
}

// HandleTick runs one tick now instead of waiting for the cadence.
// POST /api/tick
func (a *API) HandleTick(w http.ResponseWriter, r *http.Request) {
	if err := a.ticker.TickNow(r.Context()); err != nil {
		jsonError(w, "request cancelled", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSettings returns the aging settings.
// GET /api/settings
func (a *API) HandleSettings(w http.ResponseWriter, r *http.Request) {
	var s engine.Settings
	if err := a.ticker.Do(r.Context(), func(e *engine.Engine) { s = e.Settings() }); err != nil {
		jsonError(w, "request cancelled", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HandleRanges applies new sampling ranges and resamples living lifespans.
// PUT /api/settings/ranges
func (a *API) HandleRanges(w http.ResponseWriter, r *http.Request) {
	var in crew.RangeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var rejected []string
	var s engine.Settings
	var applyErr error
	err := a.ticker.Do(r.Context(), func(e *engine.Engine) {
		rejected, applyErr = e.ApplyAgingRange(r.Context(), in)
		s = e.Settings()
	})
	if err != nil {
		jsonError(w, "request cancelled", http.StatusServiceUnavailable)
		return
	}
	if applyErr != nil {
		a.engineError(w, applyErr)
		return
	}
	if rejected == nil {
		rejected = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": s, "rejected": rejected})
}

// HandleLock permanently locks the settings.
// POST /api/settings/lock
func (a *API) HandleLock(w http.ResponseWriter, r *http.Request) {
	var s engine.Settings
	err := a.ticker.Do(r.Context(), func(e *engine.Engine) {
		e.LockSettings()
		s = e.Settings()
	})
	if err != nil {
		jsonError(w, "request cancelled", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HandleFrozenList returns the suspended crew.
// GET /api/frozen
func (a *API) HandleFrozenList(w http.ResponseWriter, r *http.Request) {
	if a.freezer == nil {
		writeJSON(w, http.StatusOK, []string{})
		return
	}
	names, err := a.freezer.Frozen(r.Context())
	if err != nil {
		a.logger.Error("failed to read frozen set", "error", err)
		jsonError(w, "frozen set unavailable", http.StatusServiceUnavailable)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

// HandleFreeze suspends (PUT) or releases (DELETE) a crew member.
// PUT|DELETE /api/frozen/{name}
func (a *API) HandleFreeze(w http.ResponseWriter, r *http.Request) {
	if a.freezer == nil {
		jsonError(w, "freeze tracking is disabled", http.StatusConflict)
		return
	}
	name := mux.Vars(r)["name"]
	var err error
	if r.Method == http.MethodPut {
		err = a.freezer.Freeze(r.Context(), name)
	} else {
		err = a.freezer.Thaw(r.Context(), name)
	}
	if err != nil {
		a.logger.Error("failed to update frozen set", "crew", name, "error", err)
		jsonError(w, "frozen set unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DebugRequest carries the argument of a debug override.
type DebugRequest struct {
	Age   int  `json:"age"`
	Years int  `json:"years"`
	Value bool `json:"value"`
}

// HandleDebug applies a manual override to a living record.
// POST /api/debug/{name}/{age|rollback|blessed|immortal}
func (a *API) HandleDebug(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, op := vars["name"], vars["op"]

	var req DebugRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var apply func(e *engine.Engine) error
	switch op {
	case "age":
		apply = func(e *engine.Engine) error { return e.SetAge(r.Context(), name, req.Age) }
	case "rollback":
		apply = func(e *engine.Engine) error { return e.RollBackAge(r.Context(), name, req.Years) }
	case "blessed":
		apply = func(e *engine.Engine) error { return e.SetBlessed(r.Context(), name, req.Value) }
	case "immortal":
		apply = func(e *engine.Engine) error { return e.SetImmortal(r.Context(), name, req.Value) }
	default:
		jsonError(w, "unknown override "+op, http.StatusNotFound)
		return
	}

	var rec crew.Record
	var applyErr error
	err := a.ticker.Do(r.Context(), func(e *engine.Engine) {
		if applyErr = apply(e); applyErr == nil {
			rec, _ = e.Record(name)
		}
	})
	if err != nil {
		jsonError(w, "request cancelled", http.StatusServiceUnavailable)
		return
	}
	if applyErr != nil {
		a.engineError(w, applyErr)
		return
	}

	a.logger.Event("DEBUG_OVERRIDE", name, op)
	writeJSON(w, http.StatusOK, toRecordView(rec, crew.Member{}, false))
}

func (a *API) engineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrUnknownCrew):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrNotAlive), errors.Is(err, engine.ErrSettingsLocked):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, engine.ErrInvalidYears):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		a.logger.Error("engine request failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func (a *API) members(ctx context.Context) (map[string]crew.Member, error) {
	list, err := a.roster.Crew(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]crew.Member, len(list))
	for _, m := range list {
		out[m.Name] = m
	}
	return out, nil
}

// frozenSet is best effort; an unreachable set reads as nobody frozen.
func (a *API) frozenSet(ctx context.Context) map[string]bool {
	out := make(map[string]bool)
	if a.freezer == nil {
		return out
	}
	names, err := a.freezer.Frozen(ctx)
	if err != nil {
		a.logger.Warn("failed to read frozen set", "error", err)
		return out
	}
	for _, n := range names {
		out[n] = true
	}
	return out
}

func toRecordView(rec crew.Record, m crew.Member, frozen bool) RecordView {
	v := RecordView{
		Record:    rec,
		Trait:     m.Trait,
		Placement: m.Placement,
		Status:    string(m.Status),
		Frozen:    frozen,
		Born:      rec.BirthString(),
	}
	if rec.Alive && !rec.Immortal {
		left := rec.YearsLeft()
		v.YearsLeft = &left
	}
	if !rec.Alive {
		v.Died = rec.DeathString()
	}
	return v
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboards are served from other origins
	},
}

// serveWs handles websocket requests from the peer.
func (a *API) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Error("failed to upgrade websocket connection", "error", err)
		return
	}

	client := NewClient(a.hub, conn)
	client.Register()

	go client.WritePump()
	go client.ReadPump()
}
