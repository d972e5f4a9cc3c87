package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-formstats/components/formstats"
	"github.com/goliatone/go-formstats/components/formstats/commands"
	"github.com/goliatone/go-formstats/components/formstats/queries"
)

// Executor runs the dashboard actions. go-router and net/http handlers share
// it.
type Executor interface {
	Load(ctx context.Context, input commands.LoadReportsInput) error
	Section(ctx context.Context, input commands.SectionStatsInput) error
	DrillDown(ctx context.Context, input commands.DrillDownErrorInput) error
	ShowStats(ctx context.Context, input commands.ShowStatsInput) error
}

// CommandExecutor adapts go-command commanders to Executor.
type CommandExecutor struct {
	LoadCommand      gocommand.Commander[commands.LoadReportsInput]
	SectionCommand   gocommand.Commander[commands.SectionStatsInput]
	DrillDownCommand gocommand.Commander[commands.DrillDownErrorInput]
	StatsCommand     gocommand.Commander[commands.ShowStatsInput]
}

var errNotConfigured = errors.New("httpapi: command not configured")

func (e CommandExecutor) Load(ctx context.Context, input commands.LoadReportsInput) error {
	if e.LoadCommand == nil {
		return errNotConfigured
	}
	return e.LoadCommand.Execute(ctx, input)
}

func (e CommandExecutor) Section(ctx context.Context, input commands.SectionStatsInput) error {
	if e.SectionCommand == nil {
		return errNotConfigured
	}
	return e.SectionCommand.Execute(ctx, input)
}

func (e CommandExecutor) DrillDown(ctx context.Context, input commands.DrillDownErrorInput) error {
	if e.DrillDownCommand == nil {
		return errNotConfigured
	}
	return e.DrillDownCommand.Execute(ctx, input)
}

func (e CommandExecutor) ShowStats(ctx context.Context, input commands.ShowStatsInput) error {
	if e.StatsCommand == nil {
		return errNotConfigured
	}
	return e.StatsCommand.Execute(ctx, input)
}

// NewExecutor wires the service into the default commands.
func NewExecutor(service *formstats.Service, telemetry commands.Telemetry) CommandExecutor {
	return CommandExecutor{
		LoadCommand:      commands.NewLoadReportsCommand(service, telemetry),
		SectionCommand:   commands.NewSectionStatsCommand(service, telemetry),
		DrillDownCommand: commands.NewDrillDownErrorCommand(service, telemetry),
		StatsCommand:     commands.NewShowStatsCommand(service),
	}
}

// StatusFor maps action errors to HTTP status codes. A failed or superseded
// report batch is not a request error: the page simply stays loading.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, formstats.ErrReportFailed), errors.Is(err, formstats.ErrCycleCancelled):
		return http.StatusAccepted
	case errors.Is(err, formstats.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, formstats.ErrUnknownTable), errors.Is(err, formstats.ErrUnknownQuery):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Handlers exposes HTTP endpoints backed by shared commands.
type Handlers struct {
	Executor Executor
	Page     gocommand.Querier[queries.PageInput, formstats.PageView]
	Events   *formstats.BroadcastHook
}

// Mount registers the JSON actions and the per-session event streams on mux
// under base.
func (h *Handlers) Mount(mux *http.ServeMux, base string) {
	base = strings.TrimSuffix(base, "/")
	mux.HandleFunc("GET "+base+"/analytics/_page", h.HandlePage)
	mux.HandleFunc("POST "+base+"/analytics/load", h.HandleLoad)
	mux.HandleFunc("POST "+base+"/analytics/section", h.HandleSection)
	mux.HandleFunc("POST "+base+"/analytics/errors/drilldown", h.HandleDrillDown)
	mux.HandleFunc("POST "+base+"/analytics/stats", h.HandleShowStats)
	mux.HandleFunc("GET "+base+"/analytics/events", h.HandleEvents)
	mux.HandleFunc("GET "+base+"/analytics/ws", h.HandleWebSocket)
}

// HandleEvents streams the session's cycle events as Server-Sent Events.
func (h *Handlers) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if h.Events == nil {
		http.NotFound(w, r)
		return
	}
	h.Events.ServeSSE(w, r)
}

// HandleWebSocket streams the session's cycle events over a WebSocket.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.Events == nil {
		http.NotFound(w, r)
		return
	}
	h.Events.ServeWebSocket(w, r)
}

func (h *Handlers) HandleLoad(w http.ResponseWriter, r *http.Request) {
	var payload commands.LoadReportsInput
	if !decode(w, r, &payload) {
		return
	}
	h.respond(w, r, payload.SessionID, h.Executor.Load(r.Context(), payload))
}

func (h *Handlers) HandleSection(w http.ResponseWriter, r *http.Request) {
	var payload commands.SectionStatsInput
	if !decode(w, r, &payload) {
		return
	}
	h.respond(w, r, payload.SessionID, h.Executor.Section(r.Context(), payload))
}

func (h *Handlers) HandleDrillDown(w http.ResponseWriter, r *http.Request) {
	var payload commands.DrillDownErrorInput
	if !decode(w, r, &payload) {
		return
	}
	h.respond(w, r, payload.SessionID, h.Executor.DrillDown(r.Context(), payload))
}

func (h *Handlers) HandleShowStats(w http.ResponseWriter, r *http.Request) {
	var payload commands.ShowStatsInput
	if !decode(w, r, &payload) {
		return
	}
	h.respond(w, r, payload.SessionID, h.Executor.ShowStats(r.Context(), payload))
}

func (h *Handlers) HandlePage(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, r.URL.Query().Get("session"), nil)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// respond writes the session page, or the error when the action failed
// outright.
func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, sessionID string, actionErr error) {
	status := StatusFor(actionErr)
	if status >= http.StatusBadRequest {
		http.Error(w, actionErr.Error(), status)
		return
	}
	if h.Page == nil {
		w.WriteHeader(status)
		return
	}
	page, err := h.Page.Query(r.Context(), queries.PageInput{SessionID: sessionID})
	if err != nil {
		http.Error(w, err.Error(), StatusFor(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(page)
}
