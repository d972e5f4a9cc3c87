package gorouter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-formstats/components/formstats"
	"github.com/goliatone/go-formstats/components/formstats/commands"
	"github.com/goliatone/go-formstats/components/formstats/httpapi"
)

// SessionResolver extracts the dashboard session id from a request.
type SessionResolver func(router.Context) string

// Config wires go-router with the formstats controller, actions and hooks.
type Config[T any] struct {
	Router          router.Router[T]
	Controller      *formstats.Controller
	Sessions        *formstats.SessionStore
	API             httpapi.Executor
	Broadcast       *formstats.BroadcastHook
	SessionResolver SessionResolver
	BasePath        string
	Routes          RouteConfig
}

// RouteConfig customizes the relative paths used for analytics endpoints.
type RouteConfig struct {
	HTML      string
	Page      string
	Load      string
	Section   string
	DrillDown string
	Stats     string
	WebSocket string
}

// Register mounts analytics routes (HTML, JSON, actions, WebSocket) on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Controller == nil {
		return errors.New("gorouter: controller is required")
	}
	if cfg.Sessions == nil {
		return errors.New("gorouter: session store is required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = "/admin"
	}
	resolver := cfg.SessionResolver
	if resolver == nil {
		resolver = defaultSessionResolver
	}

	group := cfg.Router.Group(base)

	group.Get(routes.HTML, router.WrapHandler(func(ctx router.Context) error {
		session := cfg.Sessions.Ensure(resolver(ctx))
		if view := strings.TrimSpace(ctx.Query("view")); view != "" {
			session.Preselect(view)
		}
		var buf bytes.Buffer
		if err := cfg.Controller.RenderTemplate(ctx.Context(), session.ID, &buf); err != nil {
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
		return ctx.Send(buf.Bytes())
	}))

	group.Get(routes.Page, router.WrapHandler(func(ctx router.Context) error {
		session := cfg.Sessions.Ensure(resolver(ctx))
		return respondPage(ctx, cfg.Controller, session.ID, http.StatusOK)
	}))

	if cfg.API != nil {
		registerActions(group, cfg, resolver, routes)
	}

	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast, resolver, routes.WebSocket)
	}

	return nil
}

func registerActions[T any](r router.Router[T], cfg Config[T], resolver SessionResolver, routes RouteConfig) {
	api := cfg.API

	r.Post(routes.Load, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.LoadReportsInput
		if err := decodeBody(ctx, &payload); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		payload.SessionID = cfg.Sessions.Ensure(sessionID(payload.SessionID, resolver(ctx))).ID
		payload.Controls = controlsFrom(queryGetter(ctx), payload.Controls)
		return respondAction(ctx, cfg.Controller, payload.SessionID, api.Load(ctx.Context(), payload))
	}))

	r.Post(routes.Section, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.SectionStatsInput
		if err := decodeBody(ctx, &payload); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		payload.SessionID = cfg.Sessions.Ensure(sessionID(payload.SessionID, resolver(ctx))).ID
		payload.Controls = controlsFrom(queryGetter(ctx), payload.Controls)
		return respondAction(ctx, cfg.Controller, payload.SessionID, api.Section(ctx.Context(), payload))
	}))

	r.Post(routes.DrillDown, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.DrillDownErrorInput
		if err := decodeBody(ctx, &payload); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		payload.SessionID = cfg.Sessions.Ensure(sessionID(payload.SessionID, resolver(ctx))).ID
		payload.Controls = controlsFrom(queryGetter(ctx), payload.Controls)
		return respondAction(ctx, cfg.Controller, payload.SessionID, api.DrillDown(ctx.Context(), payload))
	}))

	r.Post(routes.Stats, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.ShowStatsInput
		if err := decodeBody(ctx, &payload); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		payload.SessionID = cfg.Sessions.Ensure(sessionID(payload.SessionID, resolver(ctx))).ID
		return respondAction(ctx, cfg.Controller, payload.SessionID, api.ShowStats(ctx.Context(), payload))
	}))
}

// registerWebSocket streams cycle events for the caller's session only. A
// connection that names no session is closed straight away.
func registerWebSocket[T any](r router.Router[T], hook *formstats.BroadcastHook, resolver SessionResolver, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		id := resolver(ws)
		if id == "" {
			return ws.CloseWithStatus(router.ClosePolicyViolation, formstats.ErrStreamSession.Error())
		}
		err := hook.Stream(ws.Context(), id, func(event formstats.CycleEvent) error {
			return ws.WriteJSON(event)
		})
		if err != nil {
			return err
		}
		return ws.Close()
	})
}

func decodeBody(ctx router.Context, dst any) error {
	body := ctx.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return json.Unmarshal(body, dst)
}

// controlsFrom lets query parameters stand in for selector values the body
// left empty.
func controlsFrom(query func(string) string, controls formstats.Controls) formstats.Controls {
	if controls.View == "" {
		controls.View = strings.TrimSpace(query("view"))
	}
	if controls.Period == "" {
		controls.Period = strings.TrimSpace(query("period"))
	}
	if controls.Slug == "" {
		controls.Slug = strings.TrimSpace(query("slug"))
	}
	if controls.Query == "" {
		controls.Query = formstats.QueryKind(strings.TrimSpace(query("query")))
	}
	return controls
}

func queryGetter(ctx router.Context) func(string) string {
	return func(name string) string { return ctx.Query(name) }
}

func sessionID(fromBody, fromRequest string) string {
	if fromBody != "" {
		return fromBody
	}
	return fromRequest
}

func defaultSessionResolver(ctx router.Context) string {
	if id, ok := ctx.Locals("formstats_session").(string); ok && id != "" {
		return id
	}
	if id := strings.TrimSpace(ctx.Query("session")); id != "" {
		return id
	}
	return strings.TrimSpace(ctx.Header("X-Formstats-Session"))
}

func respondAction(ctx router.Context, controller *formstats.Controller, sessionID string, err error) error {
	status := httpapi.StatusFor(err)
	if status >= http.StatusBadRequest {
		return respondError(ctx, status, err)
	}
	return respondPage(ctx, controller, sessionID, status)
}

func respondPage(ctx router.Context, controller *formstats.Controller, sessionID string, status int) error {
	payload, err := controller.PagePayload(ctx.Context(), sessionID)
	if err != nil {
		return respondError(ctx, httpapi.StatusFor(err), err)
	}
	return ctx.JSON(status, payload["page"])
}

func respondError(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, map[string]string{"error": err.Error()})
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.HTML == "" {
		routes.HTML = "/analytics"
	}
	if routes.Page == "" {
		routes.Page = "/analytics/_page"
	}
	if routes.Load == "" {
		routes.Load = "/analytics/load"
	}
	if routes.Section == "" {
		routes.Section = "/analytics/section"
	}
	if routes.DrillDown == "" {
		routes.DrillDown = "/analytics/errors/drilldown"
	}
	if routes.Stats == "" {
		routes.Stats = "/analytics/stats"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/analytics/ws"
	}
	return routes
}
