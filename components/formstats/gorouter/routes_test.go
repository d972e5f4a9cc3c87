package gorouter

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	router "github.com/goliatone/go-router"
	"github.com/gorilla/websocket"

	"github.com/goliatone/go-formstats/components/formstats"
)

func TestRegisterValidatesConfig(t *testing.T) {
	err := Register(Config[struct{}]{})
	if err == nil {
		t.Fatalf("expected error when router/controller missing")
	}
}

func TestDefaultRouteConfig(t *testing.T) {
	routes := defaultRouteConfig(RouteConfig{Load: "/forms/load"})
	if routes.Load != "/forms/load" {
		t.Fatalf("expected custom load route, got %s", routes.Load)
	}
	want := map[string]string{
		"html":      "/analytics",
		"page":      "/analytics/_page",
		"section":   "/analytics/section",
		"drilldown": "/analytics/errors/drilldown",
		"stats":     "/analytics/stats",
		"ws":        "/analytics/ws",
	}
	got := map[string]string{
		"html":      routes.HTML,
		"page":      routes.Page,
		"section":   routes.Section,
		"drilldown": routes.DrillDown,
		"stats":     routes.Stats,
		"ws":        routes.WebSocket,
	}
	for key, path := range want {
		if got[key] != path {
			t.Fatalf("route %s: expected %s, got %s", key, path, got[key])
		}
	}
}

func TestControlsFromQueryFillsBlanks(t *testing.T) {
	params := map[string]string{"view": "qa", "period": " 7daysAgo ", "slug": "apply-licence", "query": "pageViewQuery"}
	query := func(name string) string { return params[name] }

	controls := controlsFrom(query, formstats.Controls{View: "dev"})
	if controls.View != "dev" {
		t.Fatalf("body value should win, got %s", controls.View)
	}
	if controls.Period != "7daysAgo" || controls.Slug != "apply-licence" {
		t.Fatalf("expected query values, got %#v", controls)
	}
	if controls.Query != formstats.QueryPageViews {
		t.Fatalf("expected page view query, got %s", controls.Query)
	}
}

func TestSessionIDPrefersBody(t *testing.T) {
	if got := sessionID("body", "request"); got != "body" {
		t.Fatalf("expected body id, got %s", got)
	}
	if got := sessionID("", "request"); got != "request" {
		t.Fatalf("expected request id, got %s", got)
	}
}

func mountEvents[T any](r router.Router[T], hook *formstats.BroadcastHook) error {
	return Register(Config[T]{
		Router:     r,
		Controller: formstats.NewController(formstats.ControllerOptions{}),
		Sessions:   formstats.NewSessionStore(formstats.ChartOptions{}, formstats.Settings{}),
		Broadcast:  hook,
	})
}

func TestWebSocketStreamsOnlyOwnSession(t *testing.T) {
	hook := formstats.NewBroadcastHook()
	app := router.NewHTTPServer().(*router.HTTPServer)
	if err := mountEvents(app.Router(), hook); err != nil {
		t.Fatalf("register: %v", err)
	}
	server := httptest.NewServer(app.WrappedRouter())
	defer server.Close()

	wsURL := strings.Replace(server.URL, "http", "ws", 1) + "/admin/analytics/ws?session=mine"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hook.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("stream never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	_ = hook.CycleFinished(context.Background(), formstats.CycleEvent{SessionID: "other", Status: formstats.CycleCompleted})
	_ = hook.CycleFinished(context.Background(), formstats.CycleEvent{SessionID: "mine", Status: formstats.CycleFailed})

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var got formstats.CycleEvent
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if got.SessionID != "mine" || got.Status != formstats.CycleFailed {
		t.Fatalf("expected failed event for mine, got %#v", got)
	}
}

func TestWebSocketWithoutSessionIsClosed(t *testing.T) {
	hook := formstats.NewBroadcastHook()
	app := router.NewHTTPServer().(*router.HTTPServer)
	if err := mountEvents(app.Router(), hook); err != nil {
		t.Fatalf("register: %v", err)
	}
	server := httptest.NewServer(app.WrappedRouter())
	defer server.Close()

	wsURL := strings.Replace(server.URL, "http", "ws", 1) + "/admin/analytics/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
	if hook.Subscribers() != 0 {
		t.Fatalf("expected no subscribers, got %d", hook.Subscribers())
	}
}

func TestHTMLPagePreselectsViewFromQuery(t *testing.T) {
	service := formstats.NewService(formstats.Options{})
	renderer, err := formstats.NewTemplateRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	app := router.NewHTTPServer().(*router.HTTPServer)
	if err := mountPage(app.Router(), service, renderer); err != nil {
		t.Fatalf("register: %v", err)
	}
	server := httptest.NewServer(app.WrappedRouter())
	defer server.Close()

	session := service.Sessions().Ensure("")
	resp, err := http.Get(server.URL + "/admin/analytics?view=qa&session=" + session.ID)
	if err != nil {
		t.Fatalf("get page: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), `value="qa" selected`) {
		t.Fatalf("expected qa to be preselected")
	}
	if got := session.Settings().View.Key; got != formstats.ViewQA {
		t.Fatalf("expected session view qa, got %s", got)
	}
}

func mountPage[T any](r router.Router[T], service *formstats.Service, renderer formstats.Renderer) error {
	return Register(Config[T]{
		Router:     r,
		Controller: formstats.NewController(formstats.ControllerOptions{Service: service, Renderer: renderer}),
		Sessions:   service.Sessions(),
	})
}
