package formstats

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the per-viewer context: resolved settings, cached form names,
// the chart canvas and the page being shown.
type Session struct {
	ID string

	mu         sync.Mutex
	settings   Settings
	formNames  []string
	canvas     *ChartCanvas
	page       *Page
	generation uint64
	cancel     context.CancelFunc
	touched    time.Time
	charts     RenderCache
}

func newSession(id string, chart ChartOptions, defaults Settings, charts RenderCache) *Session {
	if charts == nil {
		charts = NewChartCache(0)
	}
	return &Session{
		ID:       id,
		settings: defaults,
		canvas:   NewChartCanvas(chart),
		page:     NewPage(),
		touched:  time.Now(),
		charts:   charts,
	}
}

// Settings returns the settings of the latest cycle, with any preselected
// view applied.
func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// FormNames returns the cached form names.
func (s *Session) FormNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.formNames...)
}

// Canvas returns the session chart canvas.
func (s *Session) Canvas() *ChartCanvas {
	return s.canvas
}

// begin cancels any cycle in flight, applies prepare to the visible page
// and hands back a private copy for the new cycle to fill.
func (s *Session) begin(parent context.Context, settings Settings, prepare func(*Page, *ChartCanvas)) (context.Context, uint64, *Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	s.generation++
	s.cancel = cancel
	s.settings = settings
	s.touched = time.Now()
	if prepare != nil {
		prepare(s.page, s.canvas)
	}
	return ctx, s.generation, s.page.clone()
}

// commit publishes a finished cycle unless a newer one has started.
func (s *Session) commit(generation uint64, c *cycle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		return false
	}
	c.page.Loading = false
	s.page = c.page
	if c.plan != nil {
		c.plan.apply(s.canvas)
	}
	if c.formNames != nil {
		s.formNames = append([]string(nil), c.formNames...)
	}
	return true
}

// release drops the cancel func of a cycle that is still current.
func (s *Session) release(generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation == s.generation && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) showStats(table TableID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()
	s.page.ShowStats(table)
}

// Preselect shows view in the selector before any cycle has run for it.
// Unknown keys are ignored.
func (s *Session) Preselect(key string) bool {
	view, ok := LookupView(key)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.View = view
	s.touched = time.Now()
	return true
}

func (s *Session) touch() {
	s.mu.Lock()
	s.touched = time.Now()
	s.mu.Unlock()
}

// ChartView is the chart part of a page snapshot.
type ChartView struct {
	ElementID string        `json:"id"`
	Labels    []string      `json:"labels"`
	Series    []ChartSeries `json:"series"`
	HTML      string        `json:"html,omitempty"`
}

// PageView is a read-only snapshot of a session page, keyed by the
// element ids the templates use.
type PageView struct {
	SessionID          string        `json:"session_id"`
	View               View          `json:"view"`
	Views              []View        `json:"views"`
	Period             string        `json:"period"`
	Slug               string        `json:"slug"`
	Query              QueryKind     `json:"query"`
	Loading            bool          `json:"loading"`
	SectionName        string        `json:"section-name"`
	StatsVisible       bool          `json:"stats-container"`
	FieldErrorsVisible bool          `json:"field-errors"`
	ChartVisible       bool          `json:"chart-container"`
	ActiveTable        TableID       `json:"active_table,omitempty"`
	FieldErrorHeader   string        `json:"field-error-field"`
	FormOptions        []string      `json:"form-selector"`
	Totals             Totals        `json:"totals"`
	Tables             []Table       `json:"tables"`
	Chart              *ChartView    `json:"pageViewsChart,omitempty"`
	Extras             []ExtraReport `json:"extra-reports,omitempty"`
}

// Snapshot captures the visible page. Chart markup is rendered on demand.
// Reading the page counts as activity for Prune.
func (s *Session) Snapshot() (PageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()
	p := s.page
	view := PageView{
		SessionID:          s.ID,
		View:               s.settings.View,
		Views:              Views(),
		Period:             s.settings.StartPeriod,
		Slug:               s.settings.Slug,
		Query:              s.settings.Query,
		Loading:            p.Loading,
		SectionName:        p.SectionName,
		StatsVisible:       p.StatsVisible,
		FieldErrorsVisible: p.FieldErrorsVisible,
		ChartVisible:       p.ChartVisible,
		ActiveTable:        p.ActiveTable,
		FieldErrorHeader:   p.FieldErrorHeader,
		FormOptions:        append([]string(nil), p.FormOptions...),
		Totals:             p.Totals,
		Tables:             p.Tables(),
		Extras:             append([]ExtraReport(nil), p.Extras...),
	}
	if len(view.FormOptions) == 0 {
		view.FormOptions = append([]string(nil), s.formNames...)
	}
	if chart := s.canvas.Current(); chart != nil && p.ChartVisible {
		html, err := s.charts.Markup(s.ID, s.canvas.Revision(), chart.HTML)
		if err != nil {
			return view, err
		}
		view.Chart = &ChartView{
			ElementID: ChartElementID,
			Labels:    chart.Labels(),
			Series:    chart.Series(),
			HTML:      html,
		}
	}
	return view, nil
}

// SessionStore keeps sessions in memory, keyed by uuid.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	chart    ChartOptions
	defaults Settings
	charts   *ChartCache
}

// NewSessionStore returns an empty store. New sessions start from defaults
// and draw charts with the given options.
func NewSessionStore(chart ChartOptions, defaults Settings) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		chart:    chart,
		defaults: defaults,
		charts:   NewChartCache(DefaultChartCacheTTL),
	}
}

// Get returns the session registered under id.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// Ensure returns the session for id, creating it when missing. Ids that
// are not uuids are replaced by a fresh one.
func (s *SessionStore) Ensure(id string) *Session {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[id]; ok {
		session.touch()
		return session
	}
	session := newSession(id, s.chart, s.defaults, s.charts)
	s.sessions[id] = session
	return session
}

// Delete removes a session and cancels its cycle in flight.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return
	}
	s.charts.Forget(id)
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.cancel != nil {
		session.cancel()
		session.cancel = nil
	}
}

// Len returns the number of sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Prune drops sessions idle for longer than maxIdle. Cycles, page reads,
// table switches and Ensure all count as activity.
func (s *SessionStore) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	var stale []string
	s.mu.RLock()
	for id, session := range s.sessions {
		session.mu.Lock()
		idle := session.touched.Before(cutoff) && session.cancel == nil
		session.mu.Unlock()
		if idle {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()
	for _, id := range stale {
		s.Delete(id)
	}
	s.charts.Sweep()
	return len(stale)
}
