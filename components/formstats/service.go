package formstats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrSessionNotFound is returned for an unknown session id.
	ErrSessionNotFound = errors.New("formstats: session not found")
	// ErrCycleCancelled is returned when a newer cycle replaced this one.
	ErrCycleCancelled = errors.New("formstats: cycle cancelled")
	// ErrUnknownTable is returned when toggling a table that does not exist.
	ErrUnknownTable = errors.New("formstats: unknown stats table")
)

// Options configures the Service. Every collaborator is optional except the
// transport, which fails each cycle with ErrTransportRequired when missing.
type Options struct {
	Transport ReportTransport
	Logger    *zap.Logger
	Telemetry Telemetry
	CycleHook CycleHook
	Builder   *QueryBuilder
	Sessions  *SessionStore
	Defaults  *Settings
	Chart     ChartOptions
	Clock     func() time.Time
}

// Service runs query cycles for dashboard sessions.
type Service struct {
	opts   Options
	client *ReportClient
}

// NewService builds a Service with safe defaults.
func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	if opts.CycleHook == nil {
		opts.CycleHook = noopCycleHook{}
	}
	if opts.Builder == nil {
		opts.Builder = NewQueryBuilder()
	}
	if opts.Defaults == nil {
		defaults := DefaultSettings()
		opts.Defaults = &defaults
	}
	if opts.Sessions == nil {
		opts.Sessions = NewSessionStore(opts.Chart, *opts.Defaults)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{
		opts:   opts,
		client: NewReportClient(opts.Transport, opts.Logger),
	}
}

// Sessions exposes the session store.
func (s *Service) Sessions() *SessionStore {
	return s.opts.Sessions
}

// Defaults returns the built-in settings of this service.
func (s *Service) Defaults() Settings {
	return *s.opts.Defaults
}

// Builder returns the query builder.
func (s *Service) Builder() *QueryBuilder {
	return s.opts.Builder
}

// SectionLink is the payload of a section breakdown link.
type SectionLink struct {
	Query       QueryKind `json:"query"`
	Slug        string    `json:"slug"`
	SectionSlug string    `json:"section_slug"`
}

// ErrorTarget is the payload of a field-error drill-down link.
type ErrorTarget struct {
	Title string `json:"title"`
	Field string `json:"field"`
}

// Load runs the overview cycle for the current selector values.
func (s *Service) Load(ctx context.Context, sessionID string, controls Controls) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}
	settings := s.resolve(session, controls, Overrides{})
	return s.run(ctx, session, settings, func(p *Page, canvas *ChartCanvas) {
		canvas.Destroy()
		p.ChartVisible = false
		p.SectionName = ""
		p.StatsVisible = true
		p.FieldErrorsVisible = false
		p.FieldErrorHeader = ""
		p.startLoading()
	})
}

// SectionStats runs the breakdown for one form section.
func (s *Service) SectionStats(ctx context.Context, sessionID string, controls Controls, link SectionLink) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}
	query := link.Query
	if query == "" {
		query = QuerySectionView
	}
	current := s.resolve(session, controls, Overrides{})
	settings := s.resolve(session, controls, Overrides{
		Query:       query,
		Slug:        link.Slug,
		SectionSlug: link.SectionSlug,
	})
	name := SectionName(current.Slug, link.Slug, link.SectionSlug)
	return s.run(ctx, session, settings, func(p *Page, _ *ChartCanvas) {
		p.SectionName = name
		p.StatsVisible = true
		p.FieldErrorsVisible = false
		p.FieldErrorHeader = ""
		p.startLoading()
	})
}

// DrillDownError lists the occurrences of one field error.
func (s *Service) DrillDownError(ctx context.Context, sessionID string, controls Controls, target ErrorTarget) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}
	settings := s.resolve(session, controls, Overrides{
		Query:      QueryFieldErrors,
		ErrorField: target.Field,
		ErrorTitle: target.Title,
	})
	header := FieldErrorHeader(target.Title, target.Field)
	return s.run(ctx, session, settings, func(p *Page, _ *ChartCanvas) {
		p.startLoading()
		p.ChartVisible = false
		p.StatsVisible = false
		p.FieldErrorsVisible = true
		p.FieldErrorHeader = header
		p.ShowStats(TableFieldErrors)
	})
}

// ShowStats makes one stats table visible.
func (s *Service) ShowStats(_ context.Context, sessionID string, table TableID) error {
	if !KnownTable(table) {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}
	session.showStats(table)
	return nil
}

// Page returns a snapshot of the session page.
func (s *Service) Page(_ context.Context, sessionID string) (PageView, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return PageView{}, err
	}
	view, err := session.Snapshot()
	if err != nil {
		return view, fmt.Errorf("formstats: render chart: %w", err)
	}
	return view, nil
}

func (s *Service) session(id string) (*Session, error) {
	session, ok := s.opts.Sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return session, nil
}

func (s *Service) resolve(session *Session, controls Controls, overrides Overrides) Settings {
	settings := Resolve(*s.opts.Defaults, controls, overrides)
	settings.FormNames = session.FormNames()
	return settings
}

func (s *Service) run(ctx context.Context, session *Session, settings Settings, prepare func(*Page, *ChartCanvas)) error {
	names, err := s.opts.Builder.ReportsFor(settings.Query, settings.FormNames)
	if err != nil {
		return err
	}
	descriptors, err := s.opts.Builder.Build(settings, names)
	if err != nil {
		return err
	}

	now := s.opts.Clock()
	base, err := TimelineForPeriod(settings.StartPeriod, now)
	if err != nil {
		s.opts.Logger.Warn("formstats: period not understood, timeline is empty",
			zap.String("period", settings.StartPeriod),
			zap.Error(err),
		)
	}

	cycleCtx, generation, page := session.begin(ctx, settings, prepare)
	defer session.release(generation)

	payload := map[string]any{
		"session_id": session.ID,
		"query":      string(settings.Query),
		"view_id":    settings.View.ID,
		"reports":    reportNames(descriptors),
	}
	s.opts.Telemetry.Record(ctx, EventCycleStart, payload)

	c := newCycle(settings, page, base, s.opts.Logger)
	err = s.client.Query(cycleCtx, descriptors, func(resp BatchResponse) {
		c.parse(descriptors, resp)
	})
	if err != nil {
		if cycleCtx.Err() != nil {
			s.finish(ctx, session, settings, CycleCancelled, nil, payload)
			return fmt.Errorf("%w: %w", ErrCycleCancelled, err)
		}
		s.finish(ctx, session, settings, CycleFailed, err, payload)
		return err
	}
	if !session.commit(generation, c) {
		s.finish(ctx, session, settings, CycleCancelled, nil, payload)
		return ErrCycleCancelled
	}
	s.finish(ctx, session, settings, CycleCompleted, nil, payload)
	return nil
}

func (s *Service) finish(ctx context.Context, session *Session, settings Settings, status string, cause error, payload map[string]any) {
	event := CycleEvent{
		SessionID: session.ID,
		Query:     settings.Query,
		Status:    status,
		At:        s.opts.Clock(),
	}
	name := EventCycleComplete
	switch status {
	case CycleFailed:
		name = EventCycleFailed
		event.Error = cause.Error()
	case CycleCancelled:
		name = EventCycleCancelled
	}
	s.opts.Telemetry.Record(ctx, name, payload)
	if err := s.opts.CycleHook.CycleFinished(context.WithoutCancel(ctx), event); err != nil {
		s.opts.Logger.Warn("formstats: cycle hook failed", zap.Error(err))
	}
}
