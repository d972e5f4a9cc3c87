package formstats

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTransport struct {
	mu         sync.Mutex
	calls      [][]ReportDescriptor
	reports    map[ReportName]Report
	err        error
	blockFirst bool
	started    chan struct{}
}

func (s *stubTransport) BatchGet(ctx context.Context, descriptors []ReportDescriptor) (BatchResponse, error) {
	s.mu.Lock()
	call := len(s.calls)
	s.calls = append(s.calls, descriptors)
	s.mu.Unlock()

	if s.blockFirst && call == 0 {
		if s.started != nil {
			close(s.started)
		}
		<-ctx.Done()
		return BatchResponse{}, ctx.Err()
	}
	if s.err != nil {
		return BatchResponse{}, s.err
	}
	var resp BatchResponse
	for _, desc := range descriptors {
		resp.Reports = append(resp.Reports, s.reports[desc.Name])
	}
	return resp, nil
}

func (s *stubTransport) call(i int) []ReportDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[i]
}

func (s *stubTransport) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubTelemetry struct {
	mu     sync.Mutex
	events []string
}

func (s *stubTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

type recordingHook struct {
	mu     sync.Mutex
	events []CycleEvent
}

func (h *recordingHook) CycleFinished(_ context.Context, event CycleEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

func fixtureReports() map[ReportName]Report {
	return map[ReportName]Report{
		ReportPageViews: {
			DimensionHeaders: []string{"ga:pagePath", "ga:date"},
			MetricHeaders:    []string{"ga:pageviews", "ga:sessions"},
			Rows: []Row{
				{Dimensions: []string{"/submissions/new/apply-licence/your-details", "20181105"}, Metrics: [][]string{{"10", "4"}}},
				{Dimensions: []string{"/submissions/new/apply-licence/declaration", "20181106"}, Metrics: [][]string{{"6", "2"}}},
			},
			Totals:   [][]string{{"16", "6"}},
			RowCount: 2,
		},
		ReportSectionView: {
			DimensionHeaders: []string{"ga:pagePath", "ga:date", "ga:pageTitle"},
			MetricHeaders:    []string{"ga:pageviews", "ga:sessions"},
			Rows: []Row{
				{Dimensions: []string{"/submissions/new/apply-licence/your-details", "20181106", "Your details - Apply for a licence"}, Metrics: [][]string{{"8", "5"}}},
			},
			Totals:   [][]string{{"8", "5"}},
			RowCount: 1,
		},
		ReportSubmissions: {
			DimensionHeaders: []string{"ga:pageTitle", "ga:eventAction", "ga:eventLabel", "ga:date"},
			MetricHeaders:    []string{"ga:totalEvents"},
			Rows: []Row{
				{Dimensions: []string{"Apply for a licence", "submit", "ref-1", "20181106"}, Metrics: [][]string{{"1"}}},
			},
			Totals:   [][]string{{"1"}},
			RowCount: 3,
		},
		ReportUserError: {
			DimensionHeaders: []string{"ga:pageTitle", "ga:eventLabel", "ga:eventAction", "ga:date"},
			MetricHeaders:    []string{"ga:totalEvents"},
			Rows: []Row{
				{Dimensions: []string{"Error: Your details - Apply for a licence", "Enter your name", "name", "20181105"}, Metrics: [][]string{{"2"}}},
			},
			Totals:   [][]string{{"2"}},
			RowCount: 1,
		},
		ReportAcknowledgements: {
			MetricHeaders: []string{"ga:uniquePageviews"},
			Totals:        [][]string{{"5"}},
		},
		ReportAllForms: {
			Rows: []Row{
				{Dimensions: []string{"/apply-licence/"}, Metrics: [][]string{{"30"}}},
				{Dimensions: []string{"/ABCDEF12-test/"}, Metrics: [][]string{{"1"}}},
				{Dimensions: []string{"/renew-permit/"}, Metrics: [][]string{{"4"}}},
			},
		},
		ReportFieldErrors: {
			DimensionHeaders: []string{"ga:eventLabel", "ga:dateHourMinute", "ga:browser", "ga:operatingSystem"},
			MetricHeaders:    []string{"ga:totalEvents"},
			Rows: []Row{
				{Dimensions: []string{"Enter your name", "201811061648", "Chrome", "Windows"}, Metrics: [][]string{{"1"}}},
			},
			Totals: [][]string{{"1"}},
		},
	}
}

func newTestService(transport ReportTransport) (*Service, *stubTelemetry, *recordingHook) {
	telemetry := &stubTelemetry{}
	hook := &recordingHook{}
	svc := NewService(Options{
		Transport: transport,
		Telemetry: telemetry,
		CycleHook: hook,
		Clock:     func() time.Time { return fixedNow },
	})
	return svc, telemetry, hook
}

func TestServiceLoadRendersOverview(t *testing.T) {
	t.Parallel()

	transport := &stubTransport{reports: fixtureReports()}
	svc, telemetry, hook := newTestService(transport)
	session := svc.Sessions().Ensure("")

	err := svc.Load(context.Background(), session.ID, Controls{View: "dev", Period: "7daysAgo"})
	require.NoError(t, err)

	page, err := svc.Page(context.Background(), session.ID)
	require.NoError(t, err)

	assert.False(t, page.Loading)
	assert.Equal(t, "6", page.Totals.Sessions)
	assert.Equal(t, "16", page.Totals.PageViews)
	assert.Equal(t, "3", page.Totals.Submissions)
	assert.Equal(t, "2", page.Totals.Errors)
	assert.Equal(t, "5", page.Totals.LegacySubmissions)
	assert.Equal(t, "50.00%", page.Totals.CompletionRate)
	assert.Equal(t, TableViews, page.ActiveTable)
	assert.Equal(t, []string{"apply-licence", "renew-permit"}, page.FormOptions)
	assert.Equal(t, []string{"apply-licence", "renew-permit"}, session.FormNames())

	rows := map[TableID]int{}
	for _, table := range page.Tables {
		rows[table.ID] = len(table.Rows)
	}
	assert.Equal(t, map[TableID]int{TableViews: 2, TableSubmissions: 1, TableErrors: 1, TableFieldErrors: 0}, rows)

	require.NotNil(t, page.Chart)
	assert.Len(t, page.Chart.Labels, 8)
	require.Len(t, page.Chart.Series, 4)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, 10, 6}, page.Chart.Series[0].Values)
	assert.Equal(t, SeriesSessions, page.Chart.Series[1].Style)
	assert.Equal(t, SeriesSubmissions, page.Chart.Series[2].Style)
	assert.Equal(t, SeriesErrors, page.Chart.Series[3].Style)
	assert.Equal(t, 1, session.Canvas().Live())

	descriptors := transport.call(0)
	require.Len(t, descriptors, 5)
	assert.Equal(t, "155063315", descriptors[0].ViewID)
	assert.Equal(t, ReportAllForms, descriptors[4].Name)

	assert.Equal(t, []string{EventCycleStart, EventCycleComplete}, telemetry.events)
	require.Len(t, hook.events, 1)
	assert.Equal(t, CycleCompleted, hook.events[0].Status)
	assert.Equal(t, session.ID, hook.events[0].SessionID)
}

func TestServiceRunsManifestAddedReports(t *testing.T) {
	t.Parallel()

	reports := fixtureReports()
	reports["bounces"] = Report{
		DimensionHeaders: []string{"ga:pagePath"},
		MetricHeaders:    []string{"ga:bounces"},
		Rows: []Row{
			{Dimensions: []string{"/apply-licence/your-details"}, Metrics: [][]string{{"7"}}},
		},
	}
	transport := &stubTransport{reports: reports}
	svc := NewService(Options{
		Transport: transport,
		Builder: NewQueryBuilder(ReportTemplate{
			Name:       "bounces",
			Metrics:    []string{"ga:bounces"},
			Dimensions: []string{"ga:pagePath"},
			Filters:    []FilterToken{FilterView},
			Queries:    []QueryKind{QueryPageViews},
		}),
		Clock: func() time.Time { return fixedNow },
	})
	session := svc.Sessions().Ensure("")

	require.NoError(t, svc.Load(context.Background(), session.ID, Controls{}))

	descriptors := transport.call(0)
	require.Len(t, descriptors, 6)
	assert.Equal(t, ReportName("bounces"), descriptors[5].Name, "added reports follow the built-ins")

	page, err := svc.Page(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, "16", page.Totals.PageViews, "built-in parsing is unaffected")
	require.Len(t, page.Extras, 1)
	assert.Equal(t, ExtraReport{
		Name:    "bounces",
		Headers: []string{"ga:pagePath", "ga:bounces"},
		Rows:    [][]string{{"/apply-licence/your-details", "7"}},
	}, page.Extras[0])

	require.NoError(t, svc.DrillDownError(context.Background(), session.ID, Controls{}, ErrorTarget{Title: "Error: x - y", Field: "name"}))
	page, err = svc.Page(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Empty(t, page.Extras, "a batch without the report clears it")
}

func TestServiceLoadSkipsAllFormsOnceCached(t *testing.T) {
	t.Parallel()

	transport := &stubTransport{reports: fixtureReports()}
	svc, _, _ := newTestService(transport)
	session := svc.Sessions().Ensure("")

	require.NoError(t, svc.Load(context.Background(), session.ID, Controls{}))
	require.NoError(t, svc.Load(context.Background(), session.ID, Controls{}))

	second := transport.call(1)
	require.Len(t, second, 4)
	for _, desc := range second {
		assert.NotEqual(t, ReportAllForms, desc.Name)
	}
	assert.Equal(t, 1, session.Canvas().Live(), "reloading replaces the chart")

	page, err := svc.Page(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"apply-licence", "renew-permit"}, page.FormOptions)
}

func TestServiceSectionStatsMarksSubmissionsNotApplicable(t *testing.T) {
	t.Parallel()

	transport := &stubTransport{reports: fixtureReports()}
	svc, _, _ := newTestService(transport)
	session := svc.Sessions().Ensure("")

	err := svc.SectionStats(context.Background(), session.ID, Controls{Period: "7daysAgo"}, SectionLink{
		Slug:        "apply-licence",
		SectionSlug: "your-details",
	})
	require.NoError(t, err)

	page, err := svc.Page(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, "N/A", page.Totals.Submissions)
	assert.Equal(t, "0", page.Totals.CompletionRate)
	assert.Equal(t, "5", page.Totals.Sessions)
	assert.Equal(t, "apply-licence/your-details", page.SectionName)
	assert.Equal(t, QuerySectionView, page.Query)

	descriptors := transport.call(0)
	require.Len(t, descriptors, 2)
	assert.Equal(t, ReportSectionView, descriptors[0].Name)
	assert.Equal(t, ReportUserError, descriptors[1].Name)
	assert.Equal(t, "ga:pagePathLevel4", descriptors[0].FilterClauses[0].Filters[1].DimensionName)
}

func TestServiceLoadResetsSectionName(t *testing.T) {
	t.Parallel()

	transport := &stubTransport{reports: fixtureReports()}
	svc, _, _ := newTestService(transport)
	session := svc.Sessions().Ensure("")

	require.NoError(t, svc.SectionStats(context.Background(), session.ID, Controls{Slug: "apply-licence"}, SectionLink{
		Slug:        "apply-licence",
		SectionSlug: "your-details",
	}))
	page, err := svc.Page(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Page: your details", page.SectionName)

	require.NoError(t, svc.Load(context.Background(), session.ID, Controls{}))
	page, err = svc.Page(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, "", page.SectionName)
}

func TestServiceDrillDownError(t *testing.T) {
	t.Parallel()

	transport := &stubTransport{reports: fixtureReports()}
	svc, _, _ := newTestService(transport)
	session := svc.Sessions().Ensure("")
	require.NoError(t, svc.Load(context.Background(), session.ID, Controls{Period: "7daysAgo"}))

	err := svc.DrillDownError(context.Background(), session.ID, Controls{Period: "7daysAgo"}, ErrorTarget{
		Title: "Error: Your details - Apply for a licence",
		Field: "name",
	})
	require.NoError(t, err)

	page, err := svc.Page(context.Background(), session.ID)
	require.NoError(t, err)
	assert.True(t, page.FieldErrorsVisible)
	assert.False(t, page.StatsVisible)
	assert.False(t, page.ChartVisible)
	assert.Nil(t, page.Chart)
	assert.Equal(t, TableFieldErrors, page.ActiveTable)
	assert.Equal(t, "Apply for a licence / Your details / name", page.FieldErrorHeader)
	assert.Equal(t, "1", page.Totals.FieldErrors)

	descriptors := transport.call(1)
	require.Len(t, descriptors, 1)
	assert.Equal(t, ReportFieldErrors, descriptors[0].Name)
	assert.Equal(t, "today", descriptors[0].DateRanges[0].EndDate)
	assert.Equal(t, []DimensionFilter{
		{DimensionName: "ga:eventAction", Operator: "EXACT", Expressions: []string{"name"}},
		{DimensionName: "ga:pageTitle", Operator: "PARTIAL", Expressions: []string{"Error: Your details - Apply for a licence"}},
	}, descriptors[0].FilterClauses[0].Filters)

	for _, table := range page.Tables {
		if table.ID == TableFieldErrors {
			require.Len(t, table.Rows, 1)
			assert.Equal(t, []string{"6 November 2018 16:48"}, table.Rows[0].Cells[0].Lines)
			assert.Equal(t, []string{"Browser: Chrome, OS: Windows"}, table.Rows[0].Cells[1].Detail)
		} else {
			assert.Empty(t, table.Rows, table.ID)
		}
	}
}

func TestServiceTransportFailureLeavesPageLoading(t *testing.T) {
	t.Parallel()

	transport := &stubTransport{err: errors.New("quota exceeded")}
	svc, telemetry, hook := newTestService(transport)
	session := svc.Sessions().Ensure("")

	err := svc.Load(context.Background(), session.ID, Controls{})
	assert.ErrorIs(t, err, ErrReportFailed)

	page, perr := svc.Page(context.Background(), session.ID)
	require.NoError(t, perr)
	assert.True(t, page.Loading)
	assert.Equal(t, TotalLoading, page.Totals.Sessions)
	assert.Equal(t, TotalLoading, page.Totals.CompletionRate)
	assert.Nil(t, page.Chart)

	assert.Equal(t, []string{EventCycleStart, EventCycleFailed}, telemetry.events)
	require.Len(t, hook.events, 1)
	assert.Equal(t, CycleFailed, hook.events[0].Status)
	assert.Contains(t, hook.events[0].Error, "quota exceeded")
}

func TestServiceMissingRowsIsEmptyResult(t *testing.T) {
	t.Parallel()

	reports := fixtureReports()
	reports[ReportSubmissions] = Report{MetricHeaders: []string{"ga:totalEvents"}}
	reports[ReportUserError] = Report{MetricHeaders: []string{"ga:totalEvents"}, Totals: [][]string{{"0"}}}
	transport := &stubTransport{reports: reports}
	svc, _, _ := newTestService(transport)
	session := svc.Sessions().Ensure("")

	require.NoError(t, svc.Load(context.Background(), session.ID, Controls{Period: "7daysAgo"}))
	page, err := svc.Page(context.Background(), session.ID)
	require.NoError(t, err)

	assert.Equal(t, "0", page.Totals.Submissions)
	assert.Equal(t, "0", page.Totals.Errors)
	assert.Equal(t, "0", page.Totals.CompletionRate)
	require.NotNil(t, page.Chart)
	assert.Len(t, page.Chart.Series, 2, "only page views and sessions")
}

func TestServiceUnparsablePeriodGivesEmptyTimeline(t *testing.T) {
	t.Parallel()

	transport := &stubTransport{reports: fixtureReports()}
	svc, _, _ := newTestService(transport)
	session := svc.Sessions().Ensure("")

	require.NoError(t, svc.Load(context.Background(), session.ID, Controls{Period: "lastweek"}))
	assert.Equal(t, "lastweek", transport.call(0)[0].DateRanges[0].StartDate)

	page, err := svc.Page(context.Background(), session.ID)
	require.NoError(t, err)
	require.NotNil(t, page.Chart)
	assert.Empty(t, page.Chart.Labels)
	assert.Equal(t, "16", page.Totals.PageViews)
}

func TestServiceNewLoadCancelsCycleInFlight(t *testing.T) {
	t.Parallel()

	transport := &stubTransport{reports: fixtureReports(), blockFirst: true, started: make(chan struct{})}
	svc, _, hook := newTestService(transport)
	session := svc.Sessions().Ensure("")

	firstErr := make(chan error, 1)
	go func() {
		firstErr <- svc.Load(context.Background(), session.ID, Controls{View: "qa"})
	}()
	<-transport.started

	require.NoError(t, svc.Load(context.Background(), session.ID, Controls{View: "dev", Period: "7daysAgo"}))

	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, ErrCycleCancelled)
	case <-time.After(5 * time.Second):
		t.Fatalf("first load did not return")
	}

	page, err := svc.Page(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, "155063315", page.View.ID)
	assert.Equal(t, "16", page.Totals.PageViews)
	for _, table := range page.Tables {
		if table.ID == TableViews {
			assert.Len(t, table.Rows, 2, "rows from one cycle only")
		}
	}
	assert.Equal(t, 2, transport.callCount())
	assert.Equal(t, 1, session.Canvas().Live())

	hook.mu.Lock()
	defer hook.mu.Unlock()
	statuses := []string{}
	for _, event := range hook.events {
		statuses = append(statuses, event.Status)
	}
	assert.ElementsMatch(t, []string{CycleCompleted, CycleCancelled}, statuses)
}

func TestServiceShowStats(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(&stubTransport{reports: fixtureReports()})
	session := svc.Sessions().Ensure("")

	require.NoError(t, svc.ShowStats(context.Background(), session.ID, TableErrors))
	page, err := svc.Page(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, TableErrors, page.ActiveTable)

	assert.ErrorIs(t, svc.ShowStats(context.Background(), session.ID, "bogus-table"), ErrUnknownTable)
}

func TestServiceUnknownSession(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(&stubTransport{})
	err := svc.Load(context.Background(), "missing", Controls{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Page(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestServiceWithoutTransport(t *testing.T) {
	t.Parallel()

	svc := NewService(Options{})
	session := svc.Sessions().Ensure("")
	assert.ErrorIs(t, svc.Load(context.Background(), session.ID, Controls{}), ErrTransportRequired)
}

func TestServiceSessionStoreReplacesInvalidID(t *testing.T) {
	t.Parallel()

	store := NewSessionStore(ChartOptions{}, DefaultSettings())
	created := store.Ensure("not-a-uuid")
	assert.NotEqual(t, "not-a-uuid", created.ID)
	assert.Same(t, created, store.Ensure(created.ID))
	assert.Equal(t, 1, store.Len())

	store.Delete(created.ID)
	_, ok := store.Get(created.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Prune(time.Minute))
}
