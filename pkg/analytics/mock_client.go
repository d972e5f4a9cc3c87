package analytics

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/goliatone/go-formstats/components/formstats"
)

// MockData seeds deterministic report results keyed by report name.
type MockData map[formstats.ReportName]formstats.Report

// MockClient implements Client using in-memory fixtures.
type MockClient struct {
	data  MockData
	err   error
	calls [][]formstats.ReportDescriptor
	mu    sync.RWMutex
}

// NewMockClient builds a mock client from the provided fixtures.
func NewMockClient(data MockData) *MockClient {
	return &MockClient{data: data}
}

// Fail makes every following BatchGet return err. A nil err restores
// normal replies.
func (c *MockClient) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Calls returns the descriptor batches received so far.
func (c *MockClient) Calls() [][]formstats.ReportDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([][]formstats.ReportDescriptor, len(c.calls))
	copy(out, c.calls)
	return out
}

// BatchGet returns one fixture per descriptor, in descriptor order. Reports
// without a fixture come back empty.
func (c *MockClient) BatchGet(ctx context.Context, descriptors []formstats.ReportDescriptor) (formstats.BatchResponse, error) {
	c.mu.Lock()
	c.calls = append(c.calls, append([]formstats.ReportDescriptor(nil), descriptors...))
	err := c.err
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return formstats.BatchResponse{}, err
	}
	if err != nil {
		return formstats.BatchResponse{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	resp := formstats.BatchResponse{Reports: make([]formstats.Report, 0, len(descriptors))}
	for _, desc := range descriptors {
		resp.Reports = append(resp.Reports, cloneReport(c.data[desc.Name]))
	}
	return resp, nil
}

func cloneReport(report formstats.Report) formstats.Report {
	out := formstats.Report{
		DimensionHeaders: append([]string(nil), report.DimensionHeaders...),
		MetricHeaders:    append([]string(nil), report.MetricHeaders...),
		RowCount:         report.RowCount,
	}
	for _, total := range report.Totals {
		out.Totals = append(out.Totals, append([]string(nil), total...))
	}
	for _, row := range report.Rows {
		cloned := formstats.Row{Dimensions: append([]string(nil), row.Dimensions...)}
		for _, values := range row.Metrics {
			cloned.Metrics = append(cloned.Metrics, append([]string(nil), values...))
		}
		out.Rows = append(out.Rows, cloned)
	}
	return out
}

var demoPages = []string{
	"/submissions/new/apply-licence/your-details",
	"/submissions/new/apply-licence/address",
	"/submissions/new/apply-licence/declaration",
	"/submissions/new/renew-permit/start",
}

// DemoData builds a week of plausible fixtures ending at now, used by the
// mock transport in local demos.
func DemoData(now time.Time) MockData {
	const days = 7
	date := func(offset int) string {
		return now.AddDate(0, 0, -offset).Format(formstats.TimelineKeyLayout)
	}

	views := formstats.Report{
		DimensionHeaders: []string{"ga:pagePath", "ga:date"},
		MetricHeaders:    []string{"ga:pageviews", "ga:sessions"},
	}
	section := formstats.Report{
		DimensionHeaders: []string{"ga:pagePath", "ga:date", "ga:pageTitle"},
		MetricHeaders:    []string{"ga:pageviews", "ga:sessions"},
	}
	var totalViews, totalSessions int
	for offset := 0; offset < days; offset++ {
		for i, page := range demoPages {
			pageViews := 12 + 3*offset + 5*i
			sessions := pageViews/2 + 1
			totalViews += pageViews
			totalSessions += sessions
			views.Rows = append(views.Rows, formstats.Row{
				Dimensions: []string{page, date(offset)},
				Metrics:    [][]string{{strconv.Itoa(pageViews), strconv.Itoa(sessions)}},
			})
			section.Rows = append(section.Rows, formstats.Row{
				Dimensions: []string{page, date(offset), fmt.Sprintf("Step %d - Apply for a licence", i+1)},
				Metrics:    [][]string{{strconv.Itoa(pageViews), strconv.Itoa(sessions)}},
			})
		}
	}
	views.Totals = [][]string{{strconv.Itoa(totalViews), strconv.Itoa(totalSessions)}}
	views.RowCount = int64(len(views.Rows))
	section.Totals = views.Totals
	section.RowCount = views.RowCount

	submissions := formstats.Report{
		DimensionHeaders: []string{"ga:pageTitle", "ga:eventAction", "ga:eventLabel", "ga:date"},
		MetricHeaders:    []string{"ga:totalEvents"},
	}
	for offset := 0; offset < days; offset++ {
		submissions.Rows = append(submissions.Rows, formstats.Row{
			Dimensions: []string{"Declaration - Apply for a licence", "submit", fmt.Sprintf("ref-%03d", offset+1), date(offset)},
			Metrics:    [][]string{{"1"}},
		})
	}
	submissions.RowCount = int64(len(submissions.Rows))
	submissions.Totals = [][]string{{strconv.FormatInt(submissions.RowCount, 10)}}

	userErrors := formstats.Report{
		DimensionHeaders: []string{"ga:pageTitle", "ga:eventLabel", "ga:eventAction", "ga:date"},
		MetricHeaders:    []string{"ga:totalEvents"},
		Rows: []formstats.Row{
			{Dimensions: []string{"Error: Your details - Apply for a licence", "Enter your full name", "name", date(1)}, Metrics: [][]string{{"4"}}},
			{Dimensions: []string{"Error: Address - Apply for a licence", "Enter a valid postcode", "postcode", date(2)}, Metrics: [][]string{{"2"}}},
		},
		Totals:   [][]string{{"6"}},
		RowCount: 2,
	}

	return MockData{
		formstats.ReportPageViews:   views,
		formstats.ReportSectionView: section,
		formstats.ReportSubmissions: submissions,
		formstats.ReportUserError:   userErrors,
		formstats.ReportAcknowledgements: {
			DimensionHeaders: []string{"ga:pagePath", "ga:browser", "ga:date"},
			MetricHeaders:    []string{"ga:uniquePageviews"},
			Rows: []formstats.Row{
				{Dimensions: []string{"/submissions/new/apply-licence/acknowledgement", "Chrome", date(0)}, Metrics: [][]string{{"5"}}},
			},
			Totals:   [][]string{{"5"}},
			RowCount: 1,
		},
		formstats.ReportAllForms: {
			DimensionHeaders: []string{"ga:pagePathLevel3"},
			MetricHeaders:    []string{"ga:pageviews"},
			Rows: []formstats.Row{
				{Dimensions: []string{"/apply-licence/"}, Metrics: [][]string{{"420"}}},
				{Dimensions: []string{"/renew-permit/"}, Metrics: [][]string{{"96"}}},
				{Dimensions: []string{"/ABCDEF12-preview/"}, Metrics: [][]string{{"3"}}},
			},
			RowCount: 3,
		},
		formstats.ReportFieldErrors: {
			DimensionHeaders: []string{"ga:eventLabel", "ga:dateHourMinute", "ga:browser", "ga:operatingSystem"},
			MetricHeaders:    []string{"ga:totalEvents"},
			Rows: []formstats.Row{
				{Dimensions: []string{"Enter your full name", now.Add(-2 * time.Hour).Format("200601021504"), "Chrome", "Windows"}, Metrics: [][]string{{"3"}}},
				{Dimensions: []string{"Enter your full name", now.Add(-26 * time.Hour).Format("200601021504"), "Safari", "iOS"}, Metrics: [][]string{{"1"}}},
			},
			Totals:   [][]string{{"4"}},
			RowCount: 2,
		},
	}
}
