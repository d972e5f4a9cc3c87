package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formstats/components/formstats"
)

const batchReply = `{
  "reports": [{
    "columnHeader": {
      "dimensions": ["ga:pagePath", "ga:date"],
      "metricHeader": {"metricHeaderEntries": [{"name": "ga:pageviews", "type": "INTEGER"}, {"name": "ga:sessions", "type": "INTEGER"}]}
    },
    "data": {
      "rows": [{"dimensions": ["/apply/your-details", "20181106"], "metrics": [{"values": ["7", "3"]}]}],
      "totals": [{"values": ["7", "3"]}],
      "rowCount": 1
    }
  }]
}`

func pageViewsDescriptor() formstats.ReportDescriptor {
	return formstats.ReportDescriptor{
		Name:          formstats.ReportPageViews,
		ViewID:        "176188361",
		SamplingLevel: "LARGE",
		DateRanges:    []formstats.DateRange{{StartDate: "30daysAgo", EndDate: "today"}},
		Metrics:       []string{"ga:pageviews", "ga:sessions"},
		Dimensions:    []string{"ga:pagePath", "ga:date"},
		FilterClauses: []formstats.FilterClause{{
			Filters: []formstats.DimensionFilter{{DimensionName: "ga:pagePath", Operator: "PARTIAL", Expressions: []string{"/apply"}}},
		}},
		OrderBys: []formstats.OrderBy{{FieldName: "ga:pageviews", SortOrder: "DESCENDING"}},
	}
}

type wireRequest struct {
	ReportRequests []struct {
		ViewID                 string `json:"viewId"`
		SamplingLevel          string `json:"samplingLevel"`
		DimensionFilterClauses []struct {
			Filters []struct {
				DimensionName string   `json:"dimensionName"`
				Expressions   []string `json:"expressions"`
			} `json:"filters"`
		} `json:"dimensionFilterClauses"`
		Metrics []struct {
			Expression string `json:"expression"`
		} `json:"metrics"`
	} `json:"reportRequests"`
}

func assertPageViews(t *testing.T, resp formstats.BatchResponse) {
	t.Helper()
	require.Len(t, resp.Reports, 1)
	report := resp.Reports[0]
	assert.Equal(t, []string{"ga:pagePath", "ga:date"}, report.DimensionHeaders)
	assert.Equal(t, []string{"ga:pageviews", "ga:sessions"}, report.MetricHeaders)
	assert.Equal(t, [][]string{{"7", "3"}}, report.Totals)
	assert.EqualValues(t, 1, report.RowCount)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, []string{"/apply/your-details", "20181106"}, report.Rows[0].Dimensions)
	assert.Equal(t, [][]string{{"7", "3"}}, report.Rows[0].Metrics)
}

func TestHTTPClientBatchGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v4/reports:batchGet" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("expected auth header, got %s", got)
		}
		var req wireRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.ReportRequests) != 1 || req.ReportRequests[0].ViewID != "176188361" {
			t.Fatalf("unexpected request: %#v", req)
		}
		if got := req.ReportRequests[0].DimensionFilterClauses[0].Filters[0].Expressions; len(got) != 1 || got[0] != "/apply" {
			t.Fatalf("unexpected filter expressions: %v", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(batchReply))
	}))
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(HTTPConfig{BaseURL: server.URL + "/", APIKey: "secret"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	resp, err := client.BatchGet(context.Background(), []formstats.ReportDescriptor{pageViewsDescriptor()})
	if err != nil {
		t.Fatalf("batch get: %v", err)
	}
	assertPageViews(t, resp)
}

func TestHTTPClientRemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(HTTPConfig{BaseURL: server.URL})
	require.NoError(t, err)
	_, err = client.BatchGet(context.Background(), []formstats.ReportDescriptor{pageViewsDescriptor()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestHTTPClientDefaultsBaseURL(t *testing.T) {
	client, err := NewHTTPClient(HTTPConfig{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, client.baseURL)
}

func TestGoogleClientBatchGet(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/v4/reports:batchGet" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req wireRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.ReportRequests) != 2 {
			t.Fatalf("expected both descriptors in one batch, got %d", len(req.ReportRequests))
		}
		if req.ReportRequests[0].Metrics[1].Expression != "ga:sessions" {
			t.Fatalf("unexpected metrics: %#v", req.ReportRequests[0].Metrics)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(batchReply))
	}))
	t.Cleanup(server.Close)

	ctx := context.Background()
	client, err := NewGoogleClient(ctx, GoogleConfig{
		HTTPClient: server.Client(),
		Endpoint:   server.URL + "/",
	})
	require.NoError(t, err)

	second := pageViewsDescriptor()
	second.Name = formstats.ReportSubmissions
	resp, err := client.BatchGet(ctx, []formstats.ReportDescriptor{pageViewsDescriptor(), second})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assertPageViews(t, resp)
}

func TestGoogleClientRejectsBadCredentials(t *testing.T) {
	_, err := NewGoogleClient(context.Background(), GoogleConfig{CredentialsJSON: []byte("not json")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse credentials")
}

func TestGoogleClientMissingCredentialsFile(t *testing.T) {
	_, err := NewGoogleClient(context.Background(), GoogleConfig{CredentialsFile: t.TempDir() + "/missing.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read credentials")
}

func TestMockClientReturnsFixturesInOrder(t *testing.T) {
	client := NewMockClient(MockData{
		formstats.ReportUserError: {Totals: [][]string{{"2"}}},
		formstats.ReportPageViews: {Totals: [][]string{{"16", "6"}}},
	})
	descriptors := []formstats.ReportDescriptor{
		{Name: formstats.ReportPageViews},
		{Name: formstats.ReportAllForms},
		{Name: formstats.ReportUserError},
	}
	resp, err := client.BatchGet(context.Background(), descriptors)
	require.NoError(t, err)
	require.Len(t, resp.Reports, 3)
	assert.Equal(t, [][]string{{"16", "6"}}, resp.Reports[0].Totals)
	assert.Empty(t, resp.Reports[1].Rows)
	assert.Equal(t, [][]string{{"2"}}, resp.Reports[2].Totals)

	resp.Reports[0].Totals[0][0] = "mutated"
	again, err := client.BatchGet(context.Background(), descriptors[:1])
	require.NoError(t, err)
	assert.Equal(t, "16", again.Reports[0].Totals[0][0])
	assert.Len(t, client.Calls(), 2)
}

func TestMockClientFailure(t *testing.T) {
	client := NewMockClient(nil)
	boom := errors.New("boom")
	client.Fail(boom)
	_, err := client.BatchGet(context.Background(), []formstats.ReportDescriptor{{Name: formstats.ReportPageViews}})
	assert.ErrorIs(t, err, boom)

	client.Fail(nil)
	_, err = client.BatchGet(context.Background(), []formstats.ReportDescriptor{{Name: formstats.ReportPageViews}})
	assert.NoError(t, err)
}

func TestMockClientHonoursCancelledContext(t *testing.T) {
	client := NewMockClient(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.BatchGet(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDemoDataCoversEveryReport(t *testing.T) {
	now := time.Date(2018, 11, 6, 15, 30, 0, 0, time.UTC)
	data := DemoData(now)
	for _, tpl := range formstats.DefaultTemplates() {
		_, ok := data[tpl.Name]
		assert.True(t, ok, "missing fixture for %s", tpl.Name)
	}
	views := data[formstats.ReportPageViews]
	assert.Equal(t, "20181106", views.Rows[0].Dimensions[1])
	assert.EqualValues(t, len(views.Rows), views.RowCount)
}

func TestNewTransport(t *testing.T) {
	ctx := context.Background()

	transport, err := NewTransport(ctx, TransportConfig{Kind: "mock"})
	require.NoError(t, err)
	assert.IsType(t, &MockClient{}, transport)

	transport, err = NewTransport(ctx, TransportConfig{Kind: " HTTP ", Endpoint: "http://proxy.local"})
	require.NoError(t, err)
	require.IsType(t, &HTTPClient{}, transport)
	assert.Equal(t, "http://proxy.local", transport.(*HTTPClient).baseURL)

	_, err = NewTransport(ctx, TransportConfig{Kind: "carrier-pigeon"})
	assert.ErrorIs(t, err, ErrUnknownTransport)
}

