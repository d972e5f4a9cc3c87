package formstats

// BatchResponse holds one report per descriptor, in request order.
type BatchResponse struct {
	Reports []Report `json:"reports"`
}

// Report is the transport-neutral shape of a single report result.
type Report struct {
	DimensionHeaders []string   `json:"dimensionHeaders,omitempty"`
	MetricHeaders    []string   `json:"metricHeaders,omitempty"`
	Rows             []Row      `json:"rows,omitempty"`
	Totals           [][]string `json:"totals,omitempty"`
	RowCount         int64      `json:"rowCount,omitempty"`
}

// Row is a positional wire row: dimension values plus metric values per
// date range.
type Row struct {
	Dimensions []string   `json:"dimensions"`
	Metrics    [][]string `json:"metrics"`
}

// reportReader resolves positional cells by column name. Headers from the
// response win; the descriptor order is the fallback.
type reportReader struct {
	report     Report
	dimensions map[string]int
	metrics    map[string]int
}

func newReportReader(desc ReportDescriptor, report Report) reportReader {
	dims := report.DimensionHeaders
	if len(dims) == 0 {
		dims = desc.Dimensions
	}
	metrics := report.MetricHeaders
	if len(metrics) == 0 {
		metrics = desc.Metrics
	}
	return reportReader{
		report:     report,
		dimensions: indexOf(dims),
		metrics:    indexOf(metrics),
	}
}

func indexOf(names []string) map[string]int {
	out := make(map[string]int, len(names))
	for i, name := range names {
		out[name] = i
	}
	return out
}

func (r reportReader) dimension(row Row, name string) string {
	i, ok := r.dimensions[name]
	if !ok || i >= len(row.Dimensions) {
		return ""
	}
	return row.Dimensions[i]
}

func (r reportReader) metric(row Row, name string) string {
	i, ok := r.metrics[name]
	if !ok || len(row.Metrics) == 0 || i >= len(row.Metrics[0]) {
		return ""
	}
	return row.Metrics[0][i]
}

// total returns the first date-range total for a metric, or "0".
func (r reportReader) total(name string) string {
	i, ok := r.metrics[name]
	if !ok || len(r.report.Totals) == 0 || i >= len(r.report.Totals[0]) {
		return "0"
	}
	return r.report.Totals[0][i]
}

func (r reportReader) hasRows() bool {
	return len(r.report.Rows) > 0
}

// PageViewRecord is a pageViews or sectionView row.
type PageViewRecord struct {
	Path      string
	Date      string
	Title     string
	PageViews string
	Sessions  string
}

// SubmissionRecord is a submission event row.
type SubmissionRecord struct {
	PageTitle string
	Action    string
	Label     string
	Date      string
	Events    string
}

// ErrorRecord is a user error event row. Action holds the field name.
type ErrorRecord struct {
	PageTitle string
	Label     string
	Action    string
	Date      string
	Events    string
}

// AcknowledgementRecord is a legacy acknowledgement page view row.
type AcknowledgementRecord struct {
	Path    string
	Browser string
	Date    string
	Views   string
}

// FieldErrorRecord is a single field-error occurrence.
type FieldErrorRecord struct {
	Label           string
	DateHourMinute  string
	Browser         string
	OperatingSystem string
	Events          string
}

// FormPathRecord is an allForms row.
type FormPathRecord struct {
	PathLevel3 string
	PageViews  string
}

func (r reportReader) pageViews() []PageViewRecord {
	out := make([]PageViewRecord, 0, len(r.report.Rows))
	for _, row := range r.report.Rows {
		out = append(out, PageViewRecord{
			Path:      r.dimension(row, "ga:pagePath"),
			Date:      r.dimension(row, "ga:date"),
			Title:     r.dimension(row, "ga:pageTitle"),
			PageViews: r.metric(row, "ga:pageviews"),
			Sessions:  r.metric(row, "ga:sessions"),
		})
	}
	return out
}

func (r reportReader) submissions() []SubmissionRecord {
	out := make([]SubmissionRecord, 0, len(r.report.Rows))
	for _, row := range r.report.Rows {
		out = append(out, SubmissionRecord{
			PageTitle: r.dimension(row, "ga:pageTitle"),
			Action:    r.dimension(row, "ga:eventAction"),
			Label:     r.dimension(row, "ga:eventLabel"),
			Date:      r.dimension(row, "ga:date"),
			Events:    r.metric(row, "ga:totalEvents"),
		})
	}
	return out
}

func (r reportReader) userErrors() []ErrorRecord {
	out := make([]ErrorRecord, 0, len(r.report.Rows))
	for _, row := range r.report.Rows {
		out = append(out, ErrorRecord{
			PageTitle: r.dimension(row, "ga:pageTitle"),
			Label:     r.dimension(row, "ga:eventLabel"),
			Action:    r.dimension(row, "ga:eventAction"),
			Date:      r.dimension(row, "ga:date"),
			Events:    r.metric(row, "ga:totalEvents"),
		})
	}
	return out
}

func (r reportReader) acknowledgements() []AcknowledgementRecord {
	out := make([]AcknowledgementRecord, 0, len(r.report.Rows))
	for _, row := range r.report.Rows {
		out = append(out, AcknowledgementRecord{
			Path:    r.dimension(row, "ga:pagePath"),
			Browser: r.dimension(row, "ga:browser"),
			Date:    r.dimension(row, "ga:date"),
			Views:   r.metric(row, "ga:uniquePageviews"),
		})
	}
	return out
}

func (r reportReader) fieldErrors() []FieldErrorRecord {
	out := make([]FieldErrorRecord, 0, len(r.report.Rows))
	for _, row := range r.report.Rows {
		out = append(out, FieldErrorRecord{
			Label:           r.dimension(row, "ga:eventLabel"),
			DateHourMinute:  r.dimension(row, "ga:dateHourMinute"),
			Browser:         r.dimension(row, "ga:browser"),
			OperatingSystem: r.dimension(row, "ga:operatingSystem"),
			Events:          r.metric(row, "ga:totalEvents"),
		})
	}
	return out
}

func (r reportReader) formPaths() []FormPathRecord {
	out := make([]FormPathRecord, 0, len(r.report.Rows))
	for _, row := range r.report.Rows {
		out = append(out, FormPathRecord{
			PathLevel3: r.dimension(row, "ga:pagePathLevel3"),
			PageViews:  r.metric(row, "ga:pageviews"),
		})
	}
	return out
}
