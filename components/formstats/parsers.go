package formstats

import (
	"strconv"

	"go.uber.org/zap"
)

// cycle collects the output of one query cycle before it is committed.
type cycle struct {
	settings  Settings
	page      *Page
	base      Timeline
	plan      *chartPlan
	formNames []string
	logger    *zap.Logger
}

func newCycle(settings Settings, page *Page, base Timeline, logger *zap.Logger) *cycle {
	return &cycle{settings: settings, page: page, base: base, logger: logger}
}

type reportParser func(*cycle, reportReader)

var reportParsers = map[ReportName]reportParser{
	ReportPageViews:        (*cycle).parsePageViews,
	ReportSectionView:      (*cycle).parsePageViews,
	ReportSubmissions:      (*cycle).parseSubmissions,
	ReportUserError:        (*cycle).parseUserErrors,
	ReportAcknowledgements: (*cycle).parseAcknowledgements,
	ReportAllForms:         (*cycle).parseAllForms,
	ReportFieldErrors:      (*cycle).parseFieldErrors,
}

// parse walks reports alongside the descriptors that requested them.
func (c *cycle) parse(descriptors []ReportDescriptor, resp BatchResponse) {
	for i, desc := range descriptors {
		if i >= len(resp.Reports) {
			c.logger.Warn("formstats: report missing from response", zap.String("report", string(desc.Name)))
			continue
		}
		parser, ok := reportParsers[desc.Name]
		if !ok {
			c.parseExtra(desc, resp.Reports[i])
			continue
		}
		parser(c, newReportReader(desc, resp.Reports[i]))
	}
	c.finish()
}

// parseExtra keeps a manifest-added report as a raw table.
func (c *cycle) parseExtra(desc ReportDescriptor, report Report) {
	headers := append(append([]string(nil), desc.Dimensions...), desc.Metrics...)
	if len(report.DimensionHeaders) > 0 || len(report.MetricHeaders) > 0 {
		headers = append(append([]string(nil), report.DimensionHeaders...), report.MetricHeaders...)
	}
	extra := ExtraReport{Name: desc.Name, Headers: headers, Rows: make([][]string, 0, len(report.Rows))}
	for _, row := range report.Rows {
		cells := append([]string(nil), row.Dimensions...)
		if len(row.Metrics) > 0 {
			cells = append(cells, row.Metrics[0]...)
		}
		extra.Rows = append(extra.Rows, cells)
	}
	c.page.Extras = append(c.page.Extras, extra)
	c.logger.Debug("formstats: parsed added report",
		zap.String("report", string(desc.Name)),
		zap.Int("rows", len(extra.Rows)),
	)
}

func (c *cycle) finish() {
	switch c.settings.Query {
	case QuerySectionView:
		c.page.Totals.Submissions = SubmissionsNotApplicable
		c.page.Totals.CompletionRate = CompletionRate(c.page.Totals.Sessions, c.page.Totals.Submissions)
	case QueryPageViews:
		c.page.Totals.CompletionRate = CompletionRate(c.page.Totals.Sessions, c.page.Totals.Submissions)
	}
}

func (c *cycle) parsePageViews(r reportReader) {
	views := c.base.Clone()
	sessions := c.base.Clone()
	records := r.pageViews()
	if len(records) > 0 {
		c.page.ShowStats(TableViews)
	}
	for _, rec := range records {
		c.page.appendRow(TableViews, pageViewRow(rec))
		views.Add(rec.Date, metricValue(rec.PageViews))
		sessions.Add(rec.Date, metricValue(rec.Sessions))
	}
	c.plan = &chartPlan{base: views}
	c.plan.add(SeriesSessions, sessions)
	c.page.ChartVisible = true
	c.page.Totals.PageViews = r.total("ga:pageviews")
	c.page.Totals.Sessions = r.total("ga:sessions")
}

func (c *cycle) parseSubmissions(r reportReader) {
	if r.hasRows() {
		timeline := c.base.Clone()
		for _, rec := range r.submissions() {
			c.page.appendRow(TableSubmissions, submissionRow(rec))
			timeline.Add(rec.Date, metricValue(rec.Events))
		}
		c.plan.add(SeriesSubmissions, timeline)
	}
	c.page.Totals.Submissions = strconv.FormatInt(r.report.RowCount, 10)
}

func (c *cycle) parseUserErrors(r reportReader) {
	if r.hasRows() {
		timeline := c.base.Clone()
		for _, rec := range r.userErrors() {
			c.page.appendRow(TableErrors, errorRow(rec))
			timeline.Add(rec.Date, metricValue(rec.Events))
		}
		c.plan.add(SeriesErrors, timeline)
	}
	c.page.Totals.Errors = r.total("ga:totalEvents")
}

func (c *cycle) parseAcknowledgements(r reportReader) {
	c.page.Totals.LegacySubmissions = r.total("ga:uniquePageviews")
}

func (c *cycle) parseAllForms(r reportReader) {
	records := r.formPaths()
	paths := make([]string, 0, len(records))
	for _, rec := range records {
		paths = append(paths, rec.PathLevel3)
	}
	c.formNames = ExtractFormNames(paths)
	c.page.FormOptions = c.formNames
}

func (c *cycle) parseFieldErrors(r reportReader) {
	for _, rec := range r.fieldErrors() {
		c.page.appendRow(TableFieldErrors, fieldErrorRow(rec))
	}
	c.page.Totals.FieldErrors = r.total("ga:totalEvents")
}
