package analytics

import (
	"google.golang.org/api/analyticsreporting/v4"

	"github.com/goliatone/go-formstats/components/formstats"
)

func toReportsRequest(descriptors []formstats.ReportDescriptor) *analyticsreporting.GetReportsRequest {
	req := &analyticsreporting.GetReportsRequest{
		ReportRequests: make([]*analyticsreporting.ReportRequest, 0, len(descriptors)),
	}
	for _, desc := range descriptors {
		req.ReportRequests = append(req.ReportRequests, toReportRequest(desc))
	}
	return req
}

func toReportRequest(desc formstats.ReportDescriptor) *analyticsreporting.ReportRequest {
	req := &analyticsreporting.ReportRequest{
		ViewId:        desc.ViewID,
		SamplingLevel: desc.SamplingLevel,
	}
	for _, r := range desc.DateRanges {
		req.DateRanges = append(req.DateRanges, &analyticsreporting.DateRange{StartDate: r.StartDate, EndDate: r.EndDate})
	}
	for _, metric := range desc.Metrics {
		req.Metrics = append(req.Metrics, &analyticsreporting.Metric{Expression: metric})
	}
	for _, dim := range desc.Dimensions {
		req.Dimensions = append(req.Dimensions, &analyticsreporting.Dimension{Name: dim})
	}
	for _, clause := range desc.FilterClauses {
		out := &analyticsreporting.DimensionFilterClause{Operator: clause.Operator}
		for _, f := range clause.Filters {
			out.Filters = append(out.Filters, &analyticsreporting.DimensionFilter{
				DimensionName: f.DimensionName,
				Operator:      f.Operator,
				Expressions:   append([]string(nil), f.Expressions...),
			})
		}
		req.DimensionFilterClauses = append(req.DimensionFilterClauses, out)
	}
	for _, order := range desc.OrderBys {
		req.OrderBys = append(req.OrderBys, &analyticsreporting.OrderBy{FieldName: order.FieldName, SortOrder: order.SortOrder})
	}
	return req
}

func fromReportsResponse(resp *analyticsreporting.GetReportsResponse) formstats.BatchResponse {
	var out formstats.BatchResponse
	if resp == nil {
		return out
	}
	out.Reports = make([]formstats.Report, 0, len(resp.Reports))
	for _, report := range resp.Reports {
		out.Reports = append(out.Reports, fromReport(report))
	}
	return out
}

func fromReport(report *analyticsreporting.Report) formstats.Report {
	var out formstats.Report
	if report == nil {
		return out
	}
	if header := report.ColumnHeader; header != nil {
		out.DimensionHeaders = append([]string(nil), header.Dimensions...)
		if header.MetricHeader != nil {
			for _, entry := range header.MetricHeader.MetricHeaderEntries {
				out.MetricHeaders = append(out.MetricHeaders, entry.Name)
			}
		}
	}
	data := report.Data
	if data == nil {
		return out
	}
	out.RowCount = data.RowCount
	for _, total := range data.Totals {
		out.Totals = append(out.Totals, append([]string(nil), total.Values...))
	}
	for _, row := range data.Rows {
		converted := formstats.Row{Dimensions: append([]string(nil), row.Dimensions...)}
		for _, values := range row.Metrics {
			converted.Metrics = append(converted.Metrics, append([]string(nil), values.Values...))
		}
		out.Rows = append(out.Rows, converted)
	}
	return out
}
