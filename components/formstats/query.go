package formstats

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ReportName identifies a report template.
type ReportName string

const (
	ReportPageViews        ReportName = "pageViews"
	ReportSectionView      ReportName = "sectionView"
	ReportSubmissions      ReportName = "submissions"
	ReportUserError        ReportName = "userError"
	ReportAcknowledgements ReportName = "acknowledgementPageViews"
	ReportAllForms         ReportName = "allForms"
	ReportFieldErrors      ReportName = "fieldErrors"
)

// Sort orders.
const (
	SortAscending  = "ASCENDING"
	SortDescending = "DESCENDING"
)

var (
	// ErrUnknownReport is returned when a requested report has no template.
	ErrUnknownReport = errors.New("formstats: unknown report")
	// ErrUnknownQuery is returned for a query kind without a report batch.
	ErrUnknownQuery = errors.New("formstats: unknown query")
)

// DateRange is an inclusive period expressed in API date syntax.
type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// OrderBy sorts report rows by a field.
type OrderBy struct {
	FieldName string `json:"fieldName"`
	SortOrder string `json:"sortOrder,omitempty"`
}

// ReportDescriptor is one report request inside a batch.
type ReportDescriptor struct {
	Name          ReportName     `json:"name"`
	ViewID        string         `json:"viewId"`
	SamplingLevel string         `json:"samplingLevel"`
	DateRanges    []DateRange    `json:"dateRanges"`
	Metrics       []string       `json:"metrics"`
	FilterClauses []FilterClause `json:"dimensionFilterClauses,omitempty"`
	Dimensions    []string       `json:"dimensions,omitempty"`
	OrderBys      []OrderBy      `json:"orderBys,omitempty"`
}

// ReportTemplate describes the report-specific half of a descriptor.
type ReportTemplate struct {
	Name           ReportName
	Metrics        []string
	Dimensions     []string
	Filters        []FilterToken
	ClauseOperator string
	OrderBys       []OrderBy
	// EndDate pins the end of the range regardless of the settings.
	EndDate string
	// Queries lists the batches an added report joins. Built-in reports
	// ignore it.
	Queries []QueryKind
}

func descending(field string) []OrderBy {
	return []OrderBy{{FieldName: field, SortOrder: SortDescending}}
}

// DefaultTemplates returns the built-in report templates.
func DefaultTemplates() []ReportTemplate {
	return []ReportTemplate{
		{
			Name:       ReportPageViews,
			Metrics:    []string{"ga:pageviews", "ga:sessions"},
			Dimensions: []string{"ga:pagePath", "ga:date"},
			Filters:    []FilterToken{FilterView},
			OrderBys:   descending("ga:pageviews"),
		},
		{
			Name:           ReportSectionView,
			Metrics:        []string{"ga:pageviews", "ga:sessions"},
			Dimensions:     []string{"ga:pagePath", "ga:date", "ga:pageTitle"},
			Filters:        []FilterToken{FilterView},
			ClauseOperator: ClauseAnd,
			OrderBys:       descending("ga:pageviews"),
		},
		{
			Name:           ReportSubmissions,
			Metrics:        []string{"ga:totalEvents"},
			Dimensions:     []string{"ga:pageTitle", "ga:eventAction", "ga:eventLabel", "ga:date"},
			Filters:        []FilterToken{FilterView, FilterSubmission},
			ClauseOperator: ClauseAnd,
		},
		{
			Name:           ReportUserError,
			Metrics:        []string{"ga:totalEvents"},
			Dimensions:     []string{"ga:pageTitle", "ga:eventLabel", "ga:eventAction", "ga:date"},
			Filters:        []FilterToken{FilterView, FilterError},
			ClauseOperator: ClauseAnd,
			OrderBys:       descending("ga:totalEvents"),
		},
		{
			Name:           ReportAcknowledgements,
			Metrics:        []string{"ga:uniquePageviews"},
			Dimensions:     []string{"ga:pagePath", "ga:browser", "ga:date"},
			Filters:        []FilterToken{FilterSlug, FilterAcknowledgement},
			ClauseOperator: ClauseAnd,
			OrderBys:       descending("ga:uniquePageviews"),
		},
		{
			Name:       ReportAllForms,
			Metrics:    []string{"ga:pageviews"},
			Dimensions: []string{"ga:pagePathLevel3"},
		},
		{
			Name:           ReportFieldErrors,
			Metrics:        []string{"ga:totalEvents"},
			Dimensions:     []string{"ga:eventLabel", "ga:dateHourMinute", "ga:browser", "ga:operatingSystem"},
			Filters:        []FilterToken{FilterFieldError},
			ClauseOperator: ClauseAnd,
			OrderBys:       descending("ga:totalEvents"),
			EndDate:        "today",
		},
	}
}

// QueryBuilder turns settings and report names into descriptors.
type QueryBuilder struct {
	templates map[ReportName]ReportTemplate
	extras    []ReportName
}

// NewQueryBuilder registers the built-in templates followed by extra ones.
// Extra templates replace built-ins that share their name.
func NewQueryBuilder(extra ...ReportTemplate) *QueryBuilder {
	b := &QueryBuilder{templates: make(map[ReportName]ReportTemplate)}
	for _, tpl := range DefaultTemplates() {
		b.templates[tpl.Name] = tpl
	}
	for _, tpl := range extra {
		if _, builtin := b.templates[tpl.Name]; !builtin && !slices.Contains(b.extras, tpl.Name) {
			b.extras = append(b.extras, tpl.Name)
		}
		b.templates[tpl.Name] = tpl
	}
	return b
}

// IsBuiltinReport reports whether name is one of the default templates.
func IsBuiltinReport(name ReportName) bool {
	for _, tpl := range DefaultTemplates() {
		if tpl.Name == name {
			return true
		}
	}
	return false
}

// ReportsFor is the package ReportsFor plus every added template that joins
// kind, appended in registration order after the built-in reports.
func (b *QueryBuilder) ReportsFor(kind QueryKind, cachedFormNames []string) ([]ReportName, error) {
	names, err := ReportsFor(kind, cachedFormNames)
	if err != nil {
		return nil, err
	}
	for _, name := range b.extras {
		if slices.Contains(b.templates[name].Queries, kind) {
			names = append(names, name)
		}
	}
	return names, nil
}

// Template returns the template registered under name.
func (b *QueryBuilder) Template(name ReportName) (ReportTemplate, bool) {
	tpl, ok := b.templates[name]
	return tpl, ok
}

// Templates lists registered templates sorted by name.
func (b *QueryBuilder) Templates() []ReportTemplate {
	out := make([]ReportTemplate, 0, len(b.templates))
	for _, tpl := range b.templates {
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Build returns one descriptor per name, in the order given.
func (b *QueryBuilder) Build(settings Settings, names []ReportName) ([]ReportDescriptor, error) {
	out := make([]ReportDescriptor, 0, len(names))
	for _, name := range names {
		tpl, ok := b.templates[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownReport, name)
		}
		out = append(out, buildDescriptor(settings, tpl))
	}
	return out, nil
}

// ReportsFor lists the reports a query kind runs. allForms is only added
// while no form names are cached.
func ReportsFor(kind QueryKind, cachedFormNames []string) ([]ReportName, error) {
	switch kind {
	case QueryPageViews:
		names := []ReportName{ReportPageViews, ReportSubmissions, ReportUserError, ReportAcknowledgements}
		if len(cachedFormNames) == 0 {
			names = append(names, ReportAllForms)
		}
		return names, nil
	case QuerySectionView:
		return []ReportName{ReportSectionView, ReportUserError}, nil
	case QueryFieldErrors:
		return []ReportName{ReportFieldErrors}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownQuery, kind)
	}
}

var defaultBuilder = NewQueryBuilder()

// BuildReportRequests builds descriptors from the built-in templates.
func BuildReportRequests(settings Settings, names []ReportName) ([]ReportDescriptor, error) {
	return defaultBuilder.Build(settings, names)
}

func buildDescriptor(settings Settings, tpl ReportTemplate) ReportDescriptor {
	endDate := settings.EndPeriod
	if tpl.EndDate != "" {
		endDate = tpl.EndDate
	}
	desc := ReportDescriptor{
		Name:          tpl.Name,
		ViewID:        settings.View.ID,
		SamplingLevel: settings.SamplingLevel,
		DateRanges:    []DateRange{{StartDate: settings.StartPeriod, EndDate: endDate}},
		Metrics:       append([]string(nil), tpl.Metrics...),
		Dimensions:    append([]string(nil), tpl.Dimensions...),
		OrderBys:      append([]OrderBy(nil), tpl.OrderBys...),
	}

	var filters []DimensionFilter
	for _, token := range tpl.Filters {
		if fn, ok := filterSets[token]; ok {
			filters = append(filters, fn(settings)...)
		}
	}
	if len(filters) > 0 {
		desc.FilterClauses = []FilterClause{{Operator: tpl.ClauseOperator, Filters: filters}}
	}
	return desc
}
