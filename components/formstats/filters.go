package formstats

import "strings"

// Filter operators understood by the reporting API.
const (
	OperatorExact   = "EXACT"
	OperatorPartial = "PARTIAL"
)

// Clause operators.
const (
	ClauseAnd = "AND"
	ClauseOr  = "OR"
)

// DimensionFilter matches one dimension against a set of expressions.
type DimensionFilter struct {
	DimensionName string   `json:"dimensionName"`
	Operator      string   `json:"operator"`
	Expressions   []string `json:"expressions"`
}

// FilterClause groups filters under a logical operator. An empty operator
// leaves the choice to the API.
type FilterClause struct {
	Operator string            `json:"operator,omitempty"`
	Filters  []DimensionFilter `json:"filters"`
}

// FilterToken names a reusable filter set that templates can reference.
type FilterToken string

const (
	FilterView            FilterToken = "view"
	FilterSlug            FilterToken = "slug"
	FilterSubmission      FilterToken = "submission"
	FilterError           FilterToken = "error"
	FilterAcknowledgement FilterToken = "acknowledgement"
	FilterFieldError      FilterToken = "field_error"
)

type filterFunc func(Settings) []DimensionFilter

var filterSets = map[FilterToken]filterFunc{
	FilterView:            viewFilters,
	FilterSlug:            func(s Settings) []DimensionFilter { return []DimensionFilter{slugFilter(s.Slug)} },
	FilterSubmission:      func(Settings) []DimensionFilter { return []DimensionFilter{submissionFilter()} },
	FilterError:           func(Settings) []DimensionFilter { return []DimensionFilter{errorFilter()} },
	FilterAcknowledgement: func(Settings) []DimensionFilter { return []DimensionFilter{acknowledgementFilter()} },
	FilterFieldError:      fieldErrorFilters,
}

// KnownFilterToken reports whether token has a registered filter set.
func KnownFilterToken(token FilterToken) bool {
	_, ok := filterSets[token]
	return ok
}

func partial(dimension, expression string) DimensionFilter {
	return DimensionFilter{DimensionName: dimension, Operator: OperatorPartial, Expressions: []string{expression}}
}

func exact(dimension, expression string) DimensionFilter {
	return DimensionFilter{DimensionName: dimension, Operator: OperatorExact, Expressions: []string{expression}}
}

// slugFilter scopes a report to one form, or to every submission page when
// no form slug is selected.
func slugFilter(slug string) DimensionFilter {
	if slug == "" || slug == "/" {
		return partial("ga:pagePathLevel1", "submissions")
	}
	return partial("ga:pagePathLevel3", slug)
}

func viewFilters(s Settings) []DimensionFilter {
	filters := []DimensionFilter{slugFilter(s.Slug)}
	if s.SectionSlug != "" {
		filters = append(filters, partial("ga:pagePathLevel4", s.SectionSlug))
	}
	return filters
}

func submissionFilter() DimensionFilter {
	return exact("ga:eventCategory", "submission")
}

func errorFilter() DimensionFilter {
	return partial("ga:eventCategory", "error")
}

func acknowledgementFilter() DimensionFilter {
	return partial("ga:pagePathLevel2", "acknowledgement")
}

func fieldErrorFilters(s Settings) []DimensionFilter {
	return []DimensionFilter{
		exact("ga:eventAction", s.ErrorField),
		partial("ga:pageTitle", strings.TrimSpace(s.ErrorTitle)),
	}
}
