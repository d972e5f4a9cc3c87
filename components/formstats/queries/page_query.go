package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-formstats/components/formstats"
)

// PageInput identifies the session whose page is requested.
type PageInput struct {
	SessionID string
}

type pageService interface {
	Page(ctx context.Context, sessionID string) (formstats.PageView, error)
}

// PageQuery returns the current page of a session.
type PageQuery struct {
	service pageService
}

// NewPageQuery builds the query.
func NewPageQuery(service pageService) *PageQuery {
	return &PageQuery{service: service}
}

var _ gocommand.Querier[PageInput, formstats.PageView] = (*PageQuery)(nil)

// Query snapshots the session page.
func (q *PageQuery) Query(ctx context.Context, input PageInput) (formstats.PageView, error) {
	return q.service.Page(ctx, input.SessionID)
}

// TemplatesInput filters the template listing by name.
type TemplatesInput struct {
	Names []formstats.ReportName
}

type templateSource interface {
	Templates() []formstats.ReportTemplate
}

// TemplatesQuery lists the report templates known to a builder.
type TemplatesQuery struct {
	source templateSource
}

// NewTemplatesQuery builds the query.
func NewTemplatesQuery(source templateSource) *TemplatesQuery {
	return &TemplatesQuery{source: source}
}

var _ gocommand.Querier[TemplatesInput, []formstats.ReportTemplate] = (*TemplatesQuery)(nil)

// Query returns every template, or only the named ones.
func (q *TemplatesQuery) Query(_ context.Context, input TemplatesInput) ([]formstats.ReportTemplate, error) {
	all := q.source.Templates()
	if len(input.Names) == 0 {
		return all, nil
	}
	wanted := make(map[formstats.ReportName]struct{}, len(input.Names))
	for _, name := range input.Names {
		wanted[name] = struct{}{}
	}
	out := make([]formstats.ReportTemplate, 0, len(input.Names))
	for _, tpl := range all {
		if _, ok := wanted[tpl.Name]; ok {
			out = append(out, tpl)
		}
	}
	return out, nil
}
