package formstats

import (
	"dario.cat/mergo"
)

// QueryKind selects the batch of reports a load cycle runs.
type QueryKind string

const (
	// QueryPageViews loads the form overview reports.
	QueryPageViews QueryKind = "pageViewQuery"
	// QuerySectionView loads the per-section breakdown.
	QuerySectionView QueryKind = "sectionViewQuery"
	// QueryFieldErrors loads the drill-down for a single field error.
	QueryFieldErrors QueryKind = "fieldErrorQuery"
)

// QueryKinds lists every query kind in menu order.
func QueryKinds() []QueryKind {
	return []QueryKind{QueryPageViews, QuerySectionView, QueryFieldErrors}
}

// DefaultSamplingLevel is sent with every report request.
const DefaultSamplingLevel = "LARGE"

// Settings is the resolved configuration for one query cycle.
type Settings struct {
	View          View      `json:"view"`
	StartPeriod   string    `json:"start_period"`
	EndPeriod     string    `json:"end_period"`
	Slug          string    `json:"slug"`
	SectionSlug   string    `json:"section_slug"`
	Query         QueryKind `json:"query"`
	SamplingLevel string    `json:"sampling_level"`
	FormNames     []string  `json:"form_names,omitempty"`

	// ErrorField and ErrorTitle scope the field-error drill-down.
	ErrorField string `json:"error_field,omitempty"`
	ErrorTitle string `json:"error_title,omitempty"`
}

// Controls carries the raw values read from the dashboard selectors.
type Controls struct {
	View   string    `json:"view"`
	Period string    `json:"period"`
	Slug   string    `json:"slug"`
	Query  QueryKind `json:"query"`
}

// Overrides are explicit caller values that win over controls and defaults.
type Overrides struct {
	View        string    `json:"view"`
	StartPeriod string    `json:"start_period"`
	EndPeriod   string    `json:"end_period"`
	Slug        string    `json:"slug"`
	SectionSlug string    `json:"section_slug"`
	Query       QueryKind `json:"query"`
	ErrorField  string    `json:"error_field"`
	ErrorTitle  string    `json:"error_title"`
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	view, _ := LookupView(ViewProduction)
	return Settings{
		View:          view,
		StartPeriod:   "30daysAgo",
		EndPeriod:     "today",
		Slug:          "/",
		Query:         QueryPageViews,
		SamplingLevel: DefaultSamplingLevel,
	}
}

// Resolve merges defaults, selector controls and overrides in increasing
// precedence. Values are not validated: a malformed period travels as-is.
// An unknown view key resolves to nothing, so the default view stays.
func Resolve(defaults Settings, controls Controls, overrides Overrides) Settings {
	out := defaults
	out.FormNames = append([]string(nil), defaults.FormNames...)

	fromControls := Settings{
		StartPeriod: controls.Period,
		Slug:        controls.Slug,
		Query:       controls.Query,
	}
	if view, ok := LookupView(controls.View); ok {
		fromControls.View = view
	}

	fromOverrides := Settings{
		StartPeriod: overrides.StartPeriod,
		EndPeriod:   overrides.EndPeriod,
		Slug:        overrides.Slug,
		SectionSlug: overrides.SectionSlug,
		Query:       overrides.Query,
		ErrorField:  overrides.ErrorField,
		ErrorTitle:  overrides.ErrorTitle,
	}
	if view, ok := LookupView(overrides.View); ok {
		fromOverrides.View = view
	}

	for _, layer := range []Settings{fromControls, fromOverrides} {
		if err := mergo.Merge(&out, layer, mergo.WithOverride); err != nil {
			return out
		}
	}
	return out
}
