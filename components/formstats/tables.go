package formstats

import (
	"strings"
)

// TableID identifies a stats table on the page.
type TableID string

const (
	TableViews       TableID = "views-table"
	TableSubmissions TableID = "submissions-table"
	TableErrors      TableID = "errors-table"
	TableFieldErrors TableID = "field-errors-table"
)

// StatsTables lists every table in page order.
var StatsTables = []TableID{TableViews, TableSubmissions, TableErrors, TableFieldErrors}

// KnownTable reports whether id names a stats table.
func KnownTable(id TableID) bool {
	for _, t := range StatsTables {
		if t == id {
			return true
		}
	}
	return false
}

// TableLink is an actionable cell rendered as an anchor. Data becomes
// data-* attributes and the request payload of the bound action.
type TableLink struct {
	Text   string            `json:"text"`
	Class  string            `json:"class"`
	Action string            `json:"action"`
	Data   map[string]string `json:"data"`
}

// TableCell is one cell of a view-model row.
type TableCell struct {
	Lines   []string   `json:"lines,omitempty"`
	Link    *TableLink `json:"link,omitempty"`
	Detail  []string   `json:"detail,omitempty"`
	Numeric bool       `json:"numeric,omitempty"`
	Class   string     `json:"class,omitempty"`
}

// TableRow is an ordered list of cells.
type TableRow struct {
	Cells []TableCell `json:"cells"`
}

// Table is an append-only list of rows.
type Table struct {
	ID   TableID    `json:"id"`
	Rows []TableRow `json:"rows"`
}

func (t *Table) append(row TableRow) {
	t.Rows = append(t.Rows, row)
}

func numericCell(value string) TableCell {
	return TableCell{Lines: []string{value}, Numeric: true}
}

// pageViewRow links the path to its section breakdown.
func pageViewRow(rec PageViewRecord) TableRow {
	levels := strings.Split(rec.Path, "/")
	text := rec.Path
	if rec.Title != "" {
		text = strings.TrimSpace(strings.SplitN(rec.Title, "-", 2)[0])
	}
	return TableRow{Cells: []TableCell{
		{
			Link: &TableLink{
				Text:   text,
				Class:  "section-stats",
				Action: "section",
				Data: map[string]string{
					"query":        string(QuerySectionView),
					"slug":         level(levels, 3),
					"section-slug": level(levels, 4),
				},
			},
			Lines: []string{GovDate(rec.Date)},
		},
		numericCell(rec.PageViews),
	}}
}

func level(levels []string, i int) string {
	if i < len(levels) {
		return levels[i]
	}
	return ""
}

func submissionRow(rec SubmissionRecord) TableRow {
	return TableRow{Cells: []TableCell{
		{Lines: []string{rec.Label}},
		{Lines: []string{rec.Action, GovDate(rec.Date)}},
		numericCell(rec.Events),
	}}
}

// errorRow links the error message to the field drill-down.
func errorRow(rec ErrorRecord) TableRow {
	return TableRow{Cells: []TableCell{
		{Lines: []string{rec.Action}},
		{
			Link: &TableLink{
				Text:   rec.Label,
				Class:  "drilldown-error govuk-error-message",
				Action: "errors/drilldown",
				Data: map[string]string{
					"title": rec.PageTitle,
					"field": rec.Action,
				},
			},
			Detail: []string{"Date: " + GovDate(rec.Date), rec.PageTitle},
		},
		numericCell(rec.Events),
	}}
}

func fieldErrorRow(rec FieldErrorRecord) TableRow {
	return TableRow{Cells: []TableCell{
		{Lines: []string{GovDateTime(rec.DateHourMinute)}},
		{
			Lines:  []string{rec.Label},
			Class:  "govuk-error-message",
			Detail: []string{"Browser: " + rec.Browser + ", OS: " + rec.OperatingSystem},
		},
		numericCell(rec.Events),
	}}
}
