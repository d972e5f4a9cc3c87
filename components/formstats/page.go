package formstats

import "strings"

// TotalLoading marks a total whose value is still being fetched.
const TotalLoading = "loading"

// SubmissionsNotApplicable is shown for the section breakdown, which has no
// submission events of its own.
const SubmissionsNotApplicable = "N/A"

// Totals are the headline numbers of the page.
type Totals struct {
	Sessions          string `json:"sessions-total"`
	Submissions       string `json:"submissions-total"`
	LegacySubmissions string `json:"legacy-submissions-total"`
	PageViews         string `json:"views-total"`
	Errors            string `json:"errors-total"`
	CompletionRate    string `json:"completion-rate"`
	FieldErrors       string `json:"fieldErrorsTotal"`
}

func loadingTotals() Totals {
	return Totals{
		Sessions:          TotalLoading,
		Submissions:       TotalLoading,
		LegacySubmissions: "0",
		PageViews:         TotalLoading,
		Errors:            TotalLoading,
		CompletionRate:    TotalLoading,
		FieldErrors:       TotalLoading,
	}
}

// Page is the rendering surface of one session.
type Page struct {
	Loading            bool
	SectionName        string
	StatsVisible       bool
	FieldErrorsVisible bool
	ChartVisible       bool
	ActiveTable        TableID
	FieldErrorHeader   string
	FormOptions        []string
	Totals             Totals
	Extras             []ExtraReport
	tables             map[TableID]*Table
}

// ExtraReport holds the raw rows of a report added through a template
// manifest. Cells keep the dimension values followed by the first date
// range's metric values.
type ExtraReport struct {
	Name    ReportName `json:"name"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// NewPage returns an idle page with every table empty.
func NewPage() *Page {
	p := &Page{StatsVisible: true}
	p.emptyTables()
	return p
}

func (p *Page) emptyTables() {
	p.tables = make(map[TableID]*Table, len(StatsTables))
	for _, id := range StatsTables {
		p.tables[id] = &Table{ID: id}
	}
}

// Table returns the table for id.
func (p *Page) Table(id TableID) *Table {
	if t, ok := p.tables[id]; ok {
		return t
	}
	return &Table{ID: id}
}

// Tables returns every table in page order.
func (p *Page) Tables() []Table {
	out := make([]Table, 0, len(StatsTables))
	for _, id := range StatsTables {
		t := p.Table(id)
		out = append(out, Table{ID: t.ID, Rows: append([]TableRow(nil), t.Rows...)})
	}
	return out
}

func (p *Page) appendRow(id TableID, row TableRow) {
	if t, ok := p.tables[id]; ok {
		t.append(row)
	}
}

// ShowStats makes id the only visible stats table.
func (p *Page) ShowStats(id TableID) {
	p.ActiveTable = id
}

// startLoading puts the totals back into their loading state and clears
// every table.
func (p *Page) startLoading() {
	p.Loading = true
	p.Totals = loadingTotals()
	p.ActiveTable = ""
	p.Extras = nil
	p.emptyTables()
}

func (p *Page) clone() *Page {
	out := *p
	out.FormOptions = append([]string(nil), p.FormOptions...)
	out.Extras = append([]ExtraReport(nil), p.Extras...)
	out.tables = make(map[TableID]*Table, len(p.tables))
	for id, t := range p.tables {
		out.tables[id] = &Table{ID: id, Rows: append([]TableRow(nil), t.Rows...)}
	}
	return &out
}

// SectionName labels the section breakdown. A section of the selected form
// reads "Page: your details"; a link into another form keeps its raw
// "<slug>/<section-slug>" path with no prefix.
func SectionName(currentSlug, linkSlug, sectionSlug string) string {
	if linkSlug != currentSlug {
		return linkSlug + "/" + sectionSlug
	}
	return "Page: " + strings.ReplaceAll(sectionSlug, "-", " ")
}

// FieldErrorHeader builds "<form> / <page> / <field>" from an error page
// title such as "Error: Your details - Apply for a licence".
func FieldErrorHeader(title, field string) string {
	parts := strings.Split(title, "-")
	page := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[0]), "Error:"))
	form := ""
	if len(parts) > 1 {
		form = strings.TrimSpace(parts[1])
	}
	return form + " / " + page + " / " + field
}
