package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ettle/strcase"

	"github.com/goliatone/go-formstats/components/formstats"
	"github.com/goliatone/go-formstats/components/formstats/commands"
	"github.com/goliatone/go-formstats/components/formstats/queries"
)

type reportCmd struct {
	View    string        `help:"View key (dev, staging, qa, production)."`
	Period  string        `help:"Start period, e.g. 7daysAgo or 2018-10-01."`
	Slug    string        `help:"Form path filter."`
	Query   string        `default:"pageViewQuery" enum:"pageViewQuery,sectionViewQuery" help:"Report set to run."`
	Format  string        `default:"text" enum:"text,json" help:"Output format."`
	Timeout time.Duration `default:"2m" help:"Give up on the report batch after this long."`

	out io.Writer
}

func (cmd *reportCmd) Run(g *Globals) error {
	ctx, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()

	rt, err := g.load(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rt.logger.Sync() }()

	service := rt.service(nil)
	session := service.Sessions().Ensure("")
	load := commands.NewLoadReportsCommand(service, rt.telemetry)
	if err := load.Execute(ctx, commands.LoadReportsInput{
		SessionID: session.ID,
		Controls: formstats.Controls{
			View:   cmd.View,
			Period: cmd.Period,
			Slug:   cmd.Slug,
			Query:  formstats.QueryKind(cmd.Query),
		},
	}); err != nil {
		return err
	}

	page, err := queries.NewPageQuery(service).Query(ctx, queries.PageInput{SessionID: session.ID})
	if err != nil {
		return err
	}
	out := cmd.out
	if out == nil {
		out = os.Stdout
	}
	if cmd.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(page)
	}
	return writeReport(out, page)
}

func writeReport(out io.Writer, page formstats.PageView) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "View\t%s (%s)\n", page.View.Name, page.View.ID)
	fmt.Fprintf(tw, "Period\t%s\n", page.Period)
	fmt.Fprintf(tw, "Form\t%s\n", page.Slug)
	if page.SectionName != "" {
		fmt.Fprintf(tw, "Section\t%s\n", page.SectionName)
	}
	fmt.Fprintln(tw)

	totals := []struct{ label, value string }{
		{"Page views", page.Totals.PageViews},
		{"Sessions", page.Totals.Sessions},
		{"Submissions", page.Totals.Submissions},
		{"Legacy submissions", page.Totals.LegacySubmissions},
		{"Errors", page.Totals.Errors},
		{"Completion rate", page.Totals.CompletionRate},
	}
	for _, total := range totals {
		fmt.Fprintf(tw, "%s\t%s\n", total.label, total.value)
	}

	for _, table := range page.Tables {
		if len(table.Rows) == 0 {
			continue
		}
		fmt.Fprintf(tw, "\n== %s ==\n", strcase.ToSNAKE(string(table.ID)))
		for _, row := range table.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cellText(cell))
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
	}

	if len(page.FormOptions) > 0 {
		fmt.Fprintf(tw, "\nForms\t%s\n", strings.Join(page.FormOptions, ", "))
	}
	return tw.Flush()
}

func cellText(cell formstats.TableCell) string {
	if cell.Link != nil {
		return cell.Link.Text
	}
	return strings.Join(cell.Lines, " ")
}
