package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/goliatone/go-formstats/components/formstats"
	"github.com/goliatone/go-formstats/components/formstats/queries"
)

type templatesCmd struct {
	Manifest string   `arg:"" optional:"" type:"existingfile" help:"Manifest to validate. Without one the built-in templates are listed."`
	Name     []string `help:"Only list these templates (repeatable)."`
	Format   string   `default:"text" enum:"text,json" help:"Output format."`

	out io.Writer
}

func (cmd *templatesCmd) Run(_ *Globals) error {
	builder := formstats.NewQueryBuilder()
	if cmd.Manifest != "" {
		loaded, err := formstats.LoadTemplates(cmd.Manifest)
		if err != nil {
			return err
		}
		builder = loaded
	}

	names := make([]formstats.ReportName, 0, len(cmd.Name))
	for _, name := range cmd.Name {
		names = append(names, formstats.ReportName(name))
	}
	templates, err := queries.NewTemplatesQuery(builder).Query(context.Background(), queries.TemplatesInput{Names: names})
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
		return enc.Encode(templates)
	}
	if cmd.Manifest != "" {
		fmt.Fprintf(out, "✓ %s is valid\n", cmd.Manifest)
	}
	return writeTemplates(out, templates)
}

func writeTemplates(out io.Writer, templates []formstats.ReportTemplate) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMETRICS\tDIMENSIONS\tFILTERS\tQUERIES")
	for _, tpl := range templates {
		filters := make([]string, 0, len(tpl.Filters))
		for _, token := range tpl.Filters {
			filters = append(filters, string(token))
		}
		queries := make([]string, 0, len(tpl.Queries))
		for _, kind := range tpl.Queries {
			queries = append(queries, string(kind))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			tpl.Name,
			strings.Join(tpl.Metrics, ","),
			strings.Join(tpl.Dimensions, ","),
			strings.Join(filters, ","),
			strings.Join(queries, ","),
		)
	}
	return tw.Flush()
}
